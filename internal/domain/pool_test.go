package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	tests := []struct {
		name   string
		policy Policy
	}{
		{name: "zero capacity", policy: Policy{Capacity: 0, RecoveryWindow: time.Hour}},
		{name: "zero window", policy: Policy{Capacity: 5}},
		{name: "negative cooldown", policy: Policy{Capacity: 5, RecoveryWindow: time.Hour, MessageCooldown: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.policy.Validate(), ErrInvalidPolicy)
		})
	}
}

func TestPoolStateSeedOnlyOnce(t *testing.T) {
	policy := DefaultPolicy()
	state := PoolState{}

	assert.True(t, state.Seed(policy))
	assert.Equal(t, 5, state.Count)
	assert.True(t, state.Initialized)

	state.Count = 2
	assert.False(t, state.Seed(policy))
	assert.Equal(t, 2, state.Count)
}

func TestPoolStatePhase(t *testing.T) {
	policy := DefaultPolicy()

	assert.Equal(t, PhaseFull, PoolState{Count: 5}.Phase(policy))
	assert.Equal(t, PhasePartial, PoolState{Count: 3}.Phase(policy))
	assert.Equal(t, PhaseEmpty, PoolState{Count: 0}.Phase(policy))

	single := Policy{Capacity: 1, RecoveryWindow: time.Hour}
	state := PoolState{Count: 1}
	assert.Equal(t, PhaseFull, state.Phase(single))
	require.True(t, state.Consume(baseTime))
	assert.Equal(t, PhaseEmpty, state.Phase(single))
}

func TestPoolStateConsumeStampsDepletion(t *testing.T) {
	state := PoolState{Count: 5, Initialized: true}

	for i := 0; i < 5; i++ {
		require.True(t, state.Consume(baseTime.Add(time.Duration(i)*time.Minute)))
		if state.Count > 0 {
			assert.True(t, state.DepletedAt.IsZero())
		}
	}

	assert.Equal(t, 0, state.Count)
	assert.Equal(t, baseTime.Add(4*time.Minute), state.DepletedAt)

	assert.False(t, state.Consume(baseTime.Add(time.Hour)))
	assert.Equal(t, 0, state.Count)
	assert.Equal(t, baseTime.Add(4*time.Minute), state.DepletedAt)
}

func TestPoolStateRestoreDueEmptyBranch(t *testing.T) {
	policy := DefaultPolicy()
	state := PoolState{Count: 0, DepletedAt: baseTime}

	assert.False(t, state.RestoreDue(policy, baseTime.Add(policy.RecoveryWindow-time.Millisecond)))
	assert.True(t, state.RestoreDue(policy, baseTime.Add(policy.RecoveryWindow)))
	assert.True(t, state.RestoreDue(policy, baseTime.Add(policy.RecoveryWindow+time.Hour)))

	assert.False(t, PoolState{Count: 0}.RestoreDue(policy, baseTime.Add(48*time.Hour)))
}

func TestPoolStateRestoreDuePartialBranch(t *testing.T) {
	policy := DefaultPolicy()
	state := PoolState{Count: 3, LastFullRecoveryAt: baseTime}

	assert.False(t, state.RestoreDue(policy, baseTime.Add(11*time.Hour)))
	assert.True(t, state.RestoreDue(policy, baseTime.Add(12*time.Hour)))

	assert.False(t, PoolState{Count: 3}.RestoreDue(policy, baseTime.Add(48*time.Hour)))
}

func TestPoolStateRestoreDueNeverWhenFull(t *testing.T) {
	policy := DefaultPolicy()
	state := PoolState{Count: 5, LastFullRecoveryAt: baseTime}

	assert.False(t, state.RestoreDue(policy, baseTime.Add(100*time.Hour)))
	_, ok := state.TimeUntilRecovery(policy, baseTime)
	assert.False(t, ok)
}

func TestPoolStateRestoreRefillsToCapacity(t *testing.T) {
	policy := DefaultPolicy()
	state := PoolState{Count: 0, DepletedAt: baseTime, LastFullRecoveryAt: baseTime.Add(-time.Hour)}

	now := baseTime.Add(13 * time.Hour)
	state.Restore(policy, now)

	assert.Equal(t, 5, state.Count)
	assert.True(t, state.DepletedAt.IsZero())
	assert.Equal(t, now, state.LastFullRecoveryAt)
}

func TestPoolStateTimeUntilRecovery(t *testing.T) {
	policy := DefaultPolicy()

	empty := PoolState{Count: 0, DepletedAt: baseTime}
	remaining, ok := empty.TimeUntilRecovery(policy, baseTime.Add(11*time.Hour+59*time.Minute))
	require.True(t, ok)
	assert.Equal(t, time.Minute, remaining)

	remaining, ok = empty.TimeUntilRecovery(policy, baseTime.Add(20*time.Hour))
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), remaining)

	partial := PoolState{Count: 2, LastFullRecoveryAt: baseTime}
	remaining, ok = partial.TimeUntilRecovery(policy, baseTime.Add(2*time.Hour))
	require.True(t, ok)
	assert.Equal(t, 10*time.Hour, remaining)

	_, ok = PoolState{Count: 2}.TimeUntilRecovery(policy, baseTime)
	assert.False(t, ok)
}

func TestPoolStateRecoveryMessageDue(t *testing.T) {
	policy := DefaultPolicy()

	assert.False(t, PoolState{Count: 1}.RecoveryMessageDue(policy, baseTime))
	assert.True(t, PoolState{Count: 0}.RecoveryMessageDue(policy, baseTime))

	state := PoolState{Count: 0}
	state.MarkRecoveryMessage(baseTime)
	assert.False(t, state.RecoveryMessageDue(policy, baseTime))
	assert.False(t, state.RecoveryMessageDue(policy, baseTime.Add(23*time.Hour)))
	assert.True(t, state.RecoveryMessageDue(policy, baseTime.Add(24*time.Hour)))
}

func TestPoolStateNormalize(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name    string
		state   PoolState
		want    PoolState
		repairs int
	}{
		{name: "valid", state: PoolState{Count: 3}, want: PoolState{Count: 3}},
		{name: "negative", state: PoolState{Count: -2}, want: PoolState{Count: 0}, repairs: 1},
		{name: "above capacity", state: PoolState{Count: 9}, want: PoolState{Count: 5}, repairs: 1},
		{name: "stale depletion anchor", state: PoolState{Count: 2, DepletedAt: baseTime}, want: PoolState{Count: 2}, repairs: 1},
		{name: "above capacity with anchor", state: PoolState{Count: 7, DepletedAt: baseTime}, want: PoolState{Count: 5}, repairs: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, repairs := tt.state.Normalize(policy)
			assert.Equal(t, tt.want, got)
			assert.Len(t, repairs, tt.repairs)
		})
	}
}
