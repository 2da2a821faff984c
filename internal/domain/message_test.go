package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryMessage(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name  string
		state PoolState
		now   time.Time
		want  string
	}{
		{name: "units left", state: PoolState{Count: 3}, now: baseTime, want: "Vous avez 3 macarons"},
		{name: "empty with countdown", state: PoolState{Count: 0, DepletedAt: baseTime}, now: baseTime.Add(90 * time.Minute), want: "Plus de macarons! Recharge dans 10h 30m"},
		{name: "empty without anchor", state: PoolState{Count: 0}, now: baseTime, want: "Plus de macarons"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecoveryMessage(tt.state, policy, tt.now))
		})
	}
}

func TestRecoveryAlert(t *testing.T) {
	policy := DefaultPolicy()

	alert, ok := RecoveryAlert(PoolState{Count: 0, DepletedAt: baseTime}, policy, baseTime.Add(11*time.Hour+59*time.Minute))
	require.True(t, ok)
	assert.Equal(t, "⏰ Plus de Macarons", alert.Title)
	assert.Equal(t, "Vous retrouverez 5 macarons dans 0h 1m", alert.Body)

	_, ok = RecoveryAlert(PoolState{Count: 5}, policy, baseTime)
	assert.False(t, ok)
}

func TestStatusFormatting(t *testing.T) {
	assert.Equal(t, "Macarons: 2/5", StatusLine(2, DefaultPolicy()))
	assert.Equal(t, "Vous pouvez jouer", PlayStatus(true))
	assert.Equal(t, "En attente de recharge", PlayStatus(false))
	assert.Equal(t, "1h 2m 3s", Countdown(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "0h 0m 0s", Countdown(-time.Second))
}

func TestPersistenceErrorMatching(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("consume: %w", &PersistenceError{Op: "commit pool state", Err: cause})

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)

	var persistenceErr *PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
	assert.Equal(t, "commit pool state", persistenceErr.Op)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPreferenceEditApply(t *testing.T) {
	base := Preferences{
		Ints:  map[string]int64{"a": 1, "b": 2},
		Bools: map[string]bool{"flag": true},
	}

	got := PreferenceEdit{
		Ints:   map[string]int64{"a": 10, "flag": 3},
		Remove: []string{"b"},
	}.Apply(base)

	assert.Equal(t, map[string]int64{"a": 10, "flag": 3}, got.Ints)
	assert.Empty(t, got.Bools)
	assert.Equal(t, int64(2), base.Ints["b"])
	assert.True(t, PreferenceEdit{}.Empty())
}
