package application

import (
	"time"

	"github.com/bnema/macaron-cli/internal/domain"
)

const (
	keyCount               = "macaron_count"
	keyDepletedAt          = "macaron_depleted_at"
	keyLastFullRecovery    = "last_full_recovery_date"
	keyLastRecoveryMessage = "last_recovery_message_date"
	keyInitialSetup        = "initial_setup_done"
)

func decodePoolState(prefs domain.Preferences, policy domain.Policy) domain.PoolState {
	state := domain.PoolState{Count: policy.Capacity}

	if initialized, ok := prefs.Bool(keyInitialSetup); ok {
		state.Initialized = initialized
	}
	if count, ok := prefs.Int(keyCount); ok {
		state.Count = int(count)
	}

	state.DepletedAt = decodeTimestamp(prefs, keyDepletedAt)
	state.LastFullRecoveryAt = decodeTimestamp(prefs, keyLastFullRecovery)
	state.LastRecoveryMessageAt = decodeTimestamp(prefs, keyLastRecoveryMessage)

	return state
}

// encodePoolState renders the whole record as one edit so related fields are
// never committed separately.
func encodePoolState(state domain.PoolState) domain.PreferenceEdit {
	edit := domain.PreferenceEdit{
		Ints:  map[string]int64{keyCount: int64(state.Count)},
		Bools: map[string]bool{keyInitialSetup: state.Initialized},
	}

	encodeTimestamp(&edit, keyDepletedAt, state.DepletedAt)
	encodeTimestamp(&edit, keyLastFullRecovery, state.LastFullRecoveryAt)
	encodeTimestamp(&edit, keyLastRecoveryMessage, state.LastRecoveryMessageAt)

	return edit
}

func decodeTimestamp(prefs domain.Preferences, key string) time.Time {
	millis, ok := prefs.Int(key)
	if !ok || millis < 0 {
		return time.Time{}
	}

	return time.UnixMilli(millis).UTC()
}

func encodeTimestamp(edit *domain.PreferenceEdit, key string, at time.Time) {
	if at.IsZero() {
		edit.Remove = append(edit.Remove, key)
		return
	}

	edit.Ints[key] = at.UnixMilli()
}
