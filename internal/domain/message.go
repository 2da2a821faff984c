package domain

import (
	"fmt"
	"time"
)

const (
	messageNoMacarons = "Plus de macarons"
	alertTitle        = "⏰ Plus de Macarons"
)

// Alert is the blocking notice shown once the pool is empty.
type Alert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func RecoveryMessage(state PoolState, policy Policy, now time.Time) string {
	if state.Count > 0 {
		return fmt.Sprintf("Vous avez %d macarons", state.Count)
	}

	remaining, ok := state.TimeUntilRecovery(policy, now)
	if !ok {
		return messageNoMacarons
	}

	hours, minutes, _ := splitDuration(remaining)
	return fmt.Sprintf("%s! Recharge dans %dh %dm", messageNoMacarons, hours, minutes)
}

// RecoveryAlert returns false when no countdown can be computed.
func RecoveryAlert(state PoolState, policy Policy, now time.Time) (Alert, bool) {
	remaining, ok := state.TimeUntilRecovery(policy, now)
	if !ok {
		return Alert{}, false
	}

	hours, minutes, _ := splitDuration(remaining)
	return Alert{
		Title: alertTitle,
		Body:  fmt.Sprintf("Vous retrouverez %d macarons dans %dh %dm", policy.Capacity, hours, minutes),
	}, true
}

func StatusLine(count int, policy Policy) string {
	return fmt.Sprintf("Macarons: %d/%d", count, policy.Capacity)
}

func PlayStatus(canPlay bool) string {
	if canPlay {
		return "Vous pouvez jouer"
	}

	return "En attente de recharge"
}

func Countdown(remaining time.Duration) string {
	hours, minutes, seconds := splitDuration(remaining)
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

func splitDuration(d time.Duration) (hours, minutes, seconds int64) {
	if d < 0 {
		d = 0
	}

	hours = int64(d / time.Hour)
	minutes = int64(d/time.Minute) % 60
	seconds = int64(d/time.Second) % 60
	return hours, minutes, seconds
}
