package domain

import (
	"fmt"
	"time"
)

const (
	DefaultCapacity        = 5
	DefaultRecoveryWindow  = 12 * time.Hour
	DefaultMessageCooldown = 24 * time.Hour
)

type Phase string

const (
	PhaseFull    Phase = "full"
	PhasePartial Phase = "partial"
	PhaseEmpty   Phase = "empty"
)

// Policy holds the tunables of the macaron economy.
type Policy struct {
	Capacity        int
	RecoveryWindow  time.Duration
	MessageCooldown time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Capacity:        DefaultCapacity,
		RecoveryWindow:  DefaultRecoveryWindow,
		MessageCooldown: DefaultMessageCooldown,
	}
}

func (p Policy) Validate() error {
	if p.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalidPolicy, p.Capacity)
	}
	if p.RecoveryWindow <= 0 {
		return fmt.Errorf("%w: recovery window must be positive, got %s", ErrInvalidPolicy, p.RecoveryWindow)
	}
	if p.MessageCooldown < 0 {
		return fmt.Errorf("%w: message cooldown must not be negative, got %s", ErrInvalidPolicy, p.MessageCooldown)
	}

	return nil
}

// PoolState is the persisted macaron pool. Zero timestamps mean the anchor is absent.
type PoolState struct {
	Count                 int
	DepletedAt            time.Time
	LastFullRecoveryAt    time.Time
	LastRecoveryMessageAt time.Time
	Initialized           bool
}

// Seed fills a never-initialized pool. It reports whether anything changed.
func (s *PoolState) Seed(policy Policy) bool {
	if s.Initialized {
		return false
	}

	s.Initialized = true
	s.Count = policy.Capacity
	return true
}

func (s PoolState) Phase(policy Policy) Phase {
	switch {
	case s.Count <= 0:
		return PhaseEmpty
	case s.Count >= policy.Capacity:
		return PhaseFull
	default:
		return PhasePartial
	}
}

// recoveryAnchor returns the timestamp the recovery window runs from in the current phase.
func (s PoolState) recoveryAnchor(policy Policy) (time.Time, bool) {
	switch s.Phase(policy) {
	case PhasePartial:
		return s.LastFullRecoveryAt, !s.LastFullRecoveryAt.IsZero()
	case PhaseEmpty:
		return s.DepletedAt, !s.DepletedAt.IsZero()
	default:
		return time.Time{}, false
	}
}

func (s PoolState) RestoreDue(policy Policy, now time.Time) bool {
	anchor, ok := s.recoveryAnchor(policy)
	if !ok {
		return false
	}

	return now.Sub(anchor) >= policy.RecoveryWindow
}

// TimeUntilRecovery returns the remaining wait before a full restoration. The second
// value is false when the pool is full or the relevant anchor is missing.
func (s PoolState) TimeUntilRecovery(policy Policy, now time.Time) (time.Duration, bool) {
	anchor, ok := s.recoveryAnchor(policy)
	if !ok {
		return 0, false
	}

	remaining := anchor.Add(policy.RecoveryWindow).Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, true
}

// Consume deducts exactly one unit. It returns false and leaves the state untouched when empty.
func (s *PoolState) Consume(now time.Time) bool {
	if s.Count <= 0 {
		return false
	}

	s.Count--
	if s.Count == 0 {
		s.DepletedAt = now
	}

	return true
}

// Restore refills the pool to capacity and moves the recovery anchor to now.
func (s *PoolState) Restore(policy Policy, now time.Time) {
	s.Count = policy.Capacity
	s.LastFullRecoveryAt = now
	s.DepletedAt = time.Time{}
}

func (s PoolState) RecoveryMessageDue(policy Policy, now time.Time) bool {
	if s.Count > 0 {
		return false
	}
	if s.LastRecoveryMessageAt.IsZero() {
		return true
	}

	return now.Sub(s.LastRecoveryMessageAt) >= policy.MessageCooldown
}

func (s *PoolState) MarkRecoveryMessage(now time.Time) {
	s.LastRecoveryMessageAt = now
}

// Normalize clamps impossible states back into the valid range. Each repair is
// described in the returned slice; an empty slice means the state was already valid.
func (s PoolState) Normalize(policy Policy) (PoolState, []string) {
	var repairs []string

	if s.Count < 0 {
		repairs = append(repairs, fmt.Sprintf("count %d below zero", s.Count))
		s.Count = 0
	}
	if s.Count > policy.Capacity {
		repairs = append(repairs, fmt.Sprintf("count %d above capacity %d", s.Count, policy.Capacity))
		s.Count = policy.Capacity
	}
	if s.Count > 0 && !s.DepletedAt.IsZero() {
		repairs = append(repairs, fmt.Sprintf("depletion anchor set while count is %d", s.Count))
		s.DepletedAt = time.Time{}
	}

	return s, repairs
}
