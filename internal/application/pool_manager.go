package application

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/bnema/macaron-cli/internal/domain"
	"github.com/bnema/macaron-cli/internal/ports"
)

var (
	ErrNilPreferenceStore = errors.New("preference store is nil")
	ErrNoChargeLedger     = errors.New("charge ledger is not configured")
)

// PoolManager owns the macaron pool. It is the only writer of the pool keys and
// serializes every read-check-mutate-persist sequence behind one mutex.
type PoolManager struct {
	store  ports.PreferenceStore
	clock  ports.Clock
	policy domain.Policy
	ledger ports.ChargeLedger
	logger *log.Logger
	events *snapshotBroadcaster

	mu    sync.Mutex
	state domain.PoolState
}

type PoolManagerOption func(*PoolManager)

func WithPolicy(policy domain.Policy) PoolManagerOption {
	return func(m *PoolManager) {
		m.policy = policy
	}
}

func WithLogger(logger *log.Logger) PoolManagerOption {
	return func(m *PoolManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithChargeLedger(ledger ports.ChargeLedger) PoolManagerOption {
	return func(m *PoolManager) {
		m.ledger = ledger
	}
}

// NewPoolManager loads the pool from store, seeding it on the very first run.
func NewPoolManager(ctx context.Context, store ports.PreferenceStore, clock ports.Clock, opts ...PoolManagerOption) (*PoolManager, error) {
	if store == nil {
		return nil, ErrNilPreferenceStore
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	m := &PoolManager{
		store:  store,
		clock:  clock,
		policy: domain.DefaultPolicy(),
		logger: log.New(io.Discard, "", 0),
		events: newSnapshotBroadcaster(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.policy.Validate(); err != nil {
		return nil, err
	}

	if err := m.load(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *PoolManager) Policy() domain.Policy {
	return m.policy
}

func (m *PoolManager) load(ctx context.Context) error {
	_, err := m.transactLocked(ctx, "load pool state", func(*domain.PoolState, time.Time) bool {
		return false
	})
	return err
}

// CanPlay applies any due recovery and reports whether a macaron is available.
func (m *PoolManager) CanPlay(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.restoreIfDueLocked(ctx, false); err != nil {
		return false, err
	}

	return m.state.Count > 0, nil
}

// Consume deducts one macaron. It returns false without error when none is left.
func (m *PoolManager) Consume(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.consumeLocked(ctx)
}

// ConsumeOnce charges at most once per key. A repeated key replays the first
// outcome without touching the pool. Failed attempts are not recorded, so they
// may be retried with the same key.
func (m *PoolManager) ConsumeOnce(ctx context.Context, chargeKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.consumeOnceLocked(ctx, chargeKey)
}

// ConsumeOnceSnapshot is ConsumeOnce that also returns the pool as this charge left it.
func (m *PoolManager) ConsumeOnceSnapshot(ctx context.Context, chargeKey string) (bool, PoolSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	charged, err := m.consumeOnceLocked(ctx, chargeKey)
	if err != nil {
		return false, PoolSnapshot{}, err
	}

	return charged, m.snapshotLocked(m.now()), nil
}

func (m *PoolManager) consumeOnceLocked(ctx context.Context, chargeKey string) (bool, error) {
	if chargeKey == "" {
		return m.consumeLocked(ctx)
	}
	if m.ledger == nil {
		return false, ErrNoChargeLedger
	}

	if charged, found := m.ledger.Lookup(chargeKey); found {
		m.logger.Printf("charge %q already settled (charged=%t)", chargeKey, charged)
		return charged, nil
	}

	charged, err := m.consumeLocked(ctx)
	if err != nil {
		return false, err
	}
	m.ledger.Record(chargeKey, charged)

	return charged, nil
}

func (m *PoolManager) consumeLocked(ctx context.Context) (bool, error) {
	var consumed, restored bool
	_, err := m.transactLocked(ctx, "consume macaron", func(state *domain.PoolState, now time.Time) bool {
		restored = state.RestoreDue(m.policy, now)
		if restored {
			state.Restore(m.policy, now)
		}
		consumed = state.Consume(now)
		return consumed || restored
	})
	if err != nil {
		return false, err
	}

	if restored {
		m.logger.Printf("restored pool to %d macarons", m.policy.Capacity)
	}
	if !consumed {
		m.logger.Printf("consume refused: no macarons left")
		return false, nil
	}
	m.logger.Printf("consumed macaron: %d left", m.state.Count)

	return true, nil
}

// RestoreIfNeeded refills the pool when its recovery window has elapsed, or
// unconditionally when force is set. It reports whether a restoration happened.
func (m *PoolManager) RestoreIfNeeded(ctx context.Context, force bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.restoreIfDueLocked(ctx, force)
}

// RestoreIfNeededSnapshot is RestoreIfNeeded that also returns the resulting pool.
func (m *PoolManager) RestoreIfNeededSnapshot(ctx context.Context, force bool) (bool, PoolSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	restored, err := m.restoreIfDueLocked(ctx, force)
	if err != nil {
		return false, PoolSnapshot{}, err
	}

	return restored, m.snapshotLocked(m.now()), nil
}

func (m *PoolManager) ForceRestore(ctx context.Context) error {
	_, err := m.RestoreIfNeeded(ctx, true)
	return err
}

func (m *PoolManager) restoreIfDueLocked(ctx context.Context, force bool) (bool, error) {
	restored, err := m.transactLocked(ctx, "restore pool", func(state *domain.PoolState, now time.Time) bool {
		if !force && !state.RestoreDue(m.policy, now) {
			return false
		}
		state.Restore(m.policy, now)
		return true
	})
	if err != nil {
		return false, err
	}

	if restored {
		m.logger.Printf("restored pool to %d macarons (forced=%t)", m.policy.Capacity, force)
	}
	return restored, nil
}

func (m *PoolManager) MarkRecoveryMessageShown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.transactLocked(ctx, "mark recovery message", func(state *domain.PoolState, now time.Time) bool {
		state.MarkRecoveryMessage(now)
		return true
	})
	return err
}

func (m *PoolManager) ShouldShowRecoveryMessage() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.RecoveryMessageDue(m.policy, m.now())
}

func (m *PoolManager) TimeUntilRecovery() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.TimeUntilRecovery(m.policy, m.now())
}

func (m *PoolManager) RecoveryMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return domain.RecoveryMessage(m.state, m.policy, m.now())
}

func (m *PoolManager) RecoveryAlert() (domain.Alert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return domain.RecoveryAlert(m.state, m.policy, m.now())
}

func (m *PoolManager) CurrentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Count
}

// State returns a copy of the pool record as last committed.
func (m *PoolManager) State() domain.PoolState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *PoolManager) Snapshot() PoolSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked(m.now())
}

// Refresh applies any due recovery and returns the resulting snapshot.
func (m *PoolManager) Refresh(ctx context.Context) (PoolSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.restoreIfDueLocked(ctx, false); err != nil {
		return PoolSnapshot{}, err
	}

	return m.snapshotLocked(m.now()), nil
}

// Subscribe returns a stream of snapshots published after every successful
// mutation. The returned func releases the subscription and closes the channel.
func (m *PoolManager) Subscribe() (<-chan PoolSnapshot, func()) {
	return m.events.subscribe()
}

// transactLocked re-reads the pool from the store, applies mutate and commits the
// result in one store update, so writers in other processes are never overwritten.
// The in-memory state is replaced only once the update succeeds. It reports
// whether mutate changed the pool.
func (m *PoolManager) transactLocked(ctx context.Context, op string, mutate func(*domain.PoolState, time.Time) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := m.now()
	var (
		next    domain.PoolState
		changed bool
	)
	err := m.store.Update(context.WithoutCancel(ctx), func(current domain.Preferences) (domain.PreferenceEdit, error) {
		state, repaired := m.decode(current)
		changed = mutate(&state, now)
		next = state
		if !changed && !repaired {
			return domain.PreferenceEdit{}, nil
		}
		return encodePoolState(state), nil
	})
	if err != nil {
		m.logger.Printf("%s failed: %v", op, err)
		return false, &domain.PersistenceError{Op: op, Err: err}
	}

	m.state = next
	if changed {
		m.events.publish(m.snapshotLocked(now))
	}

	return changed, nil
}

// decode turns stored preferences into a pool, seeding it on first use and
// clamping impossible values. It reports whether the record needs rewriting.
func (m *PoolManager) decode(prefs domain.Preferences) (domain.PoolState, bool) {
	state := decodePoolState(prefs, m.policy)
	dirty := state.Seed(m.policy)
	if dirty {
		m.logger.Printf("seeded pool with %d macarons", m.policy.Capacity)
	}

	state, repairs := state.Normalize(m.policy)
	for _, repair := range repairs {
		m.logger.Printf("%v: %s, clamped", domain.ErrInvariantViolation, repair)
		dirty = true
	}

	return state, dirty
}

func (m *PoolManager) snapshotLocked(now time.Time) PoolSnapshot {
	snapshot := PoolSnapshot{
		Count:              m.state.Count,
		Capacity:           m.policy.Capacity,
		Phase:              m.state.Phase(m.policy),
		CanPlay:            m.state.Count > 0,
		Message:            domain.RecoveryMessage(m.state, m.policy, now),
		DepletedAt:         m.state.DepletedAt,
		LastFullRecoveryAt: m.state.LastFullRecoveryAt,
		AsOf:               now,
	}

	if remaining, ok := m.state.TimeUntilRecovery(m.policy, now); ok {
		snapshot.RecoveryAt = now.Add(remaining)
	}

	return snapshot
}

func (m *PoolManager) now() time.Time {
	return m.clock.Now().UTC().Truncate(time.Millisecond)
}
