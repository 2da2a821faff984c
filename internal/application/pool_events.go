package application

import (
	"sync"
	"time"

	"github.com/bnema/macaron-cli/internal/domain"
)

// PoolSnapshot is the read model handed to presentation adapters.
type PoolSnapshot struct {
	Count              int          `json:"count"`
	Capacity           int          `json:"capacity"`
	Phase              domain.Phase `json:"phase"`
	CanPlay            bool         `json:"can_play"`
	Message            string       `json:"message"`
	DepletedAt         time.Time    `json:"depleted_at,omitzero"`
	LastFullRecoveryAt time.Time    `json:"last_full_recovery_at,omitzero"`
	RecoveryAt         time.Time    `json:"recovery_at,omitzero"`
	AsOf               time.Time    `json:"as_of"`
}

// RecoveryIn returns the wait left at now, or false when no recovery is scheduled.
func (s PoolSnapshot) RecoveryIn(now time.Time) (time.Duration, bool) {
	if s.RecoveryAt.IsZero() {
		return 0, false
	}

	remaining := s.RecoveryAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, true
}

// snapshotBroadcaster fans snapshots out to subscribers. Each subscriber keeps at
// most one pending snapshot; a slow reader only ever sees the latest one.
type snapshotBroadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan PoolSnapshot
}

func newSnapshotBroadcaster() *snapshotBroadcaster {
	return &snapshotBroadcaster{subs: map[int]chan PoolSnapshot{}}
}

func (b *snapshotBroadcaster) subscribe() (<-chan PoolSnapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan PoolSnapshot, 1)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			delete(b.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

func (b *snapshotBroadcaster) publish(snapshot PoolSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- snapshot:
			continue
		default:
		}

		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (b *snapshotBroadcaster) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}
