package memory

import (
	"time"

	"github.com/bnema/macaron-cli/internal/ports"
	"github.com/patrickmn/go-cache"
)

const DefaultTTL = 24 * time.Hour

// Ledger keeps charge outcomes in process memory until they expire.
type Ledger struct {
	charges *cache.Cache
	ttl     time.Duration
}

var _ ports.ChargeLedger = (*Ledger)(nil)

func NewLedger(ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Ledger{
		charges: cache.New(ttl, 2*ttl),
		ttl:     ttl,
	}
}

func (l *Ledger) Lookup(key string) (bool, bool) {
	value, found := l.charges.Get(key)
	if !found {
		return false, false
	}

	charged, ok := value.(bool)
	return charged, ok
}

func (l *Ledger) Record(key string, charged bool) {
	l.charges.Set(key, charged, l.ttl)
}

func (l *Ledger) Len() int {
	return l.charges.ItemCount()
}
