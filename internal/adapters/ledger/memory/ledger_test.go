package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedgerRecordsOutcome(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(time.Hour)

	_, found := ledger.Lookup("question-1")
	assert.False(t, found)

	ledger.Record("question-1", true)
	ledger.Record("question-2", false)

	charged, found := ledger.Lookup("question-1")
	assert.True(t, found)
	assert.True(t, charged)

	charged, found = ledger.Lookup("question-2")
	assert.True(t, found)
	assert.False(t, charged)
	assert.Equal(t, 2, ledger.Len())
}

func TestLedgerEntriesExpire(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(20 * time.Millisecond)
	ledger.Record("question-1", true)

	assert.Eventually(t, func() bool {
		_, found := ledger.Lookup("question-1")
		return !found
	}, time.Second, 10*time.Millisecond)
}

func TestLedgerDefaultsTTL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultTTL, NewLedger(0).ttl)
}
