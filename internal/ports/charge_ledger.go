package ports

// ChargeLedger remembers the outcome of keyed charges so a repeated key is
// replayed instead of charged again.
type ChargeLedger interface {
	Lookup(key string) (charged bool, found bool)
	Record(key string, charged bool)
}
