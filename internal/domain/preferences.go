package domain

// Preferences is a snapshot of a key/value namespace.
type Preferences struct {
	Ints  map[string]int64
	Bools map[string]bool
}

func (p Preferences) Int(key string) (int64, bool) {
	v, ok := p.Ints[key]
	return v, ok
}

func (p Preferences) Bool(key string) (bool, bool) {
	v, ok := p.Bools[key]
	return v, ok
}

// PreferenceEdit is a batch of writes that a store must apply all-or-nothing.
type PreferenceEdit struct {
	Ints   map[string]int64
	Bools  map[string]bool
	Remove []string
}

func (e PreferenceEdit) Empty() bool {
	return len(e.Ints) == 0 && len(e.Bools) == 0 && len(e.Remove) == 0
}

// Apply returns a copy of p with the edit applied. Stores use it to compute the
// committed namespace before writing it out.
func (e PreferenceEdit) Apply(p Preferences) Preferences {
	out := Preferences{
		Ints:  make(map[string]int64, len(p.Ints)+len(e.Ints)),
		Bools: make(map[string]bool, len(p.Bools)+len(e.Bools)),
	}
	for k, v := range p.Ints {
		out.Ints[k] = v
	}
	for k, v := range p.Bools {
		out.Bools[k] = v
	}
	for _, k := range e.Remove {
		delete(out.Ints, k)
		delete(out.Bools, k)
	}
	for k, v := range e.Ints {
		delete(out.Bools, k)
		out.Ints[k] = v
	}
	for k, v := range e.Bools {
		delete(out.Ints, k)
		out.Bools[k] = v
	}

	return out
}
