package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version   int              `toml:"version"`
	Namespace string           `toml:"namespace"`
	Ints      map[string]int64 `toml:"ints"`
	Bools     map[string]bool  `toml:"bools"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
	if s.Ints == nil {
		s.Ints = map[string]int64{}
	}
	if s.Bools == nil {
		s.Bools = map[string]bool{}
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported preferences schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}
