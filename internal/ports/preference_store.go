package ports

import (
	"context"

	"github.com/bnema/macaron-cli/internal/domain"
)

// PreferenceUpdate computes an edit from the namespace as currently stored.
// Returning an empty edit commits nothing.
type PreferenceUpdate func(current domain.Preferences) (domain.PreferenceEdit, error)

// PreferenceStore is a durable key/value namespace shared by every process that
// opens it. Update holds the namespace exclusively from the read to the write,
// so concurrent writers never overwrite each other's changes.
type PreferenceStore interface {
	Load(ctx context.Context) (domain.Preferences, error)
	Update(ctx context.Context, fn PreferenceUpdate) error
}
