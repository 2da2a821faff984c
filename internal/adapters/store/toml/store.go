package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/macaron-cli/internal/domain"
	"github.com/bnema/macaron-cli/internal/ports"
	"github.com/gofrs/flock"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	storePathKey      = "store.path"
	storeNamespaceKey = "store.namespace"
	defaultNamespace  = "macaron_prefs"
	storeFileMode     = 0o600
	storeDirMode      = 0o700
	storeConfigDir    = ".macaron"
	tempFilePattern   = ".prefs-*.toml.tmp"
	lockFileSuffix    = ".lock"
	lockRetryDelay    = 10 * time.Millisecond
)

// Store keeps one preference namespace in a TOML file. Commits rewrite the whole
// file through a temp file and rename, so a crash never leaves a half-applied edit.
type Store struct {
	path      string
	namespace string
	mu        *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.PreferenceStore = (*Store)(nil)

func NewStore(cfg *viper.Viper) (*Store, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	namespace := strings.TrimSpace(cfg.GetString(storeNamespaceKey))
	if namespace == "" {
		namespace = defaultNamespace
	}

	path := cfg.GetString(storePathKey)
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, storeConfigDir, namespace+".toml")
	}

	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &Store{path: path, namespace: namespace, mu: lockForPath(path)}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load(ctx context.Context) (domain.Preferences, error) {
	if err := ctx.Err(); err != nil {
		return domain.Preferences{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	unlock, err := s.lockFile(ctx, false)
	if err != nil {
		return domain.Preferences{}, err
	}
	defer unlock()

	file, err := s.readSchema()
	if err != nil {
		return domain.Preferences{}, err
	}

	return domain.PreferenceEdit{}.Apply(domain.Preferences{Ints: file.Ints, Bools: file.Bools}), nil
}

// Update reads the namespace, passes it to fn and writes back the edit fn returns.
// An exclusive lock on the sidecar lock file is held from the read to the rename,
// so other processes sharing the file wait instead of overwriting the change.
func (s *Store) Update(ctx context.Context, fn ports.PreferenceUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	current := domain.Preferences{Ints: file.Ints, Bools: file.Bools}
	edit, err := fn(domain.PreferenceEdit{}.Apply(current))
	if err != nil {
		return err
	}
	if edit.Empty() {
		return nil
	}

	next := edit.Apply(current)
	file.Ints = next.Ints
	file.Bools = next.Bools

	return s.writeSchema(file)
}

func (s *Store) Commit(ctx context.Context, edit domain.PreferenceEdit) error {
	return s.Update(ctx, func(domain.Preferences) (domain.PreferenceEdit, error) {
		return edit, nil
	})
}

// lockFile takes the cross-process lock guarding the preferences file.
func (s *Store) lockFile(ctx context.Context, exclusive bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), storeDirMode); err != nil {
		return nil, fmt.Errorf("create preferences directory: %w", err)
	}

	fileLock := flock.New(s.path + lockFileSuffix)
	lock := fileLock.TryRLockContext
	if exclusive {
		lock = fileLock.TryLockContext
	}

	locked, err := lock(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock preferences file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock preferences file: %s is held by another process", s.path)
	}

	return func() { _ = fileLock.Unlock() }, nil
}

func (s *Store) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file := fileSchema{Namespace: s.namespace}
			file.applyDefaults()
			return file, nil
		}
		return fileSchema{}, fmt.Errorf("read preferences file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode preferences file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	if file.Namespace != "" && file.Namespace != s.namespace {
		return fileSchema{}, fmt.Errorf("preferences file %s belongs to namespace %q, not %q", s.path, file.Namespace, s.namespace)
	}
	file.Namespace = s.namespace
	file.applyDefaults()

	return file, nil
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.path), storeDirMode); err != nil {
		return fmt.Errorf("create preferences directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode preferences file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp preferences file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp preferences file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp preferences file: %w", err)
	}

	if err := tempFile.Chmod(storeFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp preferences file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp preferences file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace preferences file: %w", err)
	}

	cleanup = false

	return nil
}

func normalizePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve preferences path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
