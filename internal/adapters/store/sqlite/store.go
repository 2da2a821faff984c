package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/macaron-cli/internal/domain"
	"github.com/bnema/macaron-cli/internal/ports"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	storePathKey      = "store.sqlite_path"
	storeNamespaceKey = "store.namespace"
	defaultNamespace  = "macaron_prefs"
	storeDirMode      = 0o700
	storeConfigDir    = ".macaron"
	defaultFileName   = "macaron.db"

	kindInt  = "int"
	kindBool = "bool"
)

// preference is one key of a namespace. Ints and booleans share the table,
// discriminated by Kind.
type preference struct {
	Namespace string `gorm:"primaryKey;type:TEXT NOT NULL"`
	Name      string `gorm:"primaryKey;type:TEXT NOT NULL"`
	Kind      string `gorm:"type:TEXT NOT NULL"`
	IntValue  int64  `gorm:"not null"`
	BoolValue bool   `gorm:"not null"`
	UpdatedAt time.Time
}

func (preference) TableName() string { return "preferences" }

// Store keeps a preference namespace in SQLite. Every commit runs in one transaction.
type Store struct {
	db        *gorm.DB
	namespace string
}

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
		path = filepath.Join(homeDir, storeConfigDir, defaultFileName)
	}

	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return Open(db, namespace)
}

// Open wraps an existing connection and migrates the preferences table.
func Open(db *gorm.DB, namespace string) (*Store, error) {
	if db == nil {
		return nil, errors.New("database handle is nil")
	}
	if err := db.AutoMigrate(&preference{}); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	return &Store{db: db, namespace: namespace}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	return sqlDB.Close()
}

func (s *Store) Load(ctx context.Context) (domain.Preferences, error) {
	return loadPreferences(s.db.WithContext(ctx), s.namespace)
}

// Update reads the namespace and writes fn's edit in one transaction. Connections
// begin transactions with BEGIN IMMEDIATE, so the write lock is taken before the
// read and concurrent writers queue on the busy timeout.
func (s *Store) Update(ctx context.Context, fn ports.PreferenceUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadPreferences(tx, s.namespace)
		if err != nil {
			return err
		}

		edit, err := fn(current)
		if err != nil {
			return err
		}

		return applyEdit(tx, s.namespace, edit)
	})
}

func (s *Store) Commit(ctx context.Context, edit domain.PreferenceEdit) error {
	if edit.Empty() {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyEdit(tx, s.namespace, edit)
	})
}

func loadPreferences(db *gorm.DB, namespace string) (domain.Preferences, error) {
	var rows []preference
	if err := db.Where("namespace = ?", namespace).Find(&rows).Error; err != nil {
		return domain.Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}

	prefs := domain.Preferences{
		Ints:  make(map[string]int64, len(rows)),
		Bools: map[string]bool{},
	}
	for _, row := range rows {
		switch row.Kind {
		case kindInt:
			prefs.Ints[row.Name] = row.IntValue
		case kindBool:
			prefs.Bools[row.Name] = row.BoolValue
		default:
			return domain.Preferences{}, fmt.Errorf("preference %q has unknown kind %q", row.Name, row.Kind)
		}
	}

	return prefs, nil
}

func applyEdit(tx *gorm.DB, namespace string, edit domain.PreferenceEdit) error {
	if edit.Empty() {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]preference, 0, len(edit.Ints)+len(edit.Bools))
	for key, value := range edit.Ints {
		rows = append(rows, preference{Namespace: namespace, Name: key, Kind: kindInt, IntValue: value, UpdatedAt: now})
	}
	for key, value := range edit.Bools {
		rows = append(rows, preference{Namespace: namespace, Name: key, Kind: kindBool, BoolValue: value, UpdatedAt: now})
	}

	if len(edit.Remove) > 0 {
		if err := tx.Where("namespace = ? AND name IN ?", namespace, edit.Remove).Delete(&preference{}).Error; err != nil {
			return fmt.Errorf("failed to delete preferences: %w", err)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "int_value", "bool_value", "updated_at"}),
	}
	if err := tx.Clauses(upsert).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}

	return nil
}
