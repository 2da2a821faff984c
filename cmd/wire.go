package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/bnema/macaron-cli/internal/adapters/ledger/memory"
	poolrender "github.com/bnema/macaron-cli/internal/adapters/render/pool"
	sqlitestore "github.com/bnema/macaron-cli/internal/adapters/store/sqlite"
	tomlstore "github.com/bnema/macaron-cli/internal/adapters/store/toml"
	"github.com/bnema/macaron-cli/internal/application"
	"github.com/bnema/macaron-cli/internal/config"
	"github.com/bnema/macaron-cli/internal/ports"
	"github.com/spf13/viper"
)

const logPrefix = "macaron "

type app struct {
	cfg      config.Config
	viper    *viper.Viper
	clock    ports.Clock
	renderer func(application.PoolSnapshot, poolrender.RenderOptions) (string, error)
	now      func() time.Time

	verbose bool
	manager *application.PoolManager
	closers []func() error
}

func wireApp() (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return &app{
		cfg:      cfg,
		viper:    v,
		clock:    ports.SystemClock{},
		renderer: poolrender.Render,
		now:      time.Now,
		verbose:  cfg.Log.Verbose,
	}, nil
}

// poolManager opens the configured store on first use and loads the pool.
func (a *app) poolManager(ctx context.Context, logOutput io.Writer) (*application.PoolManager, error) {
	if a.manager != nil {
		return a.manager, nil
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	manager, err := application.NewPoolManager(ctx, store, a.clock,
		application.WithPolicy(a.cfg.Policy),
		application.WithLogger(a.logger(logOutput)),
		application.WithChargeLedger(memory.NewLedger(a.cfg.Ledger.TTL)),
	)
	if err != nil {
		return nil, fmt.Errorf("open macaron pool: %w", err)
	}

	a.manager = manager
	return manager, nil
}

func (a *app) openStore() (ports.PreferenceStore, error) {
	switch a.cfg.Store.Backend {
	case config.BackendSQLite:
		store, err := sqlitestore.NewStore(a.viper)
		if err != nil {
			return nil, fmt.Errorf("wire sqlite store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		store, err := tomlstore.NewStore(a.viper)
		if err != nil {
			return nil, fmt.Errorf("wire toml store: %w", err)
		}
		return store, nil
	}
}

func (a *app) logger(output io.Writer) *log.Logger {
	if !a.verbose || output == nil {
		return log.New(io.Discard, "", 0)
	}

	return log.New(output, logPrefix, log.LstdFlags)
}

func (a *app) close() error {
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil

	return firstErr
}
