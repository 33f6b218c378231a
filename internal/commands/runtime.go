package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/formbuilder/internal/activity"
	"github.com/matthewbaird/formbuilder/internal/config"
	"github.com/matthewbaird/formbuilder/internal/event"
	"github.com/matthewbaird/formbuilder/internal/seed"
	"github.com/matthewbaird/formbuilder/internal/store/memstore"
	"github.com/matthewbaird/formbuilder/internal/store/sqlstore"
	"github.com/matthewbaird/formbuilder/internal/tree"
)

// runtime is the wiring shared by every command that serves forms.
type runtime struct {
	cfg      config.Config
	logger   *slog.Logger
	repo     tree.Repository
	activity activity.Store
	recorder *event.ActivityRecorder
	svc      *tree.Service
	close    func() error
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

// newRuntime opens the configured store, builds the service and seeds it.
// Logs go to logOut.
func newRuntime(ctx context.Context, cmd *cobra.Command, logOut io.Writer) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(logOut)

	rt := &runtime{cfg: cfg, logger: logger, close: func() error { return nil }}
	switch cfg.Store {
	case config.StoreMemory:
		rt.repo = memstore.New()
		rt.activity = activity.NewMemoryStore()
	default:
		st, err := sqlstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("database migrated", "dsn", cfg.DatabaseURL)
		rt.repo = st
		rt.activity = st.Activity()
		rt.close = st.Close
	}

	rt.recorder = event.NewActivityRecorder(rt.activity)
	rt.svc = tree.NewService(rt.repo, tree.WithRecorder(rt.recorder), tree.WithLogger(logger))

	if cfg.Seed {
		if err := rt.seed(ctx); err != nil {
			_ = rt.close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *runtime) seed(ctx context.Context) error {
	var (
		doc seed.Document
		err error
	)
	if rt.cfg.SeedFile != "" {
		doc, err = seed.Load(rt.cfg.SeedFile)
	} else {
		doc, err = seed.Default()
	}
	if err != nil {
		return fmt.Errorf("loading seed: %w", err)
	}
	return seed.IfEmpty(ctx, rt.svc, doc, rt.logger)
}
