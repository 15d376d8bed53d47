// Package wiring is the composition root: it turns a ServerConfig into a
// running engine with its store, broadcast fan-out and collaborators.
package wiring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/config"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/messaging"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/venue"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/watch"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/application"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/plugin"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/storage"
)

// App bundles the engine with the infrastructure it was built from.
type App struct {
	Config     *config.ServerConfig
	Logger     *slog.Logger
	Store      outing.Store
	Dispatcher *events.EventDispatcher
	Engine     *application.Engine
	Notifier   *messaging.Registry
	Venues     outing.VenueLookup
	Catalog    *venue.Catalog
	EventLog   *storage.FileEventStore

	watcher *watch.FileWatcher
	closers []func() error
	once    sync.Once
}

// BuildApp wires every component named in cfg. The caller must Close the app.
func BuildApp(cfg *config.ServerConfig, logger *slog.Logger) (_ *App, err error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = config.NewLogger(cfg.Log)
	}

	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if err := app.openStore(); err != nil {
		return nil, err
	}

	app.Dispatcher = events.NewEventDispatcher(logger)
	if cfg.EventLog != "" {
		app.EventLog = storage.NewFileEventStore(cfg.EventLog)
		app.Dispatcher.RegisterWildcard("event-log", events.StoreHandler(app.EventLog))
	}

	app.Notifier, err = messaging.NewRegistry(&cfg.Messaging, messaging.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("build notifier: %w", err)
	}

	if err := app.buildVenues(); err != nil {
		return nil, err
	}

	opts := []application.Option{
		application.WithLogger(logger),
		application.WithNotifier(app.Notifier),
		application.WithPresenceTimeout(cfg.Presence.Timeout),
	}
	if app.Venues != nil {
		opts = append(opts, application.WithVenueLookup(app.Venues))
	}
	app.Engine = application.NewEngine(app.Store, app.Dispatcher, opts...)
	return app, nil
}

func (a *App) openStore() error {
	switch a.Config.Storage.Driver {
	case "", "memory":
		a.Store = storage.NewMemoryStore()
	case "sqlite":
		db, err := storage.OpenSQLite(a.Config.Storage.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		a.Store = db
		a.closers = append(a.closers, db.Close)
	default:
		return fmt.Errorf("unknown storage driver %q", a.Config.Storage.Driver)
	}
	a.Logger.Debug("store opened", "driver", a.Config.Storage.Driver, "path", a.Config.Storage.Path)
	return nil
}

// buildVenues picks the plugin when configured, otherwise the catalog.
func (a *App) buildVenues() error {
	vc := a.Config.Venues
	switch {
	case vc.Plugin != "":
		loader := plugin.NewLoader()
		a.closers = append(a.closers, func() error {
			loader.Cleanup()
			return nil
		})
		provider, err := loader.Load(vc.Plugin)
		if err != nil {
			return fmt.Errorf("load venue plugin: %w", err)
		}
		if err := provider.Init(map[string]string{"catalog": vc.Catalog}); err != nil {
			return fmt.Errorf("init venue plugin: %w", err)
		}
		a.Venues = venue.NewResilientLookup(plugin.NewLookup(provider), vc.Timeout)
		a.Logger.Info("venue plugin loaded", "path", vc.Plugin)

	case vc.Catalog != "":
		catalog, err := venue.LoadCatalog(vc.Catalog)
		if err != nil {
			return err
		}
		a.Catalog = catalog
		a.Venues = catalog
		a.Logger.Info("venue catalog loaded", "path", vc.Catalog, "venues", catalog.Len())

		if vc.Watch {
			w, err := watch.NewFileWatcher(0, a.reloadCatalog)
			if err != nil {
				return err
			}
			if err := w.Add(vc.Catalog); err != nil {
				return err
			}
			a.watcher = w
		}
	}
	return nil
}

func (a *App) reloadCatalog(ev watch.ChangeEvent) {
	if ev.ChangeType == "remove" {
		a.Logger.Warn("venue catalog removed, keeping loaded venues", "path", ev.Path)
		return
	}
	if err := a.Catalog.Reload(); err != nil {
		a.Logger.Warn("venue catalog reload failed", "path", ev.Path, "error", err)
		return
	}
	a.Logger.Info("venue catalog reloaded", "path", ev.Path, "venues", a.Catalog.Len())
}

// Run drives the background work: the presence sweep and, when enabled, the
// catalog watcher. It blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Engine.RunPresenceSweep(ctx, a.Config.Presence.SweepInterval)
	}()
	if a.watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Warn("catalog watcher stopped", "error", err)
			}
		}()
	}
	wg.Wait()
}

// Close releases the store and any plugin processes.
func (a *App) Close() error {
	var errs []error
	a.once.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
