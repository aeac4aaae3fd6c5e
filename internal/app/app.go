package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saku/internal/amqp"
	"saku/internal/auth"
	"saku/internal/config"
	"saku/internal/ledger"
	applog "saku/internal/log"
	"saku/internal/reminders"
	"saku/internal/session"
	"saku/internal/storage"
)

// Options overrides pieces of the wiring, mostly for tests.
type Options struct {
	Logger *applog.Logger
	// Slot replaces the session file at cfg.Session.Path.
	Slot session.Slot
	// Notifier receives local reminder notifications. Defaults to the log.
	Notifier reminders.Notifier
	// Now stamps created_at columns and drives the local scheduler.
	Now func() time.Time
}

// App is the set of services behind every front end. It is opened once per
// process and must be closed.
type App struct {
	Config    config.Config
	Logger    *applog.Logger
	Store     *storage.DB
	Auth      *auth.Service
	Session   *session.Manager
	Ledger    *ledger.Service
	Reminders *reminders.Service

	local  *reminders.LocalScheduler
	broker *amqp.Client
}

// New opens the store, waits for it to be ready and builds the services.
// The previous session is not restored; call Session.Restore for that.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	db, err := storage.Open(ctx, cfg.Database.Path, storage.Options{
		QueryTimeout: cfg.Database.QueryTimeout,
		Logger:       logger,
		Now:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, Store: db}

	if err := db.Initialize(ctx); err != nil {
		a.Close()
		return nil, err
	}

	hasher, err := auth.NewHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Auth, err = auth.NewService(db, hasher, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	slot := opts.Slot
	if slot == nil {
		slot = session.NewFileSlot(cfg.Session.Path)
	}
	a.Session = session.NewManager(db, slot, logger)
	a.Ledger = ledger.NewService(db, cfg.Ledger.RecentLimit, logger)
	a.Reminders = reminders.NewService(db, a.scheduler(opts.Notifier, now), logger)

	logger.Info("application ready",
		applog.FieldOperation, applog.OpInitialize,
		applog.FieldPath, cfg.Database.Path,
		"reminders", cfg.Reminders.Backend)
	return a, nil
}

// scheduler builds the configured reminder backend. An unreachable broker
// leaves reminders unscheduled rather than failing start-up.
func (a *App) scheduler(notify reminders.Notifier, now func() time.Time) reminders.Scheduler {
	cfg := a.Config
	if cfg.Reminders.Backend == config.BackendAMQP {
		client, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
		if err != nil {
			a.Logger.WithComponent(applog.ComponentAMQP).Warn("broker unavailable, reminders will not be scheduled",
				applog.FieldError, err)
			return nil
		}
		a.broker = client
		a.Logger.WithComponent(applog.ComponentAMQP).Info("broker connected",
			"exchange", client.Exchange(),
			"routing_key", client.RoutingKey())
		return amqp.NewScheduler(client, cfg.Reminders.LeadTime, a.Logger)
	}

	if notify == nil {
		notify = reminders.LogNotifier(a.Logger.WithComponent(applog.ComponentReminders))
	}
	a.local = reminders.NewLocalScheduler(cfg.Reminders.LeadTime, notify, reminders.WithClock(now))
	return a.local
}

// LocalScheduler returns the in-process scheduler, or nil when reminders
// go to the broker.
func (a *App) LocalScheduler() *reminders.LocalScheduler {
	return a.local
}

// Close stops pending timers and releases the broker and database.
func (a *App) Close() error {
	var errs []error
	if a.local != nil {
		a.local.Stop()
	}
	if a.broker != nil {
		errs = append(errs, a.broker.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
