// Package storefront wires configuration, the backend client, the
// coordination core and local storage into an App that commands and the TUI
// consume.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colonyops/storefront/internal/backend"
	"github.com/colonyops/storefront/internal/core/config"
	"github.com/colonyops/storefront/internal/core/logging"
	"github.com/colonyops/storefront/internal/core/mutation"
	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/core/push"
	"github.com/colonyops/storefront/internal/core/search"
	"github.com/colonyops/storefront/internal/core/session"
	"github.com/colonyops/storefront/internal/core/sinks"
	"github.com/colonyops/storefront/internal/data/db"
	"github.com/colonyops/storefront/internal/data/stores"
)

// App is the central entry point for storefront operations. Components built
// through it are closed by Close, which is the page teardown.
type App struct {
	Config  *config.Config
	Session session.Context
	Backend *backend.Client
	Queue   *notify.Queue
	DB      *db.DB // nil when notification history is disabled
	Tokens  session.TokenSupplier

	log zerolog.Logger

	mu          sync.Mutex
	controllers []*search.Controller
	consumers   []*push.Consumer
	closed      bool
}

// New builds an App from cfg. The database is opened only when notification
// history is enabled; a corrupt database file is moved aside and recreated.
func New(cfg *config.Config) (*App, error) {
	log := logging.Component("app")

	client, err := backend.New(backend.Options{
		BaseURL:        cfg.Backend.BaseURL,
		Timeout:        cfg.Backend.Timeout,
		CSRFCookie:     cfg.Backend.CSRFCookie,
		CSRFHeader:     cfg.Backend.CSRFHeader,
		SearchPath:     cfg.Backend.Paths.Search,
		CartAddPath:    cfg.Backend.Paths.CartAdd,
		NewsletterPath: cfg.Backend.Paths.Newsletter,
	})
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	queueOpts := []notify.Option{
		notify.WithMaxVisible(cfg.Notifications.MaxVisible),
		notify.WithTTL(cfg.Notifications.TTL),
		notify.WithMinDisplay(cfg.Notifications.MinDisplay),
	}

	var database *db.DB
	if cfg.Notifications.History {
		database, err = openDatabase(cfg, log)
		if err != nil {
			return nil, err
		}
		queueOpts = append(queueOpts, notify.WithStore(stores.NewNotifyStore(database)))
	}

	return &App{
		Config:  cfg,
		Session: session.New(cfg.Session.UserID),
		Backend: client,
		Queue:   notify.NewQueue(queueOpts...),
		DB:      database,
		Tokens: session.FirstOf(
			session.StaticToken(cfg.Session.CSRFToken),
			session.TokenFunc(client.CSRFToken),
		),
		log: log,
	}, nil
}

func openDatabase(cfg *config.Config, log zerolog.Logger) (*db.DB, error) {
	opts := db.OpenOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	}

	database, err := db.Open(cfg.DataDir, opts)
	if err == nil {
		return database, nil
	}
	if !stores.IsCorruptionError(err) {
		return nil, fmt.Errorf("open database: %w", err)
	}

	backup, rerr := stores.RecoverFromCorruption(cfg.DataDir)
	if rerr != nil {
		return nil, fmt.Errorf("recover corrupt database: %w", errors.Join(err, rerr))
	}
	log.Warn().Err(err).Str("backup", backup).Msg("notification history was corrupt; starting fresh")

	database, err = db.Open(cfg.DataDir, opts)
	if err != nil {
		return nil, fmt.Errorf("open database after recovery: %w", err)
	}
	return database, nil
}

// Prime fetches the backend root so the anti-forgery cookie is in the jar
// before the first mutation. Failure is logged; mutations still go out and
// the server decides.
func (a *App) Prime(ctx context.Context) {
	if a.Config.Session.CSRFToken != "" {
		return
	}
	if err := a.Backend.Prime(ctx); err != nil {
		a.log.Warn().Err(err).Msg("could not fetch csrf cookie")
	}
}

// NewSearch builds a debounced search controller rendering into renderer.
func (a *App) NewSearch(renderer search.Renderer, opts ...search.Option) *search.Controller {
	opts = append([]search.Option{
		search.WithQuietPeriod(a.Config.Search.QuietPeriod),
		search.WithMinLength(a.Config.Search.MinLength),
	}, opts...)

	ctrl := search.NewController(a.Backend, renderer, opts...)

	a.mu.Lock()
	a.controllers = append(a.controllers, ctrl)
	a.mu.Unlock()
	return ctrl
}

// NewDispatcher builds a mutation dispatcher reporting into reg and the
// app's notification queue.
func (a *App) NewDispatcher(reg sinks.Registry, opts ...mutation.Option) *mutation.Dispatcher {
	opts = append([]mutation.Option{mutation.WithPulseDuration(a.Config.TUI.PulseDuration)}, opts...)
	return mutation.NewDispatcher(a.Backend, a.Tokens, a.Queue, reg, opts...)
}

// NewConsumer builds the push consumer for the session's user. Messages are
// forwarded to the app's notification queue. The consumer is not started.
func (a *App) NewConsumer(opts ...push.Option) (*push.Consumer, error) {
	endpoint := ""
	if !a.Session.Anonymous() {
		var err error
		endpoint, err = push.Endpoint(a.Config.Backend.BaseURL, a.Config.Push.Path, a.Session.UserID)
		if err != nil {
			return nil, fmt.Errorf("push endpoint: %w", err)
		}
	}

	rc := a.Config.Push.Reconnect
	opts = append([]push.Option{
		push.WithHandshakeTimeout(a.Config.Push.HandshakeTimeout),
		push.WithJar(a.Backend.Jar()),
		push.WithReconnect(push.ReconnectPolicy{
			Enabled:       rc.Enabled,
			BaseDelay:     rc.BaseDelay,
			MaxDelay:      rc.MaxDelay,
			JitterPercent: uint64(max(rc.JitterPercent, 0)),
			MaxAttempts:   rc.MaxAttempts,
			StableAfter:   rc.StableAfter,
		}),
	}, opts...)

	consumer := push.NewConsumer(a.Session, endpoint, push.QueueSink(a.Queue), opts...)

	a.mu.Lock()
	a.consumers = append(a.consumers, consumer)
	a.mu.Unlock()
	return consumer, nil
}

// Close tears everything down: push consumers, search controllers (timer and
// in-flight request), queue timers and finally the database. Safe to call
// more than once.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	consumers := a.consumers
	controllers := a.controllers
	a.mu.Unlock()

	var errs []error
	for _, c := range consumers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close push consumer: %w", err))
		}
	}
	for _, c := range controllers {
		c.Close()
	}
	a.Queue.Close()

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
