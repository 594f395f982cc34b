// Package app wires configuration, logging, the credentials store, the
// HTTP transport and the session of the story client together.
package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/patric-chuzhbe/hackorsnooze/internal/config"
	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore"
	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore/jsonstore"
	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore/memorystore"
	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore/sqlstore"
	"github.com/patric-chuzhbe/hackorsnooze/internal/logger"
	"github.com/patric-chuzhbe/hackorsnooze/internal/metrics"
	"github.com/patric-chuzhbe/hackorsnooze/internal/session"
	"github.com/patric-chuzhbe/hackorsnooze/internal/story"
	"github.com/patric-chuzhbe/hackorsnooze/internal/transport"
)

type credentialsStore interface {
	Load() (credstore.Credentials, bool, error)
	Save(creds credstore.Credentials) error
	Clear() error
	Close() error
}

// App owns every long-lived component of one client run.
type App struct {
	cfg     *config.Config
	store   credentialsStore
	metrics *metrics.Collector
	client  *transport.Client
	session *session.Session
}

// New initializes a new instance of App by:
// - initializing logger
// - selecting and opening the credentials store
// - building the HTTP transport with its metrics
// - creating the session on top of both
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	var err error
	app := &App{cfg: cfg}

	if err := logger.Init(cfg.LogLevel); err != nil {
		return nil, err
	}

	app.store, err = getStorageByType(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app.metrics = metrics.New()
	app.client = transport.New(
		cfg.APIBaseURL,
		transport.WithTimeout(cfg.RequestTimeout),
		transport.WithRateLimit(cfg.RequestsPerSecond),
		transport.WithMetrics(app.metrics),
	)
	app.session = session.New(app.store, app.client)

	return app, nil
}

// Start restores the stored session and fetches the story feed
// concurrently. The feed is required; a failed restore only means nobody
// is signed in.
func (a *App) Start(ctx context.Context) (*story.List, error) {
	var list *story.List
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		a.session.Bootstrap(groupCtx)
		return nil
	})
	group.Go(func() error {
		var err error
		list, err = story.FetchAll(groupCtx, a.client)
		return err
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return list, nil
}

func (a *App) Session() *session.Session { return a.session }

func (a *App) Client() *transport.Client { return a.client }

func (a *App) Config() *config.Config { return a.cfg }

// Close writes the metrics textfile if one is configured, closes the
// credentials store and flushes the logger.
func (a *App) Close() error {
	var errs []error

	if a.cfg.MetricsTextfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing credentials store: %w", err))
	}
	if err := logger.Sync(); err != nil {
		logger.Log.Debugln("Logger sync error:", err)
	}

	return errors.Join(errs...)
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return credstore.StorageTypeSQL
	}

	if cfg.CredentialsFileName != "" {
		return credstore.StorageTypeFile
	}

	return credstore.StorageTypeMemory
}

func getStorageByType(ctx context.Context, cfg *config.Config) (credentialsStore, error) {
	switch getAvailableStorageType(cfg) {
	case credstore.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case credstore.StorageTypeSQL:
		return sqlstore.New(
			ctx,
			cfg.DatabaseDriver,
			cfg.DatabaseDSN,
			cfg.Profile,
			cfg.DBConnectionTimeout,
		)

	case credstore.StorageTypeFile:
		return jsonstore.New(cfg.CredentialsFileName), nil
	}

	return memorystore.New(), nil
}
