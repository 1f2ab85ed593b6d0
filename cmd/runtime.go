package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/example/forkbridge/internal/attempts"
	"github.com/example/forkbridge/internal/browser"
	"github.com/example/forkbridge/internal/config"
	"github.com/example/forkbridge/internal/db"
	"github.com/example/forkbridge/internal/logging"
	"github.com/example/forkbridge/internal/migrate"
	"github.com/example/forkbridge/internal/thefork"
	"github.com/example/forkbridge/internal/tracing"
)

const serviceName = "forkbridge"

// app is everything a command needs, built from the environment.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	session *browser.Session
	catalog *thefork.Catalog
	service *thefork.Service

	// db and journal are nil without DATABASE_URL.
	db      *db.DB
	journal *attempts.Repo

	logFile io.Closer
	tracer  *tracing.Provider
}

type appOptions struct {
	// database connects and optionally migrates when DATABASE_URL is set.
	database bool
	migrate  bool
	// browser builds the widget service on top of a lazily launched browser.
	browser  bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	logger, logFile, err := logging.New(os.Stderr, logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logger, logFile: logFile}

	var traceOut io.Writer
	if cfg.TraceStdout {
		traceOut = os.Stdout
	}
	if a.tracer, err = tracing.Setup(traceOut, serviceName, Version); err != nil {
		a.Close()
		return nil, err
	}

	if opts.database && cfg.DatabaseURL != "" {
		if err := a.openDB(ctx, opts.migrate); err != nil {
			a.Close()
			return nil, err
		}
	}

	if opts.browser {
		if a.catalog, err = thefork.OpenCatalog(cfg.SelectorsFile); err != nil {
			a.Close()
			return nil, err
		}
		a.session = browser.NewSession(browser.PlaywrightLauncher{}, browser.LaunchOptions{
			Headless:       cfg.Headless,
			Args:           browser.SandboxArgs,
			DefaultTimeout: cfg.ElementTimeout,
		}, cfg.MaxPages, logger)

		fopts := thefork.Options{
			WidgetURL:       cfg.WidgetURL,
			ConfirmationTag: cfg.ConfirmationTag,
			Timings: thefork.Timings{
				Settle:         cfg.Settle,
				Step:           cfg.StepSettle,
				Submit:         cfg.SubmitSettle,
				ElementTimeout: cfg.ElementTimeout,
				KeyDelay:       cfg.KeyDelay,
			},
		}
		if a.journal != nil {
			fopts.Recorder = a.journal
		}
		a.service = thefork.NewService(a.session, a.catalog, fopts, logger)
	}
	return a, nil
}

func (a *app) openDB(ctx context.Context, migrateUp bool) error {
	d, err := db.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return fmt.Errorf("db ping: %w", err)
	}
	if migrateUp {
		if err := migrate.Up(ctx, d); err != nil {
			d.Close()
			return err
		}
	}
	a.db = d
	a.journal = attempts.NewRepo(d)
	return nil
}

// requireJournal is for commands that make no sense without the database.
func (a *app) requireJournal() error {
	if a.journal == nil {
		return errors.New("DATABASE_URL is not set")
	}
	return nil
}

func (a *app) Close() {
	if a.session != nil {
		if err := a.session.Shutdown(); err != nil {
			a.log.Warn("browser shutdown", "err", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.tracer.Shutdown(ctx)
		cancel()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
