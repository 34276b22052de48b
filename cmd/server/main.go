package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"mise/internal/config"
	"mise/internal/db"
	"mise/internal/db/mock"
	"mise/internal/importer"
	applog "mise/internal/log"
	"mise/internal/server"
)

// serverLifecycle is the part of server.Server the entrypoint drives.
type serverLifecycle interface {
	Start() error
	Stop() error
}

// Indirection points for the lifecycle tests.
var (
	loadConfigFunc      = config.Load
	setLogLevelFunc     = applog.SetLevel
	setLogFormatFunc    = applog.SetFormat
	newMockDatabaseFunc = mock.New
	configureDatabase   = db.Configure

	newServerFunc = func(cfg server.Config) (serverLifecycle, error) {
		return server.New(cfg)
	}

	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		return sigCh, func() { signal.Stop(sigCh) }
	}
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "invalid configuration", "error", err)
		return 1
	}

	if err := setLogLevelFunc(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "error", err)
		return 1
	}
	if err := setLogFormatFunc(cfg.Logging.Format); err != nil {
		applog.Error(ctx, "invalid log format", "error", err)
		return 1
	}

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		applog.Error(ctx, "database setup failed", "error", err)
		return 1
	}

	var extractor *importer.Client
	if cfg.AI.APIKey != "" {
		extractor, err = importer.NewClient(importer.Config{
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			BaseURL: cfg.AI.BaseURL,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			applog.Error(ctx, "extraction client setup failed", "error", err)
			return 1
		}
	} else {
		applog.Warn(ctx, "OPENAI_API_KEY is not set, photo and pdf imports are disabled")
	}

	srv, err := newServerFunc(server.Config{
		Addr: cfg.Server.Addr,
		Session: server.SessionConfig{
			Lifetime:     cfg.Auth.Session.Lifetime,
			CookieName:   cfg.Auth.Session.CookieName,
			CookieDomain: cfg.Auth.Session.CookieDomain,
			CookieSecure: cfg.Auth.Session.CookieSecure,
		},
		Database: database,
		Importer: extractor,
	})
	if err != nil {
		applog.Error(ctx, "server setup failed", "error", err)
		return 1
	}

	errCh := make(chan error, 1)
	go func() {
		applog.Info(ctx, "starting http server", "addr", cfg.Server.Addr)
		errCh <- srv.Start()
	}()

	sigCh, unsubscribe := subscribeShutdownSig()
	defer unsubscribe()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "server encountered an error", "error", err)
			return 1
		}
		return 0
	case <-sigCh:
		applog.Info(ctx, "shutting down http server")
	}

	if err := srv.Stop(); err != nil {
		applog.Error(ctx, "graceful shutdown failed", "error", err)
		return 1
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		applog.Error(ctx, "server encountered an error", "error", err)
		return 1
	}

	return 0
}

func openDatabase(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	if cfg.Database.UseMock {
		applog.Warn(ctx, "using in-memory mock database, data will not persist")
		return newMockDatabaseFunc(ctx)
	}
	return configureDatabase(cfg.Database)
}
