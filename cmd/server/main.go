package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"ecavalidator/internal/adapters/eclipseapi"
	httpadapter "ecavalidator/internal/adapters/http"
	pg "ecavalidator/internal/adapters/postgres"
	"ecavalidator/internal/config"
	"ecavalidator/internal/ports"
	"ecavalidator/internal/services/identity"
	"ecavalidator/internal/services/validation"
	"ecavalidator/internal/workers/statusrunner"
)

type registries struct {
	accounts ports.AccountLookup
	bots     ports.BotRegistry
	projects ports.ProjectRegistry
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		newLogger(slog.LevelInfo).Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger := newLogger(cfg.SlogLevel()).With(slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var db *pg.DB
	if cfg.DatabaseURL != "" {
		db, err = pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Error("db migrate failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var regs registries
	switch cfg.Backend {
	case config.BackendPostgres:
		regs = registries{accounts: db, bots: db, projects: db}
	default:
		client := eclipseapi.New(cfg.AccountsAPIURL, cfg.BotsAPIURL, cfg.ProjectsAPIURL,
			eclipseapi.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
			eclipseapi.WithToken(cfg.APIToken),
			eclipseapi.WithCacheTTL(cfg.CacheTTL),
			eclipseapi.WithLogger(logger.With(slog.String("component", "eclipseapi"))),
		)
		regs = registries{accounts: client, bots: client, projects: client}
	}

	identities := identity.New(regs.accounts, regs.bots,
		identity.WithLogger(logger.With(slog.String("component", "identity"))))

	opts := []validation.Option{
		validation.WithLogger(logger.With(slog.String("component", "validation"))),
		validation.WithWorkers(cfg.ValidationWorkers),
	}

	// Optional background status persistence
	var (
		status  ports.StatusStore
		workers sync.WaitGroup
	)
	runCtx, stopRunner := context.WithCancel(ctx)
	defer stopRunner()
	if db != nil {
		status = db
	}
	if cfg.StatusWorkers > 0 && db != nil {
		runner := statusrunner.New(db, cfg.StatusQueue, logger.With(slog.String("component", "statusrunner")))
		opts = append(opts, validation.WithRecorder(runner))
		workers.Add(1)
		go func() {
			defer workers.Done()
			runner.Run(runCtx, cfg.StatusWorkers)
		}()
		logger.Info("status workers started", slog.Int("workers", cfg.StatusWorkers))
	}

	validator := validation.New(identities, regs.projects, opts...)

	api := httpadapter.New(validator, identities, status, logger.With(slog.String("component", "http")),
		httpadapter.WithValidationTimeout(cfg.ValidationTimeout))
	r := chi.NewRouter()
	r.Mount("/", api.Routes())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.ListenAddr), slog.String("backend", cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", slog.Any("error", err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
		_ = srv.Close()
	}

	// requests are done, flush queued verdicts before the pool closes
	stopRunner()
	workers.Wait()
	logger.Info("server stopped")
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
