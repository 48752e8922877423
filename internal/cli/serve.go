package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/silver-price-form/internal/application/service"
	"github.com/damon-houk/silver-price-form/internal/config"
	"github.com/damon-houk/silver-price-form/internal/domain/repository"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/api"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/cache"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/db"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/handler"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/logger"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/metrics"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction form over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := newLogger(cfg.Logging, cmd.OutOrStdout())
			logger.SetDefaultLogger(log)

			return serve(ctx, cfg, log)
		},
	}
}

// application is the wired HTTP surface of the form service
type application struct {
	handler http.Handler
	close   func() error
}

// newApplication wires stores, clients and handlers from cfg. Background
// work started here stops when ctx is done.
func newApplication(ctx context.Context, cfg *config.Config, log logger.Logger, reg *prometheus.Registry) (*application, error) {
	states, closeStore, err := newFormStateStore(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}

	recorder, err := metrics.NewPromRecorder(reg)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := metrics.RegisterSessionGauge(reg, states.Size); err != nil {
		closeStore()
		return nil, err
	}

	predictor := api.NewPredictionAPIClient(cfg.Predictor.Endpoint,
		&http.Client{Timeout: cfg.Predictor.Timeout}, log.WithField("component", "prediction_api"))
	formService := service.NewPredictionFormService(predictor, states, recorder, log)

	router := mux.NewRouter()
	handler.NewFormHandler(formService, log).RegisterRoutes(router)
	handler.NewPredictionHandler(formService, log).RegisterRoutes(router)
	handler.RegisterHealthRoute(router)

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")
	}

	chain := middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(
		middleware.RequestIDMiddleware(
			middleware.SessionMiddleware(cfg.Session.CookieName, cfg.Session.TTL)(
				middleware.LoggingMiddleware(log)(router))))

	log.Info("Application wired", map[string]interface{}{
		"predictor_endpoint": predictor.Endpoint(),
		"session_store":      cfg.Session.Store,
		"metrics_enabled":    cfg.Metrics.Enabled,
	})

	return &application{handler: chain, close: closeStore}, nil
}

// formStateStore is a session store that can report how many sessions it holds
type formStateStore interface {
	repository.FormStateRepository
	Size() int
}

// newFormStateStore opens the session store named in cfg
func newFormStateStore(ctx context.Context, cfg config.SessionConfig) (formStateStore, func() error, error) {
	switch cfg.Store {
	case "badger":
		badgerDB, err := db.OpenInMemory()
		if err != nil {
			return nil, nil, err
		}
		return db.NewBadgerFormStateRepository(badgerDB, cfg.TTL), badgerDB.Close, nil
	case "memory", "":
		states := cache.NewFormStateCache(cfg.TTL)
		go states.RunJanitor(ctx, janitorInterval(cfg.TTL))
		return states, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store: %s", cfg.Store)
	}
}

func janitorInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 2; interval >= time.Second {
		return interval
	}
	return time.Second
}

func serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := newApplication(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.close(); err != nil {
			log.Error("Error closing session store", map[string]interface{}{"error": err.Error()})
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": cfg.Server.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server", map[string]interface{}{"timeout": cfg.Server.ShutdownTimeout.String()})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
