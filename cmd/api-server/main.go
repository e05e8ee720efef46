package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-booking/internal/api"
	"github.com/hackgods/hospital-booking/internal/app"
	"github.com/hackgods/hospital-booking/internal/appointment"
	"github.com/hackgods/hospital-booking/internal/config"
	"github.com/hackgods/hospital-booking/internal/notify"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := app.BootstrapLogger("api-server")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := app.NewLogger(cfg, "api-server")
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Open(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("runtime setup failed")
	}
	defer rt.Close()

	store := appointment.NewStore(rt.Backend, logger)
	store.Load(rootCtx)

	notifier := notify.New(cfg.NotificationTTL)
	svc := appointment.NewService(store, rt.Locker, rt.Events, notifier, logger)

	if n := svc.ReconcileSlots(rootCtx); n > 0 {
		logger.Warn().Int("slots", n).Msg("slot booked flags repaired at startup")
	}

	deps := make(map[string]api.Pinger)
	for name, ping := range rt.Pingers() {
		deps[name] = api.PingFunc(ping)
	}

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Notifier: notifier,
		Deps:     deps,
		Logger:   logger,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	go reconcileLoop(rootCtx, svc, cfg.WorkerInterval, logger)

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

// reconcileLoop periodically repairs slot booked flags that drifted from the
// appointment table.
func reconcileLoop(ctx context.Context, svc *appointment.Service, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
			start := time.Now()
			n := svc.ReconcileSlots(runCtx)
			cancel()
			logger.Debug().Int("slots", n).Dur("took", time.Since(start)).Msg("reconcile run complete")
		}
	}
}
