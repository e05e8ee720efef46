package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/hospital-booking/internal/app"
	"github.com/hackgods/hospital-booking/internal/appointment"
	"github.com/hackgods/hospital-booking/internal/config"
)

// reconcile repairs slot booked flags against the appointment table and exits.
// Run it while the api-server is stopped; a running server holds its own copy
// of the state and would overwrite the result on its next save.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := app.BootstrapLogger("reconcile")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := app.NewLogger(cfg, "reconcile")
	logger.Info().Str("env", cfg.Env).Str("store_backend", cfg.StoreBackend).Msg("reconcile starting")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Open(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("runtime setup failed")
	}
	defer rt.Close()

	runCtx, cancel := context.WithTimeout(rootCtx, 20*time.Second)
	defer cancel()

	start := time.Now()
	store := appointment.NewStore(rt.Backend, logger)
	store.Load(runCtx)

	svc := appointment.NewService(store, rt.Locker, rt.Events, nil, logger)
	n := svc.ReconcileSlots(runCtx)

	logger.Info().Int("slots_fixed", n).Dur("took", time.Since(start)).Msg("reconcile run complete")
}
