/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/adapters/telegram"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/config"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/fields"
	apihttp "github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/http"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/jobs"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/logger"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/repo"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/services"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/telemetry"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db := repo.MustOpen(ctx, cfg, log)
	defer db.Close()

	aliases, err := fields.LoadAliases(cfg.FieldAliasesFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal().Err(err).Str("file", cfg.FieldAliasesFile).Msg("field aliases")
		}
		log.Info().Str("file", cfg.FieldAliasesFile).Msg("no field aliases file; using defaults")
	}
	repository := repo.NewRepository(db, log, aliases)
	if err := repository.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	// Services
	tm := telemetry.New()
	opts := []services.Option{services.WithTelemetry(tm), services.WithRunStore(repository)}
	if tg := telegram.NewClient(cfg, log); tg.Enabled() && len(cfg.TelegramChatIDs) > 0 {
		opts = append(opts, services.WithNotifier(tg))
	}
	svc := services.New(cfg, log, repository, opts...)

	// Cron
	guard := jobs.NewGuard(tm)
	cron, err := jobs.NewCron(cfg, log, svc, repository, guard)
	if err != nil {
		log.Fatal().Err(err).Msg("cron setup failed")
	}
	cron.Start()
	defer cron.Stop()

	// HTTP server (Gin)
	h := apihttp.NewHandlers(cfg, log, svc, cron)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: apihttp.NewRouter(cfg, log, h, tm.Handler())}

	// graceful shutdown
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info().Str("addr", cfg.HTTPAddr).Str("cron", cfg.RecomputeCron).Msg("listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}
