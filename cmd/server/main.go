package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brewpos/internal/config"
	"brewpos/internal/infra"
	"brewpos/internal/repository"
	"brewpos/internal/router"
	"brewpos/internal/worker"
	"brewpos/internal/ws"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub()
	go hub.Run(ctx)

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	mailer := infra.NewMailer(cfg)
	queueBreaker := infra.NewBreaker("job_queue", infra.BreakerConfig{Threshold: 3, Cooldown: 30 * time.Second})
	dispatcher := worker.NewDispatcher(rdb, queueBreaker)
	movementRepo := repository.NewStockMovementRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db, movementRepo)
	invoiceRepo := repository.NewInvoiceRepository(db)

	pool := worker.NewPool(rdb, map[string]worker.Handler{
		worker.JobReceipt: worker.NewReceiptWorker(invoiceRepo, dispatcher, cfg.ReceiptStoragePath, cfg.ShopName),
		worker.JobEmail:   worker.NewEmailWorker(mailer),
	})
	pool.Start(ctx, cfg.WorkerPoolSize)

	worker.StartStockAlertCron(ctx, worker.StockAlertConfig{
		Ingredients: ingredientRepo,
		Publisher:   hub,
		Interval:    cfg.LowStockInterval,
	})

	breakers := infra.Breakers{queueBreaker}
	if mailer.Enabled() {
		breakers = append(breakers, mailer.Breaker())
	}
	r := router.New(ctx, cfg, db, rdb, hub, dispatcher, breakers)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("env", cfg.Env).Msgf("BrewPOS backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	// stop workers, the alert cron and the hub before draining HTTP
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
