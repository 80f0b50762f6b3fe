package worker

// stock_alert_cron.go
// Background goroutine that periodically lists ingredients below their
// minimum stock and broadcasts them to connected terminals.

import (
	"context"
	"time"

	"brewpos/internal/model"
	"brewpos/internal/ws"

	"github.com/rs/zerolog/log"
)

const defaultStockAlertInterval = 5 * time.Minute

// LowStockSource lists ingredients whose stock is under MinStock.
type LowStockSource interface {
	BelowMinimum(ctx context.Context) ([]model.Ingredient, error)
}

// EventPublisher is satisfied by *ws.Hub.
type EventPublisher interface {
	Publish(e ws.Event)
}

// StockAlertConfig holds all dependencies for the alert goroutine.
type StockAlertConfig struct {
	Ingredients LowStockSource
	Publisher   EventPublisher
	Interval    time.Duration
}

// StartStockAlertCron ticks every cfg.Interval until ctx is cancelled.
func StartStockAlertCron(ctx context.Context, cfg StockAlertConfig) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultStockAlertInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("stock_alert_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stock_alert_cron: shutting down")
				return
			case <-ticker.C:
				checkLowStock(ctx, cfg)
			}
		}
	}()
}

// checkLowStock publishes one low_stock event listing every ingredient under
// its minimum. Nothing is published when all levels are fine.
func checkLowStock(ctx context.Context, cfg StockAlertConfig) int {
	qctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	items, err := cfg.Ingredients.BelowMinimum(qctx)
	if err != nil {
		log.Error().Err(err).Msg("stock_alert_cron: query failed")
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	levels := make([]ws.StockLevel, 0, len(items))
	for i := range items {
		levels = append(levels, ws.LevelOf(&items[i]))
	}
	cfg.Publisher.Publish(ws.Event{Type: ws.EventLowStock, Data: levels})
	log.Warn().Int("count", len(levels)).Msg("stock_alert_cron: ingredients below minimum")
	return len(levels)
}
