package handler

import (
	"context"
	"net/http"
	"time"

	"brewpos/internal/infra"
	"brewpos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// An open breaker degrades nothing: receipts queue up and retry.
func Health(db *gorm.DB, rdb *redis.Client, breakers infra.Breakers) gin.HandlerFunc {
	dead := worker.NewDeadLetters(rdb)
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		deadLetters := map[string]int64{}
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else if counts, err := dead.Counts(ctx); err == nil {
			deadLetters = counts
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":           status == http.StatusOK,
			"db":           dbStatus,
			"redis":        redisStatus,
			"degraded":     breakers.Degraded(),
			"breakers":     breakers.Status(),
			"dead_letters": deadLetters,
		})
	}
}

// StockStream upgrades to the websocket that pushes stock_update and
// low_stock events.
func StockStream(hub http.Handler) gin.HandlerFunc {
	return gin.WrapH(hub)
}
