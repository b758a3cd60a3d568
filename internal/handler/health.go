package handler

import (
	"context"
	"net/http"
	"time"

	"catalogdesk/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports the shop API breaker; an open
// breaker degrades the answer but does not fail it, since local reads still work.
func Health(db *gorm.DB, rdb *redis.Client, shop *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		shopStatus := "unknown"
		if shop != nil {
			shopStatus = shop.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":       status == http.StatusOK,
			"degraded": shopStatus == infra.CBOpen.String(),
			"db":       dbStatus,
			"redis":    redisStatus,
			"shop_api": shopStatus,
		})
	}
}
