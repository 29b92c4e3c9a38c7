package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/somaedu/soma-backend/internal/attempt"
	"github.com/somaedu/soma-backend/internal/config"
	"github.com/somaedu/soma-backend/internal/response"
)

// SystemHandler exposes health and operational status endpoints.
type SystemHandler struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	manager *attempt.Manager
	started time.Time
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, manager *attempt.Manager) *SystemHandler {
	return &SystemHandler{
		pool:    pool,
		rdb:     rdb,
		manager: manager,
		started: time.Now(),
	}
}

// Health godoc
// GET /health
// Liveness plus dependency checks for Postgres and Redis.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	checks := gin.H{"postgres": "ok", "redis": "ok"}

	if err := h.pool.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": http.StatusText(status),
		"checks": checks,
		"uptime": time.Since(h.started).String(),
	})
}

// Status godoc
// GET /api/v1/admin/system/status
// Runtime and queue visibility for operators.
func (h *SystemHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	status := gin.H{
		"goroutines":    runtime.NumGoroutine(),
		"heap_alloc":    ms.HeapAlloc,
		"num_gc":        ms.NumGC,
		"live_attempts": h.manager.Count(),
		"uptime":        time.Since(h.started).String(),
	}

	// Worker queue depths via pipelined LLEN.
	pipe := h.rdb.Pipeline()
	answersCmd := pipe.LLen(ctx, config.WorkerKey.PersistAnswersQueue)
	scoresCmd := pipe.LLen(ctx, config.WorkerKey.PersistScoresQueue)
	if _, err := pipe.Exec(ctx); err == nil {
		status["queue_answers"] = answersCmd.Val()
		status["queue_scores"] = scoresCmd.Val()
	}

	response.Success(c, http.StatusOK, status)
}
