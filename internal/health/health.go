// Package health 暴露进程健康状态。
// 兜底模式不算不健康——降级是设计内的运行状态，只在应答里如实标注
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Status 健康状态
type Status struct {
	Mode     string `json:"mode"` // durable | fallback
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Checker 健康检查器，db 与 redisClient 都可为 nil
type Checker struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

// NewChecker 创建健康检查器
func NewChecker(db *pgxpool.Pool, redisClient *redis.Client) *Checker {
	return &Checker{
		db:          db,
		redisClient: redisClient,
	}
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{Mode: "durable"}

	if h.db == nil {
		status.Mode = "fallback"
		status.Database = "unavailable"
	} else {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := h.db.Ping(dbCtx); err == nil {
			status.Database = "connected"
		} else {
			status.Database = "disconnected"
		}
		cancel()
	}

	if h.redisClient == nil {
		status.Redis = "disabled"
	} else {
		redisCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := h.redisClient.Ping(redisCtx).Err(); err == nil {
			status.Redis = "connected"
		} else {
			status.Redis = "disconnected"
		}
		cancel()
	}

	return status
}

// ServeHTTP HTTP 健康检查端点
func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}
