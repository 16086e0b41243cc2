// Package presence 维护基于 Redis 的在线状态（尽力而为）。
//
// 在线状态只是展示层的点缀，Redis 不可用时整个中继照常工作：
// Tracker 允许为 nil，所有方法都对 nil 安全，失败只留日志。
package presence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix 在线状态 Key 前缀，Key: campus:presence:{studentId}
	keyPrefix = "campus:presence:"

	// onlineTTL 在线标记的存活时间，注册/心跳续期
	onlineTTL = 2 * time.Minute
)

// Tracker 在线状态跟踪器
type Tracker struct {
	client *redis.Client
	logger *slog.Logger
}

// NewTracker 创建跟踪器
func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{
		client: client,
		logger: slog.Default(),
	}
}

// Touch 标记用户在线并刷新最后在线时间
func (t *Tracker) Touch(ctx context.Context, studentID string) {
	if t == nil || t.client == nil || studentID == "" {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if err := t.client.Set(ctx, keyPrefix+studentID, now, onlineTTL).Err(); err != nil {
		t.logger.Debug("Presence touch failed", "studentId", studentID, "error", err)
	}
}

// Offline 移除在线标记
func (t *Tracker) Offline(ctx context.Context, studentID string) {
	if t == nil || t.client == nil || studentID == "" {
		return
	}
	if err := t.client.Del(ctx, keyPrefix+studentID).Err(); err != nil {
		t.logger.Debug("Presence offline failed", "studentId", studentID, "error", err)
	}
}

// IsOnline 查询用户是否在线，Redis 不可用时一律返回 false
func (t *Tracker) IsOnline(ctx context.Context, studentID string) bool {
	if t == nil || t.client == nil || studentID == "" {
		return false
	}
	err := t.client.Get(ctx, keyPrefix+studentID).Err()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			t.logger.Debug("Presence lookup failed", "studentId", studentID, "error", err)
		}
		return false
	}
	return true
}
