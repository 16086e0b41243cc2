package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sudooom.im.campus/internal/model"
)

// DefaultQueryTimeout 持久后端单次操作的默认超时
const DefaultQueryTimeout = 2 * time.Second

// Fallback 双后端适配器
//
// 每次操作先走持久后端（受超时约束），任何失败都透明切换到进程内镜像；
// 写路径对调用方永不报错，降级只留日志。durable 为 nil 表示启动时就没连上
// 持久后端，进程整体运行在兜底模式。
type Fallback struct {
	durable Store
	mirror  *Memory
	timeout time.Duration
	logger  *slog.Logger
}

// NewFallback 创建双后端适配器，timeout <= 0 时取 DefaultQueryTimeout
func NewFallback(durable Store, mirror *Memory, timeout time.Duration) *Fallback {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Fallback{
		durable: durable,
		mirror:  mirror,
		timeout: timeout,
		logger:  slog.Default(),
	}
}

// DurableMode 持久后端是否在启动时可用
func (f *Fallback) DurableMode() bool {
	return f.durable != nil
}

// FindGroupMirror 镜像快路径：不挂起、不超时
func (f *Fallback) FindGroupMirror(id string) (*model.Group, error) {
	return f.mirror.FindGroup(context.Background(), id)
}

// FindGroupDurable 持久后端查询，受超时约束；无持久后端时直接 ErrNotFound
func (f *Fallback) FindGroupDurable(ctx context.Context, id string) (*model.Group, error) {
	if f.durable == nil {
		return nil, ErrNotFound
	}
	dctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.durable.FindGroup(dctx, id)
}

// SaveUser 写路径永不报错
func (f *Fallback) SaveUser(ctx context.Context, user *model.User) error {
	if f.durable != nil {
		dctx, cancel := context.WithTimeout(ctx, f.timeout)
		err := f.durable.SaveUser(dctx, user)
		cancel()
		if err == nil {
			return nil
		}
		f.logger.Warn("Durable store unavailable, using in-memory fallback", "op", "SaveUser", "error", err)
	}
	return f.mirror.SaveUser(ctx, user)
}

// FindUsers 读路径：持久后端失败时返回镜像当前内容
func (f *Fallback) FindUsers(ctx context.Context) ([]model.User, error) {
	if f.durable != nil {
		dctx, cancel := context.WithTimeout(ctx, f.timeout)
		users, err := f.durable.FindUsers(dctx)
		cancel()
		if err == nil {
			return users, nil
		}
		f.logger.Warn("Durable store unavailable, using in-memory fallback", "op", "FindUsers", "error", err)
	}
	return f.mirror.FindUsers(ctx)
}

// SaveGroup 写路径永不报错
func (f *Fallback) SaveGroup(ctx context.Context, group *model.Group) error {
	if f.durable != nil {
		dctx, cancel := context.WithTimeout(ctx, f.timeout)
		err := f.durable.SaveGroup(dctx, group)
		cancel()
		if err == nil {
			return nil
		}
		f.logger.Warn("Durable store unavailable, using in-memory fallback", "op", "SaveGroup", "error", err)
	}
	return f.mirror.SaveGroup(ctx, group)
}

// FindGroup 先持久后端、失败走镜像；ErrNotFound 不算后端故障，原样返回
func (f *Fallback) FindGroup(ctx context.Context, id string) (*model.Group, error) {
	if f.durable != nil {
		dctx, cancel := context.WithTimeout(ctx, f.timeout)
		group, err := f.durable.FindGroup(dctx, id)
		cancel()
		if err == nil || errors.Is(err, ErrNotFound) {
			return group, err
		}
		f.logger.Warn("Durable store unavailable, using in-memory fallback", "op", "FindGroup", "error", err)
	}
	return f.mirror.FindGroup(ctx, id)
}

// FindGroupsForUser 读路径：持久后端失败时返回镜像当前内容
func (f *Fallback) FindGroupsForUser(ctx context.Context, studentID string) ([]model.Group, error) {
	if f.durable != nil {
		dctx, cancel := context.WithTimeout(ctx, f.timeout)
		groups, err := f.durable.FindGroupsForUser(dctx, studentID)
		cancel()
		if err == nil {
			return groups, nil
		}
		f.logger.Warn("Durable store unavailable, using in-memory fallback", "op", "FindGroupsForUser", "error", err)
	}
	return f.mirror.FindGroupsForUser(ctx, studentID)
}

// SaveMessage 写路径永不报错
func (f *Fallback) SaveMessage(ctx context.Context, msg *model.Message) error {
	if f.durable != nil {
		dctx, cancel := context.WithTimeout(ctx, f.timeout)
		err := f.durable.SaveMessage(dctx, msg)
		cancel()
		if err == nil {
			return nil
		}
		f.logger.Warn("Durable store unavailable, using in-memory fallback", "op", "SaveMessage", "error", err)
	}
	return f.mirror.SaveMessage(ctx, msg)
}

// FindMessages 读路径：持久后端失败时返回镜像当前内容
func (f *Fallback) FindMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	if f.durable != nil {
		dctx, cancel := context.WithTimeout(ctx, f.timeout)
		messages, err := f.durable.FindMessages(dctx, chatID)
		cancel()
		if err == nil {
			return messages, nil
		}
		f.logger.Warn("Durable store unavailable, using in-memory fallback", "op", "FindMessages", "error", err)
	}
	return f.mirror.FindMessages(ctx, chatID)
}
