// Package store 实现持久化适配器：PostgreSQL 持久后端 + 进程内镜像兜底。
//
// 双后端共用同一个 Store 契约，调用方永远不需要知道本次请求由哪个后端服务；
// 两种模式的唯一差别是跨进程重启的持久性（兜底模式只靠快照文件）。
package store

import (
	"context"
	"errors"

	"sudooom.im.campus/internal/model"
)

// ErrNotFound 目标记录不存在
var ErrNotFound = errors.New("store: not found")

// Store 持久化适配器统一契约
type Store interface {
	SaveUser(ctx context.Context, user *model.User) error
	FindUsers(ctx context.Context) ([]model.User, error)

	SaveGroup(ctx context.Context, group *model.Group) error
	FindGroup(ctx context.Context, id string) (*model.Group, error)
	FindGroupsForUser(ctx context.Context, studentID string) ([]model.Group, error)

	SaveMessage(ctx context.Context, msg *model.Message) error
	FindMessages(ctx context.Context, chatID string) ([]model.Message, error)
}
