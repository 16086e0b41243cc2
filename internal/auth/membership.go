// Package auth 实现成员鉴权与本地会话 Token。
package auth

import (
	"context"
	"log/slog"

	"sudooom.im.campus/internal/chatid"
	"sudooom.im.campus/internal/model"
)

// GroupSource 群组的两级查询来源：镜像快路径 + 持久后端确认
type GroupSource interface {
	FindGroupMirror(id string) (*model.Group, error)
	FindGroupDurable(ctx context.Context, id string) (*model.Group, error)
}

// Authority 成员鉴权
//
// 策略：公共大厅对所有已认证用户放行；单聊复合 ID 只对两个编码参与者放行；
// 其余一律按群组成员集判断，镜像命中即放行，未命中再向持久后端确认一次
// （受超时约束），两边都查不到就拒绝——宁可错杀，不可漏放。
type Authority struct {
	groups GroupSource
	logger *slog.Logger
}

// NewAuthority 创建成员鉴权
func NewAuthority(groups GroupSource) *Authority {
	return &Authority{
		groups: groups,
		logger: slog.Default(),
	}
}

// CanWrite 用户是否可向该会话发消息
func (a *Authority) CanWrite(ctx context.Context, studentID, chatID string) bool {
	return a.allowed(ctx, studentID, chatID)
}

// CanRead 用户是否可读取该会话的历史
func (a *Authority) CanRead(ctx context.Context, studentID, chatID string) bool {
	return a.allowed(ctx, studentID, chatID)
}

func (a *Authority) allowed(ctx context.Context, studentID, chatID string) bool {
	if studentID == "" || chatID == "" {
		return false
	}

	if chatID == chatid.PublicLounge {
		return true
	}

	if chatid.IsDirect(chatID) {
		return chatid.IsParticipant(chatID, studentID)
	}

	// 镜像快路径：命中且在成员集中直接放行
	if g, err := a.groups.FindGroupMirror(chatID); err == nil && g.HasMember(studentID) {
		return true
	}

	// 持久后端确认，查询失败或群组不存在都视作拒绝
	g, err := a.groups.FindGroupDurable(ctx, chatID)
	if err != nil {
		a.logger.Debug("Membership check denied", "studentId", studentID, "chatId", chatID, "error", err)
		return false
	}
	return g.HasMember(studentID)
}
