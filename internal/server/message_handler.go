package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"sudooom.im.campus/internal/auth"
	"sudooom.im.campus/internal/store"
	"sudooom.im.campus/pkg/response"
)

// MessageHandler 历史消息查询
type MessageHandler struct {
	store     *store.Fallback
	authority *auth.Authority
	logger    *slog.Logger
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(st *store.Fallback, authority *auth.Authority) *MessageHandler {
	return &MessageHandler{
		store:     st,
		authority: authority,
		logger:    slog.Default(),
	}
}

// History 按创建时间升序返回某会话的历史消息
// 与写侧的静默丢弃不同，读侧的鉴权失败显式返回「非成员」
// GET /api/messages/:chatId
func (h *MessageHandler) History(c *gin.Context) {
	chatID := c.Param("chatId")
	studentID := GetStudentID(c)

	if !h.authority.CanRead(c.Request.Context(), studentID, chatID) {
		response.Error(c, response.CodeNotAMember)
		return
	}

	messages, err := h.store.FindMessages(c.Request.Context(), chatID)
	if err != nil {
		h.logger.Error("Failed to load history", "chatId", chatID, "error", err)
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, messages)
}
