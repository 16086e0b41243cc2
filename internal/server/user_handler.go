package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"sudooom.im.campus/internal/model"
	"sudooom.im.campus/internal/presence"
	"sudooom.im.campus/internal/store"
	"sudooom.im.campus/pkg/response"
)

// UserHandler 用户查询
type UserHandler struct {
	store    *store.Fallback
	presence *presence.Tracker
	logger   *slog.Logger
}

// NewUserHandler 创建用户处理器
func NewUserHandler(st *store.Fallback, tracker *presence.Tracker) *UserHandler {
	return &UserHandler{
		store:    st,
		presence: tracker,
		logger:   slog.Default(),
	}
}

type userView struct {
	model.User
	Online bool `json:"online"`
}

// List 列出全部已知用户，附带在线标记
// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.store.FindUsers(ctx)
	if err != nil {
		h.logger.Error("Failed to list users", "error", err)
		response.Error(c, response.CodeServerError)
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			User:   u,
			Online: h.presence.IsOnline(ctx, u.StudentID),
		})
	}
	response.Success(c, views)
}
