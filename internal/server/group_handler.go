package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"sudooom.im.campus/internal/hub"
	"sudooom.im.campus/internal/store"
	"sudooom.im.campus/pkg/response"
)

// GroupHandler 群组查询与创建
type GroupHandler struct {
	store  *store.Fallback
	hub    *hub.Hub
	logger *slog.Logger
}

// NewGroupHandler 创建群组处理器
func NewGroupHandler(st *store.Fallback, h *hub.Hub) *GroupHandler {
	return &GroupHandler{
		store:  st,
		hub:    h,
		logger: slog.Default(),
	}
}

// List 列出请求者可见的群组（成员群 + 公共大厅）
// GET /api/groups
func (h *GroupHandler) List(c *gin.Context) {
	studentID := GetStudentID(c)

	groups, err := h.store.FindGroupsForUser(c.Request.Context(), studentID)
	if err != nil {
		h.logger.Error("Failed to list groups", "studentId", studentID, "error", err)
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, groups)
}

type createGroupRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
	Image       string   `json:"image"`
}

// Create 建群，创建者取自认证身份
// POST /api/groups
func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	group := h.hub.CreateGroup(c.Request.Context(), hub.CreateGroupRequest{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   GetStudentID(c),
		Members:     req.Members,
		Image:       req.Image,
	})
	response.Success(c, group)
}
