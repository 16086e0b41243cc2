package server

import (
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"sudooom.im.campus/internal/auth"
	"sudooom.im.campus/internal/erp"
	"sudooom.im.campus/internal/hub"
	"sudooom.im.campus/internal/store"
	"sudooom.im.campus/pkg/response"
)

// AuthHandler 登录代理：转发凭据到 ERP，落库用户资料并签发本地 Token
type AuthHandler struct {
	erp    *erp.Client
	store  *store.Fallback
	hub    *hub.Hub
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthHandler 创建登录处理器
func NewAuthHandler(erpClient *erp.Client, st *store.Fallback, h *hub.Hub, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		erp:    erpClient,
		store:  st,
		hub:    h,
		tokens: tokens,
		logger: slog.Default(),
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理登录
// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	ctx := c.Request.Context()

	user, erpToken, err := h.erp.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, erp.ErrInvalidCredentials) {
			response.Error(c, response.CodeInvalidCredentials)
			return
		}
		h.logger.Error("ERP login failed", "error", err)
		response.Error(c, response.CodeServerError)
		return
	}

	// 头像走本地中转，绕开 ERP 的证书/CORS 问题；拿不到不影响登录
	if photo, err := h.erp.ProfilePhotoURL(ctx, erpToken); err == nil && photo != "" {
		user.PhotoURL = "/api/proxy-image?url=" + url.QueryEscape(photo)
	} else if err != nil {
		h.logger.Debug("Failed to fetch profile photo", "studentId", user.StudentID, "error", err)
	}

	user.LastSeen = time.Now()
	h.store.SaveUser(ctx, user)

	localToken, err := h.tokens.Mint(user.StudentID)
	if err != nil {
		h.logger.Error("Failed to mint token", "error", err)
		response.Error(c, response.CodeServerError)
		return
	}

	// 粗粒度失效信号：让所有在线客户端重新拉取用户/群组列表
	h.hub.Broadcast(hub.Event{Event: hub.EventUpdateChatList})

	response.Success(c, gin.H{
		"token": localToken,
		"user":  user,
	})
}
