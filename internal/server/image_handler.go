package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sudooom.im.campus/internal/erp"
	"sudooom.im.campus/pkg/response"
)

// ImageHandler 头像中转，替浏览器绕开 ERP 的证书/CORS 问题
type ImageHandler struct {
	erp    *erp.Client
	logger *slog.Logger
}

// NewImageHandler 创建头像中转处理器
func NewImageHandler(erpClient *erp.Client) *ImageHandler {
	return &ImageHandler{
		erp:    erpClient,
		logger: slog.Default(),
	}
}

// Proxy 代为下载图片并原样回写
// GET /api/proxy-image?url=...
func (h *ImageHandler) Proxy(c *gin.Context) {
	imageURL := c.Query("url")
	if imageURL == "" {
		response.ErrorWithMsg(c, response.CodeInvalidParams, "No URL provided")
		return
	}

	data, contentType, err := h.erp.FetchImage(c.Request.Context(), imageURL)
	if err != nil {
		h.logger.Warn("Image proxy failed", "url", imageURL, "error", err)
		response.Error(c, response.CodeServerError)
		return
	}

	c.Data(http.StatusOK, contentType, data)
}
