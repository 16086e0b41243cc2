package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sudooom.im.campus/internal/auth"
	"sudooom.im.campus/internal/config"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	tokens *auth.TokenService,
	gateway *Gateway,
	authHandler *AuthHandler,
	userHandler *UserHandler,
	groupHandler *GroupHandler,
	messageHandler *MessageHandler,
	imageHandler *ImageHandler,
	healthChecker http.Handler,
) *gin.Engine {
	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(CORS(cfg.Server.AllowedOrigins))

	r.GET("/health", gin.WrapH(healthChecker))
	r.GET("/ws", gateway.Handle)

	api := r.Group("/api")
	{
		// 无需本地认证的接口
		api.POST("/login", authHandler.Login)
		api.GET("/proxy-image", imageHandler.Proxy)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(JWTAuth(tokens))
		{
			authenticated.GET("/users", userHandler.List)
			authenticated.GET("/groups", groupHandler.List)
			authenticated.POST("/groups", groupHandler.Create)
			authenticated.GET("/messages/:chatId", messageHandler.History)
		}
	}

	return r
}
