package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"sudooom.im.campus/internal/auth"
	"sudooom.im.campus/pkg/response"
)

// JWTAuth JWT 认证中间件
func JWTAuth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				response.Error(c, response.CodeTokenExpired)
			} else {
				response.Error(c, response.CodeTokenInvalid)
			}
			c.Abort()
			return
		}

		c.Set("student_id", claims.StudentID)
		c.Next()
	}
}

// extractToken 从 Authorization header 提取 token
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return parts[1]
}

// GetStudentID 从 context 获取已认证用户的学号
func GetStudentID(c *gin.Context) string {
	studentID, exists := c.Get("student_id")
	if !exists {
		return ""
	}
	return studentID.(string)
}

// CORS 跨域中间件
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		for _, o := range allowedOrigins {
			if o == "*" || o == origin {
				c.Header("Access-Control-Allow-Origin", origin)
				break
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
