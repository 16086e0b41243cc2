package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 错误码定义
const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeInvalidCredentials = 10001
	CodeTokenInvalid       = 10002
	CodeTokenExpired       = 10003

	// 业务相关 11000-11999
	CodeInvalidParams = 11001
	CodeNotAMember    = 11002

	// 系统错误 50000-50999
	CodeServerError = 50001
)

var codeMessages = map[int]string{
	CodeSuccess:            "success",
	CodeInvalidCredentials: "Invalid Credentials",
	CodeTokenInvalid:       "Invalid token",
	CodeTokenExpired:       "Token has expired",
	CodeInvalidParams:      "Invalid parameters",
	CodeNotAMember:         "Not a member",
	CodeServerError:        "Server Error",
}

var codeStatus = map[int]int{
	CodeSuccess:            http.StatusOK,
	CodeInvalidCredentials: http.StatusUnauthorized,
	CodeTokenInvalid:       http.StatusUnauthorized,
	CodeTokenExpired:       http.StatusUnauthorized,
	CodeInvalidParams:      http.StatusBadRequest,
	CodeNotAMember:         http.StatusForbidden,
	CodeServerError:        http.StatusInternalServerError,
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int) {
	ErrorWithMsg(c, code, codeMessages[code])
}

// ErrorWithMsg 自定义错误消息
func ErrorWithMsg(c *gin.Context, code int, message string) {
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = "unknown error"
	}
	c.JSON(status, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// Unauthorized 未认证
func Unauthorized(c *gin.Context) {
	Error(c, CodeTokenInvalid)
}
