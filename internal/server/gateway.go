package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sudooom.im.campus/internal/auth"
	"sudooom.im.campus/internal/hub"
	"sudooom.im.campus/internal/model"
	"sudooom.im.campus/pkg/response"
)

// 上行事件名
const (
	eventRegisterUser = "register-user"
	eventJoinChat     = "join-chat"
	eventSendMessage  = "send-message"
)

// inboundEvent 上行事件信封
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Gateway 会话网关：认证、升级连接、把上行事件分发给中枢
type Gateway struct {
	hub      *hub.Hub
	tokens   *auth.TokenService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewGateway 创建会话网关
func NewGateway(h *hub.Hub, tokens *auth.TokenService, allowedOrigins []string) *Gateway {
	return &Gateway{
		hub:    h,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: slog.Default(),
	}
}

// originChecker 按配置白名单校验 Origin，"*" 全放行
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Handle 处理 /ws：浏览器 WebSocket 不能带自定义 Header，Token 走查询参数
func (g *Gateway) Handle(c *gin.Context) {
	if _, err := g.tokens.Validate(c.Query("token")); err != nil {
		response.Unauthorized(c)
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	sess := newSession(conn)
	g.hub.AddSession(sess)
	g.readLoop(sess, conn)
}

func (g *Gateway) readLoop(sess *wsSession, conn *websocket.Conn) {
	defer func() {
		g.hub.RemoveSession(context.Background(), sess)
		sess.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Debug("Session read error", "sessionId", sess.ID(), "error", err)
			}
			return
		}
		g.dispatch(sess, raw)
	}
}

// dispatch 解析上行事件并分发。形参不合法的事件在这里拦截，不会到达路由层
func (g *Gateway) dispatch(sess *wsSession, raw []byte) {
	var ev inboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		g.logger.Debug("Invalid inbound event", "sessionId", sess.ID(), "error", err)
		return
	}

	ctx := context.Background()

	switch ev.Event {
	case eventRegisterUser:
		var user model.User
		if err := json.Unmarshal(ev.Data, &user); err != nil || user.StudentID == "" {
			g.logger.Debug("Rejecting malformed register-user", "sessionId", sess.ID())
			return
		}
		g.hub.RegisterPresence(ctx, sess, &user)

	case eventJoinChat:
		var chatID string
		if err := json.Unmarshal(ev.Data, &chatID); err != nil || chatID == "" {
			g.logger.Debug("Rejecting malformed join-chat", "sessionId", sess.ID())
			return
		}
		g.hub.JoinRoom(sess, chatID)

	case eventSendMessage:
		req, err := parseSendRequest(ev.Data)
		if err != nil {
			g.logger.Debug("Rejecting malformed send-message", "sessionId", sess.ID(), "error", err)
			return
		}
		g.hub.HandleSend(ctx, req)

	default:
		g.logger.Debug("Unknown inbound event", "sessionId", sess.ID(), "event", ev.Event)
	}
}

var (
	errEmptyChatID  = errors.New("missing chat id")
	errEmptySender  = errors.New("missing sender")
	errEmptyContent = errors.New("empty content")
	errBadType      = errors.New("unknown message type")
)

// parseSendRequest 校验发消息请求：缺会话 ID、缺发送者、空内容都在路由之前拒绝
func parseSendRequest(data json.RawMessage) (hub.SendRequest, error) {
	var req hub.SendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, err
	}
	if req.ChatID == "" {
		return req, errEmptyChatID
	}
	if req.Sender == "" {
		return req, errEmptySender
	}
	if req.Content == "" {
		return req, errEmptyContent
	}
	switch req.Type {
	case "", model.MessageTypeText, model.MessageTypeImage:
	default:
		return req, errBadType
	}
	return req, nil
}
