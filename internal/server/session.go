package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"sudooom.im.campus/internal/hub"
)

var ErrSessionClosed = errors.New("session closed")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// maxInboundBytes 单条上行消息的大小上限
	maxInboundBytes = 1 << 16
)

var sessionIDCounter int64

// wsSession WebSocket 会话，实现 hub.Session
// 下行走带缓冲的写通道，Send 永不阻塞路由循环；缓冲写满视为慢客户端，当场断开
type wsSession struct {
	id        int64
	conn      *websocket.Conn
	writeChan chan []byte
	closeChan chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

func newSession(conn *websocket.Conn) *wsSession {
	s := &wsSession{
		id:        atomic.AddInt64(&sessionIDCounter, 1),
		conn:      conn,
		writeChan: make(chan []byte, 256),
		closeChan: make(chan struct{}),
		logger:    slog.Default(),
	}
	conn.SetReadLimit(maxInboundBytes)
	go s.writeLoop()
	return s
}

func (s *wsSession) ID() int64 {
	return s.id
}

// Send 序列化并排队下行事件
func (s *wsSession) Send(event hub.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case s.writeChan <- data:
		return nil
	case <-s.closeChan:
		return ErrSessionClosed
	default:
		// 慢客户端：连接一关，读循环随之退出并从中枢摘除会话
		s.logger.Warn("Session write buffer full, disconnecting", "sessionId", s.id)
		s.Close()
		return ErrSessionClosed
	}
}

func (s *wsSession) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data := <-s.writeChan:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("Session write failed", "sessionId", s.id, "error", err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closeChan:
			return
		}
	}
}

func (s *wsSession) Close() {
	s.closeOnce.Do(func() {
		close(s.closeChan)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}
