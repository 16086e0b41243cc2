package server

import (
	"errors"
	"log/slog"
	"testing"

	"sudooom.im.campus/internal/hub"
)

// newStalledSession 构造一个没有写循环的会话，写通道只进不出，用于模拟慢客户端
func newStalledSession(buffer int) *wsSession {
	return &wsSession{
		id:        1,
		writeChan: make(chan []byte, buffer),
		closeChan: make(chan struct{}),
		logger:    slog.Default(),
	}
}

func (s *wsSession) closed() bool {
	select {
	case <-s.closeChan:
		return true
	default:
		return false
	}
}

func TestSession_BufferFullDisconnects(t *testing.T) {
	s := newStalledSession(1)
	ev := hub.Event{Event: hub.EventUpdateChatList}

	// 第一条进缓冲
	if err := s.Send(ev); err != nil {
		t.Fatalf("First send should be buffered, got %v", err)
	}
	if s.closed() {
		t.Fatal("Session should still be open after a buffered send")
	}

	// 缓冲写满：报错并当场断开，而不是留着慢客户端继续积压
	if err := s.Send(ev); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Expected ErrSessionClosed on full buffer, got %v", err)
	}
	if !s.closed() {
		t.Error("Session should be closed after buffer overflow")
	}
}

func TestSession_SendAfterClose(t *testing.T) {
	s := newStalledSession(4)
	s.Close()

	if err := s.Send(hub.Event{Event: hub.EventUpdateChatList}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed after Close, got %v", err)
	}

	// 重复关闭幂等
	s.Close()
}

func TestSession_SendUnmarshalableEvent(t *testing.T) {
	s := newStalledSession(4)

	// 不可序列化的载荷直接报错，不进缓冲
	bad := hub.Event{Event: hub.EventReceiveMessage, Data: make(chan int)}
	if err := s.Send(bad); err == nil {
		t.Error("Expected marshal error for unserializable payload")
	}
	if len(s.writeChan) != 0 {
		t.Error("Failed marshal must not enqueue anything")
	}
}
