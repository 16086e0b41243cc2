package hub

import (
	"context"
	"sync"
	"testing"

	"sudooom.im.campus/internal/auth"
	"sudooom.im.campus/internal/chatid"
	"sudooom.im.campus/internal/model"
	"sudooom.im.campus/internal/snowflake"
	"sudooom.im.campus/internal/store"
)

// fakeSession 记录收到的全部下行事件
type fakeSession struct {
	id     int64
	mu     sync.Mutex
	events []Event
}

func (s *fakeSession) ID() int64 { return s.id }

func (s *fakeSession) Send(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSession) received(name string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

func newTestHub() (*Hub, *store.Fallback) {
	adapter := store.NewFallback(nil, store.NewMemory(""), 0)
	authority := auth.NewAuthority(adapter)
	return New(adapter, authority, nil, snowflake.NewNode(1)), adapter
}

func TestHandleSend_DeliveredAndPersisted(t *testing.T) {
	h, adapter := newTestHub()
	ctx := context.Background()

	s1 := &fakeSession{id: 1}
	s2 := &fakeSession{id: 2}
	s3 := &fakeSession{id: 3}
	h.AddSession(s1)
	h.AddSession(s2)
	h.AddSession(s3)

	chatID := chatid.Direct("u1", "u2")
	h.JoinRoom(s1, chatID)
	h.JoinRoom(s2, chatID)
	// s3 未订阅该房间

	h.HandleSend(ctx, SendRequest{
		ChatID:     chatID,
		Sender:     "u1",
		SenderName: "User One",
		Content:    "hello there",
	})

	for _, s := range []*fakeSession{s1, s2} {
		got := s.received(EventReceiveMessage)
		if len(got) != 1 {
			t.Fatalf("Session %d expected 1 message, got %d", s.id, len(got))
		}
		msg := got[0].Data.(*model.Message)
		if msg.ChatID != chatID || msg.Sender != "u1" || msg.Content != "hello there" {
			t.Errorf("Broadcast message does not match input: %+v", msg)
		}
		if msg.Type != model.MessageTypeText {
			t.Errorf("Expected default type text, got %q", msg.Type)
		}
		if msg.CreatedAt.IsZero() {
			t.Error("Expected server-assigned timestamp")
		}
	}
	if got := s3.received(EventReceiveMessage); len(got) != 0 {
		t.Errorf("Unsubscribed session received %d messages", len(got))
	}

	// 持久化内容与输入一致
	stored, err := adapter.FindMessages(ctx, chatID)
	if err != nil {
		t.Fatalf("FindMessages failed: %v", err)
	}
	if len(stored) != 1 || stored[0].Content != "hello there" || stored[0].ChatID != chatID {
		t.Errorf("Stored message mismatch: %v", stored)
	}
}

func TestHandleSend_MultiDeviceEcho(t *testing.T) {
	// 发送者自己的另一个会话也收到广播
	h, _ := newTestHub()
	ctx := context.Background()

	phone := &fakeSession{id: 1}
	laptop := &fakeSession{id: 2}
	h.AddSession(phone)
	h.AddSession(laptop)

	chatID := chatid.Direct("u1", "u2")
	h.JoinRoom(phone, chatID)
	h.JoinRoom(laptop, chatID)

	h.HandleSend(ctx, SendRequest{ChatID: chatID, Sender: "u1", Content: "from phone"})

	if len(laptop.received(EventReceiveMessage)) != 1 {
		t.Error("Sender's other session should receive the echo")
	}
}

func TestHandleSend_UnauthorizedSilentDrop(t *testing.T) {
	h, adapter := newTestHub()
	ctx := context.Background()

	// g7 的成员是 u1/u2，u3 不在其中
	adapter.SaveGroup(ctx, &model.Group{ID: "g7", Name: "G7", CreatedBy: "u1", Members: []string{"u1", "u2"}})

	member := &fakeSession{id: 1}
	outsider := &fakeSession{id: 2}
	h.AddSession(member)
	h.AddSession(outsider)
	h.JoinRoom(member, "g7")
	h.JoinRoom(outsider, "g7")

	h.HandleSend(ctx, SendRequest{ChatID: "g7", Sender: "u3", Content: "let me in"})

	// 不广播、不持久化、发送者也拿不到任何错误事件
	if len(member.received(EventReceiveMessage)) != 0 {
		t.Error("Member should not receive unauthorized message")
	}
	if len(outsider.events) != 0 {
		t.Errorf("Sender should get no feedback at all, got %v", outsider.events)
	}
	stored, _ := adapter.FindMessages(ctx, "g7")
	if len(stored) != 0 {
		t.Errorf("Unauthorized message must not be persisted, got %v", stored)
	}
}

func TestHandleSend_MonotonicTimestampsPerRoom(t *testing.T) {
	h, adapter := newTestHub()
	ctx := context.Background()

	s := &fakeSession{id: 1}
	h.AddSession(s)
	h.JoinRoom(s, chatid.PublicLounge)

	for i := 0; i < 50; i++ {
		h.HandleSend(ctx, SendRequest{ChatID: chatid.PublicLounge, Sender: "u1", Content: "tick"})
	}

	stored, _ := adapter.FindMessages(ctx, chatid.PublicLounge)
	if len(stored) != 50 {
		t.Fatalf("Expected 50 messages, got %d", len(stored))
	}
	for i := 1; i < len(stored); i++ {
		if stored[i].CreatedAt.Before(stored[i-1].CreatedAt) {
			t.Fatalf("Timestamps regressed at index %d", i)
		}
	}
}

func TestCreateGroup_CreatorAlwaysIncluded(t *testing.T) {
	h, adapter := newTestHub()
	ctx := context.Background()

	watcher := &fakeSession{id: 1}
	h.AddSession(watcher)

	group := h.CreateGroup(ctx, CreateGroupRequest{
		Name:      "Project Team",
		CreatedBy: "u1",
		Members:   []string{"u2", "u2", ""},
	})

	if group.ID == "" {
		t.Fatal("Expected server-assigned group id")
	}
	if len(group.Members) != 2 || group.Members[0] != "u1" || group.Members[1] != "u2" {
		t.Errorf("Expected members [u1 u2], got %v", group.Members)
	}

	// 建群后所有在线会话收到粗粒度失效信号
	if len(watcher.received(EventUpdateChatList)) != 1 {
		t.Error("Expected update-chat-list broadcast")
	}

	// 落库且创建者可写
	stored, err := adapter.FindGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("Group not persisted: %v", err)
	}
	if !stored.HasMember("u1") {
		t.Error("Creator missing from stored members")
	}
}

func TestRegisterPresence_UpsertsAndSignals(t *testing.T) {
	h, adapter := newTestHub()
	ctx := context.Background()

	s := &fakeSession{id: 1}
	other := &fakeSession{id: 2}
	h.AddSession(s)
	h.AddSession(other)

	h.RegisterPresence(ctx, s, &model.User{StudentID: "2211001", FullName: "Aarav Sharma", RollNo: "r1"})
	h.RegisterPresence(ctx, s, &model.User{StudentID: "2211001", FullName: "Aarav Sharma", RollNo: "r1", Department: "CSE"})

	users, _ := adapter.FindUsers(ctx)
	if len(users) != 1 {
		t.Fatalf("Expected 1 user after re-registration, got %d", len(users))
	}
	if users[0].LastSeen.IsZero() {
		t.Error("Expected LastSeen to be stamped")
	}
	if len(other.received(EventUpdateChatList)) != 2 {
		t.Errorf("Expected 2 invalidation signals, got %d", len(other.received(EventUpdateChatList)))
	}
}

func TestRemoveSession_CleansSubscriptions(t *testing.T) {
	h, _ := newTestHub()
	ctx := context.Background()

	s1 := &fakeSession{id: 1}
	s2 := &fakeSession{id: 2}
	h.AddSession(s1)
	h.AddSession(s2)
	h.JoinRoom(s1, "room-a")
	h.JoinRoom(s1, "room-b")
	h.JoinRoom(s2, "room-a")

	h.RemoveSession(ctx, s1)

	if h.RoomCount("room-a") != 1 {
		t.Errorf("Expected 1 subscriber left in room-a, got %d", h.RoomCount("room-a"))
	}
	if h.RoomCount("room-b") != 0 {
		t.Errorf("Expected room-b to be empty, got %d", h.RoomCount("room-b"))
	}

	// 断开后的发送不再投递给 s1
	h.HandleSend(ctx, SendRequest{ChatID: chatid.PublicLounge, Sender: "u1", Content: "x"})
	h.JoinRoom(s2, chatid.PublicLounge)
	h.HandleSend(ctx, SendRequest{ChatID: chatid.PublicLounge, Sender: "u1", Content: "y"})

	if len(s1.received(EventReceiveMessage)) != 0 {
		t.Error("Removed session must not receive messages")
	}
	if len(s2.received(EventReceiveMessage)) != 1 {
		t.Error("Remaining session should receive the second message")
	}
}
