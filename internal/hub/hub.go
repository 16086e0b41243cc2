// Package hub 实现聊天路由与在线中枢。
//
// 房间身份就是会话标识，订阅关系只是 chatId → 会话集合与会话 → chatId 集合
// 两张映射。所有路由操作（注册、入房、发送、建群）在同一把锁后串行化，
// 持久化调用是唯一的挂起点且受超时约束，同一房间的消息按持久化完成顺序广播。
package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sudooom.im.campus/internal/auth"
	"sudooom.im.campus/internal/model"
	"sudooom.im.campus/internal/presence"
	"sudooom.im.campus/internal/snowflake"
	"sudooom.im.campus/internal/store"
)

// 下行事件名
const (
	EventReceiveMessage = "receive-message"
	EventUpdateChatList = "update-chat-list"
)

// Event 下行事件信封
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Session 网关接入的一个客户端会话
// Send 必须是非阻塞的（内部排队），发送失败由网关负责断开
type Session interface {
	ID() int64
	Send(event Event) error
}

// SendRequest 一次发消息请求，网关已做过形参校验
type SendRequest struct {
	ChatID     string            `json:"chatId"`
	Sender     string            `json:"sender"`
	SenderName string            `json:"senderName"`
	Content    string            `json:"content"`
	Type       model.MessageType `json:"type"`
}

// CreateGroupRequest 建群请求
type CreateGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	CreatedBy   string   `json:"createdBy"`
	Members     []string `json:"members"`
	Image       string   `json:"image"`
}

// Hub 聊天路由与在线中枢
type Hub struct {
	mu           sync.Mutex
	sessions     map[int64]Session
	rooms        map[string]map[int64]Session // chatId -> 订阅会话
	sessionRooms map[int64]map[string]bool    // 会话 -> 已订阅 chatId，断开时清理用
	sessionUsers map[int64]string             // 会话 -> 学号，在线状态下线用

	store     *store.Fallback
	authority *auth.Authority
	presence  *presence.Tracker
	groupIDs  *snowflake.Node
	logger    *slog.Logger
}

// New 创建中枢
func New(st *store.Fallback, authority *auth.Authority, tracker *presence.Tracker, groupIDs *snowflake.Node) *Hub {
	return &Hub{
		sessions:     make(map[int64]Session),
		rooms:        make(map[string]map[int64]Session),
		sessionRooms: make(map[int64]map[string]bool),
		sessionUsers: make(map[int64]string),
		store:        st,
		authority:    authority,
		presence:     tracker,
		groupIDs:     groupIDs,
		logger:       slog.Default(),
	}
}

// AddSession 接入新会话
func (h *Hub) AddSession(s Session) {
	h.mu.Lock()
	h.sessions[s.ID()] = s
	total := len(h.sessions)
	h.mu.Unlock()
	h.logger.Info("Session connected", "sessionId", s.ID(), "total", total)
}

// RemoveSession 断开会话：退订全部房间，无其它副作用
func (h *Hub) RemoveSession(ctx context.Context, s Session) {
	h.mu.Lock()
	delete(h.sessions, s.ID())
	for chatID := range h.sessionRooms[s.ID()] {
		if subs, ok := h.rooms[chatID]; ok {
			delete(subs, s.ID())
			if len(subs) == 0 {
				delete(h.rooms, chatID)
			}
		}
	}
	delete(h.sessionRooms, s.ID())
	studentID := h.sessionUsers[s.ID()]
	delete(h.sessionUsers, s.ID())
	total := len(h.sessions)
	h.mu.Unlock()

	if studentID != "" {
		h.presence.Offline(ctx, studentID)
	}
	h.logger.Info("Session disconnected", "sessionId", s.ID(), "total", total)
}

// RegisterPresence 注册/刷新用户资料并广播列表失效信号
func (h *Hub) RegisterPresence(ctx context.Context, s Session, user *model.User) {
	user.LastSeen = time.Now()

	h.mu.Lock()
	h.sessionUsers[s.ID()] = user.StudentID
	// 写路径永不报错，降级在适配器内部消化
	h.store.SaveUser(ctx, user)
	h.mu.Unlock()

	h.presence.Touch(ctx, user.StudentID)
	h.logger.Info("User registered", "studentId", user.StudentID, "fullName", user.FullName)

	h.Broadcast(Event{Event: EventUpdateChatList})
}

// JoinRoom 订阅房间。入房不做鉴权——订阅廉价且无副作用，
// 鉴权在发送和历史读取时强制执行
func (h *Hub) JoinRoom(s Session, chatID string) {
	h.mu.Lock()
	if _, ok := h.rooms[chatID]; !ok {
		h.rooms[chatID] = make(map[int64]Session)
	}
	h.rooms[chatID][s.ID()] = s
	if _, ok := h.sessionRooms[s.ID()]; !ok {
		h.sessionRooms[s.ID()] = make(map[string]bool)
	}
	h.sessionRooms[s.ID()][chatID] = true
	h.mu.Unlock()

	h.logger.Debug("Session joined room", "sessionId", s.ID(), "chatId", chatID)
}

// HandleSend 处理发消息：鉴权 → 服务端定时间戳 → 持久化 → 广播。
// 鉴权失败静默丢弃，不给发送者任何回执
func (h *Hub) HandleSend(ctx context.Context, req SendRequest) {
	if !h.authority.CanWrite(ctx, req.Sender, req.ChatID) {
		h.logger.Warn("Dropping unauthorized message", "sender", req.Sender, "chatId", req.ChatID)
		return
	}

	if req.Type == "" {
		req.Type = model.MessageTypeText
	}

	// 时间戳、持久化与广播都在锁内完成：同一房间的消息按持久化完成
	// 顺序到达每个订阅者，且创建时间单调不减
	h.mu.Lock()
	msg := &model.Message{
		ChatID:     req.ChatID,
		Sender:     req.Sender,
		SenderName: req.SenderName,
		Content:    req.Content,
		Type:       req.Type,
		CreatedAt:  time.Now(),
	}
	h.store.SaveMessage(ctx, msg)

	event := Event{Event: EventReceiveMessage, Data: msg}
	for _, sub := range h.rooms[req.ChatID] {
		// 发送者自己的其它会话也会收到，天然实现多端回显
		if err := sub.Send(event); err != nil {
			h.logger.Debug("Failed to deliver message", "sessionId", sub.ID(), "error", err)
		}
	}
	h.mu.Unlock()
}

// CreateGroup 建群：创建者强制并入成员集，分配时间序 ID，持久化后广播列表失效信号
func (h *Hub) CreateGroup(ctx context.Context, req CreateGroupRequest) *model.Group {
	members := normalizeMembers(req.CreatedBy, req.Members)

	group := &model.Group{
		ID:          h.groupIDs.Generate().String(),
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
		Members:     members,
		Image:       req.Image,
		CreatedAt:   time.Now(),
	}

	h.mu.Lock()
	h.store.SaveGroup(ctx, group)
	h.mu.Unlock()

	h.logger.Info("Group created", "groupId", group.ID, "name", group.Name, "members", len(members))
	h.Broadcast(Event{Event: EventUpdateChatList})
	return group
}

// Broadcast 向所有在线会话广播事件（粗粒度失效信号等）
func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	sessions := make([]Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		if err := s.Send(event); err != nil {
			h.logger.Debug("Failed to broadcast event", "sessionId", s.ID(), "event", event.Event, "error", err)
		}
	}
}

// RoomCount 某房间当前订阅数（测试与诊断用）
func (h *Hub) RoomCount(chatID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[chatID])
}

// normalizeMembers 去重并保证创建者在成员集中
func normalizeMembers(createdBy string, members []string) []string {
	seen := map[string]bool{createdBy: true}
	result := []string{createdBy}
	for _, m := range members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		result = append(result, m)
	}
	return result
}
