package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"sudooom.im.campus/internal/chatid"
	"sudooom.im.campus/internal/model"
)

// snapshotRecord 快照文件布局：三个具名集合的单个 JSON 对象
type snapshotRecord struct {
	Users    []model.User    `json:"users"`
	Groups   []model.Group   `json:"groups"`
	Messages []model.Message `json:"messages"`
}

// Memory 进程内镜像
// 每次变更后全量重写快照文件（临时文件 + rename），写路径不向调用方暴露快照错误
type Memory struct {
	mu           sync.RWMutex
	users        map[string]model.User
	groups       map[string]model.Group
	messages     []model.Message
	snapshotPath string
	logger       *slog.Logger
}

// NewMemory 创建镜像，snapshotPath 为空时不落盘
func NewMemory(snapshotPath string) *Memory {
	m := &Memory{
		users:        make(map[string]model.User),
		groups:       make(map[string]model.Group),
		snapshotPath: snapshotPath,
		logger:       slog.Default(),
	}
	lounge := model.PublicLounge()
	m.groups[lounge.ID] = lounge
	return m
}

// LoadSnapshot 从快照文件恢复镜像内容，文件不存在时静默跳过
func (m *Memory) LoadSnapshot() error {
	if m.snapshotPath == "" {
		return nil
	}

	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range rec.Users {
		m.users[u.StudentID] = u
	}
	for _, g := range rec.Groups {
		m.groups[g.ID] = g
	}
	m.messages = append(m.messages, rec.Messages...)

	// 公共大厅始终存在
	if _, ok := m.groups[chatid.PublicLounge]; !ok {
		lounge := model.PublicLounge()
		m.groups[lounge.ID] = lounge
	}

	m.logger.Info("Mirror seeded from snapshot",
		"path", m.snapshotPath,
		"users", len(rec.Users),
		"groups", len(rec.Groups),
		"messages", len(rec.Messages))
	return nil
}

// persist 全量重写快照文件，调用方必须持有锁
func (m *Memory) persist() {
	if m.snapshotPath == "" {
		return
	}

	rec := snapshotRecord{
		Users:    make([]model.User, 0, len(m.users)),
		Groups:   make([]model.Group, 0, len(m.groups)),
		Messages: m.messages,
	}
	for _, u := range m.users {
		rec.Users = append(rec.Users, u)
	}
	for _, g := range m.groups {
		rec.Groups = append(rec.Groups, g)
	}
	if rec.Messages == nil {
		rec.Messages = []model.Message{}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		m.logger.Error("Failed to marshal snapshot", "error", err)
		return
	}

	tmp := m.snapshotPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(m.snapshotPath), 0o755); err != nil {
		m.logger.Error("Failed to create snapshot dir", "error", err)
		return
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		m.logger.Error("Failed to write snapshot", "error", err)
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		m.logger.Error("Failed to replace snapshot", "error", err)
	}
}

// SaveUser 以学号为键做 upsert
func (m *Memory) SaveUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.StudentID] = *user
	m.persist()
	return nil
}

// FindUsers 获取全部用户（按姓名排序，保证输出稳定）
func (m *Memory) FindUsers(_ context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].FullName < users[j].FullName })
	return users, nil
}

// SaveGroup 保存群组
func (m *Memory) SaveGroup(_ context.Context, group *model.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group.ID] = *group
	m.persist()
	return nil
}

// FindGroup 根据 ID 查找群组
func (m *Memory) FindGroup(_ context.Context, id string) (*model.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

// FindGroupsForUser 获取用户可见的群组（成员群 + 公共大厅）
func (m *Memory) FindGroupsForUser(_ context.Context, studentID string) ([]model.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var groups []model.Group
	for _, g := range m.groups {
		if g.ID == chatid.PublicLounge || g.HasMember(studentID) {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.Before(groups[j].CreatedAt) })
	return groups, nil
}

// SaveMessage 追加消息
func (m *Memory) SaveMessage(_ context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	m.persist()
	return nil
}

// FindMessages 按创建时间升序返回某会话的全部消息
func (m *Memory) FindMessages(_ context.Context, chatID string) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var messages []model.Message
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			messages = append(messages, msg)
		}
	}
	// 追加写入本身有序，排序兜底快照乱序的情况
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].CreatedAt.Before(messages[j].CreatedAt) })
	return messages, nil
}
