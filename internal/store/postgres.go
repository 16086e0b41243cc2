package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.im.campus/internal/chatid"
	"sudooom.im.campus/internal/model"
)

// Postgres 持久后端
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres 创建 PostgreSQL 后端
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// InitSchema 建表并确保公共大厅存在
func (p *Postgres) InitSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			student_id TEXT PRIMARY KEY,
			full_name  TEXT NOT NULL,
			roll_no    TEXT NOT NULL,
			email      TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			photo_url  TEXT NOT NULL DEFAULT '',
			last_seen  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS groups (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_by  TEXT NOT NULL,
			members     TEXT[] NOT NULL DEFAULT '{}',
			image       TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id          BIGSERIAL PRIMARY KEY,
			chat_id     TEXT NOT NULL,
			sender      TEXT NOT NULL,
			sender_name TEXT NOT NULL DEFAULT '',
			content     TEXT NOT NULL,
			msg_type    TEXT NOT NULL DEFAULT 'text',
			created_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages (chat_id, created_at)`,
	}

	for _, stmt := range schema {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	// 公共大厅：成员集为空的保留群组
	_, err := p.db.Exec(ctx,
		`INSERT INTO groups (id, name, created_by, members)
		 VALUES ($1, $2, 'system', '{}')
		 ON CONFLICT (id) DO NOTHING`,
		chatid.PublicLounge, model.PublicLoungeName)
	return err
}

// SaveUser 以学号为键做 upsert
func (p *Postgres) SaveUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (student_id, full_name, roll_no, email, department, photo_url, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id) DO UPDATE SET
			full_name  = EXCLUDED.full_name,
			roll_no    = EXCLUDED.roll_no,
			email      = EXCLUDED.email,
			department = EXCLUDED.department,
			photo_url  = EXCLUDED.photo_url,
			last_seen  = EXCLUDED.last_seen
	`
	_, err := p.db.Exec(ctx, query,
		user.StudentID,
		user.FullName,
		user.RollNo,
		user.Email,
		user.Department,
		user.PhotoURL,
		user.LastSeen,
	)
	return err
}

// FindUsers 获取全部用户
func (p *Postgres) FindUsers(ctx context.Context) ([]model.User, error) {
	query := `
		SELECT student_id, full_name, roll_no, email, department, photo_url, last_seen
		FROM users ORDER BY full_name
	`
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.StudentID, &u.FullName, &u.RollNo, &u.Email, &u.Department, &u.PhotoURL, &u.LastSeen); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SaveGroup 保存群组
func (p *Postgres) SaveGroup(ctx context.Context, group *model.Group) error {
	query := `
		INSERT INTO groups (id, name, description, created_by, members, image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name        = EXCLUDED.name,
			description = EXCLUDED.description,
			members     = EXCLUDED.members,
			image       = EXCLUDED.image
	`
	_, err := p.db.Exec(ctx, query,
		group.ID,
		group.Name,
		group.Description,
		group.CreatedBy,
		group.Members,
		group.Image,
		group.CreatedAt,
	)
	return err
}

// FindGroup 根据 ID 查找群组
func (p *Postgres) FindGroup(ctx context.Context, id string) (*model.Group, error) {
	query := `
		SELECT id, name, description, created_by, members, image, created_at
		FROM groups WHERE id = $1
	`
	var g model.Group
	err := p.db.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.Members, &g.Image, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// FindGroupsForUser 获取用户可见的群组（成员群 + 公共大厅）
func (p *Postgres) FindGroupsForUser(ctx context.Context, studentID string) ([]model.Group, error) {
	query := `
		SELECT id, name, description, created_by, members, image, created_at
		FROM groups WHERE $1 = ANY(members) OR id = $2
		ORDER BY created_at
	`
	rows, err := p.db.Query(ctx, query, studentID, chatid.PublicLounge)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.Members, &g.Image, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// SaveMessage 追加消息
func (p *Postgres) SaveMessage(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (chat_id, sender, sender_name, content, msg_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := p.db.Exec(ctx, query,
		msg.ChatID,
		msg.Sender,
		msg.SenderName,
		msg.Content,
		string(msg.Type),
		msg.CreatedAt,
	)
	return err
}

// FindMessages 按创建时间升序返回某会话的全部消息
func (p *Postgres) FindMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	query := `
		SELECT chat_id, sender, sender_name, content, msg_type, created_at
		FROM messages WHERE chat_id = $1
		ORDER BY created_at, id
	`
	rows, err := p.db.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		var msgType string
		if err := rows.Scan(&m.ChatID, &m.Sender, &m.SenderName, &m.Content, &msgType, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = model.MessageType(msgType)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
