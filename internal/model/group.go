package model

import (
	"time"

	"sudooom.im.campus/internal/chatid"
)

// PublicLoungeName 公共大厅的显示名
const PublicLoungeName = "Campus Public Lounge"

// PublicLounge 构造默认的公共大厅群组
func PublicLounge() Group {
	return Group{
		ID:        chatid.PublicLounge,
		Name:      PublicLoungeName,
		CreatedBy: "system",
		Members:   []string{},
	}
}

// Group 群组实体
// Members 始终包含 CreatedBy；公共大厅是唯一的例外（成员集为空，所有人可读写）
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	Members     []string  `json:"members"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasMember 判断用户是否在成员集中
func (g *Group) HasMember(studentID string) bool {
	for _, m := range g.Members {
		if m == studentID {
			return true
		}
	}
	return false
}
