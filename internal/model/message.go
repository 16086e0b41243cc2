package model

import "time"

// MessageType 消息类型
type MessageType string

const (
	MessageTypeText  MessageType = "text"  // 文本
	MessageTypeImage MessageType = "image" // 图片
)

// Message 消息实体
// 一经创建不可变，只追加不修改；CreatedAt 由服务端统一分配
type Message struct {
	ChatID     string      `json:"chatId"`
	Sender     string      `json:"sender"`
	SenderName string      `json:"senderName"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	CreatedAt  time.Time   `json:"createdAt"`
}
