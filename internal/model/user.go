package model

import "time"

// User 用户实体
// 以校园统一认证下发的学号（StudentID）作为外部主键，登录或在线注册时创建/刷新，不做删除
type User struct {
	StudentID  string    `json:"studentId"`
	FullName   string    `json:"fullName"`
	RollNo     string    `json:"rollNo"`
	Email      string    `json:"email,omitempty"`
	Department string    `json:"department,omitempty"`
	PhotoURL   string    `json:"photoUrl,omitempty"`
	LastSeen   time.Time `json:"lastSeen"`
}
