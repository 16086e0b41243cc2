// Package chatid 定义会话标识的编码规则。
//
// 会话标识是一个字符串，三种形态：
//   - 公共大厅固定 ID
//   - 群组 ID（雪花 ID 的十进制字符串）
//   - 单聊复合 ID：两个学号排序后用保留分隔符拼接，天然可复现，无需落库
package chatid

import "strings"

const (
	// Separator 单聊复合 ID 的保留分隔符，学号中禁止出现
	Separator = "--"

	// PublicLounge 公共大厅的固定会话 ID
	PublicLounge = "campus-lounge"
)

// Direct 构造两个用户间的单聊会话 ID，与参数顺序无关
func Direct(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + Separator + b
}

// IsDirect 判断是否为单聊复合 ID
func IsDirect(chatID string) bool {
	return strings.Contains(chatID, Separator)
}

// Participants 解析单聊复合 ID 的两个参与者
func Participants(chatID string) (a, b string, ok bool) {
	parts := strings.SplitN(chatID, Separator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// IsParticipant 判断用户是否为该单聊的参与者之一
func IsParticipant(chatID, studentID string) bool {
	a, b, ok := Participants(chatID)
	if !ok {
		return false
	}
	return studentID == a || studentID == b
}
