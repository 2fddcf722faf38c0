package wire

import (
	"fmt"
	"strings"
)

// 频道命名规则
// 聊天频道: chat:<conversation-id>，通知频道: notif:<user-id>
const (
	ChatChannelPrefix  = "chat:"
	NotifChannelPrefix = "notif:"
)

// NATS Subject 常量定义
const (
	// SubjectFanoutPrefix 广播事件 Subject 前缀
	// 完整格式: social.fanout.{chat|notif}.{id}
	SubjectFanoutPrefix = "social.fanout."

	// SubjectFanoutWildcard 节点订阅用通配 Subject
	SubjectFanoutWildcard = "social.fanout.>"
)

// BuildChatChannel 构建会话聊天频道名
func BuildChatChannel(conversationID int64) string {
	return fmt.Sprintf("%s%d", ChatChannelPrefix, conversationID)
}

// BuildNotifChannel 构建用户通知频道名
func BuildNotifChannel(userID int64) string {
	return fmt.Sprintf("%s%d", NotifChannelPrefix, userID)
}

// BuildFanoutSubject 将频道名映射为 NATS Subject
// 频道名中的冒号替换为点号，如 chat:42 -> social.fanout.chat.42
func BuildFanoutSubject(channel string) string {
	return SubjectFanoutPrefix + strings.ReplaceAll(channel, ":", ".")
}
