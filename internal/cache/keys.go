package cache

import "fmt"

// Redis Key 规范
// social:notif:unread:{userId}   String  用户未读通知数
const (
	keyPrefix = "social:"

	// 未读计数缓存过期时间，过期后回源重算
	unreadTTLSeconds = 3600
)

// BuildUnreadKey 构造用户未读通知数的 Key
func BuildUnreadKey(userID int64) string {
	return fmt.Sprintf("%snotif:unread:%d", keyPrefix, userID)
}
