package wire

import "encoding/json"

// 客户端帧类型
const (
	FrameChatMessage    = "chat_message"
	FrameTyping         = "typing"
	FrameError          = "error"
	FrameMarkRead       = "mark_read"
	FrameMarkAllRead    = "mark_all_read"
	FrameGetUnreadCount = "get_unread_count"
	FrameUnreadCount    = "unread_count"
	FrameNotification   = "notification"
)

// ============== 上行帧 (Client -> Server) ==============

// ChatInbound 聊天频道上行帧
type ChatInbound struct {
	Type        string              `json:"type"`
	Message     string              `json:"message"`
	IsTyping    bool                `json:"is_typing"`
	Attachments []InboundAttachment `json:"attachments,omitempty"`
}

// InboundAttachment 上行附件，内容为 base64 编码
type InboundAttachment struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// NotifInbound 通知频道上行帧
type NotifInbound struct {
	Type           string `json:"type"`
	NotificationID int64  `json:"notification_id,omitempty"`
}

// ============== 下行帧 (Server -> Client) ==============

// ChatMessageFrame 聊天消息下行帧
type ChatMessageFrame struct {
	Type        string            `json:"type"`
	Message     string            `json:"message"`
	Username    string            `json:"username"`
	UserID      int64             `json:"user_id"`
	UserAvatar  string            `json:"user_avatar"`
	Timestamp   string            `json:"timestamp"`
	MessageID   int64             `json:"message_id"`
	Attachments []AttachmentProps `json:"attachments,omitempty"`
}

// AttachmentProps 下行附件元信息
type AttachmentProps struct {
	URL  string `json:"url"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// TypingFrame 输入状态下行帧
type TypingFrame struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	UserID   int64  `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// ErrorFrame 错误下行帧，只发给出错的会话
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// UnreadCountFrame 未读数下行帧
type UnreadCountFrame struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// ActorProps 通知发起者公开资料
type ActorProps struct {
	Username string `json:"username"`
	Slug     string `json:"slug"`
	Img      string `json:"img"`
	Verified bool   `json:"verified"`
}

// NotificationFrame 通知下行帧
type NotificationFrame struct {
	Type             string          `json:"type"`
	ID               int64           `json:"id"`
	Message          string          `json:"message"`
	NotificationType string          `json:"notification_type"`
	Actor            ActorProps      `json:"actor"`
	Data             json.RawMessage `json:"data,omitempty"`
	Timestamp        string          `json:"timestamp"`
	Read             bool            `json:"read"`
}

// ============== 总线封包 ==============

// Envelope 总线事件封包
// ExcludeUserID 非零时，投递端按身份（而非连接）跳过该用户的所有会话
type Envelope struct {
	Channel       string          `json:"channel"`
	ExcludeUserID int64           `json:"exclude_user_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}
