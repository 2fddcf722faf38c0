package model

import "time"

// ============== 用户 ==============

// UserProfile 用户公开资料（由账号系统维护，本服务只读）
type UserProfile struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	Slug            string `json:"slug"`
	Img             string `json:"img"`
	Verified        bool   `json:"verified"`
	IsAdmin         bool   `json:"is_admin"`
	RequireApproval bool   `json:"require_approval"` // 开启后新关注需要审批
}

// ============== 会话与消息 ==============

// Conversation 会话
// 非群聊会话固定两个参与者；群聊会话包含管理员子集
type Conversation struct {
	ID         int64
	IsGroup    bool
	GroupName  string
	GroupImage string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Message 消息，创建后除已读状态外不可变
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	Content        string
	Read           bool
	Timestamp      time.Time
	Attachments    []Attachment
}

// Attachment 消息附件
type Attachment struct {
	ID         int64
	MessageID  int64
	FileName   string // 原始文件名
	StoredName string // 落盘文件名
	FileType   string // 声明的媒体类型（image/video/audio/...）
	Size       int64
	UploadedAt time.Time
}

// ============== 通知 ==============

// NotificationKind 通知类型
type NotificationKind string

const (
	KindFollowAccepted NotificationKind = "Follow Accepted"
	KindFollowRequest  NotificationKind = "Follow Request"
	KindNewFollower    NotificationKind = "New Follower"
	KindComment        NotificationKind = "Comment"
	KindLike           NotificationKind = "Like"
	KindMessage        NotificationKind = "Message"
)

// SubjectKind 通知主体实体类型（封闭集合）
type SubjectKind string

const (
	SubjectPost    SubjectKind = "post"
	SubjectComment SubjectKind = "comment"
	SubjectMessage SubjectKind = "message"
	SubjectFollow  SubjectKind = "follow"
)

// SubjectRef 通知主体引用
// 标签联合：实体类型 + 标识，通过每种类型的显式查询函数解析，
// 不持有实体本身（弱引用，主体删除后由后台清理任务级联删除通知）
type SubjectRef struct {
	Kind SubjectKind `json:"kind"`
	ID   int64       `json:"id"`
}

// Notification 通知记录
type Notification struct {
	ID          int64
	ActorID     int64
	RecipientID int64
	Kind        NotificationKind
	Subject     SubjectRef
	Read        bool
	CreatedAt   time.Time
}

// ============== 关注 ==============

// FollowStatus 关注边状态
type FollowStatus string

const (
	FollowPending  FollowStatus = "pending"
	FollowAccepted FollowStatus = "accepted"
)

// Follow 关注边
type Follow struct {
	ID          int64
	FollowerID  int64
	FollowingID int64
	Status      FollowStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ============== 内容 ==============

// Comment 帖子评论
type Comment struct {
	ID        int64
	UserID    int64
	PostID    int64
	ParentID  int64 // 0 表示非回复
	Comment   string
	CreatedAt time.Time
}

// Like 点赞（主体为帖子或评论）
type Like struct {
	ID        int64
	UserID    int64
	Subject   SubjectRef
	CreatedAt time.Time
}

// ============== 故事 ==============

// Story 限时故事，默认 24 小时后过期
type Story struct {
	ID        int64
	UserID    int64
	File      string
	Caption   string
	CreatedAt time.Time
	ExpiresAt time.Time
}
