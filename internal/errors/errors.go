package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 用于统一管理业务错误，包含错误码和错误消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError // 默认返回服务器错误
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务器内部错误"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeUnauthorized = 10001
	CodeTokenInvalid = 10002
	CodeTokenExpired = 10003

	// 请求参数相关 11000-11999
	CodeInvalidParams = 11001

	// 会话相关 12000-12999
	CodeConversationNotFound = 12001
	CodeNotParticipant       = 12002

	// 消息/附件相关 13000-13999
	CodeEmptyMessage       = 13001
	CodeAttachmentTooLarge = 13002
	CodeAttachmentType     = 13003
	CodeMessageNotFound    = 13004

	// 通知相关 14000-14999
	CodeNotificationNotFound = 14001

	// 关注相关 15000-15999
	CodeCannotFollowSelf = 15001
	CodeAlreadyFollowing = 15002
	CodeRequestPending   = 15003
	CodeFollowNotFound   = 15004
	CodeUserNotFound     = 15005

	// 系统错误 50000-50999
	CodeServerError   = 50001
	CodeDBError       = 50002
	CodeBadFrame      = 50003
	CodeUnknownFrame  = 50004
	CodePublishFailed = 50005
)

// ============== 预定义错误 ==============

// 认证相关
var (
	ErrUnauthorized = NewError(CodeUnauthorized, "未登录或登录已失效")
	ErrTokenInvalid = NewError(CodeTokenInvalid, "Token 无效")
	ErrTokenExpired = NewError(CodeTokenExpired, "Token 已过期")
)

// 请求参数相关
var (
	ErrInvalidParams = NewError(CodeInvalidParams, "参数校验失败")
)

// 会话相关
var (
	ErrConversationNotFound = NewError(CodeConversationNotFound, "会话不存在")
	ErrNotParticipant       = NewError(CodeNotParticipant, "不是该会话的参与者")
)

// 消息/附件相关
var (
	ErrEmptyMessage       = NewError(CodeEmptyMessage, "消息内容和附件不能同时为空")
	ErrAttachmentTooLarge = NewError(CodeAttachmentTooLarge, "附件大小超过 10MB 限制")
	ErrAttachmentType     = NewError(CodeAttachmentType, "附件格式不支持")
	ErrMessageNotFound    = NewError(CodeMessageNotFound, "消息不存在")
)

// 通知相关
var (
	ErrNotificationNotFound = NewError(CodeNotificationNotFound, "通知不存在")
)

// 关注相关
var (
	ErrCannotFollowSelf = NewError(CodeCannotFollowSelf, "不能关注自己")
	ErrAlreadyFollowing = NewError(CodeAlreadyFollowing, "已经关注该用户")
	ErrRequestPending   = NewError(CodeRequestPending, "关注请求待处理中")
	ErrFollowNotFound   = NewError(CodeFollowNotFound, "关注关系不存在")
	ErrUserNotFound     = NewError(CodeUserNotFound, "用户不存在")
)

// 系统相关
var (
	ErrServerError  = NewError(CodeServerError, "服务器内部错误")
	ErrDBError      = NewError(CodeDBError, "数据库错误")
	ErrBadFrame     = NewError(CodeBadFrame, "消息格式错误")
	ErrUnknownFrame = NewError(CodeUnknownFrame, "未知的消息类型")
)
