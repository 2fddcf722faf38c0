package registry

import (
	"sync"
)

// Session 已订阅的实时会话
// 由 connection.Connection 实现；测试中可用假实现替代
type Session interface {
	ID() int64
	UserID() int64
	Send(data []byte) error
}

// Registry 组注册表
// 维护频道名到当前进程内活跃会话集合的映射
// 跨进程的订阅状态通过共享总线间接可见（见 bus 包）
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[int64]Session   // channel -> sessionID -> session
	sessions map[int64]map[string]struct{}  // sessionID -> 已订阅频道集合
}

// New 创建组注册表
func New() *Registry {
	return &Registry{
		channels: make(map[string]map[int64]Session),
		sessions: make(map[int64]map[string]struct{}),
	}
}

// Subscribe 将会话加入频道，幂等
func (r *Registry) Subscribe(channel string, sess Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.channels[channel]
	if bucket == nil {
		bucket = make(map[int64]Session)
		r.channels[channel] = bucket
	}
	bucket[sess.ID()] = sess

	membership := r.sessions[sess.ID()]
	if membership == nil {
		membership = make(map[string]struct{})
		r.sessions[sess.ID()] = membership
	}
	membership[channel] = struct{}{}
}

// Unsubscribe 将会话移出频道，幂等；空频道桶随之删除
func (r *Registry) Unsubscribe(channel string, sess Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked(channel, sess.ID())
}

// Detach 将会话移出其订阅的所有频道（连接关闭时调用）
func (r *Registry) Detach(sess Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel := range r.sessions[sess.ID()] {
		r.unsubscribeLocked(channel, sess.ID())
	}
}

// Deliver 将数据投递给频道内所有会话
// excludeUserID 非零时按用户身份跳过（而非按连接），
// 投递为尽力而为、至多一次：发送失败的会话直接略过
func (r *Registry) Deliver(channel string, data []byte, excludeUserID int64) int {
	r.mu.RLock()
	bucket := r.channels[channel]
	sessions := make([]Session, 0, len(bucket))
	for _, sess := range bucket {
		sessions = append(sessions, sess)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sess := range sessions {
		if excludeUserID != 0 && sess.UserID() == excludeUserID {
			continue
		}
		if err := sess.Send(data); err == nil {
			delivered++
		}
	}
	return delivered
}

// Subscribers 获取频道当前订阅数
func (r *Registry) Subscribers(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channel])
}

// ChannelCount 获取活跃频道数（用于监控）
func (r *Registry) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// unsubscribeLocked 持锁状态下移除订阅
func (r *Registry) unsubscribeLocked(channel string, sessionID int64) {
	bucket := r.channels[channel]
	if bucket == nil {
		return
	}
	delete(bucket, sessionID)
	if len(bucket) == 0 {
		delete(r.channels, channel)
	}

	if membership, ok := r.sessions[sessionID]; ok {
		delete(membership, channel)
		if len(membership) == 0 {
			delete(r.sessions, sessionID)
		}
	}
}
