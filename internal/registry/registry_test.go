package registry

import (
	"fmt"
	"sync"
	"testing"
)

// fakeSession 测试用会话实现
type fakeSession struct {
	id       int64
	userID   int64
	mu       sync.Mutex
	received [][]byte
	failing  bool
}

func (s *fakeSession) ID() int64     { return s.id }
func (s *fakeSession) UserID() int64 { return s.userID }

func (s *fakeSession) Send(data []byte) error {
	if s.failing {
		return fmt.Errorf("send failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, data)
	return nil
}

func (s *fakeSession) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func TestSubscribeAndDeliver(t *testing.T) {
	r := New()
	s1 := &fakeSession{id: 1, userID: 100}
	s2 := &fakeSession{id: 2, userID: 200}

	r.Subscribe("chat:1", s1)
	r.Subscribe("chat:1", s2)

	delivered := r.Deliver("chat:1", []byte("hello"), 0)
	if delivered != 2 {
		t.Errorf("Expected 2 deliveries, got %d", delivered)
	}
	if s1.count() != 1 || s2.count() != 1 {
		t.Error("Both sessions should receive the payload")
	}
}

func TestDeliverExcludesByIdentity(t *testing.T) {
	r := New()
	// 同一用户的两个连接
	s1 := &fakeSession{id: 1, userID: 100}
	s2 := &fakeSession{id: 2, userID: 100}
	s3 := &fakeSession{id: 3, userID: 200}

	r.Subscribe("chat:1", s1)
	r.Subscribe("chat:1", s2)
	r.Subscribe("chat:1", s3)

	delivered := r.Deliver("chat:1", []byte("typing"), 100)
	if delivered != 1 {
		t.Errorf("Expected 1 delivery, got %d", delivered)
	}
	if s1.count() != 0 || s2.count() != 0 {
		t.Error("Excluded identity should not receive on any connection")
	}
	if s3.count() != 1 {
		t.Error("Other identity should receive")
	}
}

func TestDeliverToUnknownChannel(t *testing.T) {
	r := New()
	if delivered := r.Deliver("chat:404", []byte("x"), 0); delivered != 0 {
		t.Errorf("Expected 0 deliveries, got %d", delivered)
	}
}

func TestSubscribeIdempotent(t *testing.T) {
	r := New()
	s := &fakeSession{id: 1, userID: 100}

	r.Subscribe("chat:1", s)
	r.Subscribe("chat:1", s)

	if r.Subscribers("chat:1") != 1 {
		t.Errorf("Expected 1 subscriber, got %d", r.Subscribers("chat:1"))
	}

	if delivered := r.Deliver("chat:1", []byte("x"), 0); delivered != 1 {
		t.Errorf("Expected 1 delivery, got %d", delivered)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	r := New()
	s := &fakeSession{id: 1, userID: 100}

	r.Subscribe("chat:1", s)
	r.Unsubscribe("chat:1", s)
	// 重复退订和退订不存在的频道都是空操作
	r.Unsubscribe("chat:1", s)
	r.Unsubscribe("chat:404", s)

	if r.Subscribers("chat:1") != 0 {
		t.Error("Expected no subscribers after unsubscribe")
	}
	if r.ChannelCount() != 0 {
		t.Error("Empty channel bucket should be removed")
	}
}

func TestDetachRemovesAllChannels(t *testing.T) {
	r := New()
	s := &fakeSession{id: 1, userID: 100}

	r.Subscribe("chat:1", s)
	r.Subscribe("notif:100", s)
	r.Detach(s)

	if r.Subscribers("chat:1") != 0 || r.Subscribers("notif:100") != 0 {
		t.Error("Detach should remove session from all channels")
	}
	if r.ChannelCount() != 0 {
		t.Error("Empty channel buckets should be removed")
	}
}

func TestDeliverSkipsFailingSession(t *testing.T) {
	r := New()
	failing := &fakeSession{id: 1, userID: 100, failing: true}
	ok := &fakeSession{id: 2, userID: 200}

	r.Subscribe("chat:1", failing)
	r.Subscribe("chat:1", ok)

	// 尽力而为：发送失败的会话直接略过，其余会话不受影响
	delivered := r.Deliver("chat:1", []byte("x"), 0)
	if delivered != 1 {
		t.Errorf("Expected 1 delivery, got %d", delivered)
	}
	if ok.count() != 1 {
		t.Error("Healthy session should still receive")
	}
}

func TestConcurrentSubscribeDeliver(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s := &fakeSession{id: int64(n), userID: int64(n)}
			channel := fmt.Sprintf("chat:%d", n%5)
			r.Subscribe(channel, s)
			r.Deliver(channel, []byte("x"), 0)
			r.Unsubscribe(channel, s)
		}(i)
	}

	wg.Wait()

	if r.ChannelCount() != 0 {
		t.Errorf("Expected 0 channels after all unsubscribes, got %d", r.ChannelCount())
	}
}
