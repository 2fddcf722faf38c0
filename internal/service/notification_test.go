package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.social.realtime/internal/model"
)

type fakeNotifGateway struct {
	unread     int64
	markedRead [][2]int64
	markedAll  []int64
	countCalls int
}

func (f *fakeNotifGateway) MarkRead(ctx context.Context, notificationID, recipientID int64) error {
	f.markedRead = append(f.markedRead, [2]int64{notificationID, recipientID})
	if f.unread > 0 {
		f.unread--
	}
	return nil
}

func (f *fakeNotifGateway) MarkAllRead(ctx context.Context, recipientID int64) error {
	f.markedAll = append(f.markedAll, recipientID)
	f.unread = 0
	return nil
}

func (f *fakeNotifGateway) UnreadCount(ctx context.Context, recipientID int64) (int64, error) {
	f.countCalls++
	return f.unread, nil
}

func (f *fakeNotifGateway) ListRecent(ctx context.Context, recipientID int64, limit int) ([]model.Notification, error) {
	return nil, nil
}

type fakeUnreadCache struct {
	values      map[int64]int64
	invalidated []int64
}

func (f *fakeUnreadCache) Get(ctx context.Context, userID int64) (int64, bool) {
	count, ok := f.values[userID]
	return count, ok
}

func (f *fakeUnreadCache) Set(ctx context.Context, userID, count int64) {
	f.values[userID] = count
}

func (f *fakeUnreadCache) Invalidate(ctx context.Context, userID int64) {
	delete(f.values, userID)
	f.invalidated = append(f.invalidated, userID)
}

func newNotificationFixture() (*NotificationService, *fakeNotifGateway, *fakeUnreadCache) {
	gateway := &fakeNotifGateway{}
	cache := &fakeUnreadCache{values: map[int64]int64{}}
	return NewNotificationService(gateway, cache), gateway, cache
}

func TestUnreadCountCacheFirst(t *testing.T) {
	svc, gateway, cache := newNotificationFixture()
	cache.values[100] = 7

	count, err := svc.UnreadCount(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.Equal(t, 0, gateway.countCalls, "cache hit must not touch the database")
}

func TestUnreadCountFallsBackAndWarmsCache(t *testing.T) {
	svc, gateway, cache := newNotificationFixture()
	gateway.unread = 3

	count, err := svc.UnreadCount(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, 1, gateway.countCalls)
	assert.Equal(t, int64(3), cache.values[100], "miss should warm the cache")
}

func TestMarkReadInvalidatesAndReturnsCount(t *testing.T) {
	svc, gateway, cache := newNotificationFixture()
	gateway.unread = 2
	cache.values[100] = 2

	count, err := svc.MarkRead(context.Background(), 55, 100)
	require.NoError(t, err)

	assert.Equal(t, [][2]int64{{55, 100}}, gateway.markedRead)
	assert.Equal(t, []int64{100}, cache.invalidated)
	assert.Equal(t, int64(1), count)
}

func TestMarkAllRead(t *testing.T) {
	svc, gateway, _ := newNotificationFixture()
	gateway.unread = 5

	count, err := svc.MarkAllRead(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, []int64{100}, gateway.markedAll)
	assert.Equal(t, int64(0), count)
}
