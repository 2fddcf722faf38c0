package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/model"
	"sudooom.social.realtime/internal/snowflake"
)

type fakeFollowStore struct {
	follows map[int64]*model.Follow
}

func (f *fakeFollowStore) Get(ctx context.Context, followerID, followingID int64) (*model.Follow, error) {
	for _, follow := range f.follows {
		if follow.FollowerID == followerID && follow.FollowingID == followingID {
			return follow, nil
		}
	}
	return nil, apperrors.ErrFollowNotFound
}

func (f *fakeFollowStore) GetByID(ctx context.Context, followID int64) (*model.Follow, error) {
	follow, ok := f.follows[followID]
	if !ok {
		return nil, apperrors.ErrFollowNotFound
	}
	return follow, nil
}

func (f *fakeFollowStore) Create(ctx context.Context, follow *model.Follow) error {
	f.follows[follow.ID] = follow
	return nil
}

func (f *fakeFollowStore) Accept(ctx context.Context, followID int64) error {
	follow, ok := f.follows[followID]
	if !ok {
		return apperrors.ErrFollowNotFound
	}
	follow.Status = model.FollowAccepted
	return nil
}

func (f *fakeFollowStore) Delete(ctx context.Context, followID int64) error {
	delete(f.follows, followID)
	return nil
}

type fakeDirectConvStore struct {
	existing map[[2]int64]int64
	created  [][2]int64
}

func (f *fakeDirectConvStore) FindDirect(ctx context.Context, userA, userB int64) (int64, error) {
	if id, ok := f.existing[[2]int64{userA, userB}]; ok {
		return id, nil
	}
	if id, ok := f.existing[[2]int64{userB, userA}]; ok {
		return id, nil
	}
	return 0, nil
}

func (f *fakeDirectConvStore) CreateDirect(ctx context.Context, conversationID, userA, userB int64) error {
	f.created = append(f.created, [2]int64{userA, userB})
	return nil
}

type fakeFollowNotifier struct {
	requested []*model.Follow
	added     []*model.Follow
	accepted  []*model.Follow
}

func (f *fakeFollowNotifier) FollowRequested(ctx context.Context, follow *model.Follow) {
	f.requested = append(f.requested, follow)
}

func (f *fakeFollowNotifier) FollowerAdded(ctx context.Context, follow *model.Follow) {
	f.added = append(f.added, follow)
}

func (f *fakeFollowNotifier) FollowAccepted(ctx context.Context, follow *model.Follow) {
	f.accepted = append(f.accepted, follow)
}

type fakePruner struct {
	pruned []model.SubjectRef
}

func (f *fakePruner) DeleteBySubject(ctx context.Context, subject model.SubjectRef) (int64, error) {
	f.pruned = append(f.pruned, subject)
	return 1, nil
}

func newFollowFixture() (*FollowService, *fakeFollowStore, *fakeDirectConvStore, *fakeFollowNotifier, *fakePruner) {
	followStore := &fakeFollowStore{follows: map[int64]*model.Follow{}}
	convStore := &fakeDirectConvStore{existing: map[[2]int64]int64{}}
	profiles := &fakeProfiles{profiles: map[int64]*model.UserProfile{
		100: {ID: 100, Username: "alice"},
		200: {ID: 200, Username: "bob"},
		300: {ID: 300, Username: "carol", RequireApproval: true},
		400: {ID: 400, Username: "root", IsAdmin: true},
	}}
	notifier := &fakeFollowNotifier{}
	pruner := &fakePruner{}
	svc := NewFollowService(followStore, convStore, profiles, notifier, pruner, snowflake.NewNode(3))
	return svc, followStore, convStore, notifier, pruner
}

func TestFollowSendRejectsSelf(t *testing.T) {
	svc, _, _, _, _ := newFollowFixture()

	_, err := svc.Send(context.Background(), 100, 100)
	assert.True(t, apperrors.Is(err, apperrors.ErrCannotFollowSelf))
}

func TestFollowSendRejectsDuplicates(t *testing.T) {
	svc, followStore, _, _, _ := newFollowFixture()

	followStore.follows[1] = &model.Follow{ID: 1, FollowerID: 100, FollowingID: 200, Status: model.FollowAccepted}
	_, err := svc.Send(context.Background(), 100, 200)
	assert.True(t, apperrors.Is(err, apperrors.ErrAlreadyFollowing))

	followStore.follows[2] = &model.Follow{ID: 2, FollowerID: 100, FollowingID: 300, Status: model.FollowPending}
	_, err = svc.Send(context.Background(), 100, 300)
	assert.True(t, apperrors.Is(err, apperrors.ErrRequestPending))
}

func TestFollowSendAutoAccepts(t *testing.T) {
	svc, _, convStore, notifier, _ := newFollowFixture()

	// bob 未开启审批，关注边直接接受
	follow, err := svc.Send(context.Background(), 100, 200)
	require.NoError(t, err)

	assert.Equal(t, model.FollowAccepted, follow.Status)
	require.Len(t, notifier.added, 1)
	assert.Empty(t, notifier.requested)

	// 自动接受后两人之间建立 1:1 会话
	require.Len(t, convStore.created, 1)
	assert.Equal(t, [2]int64{100, 200}, convStore.created[0])
}

func TestFollowSendStaysPendingWithApproval(t *testing.T) {
	svc, _, convStore, notifier, _ := newFollowFixture()

	// carol 开启了审批
	follow, err := svc.Send(context.Background(), 100, 300)
	require.NoError(t, err)

	assert.Equal(t, model.FollowPending, follow.Status)
	require.Len(t, notifier.requested, 1)
	assert.Empty(t, notifier.added)
	assert.Empty(t, convStore.created)
}

func TestFollowSendAdminBypassesApproval(t *testing.T) {
	svc, _, _, notifier, _ := newFollowFixture()

	// 管理员关注开启审批的用户也直接接受
	follow, err := svc.Send(context.Background(), 400, 300)
	require.NoError(t, err)

	assert.Equal(t, model.FollowAccepted, follow.Status)
	require.Len(t, notifier.added, 1)
	assert.Empty(t, notifier.requested)
}

func TestFollowAccept(t *testing.T) {
	svc, followStore, convStore, notifier, _ := newFollowFixture()
	followStore.follows[1] = &model.Follow{ID: 1, FollowerID: 100, FollowingID: 300, Status: model.FollowPending}

	require.NoError(t, svc.Accept(context.Background(), 1, 300))

	assert.Equal(t, model.FollowAccepted, followStore.follows[1].Status)
	require.Len(t, notifier.accepted, 1)
	require.Len(t, convStore.created, 1)
	assert.Equal(t, [2]int64{100, 300}, convStore.created[0])
}

func TestFollowAcceptRejectsWrongApprover(t *testing.T) {
	svc, followStore, _, notifier, _ := newFollowFixture()
	followStore.follows[1] = &model.Follow{ID: 1, FollowerID: 100, FollowingID: 300, Status: model.FollowPending}

	// 只有被关注者本人可以接受
	err := svc.Accept(context.Background(), 1, 200)
	assert.True(t, apperrors.Is(err, apperrors.ErrFollowNotFound))
	assert.Equal(t, model.FollowPending, followStore.follows[1].Status)
	assert.Empty(t, notifier.accepted)
}

func TestFollowAcceptSkipsExistingConversation(t *testing.T) {
	svc, followStore, convStore, _, _ := newFollowFixture()
	followStore.follows[1] = &model.Follow{ID: 1, FollowerID: 100, FollowingID: 300, Status: model.FollowPending}
	convStore.existing[[2]int64{100, 300}] = 77

	require.NoError(t, svc.Accept(context.Background(), 1, 300))
	assert.Empty(t, convStore.created, "existing conversation must not be duplicated")
}

func TestFollowDecline(t *testing.T) {
	svc, followStore, _, _, pruner := newFollowFixture()
	followStore.follows[1] = &model.Follow{ID: 1, FollowerID: 100, FollowingID: 300, Status: model.FollowPending}

	require.NoError(t, svc.Decline(context.Background(), 1, 300))

	assert.Empty(t, followStore.follows)
	assert.Equal(t, []model.SubjectRef{{Kind: model.SubjectFollow, ID: 1}}, pruner.pruned)
}

func TestFollowCancel(t *testing.T) {
	svc, followStore, _, _, pruner := newFollowFixture()
	followStore.follows[1] = &model.Follow{ID: 1, FollowerID: 100, FollowingID: 300, Status: model.FollowPending}

	require.NoError(t, svc.Cancel(context.Background(), 100, 300))

	assert.Empty(t, followStore.follows)
	require.Len(t, pruner.pruned, 1)
}

func TestFollowCancelRejectsAcceptedEdge(t *testing.T) {
	svc, followStore, _, _, _ := newFollowFixture()
	followStore.follows[1] = &model.Follow{ID: 1, FollowerID: 100, FollowingID: 200, Status: model.FollowAccepted}

	// 已接受的关注边只能走取关，不能撤回
	err := svc.Cancel(context.Background(), 100, 200)
	assert.True(t, apperrors.Is(err, apperrors.ErrFollowNotFound))
	assert.Len(t, followStore.follows, 1)
}

func TestUnfollow(t *testing.T) {
	svc, followStore, _, _, pruner := newFollowFixture()
	followStore.follows[1] = &model.Follow{ID: 1, FollowerID: 100, FollowingID: 200, Status: model.FollowAccepted}

	require.NoError(t, svc.Unfollow(context.Background(), 100, 200))

	assert.Empty(t, followStore.follows)
	require.Len(t, pruner.pruned, 1)
	assert.Equal(t, int64(1), pruner.pruned[0].ID)
}
