package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.social.realtime/internal/attachment"
	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/model"
	"sudooom.social.realtime/internal/snowflake"
	"sudooom.social.realtime/internal/wire"
)

type fakeConvStore struct {
	participants map[int64][]int64
	touched      []int64
}

func (f *fakeConvStore) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	for _, id := range f.participants[conversationID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConvStore) Participants(ctx context.Context, conversationID int64) ([]int64, error) {
	return f.participants[conversationID], nil
}

func (f *fakeConvStore) Touch(ctx context.Context, conversationID int64) error {
	f.touched = append(f.touched, conversationID)
	return nil
}

type fakeMsgStore struct {
	created       []*model.Message
	attachments   []*model.Attachment
	deleted       []int64
	markedRead    [][2]int64
	attachmentErr error
}

func (f *fakeMsgStore) Create(ctx context.Context, msg *model.Message) error {
	f.created = append(f.created, msg)
	return nil
}

func (f *fakeMsgStore) AddAttachment(ctx context.Context, att *model.Attachment) error {
	if f.attachmentErr != nil {
		return f.attachmentErr
	}
	f.attachments = append(f.attachments, att)
	return nil
}

func (f *fakeMsgStore) Delete(ctx context.Context, messageID int64) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMsgStore) MarkConversationRead(ctx context.Context, conversationID, readerID int64) error {
	f.markedRead = append(f.markedRead, [2]int64{conversationID, readerID})
	return nil
}

type fakeMessageNotifier struct {
	messages   []*model.Message
	recipients [][]int64
}

func (f *fakeMessageNotifier) MessageCreated(ctx context.Context, msg *model.Message, recipientIDs []int64) {
	f.messages = append(f.messages, msg)
	f.recipients = append(f.recipients, recipientIDs)
}

func newChatFixture(t *testing.T) (*ChatService, *fakeConvStore, *fakeMsgStore, *fakeMessageNotifier, *fakeDispatcher, string) {
	t.Helper()
	dir := t.TempDir()
	storage, err := attachment.NewStorage(dir)
	require.NoError(t, err)

	convStore := &fakeConvStore{participants: map[int64][]int64{
		1: {100, 200},
	}}
	msgStore := &fakeMsgStore{}
	notifier := &fakeMessageNotifier{}
	dispatcher := &fakeDispatcher{}
	svc := NewChatService(convStore, msgStore, storage, dispatcher, notifier, snowflake.NewNode(2))
	return svc, convStore, msgStore, notifier, dispatcher, dir
}

func sender() *model.UserProfile {
	return &model.UserProfile{ID: 100, Username: "alice", Img: "/media/alice.png"}
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	svc, _, msgStore, _, dispatcher, _ := newChatFixture(t)

	outsider := &model.UserProfile{ID: 999, Username: "mallory"}
	_, err := svc.SendMessage(context.Background(), 1, outsider, "hi", nil)

	assert.True(t, apperrors.Is(err, apperrors.ErrNotParticipant))
	assert.Empty(t, msgStore.created)
	assert.Empty(t, dispatcher.calls)
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	svc, _, msgStore, _, _, _ := newChatFixture(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.SendMessage(context.Background(), 1, sender(), text, nil)
		assert.True(t, apperrors.Is(err, apperrors.ErrEmptyMessage), "text %q should be rejected", text)
	}
	assert.Empty(t, msgStore.created)
}

func TestSendMessageBroadcastsAndNotifies(t *testing.T) {
	svc, convStore, msgStore, notifier, dispatcher, _ := newChatFixture(t)

	frame, err := svc.SendMessage(context.Background(), 1, sender(), "  hello there  ", nil)
	require.NoError(t, err)

	require.Len(t, msgStore.created, 1)
	assert.Equal(t, "hello there", msgStore.created[0].Content)
	assert.Equal(t, []int64{1}, convStore.touched)

	assert.Equal(t, "chat_message", frame.Type)
	assert.Equal(t, "hello there", frame.Message)
	assert.Equal(t, "alice", frame.Username)
	assert.Equal(t, int64(100), frame.UserID)
	assert.NotZero(t, frame.MessageID)

	// 广播到聊天频道，不按身份排除：发送者的其他连接也要收到
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, "chat:1", dispatcher.calls[0].channel)
	assert.Equal(t, int64(0), dispatcher.calls[0].exclude)

	var published wire.ChatMessageFrame
	require.NoError(t, json.Unmarshal(dispatcher.calls[0].payload, &published))
	assert.Equal(t, frame.MessageID, published.MessageID)

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, []int64{100, 200}, notifier.recipients[0])
}

func TestSendMessageWithAttachment(t *testing.T) {
	svc, _, msgStore, _, dispatcher, dir := newChatFixture(t)

	inbound := []wire.InboundAttachment{{
		Name: "photo.jpg",
		Data: base64.StdEncoding.EncodeToString([]byte("image bytes")),
	}}
	frame, err := svc.SendMessage(context.Background(), 1, sender(), "", inbound)
	require.NoError(t, err)

	require.Len(t, msgStore.attachments, 1)
	att := msgStore.attachments[0]
	assert.Equal(t, "photo.jpg", att.FileName)
	assert.Equal(t, "image", att.FileType)
	assert.EqualValues(t, len("image bytes"), att.Size)

	// 附件已落盘
	data, err := os.ReadFile(filepath.Join(dir, att.StoredName))
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))

	require.Len(t, frame.Attachments, 1)
	assert.Equal(t, "/media/chat_attachments/"+att.StoredName, frame.Attachments[0].URL)
	assert.Equal(t, "image", frame.Attachments[0].Type)
	require.Len(t, dispatcher.calls, 1)
}

func TestSendMessageRejectsBadAttachment(t *testing.T) {
	svc, _, msgStore, _, dispatcher, _ := newChatFixture(t)

	tests := []struct {
		name    string
		inbound wire.InboundAttachment
		wantErr *apperrors.AppError
	}{
		{"invalid base64", wire.InboundAttachment{Name: "photo.jpg", Data: "%%%not-base64%%%"}, apperrors.ErrBadFrame},
		{"disallowed extension", wire.InboundAttachment{Name: "tool.exe", Data: base64.StdEncoding.EncodeToString([]byte("x"))}, apperrors.ErrAttachmentType},
		{"lowercase gif", wire.InboundAttachment{Name: "anim.gif", Data: base64.StdEncoding.EncodeToString([]byte("x"))}, apperrors.ErrAttachmentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendMessage(context.Background(), 1, sender(), "hi", []wire.InboundAttachment{tt.inbound})
			assert.True(t, apperrors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	// 校验在落库之前完成，没有需要回滚的部分写入
	assert.Empty(t, msgStore.created)
	assert.Empty(t, msgStore.deleted)
	assert.Empty(t, dispatcher.calls)
}

func TestSendMessageRollsBackOnAttachmentFailure(t *testing.T) {
	svc, _, msgStore, notifier, dispatcher, dir := newChatFixture(t)
	msgStore.attachmentErr = apperrors.ErrDBError

	inbound := []wire.InboundAttachment{{
		Name: "photo.jpg",
		Data: base64.StdEncoding.EncodeToString([]byte("image bytes")),
	}}
	_, err := svc.SendMessage(context.Background(), 1, sender(), "hi", inbound)
	require.Error(t, err)

	// 消息记录被回滚删除，已落盘的文件被清理
	require.Len(t, msgStore.created, 1)
	assert.Equal(t, []int64{msgStore.created[0].ID}, msgStore.deleted)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "saved files should be removed on rollback")

	assert.Empty(t, dispatcher.calls)
	assert.Empty(t, notifier.messages)
}

func TestPublishTypingExcludesSender(t *testing.T) {
	svc, _, _, _, dispatcher, _ := newChatFixture(t)

	require.NoError(t, svc.PublishTyping(context.Background(), 1, sender(), true))

	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, "chat:1", dispatcher.calls[0].channel)
	assert.Equal(t, int64(100), dispatcher.calls[0].exclude)

	var frame wire.TypingFrame
	require.NoError(t, json.Unmarshal(dispatcher.calls[0].payload, &frame))
	assert.Equal(t, "typing", frame.Type)
	assert.Equal(t, "alice", frame.Username)
	assert.True(t, frame.IsTyping)
}

func TestMarkRead(t *testing.T) {
	svc, _, msgStore, _, _, _ := newChatFixture(t)

	require.NoError(t, svc.MarkRead(context.Background(), 1, 200))
	assert.Equal(t, [][2]int64{{1, 200}}, msgStore.markedRead)
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		at       time.Time
		expected string
	}{
		{time.Date(2026, 3, 1, 15, 4, 0, 0, time.UTC), "3:04 pm"},
		{time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), "9:30 am"},
		{time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC), "12:05 am"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatClock(tt.at))
	}
}
