package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"nexus-chat-go/internal/model"
	"nexus-chat-go/pkg/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessageRepo struct {
	created []*model.Message
	err     error
}

func (f *fakeMessageRepo) Create(ctx context.Context, message *model.Message) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, message)
	return nil
}

func (f *fakeMessageRepo) ListDirect(ctx context.Context, userID, otherID string, limit int, beforeMillis int64) ([]model.Message, error) {
	return nil, nil
}

func (f *fakeMessageRepo) ListForContainer(ctx context.Context, readerID, targetID string, limit int, beforeMillis int64) ([]model.Message, error) {
	return nil, nil
}

func (f *fakeMessageRepo) DeleteByID(ctx context.Context, messageID string) (string, error) {
	return "", nil
}

type fakeGroupRepo struct {
	contextID string
	members   map[string]bool
}

func (f *fakeGroupRepo) CreateGroup(ctx context.Context, group *model.Group) error         { return nil }
func (f *fakeGroupRepo) CreateCommunity(ctx context.Context, c *model.Community) error     { return nil }
func (f *fakeGroupRepo) AddMember(ctx context.Context, userID, targetID, role string) error { return nil }
func (f *fakeGroupRepo) Members(ctx context.Context, targetID string) ([]string, error)    { return nil, nil }

func (f *fakeGroupRepo) ContextOf(ctx context.Context, targetID string) (string, error) {
	return f.contextID, nil
}

func (f *fakeGroupRepo) IsMember(ctx context.Context, userID, targetID string) (bool, error) {
	return f.members[userID], nil
}

func (f *fakeGroupRepo) RelationshipsIn(ctx context.Context, groupID string) ([]model.GroupRelationship, error) {
	return []model.GroupRelationship{{FromID: "u1", ToID: "u2", RelTypes: []string{"MEMBER_OF", "MEMBER_OF"}}}, nil
}

type memberAccess struct {
	groupRepo *fakeGroupRepo
}

func (a *memberAccess) AccessibleContexts(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

func (a *memberAccess) IsMember(ctx context.Context, userID, targetID string) (bool, error) {
	return a.groupRepo.IsMember(ctx, userID, targetID)
}

func (a *memberAccess) IsOwner(ctx context.Context, userID, documentID string) (bool, error) {
	return false, nil
}

func newMessageTestIndex(t *testing.T) *vector.Index {
	t.Helper()
	idx, err := vector.New(2, filepath.Join(t.TempDir(), "vectors.index"))
	require.NoError(t, err)
	return idx
}

func TestSendMessageToGroupRequiresMembership(t *testing.T) {
	groupRepo := &fakeGroupRepo{contextID: "context-g1", members: map[string]bool{}}
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	idx := newMessageTestIndex(t)
	repo := &fakeMessageRepo{}
	svc := NewMessageService(repo, groupRepo, &memberAccess{groupRepo: groupRepo}, embedder, idx)

	_, err := svc.SendMessage(context.Background(), "outsider", "g1", "group", "hello")
	assert.ErrorIs(t, err, ErrAccessDenied)
	// 授权失败时不应产生任何副作用
	assert.Zero(t, embedder.calls)
	assert.Zero(t, idx.Len())
	assert.Empty(t, repo.created)
}

func TestSendMessageToGroupWritesVectorAndGraph(t *testing.T) {
	groupRepo := &fakeGroupRepo{contextID: "context-g1", members: map[string]bool{"alice": true}}
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	idx := newMessageTestIndex(t)
	repo := &fakeMessageRepo{}
	svc := NewMessageService(repo, groupRepo, &memberAccess{groupRepo: groupRepo}, embedder, idx)

	msg, err := svc.SendMessage(context.Background(), "alice", "g1", "group", "hello team")
	require.NoError(t, err)

	// 向量与图消息共享同一个内容寻址 ID
	assert.True(t, strings.HasPrefix(msg.VectorID, "msg-"))
	require.Len(t, repo.created, 1)
	assert.Equal(t, msg.VectorID, repo.created[0].VectorID)

	// 向量元数据携带群组 Context，检索时按此过滤
	_, metadata, err := idx.Get(msg.VectorID)
	require.NoError(t, err)
	assert.Equal(t, "context-g1", metadata["context_id"])
	assert.Equal(t, "message", metadata["type"])
	assert.Equal(t, "hello team", metadata["content"])
	assert.Equal(t, "alice", metadata["sender_id"])
}

func TestSendDirectMessageUsesSenderPrivateContext(t *testing.T) {
	groupRepo := &fakeGroupRepo{members: map[string]bool{}}
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	idx := newMessageTestIndex(t)
	repo := &fakeMessageRepo{}
	svc := NewMessageService(repo, groupRepo, &memberAccess{groupRepo: groupRepo}, embedder, idx)

	// 私聊不需要成员校验
	msg, err := svc.SendMessage(context.Background(), "alice", "bob", "user", "hi bob")
	require.NoError(t, err)

	_, metadata, err := idx.Get(msg.VectorID)
	require.NoError(t, err)
	assert.Equal(t, "context-user-alice", metadata["context_id"])
}

func TestResendSameMessageReusesVectorID(t *testing.T) {
	groupRepo := &fakeGroupRepo{contextID: "context-g1", members: map[string]bool{"alice": true}}
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	idx := newMessageTestIndex(t)
	repo := &fakeMessageRepo{}
	svc := NewMessageService(repo, groupRepo, &memberAccess{groupRepo: groupRepo}, embedder, idx)

	first, err := svc.SendMessage(context.Background(), "alice", "g1", "group", "hello team")
	require.NoError(t, err)
	second, err := svc.SendMessage(context.Background(), "alice", "g1", "group", "hello team")
	require.NoError(t, err)

	// 相同发送者与内容得到相同的向量 ID，索引侧原地替换而非新增
	assert.Equal(t, first.VectorID, second.VectorID)
	assert.Equal(t, 1, idx.Len())
}

func TestListForContainerDeniedForNonMember(t *testing.T) {
	groupRepo := &fakeGroupRepo{members: map[string]bool{}}
	svc := NewMessageService(&fakeMessageRepo{}, groupRepo, &memberAccess{groupRepo: groupRepo}, &fakeEmbedder{}, newMessageTestIndex(t))

	_, err := svc.ListForContainer(context.Background(), "outsider", "g1", 10, 0)
	assert.ErrorIs(t, err, ErrAccessDenied)
}
