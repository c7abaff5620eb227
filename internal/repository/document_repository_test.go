package repository

import (
	"context"
	"testing"
	"time"

	"nexus-chat-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGroup(id, creatorID string) *model.Group {
	return &model.Group{
		ID:        id,
		Name:      id,
		ContextID: "context-" + id,
		CreatedBy: creatorID,
		CreatedAt: time.Now(),
	}
}

func newTestDocument(id, ownerID string) *model.Document {
	return &model.Document{
		ID:         id,
		Name:       id + ".pdf",
		Type:       "pdf",
		OwnerID:    ownerID,
		ContextID:  "context-" + id,
		UploadedAt: time.Now(),
	}
}

// 加入群组只会扩大可检索范围，之前可见的 Context 一个都不会丢。
func TestAccessibleContextsGrowsWithMembership(t *testing.T) {
	store := newMemoryGraph()
	store.seedUser("alice")
	store.seedUser("bob")
	groupRepo := NewGroupRepository(store)
	docRepo := NewDocumentRepository(store)
	ctx := context.Background()

	require.NoError(t, groupRepo.CreateGroup(ctx, newTestGroup("g1", "bob")))
	require.NoError(t, docRepo.Create(ctx, newTestDocument("d1", "alice")))

	before, err := docRepo.AccessibleContexts(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"context-d1"}, before)

	require.NoError(t, groupRepo.AddMember(ctx, "alice", "g1", "member"))

	after, err := docRepo.AccessibleContexts(ctx, "alice")
	require.NoError(t, err)
	assert.Contains(t, after, "context-g1")
	for _, contextID := range before {
		assert.Contains(t, after, contextID)
	}
}

// 共享时的成员快照获得授权；之后加入的成员不会从过去的共享中受益。
func TestShareFanOutSnapshotExcludesLaterJoiners(t *testing.T) {
	store := newMemoryGraph()
	store.seedUser("owner")
	store.seedUser("m1")
	store.seedUser("m2")
	store.seedUser("m3")
	groupRepo := NewGroupRepository(store)
	docRepo := NewDocumentRepository(store)
	ctx := context.Background()

	require.NoError(t, groupRepo.CreateGroup(ctx, newTestGroup("g1", "m1")))
	require.NoError(t, groupRepo.AddMember(ctx, "m2", "g1", "member"))
	require.NoError(t, docRepo.Create(ctx, newTestDocument("d1", "owner")))

	require.NoError(t, docRepo.ShareSnapshot(ctx, "d1", "g1"))

	// 共享时刻的两个成员都拿到了文档 Context
	for _, member := range []string{"m1", "m2"} {
		contexts, err := docRepo.AccessibleContexts(ctx, member)
		require.NoError(t, err)
		assert.Contains(t, contexts, "context-d1", "成员 %s 应获得共享授权", member)
	}

	// 共享之后才加入的成员只拿到群组 Context，没有文档授权
	require.NoError(t, groupRepo.AddMember(ctx, "m3", "g1", "member"))
	contexts, err := docRepo.AccessibleContexts(ctx, "m3")
	require.NoError(t, err)
	assert.Contains(t, contexts, "context-g1")
	assert.NotContains(t, contexts, "context-d1")
}

// 单用户授权只影响目标用户本人。
func TestGrantToUserIsScopedToThatUser(t *testing.T) {
	store := newMemoryGraph()
	store.seedUser("owner")
	store.seedUser("reader")
	store.seedUser("stranger")
	docRepo := NewDocumentRepository(store)
	ctx := context.Background()

	require.NoError(t, docRepo.Create(ctx, newTestDocument("d1", "owner")))
	require.NoError(t, docRepo.GrantToUser(ctx, "d1", "reader"))

	contexts, err := docRepo.AccessibleContexts(ctx, "reader")
	require.NoError(t, err)
	assert.Contains(t, contexts, "context-d1")

	contexts, err = docRepo.AccessibleContexts(ctx, "stranger")
	require.NoError(t, err)
	assert.NotContains(t, contexts, "context-d1")
}
