package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationshipsDeniedForNonMember(t *testing.T) {
	groupRepo := &fakeGroupRepo{members: map[string]bool{}}
	svc := NewGroupService(groupRepo)

	_, err := svc.Relationships(context.Background(), "outsider", "g1")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestRelationshipsReturnedForMember(t *testing.T) {
	groupRepo := &fakeGroupRepo{members: map[string]bool{"alice": true}}
	svc := NewGroupService(groupRepo)

	relationships, err := svc.Relationships(context.Background(), "alice", "g1")
	require.NoError(t, err)
	require.Len(t, relationships, 1)
	assert.Equal(t, "u1", relationships[0].FromID)
	assert.Equal(t, "u2", relationships[0].ToID)
}

func TestAddMemberDeniedForNonMemberOperator(t *testing.T) {
	groupRepo := &fakeGroupRepo{members: map[string]bool{}}
	svc := NewGroupService(groupRepo)

	err := svc.AddMember(context.Background(), "outsider", "g1", "newcomer")
	assert.ErrorIs(t, err, ErrAccessDenied)
}
