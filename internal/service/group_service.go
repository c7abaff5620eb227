package service

import (
	"context"
	"errors"
	"time"

	"nexus-chat-go/internal/model"
	"nexus-chat-go/internal/repository"
	"nexus-chat-go/pkg/log"

	"github.com/google/uuid"
)

// GroupService 处理群组与社区的创建和成员管理。
type GroupService interface {
	CreateGroup(ctx context.Context, creatorID, name string) (*model.Group, error)
	CreateCommunity(ctx context.Context, creatorID, name string) (*model.Community, error)
	// AddMember 将用户加入群组/社区。操作者必须已是成员。
	AddMember(ctx context.Context, operatorID, targetID, newMemberID string) error
	Members(ctx context.Context, userID, targetID string) ([]string, error)
	// Relationships 返回群组内成员之间的关系图。仅成员可见。
	Relationships(ctx context.Context, userID, groupID string) ([]model.GroupRelationship, error)
}

type groupService struct {
	groupRepo repository.GroupRepository
}

// NewGroupService 创建一个新的 GroupService 实例。
func NewGroupService(groupRepo repository.GroupRepository) GroupService {
	return &groupService{groupRepo: groupRepo}
}

// CreateGroup 创建群组。创建者自动成为 admin 成员，并挂接专属 Context。
func (s *groupService) CreateGroup(ctx context.Context, creatorID, name string) (*model.Group, error) {
	id := uuid.NewString()
	group := &model.Group{
		ID:        id,
		Name:      name,
		ContextID: "context-" + id,
		CreatedBy: creatorID,
		CreatedAt: time.Now(),
	}
	if err := s.groupRepo.CreateGroup(ctx, group); err != nil {
		log.Errorf("[GroupService] 创建群组失败, name: %s, error: %v", name, err)
		return nil, err
	}
	return group, nil
}

// CreateCommunity 创建社区。访问控制语义与群组一致。
func (s *groupService) CreateCommunity(ctx context.Context, creatorID, name string) (*model.Community, error) {
	id := uuid.NewString()
	community := &model.Community{
		ID:        id,
		Name:      name,
		ContextID: "context-" + id,
		CreatedBy: creatorID,
		CreatedAt: time.Now(),
	}
	if err := s.groupRepo.CreateCommunity(ctx, community); err != nil {
		log.Errorf("[GroupService] 创建社区失败, name: %s, error: %v", name, err)
		return nil, err
	}
	return community, nil
}

func (s *groupService) AddMember(ctx context.Context, operatorID, targetID, newMemberID string) error {
	isMember, err := s.groupRepo.IsMember(ctx, operatorID, targetID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrAccessDenied
	}
	err = s.groupRepo.AddMember(ctx, newMemberID, targetID, "member")
	if errors.Is(err, repository.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Members 列出成员。仅成员可见。
func (s *groupService) Members(ctx context.Context, userID, targetID string) ([]string, error) {
	isMember, err := s.groupRepo.IsMember(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrAccessDenied
	}
	return s.groupRepo.Members(ctx, targetID)
}

// Relationships 返回群组内成员两两之间的关系路径。
func (s *groupService) Relationships(ctx context.Context, userID, groupID string) ([]model.GroupRelationship, error) {
	isMember, err := s.groupRepo.IsMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrAccessDenied
	}
	return s.groupRepo.RelationshipsIn(ctx, groupID)
}
