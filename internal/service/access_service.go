package service

import (
	"context"
	"errors"

	"nexus-chat-go/internal/repository"
)

// AccessService 基于图数据库解析用户的检索范围与资源权限。
// 不做任何缓存：权限变更必须立即对下一次查询可见。
type AccessService interface {
	// AccessibleContexts 返回用户可检索的全部 Context ID：
	// 所属 Group/Community 的 Context，加上显式授权的文档 Context。
	AccessibleContexts(ctx context.Context, userID string) ([]string, error)
	IsMember(ctx context.Context, userID, targetID string) (bool, error)
	IsOwner(ctx context.Context, userID, documentID string) (bool, error)
}

type accessService struct {
	groupRepo    repository.GroupRepository
	documentRepo repository.DocumentRepository
}

// NewAccessService 创建一个新的 AccessService 实例。
func NewAccessService(groupRepo repository.GroupRepository, documentRepo repository.DocumentRepository) AccessService {
	return &accessService{
		groupRepo:    groupRepo,
		documentRepo: documentRepo,
	}
}

func (s *accessService) AccessibleContexts(ctx context.Context, userID string) ([]string, error) {
	return s.documentRepo.AccessibleContexts(ctx, userID)
}

func (s *accessService) IsMember(ctx context.Context, userID, targetID string) (bool, error) {
	return s.groupRepo.IsMember(ctx, userID, targetID)
}

func (s *accessService) IsOwner(ctx context.Context, userID, documentID string) (bool, error) {
	isOwner, err := s.documentRepo.IsOwner(ctx, documentID, userID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return false, ErrNotFound
	}
	return isOwner, err
}
