package service

import (
	"context"

	"nexus-chat-go/internal/model"
	"nexus-chat-go/internal/repository"
)

// ConversationService 定义了对话业务逻辑的接口。
type ConversationService interface {
	GetConversationHistory(ctx context.Context, userID string) ([]model.ChatMessage, error)
	ResetConversation(ctx context.Context, userID string) error
}

type conversationService struct {
	repo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo}
}

// GetConversationHistory 获取用户当前会话的完整消息历史。
func (s *conversationService) GetConversationHistory(ctx context.Context, userID string) ([]model.ChatMessage, error) {
	conversationID, err := s.repo.GetOrCreateConversationID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetConversationHistory(ctx, conversationID)
}

// ResetConversation 结束当前会话，下一轮聊天从空历史开始。
func (s *conversationService) ResetConversation(ctx context.Context, userID string) error {
	return s.repo.ResetConversation(ctx, userID)
}
