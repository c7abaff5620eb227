package service

import (
	"context"
	"fmt"
	"time"

	"nexus-chat-go/internal/model"
	"nexus-chat-go/internal/repository"
	"nexus-chat-go/pkg/embedding"
	"nexus-chat-go/pkg/log"
	"nexus-chat-go/pkg/vector"

	"github.com/google/uuid"
)

// MessageService 处理消息的发送与查询。
// 发送是一次双写：先写向量索引，再写图数据库。两者之间没有事务，
// 依靠内容寻址的向量 ID 保证重放时幂等。
type MessageService interface {
	SendMessage(ctx context.Context, senderID, recipientID, recipientType, content string) (*model.Message, error)
	ListDirect(ctx context.Context, userID, otherID string, limit int, beforeMillis int64) ([]model.Message, error)
	ListForContainer(ctx context.Context, readerID, targetID string, limit int, beforeMillis int64) ([]model.Message, error)
}

type messageService struct {
	messageRepo     repository.MessageRepository
	groupRepo       repository.GroupRepository
	accessService   AccessService
	embeddingClient embedding.Client
	index           *vector.Index
}

// NewMessageService 创建一个新的 MessageService 实例。
func NewMessageService(
	messageRepo repository.MessageRepository,
	groupRepo repository.GroupRepository,
	accessService AccessService,
	embeddingClient embedding.Client,
	index *vector.Index,
) MessageService {
	return &messageService{
		messageRepo:     messageRepo,
		groupRepo:       groupRepo,
		accessService:   accessService,
		embeddingClient: embeddingClient,
		index:           index,
	}
}

// SendMessage 发送一条消息并将其内容写入向量索引以供检索。
func (s *messageService) SendMessage(ctx context.Context, senderID, recipientID, recipientType, content string) (*model.Message, error) {
	now := time.Now()

	// 1. 群组/社区消息要求发送者是成员；私聊不需要
	if recipientType == "group" || recipientType == "community" {
		isMember, err := s.accessService.IsMember(ctx, senderID, recipientID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, ErrAccessDenied
		}
	}

	// 2. 确定消息归属的 Context。私聊消息不进入任何共享 Context，
	// 以发送者 ID 派生一个私有 context，检索时只有本人可见。
	contextID := "context-user-" + senderID
	if recipientType == "group" || recipientType == "community" {
		var err error
		contextID, err = s.groupRepo.ContextOf(ctx, recipientID)
		if err != nil {
			return nil, err
		}
	}

	// 3. 向量化消息内容
	log.Infof("[MessageService] 步骤1: 向量化消息, sender: %s", senderID)
	vec, err := s.embeddingClient.CreateEmbedding(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed message: %w", err)
	}

	// 4. 写入向量索引。ID 只由发送者和内容哈希派生，时间戳仅进元数据。
	// 图写入失败后重发同一条消息会命中相同 ID，索引侧原地替换而非堆积孤儿。
	vectorID := embedding.ContentID(map[string]any{
		"content":   content,
		"sender_id": senderID,
	}, "msg")
	metadata := map[string]any{
		"type":       "message",
		"content":    content,
		"sender_id":  senderID,
		"context_id": contextID,
		"timestamp":  now.UnixMilli(),
	}
	log.Infof("[MessageService] 步骤2: 写入向量索引, vector_id: %s", vectorID)
	if _, err := s.index.Insert(vectorID, vec, metadata); err != nil {
		return nil, fmt.Errorf("insert message vector: %w", err)
	}

	// 5. 写入图数据库。此处失败会留下孤儿向量，接受这一窗口。
	message := &model.Message{
		ID:            uuid.NewString(),
		Content:       content,
		SenderID:      senderID,
		RecipientID:   recipientID,
		RecipientType: recipientType,
		VectorID:      vectorID,
		Timestamp:     now,
	}
	log.Infof("[MessageService] 步骤3: 写入图数据库, message_id: %s", message.ID)
	if err := s.messageRepo.Create(ctx, message); err != nil {
		log.Errorf("[MessageService] 图数据库写入失败, 向量 %s 成为孤儿: %v", vectorID, err)
		return nil, err
	}
	return message, nil
}

func (s *messageService) ListDirect(ctx context.Context, userID, otherID string, limit int, beforeMillis int64) ([]model.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.messageRepo.ListDirect(ctx, userID, otherID, limit, beforeMillis)
}

// ListForContainer 读取群组/社区消息。读取者的成员资格在服务层先行校验，
// 查询自身也带成员谓词，双重保险。
func (s *messageService) ListForContainer(ctx context.Context, readerID, targetID string, limit int, beforeMillis int64) ([]model.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	isMember, err := s.accessService.IsMember(ctx, readerID, targetID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrAccessDenied
	}
	return s.messageRepo.ListForContainer(ctx, readerID, targetID, limit, beforeMillis)
}
