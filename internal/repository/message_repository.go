package repository

import (
	"context"
	"fmt"

	"nexus-chat-go/internal/model"
	"nexus-chat-go/pkg/graph"
)

// MessageRepository 定义了消息在图数据库中的持久化操作。
type MessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	// ListDirect 返回两个用户之间的双向私聊消息，按时间倒序。
	ListDirect(ctx context.Context, userID, otherID string, limit int, beforeMillis int64) ([]model.Message, error)
	// ListForContainer 返回发往 Group/Community 的消息；发送者与读取者都必须是成员。
	ListForContainer(ctx context.Context, readerID, targetID string, limit int, beforeMillis int64) ([]model.Message, error)
	// DeleteByID 删除消息节点并返回其关联的向量 ID，供调用方清理向量索引。
	DeleteByID(ctx context.Context, messageID string) (string, error)
}

type messageRepository struct {
	store graph.Store
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(store graph.Store) MessageRepository {
	return &messageRepository{store: store}
}

// Create 创建 Message 节点及 SENT_BY / SENT_TO 关系。
func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	query := fmt.Sprintf(`
	MATCH (sender:%s {id: $sender_id})
	MATCH (recipient {id: $recipient_id})
	WHERE recipient:%s OR recipient:%s OR recipient:%s
	CREATE (m:%s {
		id: $message_id,
		content: $content,
		created_at: $created_at,
		vector_id: $vector_id
	})
	CREATE (m)-[:%s]->(sender)
	CREATE (m)-[:%s]->(recipient)
	RETURN m.id AS id
	`, graph.UserNode, graph.UserNode, graph.GroupNode, graph.CommunityNode,
		graph.MessageNode, graph.RelSentBy, graph.RelSentTo)
	records, err := r.store.RunQuery(ctx, query, map[string]any{
		"message_id":   message.ID,
		"content":      message.Content,
		"sender_id":    message.SenderID,
		"recipient_id": message.RecipientID,
		"vector_id":    message.VectorID,
		"created_at":   message.Timestamp.UnixMilli(),
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListDirect 查询两个用户之间的私聊消息。
func (r *messageRepository) ListDirect(ctx context.Context, userID, otherID string, limit int, beforeMillis int64) ([]model.Message, error) {
	query := `
	MATCH (m:Message)-[:SENT_BY]->(sender:User)
	MATCH (m)-[:SENT_TO]->(recipient:User)
	WHERE ((sender.id = $user_id AND recipient.id = $other_id) OR
	       (sender.id = $other_id AND recipient.id = $user_id))
	  AND ($before = 0 OR m.created_at < $before)
	RETURN m.id AS message_id, m.content AS content, sender.id AS sender_id,
	       recipient.id AS recipient_id, m.created_at AS created_at, m.vector_id AS vector_id
	ORDER BY m.created_at DESC
	LIMIT $limit
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{
		"user_id":  userID,
		"other_id": otherID,
		"before":   beforeMillis,
		"limit":    limit,
	})
	if err != nil {
		return nil, err
	}
	return messagesFromRecords(records), nil
}

// ListForContainer 查询群组/社区消息。成员资格在查询内校验：
// 发送者必须是成员，读取者也必须是成员。
func (r *messageRepository) ListForContainer(ctx context.Context, readerID, targetID string, limit int, beforeMillis int64) ([]model.Message, error) {
	query := `
	MATCH (m:Message)-[:SENT_BY]->(sender:User)
	MATCH (m)-[:SENT_TO]->(recipient {id: $target_id})
	WHERE (recipient:Group OR recipient:Community)
	  AND (sender)-[:MEMBER_OF]->(recipient)
	  AND (:User {id: $reader_id})-[:MEMBER_OF]->(recipient)
	  AND ($before = 0 OR m.created_at < $before)
	RETURN m.id AS message_id, m.content AS content, sender.id AS sender_id,
	       recipient.id AS recipient_id, m.created_at AS created_at, m.vector_id AS vector_id
	ORDER BY m.created_at DESC
	LIMIT $limit
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{
		"reader_id": readerID,
		"target_id": targetID,
		"before":    beforeMillis,
		"limit":     limit,
	})
	if err != nil {
		return nil, err
	}
	return messagesFromRecords(records), nil
}

// DeleteByID 删除消息节点并返回其 vector_id。
func (r *messageRepository) DeleteByID(ctx context.Context, messageID string) (string, error) {
	query := `
	MATCH (m:Message {id: $message_id})
	WITH m, m.vector_id AS vector_id
	DETACH DELETE m
	RETURN vector_id
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{"message_id": messageID})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", ErrRecordNotFound
	}
	return recordString(records[0], "vector_id"), nil
}

func messagesFromRecords(records []map[string]any) []model.Message {
	messages := make([]model.Message, 0, len(records))
	for _, record := range records {
		messages = append(messages, model.Message{
			ID:          recordString(record, "message_id"),
			Content:     recordString(record, "content"),
			SenderID:    recordString(record, "sender_id"),
			RecipientID: recordString(record, "recipient_id"),
			VectorID:    recordString(record, "vector_id"),
			Timestamp:   recordTime(record, "created_at"),
		})
	}
	return messages
}
