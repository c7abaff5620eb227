package repository

import (
	"context"
	"fmt"

	"nexus-chat-go/internal/model"
	"nexus-chat-go/pkg/graph"
)

// DocumentRepository 定义了文档节点与访问权限边的图数据库操作。
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, documentID string) (*model.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error)
	IsOwner(ctx context.Context, documentID, userID string) (bool, error)
	UpdateChunkCount(ctx context.Context, documentID string, chunkCount int) error
	// GrantToUser 在单个用户与文档 Context 之间建立 CAN_ACCESS 边。
	GrantToUser(ctx context.Context, documentID, userID string) error
	// ShareSnapshot 将文档授权给 Group/Community 及其当前全部成员。
	// 之后加入的成员不会自动获得权限（共享时刻快照）。
	ShareSnapshot(ctx context.Context, documentID, targetID string) error
	// AccessibleContexts 返回用户可检索的全部 Context ID：
	// 成员身份推导的 Context 加上显式 CAN_ACCESS 授权的 Context。
	AccessibleContexts(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, documentID string) error
}

type documentRepository struct {
	store graph.Store
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(store graph.Store) DocumentRepository {
	return &documentRepository{store: store}
}

// Create 创建 Document 节点、其专属 Context，以及属主的 owner 级访问边。
func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	query := fmt.Sprintf(`
	MATCH (owner:%s {id: $owner_id})
	CREATE (d:%s {
		id: $document_id,
		name: $name,
		type: $type,
		owner_id: $owner_id,
		chunk_count: 0,
		uploaded_at: $uploaded_at
	})
	CREATE (c:%s {id: $context_id})
	CREATE (d)-[:%s]->(c)
	CREATE (owner)-[:%s {permission: 'owner'}]->(c)
	RETURN d.id AS id
	`, graph.UserNode, graph.DocumentNode, graph.ContextNode, graph.RelBelongsTo, graph.RelCanAccess)
	records, err := r.store.RunQuery(ctx, query, map[string]any{
		"document_id": doc.ID,
		"name":        doc.Name,
		"type":        doc.Type,
		"owner_id":    doc.OwnerID,
		"context_id":  doc.ContextID,
		"uploaded_at": doc.UploadedAt.UnixMilli(),
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *documentRepository) FindByID(ctx context.Context, documentID string) (*model.Document, error) {
	query := `
	MATCH (d:Document {id: $document_id})-[:BELONGS_TO]->(c:Context)
	RETURN d.id AS id, d.name AS name, d.type AS type, d.owner_id AS owner_id,
	       c.id AS context_id, d.chunk_count AS chunk_count, d.uploaded_at AS uploaded_at
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{"document_id": documentID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	doc := documentFromRecord(records[0])
	return &doc, nil
}

func (r *documentRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	query := `
	MATCH (d:Document {owner_id: $owner_id})-[:BELONGS_TO]->(c:Context)
	RETURN d.id AS id, d.name AS name, d.type AS type, d.owner_id AS owner_id,
	       c.id AS context_id, d.chunk_count AS chunk_count, d.uploaded_at AS uploaded_at
	ORDER BY d.uploaded_at DESC
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	docs := make([]model.Document, 0, len(records))
	for _, record := range records {
		docs = append(docs, documentFromRecord(record))
	}
	return docs, nil
}

func (r *documentRepository) IsOwner(ctx context.Context, documentID, userID string) (bool, error) {
	query := `
	MATCH (d:Document {id: $document_id})
	RETURN d.owner_id = $user_id AS is_owner
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{
		"document_id": documentID,
		"user_id":     userID,
	})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, ErrRecordNotFound
	}
	return recordBool(records[0], "is_owner"), nil
}

func (r *documentRepository) UpdateChunkCount(ctx context.Context, documentID string, chunkCount int) error {
	query := `
	MATCH (d:Document {id: $document_id})
	SET d.chunk_count = $chunk_count
	RETURN d.id AS id
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{
		"document_id": documentID,
		"chunk_count": chunkCount,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *documentRepository) GrantToUser(ctx context.Context, documentID, userID string) error {
	query := `
	MATCH (d:Document {id: $document_id})-[:BELONGS_TO]->(c:Context)
	MATCH (u:User {id: $user_id})
	MERGE (u)-[:CAN_ACCESS {permission: 'read'}]->(c)
	RETURN c.id AS context_id
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{
		"document_id": documentID,
		"user_id":     userID,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ShareSnapshot 先为容器本身建边，再为共享时刻的每个现有成员建边。
func (r *documentRepository) ShareSnapshot(ctx context.Context, documentID, targetID string) error {
	query := `
	MATCH (d:Document {id: $document_id})-[:BELONGS_TO]->(c:Context)
	MATCH (target {id: $target_id})
	WHERE target:Group OR target:Community
	MERGE (target)-[:CAN_ACCESS {permission: 'read'}]->(c)
	WITH c, target
	OPTIONAL MATCH (member:User)-[:MEMBER_OF]->(target)
	FOREACH (m IN CASE WHEN member IS NULL THEN [] ELSE [member] END |
		MERGE (m)-[:CAN_ACCESS {permission: 'read'}]->(c)
	)
	RETURN c.id AS context_id
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{
		"document_id": documentID,
		"target_id":   targetID,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// AccessibleContexts 合并两类来源：成员身份推导的容器 Context，
// 以及显式 CAN_ACCESS 授权的文档 Context。结果去重。
func (r *documentRepository) AccessibleContexts(ctx context.Context, userID string) ([]string, error) {
	query := `
	MATCH (u:User {id: $user_id})-[:MEMBER_OF]->(t)-[:HAS_CONTEXT]->(c:Context)
	WHERE t:Group OR t:Community
	RETURN DISTINCT c.id AS context_id
	UNION
	MATCH (u:User {id: $user_id})-[:CAN_ACCESS]->(c:Context)
	RETURN DISTINCT c.id AS context_id
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{"user_id": userID})
	if err != nil {
		return nil, err
	}
	contexts := make([]string, 0, len(records))
	for _, record := range records {
		contexts = append(contexts, recordString(record, "context_id"))
	}
	return contexts, nil
}

// Delete 删除文档节点及其专属 Context（连同所有授权边）。
func (r *documentRepository) Delete(ctx context.Context, documentID string) error {
	query := `
	MATCH (d:Document {id: $document_id})
	OPTIONAL MATCH (d)-[:BELONGS_TO]->(c:Context)
	WITH d, c, d.id AS id
	DETACH DELETE d, c
	RETURN id
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{"document_id": documentID})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func documentFromRecord(record map[string]any) model.Document {
	return model.Document{
		ID:         recordString(record, "id"),
		Name:       recordString(record, "name"),
		Type:       recordString(record, "type"),
		OwnerID:    recordString(record, "owner_id"),
		ContextID:  recordString(record, "context_id"),
		ChunkCount: int(recordInt64(record, "chunk_count")),
		UploadedAt: recordTime(record, "uploaded_at"),
	}
}
