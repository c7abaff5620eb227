package repository

import (
	"context"
	"fmt"

	"nexus-chat-go/internal/model"
	"nexus-chat-go/pkg/graph"
)

// GroupRepository 定义了群组与社区（含成员关系和 Context）的持久化操作。
// Group 与 Community 的访问控制语义完全一致，仅节点标签不同。
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *model.Group) error
	CreateCommunity(ctx context.Context, community *model.Community) error
	// AddMember 创建 MEMBER_OF 关系。target 可以是 Group 或 Community。
	AddMember(ctx context.Context, userID, targetID, role string) error
	// Members 枚举 target 当前的全部成员 ID。
	Members(ctx context.Context, targetID string) ([]string, error)
	// ContextOf 返回 Group/Community 所拥有的 Context ID。
	ContextOf(ctx context.Context, targetID string) (string, error)
	// IsMember 检查用户是否是 target 的成员（单次关系存在性查询）。
	IsMember(ctx context.Context, userID, targetID string) (bool, error)
	// RelationshipsIn 枚举群组内每对成员之间最多 3 跳的关系路径。
	RelationshipsIn(ctx context.Context, groupID string) ([]model.GroupRelationship, error)
}

type groupRepository struct {
	store graph.Store
}

// NewGroupRepository 创建一个新的 GroupRepository 实例。
func NewGroupRepository(store graph.Store) GroupRepository {
	return &groupRepository{store: store}
}

// CreateGroup 创建 Group 节点、附属的 Context 节点，并把创建者设为 admin 成员。
func (r *groupRepository) CreateGroup(ctx context.Context, group *model.Group) error {
	return r.createContainer(ctx, graph.GroupNode, group.ID, group.Name, group.ContextID, group.CreatedBy, group.CreatedAt.UnixMilli())
}

// CreateCommunity 创建 Community 节点，结构与 CreateGroup 相同。
func (r *groupRepository) CreateCommunity(ctx context.Context, community *model.Community) error {
	return r.createContainer(ctx, graph.CommunityNode, community.ID, community.Name, community.ContextID, community.CreatedBy, community.CreatedAt.UnixMilli())
}

func (r *groupRepository) createContainer(ctx context.Context, label, id, name, contextID, creatorID string, createdAt int64) error {
	query := fmt.Sprintf(`
	MATCH (creator:%s {id: $creator_id})
	CREATE (g:%s {id: $id, name: $name, created_at: $created_at, created_by: $creator_id})
	CREATE (g)-[:%s]->(:%s {id: $context_id, created_at: $created_at})
	CREATE (creator)-[:%s {role: 'admin', joined_at: $created_at}]->(g)
	RETURN g.id AS id
	`, graph.UserNode, label, graph.RelHasContext, graph.ContextNode, graph.RelMemberOf)
	records, err := r.store.RunQuery(ctx, query, map[string]any{
		"id":         id,
		"name":       name,
		"context_id": contextID,
		"creator_id": creatorID,
		"created_at": createdAt,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("创建 %s 失败: 创建者 %s 不存在", label, creatorID)
	}
	return nil
}

// AddMember 为用户创建到 Group/Community 的 MEMBER_OF 关系。
func (r *groupRepository) AddMember(ctx context.Context, userID, targetID, role string) error {
	query := `
	MATCH (u:User {id: $user_id}), (t {id: $target_id})
	WHERE t:Group OR t:Community
	CREATE (u)-[:MEMBER_OF {role: $role, joined_at: timestamp()}]->(t)
	RETURN u.id AS id
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{
		"user_id":   userID,
		"target_id": targetID,
		"role":      role,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Members 返回 target 当前所有成员的用户 ID。
func (r *groupRepository) Members(ctx context.Context, targetID string) ([]string, error) {
	query := `
	MATCH (u:User)-[:MEMBER_OF]->(t {id: $target_id})
	WHERE t:Group OR t:Community
	RETURN u.id AS user_id
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{"target_id": targetID})
	if err != nil {
		return nil, err
	}
	members := make([]string, 0, len(records))
	for _, record := range records {
		members = append(members, recordString(record, "user_id"))
	}
	return members, nil
}

// ContextOf 返回 Group/Community 拥有的 Context ID。
func (r *groupRepository) ContextOf(ctx context.Context, targetID string) (string, error) {
	query := `
	MATCH (t {id: $target_id})-[:HAS_CONTEXT]->(c:Context)
	WHERE t:Group OR t:Community
	RETURN c.id AS context_id
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{"target_id": targetID})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", ErrRecordNotFound
	}
	return recordString(records[0], "context_id"), nil
}

// IsMember 检查 MEMBER_OF 关系是否存在。
func (r *groupRepository) IsMember(ctx context.Context, userID, targetID string) (bool, error) {
	query := `
	MATCH (:User {id: $user_id})-[m:MEMBER_OF]->(t {id: $target_id})
	WHERE t:Group OR t:Community
	RETURN count(m) > 0 AS is_member
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{
		"user_id":   userID,
		"target_id": targetID,
	})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	return recordBool(records[0], "is_member"), nil
}

// RelationshipsIn 返回群组内成员两两之间的关系路径。
// u1.id < u2.id 避免同一对成员出现两次；路径限制在 3 跳以内。
func (r *groupRepository) RelationshipsIn(ctx context.Context, groupID string) ([]model.GroupRelationship, error) {
	query := fmt.Sprintf(`
	MATCH (g:%s {id: $group_id})
	MATCH (u1:%s)-[:%s]->(g)
	MATCH (u2:%s)-[:%s]->(g)
	WHERE u1.id < u2.id
	MATCH path = (u1)-[*..3]-(u2)
	RETURN u1.id AS from_id, u2.id AS to_id, [r IN relationships(path) | type(r)] AS rel_types
	`, graph.GroupNode, graph.UserNode, graph.RelMemberOf, graph.UserNode, graph.RelMemberOf)
	records, err := r.store.RunQuery(ctx, query, map[string]any{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	relationships := make([]model.GroupRelationship, 0, len(records))
	for _, record := range records {
		relationships = append(relationships, model.GroupRelationship{
			FromID:   recordString(record, "from_id"),
			ToID:     recordString(record, "to_id"),
			RelTypes: recordStrings(record, "rel_types"),
		})
	}
	return relationships, nil
}
