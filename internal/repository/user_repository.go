package repository

import (
	"context"
	"errors"
	"fmt"

	"nexus-chat-go/internal/model"
	"nexus-chat-go/pkg/graph"
)

// ErrRecordNotFound 表示查询目标在图中不存在。
var ErrRecordNotFound = errors.New("record not found")

// UserRepository 接口定义了用户数据的持久化操作。
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, userID string) (*model.User, error)
}

// userRepository 是 UserRepository 接口的图数据库实现。
type userRepository struct {
	store graph.Store
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(store graph.Store) UserRepository {
	return &userRepository{store: store}
}

// Create 在图中创建一个新的 User 节点及其私人 Context。
// 私聊消息的向量都归入这个 Context，只有本人可检索到。
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := fmt.Sprintf(`
	CREATE (u:%s {id: $id, username: $username, email: $email, password: $password, created_at: $created_at})
	CREATE (c:%s {id: $context_id, created_at: $created_at})
	CREATE (u)-[:%s {permission: 'owner'}]->(c)
	RETURN u.id AS id
	`, graph.UserNode, graph.ContextNode, graph.RelCanAccess)
	_, err := r.store.RunQuery(ctx, query, map[string]any{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"password":   user.Password,
		"context_id": "context-user-" + user.ID,
		"created_at": user.CreatedAt.UnixMilli(),
	})
	return err
}

// FindByUsername 根据用户名查找用户。
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
	MATCH (u:User {username: $username})
	RETURN u.id AS id, u.username AS username, u.email AS email, u.password AS password, u.created_at AS created_at
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{"username": username})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return userFromRecord(records[0]), nil
}

// FindByEmail 根据邮箱查找用户。注册时用于邮箱唯一性校验。
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
	MATCH (u:User {email: $email})
	RETURN u.id AS id, u.username AS username, u.email AS email, u.password AS password, u.created_at AS created_at
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{"email": email})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return userFromRecord(records[0]), nil
}

// FindByID 根据用户 ID 查找用户。
func (r *userRepository) FindByID(ctx context.Context, userID string) (*model.User, error) {
	query := `
	MATCH (u:User {id: $id})
	RETURN u.id AS id, u.username AS username, u.email AS email, u.password AS password, u.created_at AS created_at
	`
	records, err := r.store.RunQuery(ctx, query, map[string]any{"id": userID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return userFromRecord(records[0]), nil
}

func userFromRecord(record map[string]any) *model.User {
	return &model.User{
		ID:        recordString(record, "id"),
		Username:  recordString(record, "username"),
		Email:     recordString(record, "email"),
		Password:  recordString(record, "password"),
		CreatedAt: recordTime(record, "created_at"),
	}
}
