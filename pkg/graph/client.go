// Package graph 提供了与 Neo4j 图数据库交互的客户端功能。
package graph

import (
	"context"
	"fmt"

	"nexus-chat-go/internal/config"
	"nexus-chat-go/pkg/log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// 图中的节点标签。
const (
	UserNode      = "User"
	GroupNode     = "Group"
	CommunityNode = "Community"
	MessageNode   = "Message"
	DocumentNode  = "Document"
	ContextNode   = "Context"
)

// 图中的关系类型。
const (
	RelMemberOf   = "MEMBER_OF"
	RelBelongsTo  = "BELONGS_TO"
	RelSentBy     = "SENT_BY"
	RelSentTo     = "SENT_TO"
	RelHasContext = "HAS_CONTEXT"
	RelCanAccess  = "CAN_ACCESS"
)

// Store 定义了图存储的最小查询接口，供 repository 层消费。
type Store interface {
	// RunQuery 执行一条 Cypher 查询并返回每条记录的键值映射。
	RunQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}

type neo4jStore struct {
	driver neo4j.DriverWithContext
}

// NewStore 创建一个新的 Neo4j 图存储客户端并验证连通性。
func NewStore(ctx context.Context, cfg config.Neo4jConfig) (Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("创建 Neo4j driver 失败: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("Neo4j 连接验证失败: %w", err)
	}
	log.Info("Neo4j 客户端初始化成功")
	return &neo4jStore{driver: driver}, nil
}

// RunQuery 在一个新的 session 中执行查询，返回所有记录。
func (s *neo4jStore) RunQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("执行图查询失败: %w", err)
	}

	var records []map[string]any
	for result.Next(ctx) {
		records = append(records, result.Record().AsMap())
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("读取图查询结果失败: %w", err)
	}
	return records, nil
}

// Close 关闭底层 driver。
func (s *neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
