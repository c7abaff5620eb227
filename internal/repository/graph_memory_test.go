package repository

import (
	"context"
	"fmt"
	"strings"
)

// memoryGraph 是 graph.Store 的内存实现，按节点与边建模，
// 识别本包 repository 发出的各条 Cypher 并在内存图上求值。
// 用于在不连接 Neo4j 的情况下验证权限查询的语义。
type memoryGraph struct {
	users           map[string]bool
	containers      map[string]string          // 容器 ID -> Context ID
	docContexts     map[string]string          // 文档 ID -> Context ID
	memberships     map[string]map[string]bool // 用户 ID -> 所属容器集合 (MEMBER_OF)
	grants          map[string]map[string]bool // 用户 ID -> 直接授权的 Context 集合 (CAN_ACCESS)
	containerGrants map[string]map[string]bool // 容器 ID -> 授权的 Context 集合 (CAN_ACCESS)
}

func newMemoryGraph() *memoryGraph {
	return &memoryGraph{
		users:           map[string]bool{},
		containers:      map[string]string{},
		docContexts:     map[string]string{},
		memberships:     map[string]map[string]bool{},
		grants:          map[string]map[string]bool{},
		containerGrants: map[string]map[string]bool{},
	}
}

func (g *memoryGraph) seedUser(userID string) {
	g.users[userID] = true
}

func (g *memoryGraph) addMembership(userID, containerID string) {
	if g.memberships[userID] == nil {
		g.memberships[userID] = map[string]bool{}
	}
	g.memberships[userID][containerID] = true
}

func (g *memoryGraph) addGrant(userID, contextID string) {
	if g.grants[userID] == nil {
		g.grants[userID] = map[string]bool{}
	}
	g.grants[userID][contextID] = true
}

func (g *memoryGraph) RunQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	switch {
	// groupRepository.createContainer
	case strings.Contains(query, "CREATE (g:"):
		creatorID, _ := params["creator_id"].(string)
		if !g.users[creatorID] {
			return nil, nil
		}
		id, _ := params["id"].(string)
		contextID, _ := params["context_id"].(string)
		g.containers[id] = contextID
		g.addMembership(creatorID, id)
		return []map[string]any{{"id": id}}, nil

	// groupRepository.AddMember
	case strings.Contains(query, "CREATE (u)-[:MEMBER_OF"):
		userID, _ := params["user_id"].(string)
		targetID, _ := params["target_id"].(string)
		if !g.users[userID] {
			return nil, nil
		}
		if _, ok := g.containers[targetID]; !ok {
			return nil, nil
		}
		g.addMembership(userID, targetID)
		return []map[string]any{{"id": userID}}, nil

	// documentRepository.Create
	case strings.Contains(query, "CREATE (d:"):
		ownerID, _ := params["owner_id"].(string)
		if !g.users[ownerID] {
			return nil, nil
		}
		docID, _ := params["document_id"].(string)
		contextID, _ := params["context_id"].(string)
		g.docContexts[docID] = contextID
		g.addGrant(ownerID, contextID)
		return []map[string]any{{"id": docID}}, nil

	// documentRepository.ShareSnapshot: 容器建边后为共享时刻的每个现有成员建边
	case strings.Contains(query, "FOREACH"):
		docID, _ := params["document_id"].(string)
		targetID, _ := params["target_id"].(string)
		contextID, ok := g.docContexts[docID]
		if !ok {
			return nil, nil
		}
		if _, ok := g.containers[targetID]; !ok {
			return nil, nil
		}
		if g.containerGrants[targetID] == nil {
			g.containerGrants[targetID] = map[string]bool{}
		}
		g.containerGrants[targetID][contextID] = true
		for userID, containers := range g.memberships {
			if containers[targetID] {
				g.addGrant(userID, contextID)
			}
		}
		return []map[string]any{{"context_id": contextID}}, nil

	// documentRepository.GrantToUser
	case strings.Contains(query, "MERGE (u)-[:"):
		docID, _ := params["document_id"].(string)
		userID, _ := params["user_id"].(string)
		contextID, ok := g.docContexts[docID]
		if !ok || !g.users[userID] {
			return nil, nil
		}
		g.addGrant(userID, contextID)
		return []map[string]any{{"context_id": contextID}}, nil

	// documentRepository.AccessibleContexts: 成员身份推导 ∪ 直接授权
	case strings.Contains(query, "UNION"):
		userID, _ := params["user_id"].(string)
		seen := map[string]bool{}
		var records []map[string]any
		for containerID := range g.memberships[userID] {
			contextID := g.containers[containerID]
			if contextID != "" && !seen[contextID] {
				seen[contextID] = true
				records = append(records, map[string]any{"context_id": contextID})
			}
		}
		for contextID := range g.grants[userID] {
			if !seen[contextID] {
				seen[contextID] = true
				records = append(records, map[string]any{"context_id": contextID})
			}
		}
		return records, nil

	// groupRepository.IsMember
	case strings.Contains(query, "count(m) > 0"):
		userID, _ := params["user_id"].(string)
		targetID, _ := params["target_id"].(string)
		isMember := g.memberships[userID] != nil && g.memberships[userID][targetID]
		return []map[string]any{{"is_member": isMember}}, nil
	}
	return nil, fmt.Errorf("memoryGraph: 未识别的查询: %s", query)
}

func (g *memoryGraph) Close(ctx context.Context) error { return nil }
