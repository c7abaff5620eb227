package model

import "time"

// Group 代表图数据库中的 Group 节点。每个 Group 拥有一个 Context。
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ContextID string    `json:"contextId"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Community 代表图数据库中的 Community 节点。访问控制语义与 Group 相同。
type Community struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ContextID string    `json:"contextId"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// GroupRelationship 描述群组内一对成员之间的一条关系路径（最多 3 跳），
// RelTypes 是路径上各条边的类型，按路径顺序排列。
type GroupRelationship struct {
	FromID   string   `json:"fromId"`
	ToID     string   `json:"toId"`
	RelTypes []string `json:"relTypes"`
}

// Message 代表图数据库中的 Message 节点。
// VectorID 同时是向量索引中对应记录的 ID，两份数据通过它关联（非事务性）。
type Message struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	SenderID      string    `json:"senderId"`
	RecipientID   string    `json:"recipientId"`
	RecipientType string    `json:"recipientType"` // "user"、"group" 或 "community"
	VectorID      string    `json:"vectorId"`
	Timestamp     time.Time `json:"timestamp"`
}

// Document 代表图数据库中的 Document 节点。
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"` // 文件后缀: pdf / docx / doc / txt / md
	OwnerID    string    `json:"ownerId"`
	ContextID  string    `json:"contextId"`
	ChunkCount int       `json:"chunkCount"`
	UploadedAt time.Time `json:"uploadedAt"`
}
