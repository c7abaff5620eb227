package model

// RetrievedItem 是检索管道中通过上下文过滤后保留的一条命中。
type RetrievedItem struct {
	VectorID string         `json:"vectorId"`
	Score    float64        `json:"score"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// QueryAnswer 是 RAG 查询的最终响应。
// Sources 是实际进入 prompt 的条目的元数据，顺序与 prompt 中一致。
type QueryAnswer struct {
	Answer  string           `json:"answer"`
	Sources []map[string]any `json:"sources"`
}

// MessageDTO 定义了返回给前端的消息结构。
type MessageDTO struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Timestamp   LocalTime `json:"timestamp"`
	VectorID    string    `json:"vectorId"`
}
