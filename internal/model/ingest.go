package model

import "time"

// 文档摄取状态。
const (
	IngestStatusPending    = 0
	IngestStatusProcessing = 1
	IngestStatusIndexed    = 2
	IngestStatusFailed     = 3
)

// DocumentIngest 对应于数据库中的 document_ingests 表。
// 它记录异步摄取管道的处理状态，不承载任何访问控制事实。
type DocumentIngest struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID string     `gorm:"type:varchar(64);not null;uniqueIndex;column:document_id" json:"documentId"`
	FileName   string     `gorm:"type:varchar(255);not null" json:"fileName"`
	Status     int        `gorm:"type:tinyint;not null;default:0" json:"status"`
	ChunkCount int        `gorm:"not null;default:0" json:"chunkCount"`
	LastError  string     `gorm:"type:text" json:"lastError"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	IndexedAt  *time.Time `gorm:"default:null" json:"indexedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentIngest) TableName() string {
	return "document_ingests"
}
