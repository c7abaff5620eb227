package repository

import (
	"errors"
	"time"

	"nexus-chat-go/internal/model"

	"gorm.io/gorm"
)

// IngestRepository 定义了文档摄取状态表的操作接口。
type IngestRepository interface {
	Create(ingest *model.DocumentIngest) error
	UpdateStatus(documentID string, status int, lastError string) error
	MarkIndexed(documentID string, chunkCount int) error
	FindByDocumentID(documentID string) (*model.DocumentIngest, error)
	DeleteByDocumentID(documentID string) error
}

type ingestRepository struct {
	db *gorm.DB
}

// NewIngestRepository 创建一个新的 IngestRepository 实例。
func NewIngestRepository(db *gorm.DB) IngestRepository {
	return &ingestRepository{db: db}
}

func (r *ingestRepository) Create(ingest *model.DocumentIngest) error {
	return r.db.Create(ingest).Error
}

func (r *ingestRepository) UpdateStatus(documentID string, status int, lastError string) error {
	return r.db.Model(&model.DocumentIngest{}).
		Where("document_id = ?", documentID).
		Updates(map[string]any{"status": status, "last_error": lastError}).Error
}

// MarkIndexed 将摄取记录置为已索引并记录分块数与完成时间。
func (r *ingestRepository) MarkIndexed(documentID string, chunkCount int) error {
	now := time.Now()
	return r.db.Model(&model.DocumentIngest{}).
		Where("document_id = ?", documentID).
		Updates(map[string]any{
			"status":      model.IngestStatusIndexed,
			"chunk_count": chunkCount,
			"last_error":  "",
			"indexed_at":  &now,
		}).Error
}

func (r *ingestRepository) FindByDocumentID(documentID string) (*model.DocumentIngest, error) {
	var ingest model.DocumentIngest
	err := r.db.Where("document_id = ?", documentID).First(&ingest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ingest, nil
}

func (r *ingestRepository) DeleteByDocumentID(documentID string) error {
	return r.db.Where("document_id = ?", documentID).Delete(&model.DocumentIngest{}).Error
}
