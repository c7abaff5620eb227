package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"nexus-chat-go/internal/config"
	"nexus-chat-go/internal/model"
	"nexus-chat-go/internal/repository"
	"nexus-chat-go/pkg/kafka"
	"nexus-chat-go/pkg/log"
	"nexus-chat-go/pkg/storage"
	"nexus-chat-go/pkg/tasks"
	"nexus-chat-go/pkg/tika"
	"nexus-chat-go/pkg/vector"

	"github.com/google/uuid"
)

// DownloadInfoDTO 封装了文件下载链接所需的信息。
type DownloadInfoDTO struct {
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
}

// DocumentService 接口定义了文档管理相关的业务操作。
// 上传是异步的：接口只负责落对象存储、建图节点、写状态行、投递 Kafka 任务，
// 解析与索引由消费端的 pipeline.Processor 完成。
type DocumentService interface {
	Upload(ctx context.Context, ownerID, fileName string, fileBytes []byte) (*model.Document, error)
	Share(ctx context.Context, ownerID, documentID, targetID, targetType string) error
	Delete(ctx context.Context, userID, documentID string) error
	ListOwned(ctx context.Context, ownerID string) ([]model.Document, error)
	IngestStatus(ctx context.Context, userID, documentID string) (*model.DocumentIngest, error)
	GenerateDownloadURL(ctx context.Context, userID, documentID string) (*DownloadInfoDTO, error)
}

type documentService struct {
	documentRepo  repository.DocumentRepository
	ingestRepo    repository.IngestRepository
	accessService AccessService
	index         *vector.Index
	minioCfg      config.MinIOConfig
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	documentRepo repository.DocumentRepository,
	ingestRepo repository.IngestRepository,
	accessService AccessService,
	index *vector.Index,
	minioCfg config.MinIOConfig,
) DocumentService {
	return &documentService{
		documentRepo:  documentRepo,
		ingestRepo:    ingestRepo,
		accessService: accessService,
		index:         index,
		minioCfg:      minioCfg,
	}
}

// Upload 接收文件并发起异步摄取。扩展名白名单在一切副作用之前校验。
func (s *documentService) Upload(ctx context.Context, ownerID, fileName string, fileBytes []byte) (*model.Document, error) {
	// 1. 扩展名校验
	fileExt := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if !tika.Supported(fileExt) {
		return nil, tika.ErrUnsupportedFormat
	}

	documentID := uuid.NewString()
	objectName := fmt.Sprintf("documents/%s/%s", ownerID, documentID)

	// 2. 文件落 MinIO
	log.Infof("[DocumentService] 步骤1: 上传文件到 MinIO, object: %s", objectName)
	if err := storage.PutBytes(ctx, s.minioCfg.BucketName, objectName, fileBytes, "application/octet-stream"); err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	// 3. 建立 Document 节点及其 Context、owner 权限边
	doc := &model.Document{
		ID:         documentID,
		Name:       fileName,
		Type:       fileExt,
		OwnerID:    ownerID,
		ContextID:  "context-" + documentID,
		UploadedAt: time.Now(),
	}
	log.Infof("[DocumentService] 步骤2: 创建文档节点, document_id: %s", documentID)
	if err := s.documentRepo.Create(ctx, doc); err != nil {
		// 回滚对象存储，避免悬挂文件
		_ = storage.RemoveObject(context.Background(), s.minioCfg.BucketName, objectName)
		return nil, err
	}

	// 4. 写摄取状态行
	if err := s.ingestRepo.Create(&model.DocumentIngest{
		DocumentID: documentID,
		FileName:   fileName,
		Status:     model.IngestStatusPending,
	}); err != nil {
		return nil, err
	}

	// 5. 投递 Kafka 摄取任务
	log.Infof("[DocumentService] 步骤3: 投递摄取任务, document_id: %s", documentID)
	task := tasks.DocumentIngestTask{
		DocumentID: documentID,
		ObjectName: objectName,
		FileName:   fileName,
		FileExt:    fileExt,
		OwnerID:    ownerID,
		ContextID:  doc.ContextID,
	}
	if err := kafka.ProduceIngestTask(task); err != nil {
		// 任务投递失败时标记状态，文件与节点保留，可由重试接口补投
		_ = s.ingestRepo.UpdateStatus(documentID, model.IngestStatusFailed, err.Error())
		return nil, fmt.Errorf("produce ingest task: %w", err)
	}
	return doc, nil
}

// Share 将文档授权给单个用户，或对群组/社区做成员快照扇出。
func (s *documentService) Share(ctx context.Context, ownerID, documentID, targetID, targetType string) error {
	isOwner, err := s.accessService.IsOwner(ctx, ownerID, documentID)
	if err != nil {
		return err
	}
	if !isOwner {
		return ErrAccessDenied
	}

	switch targetType {
	case "user":
		err = s.documentRepo.GrantToUser(ctx, documentID, targetID)
	case "group", "community":
		err = s.documentRepo.ShareSnapshot(ctx, documentID, targetID)
	default:
		return fmt.Errorf("unknown share target type: %s", targetType)
	}
	if errors.Is(err, repository.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Delete 删除文档：分块向量、图节点、MinIO 对象、摄取状态行依次清理。
func (s *documentService) Delete(ctx context.Context, userID, documentID string) error {
	isOwner, err := s.accessService.IsOwner(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if !isOwner {
		return ErrAccessDenied
	}

	doc, err := s.documentRepo.FindByID(ctx, documentID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	// 1. 删除分块向量。chunk ID 是确定的 chunk-<docID>-<i> 序列。
	log.Infof("[DocumentService] 步骤1: 删除分块向量, document_id: %s, chunks: %d", documentID, doc.ChunkCount)
	for i := 0; i < doc.ChunkCount; i++ {
		chunkID := fmt.Sprintf("chunk-%s-%d", documentID, i)
		if err := s.index.Delete(chunkID); err != nil && !errors.Is(err, vector.ErrNotFound) {
			return fmt.Errorf("delete chunk vector %s: %w", chunkID, err)
		}
	}

	// 2. 删除图节点及其 Context
	log.Infof("[DocumentService] 步骤2: 删除文档节点, document_id: %s", documentID)
	if err := s.documentRepo.Delete(ctx, documentID); err != nil {
		return err
	}

	// 3. 删除 MinIO 对象
	objectName := fmt.Sprintf("documents/%s/%s", doc.OwnerID, documentID)
	if err := storage.RemoveObject(ctx, s.minioCfg.BucketName, objectName); err != nil {
		// 对象清理失败不阻断删除流程
		log.Errorf("[DocumentService] MinIO 对象删除失败, object: %s, error: %v", objectName, err)
	}

	// 4. 清理摄取状态行
	return s.ingestRepo.DeleteByDocumentID(documentID)
}

func (s *documentService) ListOwned(ctx context.Context, ownerID string) ([]model.Document, error) {
	return s.documentRepo.ListByOwner(ctx, ownerID)
}

// IngestStatus 查询文档的异步摄取进度。仅属主可见。
func (s *documentService) IngestStatus(ctx context.Context, userID, documentID string) (*model.DocumentIngest, error) {
	isOwner, err := s.accessService.IsOwner(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	if !isOwner {
		return nil, ErrAccessDenied
	}
	ingest, err := s.ingestRepo.FindByDocumentID(documentID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return ingest, err
}

// GenerateDownloadURL 生成文件的临时下载链接，有效期为1小时。
func (s *documentService) GenerateDownloadURL(ctx context.Context, userID, documentID string) (*DownloadInfoDTO, error) {
	doc, err := s.documentRepo.FindByID(ctx, documentID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// 属主之外，任何能访问该文档 Context 的用户也可下载
	if doc.OwnerID != userID {
		contexts, err := s.accessService.AccessibleContexts(ctx, userID)
		if err != nil {
			return nil, err
		}
		allowed := false
		for _, c := range contexts {
			if c == doc.ContextID {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, ErrAccessDenied
		}
	}

	objectName := fmt.Sprintf("documents/%s/%s", doc.OwnerID, documentID)
	presignedURL, err := storage.GetPresignedURL(s.minioCfg.BucketName, objectName, time.Hour)
	if err != nil {
		return nil, err
	}
	return &DownloadInfoDTO{FileName: doc.Name, DownloadURL: presignedURL}, nil
}
