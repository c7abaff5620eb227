package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"nexus-chat-go/internal/config"
	"nexus-chat-go/internal/model"
	"nexus-chat-go/internal/repository"
	"nexus-chat-go/pkg/embedding"
	"nexus-chat-go/pkg/log"
	"nexus-chat-go/pkg/storage"
	"nexus-chat-go/pkg/tasks"
	"nexus-chat-go/pkg/tika"
	"nexus-chat-go/pkg/vector"
)

// Processor 封装了文档摄取的所有依赖和逻辑。
// 它作为 Kafka 消费端运行：失败返回错误即触发重试，重试耗尽后任务被放弃。
type Processor struct {
	tikaClient      tika.Extractor
	embeddingClient embedding.Client
	index           *vector.Index
	documentRepo    repository.DocumentRepository
	ingestRepo      repository.IngestRepository
	minioCfg        config.MinIOConfig
	chunkingCfg     config.ChunkingConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient tika.Extractor,
	embeddingClient embedding.Client,
	index *vector.Index,
	documentRepo repository.DocumentRepository,
	ingestRepo repository.IngestRepository,
	minioCfg config.MinIOConfig,
	chunkingCfg config.ChunkingConfig,
) *Processor {
	return &Processor{
		tikaClient:      tikaClient,
		embeddingClient: embeddingClient,
		index:           index,
		documentRepo:    documentRepo,
		ingestRepo:      ingestRepo,
		minioCfg:        minioCfg,
		chunkingCfg:     chunkingCfg,
	}
}

// Process 是文档摄取的主函数。整个流程幂等：
// 分块向量 ID 由文档 ID 与序号确定，重跑会原位覆盖，多余的旧分块先被清理。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentIngestTask) error {
	log.Infof("[Processor] 开始处理文档, DocumentID: %s, FileName: %s", task.DocumentID, task.FileName)
	if err := p.ingestRepo.UpdateStatus(task.DocumentID, model.IngestStatusProcessing, ""); err != nil {
		log.Warnf("[Processor] 更新摄取状态失败, DocumentID: %s, Error: %v", task.DocumentID, err)
	}

	err := p.process(ctx, task)
	if err != nil {
		if statusErr := p.ingestRepo.UpdateStatus(task.DocumentID, model.IngestStatusFailed, err.Error()); statusErr != nil {
			log.Errorf("[Processor] 标记摄取失败状态时出错, DocumentID: %s, Error: %v", task.DocumentID, statusErr)
		}
	}
	return err
}

func (p *Processor) process(ctx context.Context, task tasks.DocumentIngestTask) error {
	// 1. 从 MinIO 下载文件
	log.Infof("[Processor] 步骤1: 从MinIO下载文件, Bucket: %s, Object: %s", p.minioCfg.BucketName, task.ObjectName)
	fileBytes, err := storage.GetBytes(ctx, p.minioCfg.BucketName, task.ObjectName)
	if err != nil {
		log.Errorf("[Processor] 从MinIO下载文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return fmt.Errorf("从 MinIO 下载文件失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d字节", len(fileBytes))
	if len(fileBytes) == 0 {
		return errors.New("文件内容为空")
	}

	// 2. 使用 Tika 提取文本
	log.Info("[Processor] 步骤2: 使用Tika提取文本内容")
	textContent, err := p.tikaClient.ExtractText(fileBytes, task.FileExt)
	if err != nil {
		log.Errorf("[Processor] 使用Tika提取文本失败, FileName: %s, Error: %v", task.FileName, err)
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	if textContent == "" {
		return errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 步骤2: 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	// 3. 文本切块
	log.Infof("[Processor] 步骤3: 进行文本分块, chunkSize: %d, chunkOverlap: %d", p.chunkingCfg.ChunkSize, p.chunkingCfg.ChunkOverlap)
	chunks := Chunk(textContent, p.chunkingCfg.ChunkSize, p.chunkingCfg.ChunkOverlap)
	if len(chunks) == 0 {
		return errors.New("未生成任何文本分块")
	}
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(chunks))

	// 4. 清理既有的多余分块向量（幂等重跑时旧分块数可能大于新分块数）
	doc, err := p.documentRepo.FindByID(ctx, task.DocumentID)
	if err != nil {
		return fmt.Errorf("查询文档节点失败: %w", err)
	}
	for i := len(chunks); i < doc.ChunkCount; i++ {
		staleID := fmt.Sprintf("chunk-%s-%d", task.DocumentID, i)
		if err := p.index.Delete(staleID); err != nil && !errors.Is(err, vector.ErrNotFound) {
			log.Warnf("[Processor] 清理旧分块向量失败, ID: %s, Error: %v", staleID, err)
		}
	}

	// 5. 批量向量化（单次 provider 调用，结果与输入同序）
	log.Infof("[Processor] 步骤4: 批量向量化 %d 个分块", len(chunks))
	vectors, err := p.embeddingClient.CreateEmbeddings(ctx, chunks)
	if err != nil {
		log.Errorf("[Processor] 批量向量化失败, DocumentID: %s, Error: %v", task.DocumentID, err)
		return fmt.Errorf("批量向量化失败: %w", err)
	}

	// 6. 写入向量索引
	log.Info("[Processor] 步骤5: 将分块向量写入索引")
	now := time.Now().UnixMilli()
	for i, vec := range vectors {
		chunkID := fmt.Sprintf("chunk-%s-%d", task.DocumentID, i)
		metadata := map[string]any{
			"type":          "document_chunk",
			"document_id":   task.DocumentID,
			"document_name": task.FileName,
			"chunk_index":   i,
			"content":       chunks[i],
			"context_id":    task.ContextID,
			"owner_id":      task.OwnerID,
			"timestamp":     now,
		}
		if _, err := p.index.Insert(chunkID, vec, metadata); err != nil {
			log.Errorf("[Processor] 分块 %d 写入索引失败, Error: %v", i, err)
			return fmt.Errorf("分块 %d 写入索引失败: %w", i, err)
		}
	}

	// 7. 更新图节点与摄取状态
	if err := p.documentRepo.UpdateChunkCount(ctx, task.DocumentID, len(chunks)); err != nil {
		return fmt.Errorf("更新文档分块数失败: %w", err)
	}
	if err := p.ingestRepo.MarkIndexed(task.DocumentID, len(chunks)); err != nil {
		return fmt.Errorf("更新摄取状态失败: %w", err)
	}
	log.Infof("[Processor] 文档处理成功完成, DocumentID: %s, 分块数: %d", task.DocumentID, len(chunks))
	return nil
}
