package service

import (
	"context"
	"fmt"
	"strings"

	"nexus-chat-go/internal/model"
	"nexus-chat-go/pkg/embedding"
	"nexus-chat-go/pkg/llm"
	"nexus-chat-go/pkg/log"
	"nexus-chat-go/pkg/vector"
)

// ragSystemInstruction 是固定的 system 指令：只依据检索上下文回答。
const ragSystemInstruction = "你是一个知识库问答助手。只根据提供的上下文回答问题。" +
	"如果上下文不足以回答，明确说明你没有找到相关信息，不要编造。"

// 生成参数固定为低温度与有限输出长度。
var (
	ragTemperature = 0.3
	ragMaxTokens   = 500
)

// RagService 编排一次检索增强问答：
// 查询向量化 -> 权限范围解析 -> 向量检索(超采样) -> 上下文过滤 -> prompt 组装 -> 生成。
type RagService interface {
	// Query 执行完整管道并返回最终回答及其来源。
	// contextIDs 非空时按原样用作过滤白名单，不与解析器核验；
	// 为空时使用 AccessService 解析出的范围。
	Query(ctx context.Context, query, userID string, contextIDs []string, maxItems int) (*model.QueryAnswer, error)
	// Retrieve 只执行检索阶段（步骤1~4），供流式聊天复用。
	Retrieve(ctx context.Context, query, userID string, contextIDs []string, maxItems int) ([]model.RetrievedItem, error)
}

type ragService struct {
	embeddingClient embedding.Client
	index           *vector.Index
	accessService   AccessService
	llmClient       llm.Client
}

// NewRagService 创建一个新的 RagService 实例。
func NewRagService(embeddingClient embedding.Client, index *vector.Index, accessService AccessService, llmClient llm.Client) RagService {
	return &ragService{
		embeddingClient: embeddingClient,
		index:           index,
		accessService:   accessService,
		llmClient:       llmClient,
	}
}

// Retrieve 执行 embed -> scope -> search -> filter 四个阶段。
// 超采样 k = maxItems*2；过滤永远不会越过超采样窗口。
func (s *ragService) Retrieve(ctx context.Context, query, userID string, contextIDs []string, maxItems int) ([]model.RetrievedItem, error) {
	if maxItems <= 0 {
		maxItems = 5
	}

	// 1. 查询向量化
	log.Infof("[RagService] 步骤1: 向量化查询, user: %s", userID)
	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// 2. 解析权限范围。调用方显式传入的白名单按原样使用。
	scope := contextIDs
	if len(scope) == 0 {
		log.Infof("[RagService] 步骤2: 解析用户可访问范围, user: %s", userID)
		scope, err = s.accessService.AccessibleContexts(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("resolve access scope: %w", err)
		}
	} else {
		log.Infof("[RagService] 步骤2: 使用调用方白名单, user: %s, contexts: %d", userID, len(scope))
	}
	scopeSet := make(map[string]struct{}, len(scope))
	for _, id := range scope {
		scopeSet[id] = struct{}{}
	}

	// 3. 向量检索，超采样 2 倍以抵消过滤损耗
	k := maxItems * 2
	log.Infof("[RagService] 步骤3: 向量检索, k: %d", k)
	results, err := s.index.Search(queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	// 4. 按排名顺序过滤 context_id，凑够 maxItems 即停
	items := make([]model.RetrievedItem, 0, maxItems)
	for _, r := range results {
		contextID, _ := r.Metadata["context_id"].(string)
		if _, ok := scopeSet[contextID]; !ok {
			continue
		}
		content, _ := r.Metadata["content"].(string)
		items = append(items, model.RetrievedItem{
			VectorID: r.ID,
			Score:    float64(r.Distance),
			Content:  content,
			Metadata: r.Metadata,
		})
		if len(items) >= maxItems {
			break
		}
	}
	log.Infof("[RagService] 步骤4: 过滤完成, 命中: %d / %d", len(items), len(results))
	return items, nil
}

// Query 执行完整管道并调用 LLM 生成回答。
func (s *ragService) Query(ctx context.Context, query, userID string, contextIDs []string, maxItems int) (*model.QueryAnswer, error) {
	items, err := s.Retrieve(ctx, query, userID, contextIDs, maxItems)
	if err != nil {
		return nil, err
	}

	// 5. 组装 prompt：每条上下文按 "[type]: content" 格式，空行分隔，末尾附原始查询
	log.Infof("[RagService] 步骤5: 组装 prompt, 条目: %d", len(items))
	prompt := buildRagPrompt(items, query)

	// 6. 阻塞式生成
	log.Info("[RagService] 步骤6: 调用 LLM 生成回答")
	gen := &llm.GenerationParams{
		Temperature: &ragTemperature,
		MaxTokens:   &ragMaxTokens,
	}
	messages := []llm.Message{
		{Role: "system", Content: ragSystemInstruction},
		{Role: "user", Content: prompt},
	}
	answer, err := s.llmClient.Complete(ctx, messages, gen)
	if err != nil {
		return nil, fmt.Errorf("llm completion: %w", err)
	}

	// 7. sources 即实际进入 prompt 的条目元数据，顺序一致
	sources := make([]map[string]any, 0, len(items))
	for _, item := range items {
		sources = append(sources, item.Metadata)
	}
	return &model.QueryAnswer{Answer: answer, Sources: sources}, nil
}

func buildRagPrompt(items []model.RetrievedItem, query string) string {
	var b strings.Builder
	for _, item := range items {
		itemType, _ := item.Metadata["type"].(string)
		if itemType == "" {
			itemType = "unknown"
		}
		b.WriteString(fmt.Sprintf("[%s]: %s\n\n", itemType, item.Content))
	}
	b.WriteString(query)
	return b.String()
}
