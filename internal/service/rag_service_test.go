package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"nexus-chat-go/pkg/embedding"
	"nexus-chat-go/pkg/llm"
	"nexus-chat-go/pkg/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, f.err
}

type fakeAccess struct {
	contexts []string
	err      error
	calls    int
}

func (f *fakeAccess) AccessibleContexts(ctx context.Context, userID string) ([]string, error) {
	f.calls++
	return f.contexts, f.err
}

func (f *fakeAccess) IsMember(ctx context.Context, userID, targetID string) (bool, error) {
	return false, nil
}

func (f *fakeAccess) IsOwner(ctx context.Context, userID, documentID string) (bool, error) {
	return false, nil
}

type fakeLLM struct {
	answer       string
	err          error
	gotMessages  []llm.Message
	gotGenParams *llm.GenerationParams
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	f.gotMessages = messages
	f.gotGenParams = gen
	return f.answer, f.err
}

func (f *fakeLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) error {
	return f.err
}

// newScopedIndex 构造一个持有 5 个向量的索引，context 分布为 {A,A,B,B,C}，
// 与查询向量 [0,0] 的距离排序为 A-item1 < B-item1 < A-item2 < C-item1 < B-item2。
func newScopedIndex(t *testing.T) *vector.Index {
	t.Helper()
	idx, err := vector.New(2, filepath.Join(t.TempDir(), "vectors.index"))
	require.NoError(t, err)

	insert := func(id string, x float32, contextID, content string) {
		_, err := idx.Insert(id, []float32{x, 0}, map[string]any{
			"type":       "message",
			"content":    content,
			"context_id": contextID,
		})
		require.NoError(t, err)
	}
	insert("A-item1", 0.1, "A", "first fact about A")
	insert("B-item1", 0.2, "B", "fact hidden in B")
	insert("A-item2", 0.3, "A", "second fact about A")
	insert("C-item1", 0.4, "C", "fact stored in C")
	insert("B-item2", 1.0, "B", "another fact in B")
	return idx
}

func TestRetrieveFiltersByScopeWithinOverfetchWindow(t *testing.T) {
	idx := newScopedIndex(t)
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	access := &fakeAccess{contexts: []string{"A", "C"}}
	svc := NewRagService(embedder, idx, access, &fakeLLM{})

	items, err := svc.Retrieve(context.Background(), "what do we know", "user-1", nil, 2)
	require.NoError(t, err)

	// B-item1 排名第二但不在范围内被跳过，凑满 maxItems=2 即停，
	// C-item1 虽然合法也不再纳入。
	require.Len(t, items, 2)
	assert.Equal(t, "A-item1", items[0].VectorID)
	assert.Equal(t, "A-item2", items[1].VectorID)
	assert.Equal(t, 1, access.calls)
}

func TestRetrieveCallerAllowlistUsedVerbatim(t *testing.T) {
	idx := newScopedIndex(t)
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	access := &fakeAccess{contexts: []string{"A"}}
	svc := NewRagService(embedder, idx, access, &fakeLLM{})

	// 调用方传入的白名单按原样使用，解析器不被调用。
	items, err := svc.Retrieve(context.Background(), "q", "user-1", []string{"B"}, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "B-item1", items[0].VectorID)
	assert.Equal(t, "B-item2", items[1].VectorID)
	assert.Equal(t, 0, access.calls)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	idx := newScopedIndex(t)
	embedder := &fakeEmbedder{err: embedding.ErrProvider}
	svc := NewRagService(embedder, idx, &fakeAccess{}, &fakeLLM{})

	_, err := svc.Retrieve(context.Background(), "q", "user-1", nil, 2)
	assert.ErrorIs(t, err, embedding.ErrProvider)
}

func TestQueryPromptAssemblyAndGeneration(t *testing.T) {
	idx := newScopedIndex(t)
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	access := &fakeAccess{contexts: []string{"A", "C"}}
	llmClient := &fakeLLM{answer: "the answer"}
	svc := NewRagService(embedder, idx, access, llmClient)

	result, err := svc.Query(context.Background(), "what do we know", "user-1", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, "the answer", result.Answer)

	// sources 是进入 prompt 的条目元数据，顺序一致
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "A", result.Sources[0]["context_id"])
	assert.Equal(t, "first fact about A", result.Sources[0]["content"])
	assert.Equal(t, "second fact about A", result.Sources[1]["content"])

	// prompt: 每条 "[type]: content"，末尾是原始查询
	require.Len(t, llmClient.gotMessages, 2)
	assert.Equal(t, "system", llmClient.gotMessages[0].Role)
	prompt := llmClient.gotMessages[1].Content
	assert.Contains(t, prompt, "[message]: first fact about A")
	assert.Contains(t, prompt, "[message]: second fact about A")
	assert.True(t, strings.HasSuffix(prompt, "what do we know"))
	assert.Less(t, strings.Index(prompt, "first fact"), strings.Index(prompt, "second fact"))

	// 固定生成参数: temperature 0.3, max_tokens 500
	require.NotNil(t, llmClient.gotGenParams)
	require.NotNil(t, llmClient.gotGenParams.Temperature)
	assert.InDelta(t, 0.3, *llmClient.gotGenParams.Temperature, 1e-9)
	require.NotNil(t, llmClient.gotGenParams.MaxTokens)
	assert.Equal(t, 500, *llmClient.gotGenParams.MaxTokens)
}

func TestQueryLLMFailure(t *testing.T) {
	idx := newScopedIndex(t)
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	svc := NewRagService(embedder, idx, &fakeAccess{contexts: []string{"A"}}, &fakeLLM{err: llm.ErrProvider})

	_, err := svc.Query(context.Background(), "q", "user-1", nil, 2)
	assert.ErrorIs(t, err, llm.ErrProvider)
}

func TestQueryEmptyScopeYieldsNoSources(t *testing.T) {
	idx := newScopedIndex(t)
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	llmClient := &fakeLLM{answer: "no context answer"}
	svc := NewRagService(embedder, idx, &fakeAccess{contexts: nil}, llmClient)

	result, err := svc.Query(context.Background(), "q", "user-1", nil, 2)
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
	// prompt 退化为仅含查询本身
	assert.Equal(t, "q", llmClient.gotMessages[1].Content)
}
