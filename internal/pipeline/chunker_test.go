package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkShortTextSingleChunk(t *testing.T) {
	text := "短文本不需要切分。"
	chunks := Chunk(text, 1000, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunkEmptyText(t *testing.T) {
	assert.Nil(t, Chunk("", 1000, 100))
}

func TestChunkCutsAtSentenceBoundary(t *testing.T) {
	// 窗口末端落在第二句中间，应回退到句号处切分。
	text := strings.Repeat("a", 50) + "." + strings.Repeat("b", 50)
	chunks := Chunk(text, 80, 10)
	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.Repeat("a", 50)+".", chunks[0])
}

func TestChunkBoundaryPriority(t *testing.T) {
	// 窗口内同时存在句号和空格时，句号优先，即使空格离末端更近。
	text := strings.Repeat("a", 30) + "." + strings.Repeat("b", 30) + " " + strings.Repeat("c", 30)
	chunks := Chunk(text, 70, 5)
	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.Repeat("a", 30)+".", chunks[0])
}

func TestChunkNoBoundaryFallsBackToHardCut(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := Chunk(text, 100, 20)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 100, len([]rune(chunks[0])))
}

func TestChunkOverlapCarriesTail(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := Chunk(text, 100, 20)
	require.GreaterOrEqual(t, len(chunks), 2)
	// 第二块以第一块的末尾 20 个字符开头
	first := []rune(chunks[0])
	assert.True(t, strings.HasPrefix(chunks[1], string(first[len(first)-20:])))
}

func TestChunkCoversWholeText(t *testing.T) {
	// 无重叠时所有分块拼接应还原原文
	text := strings.Repeat("x", 333)
	chunks := Chunk(text, 100, 0)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestChunkTerminatesWithInvalidOverlap(t *testing.T) {
	// overlap >= chunkSize 会导致窗口无法前进，应退化为简单切分
	text := strings.Repeat("y", 500)
	chunks := Chunk(text, 100, 100)
	require.Len(t, chunks, 5)
	assert.Equal(t, text, strings.Join(chunks, ""))

	chunks = Chunk(text, 100, 150)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestChunkDeterministic(t *testing.T) {
	text := strings.Repeat("hello world. ", 100)
	a := Chunk(text, 120, 30)
	b := Chunk(text, 120, 30)
	assert.Equal(t, a, b)
}

func TestChunkRuneSafety(t *testing.T) {
	// 多字节字符不能被截断出半个 rune
	text := strings.Repeat("中文字符测试。", 100)
	chunks := Chunk(text, 50, 10)
	for _, c := range chunks {
		assert.True(t, strings.ContainsRune("。中文字符测试", []rune(c)[len([]rune(c))-1]))
	}
}
