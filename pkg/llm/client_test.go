package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"nexus-chat-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteReturnsAnswer(t *testing.T) {
	var gotReq struct {
		Stream      bool       `json:"stream"`
		Temperature *float64   `json:"temperature"`
		MaxTokens   *int       `json:"max_tokens"`
		Messages    []Message  `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := map[string]any{"choices": []map[string]any{
			{"message": map[string]any{"content": "final answer"}},
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "test"})
	temp := 0.3
	maxTokens := 500
	answer, err := client.Complete(context.Background(),
		[]Message{{Role: "system", Content: "rules"}, {Role: "user", Content: "question"}},
		&GenerationParams{Temperature: &temp, MaxTokens: &maxTokens})
	require.NoError(t, err)

	assert.Equal(t, "final answer", answer)
	assert.False(t, gotReq.Stream)
	require.NotNil(t, gotReq.Temperature)
	assert.Equal(t, 0.3, *gotReq.Temperature)
	require.NotNil(t, gotReq.MaxTokens)
	assert.Equal(t, 500, *gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
}

func TestCompleteProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "q"}}, nil)
	assert.ErrorIs(t, err, ErrProvider)
}

type captureWriter struct{ chunks []string }

func (w *captureWriter) WriteMessage(messageType int, data []byte) error {
	w.chunks = append(w.chunks, string(data))
	return nil
}

func TestStreamChatMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n" +
				"data: [DONE]\n"))
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "test"})
	writer := &captureWriter{}
	err := client.StreamChatMessages(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, writer)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, writer.chunks)
}
