package tika

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"nexus-chat-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextUnsupportedFormat(t *testing.T) {
	client := NewClient(config.TikaConfig{ServerURL: "http://unused"})
	_, err := client.ExtractText([]byte("data"), "exe")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractTextPlainTextBypassesTika(t *testing.T) {
	// ServerURL 故意不可用：txt/md 不应发起任何 HTTP 调用
	client := NewClient(config.TikaConfig{ServerURL: "http://127.0.0.1:0"})

	text, err := client.ExtractText([]byte("# 标题\n正文"), "md")
	require.NoError(t, err)
	assert.Equal(t, "# 标题\n正文", text)

	text, err = client.ExtractText([]byte("plain"), "txt")
	require.NoError(t, err)
	assert.Equal(t, "plain", text)
}

func TestExtractTextCallsTikaForBinaryFormats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		_, _ = w.Write([]byte("extracted text"))
	}))
	defer srv.Close()

	client := NewClient(config.TikaConfig{ServerURL: srv.URL})
	text, err := client.ExtractText([]byte{0x25, 0x50, 0x44, 0x46}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "extracted text", text)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("pdf"))
	assert.True(t, Supported(".PDF"))
	assert.True(t, Supported("md"))
	assert.False(t, Supported("png"))
}
