// Package tika 提供了一个与 Apache Tika 服务器交互的文本提取客户端。
package tika

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"nexus-chat-go/internal/config"
)

// ErrUnsupportedFormat 表示文件类型不在受支持的提取范围内（调用方错误）。
var ErrUnsupportedFormat = errors.New("unsupported file format")

// supportedExtensions 是允许提取的文件后缀（不含点）。
var supportedExtensions = map[string]bool{
	"pdf":  true,
	"docx": true,
	"doc":  true,
	"txt":  true,
	"md":   true,
}

// Extractor 定义了文档文本提取的接口。
type Extractor interface {
	// ExtractText 从文件内容中提取纯文本。fileExt 为不含点的小写后缀。
	ExtractText(fileBytes []byte, fileExt string) (string, error)
}

// Client 是 Tika 服务器的客户端。
type Client struct {
	serverURL string
	client    *http.Client
}

// NewClient 创建一个新的 Tika 客户端实例。
func NewClient(cfg config.TikaConfig) *Client {
	return &Client{serverURL: cfg.ServerURL, client: http.DefaultClient}
}

// Supported 报告一个文件后缀是否受支持。
func Supported(fileExt string) bool {
	return supportedExtensions[strings.ToLower(strings.TrimPrefix(fileExt, "."))]
}

// ExtractText 校验文件类型后调用 Tika 提取文本。
// 纯文本类型（txt/md）直接解码，不经过 Tika。
func (c *Client) ExtractText(fileBytes []byte, fileExt string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(fileExt, "."))
	if !supportedExtensions[ext] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileExt)
	}

	// txt 和 md 本身就是纯文本，无需走 Tika
	if ext == "txt" || ext == "md" {
		return string(fileBytes), nil
	}

	req, err := http.NewRequest("PUT", c.serverURL+"/tika", bytes.NewReader(fileBytes))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", mimeTypeFor(ext))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("调用 Tika 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Tika 返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", fmt.Errorf("读取 Tika 响应失败: %w", err)
	}

	return buf.String(), nil
}

// mimeTypeFor 根据文件后缀判断 Content-Type
func mimeTypeFor(ext string) string {
	mimeType := mime.TypeByExtension("." + ext)
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
