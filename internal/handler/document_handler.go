package handler

import (
	"io"
	"net/http"

	"nexus-chat-go/internal/service"
	"nexus-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 单次上传的文件大小上限（50MB）。
const maxUploadSize = 50 << 20

// DocumentHandler 负责处理文档上传、共享、删除等 API 请求。
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Upload 处理文档上传请求。文件经 multipart 表单提交，字段名为 file。
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "缺少 file 字段", "data": nil})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "文件超过大小限制", "data": nil})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err, "读取上传文件失败")
		return
	}
	defer file.Close()
	fileBytes, err := io.ReadAll(file)
	if err != nil {
		respondError(c, err, "读取上传文件失败")
		return
	}

	doc, err := h.documentService.Upload(c.Request.Context(), currentUserID(c), fileHeader.Filename, fileBytes)
	if err != nil {
		log.Errorf("Upload: Failed, fileName: %s, error: %v", fileHeader.Filename, err)
		respondError(c, err, "上传文档失败")
		return
	}
	respondOK(c, doc)
}

// ShareRequest 定义了共享文档的请求体结构。
type ShareRequest struct {
	TargetID   string `json:"targetId" binding:"required"`
	TargetType string `json:"targetType" binding:"required,oneof=user group community"`
}

// Share 处理文档共享请求。仅属主可执行。
func (h *DocumentHandler) Share(c *gin.Context) {
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
		return
	}
	err := h.documentService.Share(c.Request.Context(), currentUserID(c), c.Param("id"), req.TargetID, req.TargetType)
	if err != nil {
		respondError(c, err, "共享文档失败")
		return
	}
	respondOK(c, nil)
}

// Delete 处理文档删除请求。仅属主可执行。
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documentService.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err, "删除文档失败")
		return
	}
	respondOK(c, nil)
}

// List 返回当前用户上传的文档列表。
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documentService.ListOwned(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err, "查询文档失败")
		return
	}
	respondOK(c, docs)
}

// IngestStatus 返回文档的异步摄取进度。
func (h *DocumentHandler) IngestStatus(c *gin.Context) {
	ingest, err := h.documentService.IngestStatus(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "查询摄取状态失败")
		return
	}
	respondOK(c, ingest)
}

// Download 生成文档的临时下载链接。
func (h *DocumentHandler) Download(c *gin.Context) {
	info, err := h.documentService.GenerateDownloadURL(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "生成下载链接失败")
		return
	}
	respondOK(c, info)
}
