package handler

import (
	"net/http"

	"nexus-chat-go/internal/service"
	"nexus-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// QueryHandler 负责处理检索增强问答的 API 请求。
type QueryHandler struct {
	ragService service.RagService
}

// NewQueryHandler 创建一个新的 QueryHandler 实例。
func NewQueryHandler(ragService service.RagService) *QueryHandler {
	return &QueryHandler{ragService: ragService}
}

// QueryRequest 定义了问答 API 的请求体结构。
// ContextIDs 非空时用作检索范围白名单，由调用方自行保证其合法性。
type QueryRequest struct {
	Query      string   `json:"query" binding:"required"`
	ContextIDs []string `json:"contextIds"`
	MaxItems   int      `json:"maxItems"`
}

// Query 执行一次完整的检索增强问答。
func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：query 不能为空", "data": nil})
		return
	}
	if req.MaxItems <= 0 {
		req.MaxItems = 5
	}

	answer, err := h.ragService.Query(c.Request.Context(), req.Query, currentUserID(c), req.ContextIDs, req.MaxItems)
	if err != nil {
		log.Errorf("Query: RAG pipeline failed, error: %v", err)
		respondError(c, err, "问答服务暂时不可用")
		return
	}
	respondOK(c, answer)
}
