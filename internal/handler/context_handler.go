package handler

import (
	"nexus-chat-go/internal/service"
	"nexus-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ContextHandler 负责处理检索范围查询的 API 请求。
type ContextHandler struct {
	accessService service.AccessService
}

// NewContextHandler 创建一个新的 ContextHandler 实例。
func NewContextHandler(accessService service.AccessService) *ContextHandler {
	return &ContextHandler{accessService: accessService}
}

// List 返回当前用户可检索的全部 Context ID。
// 与问答接口使用同一个解析器，客户端可据此构造 contextIds 白名单。
func (h *ContextHandler) List(c *gin.Context) {
	userID := currentUserID(c)
	contexts, err := h.accessService.AccessibleContexts(c.Request.Context(), userID)
	if err != nil {
		log.Errorf("ListContexts: Failed, user: %s, error: %v", userID, err)
		respondError(c, err, "查询可访问 Context 失败")
		return
	}
	respondOK(c, contexts)
}
