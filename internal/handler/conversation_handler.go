package handler

import (
	"nexus-chat-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 负责处理对话历史相关的 API 请求。
type ConversationHandler struct {
	conversationService service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler 实例。
func NewConversationHandler(conversationService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// History 返回当前用户的对话历史。
func (h *ConversationHandler) History(c *gin.Context) {
	history, err := h.conversationService.GetConversationHistory(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err, "获取对话历史失败")
		return
	}
	respondOK(c, history)
}

// Reset 结束当前对话，下一轮从空历史开始。
func (h *ConversationHandler) Reset(c *gin.Context) {
	if err := h.conversationService.ResetConversation(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, err, "重置对话失败")
		return
	}
	respondOK(c, nil)
}
