package handler

import (
	"net/http"
	"strconv"

	"nexus-chat-go/internal/model"
	"nexus-chat-go/internal/service"
	"nexus-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// MessageHandler 负责处理消息发送与历史查询的 API 请求。
type MessageHandler struct {
	messageService service.MessageService
}

// NewMessageHandler 创建一个新的 MessageHandler 实例。
func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// SendMessageRequest 定义了发送消息的请求体结构。
type SendMessageRequest struct {
	RecipientID   string `json:"recipientId" binding:"required"`
	RecipientType string `json:"recipientType" binding:"required,oneof=user group community"`
	Content       string `json:"content" binding:"required"`
}

// Send 处理发送消息的请求。
func (h *MessageHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
		return
	}
	message, err := h.messageService.SendMessage(c.Request.Context(), currentUserID(c), req.RecipientID, req.RecipientType, req.Content)
	if err != nil {
		log.Errorf("Send: Failed to send message, error: %v", err)
		respondError(c, err, "发送消息失败")
		return
	}
	respondOK(c, toMessageDTO(message))
}

// ListDirect 返回当前用户与另一用户之间的私聊历史。
func (h *MessageHandler) ListDirect(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	before, _ := strconv.ParseInt(c.DefaultQuery("before", "0"), 10, 64)
	messages, err := h.messageService.ListDirect(c.Request.Context(), currentUserID(c), c.Param("id"), limit, before)
	if err != nil {
		respondError(c, err, "查询消息失败")
		return
	}
	respondOK(c, toMessageDTOs(messages))
}

// ListContainer 返回群组/社区的消息历史。
func (h *MessageHandler) ListContainer(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	before, _ := strconv.ParseInt(c.DefaultQuery("before", "0"), 10, 64)
	messages, err := h.messageService.ListForContainer(c.Request.Context(), currentUserID(c), c.Param("id"), limit, before)
	if err != nil {
		respondError(c, err, "查询消息失败")
		return
	}
	respondOK(c, toMessageDTOs(messages))
}

func toMessageDTO(m *model.Message) model.MessageDTO {
	return model.MessageDTO{
		ID:          m.ID,
		Content:     m.Content,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Timestamp:   model.LocalTime(m.Timestamp),
		VectorID:    m.VectorID,
	}
}

func toMessageDTOs(messages []model.Message) []model.MessageDTO {
	dtos := make([]model.MessageDTO, 0, len(messages))
	for i := range messages {
		dtos = append(dtos, toMessageDTO(&messages[i]))
	}
	return dtos
}
