package handler

import (
	"net/http"

	"nexus-chat-go/internal/service"
	"nexus-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// GroupHandler 负责处理群组与社区相关的 API 请求。
type GroupHandler struct {
	groupService service.GroupService
}

// NewGroupHandler 创建一个新的 GroupHandler 实例。
func NewGroupHandler(groupService service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// CreateContainerRequest 定义了创建群组/社区的请求体结构。
type CreateContainerRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateGroup 处理创建群组的请求。
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req CreateContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：名称不能为空", "data": nil})
		return
	}
	group, err := h.groupService.CreateGroup(c.Request.Context(), currentUserID(c), req.Name)
	if err != nil {
		log.Errorf("CreateGroup: Failed, name: %s, error: %v", req.Name, err)
		respondError(c, err, "创建群组失败")
		return
	}
	respondOK(c, group)
}

// CreateCommunity 处理创建社区的请求。
func (h *GroupHandler) CreateCommunity(c *gin.Context) {
	var req CreateContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：名称不能为空", "data": nil})
		return
	}
	community, err := h.groupService.CreateCommunity(c.Request.Context(), currentUserID(c), req.Name)
	if err != nil {
		log.Errorf("CreateCommunity: Failed, name: %s, error: %v", req.Name, err)
		respondError(c, err, "创建社区失败")
		return
	}
	respondOK(c, community)
}

// AddMemberRequest 定义了添加成员的请求体结构。
type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// AddMember 处理向群组/社区添加成员的请求。
func (h *GroupHandler) AddMember(c *gin.Context) {
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：userId 不能为空", "data": nil})
		return
	}
	targetID := c.Param("id")
	if err := h.groupService.AddMember(c.Request.Context(), currentUserID(c), targetID, req.UserID); err != nil {
		respondError(c, err, "添加成员失败")
		return
	}
	respondOK(c, nil)
}

// ListMembers 返回群组/社区的成员列表。
func (h *GroupHandler) ListMembers(c *gin.Context) {
	members, err := h.groupService.Members(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "查询成员失败")
		return
	}
	respondOK(c, members)
}

// Relationships 返回群组内成员之间的关系图。非成员返回 403。
func (h *GroupHandler) Relationships(c *gin.Context) {
	relationships, err := h.groupService.Relationships(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "查询群组关系失败")
		return
	}
	respondOK(c, relationships)
}
