// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"nexus-chat-go/internal/service"
	"nexus-chat-go/pkg/tika"

	"github.com/gin-gonic/gin"
)

// respondOK 以统一的 code/message/data 结构返回成功响应。
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    data,
	})
}

// respondError 将业务层错误映射为 HTTP 状态码。
func respondError(c *gin.Context, err error, fallbackMsg string) {
	status := http.StatusInternalServerError
	msg := fallbackMsg
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
		msg = "资源不存在"
	case errors.Is(err, service.ErrAccessDenied):
		status = http.StatusForbidden
		msg = "没有权限执行此操作"
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		msg = "用户名或密码错误"
	case errors.Is(err, service.ErrUsernameTaken):
		status = http.StatusBadRequest
		msg = "用户名已存在"
	case errors.Is(err, service.ErrEmailTaken):
		status = http.StatusBadRequest
		msg = "邮箱已被注册"
	case errors.Is(err, tika.ErrUnsupportedFormat):
		status = http.StatusBadRequest
		msg = "不支持的文件格式"
	}
	c.JSON(status, gin.H{"code": status, "message": msg, "data": nil})
}

// currentUserID 从认证中间件写入的上下文中取出用户 ID。
func currentUserID(c *gin.Context) string {
	return c.GetString("userID")
}
