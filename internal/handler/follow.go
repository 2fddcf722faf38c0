package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/middleware"
	"sudooom.social.realtime/internal/service"
	"sudooom.social.realtime/pkg/response"
)

// FollowHandler 关注关系处理器
// 事件源入口之一：关注边的创建与状态流转在这里触发通知管线
type FollowHandler struct {
	followService *service.FollowService
}

// NewFollowHandler 创建关注处理器
func NewFollowHandler(followService *service.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// Send 发起关注
// POST /api/v1/follows/:id
func (h *FollowHandler) Send(c *gin.Context) {
	userID := middleware.GetUserID(c)

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	follow, err := h.followService.Send(c.Request.Context(), userID, targetID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"id":     follow.ID,
		"status": follow.Status,
	})
}

// Accept 接受关注请求
// POST /api/v1/follows/:id/accept
func (h *FollowHandler) Accept(c *gin.Context) {
	userID := middleware.GetUserID(c)

	followID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	if err := h.followService.Accept(c.Request.Context(), followID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// Decline 拒绝关注请求
// POST /api/v1/follows/:id/decline
func (h *FollowHandler) Decline(c *gin.Context) {
	userID := middleware.GetUserID(c)

	followID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	if err := h.followService.Decline(c.Request.Context(), followID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// Cancel 撤回本人发出的待审批关注请求
// DELETE /api/v1/follows/requests/:id
func (h *FollowHandler) Cancel(c *gin.Context) {
	userID := middleware.GetUserID(c)

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	if err := h.followService.Cancel(c.Request.Context(), userID, targetID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// Unfollow 取消关注
// DELETE /api/v1/follows/:id
func (h *FollowHandler) Unfollow(c *gin.Context) {
	userID := middleware.GetUserID(c)

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	if err := h.followService.Unfollow(c.Request.Context(), userID, targetID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}
