package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "sudooom.social.realtime/internal/errors"
	"sudooom.social.realtime/internal/middleware"
	"sudooom.social.realtime/internal/model"
	"sudooom.social.realtime/internal/service"
	"sudooom.social.realtime/pkg/response"
)

// EngagementHandler 评论与点赞处理器
// 事件源入口之一：评论和点赞的落库在这里触发通知管线
type EngagementHandler struct {
	engagementService *service.EngagementService
}

// NewEngagementHandler 创建互动处理器
func NewEngagementHandler(engagementService *service.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagementService: engagementService}
}

type createCommentRequest struct {
	Comment  string `json:"comment" binding:"required"`
	ParentID int64  `json:"parent_id"`
}

// CreateComment 创建评论
// POST /api/v1/posts/:post_id/comments
func (h *EngagementHandler) CreateComment(c *gin.Context) {
	userID := middleware.GetUserID(c)

	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	comment, err := h.engagementService.CreateComment(c.Request.Context(), userID, postID, req.ParentID, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"id": comment.ID})
}

type likeRequest struct {
	SubjectKind string `json:"subject_kind" binding:"required"`
	SubjectID   int64  `json:"subject_id" binding:"required"`
}

// CreateLike 点赞
// POST /api/v1/likes
func (h *EngagementHandler) CreateLike(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	subject := model.SubjectRef{Kind: model.SubjectKind(req.SubjectKind), ID: req.SubjectID}
	like, err := h.engagementService.CreateLike(c.Request.Context(), userID, subject)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"id": like.ID})
}

// RemoveLike 取消点赞
// DELETE /api/v1/likes
func (h *EngagementHandler) RemoveLike(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	subject := model.SubjectRef{Kind: model.SubjectKind(req.SubjectKind), ID: req.SubjectID}
	if err := h.engagementService.RemoveLike(c.Request.Context(), userID, subject); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}
