package comment

import (
	"net/http"
	"strconv"

	"github.com/callingitnow/callingitnow-backend/internal/user"
	"github.com/callingitnow/callingitnow-backend/pkg/apperr"
	"github.com/gin-gonic/gin"
)

// CreateCommentRequestBody 定义了发表评论请求体的JSON结构
type CreateCommentRequestBody struct {
	Content         string `json:"content" binding:"required,min=1"`
	ParentCommentID *uint  `json:"parent_comment_id"`
}

// CommentVoteRequestBody 定义了评论投票请求体的JSON结构
type CommentVoteRequestBody struct {
	Value *int `json:"value" binding:"required,min=-1,max=1"`
}

// HandleCreate 处理 POST /api/predictions/:id/comments
func HandleCreate(c *gin.Context) {
	predictionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperr.Abort(c, apperr.Validation("预测ID格式错误"))
		return
	}

	var body CreateCommentRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Abort(c, apperr.Validation("请求格式错误: "+err.Error()))
		return
	}

	created, createErr := Create(user.CurrentUser(c), uint(predictionID), CreateInput{
		Content:         body.Content,
		ParentCommentID: body.ParentCommentID,
	})
	if createErr != nil {
		apperr.Abort(c, createErr)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// HandleGetThread 处理 GET /api/predictions/:id/comments
func HandleGetThread(c *gin.Context) {
	predictionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperr.Abort(c, apperr.Validation("预测ID格式错误"))
		return
	}

	roots, threadErr := GetThread(user.CurrentUser(c), uint(predictionID), c.DefaultQuery("sort", SortNew))
	if threadErr != nil {
		apperr.Abort(c, threadErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": roots})
}

// HandleVote 处理 POST /api/comments/:id/vote
func HandleVote(c *gin.Context) {
	commentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperr.Abort(c, apperr.Validation("评论ID格式错误"))
		return
	}

	var body CommentVoteRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Abort(c, apperr.Validation("请求格式错误: "+err.Error()))
		return
	}

	if voteErr := CastVote(user.CurrentUser(c), uint(commentID), *body.Value); voteErr != nil {
		apperr.Abort(c, voteErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "操作成功"})
}
