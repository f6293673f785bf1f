package prediction

import (
	"net/http"
	"strconv"

	"github.com/callingitnow/callingitnow-backend/internal/user"
	"github.com/callingitnow/callingitnow-backend/pkg/apperr"
	"github.com/gin-gonic/gin"
)

// CreatePredictionRequestBody 定义了创建预测请求体的JSON结构
type CreatePredictionRequestBody struct {
	Title        string     `json:"title" binding:"required,min=1,max=120"`
	Content      string     `json:"content" binding:"required,min=1"`
	Category     string     `json:"category" binding:"required,min=1,max=50"`
	Visibility   Visibility `json:"visibility" binding:"required,oneof=public private"`
	AllowBacking *bool      `json:"allow_backing"`
	GroupID      *uint      `json:"group_id"`
}

// VoteRequestBody 定义了投票请求体的JSON结构
type VoteRequestBody struct {
	Value *int `json:"value" binding:"required,min=-1,max=1"`
}

func predictionIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperr.Abort(c, apperr.Validation("预测ID格式错误"))
		return 0, false
	}
	return uint(id), true
}

func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	return
}

// HandleCreate 处理 POST /api/predictions
func HandleCreate(c *gin.Context) {
	var body CreatePredictionRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Abort(c, apperr.Validation("请求格式错误: "+err.Error()))
		return
	}

	allowBacking := true
	if body.AllowBacking != nil {
		allowBacking = *body.AllowBacking
	}

	dto, err := Create(user.CurrentUser(c), CreateInput{
		Title:        body.Title,
		Content:      body.Content,
		Category:     body.Category,
		Visibility:   body.Visibility,
		AllowBacking: allowBacking,
		GroupID:      body.GroupID,
	})
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto)
}

// HandleList 处理 GET /api/predictions
func HandleList(c *gin.Context) {
	page, perPage := pageParams(c)
	q := ListQuery{
		Category:   c.Query("category"),
		Sort:       c.DefaultQuery("sort", SortRecent),
		SafeSearch: c.Query("safe_search") == "true",
		Page:       page,
		PerPage:    perPage,
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apperr.Abort(c, apperr.Validation("user_id格式错误"))
			return
		}
		uid := uint(id)
		q.UserID = &uid
	}

	result, err := List(user.CurrentUser(c), q)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleListMine 处理 GET /api/predictions/my
func HandleListMine(c *gin.Context) {
	page, perPage := pageParams(c)
	result, err := ListMine(user.CurrentUser(c), page, perPage)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleListForGroup 处理 GET /api/groups/:id/predictions
func HandleListForGroup(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperr.Abort(c, apperr.Validation("小组ID格式错误"))
		return
	}

	page, perPage := pageParams(c)
	result, listErr := ListForGroup(user.CurrentUser(c), uint(groupID), page, perPage)
	if listErr != nil {
		apperr.Abort(c, listErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleGet 处理 GET /api/predictions/:id
func HandleGet(c *gin.Context) {
	id, ok := predictionIDParam(c)
	if !ok {
		return
	}
	dto, err := Get(user.CurrentUser(c), id)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// HandleDelete 处理 DELETE /api/predictions/:id
func HandleDelete(c *gin.Context) {
	id, ok := predictionIDParam(c)
	if !ok {
		return
	}
	if err := Delete(user.CurrentUser(c), id); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleVote 处理 POST /api/predictions/:id/vote
func HandleVote(c *gin.Context) {
	id, ok := predictionIDParam(c)
	if !ok {
		return
	}

	var body VoteRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Abort(c, apperr.Validation("请求格式错误: "+err.Error()))
		return
	}

	if err := CastVote(user.CurrentUser(c), id, *body.Value); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "投票成功"})
}

// HandleBack 处理 POST /api/predictions/:id/back
func HandleBack(c *gin.Context) {
	id, ok := predictionIDParam(c)
	if !ok {
		return
	}
	if err := Back(user.CurrentUser(c), id); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "背书成功"})
}

// HandleUnback 处理 DELETE /api/predictions/:id/back
func HandleUnback(c *gin.Context) {
	id, ok := predictionIDParam(c)
	if !ok {
		return
	}
	if err := Unback(user.CurrentUser(c), id); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGetReceipt 处理 GET /api/predictions/:id/receipt
func HandleGetReceipt(c *gin.Context) {
	id, ok := predictionIDParam(c)
	if !ok {
		return
	}
	dto, err := GetReceipt(user.CurrentUser(c), id)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// HandleTrending 处理 GET /api/predictions/trending
func HandleTrending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	dtos, err := Trending(user.CurrentUser(c), limit)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": dtos})
}

// HandleCategories 处理 GET /api/predictions/categories
func HandleCategories(c *gin.Context) {
	cats, err := Categories()
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}
