package group

import (
	"net/http"
	"strconv"

	"github.com/callingitnow/callingitnow-backend/internal/user"
	"github.com/callingitnow/callingitnow-backend/pkg/apperr"
	"github.com/gin-gonic/gin"
)

// CreateGroupRequestBody 定义了创建小组请求体的JSON结构
type CreateGroupRequestBody struct {
	Name        string     `json:"name" binding:"required,min=1,max=120"`
	Description string     `json:"description" binding:"required"`
	Visibility  Visibility `json:"visibility" binding:"required,oneof=public private secret"`
}

func groupIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperr.Abort(c, apperr.Validation("小组ID格式错误"))
		return 0, false
	}
	return uint(id), true
}

// HandleCreate 处理 POST /api/groups
func HandleCreate(c *gin.Context) {
	var body CreateGroupRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Abort(c, apperr.Validation("请求格式错误: "+err.Error()))
		return
	}

	g, err := Create(user.CurrentUser(c), CreateInput{
		Name:        body.Name,
		Description: body.Description,
		Visibility:  body.Visibility,
	})
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// HandleList 处理 GET /api/groups
func HandleList(c *gin.Context) {
	groups, err := List(user.CurrentUser(c))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// HandleGet 处理 GET /api/groups/:id
func HandleGet(c *gin.Context) {
	id, ok := groupIDParam(c)
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

// HandleJoin 处理 POST /api/groups/:id/join
func HandleJoin(c *gin.Context) {
	id, ok := groupIDParam(c)
	if !ok {
		return
	}
	if err := Join(user.CurrentUser(c), id); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "加入成功"})
}

// HandleLeave 处理 POST /api/groups/:id/leave
func HandleLeave(c *gin.Context) {
	id, ok := groupIDParam(c)
	if !ok {
		return
	}
	if err := Leave(user.CurrentUser(c), id); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已退出小组"})
}

// HandleDelete 处理 DELETE /api/groups/:id
func HandleDelete(c *gin.Context) {
	id, ok := groupIDParam(c)
	if !ok {
		return
	}
	if err := Delete(user.CurrentUser(c), id); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
