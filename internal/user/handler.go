package user

import (
	"net/http"
	"strconv"
	"time"

	"github.com/callingitnow/callingitnow-backend/internal/platform/config"
	"github.com/callingitnow/callingitnow-backend/pkg/apperr"
	"github.com/callingitnow/callingitnow-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

// RegisterRequestBody 定义了注册请求体的JSON结构
type RegisterRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Handle   string `json:"handle" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequestBody 定义了登录请求体的JSON结构
type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse 是注册/登录成功后的响应
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func tokenTTL() time.Duration {
	hours := 168
	if config.Cfg != nil && config.Cfg.Auth.TokenTTLHours > 0 {
		hours = config.Cfg.Auth.TokenTTLHours
	}
	return time.Duration(hours) * time.Hour
}

// HandleRegister 处理 POST /api/auth/register
func HandleRegister(c *gin.Context) {
	var body RegisterRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Abort(c, apperr.Validation("请求格式错误: "+err.Error()))
		return
	}

	u, err := Register(RegisterInput{Email: body.Email, Handle: body.Handle, Password: body.Password})
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	signed, err := token.IssueAccessToken(u.ID, tokenTTL())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, AuthResponse{AccessToken: signed, TokenType: "bearer"})
}

// HandleLogin 处理 POST /api/auth/login
func HandleLogin(c *gin.Context) {
	var body LoginRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Abort(c, apperr.Validation("请求格式错误: "+err.Error()))
		return
	}

	u, err := Authenticate(body.Email, body.Password)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	signed, err := token.IssueAccessToken(u.ID, tokenTTL())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{AccessToken: signed, TokenType: "bearer"})
}

// HandleMe 处理 GET /api/auth/me，返回当前用户的资料
func HandleMe(c *gin.Context) {
	u := CurrentUser(c)
	profile, err := GetProfile(u.ID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// HandleGetProfile 处理 GET /api/users/:id/profile
func HandleGetProfile(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperr.Abort(c, apperr.Validation("用户ID格式错误"))
		return
	}

	profile, err := GetProfile(uint(id))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
