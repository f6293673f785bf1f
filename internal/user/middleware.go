package user

import (
	"strings"

	"github.com/callingitnow/callingitnow-backend/pkg/apperr"
	"github.com/callingitnow/callingitnow-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

// CurrentUserKey 是认证中间件放入Gin上下文的键
const CurrentUserKey = "currentUser"

// bearerUser 解析Authorization头并加载对应的用户。
// 任何一步失败都返回nil，由调用方决定是否视为错误。
func bearerUser(c *gin.Context) *User {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return nil
	}

	userID, err := token.ParseAccessToken(strings.TrimPrefix(header, prefix))
	if err != nil {
		return nil
	}

	u, err := GetByID(userID)
	if err != nil {
		return nil
	}
	return u
}

// RequireAuthMiddleware 要求请求携带有效的访问令牌，
// 并把对应的用户放入Gin上下文；否则返回401。
func RequireAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := bearerUser(c)
		if u == nil {
			apperr.Abort(c, apperr.Unauthorized("需要登录"))
			return
		}
		c.Set(CurrentUserKey, u)
		c.Next()
	}
}

// OptionalAuthMiddleware 在令牌有效时加载用户，无令牌或令牌无效时匿名放行。
// 用于匿名可读、登录后附带个人状态的端点。
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := bearerUser(c); u != nil {
			c.Set(CurrentUserKey, u)
		}
		c.Next()
	}
}

// CurrentUser 从Gin上下文中取出认证中间件加载的用户。
func CurrentUser(c *gin.Context) *User {
	v, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil
	}
	u, _ := v.(*User)
	return u
}
