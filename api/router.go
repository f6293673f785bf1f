package api

import (
	"github.com/callingitnow/callingitnow-backend/internal/comment"
	"github.com/callingitnow/callingitnow-backend/internal/group"
	"github.com/callingitnow/callingitnow-backend/internal/prediction"
	"github.com/callingitnow/callingitnow-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		// 认证相关的路由组 /api/auth
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", user.HandleRegister)
			authRoutes.POST("/login", user.HandleLogin)
			authRoutes.GET("/me", user.RequireAuthMiddleware(), user.HandleMe)
		}

		// 用户资料
		api.GET("/users/:id/profile", user.HandleGetProfile)

		// 预测相关的路由组 /api/predictions
		predictionRoutes := api.Group("/predictions")
		{
			predictionRoutes.GET("", user.OptionalAuthMiddleware(), prediction.HandleList)
			predictionRoutes.POST("", user.RequireAuthMiddleware(), prediction.HandleCreate)
			predictionRoutes.GET("/my", user.RequireAuthMiddleware(), prediction.HandleListMine)
			predictionRoutes.GET("/trending", user.OptionalAuthMiddleware(), prediction.HandleTrending)
			predictionRoutes.GET("/categories", prediction.HandleCategories)
			predictionRoutes.GET("/:id", user.OptionalAuthMiddleware(), prediction.HandleGet)
			predictionRoutes.DELETE("/:id", user.RequireAuthMiddleware(), prediction.HandleDelete)
			predictionRoutes.POST("/:id/vote", user.RequireAuthMiddleware(), prediction.HandleVote)
			predictionRoutes.POST("/:id/back", user.RequireAuthMiddleware(), prediction.HandleBack)
			predictionRoutes.DELETE("/:id/back", user.RequireAuthMiddleware(), prediction.HandleUnback)
			predictionRoutes.GET("/:id/receipt", user.OptionalAuthMiddleware(), prediction.HandleGetReceipt)

			// 评论挂在预测之下
			predictionRoutes.POST("/:id/comments", user.RequireAuthMiddleware(), comment.HandleCreate)
			predictionRoutes.GET("/:id/comments", user.OptionalAuthMiddleware(), comment.HandleGetThread)
		}

		// 评论投票
		api.POST("/comments/:id/vote", user.RequireAuthMiddleware(), comment.HandleVote)

		// 小组相关的路由组 /api/groups
		groupRoutes := api.Group("/groups")
		{
			groupRoutes.GET("", user.OptionalAuthMiddleware(), group.HandleList)
			groupRoutes.POST("", user.RequireAuthMiddleware(), group.HandleCreate)
			groupRoutes.GET("/:id", user.OptionalAuthMiddleware(), group.HandleGet)
			groupRoutes.DELETE("/:id", user.RequireAuthMiddleware(), group.HandleDelete)
			groupRoutes.POST("/:id/join", user.RequireAuthMiddleware(), group.HandleJoin)
			groupRoutes.POST("/:id/leave", user.RequireAuthMiddleware(), group.HandleLeave)
			groupRoutes.GET("/:id/predictions", user.OptionalAuthMiddleware(), prediction.HandleListForGroup)
		}
	}
}
