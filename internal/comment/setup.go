package comment

import (
	"fmt"

	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
	"github.com/callingitnow/callingitnow-backend/internal/prediction"
)

// Setup 迁移评论相关的表结构，并向prediction模块注册级联清理函数。
// 在应用启动时调用一次。
func Setup() error {
	if err := database.DB.AutoMigrate(&Comment{}, &CommentVote{}); err != nil {
		return fmt.Errorf("无法迁移评论表: %w", err)
	}
	prediction.RegisterCommentCascade(deletePredictionCommentsInTx)
	return nil
}
