package prediction

import (
	"fmt"

	"github.com/callingitnow/callingitnow-backend/internal/group"
	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
)

// Setup 迁移预测相关的表结构，并向group模块注册级联清理函数。
// 在应用启动时调用一次。
func Setup() error {
	if err := database.DB.AutoMigrate(&Prediction{}, &Vote{}, &Backing{}); err != nil {
		return fmt.Errorf("无法迁移预测表: %w", err)
	}
	group.RegisterPredictionCascade(deleteGroupPredictionsInTx)
	return nil
}
