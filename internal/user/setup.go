package user

import (
	"fmt"

	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
)

// Setup 迁移用户表结构。在应用启动时调用一次。
func Setup() error {
	if err := database.DB.AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("无法迁移用户表: %w", err)
	}
	return nil
}
