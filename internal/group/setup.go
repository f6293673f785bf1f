package group

import (
	"fmt"

	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
)

// Setup 迁移小组相关的表结构。在应用启动时调用一次。
func Setup() error {
	if err := database.DB.AutoMigrate(&Group{}, &GroupMember{}); err != nil {
		return fmt.Errorf("无法迁移小组表: %w", err)
	}
	return nil
}
