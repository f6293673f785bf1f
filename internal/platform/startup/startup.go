package startup

import (
	"fmt"

	"github.com/callingitnow/callingitnow-backend/internal/comment"
	"github.com/callingitnow/callingitnow-backend/internal/group"
	"github.com/callingitnow/callingitnow-backend/internal/moderation"
	"github.com/callingitnow/callingitnow-backend/internal/platform/config"
	"github.com/callingitnow/callingitnow-backend/internal/prediction"
	"github.com/callingitnow/callingitnow-backend/internal/user"
)

// InitializeApplication 是应用首次启动时执行的总入口：
// 迁移各模块表结构、装配跨模块级联、初始化审核词表，
// 最后从数据库预热Redis缓存。
func InitializeApplication(cfg *config.Config) error {
	fmt.Println("开始应用首次初始化...")

	if err := user.Setup(); err != nil {
		return err
	}
	if err := group.Setup(); err != nil {
		return err
	}
	if err := prediction.Setup(); err != nil {
		return err
	}
	if err := comment.Setup(); err != nil {
		return err
	}

	moderation.Initialize(cfg.Moderation.CustomWords)

	if err := prediction.PrimeCache(); err != nil {
		return err
	}

	fmt.Println("应用初始化完成！")
	return nil
}

// RebuildCache 是一个专门用于在运行时热重建Redis缓存的函数，
// 由健康检查器在Redis重启恢复后调用。
func RebuildCache() error {
	fmt.Println("开始缓存热重建...")
	if err := prediction.PrimeCache(); err != nil {
		return err
	}
	fmt.Println("缓存热重建完成。")
	return nil
}
