package database

import (
	"fmt"
	"log"
	"os"

	"github.com/callingitnow/callingitnow-backend/internal/platform/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的GORM实例，供项目其他部分使用
var DB *gorm.DB

// InitDB 根据配置初始化数据库连接
// 默认使用SQLite，生产部署可切换到Postgres
func InitDB(cfg config.DatabaseConfig) {
	var err error

	// GORM日志配置
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 0,
			LogLevel:      logger.Silent, // 调试SQL时临时改为logger.Info
			Colorful:      true,
		},
	)

	gormCfg := &gorm.Config{
		Logger: newLogger,
		// 将驱动层的唯一约束冲突统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
	}

	switch cfg.Driver {
	case "postgres":
		DB, err = gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	default:
		DB, err = gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
	}

	if err != nil {
		fmt.Println("连接数据库失败", err)
		panic(err)
	}

	fmt.Println("数据库连接成功！")
}
