package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/callingitnow/callingitnow-backend/api"
	"github.com/callingitnow/callingitnow-backend/internal/platform/config"
	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
	"github.com/callingitnow/callingitnow-backend/internal/platform/health"
	"github.com/callingitnow/callingitnow-backend/internal/platform/shutdown"
	"github.com/callingitnow/callingitnow-backend/internal/platform/startup"
	"github.com/callingitnow/callingitnow-backend/pkg/lifecycle"
	"github.com/callingitnow/callingitnow-backend/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("无法加载配置: %v", err))
	}

	token.GenerateSecretKey()
	database.InitDB(cfg.Database)
	database.InitRedis(cfg.Database.Redis)

	// 1. 阻塞式获取初始Run ID
	health.InitializeRunID()

	// 2. 执行应用首次启动初始化流程
	if err := startup.InitializeApplication(cfg); err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	// 3. 阻塞式执行一次启动后健康检查
	fmt.Println("正在执行启动后健康检查...")
	health.PerformCheck()

	// 4. 异步启动后台的持续健康检查器
	mgr := lifecycle.NewManager()
	healthHandle, err := mgr.NewServiceHandle("redis-health-checker")
	if err != nil {
		panic(fmt.Sprintf("无法注册健康检查服务: %v", err))
	}
	go health.StartRedisHealthCheck(healthHandle)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("Failed to start server: " + err.Error())
		}
	}()

	// 阻塞等待停机信号并执行优雅停机
	coordinator := shutdown.NewCoordinator(mgr)
	coordinator.ListenForSignalsAndShutdown(server)
}
