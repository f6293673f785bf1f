package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/callingitnow/callingitnow-backend/api"
	"github.com/callingitnow/callingitnow-backend/internal/comment"
	"github.com/callingitnow/callingitnow-backend/internal/group"
	"github.com/callingitnow/callingitnow-backend/internal/moderation"
	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
	"github.com/callingitnow/callingitnow-backend/internal/prediction"
	"github.com/callingitnow/callingitnow-backend/internal/user"
	"github.com/callingitnow/callingitnow-backend/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq int64

// Setup 为一个测试准备干净的运行环境：
// 独立的内存SQLite、由miniredis支撑的Redis客户端、完成迁移的各模块。
// 返回miniredis实例，便于个别测试直接操纵缓存。
func Setup(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	token.GenerateSecretKey()

	// 每个测试一个独立命名的内存库；限制单连接，
	// 避免连接池打开第二个连接时拿到另一个空库
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("无法打开测试数据库: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("无法获取底层连接池: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	database.DB = db

	mr := miniredis.RunT(t)
	database.RDB = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	database.UpdateStatus(true, "test")

	moderation.Initialize(nil)

	if err := user.Setup(); err != nil {
		t.Fatalf("用户模块初始化失败: %v", err)
	}
	if err := group.Setup(); err != nil {
		t.Fatalf("小组模块初始化失败: %v", err)
	}
	if err := prediction.Setup(); err != nil {
		t.Fatalf("预测模块初始化失败: %v", err)
	}
	if err := comment.Setup(); err != nil {
		t.Fatalf("评论模块初始化失败: %v", err)
	}
	if err := prediction.PrimeCache(); err != nil {
		t.Fatalf("缓存预热失败: %v", err)
	}

	return mr
}

// NewRouter 构建一个挂好全部API路由的测试用Gin引擎。
func NewRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api.SetupRoutes(r)
	return r
}

// CreateUser 直接通过服务层创建一个测试用户。
func CreateUser(t *testing.T, handle string) *user.User {
	t.Helper()
	u, err := user.Register(user.RegisterInput{
		Email:    handle + "@example.com",
		Handle:   handle,
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("无法创建测试用户 %s: %v", handle, err)
	}
	return u
}

// TokenFor 为测试用户签发一个访问令牌。
func TokenFor(t *testing.T, u *user.User) string {
	t.Helper()
	signed, err := token.IssueAccessToken(u.ID, time.Hour)
	if err != nil {
		t.Fatalf("无法签发测试令牌: %v", err)
	}
	return signed
}

// Request 对测试路由发起一次JSON请求并返回响应记录。
// accessToken为空表示匿名请求。
func Request(t *testing.T, r *gin.Engine, method, path, accessToken string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("无法序列化请求体: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DecodeJSON 把响应体解码到目标结构，解码失败立即终止测试。
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("无法解析响应体 %q: %v", w.Body.String(), err)
	}
}
