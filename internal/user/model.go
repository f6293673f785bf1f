package user

import (
	"time"
)

// LoginType 标记用户的登录方式
type LoginType string

const (
	// LoginTypePassword 表示邮箱+密码注册的用户
	LoginTypePassword LoginType = "password"
	// LoginTypeGoogle 表示通过外部OAuth注册的用户（无本地密码）
	LoginTypeGoogle LoginType = "google"
)

// User 定义了用户的持久化模型。
// Email和Handle全局唯一；WisdomLevel是非负的声望计数，
// 只由背书账本（backing）增减，且写入时保证不会低于0。
type User struct {
	ID           uint      `gorm:"primarykey" json:"user_id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"` // OAuth用户可以为空
	Handle       string    `gorm:"size:50;uniqueIndex;not null" json:"handle"`
	LoginType    LoginType `gorm:"size:16;not null" json:"login_type"`
	WisdomLevel  int       `gorm:"not null;default:0" json:"wisdom_level"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile 是用户资料页的响应模型，在User之上附加统计数据
type Profile struct {
	User
	PredictionCount int64 `json:"prediction_count"`
	BackingCount    int64 `json:"backing_count"`
}
