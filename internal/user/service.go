package user

import (
	"errors"
	"fmt"

	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
	"github.com/callingitnow/callingitnow-backend/pkg/apperr"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput 是注册服务的输入参数
type RegisterInput struct {
	Email    string
	Handle   string
	Password string
}

// Register 创建一个新的密码登录用户。
// Email和Handle的唯一性由数据库约束兜底，冲突时返回Conflict类错误。
func Register(input RegisterInput) (*User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("无法哈希密码: %w", err)
	}

	newUser := User{
		Email:        input.Email,
		Handle:       input.Handle,
		PasswordHash: string(hashed),
		LoginType:    LoginTypePassword,
	}
	if err := database.DB.Create(&newUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("邮箱或昵称已被占用")
		}
		return nil, fmt.Errorf("无法创建用户: %w", err)
	}
	return &newUser, nil
}

// Authenticate 校验邮箱和密码，成功时返回用户。
// 为避免泄露账号是否存在，两种失败返回同一个错误。
func Authenticate(email, password string) (*User, error) {
	var u User
	if err := database.DB.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("邮箱或密码错误")
		}
		return nil, fmt.Errorf("无法查询用户: %w", err)
	}

	if u.LoginType != LoginTypePassword || u.PasswordHash == "" {
		return nil, apperr.Unauthorized("邮箱或密码错误")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("邮箱或密码错误")
	}
	return &u, nil
}

// GetByID 按ID查询用户
func GetByID(id uint) (*User, error) {
	var u User
	if err := database.DB.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("用户不存在")
		}
		return nil, fmt.Errorf("无法查询用户: %w", err)
	}
	return &u, nil
}

// GetProfile 返回用户资料和统计数据。
// BackingCount 统计的是该用户的预测收到的背书总数（与wisdom_level同源）。
func GetProfile(id uint) (*Profile, error) {
	u, err := GetByID(id)
	if err != nil {
		return nil, err
	}

	var predictionCount int64
	if err := database.DB.Table("predictions").Where("user_id = ?", id).Count(&predictionCount).Error; err != nil {
		return nil, fmt.Errorf("无法统计预测数量: %w", err)
	}

	var backingCount int64
	err = database.DB.Table("backings").
		Joins("JOIN predictions ON predictions.id = backings.prediction_id").
		Where("predictions.user_id = ?", id).
		Count(&backingCount).Error
	if err != nil {
		return nil, fmt.Errorf("无法统计背书数量: %w", err)
	}

	return &Profile{
		User:            *u,
		PredictionCount: predictionCount,
		BackingCount:    backingCount,
	}, nil
}
