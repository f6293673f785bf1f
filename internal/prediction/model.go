package prediction

import (
	"time"

	"github.com/callingitnow/callingitnow-backend/internal/user"
)

// Visibility 定义预测的可见性级别
type Visibility string

const (
	// VisibilityPublic 公开预测：任何人可见
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate 私密预测：仅作者可见，对其他人表现为不存在
	VisibilityPrivate Visibility = "private"
)

// Prediction 定义了预测的持久化模型。
// 标题和正文在审核打码后落库，之后不可编辑；
// Hash在创建时计算一次，永不重算，数据库层保证全局唯一。
type Prediction struct {
	ID                uint       `gorm:"primarykey" json:"prediction_id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	User              user.User  `gorm:"foreignKey:UserID" json:"user"`
	Title             string     `gorm:"size:120;not null" json:"title"`
	Content           string     `gorm:"type:text;not null" json:"content"`
	Category          string     `gorm:"size:50;not null;index" json:"category"`
	Visibility        Visibility `gorm:"size:16;not null" json:"visibility"`
	// AllowBacking不能带default标签：gorm会把零值false当作未设置，落库成列默认值
	AllowBacking      bool       `gorm:"not null" json:"allow_backing"`
	Timestamp         time.Time  `gorm:"not null;index;autoCreateTime" json:"timestamp"`
	Hash              string     `gorm:"size:64;uniqueIndex;not null" json:"hash"`
	ContainsProfanity bool       `gorm:"not null;default:false" json:"contains_profanity"`
	GroupID           *uint      `gorm:"index" json:"group_id,omitempty"`
}

// Vote 定义了对预测的投票。
// (PredictionID, UserID) 的唯一约束由数据库强制；
// 重复投票更新既有行的Value，而不是插入新行。
type Vote struct {
	ID           uint      `gorm:"primarykey" json:"vote_id"`
	PredictionID uint      `gorm:"not null;uniqueIndex:idx_votes_prediction_user" json:"prediction_id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_votes_prediction_user" json:"user_id"`
	Value        int       `gorm:"not null" json:"value"` // -1 / 0 / 1
	Timestamp    time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// Backing 定义了对预测的背书。
// (PredictionID, BackerUserID) 唯一；创建和删除分别使作者的
// wisdom_level 加一和减一（减法在写入时钳制在0以上）。
type Backing struct {
	ID           uint      `gorm:"primarykey" json:"backing_id"`
	PredictionID uint      `gorm:"not null;uniqueIndex:idx_backings_prediction_user" json:"prediction_id"`
	BackerUserID uint      `gorm:"not null;uniqueIndex:idx_backings_prediction_user" json:"backer_user_id"`
	Timestamp    time.Time `gorm:"autoCreateTime" json:"timestamp"`
}
