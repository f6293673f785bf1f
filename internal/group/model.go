package group

import (
	"time"
)

// Visibility 定义小组的可见性级别
type Visibility string

const (
	// VisibilityPublic 公开小组：任何人可见、可加入
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate 私密小组：任何人可见，仅成员可参与（加入需要邀请，未建模）
	VisibilityPrivate Visibility = "private"
	// VisibilitySecret 隐秘小组：对非成员完全隐藏
	VisibilitySecret Visibility = "secret"
)

// Role 定义成员在小组中的角色
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Group 定义了小组的持久化模型。Name全局唯一。
type Group struct {
	ID          uint       `gorm:"primarykey" json:"group_id"`
	Name        string     `gorm:"size:120;uniqueIndex;not null" json:"name"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Visibility  Visibility `gorm:"size:16;not null" json:"visibility"`
	CreatedBy   uint       `gorm:"not null;index" json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// GroupMember 定义了小组成员关系。
// (GroupID, UserID) 唯一约束由数据库强制，创建者在建组时自动成为owner。
type GroupMember struct {
	ID       uint      `gorm:"primarykey" json:"group_member_id"`
	GroupID  uint      `gorm:"not null;uniqueIndex:idx_group_members_group_user" json:"group_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_group_members_group_user" json:"user_id"`
	Role     Role      `gorm:"size:16;not null" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
