package group

import (
	"errors"
	"fmt"

	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
	"github.com/callingitnow/callingitnow-backend/internal/user"
	"github.com/callingitnow/callingitnow-backend/pkg/apperr"
	"gorm.io/gorm"
)

// deleteGroupPredictionsInTx 由prediction模块在Setup时注册，
// 用于在删除小组的事务中级联删除组内预测及其附属数据。
// 不直接引用prediction包，避免包之间的循环依赖。
var deleteGroupPredictionsInTx func(tx *gorm.DB, groupID uint) error

// RegisterPredictionCascade 注册小组删除时的预测级联清理函数。
func RegisterPredictionCascade(f func(tx *gorm.DB, groupID uint) error) {
	deleteGroupPredictionsInTx = f
}

// CreateInput 是创建小组的输入参数
type CreateInput struct {
	Name        string
	Description string
	Visibility  Visibility
}

// GroupDTO 在Group之上附加成员统计和调用者自己的角色
type GroupDTO struct {
	Group
	MemberCount int64  `json:"member_count"`
	UserRole    *Role  `json:"user_role,omitempty"`
}

// Create 创建小组并在同一事务中把创建者登记为owner。
func Create(creator *user.User, input CreateInput) (*Group, error) {
	g := Group{
		Name:        input.Name,
		Description: input.Description,
		Visibility:  input.Visibility,
		CreatedBy:   creator.ID,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&g).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("小组名称已被占用")
			}
			return fmt.Errorf("无法创建小组: %w", err)
		}
		member := GroupMember{GroupID: g.ID, UserID: creator.ID, Role: RoleOwner}
		if err := tx.Create(&member).Error; err != nil {
			return fmt.Errorf("无法登记小组创建者: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Membership 查询成员关系，不存在时返回 (nil, nil)。
func Membership(groupID, userID uint) (*GroupMember, error) {
	var m GroupMember
	err := database.DB.Where("group_id = ? AND user_id = ?", groupID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法查询小组成员关系: %w", err)
	}
	return &m, nil
}

// CanPost 判断用户能否在小组内发布预测：必须已经是成员。
// 非成员发帖属于权限错误，而不是资源不存在。
func CanPost(groupID, userID uint) error {
	m, err := Membership(groupID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.Forbidden("只有小组成员才能在小组内发布预测")
	}
	return nil
}

// getByID 按ID查询小组，不做可见性判断
func getByID(id uint) (*Group, error) {
	var g Group
	if err := database.DB.First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("小组不存在")
		}
		return nil, fmt.Errorf("无法查询小组: %w", err)
	}
	return &g, nil
}

// GetViewable 按ID查询小组并应用可见性规则：
// 隐秘小组对非成员表现为不存在，避免泄露其存在性。
func GetViewable(viewer *user.User, id uint) (*Group, error) {
	g, err := getByID(id)
	if err != nil {
		return nil, err
	}
	if g.Visibility == VisibilitySecret {
		if viewer == nil {
			return nil, apperr.NotFound("小组不存在")
		}
		m, err := Membership(g.ID, viewer.ID)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, apperr.NotFound("小组不存在")
		}
	}
	return g, nil
}

// CanViewPredictions 判断用户能否查看小组内的预测：
// 小组公开，或调用者是成员。
func CanViewPredictions(viewer *user.User, id uint) (*Group, error) {
	g, err := GetViewable(viewer, id)
	if err != nil {
		return nil, err
	}
	if g.Visibility == VisibilityPublic {
		return g, nil
	}
	if viewer == nil {
		return nil, apperr.Forbidden("只有小组成员才能查看小组内的预测")
	}
	m, err := Membership(g.ID, viewer.ID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.Forbidden("只有小组成员才能查看小组内的预测")
	}
	return g, nil
}

// List 列出调用者可见的小组：公开和私密小组始终可见，隐秘小组仅对成员可见。
func List(viewer *user.User) ([]GroupDTO, error) {
	var groups []Group
	if err := database.DB.Order("created_at DESC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("无法查询小组列表: %w", err)
	}

	// 一次性取出调用者的全部成员关系
	memberships := make(map[uint]Role)
	if viewer != nil {
		var rows []GroupMember
		if err := database.DB.Where("user_id = ?", viewer.ID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("无法查询成员关系: %w", err)
		}
		for _, m := range rows {
			memberships[m.GroupID] = m.Role
		}
	}

	result := make([]GroupDTO, 0, len(groups))
	for _, g := range groups {
		role, isMember := memberships[g.ID]
		if g.Visibility == VisibilitySecret && !isMember {
			continue
		}

		var memberCount int64
		if err := database.DB.Model(&GroupMember{}).Where("group_id = ?", g.ID).Count(&memberCount).Error; err != nil {
			return nil, fmt.Errorf("无法统计小组成员数: %w", err)
		}

		dto := GroupDTO{Group: g, MemberCount: memberCount}
		if isMember {
			r := role
			dto.UserRole = &r
		}
		result = append(result, dto)
	}
	return result, nil
}

// Get 返回单个小组的详情（含成员数和调用者角色）。
func Get(viewer *user.User, id uint) (*GroupDTO, error) {
	g, err := GetViewable(viewer, id)
	if err != nil {
		return nil, err
	}

	var memberCount int64
	if err := database.DB.Model(&GroupMember{}).Where("group_id = ?", g.ID).Count(&memberCount).Error; err != nil {
		return nil, fmt.Errorf("无法统计小组成员数: %w", err)
	}

	dto := GroupDTO{Group: *g, MemberCount: memberCount}
	if viewer != nil {
		m, err := Membership(g.ID, viewer.ID)
		if err != nil {
			return nil, err
		}
		if m != nil {
			r := m.Role
			dto.UserRole = &r
		}
	}
	return &dto, nil
}

// Join 加入小组。仅公开小组可以自由加入；
// 私密小组需要邀请（未建模），隐秘小组对非成员不可见。
func Join(u *user.User, id uint) error {
	g, err := GetViewable(u, id)
	if err != nil {
		return err
	}
	if g.Visibility != VisibilityPublic {
		return apperr.Forbidden("该小组不接受自由加入")
	}

	member := GroupMember{GroupID: g.ID, UserID: u.ID, Role: RoleMember}
	if err := database.DB.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("已经是小组成员")
		}
		return fmt.Errorf("无法加入小组: %w", err)
	}
	return nil
}

// Leave 退出小组。owner不能退出：所有权转移没有实现，
// 解散小组是owner唯一的退出方式。
func Leave(u *user.User, id uint) error {
	if _, err := GetViewable(u, id); err != nil {
		return err
	}

	m, err := Membership(id, u.ID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.NotFound("不是小组成员")
	}
	if m.Role == RoleOwner {
		return apperr.Forbidden("小组所有者不能退出小组，只能解散小组")
	}

	if err := database.DB.Delete(&GroupMember{}, m.ID).Error; err != nil {
		return fmt.Errorf("无法退出小组: %w", err)
	}
	return nil
}

// Delete 解散小组。仅owner可以操作；
// 同一事务内级联删除成员关系和组内预测（及其投票、背书、评论）。
func Delete(u *user.User, id uint) error {
	g, err := GetViewable(u, id)
	if err != nil {
		return err
	}

	m, err := Membership(g.ID, u.ID)
	if err != nil {
		return err
	}
	if m == nil || m.Role != RoleOwner {
		return apperr.Forbidden("只有小组所有者才能解散小组")
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		if deleteGroupPredictionsInTx != nil {
			if err := deleteGroupPredictionsInTx(tx, g.ID); err != nil {
				return err
			}
		}
		if err := tx.Where("group_id = ?", g.ID).Delete(&GroupMember{}).Error; err != nil {
			return fmt.Errorf("无法删除小组成员关系: %w", err)
		}
		if err := tx.Delete(&Group{}, g.ID).Error; err != nil {
			return fmt.Errorf("无法删除小组: %w", err)
		}
		return nil
	})
}
