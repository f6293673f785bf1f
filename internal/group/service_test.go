package group_test

import (
	"errors"
	"testing"

	"github.com/callingitnow/callingitnow-backend/internal/group"
	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
	"github.com/callingitnow/callingitnow-backend/internal/prediction"
	"github.com/callingitnow/callingitnow-backend/internal/testutil"
	"github.com/callingitnow/callingitnow-backend/internal/user"
	"github.com/callingitnow/callingitnow-backend/pkg/apperr"
)

func newGroup(t *testing.T, owner *user.User, name string, visibility group.Visibility) *group.Group {
	t.Helper()
	g, err := group.Create(owner, group.CreateInput{
		Name:        name,
		Description: "测试小组",
		Visibility:  visibility,
	})
	if err != nil {
		t.Fatalf("无法创建小组 %q: %v", name, err)
	}
	return g
}

func TestCreateRegistersOwner(t *testing.T) {
	testutil.Setup(t)
	owner := testutil.CreateUser(t, "owner")

	g := newGroup(t, owner, "预言家俱乐部", group.VisibilityPublic)

	m, err := group.Membership(g.ID, owner.ID)
	if err != nil {
		t.Fatalf("查询成员关系失败: %v", err)
	}
	if m == nil || m.Role != group.RoleOwner {
		t.Fatalf("创建者应自动成为owner, 实际: %+v", m)
	}

	dto, err := group.Get(owner, g.ID)
	if err != nil {
		t.Fatalf("查询小组失败: %v", err)
	}
	if dto.MemberCount != 1 {
		t.Fatalf("新建小组成员数应为1, 实际: %d", dto.MemberCount)
	}
	if dto.UserRole == nil || *dto.UserRole != group.RoleOwner {
		t.Fatalf("调用者角色应为owner, 实际: %v", dto.UserRole)
	}
}

func TestDuplicateNameConflict(t *testing.T) {
	testutil.Setup(t)
	owner := testutil.CreateUser(t, "owner")

	newGroup(t, owner, "重名小组", group.VisibilityPublic)
	_, err := group.Create(owner, group.CreateInput{Name: "重名小组", Visibility: group.VisibilityPublic})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("重名小组应返回conflict类错误, 实际: %v", err)
	}
}

func TestJoinSemantics(t *testing.T) {
	testutil.Setup(t)
	owner := testutil.CreateUser(t, "owner")
	joiner := testutil.CreateUser(t, "joiner")

	pub := newGroup(t, owner, "公开小组", group.VisibilityPublic)
	priv := newGroup(t, owner, "私有小组", group.VisibilityPrivate)

	if err := group.Join(joiner, pub.ID); err != nil {
		t.Fatalf("加入公开小组失败: %v", err)
	}
	if err := group.Join(joiner, pub.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("重复加入应返回conflict类错误, 实际: %v", err)
	}
	if err := group.Join(joiner, priv.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("自由加入私有小组应返回forbidden类错误, 实际: %v", err)
	}
}

func TestOwnerCannotLeave(t *testing.T) {
	testutil.Setup(t)
	owner := testutil.CreateUser(t, "owner")
	member := testutil.CreateUser(t, "member")

	g := newGroup(t, owner, "小组", group.VisibilityPublic)
	if err := group.Join(member, g.ID); err != nil {
		t.Fatalf("加入小组失败: %v", err)
	}

	if err := group.Leave(owner, g.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("owner退出应返回forbidden类错误, 实际: %v", err)
	}
	if err := group.Leave(member, g.ID); err != nil {
		t.Fatalf("普通成员退出失败: %v", err)
	}
	// 已退出后再次退出：not-found类错误
	if err := group.Leave(member, g.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("非成员退出应返回not-found类错误, 实际: %v", err)
	}
}

func TestSecretGroupHiddenFromOutsiders(t *testing.T) {
	testutil.Setup(t)
	owner := testutil.CreateUser(t, "owner")
	outsider := testutil.CreateUser(t, "outsider")

	g := newGroup(t, owner, "秘密小组", group.VisibilitySecret)

	// 对非成员而言秘密小组如同不存在
	if _, err := group.Get(outsider, g.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("非成员访问秘密小组应返回not-found类错误, 实际: %v", err)
	}
	if _, err := group.Get(nil, g.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("匿名访问秘密小组应返回not-found类错误, 实际: %v", err)
	}

	visible, err := group.List(outsider)
	if err != nil {
		t.Fatalf("查询小组列表失败: %v", err)
	}
	for _, item := range visible {
		if item.ID == g.ID {
			t.Fatal("秘密小组不应出现在非成员的列表中")
		}
	}

	ownerView, err := group.List(owner)
	if err != nil {
		t.Fatalf("查询小组列表失败: %v", err)
	}
	found := false
	for _, item := range ownerView {
		if item.ID == g.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("成员应能在列表中看到秘密小组")
	}
}

func TestGroupPredictionGates(t *testing.T) {
	testutil.Setup(t)
	owner := testutil.CreateUser(t, "owner")
	outsider := testutil.CreateUser(t, "outsider")

	priv := newGroup(t, owner, "私有小组", group.VisibilityPrivate)

	// 非成员不能在小组内发布
	if _, err := prediction.Create(outsider, prediction.CreateInput{
		Title:        "潜入发言",
		Content:      "内容",
		Category:     "misc",
		Visibility:   prediction.VisibilityPublic,
		AllowBacking: true,
		GroupID:      &priv.ID,
	}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("非成员在小组内发布应返回forbidden类错误, 实际: %v", err)
	}

	dto, err := prediction.Create(owner, prediction.CreateInput{
		Title:        "组内预测",
		Content:      "内容",
		Category:     "misc",
		Visibility:   prediction.VisibilityPublic,
		AllowBacking: true,
		GroupID:      &priv.ID,
	})
	if err != nil {
		t.Fatalf("成员在小组内发布失败: %v", err)
	}

	// 组内预测不进入公共信息流
	feed, err := prediction.List(nil, prediction.ListQuery{})
	if err != nil {
		t.Fatalf("查询公共信息流失败: %v", err)
	}
	if feed.Total != 0 {
		t.Fatalf("组内预测不应出现在公共信息流中, 实际条数: %d", feed.Total)
	}

	// 非成员看不到私有小组的预测列表
	if _, err := prediction.ListForGroup(outsider, priv.ID, 1, 20); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("非成员读取私有小组预测应返回forbidden类错误, 实际: %v", err)
	}
	inGroup, err := prediction.ListForGroup(owner, priv.ID, 1, 20)
	if err != nil {
		t.Fatalf("成员读取小组预测失败: %v", err)
	}
	if inGroup.Total != 1 || inGroup.Predictions[0].ID != dto.ID {
		t.Fatalf("成员应能看到组内预测: %+v", inGroup)
	}
}

func TestDeleteCascadesMembersAndPredictions(t *testing.T) {
	testutil.Setup(t)
	owner := testutil.CreateUser(t, "owner")
	member := testutil.CreateUser(t, "member")

	g := newGroup(t, owner, "将被解散", group.VisibilityPublic)
	if err := group.Join(member, g.ID); err != nil {
		t.Fatalf("加入小组失败: %v", err)
	}

	dto, err := prediction.Create(owner, prediction.CreateInput{
		Title:        "组内预测",
		Content:      "内容",
		Category:     "misc",
		Visibility:   prediction.VisibilityPublic,
		AllowBacking: true,
		GroupID:      &g.ID,
	})
	if err != nil {
		t.Fatalf("组内发布失败: %v", err)
	}
	if err := prediction.CastVote(member, dto.ID, 1); err != nil {
		t.Fatalf("投票失败: %v", err)
	}

	// 非owner不能解散
	if err := group.Delete(member, g.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("非owner解散应返回forbidden类错误, 实际: %v", err)
	}

	if err := group.Delete(owner, g.ID); err != nil {
		t.Fatalf("解散小组失败: %v", err)
	}

	var members int64
	if err := database.DB.Model(&group.GroupMember{}).Where("group_id = ?", g.ID).Count(&members).Error; err != nil {
		t.Fatalf("无法统计成员: %v", err)
	}
	if members != 0 {
		t.Fatalf("解散后成员关系应被清空, 剩余: %d", members)
	}

	var preds int64
	if err := database.DB.Model(&prediction.Prediction{}).Where("group_id = ?", g.ID).Count(&preds).Error; err != nil {
		t.Fatalf("无法统计组内预测: %v", err)
	}
	if preds != 0 {
		t.Fatalf("解散后组内预测应被级联删除, 剩余: %d", preds)
	}

	var votes int64
	if err := database.DB.Model(&prediction.Vote{}).Count(&votes).Error; err != nil {
		t.Fatalf("无法统计投票: %v", err)
	}
	if votes != 0 {
		t.Fatalf("组内预测的投票应被级联删除, 剩余: %d", votes)
	}

	if _, err := group.Get(owner, g.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("解散后的小组应不存在, 实际: %v", err)
	}
}
