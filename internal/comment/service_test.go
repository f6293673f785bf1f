package comment_test

import (
	"errors"
	"testing"
	"time"

	"github.com/callingitnow/callingitnow-backend/internal/comment"
	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
	"github.com/callingitnow/callingitnow-backend/internal/prediction"
	"github.com/callingitnow/callingitnow-backend/internal/testutil"
	"github.com/callingitnow/callingitnow-backend/internal/user"
	"github.com/callingitnow/callingitnow-backend/pkg/apperr"
)

func newPrediction(t *testing.T, author *user.User) *prediction.PredictionDTO {
	t.Helper()
	dto, err := prediction.Create(author, prediction.CreateInput{
		Title:        "讨论载体",
		Content:      "内容",
		Category:     "misc",
		Visibility:   prediction.VisibilityPublic,
		AllowBacking: true,
	})
	if err != nil {
		t.Fatalf("无法创建测试预测: %v", err)
	}
	return dto
}

func addComment(t *testing.T, author *user.User, predictionID uint, content string, parentID *uint) *comment.Comment {
	t.Helper()
	c, err := comment.Create(author, predictionID, comment.CreateInput{Content: content, ParentCommentID: parentID})
	if err != nil {
		t.Fatalf("无法创建评论 %q: %v", content, err)
	}
	return c
}

func TestThreadNestingAndOrphanPromotion(t *testing.T) {
	testutil.Setup(t)
	author := testutil.CreateUser(t, "author")
	p := newPrediction(t, author)

	a := addComment(t, author, p.ID, "A", nil)
	b := addComment(t, author, p.ID, "B", &a.ID)
	c := addComment(t, author, p.ID, "C", &b.ID)

	// 父评论缺失的孤儿直接落库，装配时应提升为根
	missing := uint(9999)
	orphan := comment.Comment{
		PredictionID:    p.ID,
		UserID:          author.ID,
		ParentCommentID: &missing,
		Content:         "D",
	}
	if err := database.DB.Create(&orphan).Error; err != nil {
		t.Fatalf("无法直接写入孤儿评论: %v", err)
	}

	roots, err := comment.GetThread(author, p.ID, comment.SortNew)
	if err != nil {
		t.Fatalf("装配评论树失败: %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("应有2个根(A和被提升的孤儿D), 实际: %d", len(roots))
	}

	var rootA *comment.ThreadNode
	foundOrphan := false
	for _, r := range roots {
		switch r.ID {
		case a.ID:
			rootA = r
		case orphan.ID:
			foundOrphan = true
		}
	}
	if rootA == nil {
		t.Fatal("A应出现在根列表中")
	}
	if !foundOrphan {
		t.Fatal("孤儿评论D应被提升为根")
	}

	if len(rootA.Replies) != 1 || rootA.Replies[0].ID != b.ID {
		t.Fatalf("B应是A的直接回复: %+v", rootA.Replies)
	}
	nested := rootA.Replies[0]
	if len(nested.Replies) != 1 || nested.Replies[0].ID != c.ID {
		t.Fatalf("C应嵌套在B之下: %+v", nested.Replies)
	}
}

func TestRootSortingLeavesRepliesInDiscoveryOrder(t *testing.T) {
	testutil.Setup(t)
	author := testutil.CreateUser(t, "author")
	v1 := testutil.CreateUser(t, "voter1")
	v2 := testutil.CreateUser(t, "voter2")
	p := newPrediction(t, author)

	first := addComment(t, author, p.ID, "先到的根", nil)
	time.Sleep(10 * time.Millisecond)
	second := addComment(t, author, p.ID, "后到的根", nil)
	replyOld := addComment(t, author, p.ID, "旧回复", &first.ID)
	replyNew := addComment(t, author, p.ID, "新回复", &first.ID)

	// second 得2票净0（争议大）, first 得1票净+1
	if err := comment.CastVote(v1, second.ID, 1); err != nil {
		t.Fatalf("评论投票失败: %v", err)
	}
	if err := comment.CastVote(v2, second.ID, -1); err != nil {
		t.Fatalf("评论投票失败: %v", err)
	}
	if err := comment.CastVote(v1, first.ID, 1); err != nil {
		t.Fatalf("评论投票失败: %v", err)
	}
	// 给回复投票，验证排序只作用于根
	if err := comment.CastVote(v1, replyNew.ID, 1); err != nil {
		t.Fatalf("评论投票失败: %v", err)
	}

	cases := []struct {
		sortMode  string
		firstRoot uint
	}{
		{comment.SortNew, second.ID},
		{comment.SortTop, first.ID},
		{comment.SortControversial, second.ID},
	}
	for _, tc := range cases {
		roots, err := comment.GetThread(nil, p.ID, tc.sortMode)
		if err != nil {
			t.Fatalf("%s排序装配失败: %v", tc.sortMode, err)
		}
		if roots[0].ID != tc.firstRoot {
			t.Fatalf("%s排序首位根应是 %d, 实际: %d", tc.sortMode, tc.firstRoot, roots[0].ID)
		}

		// 无论根怎么排，回复都保持发现顺序
		for _, r := range roots {
			if r.ID != first.ID {
				continue
			}
			if len(r.Replies) != 2 || r.Replies[0].ID != replyOld.ID || r.Replies[1].ID != replyNew.ID {
				t.Fatalf("%s排序下回复顺序被打乱: %+v", tc.sortMode, r.Replies)
			}
		}
	}
}

func TestVoteToggleSemantics(t *testing.T) {
	testutil.Setup(t)
	author := testutil.CreateUser(t, "author")
	voter := testutil.CreateUser(t, "voter")
	p := newPrediction(t, author)
	c := addComment(t, author, p.ID, "被投票的评论", nil)

	countVotes := func() int64 {
		var n int64
		if err := database.DB.Model(&comment.CommentVote{}).Where("comment_id = ?", c.ID).Count(&n).Error; err != nil {
			t.Fatalf("无法统计评论投票: %v", err)
		}
		return n
	}

	// 没有投票时发0：not-found类错误
	if err := comment.CastVote(voter, c.ID, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("无投票时撤销应返回not-found类错误, 实际: %v", err)
	}

	if err := comment.CastVote(voter, c.ID, 1); err != nil {
		t.Fatalf("评论投票失败: %v", err)
	}
	if countVotes() != 1 {
		t.Fatal("首次投票后应有1行")
	}

	// 同向重复投票是撤销
	if err := comment.CastVote(voter, c.ID, 1); err != nil {
		t.Fatalf("重复同向投票失败: %v", err)
	}
	if countVotes() != 0 {
		t.Fatal("同向重复投票应删除既有投票")
	}

	// 反向投票是改票
	if err := comment.CastVote(voter, c.ID, 1); err != nil {
		t.Fatalf("评论投票失败: %v", err)
	}
	if err := comment.CastVote(voter, c.ID, -1); err != nil {
		t.Fatalf("改票失败: %v", err)
	}
	var v comment.CommentVote
	if err := database.DB.Where("comment_id = ? AND user_id = ?", c.ID, voter.ID).First(&v).Error; err != nil {
		t.Fatalf("无法加载评论投票: %v", err)
	}
	if v.Value != -1 {
		t.Fatalf("改票后值应为-1, 实际: %d", v.Value)
	}

	// 有投票时发0是显式撤销
	if err := comment.CastVote(voter, c.ID, 0); err != nil {
		t.Fatalf("显式撤销失败: %v", err)
	}
	if countVotes() != 0 {
		t.Fatal("显式撤销后不应残留投票行")
	}
}

func TestParentValidation(t *testing.T) {
	testutil.Setup(t)
	author := testutil.CreateUser(t, "author")
	p1 := newPrediction(t, author)
	p2, err := prediction.Create(author, prediction.CreateInput{
		Title:        "另一条预测",
		Content:      "内容",
		Category:     "misc",
		Visibility:   prediction.VisibilityPublic,
		AllowBacking: true,
	})
	if err != nil {
		t.Fatalf("创建预测失败: %v", err)
	}

	foreign := addComment(t, author, p2.ID, "别处的评论", nil)

	missing := uint(12345)
	if _, err := comment.Create(author, p1.ID, comment.CreateInput{Content: "x", ParentCommentID: &missing}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("回复不存在的父评论应返回validation类错误, 实际: %v", err)
	}
	if _, err := comment.Create(author, p1.ID, comment.CreateInput{Content: "x", ParentCommentID: &foreign.ID}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("跨预测回复应返回validation类错误, 实际: %v", err)
	}
}

func TestCommentGatedByPredictionVisibility(t *testing.T) {
	testutil.Setup(t)
	author := testutil.CreateUser(t, "author")
	outsider := testutil.CreateUser(t, "outsider")

	dto, err := prediction.Create(author, prediction.CreateInput{
		Title:        "私密预测",
		Content:      "内容",
		Category:     "misc",
		Visibility:   prediction.VisibilityPrivate,
		AllowBacking: true,
	})
	if err != nil {
		t.Fatalf("创建预测失败: %v", err)
	}

	if _, err := comment.Create(outsider, dto.ID, comment.CreateInput{Content: "x"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("对不可见预测评论应返回not-found类错误, 实际: %v", err)
	}
	if _, err := comment.GetThread(outsider, dto.ID, comment.SortNew); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("读取不可见预测的评论树应返回not-found类错误, 实际: %v", err)
	}
}
