package api_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/callingitnow/callingitnow-backend/internal/comment"
	"github.com/callingitnow/callingitnow-backend/internal/prediction"
	"github.com/callingitnow/callingitnow-backend/internal/testutil"
	"github.com/callingitnow/callingitnow-backend/pkg/receipt"
	"github.com/gin-gonic/gin"
)

// 走一遍核心用户旅程：注册 -> 发预测 -> 投票 -> 背书 -> 评论 -> 回执验证。
func TestFullPredictionJourney(t *testing.T) {
	testutil.Setup(t)
	r := testutil.NewRouter()

	author := testutil.CreateUser(t, "author")
	fan := testutil.CreateUser(t, "fan")
	authorToken := testutil.TokenFor(t, author)
	fanToken := testutil.TokenFor(t, fan)

	// 发布预测
	w := testutil.Request(t, r, http.MethodPost, "/api/predictions", authorToken, gin.H{
		"title":      "明年比特币突破20万美元",
		"content":    "基于减半周期的判断",
		"category":   "crypto",
		"visibility": "public",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("发布预测应返回201, 实际: %d, body: %s", w.Code, w.Body.String())
	}
	var created prediction.PredictionDTO
	testutil.DecodeJSON(t, w, &created)
	if created.Hash == "" || len(created.Hash) != 64 {
		t.Fatalf("响应应携带64位十六进制指纹: %q", created.Hash)
	}

	// visibility是必填字段
	w = testutil.Request(t, r, http.MethodPost, "/api/predictions", authorToken, gin.H{
		"title":    "缺少可见性",
		"content":  "内容",
		"category": "misc",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("缺少visibility应返回400, 实际: %d", w.Code)
	}

	// 匿名读公共信息流
	w = testutil.Request(t, r, http.MethodGet, "/api/predictions", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("公共信息流应返回200, 实际: %d", w.Code)
	}
	var list prediction.ListResult
	testutil.DecodeJSON(t, w, &list)
	if list.Total != 1 {
		t.Fatalf("信息流应有1条预测, 实际: %d", list.Total)
	}

	// 投票与背书
	path := fmt.Sprintf("/api/predictions/%d/vote", created.ID)
	if w = testutil.Request(t, r, http.MethodPost, path, fanToken, gin.H{"value": 1}); w.Code != http.StatusOK {
		t.Fatalf("投票应返回200, 实际: %d, body: %s", w.Code, w.Body.String())
	}
	path = fmt.Sprintf("/api/predictions/%d/back", created.ID)
	if w = testutil.Request(t, r, http.MethodPost, path, fanToken, nil); w.Code != http.StatusCreated {
		t.Fatalf("背书应返回201, 实际: %d, body: %s", w.Code, w.Body.String())
	}

	// 带登录态读详情，应能看到自己的投票和背书状态
	path = fmt.Sprintf("/api/predictions/%d", created.ID)
	w = testutil.Request(t, r, http.MethodGet, path, fanToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("详情应返回200, 实际: %d", w.Code)
	}
	var detail prediction.PredictionDTO
	testutil.DecodeJSON(t, w, &detail)
	if detail.VoteScore != 1 || detail.BackingCount != 1 {
		t.Fatalf("详情聚合不对: score=%d backings=%d", detail.VoteScore, detail.BackingCount)
	}
	if detail.UserVote == nil || *detail.UserVote != 1 || !detail.UserBacked {
		t.Fatalf("详情应反映调用者自己的投票/背书状态: %+v", detail)
	}

	// 评论与评论树
	path = fmt.Sprintf("/api/predictions/%d/comments", created.ID)
	w = testutil.Request(t, r, http.MethodPost, path, fanToken, gin.H{"content": "有道理"})
	if w.Code != http.StatusCreated {
		t.Fatalf("评论应返回201, 实际: %d, body: %s", w.Code, w.Body.String())
	}
	var posted comment.Comment
	testutil.DecodeJSON(t, w, &posted)

	w = testutil.Request(t, r, http.MethodPost, path, authorToken, gin.H{
		"content":           "谢谢支持",
		"parent_comment_id": posted.ID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("回复应返回201, 实际: %d, body: %s", w.Code, w.Body.String())
	}

	w = testutil.Request(t, r, http.MethodGet, path+"?sort=top", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("评论树应返回200, 实际: %d", w.Code)
	}
	var thread struct {
		Comments []*comment.ThreadNode `json:"comments"`
	}
	testutil.DecodeJSON(t, w, &thread)
	if len(thread.Comments) != 1 || len(thread.Comments[0].Replies) != 1 {
		t.Fatalf("评论树结构不对: %+v", thread.Comments)
	}

	// 回执可独立复算
	path = fmt.Sprintf("/api/predictions/%d/receipt", created.ID)
	w = testutil.Request(t, r, http.MethodGet, path, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("回执应返回200, 实际: %d", w.Code)
	}
	var rcpt prediction.ReceiptDTO
	testutil.DecodeJSON(t, w, &rcpt)
	ts, err := time.Parse(time.RFC3339Nano, rcpt.Timestamp)
	if err != nil {
		t.Fatalf("回执时间戳格式错误: %v", err)
	}
	if !receipt.Verify(author.ID, rcpt.Title, rcpt.Content, ts, rcpt.Hash) {
		t.Fatal("回执字段复算的指纹应与响应中的一致")
	}
	if rcpt.UserHandle != "author" {
		t.Fatalf("回执应携带作者昵称: %q", rcpt.UserHandle)
	}

	// 热榜
	w = testutil.Request(t, r, http.MethodGet, "/api/predictions/trending", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("热榜应返回200, 实际: %d", w.Code)
	}
}

func TestWriteEndpointsRequireAuth(t *testing.T) {
	testutil.Setup(t)
	r := testutil.NewRouter()
	author := testutil.CreateUser(t, "author")

	p, err := prediction.Create(author, prediction.CreateInput{
		Title:        "某预测",
		Content:      "内容",
		Category:     "misc",
		Visibility:   prediction.VisibilityPublic,
		AllowBacking: true,
	})
	if err != nil {
		t.Fatalf("创建预测失败: %v", err)
	}

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/predictions"},
		{http.MethodDelete, fmt.Sprintf("/api/predictions/%d", p.ID)},
		{http.MethodPost, fmt.Sprintf("/api/predictions/%d/vote", p.ID)},
		{http.MethodPost, fmt.Sprintf("/api/predictions/%d/back", p.ID)},
		{http.MethodDelete, fmt.Sprintf("/api/predictions/%d/back", p.ID)},
		{http.MethodPost, fmt.Sprintf("/api/predictions/%d/comments", p.ID)},
		{http.MethodGet, "/api/predictions/my"},
		{http.MethodPost, "/api/groups"},
	}
	for _, tc := range cases {
		w := testutil.Request(t, r, tc.method, tc.path, "", gin.H{})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s 未认证应返回401, 实际: %d", tc.method, tc.path, w.Code)
		}
	}

	// 读端点对匿名开放
	w := testutil.Request(t, r, http.MethodGet, fmt.Sprintf("/api/predictions/%d", p.ID), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("匿名读公开预测应返回200, 实际: %d", w.Code)
	}
}
