package comment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
	"github.com/callingitnow/callingitnow-backend/internal/prediction"
	"github.com/callingitnow/callingitnow-backend/internal/user"
	"github.com/callingitnow/callingitnow-backend/pkg/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 评论树排序模式（仅作用于根评论，子回复保持发现顺序）
const (
	SortNew           = "new"
	SortTop           = "top"
	SortControversial = "controversial"
)

// CreateInput 是发表评论的输入参数
type CreateInput struct {
	Content         string
	ParentCommentID *uint
}

// Create 在某条预测下发表评论（或回复）。
// 预测必须对作者可见；父评论必须存在且属于同一条预测。
func Create(author *user.User, predictionID uint, input CreateInput) (*Comment, error) {
	if _, err := prediction.GetVisible(author, predictionID); err != nil {
		return nil, err
	}

	if input.ParentCommentID != nil {
		var parent Comment
		err := database.DB.First(&parent, *input.ParentCommentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validation("父评论不存在")
		}
		if err != nil {
			return nil, fmt.Errorf("无法查询父评论: %w", err)
		}
		if parent.PredictionID != predictionID {
			return nil, apperr.Validation("父评论不属于该预测")
		}
	}

	c := Comment{
		PredictionID:    predictionID,
		UserID:          author.ID,
		ParentCommentID: input.ParentCommentID,
		Content:         input.Content,
	}
	if err := database.DB.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("无法创建评论: %w", err)
	}
	c.User = *author
	return &c, nil
}

// ThreadNode 是评论树的响应模型节点
type ThreadNode struct {
	Comment
	VoteScore int           `json:"vote_score"`
	UserVote  *int          `json:"user_vote"`
	Replies   []*ThreadNode `json:"replies"`
}

// GetThread 把某条预测的全部评论装配成树并返回根列表。
//
// 构树采用arena方式：先为每条评论建节点并按ID建索引，再做一次
// 父子挂接。父评论ID缺失或在集合中找不到的评论提升为根（孤儿提升）。
// 排序只作用于根：new按时间倒序，top按净得分倒序，
// controversial按投票总数倒序；子回复始终保持发现顺序。
func GetThread(viewer *user.User, predictionID uint, sortMode string) ([]*ThreadNode, error) {
	if _, err := prediction.GetVisible(viewer, predictionID); err != nil {
		return nil, err
	}

	switch sortMode {
	case "", SortNew, SortTop, SortControversial:
	default:
		return nil, apperr.Validation("不支持的排序方式: " + sortMode)
	}

	var comments []Comment
	err := database.DB.Preload("User").
		Where("prediction_id = ?", predictionID).
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("无法查询评论: %w", err)
	}
	if len(comments) == 0 {
		return []*ThreadNode{}, nil
	}

	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	// 批量聚合每条评论的净得分和投票总数
	type voteAgg struct {
		CommentID uint
		Score     int
		Count     int
	}
	var aggs []voteAgg
	err = database.DB.Model(&CommentVote{}).
		Select("comment_id, COALESCE(SUM(value), 0) AS score, COUNT(id) AS count").
		Where("comment_id IN ?", ids).
		Group("comment_id").
		Scan(&aggs).Error
	if err != nil {
		return nil, fmt.Errorf("无法聚合评论投票: %w", err)
	}
	scores := make(map[uint]int, len(aggs))
	counts := make(map[uint]int, len(aggs))
	for _, a := range aggs {
		scores[a.CommentID] = a.Score
		counts[a.CommentID] = a.Count
	}

	// 调用者自己的投票
	userVotes := make(map[uint]int)
	if viewer != nil {
		var rows []CommentVote
		if err := database.DB.Where("comment_id IN ? AND user_id = ?", ids, viewer.ID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("无法查询用户评论投票: %w", err)
		}
		for _, v := range rows {
			userVotes[v.CommentID] = v.Value
		}
	}

	// 第一遍：建节点和ID索引
	byID := make(map[uint]*ThreadNode, len(comments))
	nodes := make([]*ThreadNode, len(comments))
	for i, c := range comments {
		node := &ThreadNode{
			Comment:   c,
			VoteScore: scores[c.ID],
			Replies:   []*ThreadNode{},
		}
		if v, ok := userVotes[c.ID]; ok {
			value := v
			node.UserVote = &value
		}
		byID[c.ID] = node
		nodes[i] = node
	}

	// 第二遍：挂接父子关系，孤儿提升为根
	var roots []*ThreadNode
	for _, node := range nodes {
		if node.ParentCommentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, exists := byID[*node.ParentCommentID]
		if !exists {
			roots = append(roots, node)
			continue
		}
		parent.Replies = append(parent.Replies, node)
	}

	switch sortMode {
	case SortNew:
		sort.SliceStable(roots, func(i, j int) bool {
			return roots[i].Timestamp.After(roots[j].Timestamp)
		})
	case SortTop:
		sort.SliceStable(roots, func(i, j int) bool {
			return roots[i].VoteScore > roots[j].VoteScore
		})
	case SortControversial:
		sort.SliceStable(roots, func(i, j int) bool {
			return counts[roots[i].ID] > counts[roots[j].ID]
		})
	}

	return roots, nil
}

// CastVote 记录、更新或撤销对评论的投票。
//
//   - 提交0值表示撤销投票；没有可撤销的投票时报错而不是静默通过。
//   - 提交与现值相同的非0值同样表示撤销（再点一次取消），不是幂等确认。
//   - 提交不同的值就地覆盖既有行，每个 (评论, 用户) 永远至多一行。
func CastVote(voter *user.User, commentID uint, value int) error {
	var c Comment
	err := database.DB.First(&c, commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("评论不存在")
	}
	if err != nil {
		return fmt.Errorf("无法查询评论: %w", err)
	}

	// 评论的可见性跟随其预测
	if _, err := prediction.GetVisible(voter, c.PredictionID); err != nil {
		return err
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		var existing CommentVote
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("comment_id = ? AND user_id = ?", commentID, voter.ID).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if value == 0 {
				return apperr.NotFound("没有可撤销的投票")
			}
			v := CommentVote{CommentID: commentID, UserID: voter.ID, Value: value}
			if err := tx.Create(&v).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperr.Conflict("投票状态已变化，请重试")
				}
				return fmt.Errorf("无法记录评论投票: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("无法查询评论投票: %w", err)
		}

		if value == 0 || value == existing.Value {
			// 0值撤销，重复同值视为取消（toggle-off）
			if err := tx.Delete(&CommentVote{}, existing.ID).Error; err != nil {
				return fmt.Errorf("无法撤销评论投票: %w", err)
			}
			return nil
		}

		existing.Value = value
		if err := tx.Save(&existing).Error; err != nil {
			return fmt.Errorf("无法更新评论投票: %w", err)
		}
		return nil
	})
}

// deletePredictionCommentsInTx 供prediction模块在删除预测的事务中调用，
// 级联删除评论及其投票。
func deletePredictionCommentsInTx(tx *gorm.DB, predictionIDs []uint) error {
	if len(predictionIDs) == 0 {
		return nil
	}

	var commentIDs []uint
	err := tx.Model(&Comment{}).
		Where("prediction_id IN ?", predictionIDs).
		Pluck("id", &commentIDs).Error
	if err != nil {
		return fmt.Errorf("无法查询待删除评论: %w", err)
	}

	if len(commentIDs) > 0 {
		if err := tx.Where("comment_id IN ?", commentIDs).Delete(&CommentVote{}).Error; err != nil {
			return fmt.Errorf("无法删除评论投票: %w", err)
		}
	}
	if err := tx.Where("prediction_id IN ?", predictionIDs).Delete(&Comment{}).Error; err != nil {
		return fmt.Errorf("无法删除评论: %w", err)
	}
	return nil
}
