package prediction

import (
	"errors"
	"fmt"
	"time"

	"github.com/callingitnow/callingitnow-backend/internal/group"
	"github.com/callingitnow/callingitnow-backend/internal/moderation"
	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
	"github.com/callingitnow/callingitnow-backend/internal/user"
	"github.com/callingitnow/callingitnow-backend/pkg/apperr"
	"github.com/callingitnow/callingitnow-backend/pkg/receipt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// deleteCommentsInTx 由comment模块在Setup时注册，
// 用于在删除预测的事务中级联删除评论及评论投票。
var deleteCommentsInTx func(tx *gorm.DB, predictionIDs []uint) error

// RegisterCommentCascade 注册预测删除时的评论级联清理函数。
func RegisterCommentCascade(f func(tx *gorm.DB, predictionIDs []uint) error) {
	deleteCommentsInTx = f
}

// CreateInput 是创建预测的输入参数
type CreateInput struct {
	Title        string
	Content      string
	Category     string
	Visibility   Visibility
	AllowBacking bool
	GroupID      *uint
}

// Create 创建一条新预测：审核打码 -> 计算回执指纹 -> 落库。
// 原始未打码文本在这里被丢弃；指纹基于落库文本计算，
// 因此回执持有者用落库字段即可独立复算。
func Create(author *user.User, input CreateInput) (*PredictionDTO, error) {
	// 组内预测要求作者已经是小组成员
	if input.GroupID != nil {
		if _, err := group.GetViewable(author, *input.GroupID); err != nil {
			return nil, err
		}
		if err := group.CanPost(*input.GroupID, author.ID); err != nil {
			return nil, err
		}
	}

	censoredTitle, titleHit := moderation.Censor(input.Title)
	censoredContent, contentHit := moderation.Censor(input.Content)

	now := time.Now()
	p := Prediction{
		UserID:            author.ID,
		Title:             censoredTitle,
		Content:           censoredContent,
		Category:          input.Category,
		Visibility:        input.Visibility,
		AllowBacking:      input.AllowBacking,
		Timestamp:         now,
		Hash:              receipt.Compute(author.ID, censoredTitle, censoredContent, now),
		ContainsProfanity: titleHit || contentHit,
		GroupID:           input.GroupID,
	}

	if err := database.DB.Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 相同作者、相同文本、相同时间戳会产生相同指纹，按冲突处理
			return nil, apperr.Conflict("完全相同的预测已存在")
		}
		return nil, fmt.Errorf("无法创建预测: %w", err)
	}
	p.User = *author

	trackPrediction(&p)

	dto := PredictionDTO{Prediction: p}
	return &dto, nil
}

// getByID 按ID查询预测（含作者），不做可见性判断
func getByID(id uint) (*Prediction, error) {
	var p Prediction
	if err := database.DB.Preload("User").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("预测不存在")
		}
		return nil, fmt.Errorf("无法查询预测: %w", err)
	}
	return &p, nil
}

// GetVisible 按ID查询预测并应用可见性规则：
// 私密预测对非作者表现为不存在，组内预测要求小组可见。
func GetVisible(viewer *user.User, id uint) (*Prediction, error) {
	p, err := getByID(id)
	if err != nil {
		return nil, err
	}

	if p.Visibility == VisibilityPrivate {
		if viewer == nil || viewer.ID != p.UserID {
			// 按不存在处理，避免向非作者泄露私密预测的存在性
			return nil, apperr.NotFound("预测不存在")
		}
	}
	if p.GroupID != nil {
		if _, err := group.CanViewPredictions(viewer, *p.GroupID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Get 返回单条预测的完整响应模型
func Get(viewer *user.User, id uint) (*PredictionDTO, error) {
	p, err := GetVisible(viewer, id)
	if err != nil {
		return nil, err
	}
	dtos, err := decorate([]Prediction{*p}, viewer)
	if err != nil {
		return nil, err
	}
	return &dtos[0], nil
}

// 列表排序模式
const (
	SortRecent        = "recent"
	SortPopular       = "popular"
	SortControversial = "controversial"
)

// ListQuery 是预测列表的查询参数
type ListQuery struct {
	Category   string
	UserID     *uint
	SafeSearch bool
	Sort       string
	Page       int
	PerPage    int
}

// normalize 把分页参数收敛到允许的范围内
func (q *ListQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}
	if q.PerPage > 100 {
		q.PerPage = 100
	}
	if q.Sort == "" {
		q.Sort = SortRecent
	}
}

// List 返回公共信息流中的预测。
// 私密预测仅对作者出现，组内预测不进入公共信息流。
func List(viewer *user.User, q ListQuery) (*ListResult, error) {
	q.normalize()

	base := database.DB.Model(&Prediction{}).Where("predictions.group_id IS NULL")
	if viewer != nil {
		base = base.Where("predictions.visibility = ? OR predictions.user_id = ?", VisibilityPublic, viewer.ID)
	} else {
		base = base.Where("predictions.visibility = ?", VisibilityPublic)
	}
	if q.Category != "" {
		base = base.Where("predictions.category = ?", q.Category)
	}
	if q.UserID != nil {
		base = base.Where("predictions.user_id = ?", *q.UserID)
	}
	if q.SafeSearch {
		base = base.Where("predictions.contains_profanity = ?", false)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("无法统计预测总数: %w", err)
	}

	query := base.Session(&gorm.Session{})
	switch q.Sort {
	case SortPopular:
		// 按净得分排序
		query = query.Select("predictions.*").
			Joins("LEFT JOIN votes ON votes.prediction_id = predictions.id").
			Group("predictions.id").
			Order("COALESCE(SUM(votes.value), 0) DESC")
	case SortControversial:
		// 按投票总数排序，不论正负：参与度高但未必得分高
		query = query.Select("predictions.*").
			Joins("LEFT JOIN votes ON votes.prediction_id = predictions.id").
			Group("predictions.id").
			Order("COUNT(votes.id) DESC")
	case SortRecent:
		query = query.Order("predictions.timestamp DESC")
	default:
		return nil, apperr.Validation("不支持的排序方式: " + q.Sort)
	}

	var preds []Prediction
	offset := (q.Page - 1) * q.PerPage
	if err := query.Preload("User").Offset(offset).Limit(q.PerPage).Find(&preds).Error; err != nil {
		return nil, fmt.Errorf("无法查询预测列表: %w", err)
	}

	dtos, err := decorate(preds, viewer)
	if err != nil {
		return nil, err
	}
	return &ListResult{Predictions: dtos, Total: total, Page: q.Page, PerPage: q.PerPage}, nil
}

// ListMine 返回当前用户自己的全部预测（含私密和组内）。
func ListMine(viewer *user.User, page, perPage int) (*ListResult, error) {
	q := ListQuery{Page: page, PerPage: perPage}
	q.normalize()

	base := database.DB.Model(&Prediction{}).Where("user_id = ?", viewer.ID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("无法统计预测总数: %w", err)
	}

	var preds []Prediction
	err := base.Session(&gorm.Session{}).
		Preload("User").
		Order("timestamp DESC").
		Offset((q.Page - 1) * q.PerPage).
		Limit(q.PerPage).
		Find(&preds).Error
	if err != nil {
		return nil, fmt.Errorf("无法查询预测列表: %w", err)
	}

	dtos, err := decorate(preds, viewer)
	if err != nil {
		return nil, err
	}
	return &ListResult{Predictions: dtos, Total: total, Page: q.Page, PerPage: q.PerPage}, nil
}

// ListForGroup 返回某个小组内的预测，要求小组对调用者可见。
func ListForGroup(viewer *user.User, groupID uint, page, perPage int) (*ListResult, error) {
	if _, err := group.CanViewPredictions(viewer, groupID); err != nil {
		return nil, err
	}

	q := ListQuery{Page: page, PerPage: perPage}
	q.normalize()

	base := database.DB.Model(&Prediction{}).Where("group_id = ?", groupID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("无法统计预测总数: %w", err)
	}

	var preds []Prediction
	err := base.Session(&gorm.Session{}).
		Preload("User").
		Order("timestamp DESC").
		Offset((q.Page - 1) * q.PerPage).
		Limit(q.PerPage).
		Find(&preds).Error
	if err != nil {
		return nil, fmt.Errorf("无法查询小组预测: %w", err)
	}

	dtos, err := decorate(preds, viewer)
	if err != nil {
		return nil, err
	}
	return &ListResult{Predictions: dtos, Total: total, Page: q.Page, PerPage: q.PerPage}, nil
}

// Delete 删除预测。仅作者可以操作；投票、背书、评论在同一事务中级联删除，
// 存储层不会自动维护这些级联。
func Delete(caller *user.User, id uint) error {
	p, err := GetVisible(caller, id)
	if err != nil {
		return err
	}
	if p.UserID != caller.ID {
		return apperr.Forbidden("只有作者可以删除自己的预测")
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		return cascadeDeleteInTx(tx, []uint{p.ID})
	})
	if err != nil {
		return err
	}

	untrackPrediction(p.ID)
	return nil
}

// cascadeDeleteInTx 在一个事务中删除一批预测及其全部附属数据。
func cascadeDeleteInTx(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if deleteCommentsInTx != nil {
		if err := deleteCommentsInTx(tx, ids); err != nil {
			return err
		}
	}
	if err := tx.Where("prediction_id IN ?", ids).Delete(&Vote{}).Error; err != nil {
		return fmt.Errorf("无法删除预测的投票: %w", err)
	}
	if err := tx.Where("prediction_id IN ?", ids).Delete(&Backing{}).Error; err != nil {
		return fmt.Errorf("无法删除预测的背书: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&Prediction{}).Error; err != nil {
		return fmt.Errorf("无法删除预测: %w", err)
	}
	return nil
}

// deleteGroupPredictionsInTx 供group模块在解散小组的事务中调用。
func deleteGroupPredictionsInTx(tx *gorm.DB, groupID uint) error {
	var ids []uint
	if err := tx.Model(&Prediction{}).Where("group_id = ?", groupID).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("无法查询小组预测: %w", err)
	}
	return cascadeDeleteInTx(tx, ids)
}

// CastVote 记录或更新调用者对预测的投票。
// 每个 (预测, 用户) 只有一行投票：已有投票时就地覆盖Value，不插入新行。
func CastVote(voter *user.User, id uint, value int) error {
	p, err := GetVisible(voter, id)
	if err != nil {
		return err
	}

	var newScore int64
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var v Vote
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("prediction_id = ? AND user_id = ?", p.ID, voter.ID).
			First(&v).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			v = Vote{PredictionID: p.ID, UserID: voter.ID, Value: value}
			if err := tx.Create(&v).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// 并发插入输掉了唯一约束竞争，改为更新既有行
					return tx.Model(&Vote{}).
						Where("prediction_id = ? AND user_id = ?", p.ID, voter.ID).
						Update("value", value).Error
				}
				return fmt.Errorf("无法记录投票: %w", err)
			}
		case err != nil:
			return fmt.Errorf("无法查询投票: %w", err)
		default:
			v.Value = value
			if err := tx.Save(&v).Error; err != nil {
				return fmt.Errorf("无法更新投票: %w", err)
			}
		}

		// 在事务内读出新的净得分，事务提交后同步到热榜缓存
		return tx.Model(&Vote{}).
			Where("prediction_id = ?", p.ID).
			Select("COALESCE(SUM(value), 0)").
			Scan(&newScore).Error
	})
	if err != nil {
		return err
	}

	updateTrendingScore(p, newScore)
	return nil
}

// Back 为预测背书：写入背书行并使作者的wisdom_level加一。
// 两个写入在同一事务中提交或一起回滚，不允许出现声望漂移。
func Back(backer *user.User, id uint) error {
	p, err := GetVisible(backer, id)
	if err != nil {
		return err
	}
	if !p.AllowBacking {
		return apperr.Validation("该预测不接受背书")
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		b := Backing{PredictionID: p.ID, BackerUserID: backer.ID}
		if err := tx.Create(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("已经背书过该预测")
			}
			return fmt.Errorf("无法创建背书: %w", err)
		}

		err := tx.Model(&user.User{}).
			Where("id = ?", p.UserID).
			UpdateColumn("wisdom_level", gorm.Expr("wisdom_level + 1")).Error
		if err != nil {
			return fmt.Errorf("无法提升作者声望: %w", err)
		}
		return nil
	})
}

// Unback 撤销背书：删除背书行并使作者的wisdom_level减一。
// 减法在SQL里钳制在0以上（写入时钳制，而不是读取时修饰），
// 即使并发撤销也不会把声望减成负数。
func Unback(backer *user.User, id uint) error {
	p, err := GetVisible(backer, id)
	if err != nil {
		return err
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("prediction_id = ? AND backer_user_id = ?", p.ID, backer.ID).Delete(&Backing{})
		if result.Error != nil {
			return fmt.Errorf("无法删除背书: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("尚未背书该预测")
		}

		err := tx.Model(&user.User{}).
			Where("id = ?", p.UserID).
			UpdateColumn("wisdom_level", gorm.Expr("CASE WHEN wisdom_level > 0 THEN wisdom_level - 1 ELSE 0 END")).Error
		if err != nil {
			return fmt.Errorf("无法回退作者声望: %w", err)
		}
		return nil
	})
}

// GetReceipt 返回预测的防篡改回执。私密预测对非作者表现为不存在。
func GetReceipt(viewer *user.User, id uint) (*ReceiptDTO, error) {
	p, err := GetVisible(viewer, id)
	if err != nil {
		return nil, err
	}

	return &ReceiptDTO{
		PredictionID:    p.ID,
		Title:           p.Title,
		Content:         p.Content,
		UserHandle:      p.User.Handle,
		Timestamp:       p.Timestamp.UTC().Format(time.RFC3339Nano),
		Hash:            p.Hash,
		VerificationURL: receipt.VerificationURL(p.ID),
	}, nil
}

// Trending 返回全站热榜：优先读Redis缓存，缓存不可用时回退到数据库。
func Trending(viewer *user.User, limit int) ([]PredictionDTO, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}

	if ids, ok := trendingIDs(limit); ok {
		var preds []Prediction
		if err := database.DB.Preload("User").Where("id IN ?", ids).Find(&preds).Error; err != nil {
			return nil, fmt.Errorf("无法加载热榜预测: %w", err)
		}
		// Find不保证顺序，按缓存给出的名次重排
		byID := make(map[uint]Prediction, len(preds))
		for _, p := range preds {
			byID[p.ID] = p
		}
		ordered := make([]Prediction, 0, len(ids))
		for _, id := range ids {
			if p, exists := byID[id]; exists {
				ordered = append(ordered, p)
			}
		}
		return decorate(ordered, viewer)
	}

	// 回退路径：直接在数据库里做聚合排序
	var preds []Prediction
	err := database.DB.Model(&Prediction{}).
		Select("predictions.*").
		Joins("LEFT JOIN votes ON votes.prediction_id = predictions.id").
		Where("predictions.visibility = ? AND predictions.group_id IS NULL", VisibilityPublic).
		Group("predictions.id").
		Order("COALESCE(SUM(votes.value), 0) DESC").
		Limit(limit).
		Preload("User").
		Find(&preds).Error
	if err != nil {
		return nil, fmt.Errorf("无法查询热榜预测: %w", err)
	}
	return decorate(preds, viewer)
}

// Categories 返回当前存在的预测分类，优先走缓存。
func Categories() ([]string, error) {
	if cats, ok := cachedCategories(); ok {
		return cats, nil
	}

	var categories []string
	if err := database.DB.Model(&Prediction{}).Distinct("category").Pluck("category", &categories).Error; err != nil {
		return nil, fmt.Errorf("无法查询分类列表: %w", err)
	}
	return categories, nil
}

// aggregateRow 用于承接按预测分组的聚合查询结果
type aggregateRow struct {
	PredictionID uint
	Total        int64
}

// decorate 为一批预测批量装配聚合数据和调用者状态。
func decorate(preds []Prediction, viewer *user.User) ([]PredictionDTO, error) {
	dtos := make([]PredictionDTO, len(preds))
	if len(preds) == 0 {
		return dtos, nil
	}

	ids := make([]uint, len(preds))
	for i, p := range preds {
		ids[i] = p.ID
		dtos[i] = PredictionDTO{Prediction: p}
	}

	// 净得分
	var scoreRows []aggregateRow
	err := database.DB.Model(&Vote{}).
		Select("prediction_id, COALESCE(SUM(value), 0) AS total").
		Where("prediction_id IN ?", ids).
		Group("prediction_id").
		Scan(&scoreRows).Error
	if err != nil {
		return nil, fmt.Errorf("无法聚合投票得分: %w", err)
	}
	scores := make(map[uint]int64, len(scoreRows))
	for _, r := range scoreRows {
		scores[r.PredictionID] = r.Total
	}

	// 背书数
	var backingRows []aggregateRow
	err = database.DB.Model(&Backing{}).
		Select("prediction_id, COUNT(id) AS total").
		Where("prediction_id IN ?", ids).
		Group("prediction_id").
		Scan(&backingRows).Error
	if err != nil {
		return nil, fmt.Errorf("无法聚合背书数量: %w", err)
	}
	backings := make(map[uint]int64, len(backingRows))
	for _, r := range backingRows {
		backings[r.PredictionID] = r.Total
	}

	// 评论数
	var commentRows []aggregateRow
	err = database.DB.Table("comments").
		Select("prediction_id, COUNT(id) AS total").
		Where("prediction_id IN ?", ids).
		Group("prediction_id").
		Scan(&commentRows).Error
	if err != nil {
		return nil, fmt.Errorf("无法聚合评论数量: %w", err)
	}
	comments := make(map[uint]int64, len(commentRows))
	for _, r := range commentRows {
		comments[r.PredictionID] = r.Total
	}

	// 调用者自己的投票与背书状态
	userVotes := make(map[uint]int)
	userBacked := make(map[uint]bool)
	if viewer != nil {
		var votes []Vote
		if err := database.DB.Where("prediction_id IN ? AND user_id = ?", ids, viewer.ID).Find(&votes).Error; err != nil {
			return nil, fmt.Errorf("无法查询用户投票: %w", err)
		}
		for _, v := range votes {
			userVotes[v.PredictionID] = v.Value
		}

		var rows []Backing
		if err := database.DB.Where("prediction_id IN ? AND backer_user_id = ?", ids, viewer.ID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("无法查询用户背书: %w", err)
		}
		for _, b := range rows {
			userBacked[b.PredictionID] = true
		}
	}

	for i := range dtos {
		id := dtos[i].ID
		dtos[i].VoteScore = scores[id] // 没有投票时聚合结果缺行，映射默认值0兜底
		dtos[i].BackingCount = backings[id]
		dtos[i].CommentCount = comments[id]
		dtos[i].UserBacked = userBacked[id]
		if v, ok := userVotes[id]; ok {
			value := v
			dtos[i].UserVote = &value
		}
	}
	return dtos, nil
}
