package prediction

import (
	"fmt"
	"strconv"

	"github.com/callingitnow/callingitnow-backend/internal/platform/database"
	"github.com/redis/go-redis/v9"
)

// memberFor 把预测ID编码为Sorted Set成员
func memberFor(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func redisZ(score float64, id uint) redis.Z {
	return redis.Z{Score: score, Member: memberFor(id)}
}

// --- Redis-specific Definitions ---
// 这些键描述了本模块在Redis中维护的热榜缓存。
// 缓存永远不是权威数据：SQLite才是，缓存可以随时从数据库重建。

const (
	// TrendingKey 是一个Redis Sorted Set，按净得分实时排序公开预测
	// Score: 该预测的净投票得分; Member: 预测ID
	TrendingKey = "prediction:trending"
	// CategoriesKey 是一个Redis Set，缓存当前存在的预测分类
	CategoriesKey = "prediction:categories"
)

// scoreRow 用于从聚合查询中读取每条预测的净得分
type scoreRow struct {
	ID    uint
	Score int64
}

// PrimeCache 从数据库全量重建Redis热榜缓存。
// 在应用启动时调用一次，Redis重启恢复后由健康检查器再次调用。
func PrimeCache() error {
	// 只有公开且不属于小组的预测进入全站热榜
	var rows []scoreRow
	err := database.DB.Model(&Prediction{}).
		Select("predictions.id AS id, COALESCE(SUM(votes.value), 0) AS score").
		Joins("LEFT JOIN votes ON votes.prediction_id = predictions.id").
		Where("predictions.visibility = ? AND predictions.group_id IS NULL", VisibilityPublic).
		Group("predictions.id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("无法从数据库加载预测得分: %w", err)
	}

	var categories []string
	if err := database.DB.Model(&Prediction{}).Distinct("category").Pluck("category", &categories).Error; err != nil {
		return fmt.Errorf("无法从数据库加载分类列表: %w", err)
	}

	pipe := database.RDB.TxPipeline()
	pipe.Del(database.Ctx, TrendingKey, CategoriesKey)
	for _, row := range rows {
		pipe.ZAdd(database.Ctx, TrendingKey, redisZ(float64(row.Score), row.ID))
	}
	for _, cat := range categories {
		pipe.SAdd(database.Ctx, CategoriesKey, cat)
	}
	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("无法写入Redis热榜缓存: %w", err)
	}

	fmt.Printf("预测热榜缓存已重建: %d 条预测, %d 个分类\n", len(rows), len(categories))
	return nil
}

// trackPrediction 在新预测创建后把它登记进缓存。
// 缓存写入失败只降级，不影响主流程。
func trackPrediction(p *Prediction) {
	if !database.IsRedisHealthy() {
		return
	}
	pipe := database.RDB.Pipeline()
	if p.Visibility == VisibilityPublic && p.GroupID == nil {
		pipe.ZAdd(database.Ctx, TrendingKey, redisZ(0, p.ID))
	}
	pipe.SAdd(database.Ctx, CategoriesKey, p.Category)
	if _, err := pipe.Exec(database.Ctx); err != nil {
		fmt.Printf("警告: 无法更新预测缓存: %v\n", err)
	}
}

// untrackPrediction 在预测删除后把它移出热榜。
func untrackPrediction(id uint) {
	if !database.IsRedisHealthy() {
		return
	}
	if err := database.RDB.ZRem(database.Ctx, TrendingKey, memberFor(id)).Err(); err != nil {
		fmt.Printf("警告: 无法从热榜缓存移除预测 %d: %v\n", id, err)
	}
}

// updateTrendingScore 在投票落库后刷新热榜中该预测的得分。
func updateTrendingScore(p *Prediction, score int64) {
	if !database.IsRedisHealthy() {
		return
	}
	if p.Visibility != VisibilityPublic || p.GroupID != nil {
		return
	}
	if err := database.RDB.ZAdd(database.Ctx, TrendingKey, redisZ(float64(score), p.ID)).Err(); err != nil {
		fmt.Printf("警告: 无法更新热榜得分: %v\n", err)
	}
}

// trendingIDs 从热榜缓存按得分从高到低取出前limit条预测ID。
// Redis不可用或缓存为空时返回 (nil, false)，调用方回退到数据库。
func trendingIDs(limit int) ([]uint, bool) {
	if !database.IsRedisHealthy() {
		return nil, false
	}
	members, err := database.RDB.ZRevRange(database.Ctx, TrendingKey, 0, int64(limit-1)).Result()
	if err != nil || len(members) == 0 {
		return nil, false
	}

	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, true
}

// cachedCategories 从缓存读取分类列表，不可用时返回 (nil, false)。
func cachedCategories() ([]string, bool) {
	if !database.IsRedisHealthy() {
		return nil, false
	}
	cats, err := database.RDB.SMembers(database.Ctx, CategoriesKey).Result()
	if err != nil || len(cats) == 0 {
		return nil, false
	}
	return cats, true
}
