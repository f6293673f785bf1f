package comment

import (
	"time"

	"github.com/callingitnow/callingitnow-backend/internal/user"
)

// Comment 定义了评论的持久化模型。
// ParentCommentID 指向同一条预测下的另一条评论，形成任意深度的树；
// 为空表示根评论。父评论缺失的评论在构树时提升为根。
type Comment struct {
	ID              uint      `gorm:"primarykey" json:"comment_id"`
	PredictionID    uint      `gorm:"not null;index" json:"prediction_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	User            user.User `gorm:"foreignKey:UserID" json:"user"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment_id"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	Timestamp       time.Time `gorm:"not null;autoCreateTime" json:"timestamp"`
}

// CommentVote 定义了对评论的投票。
// (CommentID, UserID) 唯一；提交0值或与现值相同的值都表示撤销投票。
type CommentVote struct {
	ID        uint      `gorm:"primarykey" json:"comment_vote_id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_votes_comment_user" json:"comment_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_votes_comment_user" json:"user_id"`
	Value     int       `gorm:"not null" json:"value"`
	Timestamp time.Time `gorm:"autoCreateTime" json:"timestamp"`
}
