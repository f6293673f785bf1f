package prediction

// PredictionDTO 是预测的API响应模型，在持久化模型之上
// 附加聚合数据和调用者自己的投票/背书状态。
type PredictionDTO struct {
	Prediction
	VoteScore    int64 `json:"vote_score"`
	BackingCount int64 `json:"backing_count"`
	CommentCount int64 `json:"comment_count"`
	UserVote     *int  `json:"user_vote"`
	UserBacked   bool  `json:"user_backed"`
}

// ListResult 是分页列表的响应模型
type ListResult struct {
	Predictions []PredictionDTO `json:"predictions"`
	Total       int64           `json:"total"`
	Page        int             `json:"page"`
	PerPage     int             `json:"per_page"`
}

// ReceiptDTO 是预测回执的响应模型。
// 任何持有这些字段的第三方都可以独立复算并校验Hash。
type ReceiptDTO struct {
	PredictionID    uint   `json:"prediction_id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	UserHandle      string `json:"user_handle"`
	Timestamp       string `json:"timestamp"`
	Hash            string `json:"hash"`
	VerificationURL string `json:"verification_url"`
}
