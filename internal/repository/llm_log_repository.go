package repository

import (
	"cofq_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type LLMLogRepository struct {
	DB *gorm.DB
}

func NewLLMLogRepository(db *gorm.DB) *LLMLogRepository {
	return &LLMLogRepository{DB: db}
}

func (r *LLMLogRepository) RecordLLMRequest(ctx context.Context, entry *model.LLMRequestLog) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}

// UsageSince 按模型聚合 since 之后的调用
func (r *LLMLogRepository) UsageSince(since time.Time) ([]model.ModelUsage, error) {
	var usage []model.ModelUsage
	err := r.DB.Model(&model.LLMRequestLog{}).
		Select(`model,
			COUNT(*) AS requests,
			COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) AS failures,
			COALESCE(SUM(input_tokens), 0) AS input_tokens,
			COALESCE(SUM(output_tokens), 0) AS output_tokens,
			COALESCE(SUM(cost_usd), 0) AS cost_usd`).
		Where("created_at >= ?", since).
		Group("model").
		Order("model ASC").
		Scan(&usage).Error
	return usage, err
}
