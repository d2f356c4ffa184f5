package repository

import (
	"cofq_backend/internal/model"

	"gorm.io/gorm"
)

type PracticeAttemptRepository struct {
	DB *gorm.DB
}

func NewPracticeAttemptRepository(db *gorm.DB) *PracticeAttemptRepository {
	return &PracticeAttemptRepository{DB: db}
}

func (r *PracticeAttemptRepository) Create(attempt *model.PracticeAttempt) error {
	return r.DB.Create(attempt).Error
}

// FindByUser 按时间倒序分页，topicID 为 0 时不过滤
func (r *PracticeAttemptRepository) FindByUser(userID, topicID uint, page, limit int) ([]model.PracticeAttempt, int64, error) {
	var attempts []model.PracticeAttempt
	var total int64

	query := r.DB.Model(&model.PracticeAttempt{}).Where("user_id = ?", userID)
	if topicID != 0 {
		query = query.Where("topic_id = ?", topicID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Topic").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&attempts).Error
	return attempts, total, err
}

func (r *PracticeAttemptRepository) FindByIDForUser(id, userID uint) (*model.PracticeAttempt, error) {
	var attempt model.PracticeAttempt
	err := r.DB.Preload("Topic").
		Where("id = ? AND user_id = ?", id, userID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// DeleteForUser 返回是否删除了记录
func (r *PracticeAttemptRepository) DeleteForUser(id, userID uint) (bool, error) {
	result := r.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&model.PracticeAttempt{})
	return result.RowsAffected > 0, result.Error
}
