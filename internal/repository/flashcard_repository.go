package repository

import (
	"cofq_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type FlashcardRepository struct {
	DB *gorm.DB
}

func NewFlashcardRepository(db *gorm.DB) *FlashcardRepository {
	return &FlashcardRepository{DB: db}
}

func (r *FlashcardRepository) Create(card *model.Flashcard) error {
	return r.DB.Create(card).Error
}

func (r *FlashcardRepository) Update(card *model.Flashcard) error {
	return r.DB.Save(card).Error
}

func (r *FlashcardRepository) FindByIDForUser(id, userID uint) (*model.Flashcard, error) {
	var card model.Flashcard
	if err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *FlashcardRepository) ListByUser(userID, topicID uint) ([]model.Flashcard, error) {
	var cards []model.Flashcard
	query := r.DB.Where("user_id = ?", userID)
	if topicID != 0 {
		query = query.Where("topic_id = ?", topicID)
	}
	err := query.Order("next_review_at ASC, id ASC").Find(&cards).Error
	return cards, err
}

// Due 到期卡片，最早到期的在前
func (r *FlashcardRepository) Due(userID uint, now time.Time, limit int) ([]model.Flashcard, error) {
	var cards []model.Flashcard
	err := r.DB.Where("user_id = ? AND next_review_at <= ?", userID, now).
		Order("next_review_at ASC, id ASC").
		Limit(limit).
		Find(&cards).Error
	return cards, err
}

func (r *FlashcardRepository) CountDue(userID uint, now time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Flashcard{}).
		Where("user_id = ? AND next_review_at <= ?", userID, now).
		Count(&count).Error
	return count, err
}

// CountDueByTopic topic_id -> 到期数量
func (r *FlashcardRepository) CountDueByTopic(userID uint, now time.Time) (map[uint]int64, error) {
	var rows []struct {
		TopicID uint
		Count   int64
	}
	err := r.DB.Model(&model.Flashcard{}).
		Select("topic_id, COUNT(*) AS count").
		Where("user_id = ? AND next_review_at <= ?", userID, now).
		Group("topic_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint]int64, len(rows))
	for _, row := range rows {
		out[row.TopicID] = row.Count
	}
	return out, nil
}

func (r *FlashcardRepository) ExistsForQuestion(userID, questionID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Flashcard{}).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Count(&count).Error
	return count > 0, err
}

func (r *FlashcardRepository) DeleteForUser(id, userID uint) (bool, error) {
	result := r.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Flashcard{})
	return result.RowsAffected > 0, result.Error
}
