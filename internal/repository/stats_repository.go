package repository

import (
	"cofq_backend/internal/model"

	"gorm.io/gorm"
)

type StatsRepository struct {
	DB *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{DB: db}
}

// TopicStats 用户在每个启用领域下的练习与答题情况
func (r *StatsRepository) TopicStats(userID uint) ([]model.TopicStats, error) {
	var topics []model.Topic
	if err := r.DB.Where("enabled = ?", true).Order("id ASC").Find(&topics).Error; err != nil {
		return nil, err
	}

	var practice []struct {
		TopicID uint
		Count   int64
	}
	if err := r.DB.Model(&model.PracticeAttempt{}).
		Select("topic_id, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("topic_id").
		Scan(&practice).Error; err != nil {
		return nil, err
	}

	var answers []struct {
		TopicID uint
		Tried   int64
		Correct int64
	}
	if err := r.DB.Model(&model.QuestionAttempt{}).
		Select("topic_id, COUNT(*) AS tried, COALESCE(SUM(CASE WHEN correct THEN 1 ELSE 0 END), 0) AS correct").
		Where("user_id = ?", userID).
		Group("topic_id").
		Scan(&answers).Error; err != nil {
		return nil, err
	}

	practiceByTopic := make(map[uint]int64, len(practice))
	for _, p := range practice {
		practiceByTopic[p.TopicID] = p.Count
	}

	stats := make([]model.TopicStats, 0, len(topics))
	index := make(map[uint]int, len(topics))
	for _, t := range topics {
		index[t.ID] = len(stats)
		stats = append(stats, model.TopicStats{
			TopicID:          t.ID,
			Slug:             t.Slug,
			Name:             t.Name,
			PracticeAttempts: practiceByTopic[t.ID],
		})
	}

	for _, a := range answers {
		i, ok := index[a.TopicID]
		if !ok {
			continue
		}
		stats[i].QuestionsTried = a.Tried
		stats[i].QuestionsCorrect = a.Correct
		if a.Tried > 0 {
			stats[i].Accuracy = float64(a.Correct) / float64(a.Tried)
		}
	}
	return stats, nil
}
