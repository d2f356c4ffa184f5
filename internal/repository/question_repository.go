package repository

import (
	"cofq_backend/internal/model"
	"math/rand/v2"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(question *model.PracticeQuestion) error {
	return r.DB.Create(question).Error
}

func (r *QuestionRepository) CreateBatch(questions []model.PracticeQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	return r.DB.Create(&questions).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.PracticeQuestion, error) {
	var q model.PracticeQuestion
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) ListByTopic(topicID uint, difficulty model.Difficulty, page, limit int) ([]model.PracticeQuestion, int64, error) {
	var questions []model.PracticeQuestion
	var total int64

	query := r.DB.Model(&model.PracticeQuestion{}).Where("topic_id = ?", topicID)
	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&questions).Error
	return questions, total, err
}

// Stems 某个领域下已有题干，用于去重
func (r *QuestionRepository) Stems(topicID uint) ([]string, error) {
	var stems []string
	err := r.DB.Model(&model.PracticeQuestion{}).
		Where("topic_id = ?", topicID).
		Pluck("stem", &stems).Error
	return stems, err
}

// Random 在应用层打乱 id，避免 RAND()/RANDOM() 的方言差异
func (r *QuestionRepository) Random(topicID uint, count int) ([]model.PracticeQuestion, error) {
	var ids []uint
	if err := r.DB.Model(&model.PracticeQuestion{}).
		Where("topic_id = ?", topicID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	if len(ids) > count {
		ids = ids[:count]
	}
	if len(ids) == 0 {
		return []model.PracticeQuestion{}, nil
	}

	var questions []model.PracticeQuestion
	if err := r.DB.Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}

	// 保持打乱后的顺序
	byID := make(map[uint]model.PracticeQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]model.PracticeQuestion, 0, len(questions))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

func (r *QuestionRepository) CreateAttempt(attempt *model.QuestionAttempt) error {
	return r.DB.Create(attempt).Error
}
