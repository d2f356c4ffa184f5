package repository

import (
	"cofq_backend/internal/model"

	"gorm.io/gorm"
)

type TopicRepository struct {
	DB *gorm.DB
}

func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{DB: db}
}

func (r *TopicRepository) List(enabledOnly bool) ([]model.Topic, error) {
	var topics []model.Topic
	query := r.DB.Model(&model.Topic{})
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	err := query.Order("id ASC").Find(&topics).Error
	return topics, err
}

func (r *TopicRepository) FindByID(id uint) (*model.Topic, error) {
	var topic model.Topic
	if err := r.DB.First(&topic, id).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *TopicRepository) FindBySlug(slug string) (*model.Topic, error) {
	var topic model.Topic
	if err := r.DB.Where("slug = ?", slug).First(&topic).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

// Create enabled 字段带默认值，false 需要单独写一次
func (r *TopicRepository) Create(topic *model.Topic) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(topic).Error; err != nil {
			return err
		}
		if !topic.Enabled {
			return tx.Model(topic).Update("enabled", false).Error
		}
		return nil
	})
}

func (r *TopicRepository) Update(id uint, updates map[string]interface{}) error {
	return r.DB.Model(&model.Topic{}).Where("id = ?", id).Updates(updates).Error
}
