package service

import (
	"cofq_backend/internal/model"
	"cofq_backend/internal/repository"
	"cofq_backend/internal/util"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type TopicService struct {
	Repo *repository.TopicRepository
}

func NewTopicService(repo *repository.TopicRepository) *TopicService {
	return &TopicService{Repo: repo}
}

type CreateTopicRequest struct {
	Slug        string `json:"slug" binding:"required,max=64"`
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	Enabled     *bool  `json:"enabled"`
}

type UpdateTopicRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
}

func (s *TopicService) List(enabledOnly bool) ([]model.Topic, error) {
	return s.Repo.List(enabledOnly)
}

// Resolve 按 slug 查找启用的领域
func (s *TopicService) Resolve(slug string) (*model.Topic, error) {
	topic, err := s.Repo.FindBySlug(strings.TrimSpace(slug))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTopicNotFound
	}
	if err != nil {
		return nil, err
	}
	if !topic.Enabled {
		return nil, util.ErrTopicNotFound
	}
	return topic, nil
}

// Lookup 不区分是否启用，历史记录筛选时使用
func (s *TopicService) Lookup(slug string) (*model.Topic, error) {
	topic, err := s.Repo.FindBySlug(strings.TrimSpace(slug))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTopicNotFound
	}
	return topic, err
}

func (s *TopicService) Create(req CreateTopicRequest) (*model.Topic, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if _, err := s.Repo.FindBySlug(slug); err == nil {
		return nil, util.ErrTopicExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	topic := &model.Topic{
		Slug:        slug,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Enabled:     req.Enabled == nil || *req.Enabled,
	}
	if err := s.Repo.Create(topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *TopicService) Update(id uint, req UpdateTopicRequest) (*model.Topic, error) {
	if _, err := s.Repo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTopicNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	if len(updates) > 0 {
		if err := s.Repo.Update(id, updates); err != nil {
			return nil, err
		}
	}
	return s.Repo.FindByID(id)
}
