package service

import (
	"cofq_backend/internal/model"
	"cofq_backend/internal/repository"
	"cofq_backend/internal/spacedrep"
	"cofq_backend/internal/util"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type CreateFlashcardRequest struct {
	Topic string `json:"topic" binding:"required"`
	Front string `json:"front" binding:"required,max=2000"`
	Back  string `json:"back" binding:"required,max=4000"`
}

type ReviewFlashcardRequest struct {
	Correct *bool `json:"correct" binding:"required"`
}

type FlashcardService struct {
	Repo   *repository.FlashcardRepository
	Topics *TopicService

	// Now 测试中可替换
	Now func() time.Time
}

func NewFlashcardService(repo *repository.FlashcardRepository, topics *TopicService) *FlashcardService {
	return &FlashcardService{Repo: repo, Topics: topics, Now: time.Now}
}

func (s *FlashcardService) Create(userID uint, req CreateFlashcardRequest) (*model.Flashcard, error) {
	topic, err := s.Topics.Resolve(req.Topic)
	if err != nil {
		return nil, err
	}

	card := &model.Flashcard{
		UserID:  userID,
		TopicID: topic.ID,
		Front:   strings.TrimSpace(req.Front),
		Back:    strings.TrimSpace(req.Back),
	}
	spacedrep.Init(card, s.Now())
	if err := s.Repo.Create(card); err != nil {
		return nil, err
	}
	return card, nil
}

// CreateFromQuestion 答错题目时生成卡片，同一道题只生成一次
func (s *FlashcardService) CreateFromQuestion(userID uint, q *model.PracticeQuestion) (bool, error) {
	exists, err := s.Repo.ExistsForQuestion(userID, q.ID)
	if err != nil || exists {
		return false, err
	}

	back := fmt.Sprintf("%s\n\n%s", q.Choices[q.CorrectIndex], q.Explanation)
	qid := q.ID
	card := &model.Flashcard{
		UserID:     userID,
		TopicID:    q.TopicID,
		QuestionID: &qid,
		Front:      q.Stem,
		Back:       strings.TrimSpace(back),
	}
	spacedrep.Init(card, s.Now())
	if err := s.Repo.Create(card); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FlashcardService) List(userID uint, topicSlug string) ([]model.Flashcard, error) {
	var topicID uint
	if topicSlug != "" {
		topic, err := s.Topics.Lookup(topicSlug)
		if err != nil {
			return nil, err
		}
		topicID = topic.ID
	}
	return s.Repo.ListByUser(userID, topicID)
}

func (s *FlashcardService) Due(userID uint, limit int) ([]model.Flashcard, error) {
	return s.Repo.Due(userID, s.Now(), limit)
}

func (s *FlashcardService) Review(userID, cardID uint, correct bool) (*model.Flashcard, error) {
	card, err := s.Repo.FindByIDForUser(cardID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrFlashcardNotFound
	}
	if err != nil {
		return nil, err
	}

	spacedrep.Review(card, correct, s.Now())
	if err := s.Repo.Update(card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *FlashcardService) Delete(userID, cardID uint) error {
	deleted, err := s.Repo.DeleteForUser(cardID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return util.ErrFlashcardNotFound
	}
	return nil
}
