package service

import (
	"cofq_backend/internal/llm"
	"cofq_backend/internal/model"
	"cofq_backend/internal/repository"
	"cofq_backend/internal/util"
	"cofq_backend/pkg/cache"
	"cofq_backend/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const questionSystemPrompt = `You write multiple-choice practice questions for the electrical Certificate of Qualification (C of Q) exam.
Each question has exactly four distinct answer choices and exactly one correct choice.
Questions must be self-contained, technically accurate and at the requested difficulty.
The explanation must say why the correct choice is right. Do not repeat any of the existing questions listed.`

var generatedQuestionsSchema = &llm.Schema{
	Name:        "practice-questions",
	Description: "A batch of multiple-choice practice questions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"stem": map[string]any{"type": "string"},
						"choices": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"correctIndex": map[string]any{"type": "integer"},
						"explanation":  map[string]any{"type": "string"},
					},
					"required":             []any{"stem", "choices", "correctIndex", "explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

const maxExistingStemsInPrompt = 30

type GenerateQuestionsRequest struct {
	Count      int              `json:"count" binding:"required,min=1,max=10"`
	Difficulty model.Difficulty `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

type CreateQuestionRequest struct {
	Topic        string           `json:"topic" binding:"required"`
	Stem         string           `json:"stem" binding:"required"`
	Choices      []string         `json:"choices" binding:"required,len=4"`
	CorrectIndex *int             `json:"correctIndex" binding:"required,min=0,max=3"`
	Explanation  string           `json:"explanation" binding:"required"`
	Difficulty   model.Difficulty `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

type AnswerRequest struct {
	ChoiceIndex *int `json:"choiceIndex" binding:"required,min=0,max=3"`
}

type AnswerResult struct {
	Correct          bool   `json:"correct"`
	CorrectIndex     int    `json:"correctIndex"`
	Explanation      string `json:"explanation"`
	FlashcardCreated bool   `json:"flashcardCreated"`
}

type generatedQuestion struct {
	Stem         string   `json:"stem"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

type QuestionService struct {
	Repo       *repository.QuestionRepository
	Topics     *TopicService
	Flashcards *FlashcardService
	Knowledge  *KnowledgeService
	LLM        llm.Provider
}

func NewQuestionService(repo *repository.QuestionRepository, topics *TopicService, flashcards *FlashcardService, knowledge *KnowledgeService, provider llm.Provider) *QuestionService {
	return &QuestionService{
		Repo:       repo,
		Topics:     topics,
		Flashcards: flashcards,
		Knowledge:  knowledge,
		LLM:        provider,
	}
}

// ValidateQuestion 四个非空且互不相同的选项，正确答案下标 0..3，题干和解析非空
func ValidateQuestion(stem string, choices []string, correctIndex int, explanation string) error {
	if strings.TrimSpace(stem) == "" {
		return fmt.Errorf("%w: stem is empty", util.ErrInvalidQuestion)
	}
	if strings.TrimSpace(explanation) == "" {
		return fmt.Errorf("%w: explanation is empty", util.ErrInvalidQuestion)
	}
	if len(choices) != 4 {
		return fmt.Errorf("%w: expected 4 choices, got %d", util.ErrInvalidQuestion, len(choices))
	}
	seen := map[string]bool{}
	for i, c := range choices {
		norm := cache.Normalize(c)
		if norm == "" {
			return fmt.Errorf("%w: choice %d is empty", util.ErrInvalidQuestion, i)
		}
		if seen[norm] {
			return fmt.Errorf("%w: duplicate choice %q", util.ErrInvalidQuestion, c)
		}
		seen[norm] = true
	}
	if correctIndex < 0 || correctIndex > 3 {
		return fmt.Errorf("%w: correctIndex %d out of range", util.ErrInvalidQuestion, correctIndex)
	}
	return nil
}

func trimChoices(choices []string) []string {
	out := make([]string, len(choices))
	for i, c := range choices {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func (s *QuestionService) existingStems(topicID uint) ([]string, map[string]bool, error) {
	stems, err := s.Repo.Stems(topicID)
	if err != nil {
		return nil, nil, err
	}
	set := make(map[string]bool, len(stems))
	for _, st := range stems {
		set[cache.Normalize(st)] = true
	}
	return stems, set, nil
}

// Generate 调用大模型出题，结构不合法或与已有题干重复的题目被跳过
func (s *QuestionService) Generate(ctx context.Context, topicSlug string, req GenerateQuestionsRequest) ([]model.PracticeQuestion, error) {
	topic, err := s.Topics.Resolve(topicSlug)
	if err != nil {
		return nil, err
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}

	stems, seen, err := s.existingStems(topic.ID)
	if err != nil {
		return nil, err
	}

	var passages []Passage
	if s.Knowledge != nil {
		passages, err = s.Knowledge.Retrieve(ctx, topic.ID, topic.Name+" "+topic.Description, 3)
		if err != nil {
			logger.Log.Warn("Retrieval for question generation failed", zap.Uint("topic_id", topic.ID), zap.Error(err))
			passages = nil
		}
	}

	llmReq := llm.UserPrompt(questionSystemPrompt, buildQuestionPrompt(topic, difficulty, req.Count, stems, passages))
	llmReq.Schema = generatedQuestionsSchema

	resp, err := s.LLM.Generate(llm.WithPurpose(ctx, llm.PurposeQuestionGenerate), llmReq)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if err := json.Unmarshal(resp.Content, &parsed); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: err}
	}

	modelID := resp.Model
	if modelID == "" {
		modelID = s.LLM.ModelID()
	}

	var accepted []model.PracticeQuestion
	for _, g := range parsed.Questions {
		if len(accepted) == req.Count {
			break
		}
		choices := trimChoices(g.Choices)
		if err := ValidateQuestion(g.Stem, choices, g.CorrectIndex, g.Explanation); err != nil {
			logger.Log.Info("Skipping generated question", zap.Error(err))
			continue
		}
		norm := cache.Normalize(g.Stem)
		if seen[norm] {
			logger.Log.Info("Skipping duplicate generated question", zap.String("stem", g.Stem))
			continue
		}
		seen[norm] = true

		accepted = append(accepted, model.PracticeQuestion{
			TopicID:      topic.ID,
			Stem:         strings.TrimSpace(g.Stem),
			Choices:      choices,
			CorrectIndex: g.CorrectIndex,
			Explanation:  strings.TrimSpace(g.Explanation),
			Difficulty:   difficulty,
			Origin:       model.OriginLLM,
			Model:        modelID,
		})
	}

	if err := s.Repo.CreateBatch(accepted); err != nil {
		return nil, err
	}
	if accepted == nil {
		accepted = []model.PracticeQuestion{}
	}
	return accepted, nil
}

func buildQuestionPrompt(topic *model.Topic, difficulty model.Difficulty, count int, stems []string, passages []Passage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", topic.Name)
	if topic.Description != "" {
		fmt.Fprintf(&b, "Scope: %s\n", topic.Description)
	}
	fmt.Fprintf(&b, "Difficulty: %s\nNumber of questions: %d\n", difficulty, count)

	if len(passages) > 0 {
		b.WriteString("\nReference material:\n")
		for i, p := range passages {
			fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, p.Title, p.Text)
		}
	}

	if len(stems) > 0 {
		b.WriteString("\nExisting questions (do not repeat):\n")
		if len(stems) > maxExistingStemsInPrompt {
			stems = stems[len(stems)-maxExistingStemsInPrompt:]
		}
		for _, st := range stems {
			fmt.Fprintf(&b, "- %s\n", st)
		}
	}
	return b.String()
}

// CreateManual 管理员手动录入
func (s *QuestionService) CreateManual(req CreateQuestionRequest) (*model.PracticeQuestion, error) {
	topic, err := s.Topics.Resolve(req.Topic)
	if err != nil {
		return nil, err
	}

	choices := trimChoices(req.Choices)
	if err := ValidateQuestion(req.Stem, choices, *req.CorrectIndex, req.Explanation); err != nil {
		return nil, err
	}

	_, seen, err := s.existingStems(topic.ID)
	if err != nil {
		return nil, err
	}
	if seen[cache.Normalize(req.Stem)] {
		return nil, fmt.Errorf("%w: a question with this stem already exists", util.ErrInvalidQuestion)
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}

	q := &model.PracticeQuestion{
		TopicID:      topic.ID,
		Stem:         strings.TrimSpace(req.Stem),
		Choices:      choices,
		CorrectIndex: *req.CorrectIndex,
		Explanation:  strings.TrimSpace(req.Explanation),
		Difficulty:   difficulty,
		Origin:       model.OriginManual,
	}
	if err := s.Repo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) List(topicSlug string, difficulty model.Difficulty, page, limit int) (*util.PageResponse, error) {
	topic, err := s.Topics.Resolve(topicSlug)
	if err != nil {
		return nil, err
	}
	questions, total, err := s.Repo.ListByTopic(topic.ID, difficulty, page, limit)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: questions, Total: total, Page: page, Limit: limit}, nil
}

func (s *QuestionService) Random(topicSlug string, count int) ([]model.PracticeQuestion, error) {
	topic, err := s.Topics.Resolve(topicSlug)
	if err != nil {
		return nil, err
	}
	return s.Repo.Random(topic.ID, count)
}

// Answer 判分并记录作答，答错时生成记忆卡片
func (s *QuestionService) Answer(userID, questionID uint, choiceIndex int) (*AnswerResult, error) {
	if choiceIndex < 0 || choiceIndex > 3 {
		return nil, util.ErrInvalidChoice
	}

	q, err := s.Repo.FindByID(questionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}

	correct := choiceIndex == q.CorrectIndex
	if err := s.Repo.CreateAttempt(&model.QuestionAttempt{
		UserID:      userID,
		QuestionID:  q.ID,
		TopicID:     q.TopicID,
		ChoiceIndex: choiceIndex,
		Correct:     correct,
	}); err != nil {
		return nil, err
	}

	result := &AnswerResult{
		Correct:      correct,
		CorrectIndex: q.CorrectIndex,
		Explanation:  q.Explanation,
	}

	if !correct && s.Flashcards != nil {
		created, err := s.Flashcards.CreateFromQuestion(userID, q)
		if err != nil {
			logger.Log.Warn("Failed to create flashcard for missed question",
				zap.Uint("user_id", userID),
				zap.Uint("question_id", q.ID),
				zap.Error(err))
		}
		result.FlashcardCreated = created
	}
	return result, nil
}
