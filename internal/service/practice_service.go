package service

import (
	"cofq_backend/internal/config"
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
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tutorSystemPrompt = `You are a tutor helping an apprentice electrician prepare for the Certificate of Qualification (C of Q) exam.
Answer the question accurately and concisely for the given topic. Show the key rule, formula or calculation steps.
When reference passages are provided, base the answer on them and cite the passage numbers you used in "citations".
If no passage supports the answer, return an empty "citations" array. Never invent code rule numbers.`

var practiceAnswerSchema = &llm.Schema{
	Name:        "practice-answer",
	Description: "Tutor answer to a C of Q practice prompt",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{
				"type":        "string",
				"description": "The explanation or answer for the learner",
			},
			"citations": map[string]any{
				"type":        "array",
				"description": "Numbers of the reference passages the answer relies on",
				"items":       map[string]any{"type": "integer"},
			},
		},
		"required":             []any{"answer", "citations"},
		"additionalProperties": false,
	},
}

type PracticeRequest struct {
	Topic        string `json:"topic" binding:"required"`
	Prompt       string `json:"prompt" binding:"required,max=4000"`
	UserID       *uint  `json:"userId"`
	UseRetrieval *bool  `json:"useRetrieval"`
	TopK         int    `json:"topK" binding:"omitempty,min=1,max=20"`
}

type PracticeResult struct {
	AttemptID uint             `json:"attemptId"`
	Topic     string           `json:"topic"`
	Answer    string           `json:"answer"`
	Citations []model.Citation `json:"citations"`
	Source    string           `json:"source"`
	Model     string           `json:"model"`
	Cached    bool             `json:"cached"`
}

// PracticeTuning 可热更新的参数
type PracticeTuning struct {
	RAGEnabled   bool
	TopK         int
	Temperature  float64
	MaxTokens    int
	CacheEnabled bool
}

func TuningFromConfig(cfg *config.Config) PracticeTuning {
	return PracticeTuning{
		RAGEnabled:   cfg.RAG.Enabled,
		TopK:         cfg.RAG.TopK,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		CacheEnabled: cfg.Cache.Enabled,
	}
}

type cachedAnswer struct {
	Answer    string           `json:"answer"`
	Citations []model.Citation `json:"citations"`
	Model     string           `json:"model"`
}

type llmAnswer struct {
	Answer    string `json:"answer"`
	Citations []int  `json:"citations"`
}

type PracticeService struct {
	Topics      *TopicService
	AttemptRepo *repository.PracticeAttemptRepository
	Knowledge   *KnowledgeService
	LLM         llm.Provider
	Cache       *cache.AnswerCache

	mu     sync.RWMutex
	tuning PracticeTuning
}

// NewPracticeService knowledge 为 nil 时不做检索，answerCache 可为 nil
func NewPracticeService(
	topics *TopicService,
	attemptRepo *repository.PracticeAttemptRepository,
	knowledge *KnowledgeService,
	provider llm.Provider,
	answerCache *cache.AnswerCache,
	tuning PracticeTuning,
) *PracticeService {
	return &PracticeService{
		Topics:      topics,
		AttemptRepo: attemptRepo,
		Knowledge:   knowledge,
		LLM:         provider,
		Cache:       answerCache,
		tuning:      tuning,
	}
}

func (s *PracticeService) UpdateTuning(t PracticeTuning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuning = t
}

func (s *PracticeService) Tuning() PracticeTuning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tuning
}

// Practice 回答一次练习提问并记录历史
func (s *PracticeService) Practice(ctx context.Context, userID uint, req PracticeRequest) (*PracticeResult, error) {
	if req.UserID != nil && *req.UserID != userID {
		return nil, util.ErrUserMismatch
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, util.ErrEmptyPrompt
	}

	topic, err := s.Topics.Resolve(req.Topic)
	if err != nil {
		return nil, err
	}

	tuning := s.Tuning()
	useRetrieval := tuning.RAGEnabled && s.Knowledge != nil && (req.UseRetrieval == nil || *req.UseRetrieval)
	topK := tuning.TopK
	if req.TopK > 0 {
		topK = req.TopK
	}

	key := cache.Key(s.LLM.ModelID(), topic.Slug, prompt, strconv.FormatBool(useRetrieval), strconv.Itoa(topK))
	if tuning.CacheEnabled {
		var hit cachedAnswer
		if s.Cache.Get(ctx, key, &hit) {
			return s.recordCached(userID, topic, prompt, hit)
		}
	}

	var passages []Passage
	if useRetrieval {
		passages, err = s.Knowledge.Retrieve(ctx, topic.ID, prompt, topK)
		if err != nil {
			// 检索失败不影响回答
			logger.Log.Warn("Retrieval failed, answering without context",
				zap.Uint("topic_id", topic.ID),
				zap.Error(err))
			passages = nil
		}
	}

	llmReq := llm.UserPrompt(tutorSystemPrompt, buildPracticePrompt(topic, passages, prompt))
	llmReq.Schema = practiceAnswerSchema
	llmReq.Temperature = tuning.Temperature
	llmReq.MaxTokens = tuning.MaxTokens

	start := time.Now()
	resp, err := s.LLM.Generate(llm.WithPurpose(ctx, llm.PurposePractice), llmReq)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	var parsed llmAnswer
	if err := json.Unmarshal(resp.Content, &parsed); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: err}
	}
	answer := strings.TrimSpace(parsed.Answer)
	if answer == "" {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: errors.New("empty answer")}
	}

	citations := mapCitations(parsed.Citations, passages)
	source := model.SourceLLM
	if len(citations) > 0 {
		source = model.SourceKnowledgeBase
	}

	modelID := resp.Model
	if modelID == "" {
		modelID = s.LLM.ModelID()
	}

	attempt := &model.PracticeAttempt{
		UserID:       userID,
		TopicID:      topic.ID,
		Prompt:       prompt,
		Answer:       answer,
		Citations:    citations,
		Source:       source,
		Model:        modelID,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		LatencyMs:    latency.Milliseconds(),
	}
	if err := s.AttemptRepo.Create(attempt); err != nil {
		return nil, err
	}

	if tuning.CacheEnabled {
		s.Cache.Set(ctx, key, cachedAnswer{Answer: answer, Citations: citations, Model: modelID})
	}

	return &PracticeResult{
		AttemptID: attempt.ID,
		Topic:     topic.Slug,
		Answer:    answer,
		Citations: citations,
		Source:    source,
		Model:     modelID,
	}, nil
}

func (s *PracticeService) recordCached(userID uint, topic *model.Topic, prompt string, hit cachedAnswer) (*PracticeResult, error) {
	citations := hit.Citations
	if citations == nil {
		citations = []model.Citation{}
	}

	attempt := &model.PracticeAttempt{
		UserID:    userID,
		TopicID:   topic.ID,
		Prompt:    prompt,
		Answer:    hit.Answer,
		Citations: citations,
		Source:    model.SourceCache,
		Model:     hit.Model,
	}
	if err := s.AttemptRepo.Create(attempt); err != nil {
		return nil, err
	}

	return &PracticeResult{
		AttemptID: attempt.ID,
		Topic:     topic.Slug,
		Answer:    hit.Answer,
		Citations: citations,
		Source:    model.SourceCache,
		Model:     hit.Model,
		Cached:    true,
	}, nil
}

func buildPracticePrompt(topic *model.Topic, passages []Passage, prompt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", topic.Name)
	if topic.Description != "" {
		fmt.Fprintf(&b, "Scope: %s\n", topic.Description)
	}

	if len(passages) > 0 {
		b.WriteString("\nReference passages:\n")
		for i, p := range passages {
			fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, p.Title, p.Text)
		}
	} else {
		b.WriteString("\nNo reference passages are available; answer from general knowledge and return no citations.\n")
	}

	fmt.Fprintf(&b, "\nQuestion:\n%s\n", prompt)
	return b.String()
}

// mapCitations 编号从 1 开始，越界和重复的编号丢弃
func mapCitations(numbers []int, passages []Passage) []model.Citation {
	citations := make([]model.Citation, 0, len(numbers))
	seen := map[int]bool{}
	for _, n := range numbers {
		if n < 1 || n > len(passages) || seen[n] {
			continue
		}
		seen[n] = true
		p := passages[n-1]
		citations = append(citations, model.Citation{
			ChunkID:    p.ChunkID,
			DocumentID: p.DocumentID,
			Title:      p.Title,
			Excerpt:    excerpt(p.Text, excerptLength),
		})
	}
	return citations
}

// History 当前用户的练习记录，topicSlug 为空时不过滤
func (s *PracticeService) History(userID uint, topicSlug string, page, limit int) (*util.PageResponse, error) {
	var topicID uint
	if topicSlug != "" {
		topic, err := s.Topics.Lookup(topicSlug)
		if err != nil {
			return nil, err
		}
		topicID = topic.ID
	}

	attempts, total, err := s.AttemptRepo.FindByUser(userID, topicID, page, limit)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: attempts, Total: total, Page: page, Limit: limit}, nil
}

func (s *PracticeService) GetAttempt(userID, attemptID uint) (*model.PracticeAttempt, error) {
	attempt, err := s.AttemptRepo.FindByIDForUser(attemptID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	return attempt, err
}

func (s *PracticeService) DeleteAttempt(userID, attemptID uint) error {
	deleted, err := s.AttemptRepo.DeleteForUser(attemptID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return util.ErrAttemptNotFound
	}
	return nil
}
