package service

import (
	"cofq_backend/internal/llm"
	"cofq_backend/internal/model"
	"cofq_backend/internal/repository"
	"time"
)

type StatsOverview struct {
	Topics           []model.TopicStats `json:"topics"`
	PracticeAttempts int64              `json:"practiceAttempts"`
	QuestionsTried   int64              `json:"questionsTried"`
	QuestionsCorrect int64              `json:"questionsCorrect"`
	Accuracy         float64            `json:"accuracy"`
	FlashcardsDue    int64              `json:"flashcardsDue"`
}

type UsageReport struct {
	Days         int                `json:"days"`
	Since        time.Time          `json:"since"`
	Models       []model.ModelUsage `json:"models"`
	TotalCostUSD float64            `json:"totalCostUsd"`
}

type StatsService struct {
	StatsRepo     *repository.StatsRepository
	FlashcardRepo *repository.FlashcardRepository
	LLMLogRepo    *repository.LLMLogRepository
	Now           func() time.Time
}

func NewStatsService(statsRepo *repository.StatsRepository, flashcardRepo *repository.FlashcardRepository, llmLogRepo *repository.LLMLogRepository) *StatsService {
	return &StatsService{
		StatsRepo:     statsRepo,
		FlashcardRepo: flashcardRepo,
		LLMLogRepo:    llmLogRepo,
		Now:           time.Now,
	}
}

func (s *StatsService) Overview(userID uint) (*StatsOverview, error) {
	topics, err := s.StatsRepo.TopicStats(userID)
	if err != nil {
		return nil, err
	}
	due, err := s.FlashcardRepo.CountDueByTopic(userID, s.Now())
	if err != nil {
		return nil, err
	}

	overview := &StatsOverview{Topics: topics}
	for i := range topics {
		topics[i].FlashcardsDue = due[topics[i].TopicID]
		overview.PracticeAttempts += topics[i].PracticeAttempts
		overview.QuestionsTried += topics[i].QuestionsTried
		overview.QuestionsCorrect += topics[i].QuestionsCorrect
	}
	for _, n := range due {
		overview.FlashcardsDue += n
	}
	if overview.QuestionsTried > 0 {
		overview.Accuracy = float64(overview.QuestionsCorrect) / float64(overview.QuestionsTried)
	}
	return overview, nil
}

// LLMUsage 最近 days 天的模型调用量，旧记录的费用按当前价格表补算
func (s *StatsService) LLMUsage(days int) (*UsageReport, error) {
	since := s.Now().AddDate(0, 0, -days)
	usage, err := s.LLMLogRepo.UsageSince(since)
	if err != nil {
		return nil, err
	}

	if usage == nil {
		usage = []model.ModelUsage{}
	}
	report := &UsageReport{Days: days, Since: since, Models: usage}
	for i := range usage {
		if usage[i].CostUSD == 0 {
			usage[i].CostUSD = llm.EstimateCost(usage[i].Model, int(usage[i].InputTokens), int(usage[i].OutputTokens))
		}
		report.TotalCostUSD += usage[i].CostUSD
	}
	return report, nil
}
