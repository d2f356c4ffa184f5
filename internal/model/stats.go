package model

// TopicStats 按知识领域聚合的练习统计
type TopicStats struct {
	TopicID          uint    `json:"topicId"`
	Slug             string  `json:"slug"`
	Name             string  `json:"name"`
	PracticeAttempts int64   `json:"practiceAttempts"`
	QuestionsTried   int64   `json:"questionsTried"`
	QuestionsCorrect int64   `json:"questionsCorrect"`
	Accuracy         float64 `json:"accuracy"`
	FlashcardsDue    int64   `json:"flashcardsDue"`
}

// ModelUsage 按模型聚合的调用量
type ModelUsage struct {
	Model        string  `json:"model"`
	Requests     int64   `json:"requests"`
	Failures     int64   `json:"failures"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	CostUSD      float64 `json:"costUsd"`
}
