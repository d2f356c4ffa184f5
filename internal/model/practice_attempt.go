package model

import (
	"time"
)

const (
	SourceLLM           = "llm"
	SourceKnowledgeBase = "knowledge_base"
	SourceCache         = "cache"
)

// Citation 回答引用的知识片段
type Citation struct {
	ChunkID    uint   `json:"chunkId"`
	DocumentID uint   `json:"documentId"`
	Title      string `json:"title"`
	Excerpt    string `json:"excerpt"`
}

// PracticeAttempt 一次 POST /practice 的完整记录
type PracticeAttempt struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint       `gorm:"index:idx_attempt_user_created;not null" json:"userId"`
	TopicID      uint       `gorm:"index;not null" json:"topicId"`
	Topic        *Topic     `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	Prompt       string     `gorm:"type:text;not null" json:"prompt"`
	Answer       string     `gorm:"type:text;not null" json:"answer"`
	Citations    []Citation `gorm:"serializer:json;type:text" json:"citations"`
	Source       string     `gorm:"size:20" json:"source"`
	Model        string     `gorm:"size:100" json:"model"`
	InputTokens  int        `json:"inputTokens"`
	OutputTokens int        `json:"outputTokens"`
	LatencyMs    int64      `json:"latencyMs"`
	CreatedAt    time.Time  `gorm:"index:idx_attempt_user_created" json:"createdAt"`
}

func (PracticeAttempt) TableName() string {
	return "practice_attempts"
}
