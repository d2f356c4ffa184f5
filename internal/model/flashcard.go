package model

import "time"

// Flashcard 带间隔复习状态的记忆卡片
type Flashcard struct {
	BaseModel
	UserID          uint       `gorm:"index;not null" json:"userId"`
	TopicID         uint       `gorm:"index;not null" json:"topicId"`
	QuestionID      *uint      `gorm:"index" json:"questionId,omitempty"`
	Front           string     `gorm:"type:text;not null" json:"front"`
	Back            string     `gorm:"type:text;not null" json:"back"`
	Stage           int        `gorm:"default:0" json:"stage"`
	ConsecutiveHits int        `gorm:"default:0" json:"consecutiveHits"`
	Graduated       bool       `gorm:"default:false" json:"graduated"`
	NextReviewAt    time.Time  `gorm:"index" json:"nextReviewAt"`
	LastReviewedAt  *time.Time `json:"lastReviewedAt,omitempty"`
}

func (Flashcard) TableName() string {
	return "flashcards"
}
