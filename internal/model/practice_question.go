package model

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

const (
	OriginLLM    = "llm"
	OriginManual = "manual"
)

// PracticeQuestion 题库中的单选题
type PracticeQuestion struct {
	BaseModel
	TopicID      uint       `gorm:"index;not null" json:"topicId"`
	Stem         string     `gorm:"type:text;not null" json:"stem"`
	Choices      []string   `gorm:"serializer:json;type:text" json:"choices"`
	CorrectIndex int        `json:"-"`
	Explanation  string     `gorm:"type:text" json:"-"`
	Difficulty   Difficulty `gorm:"size:10;default:'medium'" json:"difficulty"`
	Origin       string     `gorm:"size:10" json:"origin"`
	Model        string     `gorm:"size:100" json:"-"`
}

func (PracticeQuestion) TableName() string {
	return "practice_questions"
}

// QuestionAttempt 用户对某道题的作答记录
type QuestionAttempt struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"userId"`
	QuestionID  uint      `gorm:"index;not null" json:"questionId"`
	TopicID     uint      `gorm:"index;not null" json:"topicId"`
	ChoiceIndex int       `json:"choiceIndex"`
	Correct     bool      `json:"correct"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (QuestionAttempt) TableName() string {
	return "question_attempts"
}
