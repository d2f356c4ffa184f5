package model

import "time"

// LLMRequestLog 每次大模型调用的审计记录，用于统计用量和费用
type LLMRequestLog struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Model        string    `gorm:"size:100;index" json:"model"`
	Purpose      string    `gorm:"size:50;index" json:"purpose"`
	Success      bool      `json:"success"`
	InputTokens  int       `json:"inputTokens"`
	OutputTokens int       `json:"outputTokens"`
	CostUSD      float64   `json:"costUsd"`
	LatencyMs    int64     `json:"latencyMs"`
	ErrorMessage string    `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}

func (LLMRequestLog) TableName() string {
	return "llm_request_logs"
}
