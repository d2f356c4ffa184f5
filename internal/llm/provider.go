package llm

import (
	"context"
	"encoding/json"
)

// Provider 大模型调用的统一抽象，上层只依赖这个接口
type Provider interface {
	// Generate 发送请求并返回结果。Request.Schema 非空时要求模型输出符合该
	// JSON Schema 的对象，返回前已完成校验。
	Generate(ctx context.Context, req Request) (*Response, error)

	ModelID() string
}

type Request struct {
	System   string
	Messages []Message

	// Schema 为空时 Response.Content 是原始文本
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema 期望的结构化输出
type Schema struct {
	// Name 作为 OpenAI 的 schema 名称，也是校验缓存的 key，如 "practice-answer"
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string // end / max_tokens
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UserPrompt 单轮对话的便捷构造
func UserPrompt(system, prompt string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	}
}
