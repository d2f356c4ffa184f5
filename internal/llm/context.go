package llm

import "context"

type contextKey string

const purposeKey contextKey = "llm_purpose"

const (
	PurposePractice         = "practice"
	PurposeQuestionGenerate = "question_generate"
)

// WithPurpose 给请求打上用途标签，记录日志和指标时使用
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}
