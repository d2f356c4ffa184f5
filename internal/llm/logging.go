package llm

import (
	"cofq_backend/internal/model"
	"cofq_backend/pkg/logger"
	"cofq_backend/pkg/monitoring"
	"cofq_backend/pkg/tracing"
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// UsageRecorder 持久化调用记录，由 repository 层实现
type UsageRecorder interface {
	RecordLLMRequest(ctx context.Context, entry *model.LLMRequestLog) error
}

// LoggingProvider 记录每次调用：zap 日志、prometheus 指标、数据库审计
type LoggingProvider struct {
	inner    Provider
	recorder UsageRecorder
}

func WithLogging(p Provider, recorder UsageRecorder) Provider {
	return &LoggingProvider{inner: p, recorder: recorder}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	ctx, endSpan := tracing.StartSpan(ctx, "llm.generate",
		attribute.String("llm.model", l.inner.ModelID()),
		attribute.String("llm.purpose", purpose),
	)
	resp, err := l.inner.Generate(ctx, req)
	endSpan(err)

	entry := &model.LLMRequestLog{
		Model:     l.inner.ModelID(),
		Purpose:   purpose,
		Success:   err == nil,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if resp != nil {
		if resp.Model != "" {
			entry.Model = resp.Model
		}
		entry.InputTokens = resp.Usage.InputTokens
		entry.OutputTokens = resp.Usage.OutputTokens
		entry.CostUSD = EstimateCost(entry.Model, entry.InputTokens, entry.OutputTokens)
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}

	monitoring.ObserveLLMRequest(entry.Model, purpose, entry.Success, entry.InputTokens, entry.OutputTokens)

	fields := []zap.Field{
		zap.String("model", entry.Model),
		zap.String("purpose", purpose),
		zap.Int64("latency_ms", entry.LatencyMs),
		zap.Int("input_tokens", entry.InputTokens),
		zap.Int("output_tokens", entry.OutputTokens),
	}
	if err != nil {
		logger.Log.Warn("LLM request failed", append(fields, zap.Error(err))...)
	} else {
		logger.Log.Debug("LLM request", fields...)
	}

	// 审计写入失败不影响本次请求
	if l.recorder != nil {
		if recErr := l.recorder.RecordLLMRequest(context.WithoutCancel(ctx), entry); recErr != nil {
			logger.Log.Warn("failed to record LLM request", zap.Error(recErr))
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
