package llm

import (
	"cofq_backend/internal/config"
	"context"
	"fmt"
	"time"
)

// NewProvider 按配置创建 Provider，调用链：timeout -> retry -> logging -> 具体实现
func NewProvider(ctx context.Context, cfg config.LLMConfig, recorder UsageRecorder) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "openai":
		base, err = NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "mock":
		base = NewEchoMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	retryCfg := RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		InitialWait: cfg.Retry.InitialWaitMs,
		MaxWait:     cfg.Retry.MaxWaitMs,
		Multiplier:  cfg.Retry.Multiplier,
	}

	p := WithRetry(WithLogging(base, recorder), retryCfg)
	if cfg.Timeout > 0 {
		p = WithTimeout(p, cfg.Timeout)
	}
	return p, nil
}

// NewEmbedder provider 为空时返回 nil，检索退化为关键词匹配；timeout > 0 时限制每次调用时长
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, timeout time.Duration) (Embedder, error) {
	var e Embedder
	var err error

	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		e, err = NewOpenAIEmbedder(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "gemini":
		e, err = NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model)
	case "hash":
		e = NewHashEmbedder(256)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		e = WithEmbedTimeout(e, timeout)
	}
	return e, nil
}

type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout 限制单次 Generate（含重试）的总耗时
func WithTimeout(p Provider, d time.Duration) Provider {
	return &timeoutProvider{inner: p, timeout: d}
}

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *timeoutProvider) ModelID() string {
	return t.inner.ModelID()
}

type timeoutEmbedder struct {
	inner   Embedder
	timeout time.Duration
}

func WithEmbedTimeout(e Embedder, d time.Duration) Embedder {
	return &timeoutEmbedder{inner: e, timeout: d}
}

func (t *timeoutEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Embed(ctx, texts)
}

func (t *timeoutEmbedder) ModelID() string {
	return t.inner.ModelID()
}
