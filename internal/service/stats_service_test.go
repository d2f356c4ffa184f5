package service

import (
	"context"
	"testing"
	"time"

	"cofq_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMUsage_FillsMissingCost(t *testing.T) {
	env := newTestEnv(t, false)
	repo := env.Stats.LLMLogRepo
	ctx := context.Background()

	require.NoError(t, repo.RecordLLMRequest(ctx, &model.LLMRequestLog{
		Model: "gpt-4o-mini", Success: true, InputTokens: 1_000_000, OutputTokens: 0,
	}))
	require.NoError(t, repo.RecordLLMRequest(ctx, &model.LLMRequestLog{
		Model: "mock", Success: false, CreatedAt: time.Now().AddDate(0, 0, -30),
	}))

	report, err := env.Stats.LLMUsage(7)
	require.NoError(t, err)
	require.Len(t, report.Models, 1)
	assert.Equal(t, "gpt-4o-mini", report.Models[0].Model)
	assert.Greater(t, report.TotalCostUSD, 0.0)
}

func TestOverview_Empty(t *testing.T) {
	env := newTestEnv(t, false)
	overview, err := env.Stats.Overview(env.User.ID)
	require.NoError(t, err)
	assert.Len(t, overview.Topics, len(model.DefaultTopics))
	assert.Zero(t, overview.Accuracy)
	assert.Zero(t, overview.FlashcardsDue)
}
