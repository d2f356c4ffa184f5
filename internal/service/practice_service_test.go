package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"cofq_backend/internal/llm"
	"cofq_backend/internal/model"
	"cofq_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answerJSON(answer string, citations ...int) json.RawMessage {
	if citations == nil {
		citations = []int{}
	}
	b, _ := json.Marshal(map[string]any{"answer": answer, "citations": citations})
	return b
}

func TestPractice_ReturnsStubbedAnswer(t *testing.T) {
	env := newTestEnv(t, false)
	env.LLM.AddResponse(llm.MockResponse{
		Content: answerJSON("P = I x E, so 10 A x 120 V = 1200 W."),
		Usage:   llm.Usage{InputTokens: 50, OutputTokens: 12},
	})

	res, err := env.Practice.Practice(context.Background(), env.User.ID, PracticeRequest{
		Topic:  "ohms-law",
		Prompt: "What power does a 10 A load draw at 120 V?",
	})
	require.NoError(t, err)

	assert.Equal(t, "P = I x E, so 10 A x 120 V = 1200 W.", res.Answer)
	assert.Equal(t, "ohms-law", res.Topic)
	assert.Equal(t, model.SourceLLM, res.Source)
	assert.Equal(t, "mock", res.Model)
	assert.False(t, res.Cached)
	assert.Empty(t, res.Citations)
	assert.NotZero(t, res.AttemptID)

	call := env.LLM.LastCall()
	require.NotNil(t, call.Schema)
	assert.Equal(t, "practice-answer", call.Schema.Name)
	assert.Contains(t, call.Messages[0].Content, "What power does a 10 A load draw at 120 V?")
	assert.InDelta(t, 0.2, call.Temperature, 1e-9)

	attempt, err := env.Practice.GetAttempt(env.User.ID, res.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, res.Answer, attempt.Answer)
	assert.Equal(t, 50, attempt.InputTokens)
}

func TestPractice_AnswersWhenEmbedderStalls(t *testing.T) {
	env := newTestEnv(t, false)
	env.ingestDoc(t, "grounding-bonding", "Bonding", "The main bonding jumper connects the neutral to the enclosure.")
	env.Knowledge.Embedder = llm.WithEmbedTimeout(newStalledEmbedder(env.Embedder.ModelID()), 20*time.Millisecond)
	env.LLM.AddResponse(llm.MockResponse{Content: answerJSON("It bonds the neutral to the service enclosure.")})

	start := time.Now()
	res, err := env.Practice.Practice(context.Background(), env.User.ID, PracticeRequest{
		Topic:  "grounding-bonding",
		Prompt: "What does the main bonding jumper do?",
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "It bonds the neutral to the service enclosure.", res.Answer)
	assert.Empty(t, res.Citations)
}

func TestPractice_CitationsMapToPassages(t *testing.T) {
	env := newTestEnv(t, false)
	env.ingestDoc(t, "grounding-bonding", "CEC Section 10",
		"Bonding conductors shall be sized according to Table 16 based on the rating of the overcurrent device.\n\n"+
			"A grounding electrode conductor connects the system to the grounding electrode.")

	// 编号 1 合法，1 重复、0 和 99 越界都被丢弃
	env.LLM.AddResponse(llm.MockResponse{Content: answerJSON("Use Table 16.", 1, 1, 0, 99)})

	res, err := env.Practice.Practice(context.Background(), env.User.ID, PracticeRequest{
		Topic:  "grounding-bonding",
		Prompt: "How do I size a bonding conductor from the overcurrent device rating?",
	})
	require.NoError(t, err)

	require.Len(t, res.Citations, 1)
	assert.Equal(t, "CEC Section 10", res.Citations[0].Title)
	assert.NotZero(t, res.Citations[0].ChunkID)
	assert.Equal(t, model.SourceKnowledgeBase, res.Source)
	assert.Contains(t, env.LLM.LastCall().Messages[0].Content, "[1] CEC Section 10")
}

func TestPractice_RetrievalDisabledByRequest(t *testing.T) {
	env := newTestEnv(t, false)
	env.ingestDoc(t, "motors", "Motor notes", "Motor overload relays protect motors from sustained overcurrent.")
	env.LLM.AddResponse(llm.MockResponse{Content: answerJSON("Overload relays.", 1)})

	res, err := env.Practice.Practice(context.Background(), env.User.ID, PracticeRequest{
		Topic:        "motors",
		Prompt:       "What protects motors from overload?",
		UseRetrieval: ptr(false),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Citations)
	assert.Equal(t, model.SourceLLM, res.Source)
	assert.NotContains(t, env.LLM.LastCall().Messages[0].Content, "Reference passages")
}

func TestPractice_CacheHitIsPersisted(t *testing.T) {
	env := newTestEnv(t, true)
	env.LLM.AddResponse(llm.MockResponse{Content: answerJSON("Delta-wye shifts phase by 30 degrees.")})

	req := PracticeRequest{Topic: "transformers", Prompt: "Phase shift of a delta-wye transformer?"}
	first, err := env.Practice.Practice(context.Background(), env.User.ID, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	req.Prompt = "  phase shift of a DELTA-WYE transformer?  "
	second, err := env.Practice.Practice(context.Background(), env.User.ID, req)
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, model.SourceCache, second.Source)
	assert.Equal(t, first.Answer, second.Answer)
	assert.NotEqual(t, first.AttemptID, second.AttemptID)
	assert.Equal(t, 1, env.LLM.CallCount())

	page, err := env.Practice.History(env.User.ID, "transformers", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestPractice_Errors(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	other := env.User.ID + 1
	_, err := env.Practice.Practice(ctx, env.User.ID, PracticeRequest{Topic: "motors", Prompt: "x", UserID: &other})
	assert.ErrorIs(t, err, util.ErrUserMismatch)

	_, err = env.Practice.Practice(ctx, env.User.ID, PracticeRequest{Topic: "motors", Prompt: "   "})
	assert.ErrorIs(t, err, util.ErrEmptyPrompt)

	_, err = env.Practice.Practice(ctx, env.User.ID, PracticeRequest{Topic: "plumbing", Prompt: "x"})
	assert.ErrorIs(t, err, util.ErrTopicNotFound)

	assert.Zero(t, env.LLM.CallCount())
}

func TestPractice_LLMFailurePersistsNothing(t *testing.T) {
	env := newTestEnv(t, false)
	env.LLM.AddResponse(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("connection refused")}})

	_, err := env.Practice.Practice(context.Background(), env.User.ID, PracticeRequest{Topic: "motors", Prompt: "What is slip?"})
	var unavailable *llm.ErrProviderUnavailable
	require.ErrorAs(t, err, &unavailable)

	page, err := env.Practice.History(env.User.ID, "", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestPractice_SchemaViolationIsInvalidResponse(t *testing.T) {
	env := newTestEnv(t, false)
	env.LLM.AddResponse(llm.MockResponse{Content: json.RawMessage(`{"answer": 42}`)})

	_, err := env.Practice.Practice(context.Background(), env.User.ID, PracticeRequest{Topic: "motors", Prompt: "What is slip?"})
	var invalid *llm.ErrInvalidResponse
	assert.ErrorAs(t, err, &invalid)
}

func TestPractice_TuningUpdate(t *testing.T) {
	env := newTestEnv(t, false)
	env.Practice.UpdateTuning(PracticeTuning{RAGEnabled: false, TopK: 5, Temperature: 0.7, MaxTokens: 256})
	env.LLM.AddResponse(llm.MockResponse{Content: answerJSON("ok")})

	_, err := env.Practice.Practice(context.Background(), env.User.ID, PracticeRequest{Topic: "motors", Prompt: "What is slip?"})
	require.NoError(t, err)

	call := env.LLM.LastCall()
	assert.InDelta(t, 0.7, call.Temperature, 1e-9)
	assert.Equal(t, 256, call.MaxTokens)
}

func TestHistory_OwnershipAndDelete(t *testing.T) {
	env := newTestEnv(t, false)
	env.LLM.Fallback = &llm.MockResponse{Content: answerJSON("answer")}

	var ids []uint
	for _, p := range []string{"first", "second", "third"} {
		res, err := env.Practice.Practice(context.Background(), env.User.ID, PracticeRequest{Topic: "lighting-circuits", Prompt: p})
		require.NoError(t, err)
		ids = append(ids, res.AttemptID)
	}

	page, err := env.Practice.History(env.User.ID, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	list := page.List.([]model.PracticeAttempt)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)

	stranger := env.User.ID + 100
	_, err = env.Practice.GetAttempt(stranger, ids[0])
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
	assert.ErrorIs(t, env.Practice.DeleteAttempt(stranger, ids[0]), util.ErrAttemptNotFound)

	require.NoError(t, env.Practice.DeleteAttempt(env.User.ID, ids[0]))
	_, err = env.Practice.GetAttempt(env.User.ID, ids[0])
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)

	_, err = env.Practice.History(env.User.ID, "no-such-topic", 1, 10)
	assert.ErrorIs(t, err, util.ErrTopicNotFound)
}

func TestBuildPracticePrompt_NoPassages(t *testing.T) {
	topic := &model.Topic{Name: "Motors & Controls"}
	got := buildPracticePrompt(topic, nil, "What is slip?")
	assert.True(t, strings.Contains(got, "No reference passages"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(got), "What is slip?"))
}
