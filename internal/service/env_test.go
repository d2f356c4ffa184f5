package service

import (
	"cofq_backend/internal/config"
	"cofq_backend/internal/llm"
	"cofq_backend/internal/model"
	"cofq_backend/internal/repository"
	"cofq_backend/internal/testutil"
	"cofq_backend/pkg/cache"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	DB         *gorm.DB
	LLM        *llm.MockProvider
	Embedder   *llm.HashEmbedder
	Cache      *cache.AnswerCache
	Topics     *TopicService
	Knowledge  *KnowledgeService
	Practice   *PracticeService
	Flashcards *FlashcardService
	Questions  *QuestionService
	Stats      *StatsService
	User       *model.User
}

var testRAG = config.RAGConfig{
	Enabled:      true,
	TopK:         3,
	ChunkSize:    200,
	ChunkOverlap: 20,
	MinScore:     0.1,
}

func newTestEnv(t *testing.T, withCache bool) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	env := &testEnv{
		DB:       db,
		LLM:      llm.NewMockProvider(),
		Embedder: llm.NewHashEmbedder(64),
	}

	if withCache {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		env.Cache = cache.NewAnswerCache(client, time.Hour)
	}

	env.Topics = NewTopicService(repository.NewTopicRepository(db))
	env.Knowledge = NewKnowledgeService(repository.NewKnowledgeRepository(db), env.Topics, env.Embedder, nil, testRAG)
	env.Practice = NewPracticeService(
		env.Topics,
		repository.NewPracticeAttemptRepository(db),
		env.Knowledge,
		env.LLM,
		env.Cache,
		PracticeTuning{RAGEnabled: true, TopK: 3, Temperature: 0.2, MaxTokens: 512, CacheEnabled: withCache},
	)
	flashcardRepo := repository.NewFlashcardRepository(db)
	env.Flashcards = NewFlashcardService(flashcardRepo, env.Topics)
	env.Questions = NewQuestionService(repository.NewQuestionRepository(db), env.Topics, env.Flashcards, env.Knowledge, env.LLM)
	env.Stats = NewStatsService(repository.NewStatsRepository(db), flashcardRepo, repository.NewLLMLogRepository(db))

	env.User = &model.User{Name: "Apprentice", Email: "apprentice@example.com", Password: "x", Role: model.Student}
	require.NoError(t, repository.NewUserRepository(db).Create(env.User))
	return env
}

// ingestDoc 直接入库一篇文档
func (e *testEnv) ingestDoc(t *testing.T, topic, title, content string) *model.KnowledgeDocument {
	t.Helper()
	doc, err := e.Knowledge.CreateDocument(CreateDocumentRequest{Topic: topic, Title: title, Content: content})
	require.NoError(t, err)
	doc, err = e.Knowledge.IngestDocument(t.Context(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.DocumentReady, doc.Status)
	return doc
}

func ptr[T any](v T) *T { return &v }
