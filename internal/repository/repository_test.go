package repository

import (
	"cofq_backend/internal/model"
	"cofq_backend/internal/testutil"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	u := &model.User{Name: "Sparky", Email: email, Password: "x", Role: model.Student}
	require.NoError(t, NewUserRepository(db).Create(u))
	return u
}

func topicBySlug(t *testing.T, db *gorm.DB, slug string) *model.Topic {
	t.Helper()
	topic, err := NewTopicRepository(db).FindBySlug(slug)
	require.NoError(t, err)
	return topic
}

func TestTopicRepository_SeededAndDisabled(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTopicRepository(db)

	all, err := repo.List(true)
	require.NoError(t, err)
	assert.Len(t, all, len(model.DefaultTopics))

	hidden := &model.Topic{Slug: "solar-pv", Name: "Solar PV", Enabled: false}
	require.NoError(t, repo.Create(hidden))

	enabled, err := repo.List(true)
	require.NoError(t, err)
	assert.Len(t, enabled, len(model.DefaultTopics))

	got, err := repo.FindBySlug("solar-pv")
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	require.NoError(t, repo.Update(got.ID, map[string]interface{}{"enabled": true}))
	enabled, err = repo.List(true)
	require.NoError(t, err)
	assert.Len(t, enabled, len(model.DefaultTopics)+1)
}

func TestPracticeAttemptRepository_PagingAndOwnership(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPracticeAttemptRepository(db)
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")
	motors := topicBySlug(t, db, "motors")
	ohms := topicBySlug(t, db, "ohms-law")

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		topicID := motors.ID
		if i%2 == 1 {
			topicID = ohms.ID
		}
		require.NoError(t, repo.Create(&model.PracticeAttempt{
			UserID:    alice.ID,
			TopicID:   topicID,
			Prompt:    "q",
			Answer:    "a",
			Citations: []model.Citation{{ChunkID: uint(i + 1), Title: "CEC"}},
			Source:    model.SourceLLM,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	page1, total, err := repo.FindByUser(alice.ID, 0, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page1, 2)
	assert.True(t, page1[0].CreatedAt.After(page1[1].CreatedAt))
	require.NotNil(t, page1[0].Topic)
	assert.Equal(t, uint(5), page1[0].Citations[0].ChunkID)

	onlyMotors, total, err := repo.FindByUser(alice.ID, motors.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, onlyMotors, 3)

	_, err = repo.FindByIDForUser(page1[0].ID, bob.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	deleted, err := repo.DeleteForUser(page1[0].ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.DeleteForUser(page1[0].ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestQuestionRepository_RandomAndStems(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewQuestionRepository(db)
	topic := topicBySlug(t, db, "transformers")

	var batch []model.PracticeQuestion
	for _, stem := range []string{"Q1", "Q2", "Q3", "Q4"} {
		batch = append(batch, model.PracticeQuestion{
			TopicID:     topic.ID,
			Stem:        stem,
			Choices:     []string{"a", "b", "c", "d"},
			Explanation: "e",
			Difficulty:  model.DifficultyEasy,
			Origin:      model.OriginManual,
		})
	}
	require.NoError(t, repo.CreateBatch(batch))

	stems, err := repo.Stems(topic.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Q1", "Q2", "Q3", "Q4"}, stems)

	picked, err := repo.Random(topic.ID, 3)
	require.NoError(t, err)
	assert.Len(t, picked, 3)
	assert.Equal(t, []string{"a", "b", "c", "d"}, picked[0].Choices)

	none, err := repo.Random(topicBySlug(t, db, "motors").ID, 3)
	require.NoError(t, err)
	assert.Empty(t, none)

	list, total, err := repo.ListByTopic(topic.ID, model.DifficultyHard, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestFlashcardRepository_Due(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFlashcardRepository(db)
	user := seedUser(t, db, "carol@example.com")
	topic := topicBySlug(t, db, "conductors")
	now := time.Now()

	qid := uint(42)
	cards := []*model.Flashcard{
		{UserID: user.ID, TopicID: topic.ID, Front: "f1", Back: "b1", NextReviewAt: now.Add(-time.Hour)},
		{UserID: user.ID, TopicID: topic.ID, Front: "f2", Back: "b2", NextReviewAt: now.Add(24 * time.Hour)},
		{UserID: user.ID, TopicID: topic.ID, Front: "f3", Back: "b3", NextReviewAt: now.Add(-2 * time.Hour), QuestionID: &qid},
	}
	for _, c := range cards {
		require.NoError(t, repo.Create(c))
	}

	due, err := repo.Due(user.ID, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "f3", due[0].Front)

	count, err := repo.CountDue(user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	byTopic, err := repo.CountDueByTopic(user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byTopic[topic.ID])

	exists, err := repo.ExistsForQuestion(user.ID, qid)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestKnowledgeRepository_ChunksLifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewKnowledgeRepository(db)
	topic := topicBySlug(t, db, "grounding-bonding")

	doc := &model.KnowledgeDocument{TopicID: topic.ID, Title: "Rule 10-700", Content: "x", Status: model.DocumentPending}
	require.NoError(t, repo.CreateDocument(doc))

	pending, err := repo.PendingDocuments(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	chunks := []model.KnowledgeChunk{
		{DocumentID: doc.ID, TopicID: topic.ID, Ord: 0, Text: "Bonding conductor sizing per Table 16", EmbeddingModel: "hash-8", Embedding: []byte{0, 0, 128, 63}},
		{DocumentID: doc.ID, TopicID: topic.ID, Ord: 1, Text: "Grounding electrode requirements", EmbeddingModel: "hash-8"},
	}
	require.NoError(t, repo.ReplaceChunks(doc, chunks))
	assert.Equal(t, model.DocumentReady, doc.Status)

	stored, err := repo.FindDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ChunkCount)

	got, err := repo.ChunksForTopic(topic.ID, "hash-8")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []byte{0, 0, 128, 63}, got[0].Embedding)

	other, err := repo.ChunksForTopic(topic.ID, "text-embedding-3-small")
	require.NoError(t, err)
	assert.Empty(t, other)

	hits, err := repo.SearchByKeywords(topic.ID, []string{"ELECTRODE", "nothing"}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Ord)

	titles, err := repo.DocumentTitles([]uint{doc.ID})
	require.NoError(t, err)
	assert.Equal(t, "Rule 10-700", titles[doc.ID])

	deleted, err := repo.DeleteDocument(doc.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = repo.ChunksForTopic(topic.ID, "hash-8")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKnowledgeRepository_ClaimAndRequeue(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewKnowledgeRepository(db)
	topic := topicBySlug(t, db, "motors")

	doc := &model.KnowledgeDocument{TopicID: topic.ID, Title: "Rule 28-106", Content: "x", Status: model.DocumentPending}
	require.NoError(t, repo.CreateDocument(doc))

	claimed, err := repo.ClaimDocument(doc.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimDocument(doc.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim must lose")

	pending, err := repo.PendingDocuments(10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err := repo.ResetProcessing()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := repo.FindDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentPending, stored.Status)

	require.NoError(t, repo.MarkFailed(stored, "boom"))
	claimed, err = repo.ClaimDocument(doc.ID)
	require.NoError(t, err)
	assert.True(t, claimed, "failed documents can be ingested again")
	require.NoError(t, repo.ReleaseDocument(stored))

	stored, err = repo.FindDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentPending, stored.Status)
}

func TestLLMLogRepository_UsageSince(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLLMLogRepository(db)
	ctx := context.Background()

	old := &model.LLMRequestLog{Model: "gpt-4o", Success: true, InputTokens: 1000, CreatedAt: time.Now().Add(-72 * time.Hour)}
	require.NoError(t, repo.RecordLLMRequest(ctx, old))
	for _, ok := range []bool{true, true, false} {
		require.NoError(t, repo.RecordLLMRequest(ctx, &model.LLMRequestLog{
			Model: "gpt-4o", Success: ok, InputTokens: 100, OutputTokens: 20, CostUSD: 0.5,
		}))
	}
	require.NoError(t, repo.RecordLLMRequest(ctx, &model.LLMRequestLog{Model: "mock", Success: true}))

	usage, err := repo.UsageSince(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	require.Len(t, usage, 2)

	assert.Equal(t, "gpt-4o", usage[0].Model)
	assert.Equal(t, int64(3), usage[0].Requests)
	assert.Equal(t, int64(1), usage[0].Failures)
	assert.Equal(t, int64(300), usage[0].InputTokens)
	assert.Equal(t, int64(60), usage[0].OutputTokens)
	assert.InDelta(t, 1.5, usage[0].CostUSD, 1e-9)
	assert.Equal(t, "mock", usage[1].Model)
}

func TestStatsRepository_TopicStats(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := seedUser(t, db, "dave@example.com")
	motors := topicBySlug(t, db, "motors")

	require.NoError(t, NewPracticeAttemptRepository(db).Create(&model.PracticeAttempt{
		UserID: user.ID, TopicID: motors.ID, Prompt: "p", Answer: "a", Source: model.SourceLLM,
	}))
	questions := NewQuestionRepository(db)
	for _, correct := range []bool{true, false, true, true} {
		require.NoError(t, questions.CreateAttempt(&model.QuestionAttempt{
			UserID: user.ID, QuestionID: 1, TopicID: motors.ID, Correct: correct,
		}))
	}

	stats, err := NewStatsRepository(db).TopicStats(user.ID)
	require.NoError(t, err)
	require.Len(t, stats, len(model.DefaultTopics))

	var got model.TopicStats
	for _, s := range stats {
		if s.Slug == "motors" {
			got = s
		}
	}
	assert.Equal(t, int64(1), got.PracticeAttempts)
	assert.Equal(t, int64(4), got.QuestionsTried)
	assert.Equal(t, int64(3), got.QuestionsCorrect)
	assert.InDelta(t, 0.75, got.Accuracy, 1e-9)
}
