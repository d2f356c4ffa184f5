package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cofq_backend/internal/llm"
	"cofq_backend/internal/model"
	"cofq_backend/internal/repository"
	"cofq_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding service down")
}

func (failingEmbedder) ModelID() string { return "broken" }

// stalledEmbedder 在 ctx 结束前一直阻塞，started 在第一次调用时关闭
type stalledEmbedder struct {
	model   string
	started chan struct{}
	once    sync.Once
}

func newStalledEmbedder(model string) *stalledEmbedder {
	return &stalledEmbedder{model: model, started: make(chan struct{})}
}

func (e *stalledEmbedder) Embed(ctx context.Context, _ []string) ([][]float32, error) {
	e.once.Do(func() { close(e.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func (e *stalledEmbedder) ModelID() string { return e.model }

func TestKnowledge_IngestAndVectorRetrieve(t *testing.T) {
	env := newTestEnv(t, false)
	env.ingestDoc(t, "conductors", "Ampacity tables",
		"Table 2 gives copper conductor ampacity in raceway.\n\n"+strings.Repeat("Filler text about nothing in particular. ", 8)+"\n\n"+
			"Voltage drop is limited to 3 percent on branch circuits.")

	topic, err := env.Topics.Resolve("conductors")
	require.NoError(t, err)

	passages, err := env.Knowledge.Retrieve(context.Background(), topic.ID, "copper conductor ampacity raceway", 2)
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	assert.LessOrEqual(t, len(passages), 2)
	assert.Contains(t, passages[0].Text, "copper conductor ampacity")
	assert.Equal(t, "Ampacity tables", passages[0].Title)
	for i := 1; i < len(passages); i++ {
		assert.GreaterOrEqual(t, passages[i-1].Score, passages[i].Score)
	}
	for _, p := range passages {
		assert.GreaterOrEqual(t, p.Score, testRAG.MinScore)
	}
}

func TestKnowledge_KeywordFallbackWithoutEmbedder(t *testing.T) {
	env := newTestEnv(t, false)
	env.Knowledge.Embedder = nil
	env.ingestDoc(t, "motors", "Motor starters", "Magnetic starters include overload relays.\n\nSoft starters reduce inrush current.")

	results, err := env.Knowledge.Search(context.Background(), "motors", "How do overload relays trip?", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Zero(t, results[0].Score)

	_, err = env.Knowledge.Search(context.Background(), "motors", "  ", 5)
	assert.ErrorIs(t, err, util.ErrEmptyPrompt)
}

func TestKnowledge_EmbeddingFailureMarksDocumentFailed(t *testing.T) {
	env := newTestEnv(t, false)
	env.Knowledge.Embedder = failingEmbedder{}

	doc, err := env.Knowledge.CreateDocument(CreateDocumentRequest{Topic: "motors", Title: "t", Content: "some text"})
	require.NoError(t, err)

	_, err = env.Knowledge.IngestDocument(context.Background(), doc.ID)
	require.Error(t, err)

	stored, err := env.Knowledge.Repo.FindDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentFailed, stored.Status)
	assert.Contains(t, stored.Error, "embedding service down")
}

func TestKnowledge_CreateValidation(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.Knowledge.CreateDocument(CreateDocumentRequest{Topic: "motors", Title: "t", Content: " \n "})
	assert.ErrorIs(t, err, util.ErrEmptyDocument)

	_, err = env.Knowledge.CreateDocument(CreateDocumentRequest{Topic: "hvac", Title: "t", Content: "x"})
	assert.ErrorIs(t, err, util.ErrTopicNotFound)

	_, err = env.Knowledge.IngestDocument(context.Background(), 9999)
	assert.ErrorIs(t, err, util.ErrDocumentNotFound)
}

func TestKnowledge_UploadStoresOriginal(t *testing.T) {
	env := newTestEnv(t, false)
	dir := t.TempDir()
	env.Knowledge.Storage = &StorageService{Provider: &LocalStorageProvider{Root: dir}}

	doc, err := env.Knowledge.UploadDocument(context.Background(), "transformers", "", "notes/xfmr-basics.md",
		strings.NewReader("# Transformers\n\nTurns ratio equals voltage ratio."))
	require.NoError(t, err)
	assert.Equal(t, "xfmr-basics", doc.Title)
	assert.Equal(t, model.DocumentPending, doc.Status)
	require.True(t, strings.HasPrefix(doc.StorageKey, "knowledge/transformers/"))
	assert.True(t, strings.HasSuffix(doc.StorageKey, ".md"))

	stored, err := os.ReadFile(filepath.Join(dir, doc.StorageKey))
	require.NoError(t, err)
	assert.Contains(t, string(stored), "Turns ratio")

	require.NoError(t, env.Knowledge.DeleteDocument(context.Background(), doc.ID))
	_, err = os.Stat(filepath.Join(dir, doc.StorageKey))
	assert.True(t, os.IsNotExist(err))

	_, err = env.Knowledge.UploadDocument(context.Background(), "transformers", "x", "diagram.png", strings.NewReader("\x89PNG"))
	assert.ErrorIs(t, err, util.ErrUnsupportedFile)
}

func TestKnowledge_UploadReadsFrontMatter(t *testing.T) {
	env := newTestEnv(t, false)
	env.Knowledge.Storage = nil

	content := "---\ntitle: Motor overloads\nsource_url: https://example.com/overloads\n---\n\nSize overloads at 125% of FLA.\n"
	doc, err := env.Knowledge.UploadDocument(context.Background(), "motors", "", "overloads.md", strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "Motor overloads", doc.Title)
	assert.Equal(t, "https://example.com/overloads", doc.SourceURL)
	assert.Equal(t, "Size overloads at 125% of FLA.\n", doc.Content)

	_, err = env.Knowledge.UploadDocument(context.Background(), "motors", "", "empty.md", strings.NewReader("---\ntitle: x\n---\n"))
	assert.ErrorIs(t, err, util.ErrEmptyDocument)
}

func TestKnowledge_ProcessPending(t *testing.T) {
	env := newTestEnv(t, false)
	for _, title := range []string{"a", "b", "c"} {
		_, err := env.Knowledge.CreateDocument(CreateDocumentRequest{Topic: "protection-devices", Title: title, Content: "GFCI trips at 5 mA for " + title})
		require.NoError(t, err)
	}

	n, err := env.Knowledge.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	docs, err := env.Knowledge.ListDocuments("protection-devices")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for _, d := range docs {
		assert.Equal(t, model.DocumentReady, d.Status)
		assert.Equal(t, 1, d.ChunkCount)
	}

	n, err = env.Knowledge.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestKnowledge_RunWorkerStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		goleak.IgnoreCurrent(),
	)

	env := newTestEnv(t, false)
	doc, err := env.Knowledge.CreateDocument(CreateDocumentRequest{Topic: "motors", Title: "w", Content: "Three phase motors."})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.Knowledge.RunWorker(ctx, 10*time.Millisecond)
		close(done)
	}()

	repo := repository.NewKnowledgeRepository(env.DB)
	require.Eventually(t, func() bool {
		d, err := repo.FindDocument(doc.ID)
		return err == nil && d.Status == model.DocumentReady
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestKnowledge_CancelledIngestStaysPending(t *testing.T) {
	env := newTestEnv(t, false)
	doc, err := env.Knowledge.CreateDocument(CreateDocumentRequest{Topic: "transformers", Title: "Delta-wye", Content: "Delta-wye banks shift phase by 30 degrees."})
	require.NoError(t, err)

	hash := env.Knowledge.Embedder
	stalled := newStalledEmbedder("stalled")
	env.Knowledge.Embedder = stalled

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_, _ = env.Knowledge.ProcessPending(ctx)
		close(done)
	}()

	select {
	case <-stalled.started:
	case <-time.After(2 * time.Second):
		t.Fatal("ingestion never reached the embedder")
	}
	cancel()
	<-done

	repo := repository.NewKnowledgeRepository(env.DB)
	stored, err := repo.FindDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentPending, stored.Status)
	assert.Empty(t, stored.Error)

	env.Knowledge.Embedder = hash
	n, err := env.Knowledge.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	stored, err = repo.FindDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentReady, stored.Status)
}

func TestKnowledge_EmbedTimeoutMarksFailed(t *testing.T) {
	env := newTestEnv(t, false)
	doc, err := env.Knowledge.CreateDocument(CreateDocumentRequest{Topic: "transformers", Title: "Buck-boost", Content: "Buck-boost transformers trim supply voltage."})
	require.NoError(t, err)
	env.Knowledge.Embedder = llm.WithEmbedTimeout(newStalledEmbedder("stalled"), 20*time.Millisecond)

	_, err = env.Knowledge.IngestDocument(context.Background(), doc.ID)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	stored, err := repository.NewKnowledgeRepository(env.DB).FindDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentFailed, stored.Status)
}

func TestKnowledge_IngestSkipsClaimedDocument(t *testing.T) {
	env := newTestEnv(t, false)
	doc, err := env.Knowledge.CreateDocument(CreateDocumentRequest{Topic: "motors", Title: "Overloads", Content: "Overload relays protect motor windings."})
	require.NoError(t, err)

	repo := repository.NewKnowledgeRepository(env.DB)
	claimed, err := repo.ClaimDocument(doc.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = env.Knowledge.IngestDocument(context.Background(), doc.ID)
	assert.ErrorIs(t, err, util.ErrDocumentBusy)

	chunks, err := repo.ChunksForTopic(doc.TopicID, env.Knowledge.Embedder.ModelID())
	require.NoError(t, err)
	assert.Empty(t, chunks)

	n, err := env.Knowledge.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestKnowledge_RetrieveGivesUpOnStalledEmbedder(t *testing.T) {
	env := newTestEnv(t, false)
	env.ingestDoc(t, "grounding-bonding", "Bonding", "The main bonding jumper connects the neutral to the enclosure.")
	topic, err := env.Topics.Resolve("grounding-bonding")
	require.NoError(t, err)

	env.Knowledge.Embedder = llm.WithEmbedTimeout(newStalledEmbedder(env.Embedder.ModelID()), 20*time.Millisecond)

	start := time.Now()
	_, err = env.Knowledge.Retrieve(context.Background(), topic.ID, "main bonding jumper", 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestKnowledge_UpdateSettings(t *testing.T) {
	env := newTestEnv(t, false)
	rag := testRAG
	rag.MinScore = 0.99
	env.Knowledge.UpdateSettings(rag)

	env.ingestDoc(t, "ohms-law", "Ohm", "Voltage equals current times resistance.")
	topic, err := env.Topics.Resolve("ohms-law")
	require.NoError(t, err)

	passages, err := env.Knowledge.Retrieve(context.Background(), topic.ID, "power factor correction capacitors", 3)
	require.NoError(t, err)
	assert.Empty(t, passages)
}
