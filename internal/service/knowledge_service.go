package service

import (
	"bytes"
	"cofq_backend/internal/config"
	"cofq_backend/internal/llm"
	"cofq_backend/internal/model"
	"cofq_backend/internal/repository"
	"cofq_backend/internal/util"
	"cofq_backend/pkg/logger"
	"cofq_backend/pkg/vector"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	embedBatchSize     = 16
	pendingBatchSize   = 10
	ingestConcurrency  = 2
	excerptLength      = 200
	maxSearchKeywords  = 8
	minKeywordRuneSize = 4
)

// Passage 检索得到的知识片段
type Passage struct {
	ChunkID    uint    `json:"chunkId"`
	DocumentID uint    `json:"documentId"`
	Title      string  `json:"title"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type CreateDocumentRequest struct {
	Topic     string `json:"topic" binding:"required"`
	Title     string `json:"title" binding:"required,max=255"`
	SourceURL string `json:"sourceUrl" binding:"omitempty,url,max=512"`
	Content   string `json:"content" binding:"required"`
}

type KnowledgeService struct {
	Repo     *repository.KnowledgeRepository
	Topics   *TopicService
	Embedder llm.Embedder
	Storage  *StorageService

	mu  sync.RWMutex
	rag config.RAGConfig
}

// NewKnowledgeService embedder 为 nil 时检索使用关键词匹配；storage 为 nil 时不支持上传
func NewKnowledgeService(repo *repository.KnowledgeRepository, topics *TopicService, embedder llm.Embedder, storage *StorageService, rag config.RAGConfig) *KnowledgeService {
	return &KnowledgeService{
		Repo:     repo,
		Topics:   topics,
		Embedder: embedder,
		Storage:  storage,
		rag:      rag,
	}
}

// UpdateSettings 配置热更新
func (s *KnowledgeService) UpdateSettings(rag config.RAGConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rag = rag
}

func (s *KnowledgeService) settings() config.RAGConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rag
}

func (s *KnowledgeService) CreateDocument(req CreateDocumentRequest) (*model.KnowledgeDocument, error) {
	topic, err := s.Topics.Resolve(req.Topic)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, util.ErrEmptyDocument
	}

	doc := &model.KnowledgeDocument{
		TopicID:   topic.ID,
		Title:     strings.TrimSpace(req.Title),
		SourceURL: req.SourceURL,
		Content:   req.Content,
		Status:    model.DocumentPending,
	}
	if err := s.Repo.CreateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UploadDocument 原文保存到存储，正文写入数据库等待入库
func (s *KnowledgeService) UploadDocument(ctx context.Context, topicSlug, title, filename string, reader io.Reader) (*model.KnowledgeDocument, error) {
	topic, err := s.Topics.Resolve(topicSlug)
	if err != nil {
		return nil, err
	}
	if !util.IsDocumentFile(filename) {
		return nil, fmt.Errorf("%w: only %s files are accepted", util.ErrUnsupportedFile, strings.Join(util.AllowedDocumentExtensions, ", "))
	}

	data, err := io.ReadAll(io.LimitReader(reader, util.MaxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > util.MaxDocumentBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", util.ErrUnsupportedFile, util.MaxDocumentBytes)
	}
	mimeType, err := util.ValidateMimeType(bytes.NewReader(data), []string{util.MimeText})
	if err != nil || !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: file is not UTF-8 text (%s)", util.ErrUnsupportedFile, mimeType)
	}
	fm, body, err := util.ParseFrontMatter(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrUnsupportedFile, err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return nil, util.ErrEmptyDocument
	}

	if title = strings.TrimSpace(title); title == "" {
		title = strings.TrimSpace(fm.Title)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	doc := &model.KnowledgeDocument{
		TopicID:   topic.ID,
		Title:     title,
		SourceURL: fm.SourceURL,
		Content:   string(body),
		Status:    model.DocumentPending,
	}

	if s.Storage != nil {
		key := model.DocumentStorageKey(topic.Slug, filename)
		url, err := s.Storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), mimeType)
		if err != nil {
			return nil, fmt.Errorf("store original: %w", err)
		}
		doc.StorageKey = key
		if doc.SourceURL == "" {
			doc.SourceURL = url
		}
	}

	if err := s.Repo.CreateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *KnowledgeService) ListDocuments(topicSlug string) ([]model.KnowledgeDocument, error) {
	var topicID uint
	if topicSlug != "" {
		topic, err := s.Topics.Lookup(topicSlug)
		if err != nil {
			return nil, err
		}
		topicID = topic.ID
	}
	return s.Repo.ListDocuments(topicID)
}

func (s *KnowledgeService) findDocument(id uint) (*model.KnowledgeDocument, error) {
	doc, err := s.Repo.FindDocument(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrDocumentNotFound
	}
	return doc, err
}

// IngestDocument 同步重建文档的切片
func (s *KnowledgeService) IngestDocument(ctx context.Context, id uint) (*model.KnowledgeDocument, error) {
	doc, err := s.findDocument(id)
	if err != nil {
		return nil, err
	}
	if err := s.ingest(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func (s *KnowledgeService) DeleteDocument(ctx context.Context, id uint) error {
	doc, err := s.findDocument(id)
	if err != nil {
		return err
	}
	if _, err := s.Repo.DeleteDocument(id); err != nil {
		return err
	}

	if doc.StorageKey != "" && s.Storage != nil {
		if err := s.Storage.Delete(ctx, doc.StorageKey); err != nil {
			logger.Log.Warn("Failed to delete stored document",
				zap.Uint("document_id", id),
				zap.String("key", doc.StorageKey),
				zap.Error(err))
		}
	}
	return nil
}

// ingest 先认领文档，同一文档不会被同步接口和后台任务同时处理
func (s *KnowledgeService) ingest(ctx context.Context, doc *model.KnowledgeDocument) error {
	claimed, err := s.Repo.ClaimDocument(doc.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return util.ErrDocumentBusy
	}
	doc.Status = model.DocumentProcessing

	start := time.Now()
	rag := s.settings()

	fail := func(err error) error {
		// 调用方取消（关停或断开）不是文档的问题，放回队列等下次处理
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			if relErr := s.Repo.ReleaseDocument(doc); relErr != nil {
				logger.Log.Error("Failed to requeue document", zap.Uint("document_id", doc.ID), zap.Error(relErr))
			}
			logger.Log.Info("Document ingestion interrupted", zap.Uint("document_id", doc.ID), zap.Error(err))
			return err
		}
		if markErr := s.Repo.MarkFailed(doc, err.Error()); markErr != nil {
			logger.Log.Error("Failed to mark document failed", zap.Uint("document_id", doc.ID), zap.Error(markErr))
		}
		logger.Log.Warn("Document ingestion failed", zap.Uint("document_id", doc.ID), zap.Error(err))
		return err
	}

	texts := ChunkText(doc.Content, rag.ChunkSize, rag.ChunkOverlap)
	if len(texts) == 0 {
		return fail(util.ErrEmptyDocument)
	}

	chunks := make([]model.KnowledgeChunk, len(texts))
	for i, t := range texts {
		chunks[i] = model.KnowledgeChunk{
			DocumentID: doc.ID,
			TopicID:    doc.TopicID,
			Ord:        i,
			Text:       t,
		}
	}

	if s.Embedder != nil {
		for startIdx := 0; startIdx < len(texts); startIdx += embedBatchSize {
			end := startIdx + embedBatchSize
			if end > len(texts) {
				end = len(texts)
			}
			vecs, err := s.Embedder.Embed(ctx, texts[startIdx:end])
			if err != nil {
				return fail(fmt.Errorf("embedding chunks: %w", err))
			}
			if len(vecs) != end-startIdx {
				return fail(fmt.Errorf("embedding chunks: got %d vectors for %d texts", len(vecs), end-startIdx))
			}
			for i, v := range vecs {
				chunks[startIdx+i].Embedding = vector.Encode(v)
				chunks[startIdx+i].EmbeddingModel = s.Embedder.ModelID()
			}
		}
	}

	if err := s.Repo.ReplaceChunks(doc, chunks); err != nil {
		return fail(err)
	}

	logger.Log.Info("Document ingested",
		zap.Uint("document_id", doc.ID),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// ProcessPending 并发处理待入库文档，返回处理的数量
func (s *KnowledgeService) ProcessPending(ctx context.Context) (int, error) {
	docs, err := s.Repo.PendingDocuments(pendingBatchSize)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)
	for i := range docs {
		doc := &docs[i]
		g.Go(func() error {
			// 单个文档失败已记录在文档上，不中断其他文档；被同步接口占用的直接跳过
			_ = s.ingest(gctx, doc)
			return nil
		})
	}
	return len(docs), g.Wait()
}

// RunWorker 定时处理待入库文档，ctx 取消后返回
func (s *KnowledgeService) RunWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if n, err := s.Repo.ResetProcessing(); err != nil {
		logger.Log.Error("Failed to requeue interrupted documents", zap.Error(err))
	} else if n > 0 {
		logger.Log.Info("Requeued interrupted documents", zap.Int64("count", n))
	}

	logger.Log.Info("Knowledge ingestion worker started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Knowledge ingestion worker stopped")
			return
		case <-ticker.C:
			n, err := s.ProcessPending(ctx)
			if err != nil {
				logger.Log.Error("Processing pending documents failed", zap.Error(err))
			} else if n > 0 {
				logger.Log.Info("Processed pending documents", zap.Int("count", n))
			}
		}
	}
}

// Retrieve 检索某领域下与 query 最相关的片段。配置了 embedder 时按余弦相似度排序，
// 否则（或该领域没有同模型的向量）按关键词匹配
func (s *KnowledgeService) Retrieve(ctx context.Context, topicID uint, query string, k int) ([]Passage, error) {
	rag := s.settings()
	if k <= 0 {
		k = rag.TopK
	}

	if s.Embedder != nil {
		chunks, err := s.Repo.ChunksForTopic(topicID, s.Embedder.ModelID())
		if err != nil {
			return nil, err
		}
		if len(chunks) > 0 {
			return s.vectorSearch(ctx, chunks, query, k, rag.MinScore)
		}
	}

	chunks, err := s.Repo.SearchByKeywords(topicID, keywords(query), k)
	if err != nil {
		return nil, err
	}
	return s.toPassages(chunks, nil)
}

func (s *KnowledgeService) vectorSearch(ctx context.Context, chunks []model.KnowledgeChunk, query string, k int, minScore float64) ([]Passage, error) {
	vecs, err := s.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors", len(vecs))
	}
	q := vecs[0]

	byID := make(map[uint]model.KnowledgeChunk, len(chunks))
	scored := make([]vector.Scored, 0, len(chunks))
	for _, c := range chunks {
		v, err := vector.Decode(c.Embedding)
		if err != nil {
			continue
		}
		score, err := vector.Cosine(q, v)
		if err != nil {
			continue
		}
		byID[c.ID] = c
		scored = append(scored, vector.Scored{ID: c.ID, Score: score})
	}

	top := vector.TopK(scored, k, minScore)
	picked := make([]model.KnowledgeChunk, len(top))
	scores := make(map[uint]float64, len(top))
	for i, t := range top {
		picked[i] = byID[t.ID]
		scores[t.ID] = t.Score
	}
	return s.toPassages(picked, scores)
}

func (s *KnowledgeService) toPassages(chunks []model.KnowledgeChunk, scores map[uint]float64) ([]Passage, error) {
	docIDs := make([]uint, 0, len(chunks))
	seen := map[uint]bool{}
	for _, c := range chunks {
		if !seen[c.DocumentID] {
			seen[c.DocumentID] = true
			docIDs = append(docIDs, c.DocumentID)
		}
	}
	titles, err := s.Repo.DocumentTitles(docIDs)
	if err != nil {
		return nil, err
	}

	passages := make([]Passage, len(chunks))
	for i, c := range chunks {
		passages[i] = Passage{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Title:      titles[c.DocumentID],
			Text:       c.Text,
			Score:      scores[c.ID],
		}
	}
	return passages, nil
}

// Search 供接口直接检索
func (s *KnowledgeService) Search(ctx context.Context, topicSlug, query string, k int) ([]Passage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, util.ErrEmptyPrompt
	}
	topic, err := s.Topics.Resolve(topicSlug)
	if err != nil {
		return nil, err
	}
	return s.Retrieve(ctx, topic.ID, query, k)
}

var stopWords = map[string]bool{
	"what": true, "which": true, "when": true, "where": true, "does": true, "with": true,
	"that": true, "this": true, "from": true, "have": true, "there": true, "their": true,
	"would": true, "should": true, "could": true, "about": true, "into": true, "your": true,
	"much": true, "many": true, "required": true, "explain": true,
}

// keywords 提取关键词，用于没有向量时的 LIKE 检索
func keywords(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	var out []string
	seen := map[string]bool{}
	for _, w := range words {
		w = strings.Trim(w, "-")
		if utf8.RuneCountInString(w) < minKeywordRuneSize || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == maxSearchKeywords {
			break
		}
	}
	return out
}
