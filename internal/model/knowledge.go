package model

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentReady      DocumentStatus = "ready"
	DocumentFailed     DocumentStatus = "failed"
)

// DocumentStorageKey 原始文件在对象存储中的路径：knowledge/<topic>/<uuid><ext>
func DocumentStorageKey(topicSlug, filename string) string {
	return "knowledge/" + topicSlug + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

// KnowledgeDocument 知识库原始资料（规范条文、讲义等）
type KnowledgeDocument struct {
	BaseModel
	TopicID    uint           `gorm:"index;not null" json:"topicId"`
	Title      string         `gorm:"size:255;not null" json:"title"`
	SourceURL  string         `gorm:"size:512" json:"sourceUrl"`
	StorageKey string         `gorm:"size:255" json:"storageKey"`
	Content    string         `gorm:"type:longtext" json:"-"`
	Status     DocumentStatus `gorm:"size:10;index;default:'pending'" json:"status"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	ChunkCount int            `json:"chunkCount"`
}

func (KnowledgeDocument) TableName() string {
	return "knowledge_documents"
}

// KnowledgeChunk 切分后的片段，Embedding 为小端序 float32 数组
type KnowledgeChunk struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID     uint      `gorm:"index;not null" json:"documentId"`
	TopicID        uint      `gorm:"index;not null" json:"topicId"`
	Ord            int       `json:"ord"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	Embedding      []byte    `json:"-"`
	EmbeddingModel string    `gorm:"size:100;index" json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (KnowledgeChunk) TableName() string {
	return "knowledge_chunks"
}
