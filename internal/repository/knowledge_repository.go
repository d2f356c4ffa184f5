package repository

import (
	"cofq_backend/internal/model"
	"strings"

	"gorm.io/gorm"
)

type KnowledgeRepository struct {
	DB *gorm.DB
}

func NewKnowledgeRepository(db *gorm.DB) *KnowledgeRepository {
	return &KnowledgeRepository{DB: db}
}

func (r *KnowledgeRepository) CreateDocument(doc *model.KnowledgeDocument) error {
	return r.DB.Create(doc).Error
}

func (r *KnowledgeRepository) UpdateDocument(doc *model.KnowledgeDocument) error {
	return r.DB.Save(doc).Error
}

func (r *KnowledgeRepository) FindDocument(id uint) (*model.KnowledgeDocument, error) {
	var doc model.KnowledgeDocument
	if err := r.DB.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *KnowledgeRepository) ListDocuments(topicID uint) ([]model.KnowledgeDocument, error) {
	var docs []model.KnowledgeDocument
	query := r.DB.Model(&model.KnowledgeDocument{})
	if topicID != 0 {
		query = query.Where("topic_id = ?", topicID)
	}
	err := query.Order("id DESC").Find(&docs).Error
	return docs, err
}

// PendingDocuments 按创建顺序取待处理文档
func (r *KnowledgeRepository) PendingDocuments(limit int) ([]model.KnowledgeDocument, error) {
	var docs []model.KnowledgeDocument
	err := r.DB.Where("status = ?", model.DocumentPending).
		Order("id ASC").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

// DeleteDocument 连同切片一起删除
func (r *KnowledgeRepository) DeleteDocument(id uint) (bool, error) {
	var deleted bool
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.KnowledgeChunk{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.KnowledgeDocument{}, id)
		deleted = result.RowsAffected > 0
		return result.Error
	})
	return deleted, err
}

// ClaimDocument 把文档标记为 processing，已在处理中时返回 false
func (r *KnowledgeRepository) ClaimDocument(id uint) (bool, error) {
	result := r.DB.Model(&model.KnowledgeDocument{}).
		Where("id = ? AND status <> ?", id, model.DocumentProcessing).
		Update("status", model.DocumentProcessing)
	return result.RowsAffected == 1, result.Error
}

// ReleaseDocument 中断的入库放回待处理队列
func (r *KnowledgeRepository) ReleaseDocument(doc *model.KnowledgeDocument) error {
	doc.Status = model.DocumentPending
	return r.DB.Model(doc).Update("status", doc.Status).Error
}

// ResetProcessing 进程异常退出后遗留的 processing 文档重新排队
func (r *KnowledgeRepository) ResetProcessing() (int64, error) {
	result := r.DB.Model(&model.KnowledgeDocument{}).
		Where("status = ?", model.DocumentProcessing).
		Update("status", model.DocumentPending)
	return result.RowsAffected, result.Error
}

// ReplaceChunks 替换文档的全部切片并标记为 ready
func (r *KnowledgeRepository) ReplaceChunks(doc *model.KnowledgeDocument, chunks []model.KnowledgeChunk) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", doc.ID).Delete(&model.KnowledgeChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) > 0 {
			if err := tx.CreateInBatches(&chunks, 100).Error; err != nil {
				return err
			}
		}

		doc.Status = model.DocumentReady
		doc.Error = ""
		doc.ChunkCount = len(chunks)
		return tx.Model(doc).Updates(map[string]interface{}{
			"status":      doc.Status,
			"error":       doc.Error,
			"chunk_count": doc.ChunkCount,
		}).Error
	})
}

func (r *KnowledgeRepository) MarkFailed(doc *model.KnowledgeDocument, message string) error {
	doc.Status = model.DocumentFailed
	doc.Error = message
	return r.DB.Model(doc).Updates(map[string]interface{}{
		"status": doc.Status,
		"error":  doc.Error,
	}).Error
}

// ChunksForTopic 某领域下用指定模型生成向量的全部切片
func (r *KnowledgeRepository) ChunksForTopic(topicID uint, embeddingModel string) ([]model.KnowledgeChunk, error) {
	var chunks []model.KnowledgeChunk
	err := r.DB.Where("topic_id = ? AND embedding_model = ?", topicID, embeddingModel).
		Order("id ASC").
		Find(&chunks).Error
	return chunks, err
}

// SearchByKeywords 任一关键词命中即返回，按 id 排序
func (r *KnowledgeRepository) SearchByKeywords(topicID uint, keywords []string, limit int) ([]model.KnowledgeChunk, error) {
	var chunks []model.KnowledgeChunk
	if len(keywords) == 0 {
		return chunks, nil
	}

	conds := make([]string, 0, len(keywords))
	args := make([]interface{}, 0, len(keywords))
	for _, kw := range keywords {
		conds = append(conds, "LOWER(text) LIKE ?")
		args = append(args, "%"+strings.ToLower(kw)+"%")
	}

	err := r.DB.Where("topic_id = ?", topicID).
		Where(strings.Join(conds, " OR "), args...).
		Order("id ASC").
		Limit(limit).
		Find(&chunks).Error
	return chunks, err
}

// DocumentTitles document_id -> title
func (r *KnowledgeRepository) DocumentTitles(ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var docs []model.KnowledgeDocument
	if err := r.DB.Select("id", "title").Where("id IN ?", ids).Find(&docs).Error; err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID] = d.Title
	}
	return out, nil
}
