package controller

import (
	"cofq_backend/internal/service"
	"cofq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type KnowledgeController struct {
	KnowledgeService *service.KnowledgeService
}

func NewKnowledgeController(knowledgeService *service.KnowledgeService) *KnowledgeController {
	return &KnowledgeController{KnowledgeService: knowledgeService}
}

// CreateDocument godoc
// @Summary 新增知识文档
// @Description 文档进入待处理状态，由后台任务或手动触发切片入库
// @Tags 知识库
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateDocumentRequest true "文档内容"
// @Success 201 {object} util.Response{data=model.KnowledgeDocument} "创建成功"
// @Router /api/admin/knowledge/documents [post]
func (c *KnowledgeController) CreateDocument(ctx *gin.Context) {
	var req service.CreateDocumentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	doc, err := c.KnowledgeService.CreateDocument(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, doc)
}

// UploadDocument godoc
// @Summary 上传知识文档
// @Description 仅接受 UTF-8 的 .txt/.md 文件，原文件保存到存储服务
// @Tags 知识库
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param topic formData string true "领域 slug"
// @Param title formData string false "标题，默认取文件名"
// @Param file formData file true "文档文件"
// @Success 201 {object} util.Response{data=model.KnowledgeDocument} "创建成功"
// @Failure 400 {object} util.Response "文件不合法"
// @Router /api/admin/knowledge/documents/upload [post]
func (c *KnowledgeController) UploadDocument(ctx *gin.Context) {
	topic := ctx.PostForm("topic")
	if topic == "" {
		util.BadRequest(ctx, "topic is required")
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if fileHeader.Size > util.MaxDocumentBytes {
		util.BadRequest(ctx, "file is too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	doc, err := c.KnowledgeService.UploadDocument(ctx.Request.Context(), topic, ctx.PostForm("title"), fileHeader.Filename, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, doc)
}

// ListDocuments godoc
// @Summary 知识文档列表
// @Tags 知识库
// @Produce json
// @Security ApiKeyAuth
// @Param topic query string false "领域 slug"
// @Success 200 {object} util.Response{data=[]model.KnowledgeDocument} "成功"
// @Router /api/admin/knowledge/documents [get]
func (c *KnowledgeController) ListDocuments(ctx *gin.Context) {
	docs, err := c.KnowledgeService.ListDocuments(ctx.Query("topic"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, docs)
}

// IngestDocument godoc
// @Summary 立即切片入库
// @Tags 知识库
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "文档ID"
// @Success 200 {object} util.Response{data=model.KnowledgeDocument} "成功"
// @Failure 404 {object} util.Response "文档不存在"
// @Failure 409 {object} util.Response "文档正在入库"
// @Router /api/admin/knowledge/documents/{id}/ingest [post]
func (c *KnowledgeController) IngestDocument(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid document id")
		return
	}

	doc, err := c.KnowledgeService.IngestDocument(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, doc)
}

// DeleteDocument godoc
// @Summary 删除知识文档
// @Tags 知识库
// @Security ApiKeyAuth
// @Param id path int true "文档ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/knowledge/documents/{id} [delete]
func (c *KnowledgeController) DeleteDocument(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid document id")
		return
	}

	if err := c.KnowledgeService.DeleteDocument(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": id})
}

// Search godoc
// @Summary 检索知识库
// @Tags 知识库
// @Produce json
// @Security ApiKeyAuth
// @Param q query string true "检索内容"
// @Param topic query string true "领域 slug"
// @Param k query int false "返回数量(1-20)"
// @Success 200 {object} util.Response{data=[]service.Passage} "成功"
// @Router /api/knowledge/search [get]
func (c *KnowledgeController) Search(ctx *gin.Context) {
	topic := ctx.Query("topic")
	if topic == "" {
		util.BadRequest(ctx, "topic is required")
		return
	}

	k := util.QueryInt(ctx, "k", 5, 1, 20)
	passages, err := c.KnowledgeService.Search(ctx.Request.Context(), topic, ctx.Query("q"), k)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if passages == nil {
		passages = []service.Passage{}
	}
	util.Success(ctx, passages)
}
