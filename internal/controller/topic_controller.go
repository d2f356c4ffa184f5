package controller

import (
	"cofq_backend/internal/service"
	"cofq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TopicController struct {
	TopicService *service.TopicService
}

func NewTopicController(topicService *service.TopicService) *TopicController {
	return &TopicController{TopicService: topicService}
}

// ListTopics godoc
// @Summary 知识领域列表
// @Description 返回所有启用的 C of Q 知识领域
// @Tags 知识领域
// @Produce json
// @Success 200 {object} util.Response{data=[]model.Topic} "成功"
// @Router /api/topics [get]
func (c *TopicController) ListTopics(ctx *gin.Context) {
	topics, err := c.TopicService.List(true)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

// CreateTopic godoc
// @Summary 新建知识领域
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateTopicRequest true "领域信息"
// @Success 201 {object} util.Response{data=model.Topic} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "slug 已存在"
// @Router /api/admin/topics [post]
func (c *TopicController) CreateTopic(ctx *gin.Context) {
	var req service.CreateTopicRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	topic, err := c.TopicService.Create(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, topic)
}

// UpdateTopic godoc
// @Summary 修改知识领域
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "领域ID"
// @Param body body service.UpdateTopicRequest true "修改内容"
// @Success 200 {object} util.Response{data=model.Topic} "成功"
// @Failure 404 {object} util.Response "领域不存在"
// @Router /api/admin/topics/{id} [put]
func (c *TopicController) UpdateTopic(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid topic id")
		return
	}

	var req service.UpdateTopicRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	topic, err := c.TopicService.Update(id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topic)
}
