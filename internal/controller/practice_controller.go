package controller

import (
	"cofq_backend/internal/service"
	"cofq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PracticeController struct {
	PracticeService *service.PracticeService
}

func NewPracticeController(practiceService *service.PracticeService) *PracticeController {
	return &PracticeController{PracticeService: practiceService}
}

// Practice godoc
// @Summary 提交练习问题
// @Description 按知识领域向导师模型提问，可选检索知识库，返回答案和引用
// @Tags 练习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.PracticeRequest true "练习请求"
// @Success 200 {object} util.Response{data=service.PracticeResult} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "userId 与令牌不一致"
// @Failure 404 {object} util.Response "知识领域不存在"
// @Failure 429 {object} util.Response "模型限流"
// @Failure 502 {object} util.Response "模型服务异常"
// @Failure 504 {object} util.Response "模型超时"
// @Router /api/practice [post]
func (c *PracticeController) Practice(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.PracticeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if req.UserID != nil && *req.UserID != claims.UserID {
		util.HandleError(ctx, util.ErrUserMismatch)
		return
	}

	result, err := c.PracticeService.Practice(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// History godoc
// @Summary 练习历史
// @Tags 练习
// @Produce json
// @Security ApiKeyAuth
// @Param topic query string false "领域 slug"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/practice/history [get]
func (c *PracticeController) History(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, limit := util.Pagination(ctx)
	result, err := c.PracticeService.History(claims.UserID, ctx.Query("topic"), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetAttempt godoc
// @Summary 练习记录详情
// @Tags 练习
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "记录ID"
// @Success 200 {object} util.Response{data=model.PracticeAttempt} "成功"
// @Failure 404 {object} util.Response "记录不存在"
// @Router /api/practice/history/{id} [get]
func (c *PracticeController) GetAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	attempt, err := c.PracticeService.GetAttempt(claims.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// DeleteAttempt godoc
// @Summary 删除练习记录
// @Tags 练习
// @Security ApiKeyAuth
// @Param id path int true "记录ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "记录不存在"
// @Router /api/practice/history/{id} [delete]
func (c *PracticeController) DeleteAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	if err := c.PracticeService.DeleteAttempt(claims.UserID, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": id})
}
