package controller

import (
	"cofq_backend/internal/service"
	"cofq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FlashcardController struct {
	FlashcardService *service.FlashcardService
}

func NewFlashcardController(flashcardService *service.FlashcardService) *FlashcardController {
	return &FlashcardController{FlashcardService: flashcardService}
}

// CreateFlashcard godoc
// @Summary 新建复习卡片
// @Tags 卡片
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateFlashcardRequest true "卡片内容"
// @Success 201 {object} util.Response{data=model.Flashcard} "创建成功"
// @Router /api/flashcards [post]
func (c *FlashcardController) CreateFlashcard(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateFlashcardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	card, err := c.FlashcardService.Create(claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, card)
}

// ListFlashcards godoc
// @Summary 我的卡片
// @Tags 卡片
// @Produce json
// @Security ApiKeyAuth
// @Param topic query string false "领域 slug"
// @Success 200 {object} util.Response{data=[]model.Flashcard} "成功"
// @Router /api/flashcards [get]
func (c *FlashcardController) ListFlashcards(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	cards, err := c.FlashcardService.List(claims.UserID, ctx.Query("topic"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cards)
}

// DueFlashcards godoc
// @Summary 到期待复习卡片
// @Tags 卡片
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量上限(1-100)"
// @Success 200 {object} util.Response{data=[]model.Flashcard} "成功"
// @Router /api/flashcards/due [get]
func (c *FlashcardController) DueFlashcards(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	limit := util.QueryInt(ctx, "limit", 20, 1, 100)
	cards, err := c.FlashcardService.Due(claims.UserID, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cards)
}

// ReviewFlashcard godoc
// @Summary 提交复习结果
// @Description 答对进入下一间隔，答错回到第一阶段
// @Tags 卡片
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "卡片ID"
// @Param body body service.ReviewFlashcardRequest true "是否答对"
// @Success 200 {object} util.Response{data=model.Flashcard} "成功"
// @Failure 404 {object} util.Response "卡片不存在"
// @Router /api/flashcards/{id}/review [post]
func (c *FlashcardController) ReviewFlashcard(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid flashcard id")
		return
	}

	var req service.ReviewFlashcardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	card, err := c.FlashcardService.Review(claims.UserID, id, *req.Correct)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, card)
}

// DeleteFlashcard godoc
// @Summary 删除卡片
// @Tags 卡片
// @Security ApiKeyAuth
// @Param id path int true "卡片ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/flashcards/{id} [delete]
func (c *FlashcardController) DeleteFlashcard(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid flashcard id")
		return
	}

	if err := c.FlashcardService.Delete(claims.UserID, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": id})
}
