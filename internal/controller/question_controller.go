package controller

import (
	"cofq_backend/internal/model"
	"cofq_backend/internal/service"
	"cofq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QuestionService *service.QuestionService
}

func NewQuestionController(questionService *service.QuestionService) *QuestionController {
	return &QuestionController{QuestionService: questionService}
}

// Generate godoc
// @Summary 生成练习题
// @Description 调用模型为领域生成选择题，校验并去重后入库
// @Tags 题库
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param slug path string true "领域 slug"
// @Param body body service.GenerateQuestionsRequest true "生成参数"
// @Success 201 {object} util.Response{data=[]model.PracticeQuestion} "创建成功"
// @Failure 404 {object} util.Response "领域不存在"
// @Failure 502 {object} util.Response "模型服务异常"
// @Router /api/topics/{slug}/questions/generate [post]
func (c *QuestionController) Generate(ctx *gin.Context) {
	var req service.GenerateQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	questions, err := c.QuestionService.Generate(ctx.Request.Context(), ctx.Param("slug"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, questions)
}

// CreateQuestion godoc
// @Summary 手动录入练习题
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateQuestionRequest true "题目"
// @Success 201 {object} util.Response{data=model.PracticeQuestion} "创建成功"
// @Failure 400 {object} util.Response "题目不合法"
// @Router /api/admin/questions [post]
func (c *QuestionController) CreateQuestion(ctx *gin.Context) {
	var req service.CreateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuestionService.CreateManual(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// ListQuestions godoc
// @Summary 领域题目列表
// @Description 不返回正确答案
// @Tags 题库
// @Produce json
// @Security ApiKeyAuth
// @Param slug path string true "领域 slug"
// @Param difficulty query string false "easy|medium|hard"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/topics/{slug}/questions [get]
func (c *QuestionController) ListQuestions(ctx *gin.Context) {
	difficulty := model.Difficulty(ctx.Query("difficulty"))
	if difficulty != "" && !difficulty.Valid() {
		util.BadRequest(ctx, "difficulty must be easy, medium or hard")
		return
	}

	page, limit := util.Pagination(ctx)
	result, err := c.QuestionService.List(ctx.Param("slug"), difficulty, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// RandomQuestions godoc
// @Summary 随机抽题
// @Tags 题库
// @Produce json
// @Security ApiKeyAuth
// @Param slug path string true "领域 slug"
// @Param count query int false "题目数量(1-20)"
// @Success 200 {object} util.Response{data=[]model.PracticeQuestion} "成功"
// @Router /api/topics/{slug}/questions/random [get]
func (c *QuestionController) RandomQuestions(ctx *gin.Context) {
	count := util.QueryInt(ctx, "count", 5, 1, 20)

	questions, err := c.QuestionService.Random(ctx.Param("slug"), count)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// Answer godoc
// @Summary 作答
// @Description 判分并记录作答，答错时为该题生成一张复习卡片
// @Tags 题库
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Param body body service.AnswerRequest true "所选选项"
// @Success 200 {object} util.Response{data=service.AnswerResult} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/questions/{id}/answer [post]
func (c *QuestionController) Answer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	var req service.AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuestionService.Answer(claims.UserID, id, *req.ChoiceIndex)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
