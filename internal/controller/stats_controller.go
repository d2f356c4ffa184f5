package controller

import (
	"cofq_backend/internal/service"
	"cofq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StatsController struct {
	StatsService *service.StatsService
}

func NewStatsController(statsService *service.StatsService) *StatsController {
	return &StatsController{StatsService: statsService}
}

// Overview godoc
// @Summary 学习统计
// @Description 按领域统计练习次数、答题正确率和待复习卡片
// @Tags 统计
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.StatsOverview} "成功"
// @Router /api/stats [get]
func (c *StatsController) Overview(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	overview, err := c.StatsService.Overview(claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}

// LLMUsage godoc
// @Summary 模型调用用量
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param days query int false "统计天数(1-365)"
// @Success 200 {object} util.Response{data=service.UsageReport} "成功"
// @Router /api/admin/llm/usage [get]
func (c *StatsController) LLMUsage(ctx *gin.Context) {
	days := util.QueryInt(ctx, "days", 30, 1, 365)
	report, err := c.StatsService.LLMUsage(days)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
