package controller

import (
	"cofq_backend/internal/util"
	"cofq_backend/pkg/cache"
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthController struct {
	DB      *gorm.DB
	Cache   *cache.AnswerCache
	Model   string
	Storage string
}

func NewHealthController(db *gorm.DB, answerCache *cache.AnswerCache, modelID, storageKind string) *HealthController {
	return &HealthController{DB: db, Cache: answerCache, Model: modelID, Storage: storageKind}
}

// @Summary 健康检查
// @Description 检查数据库连接并报告缓存状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response "数据库不可用"
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		util.ServiceUnavailable(ctx, gin.H{
			"status": "degraded",
			"components": gin.H{
				"database": "down",
			},
		})
		return
	}

	cacheState := "disabled"
	if c.Cache.Enabled() {
		cacheState = "up"
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"model":  c.Model,
		"components": gin.H{
			"database": "up",
			"cache":    cacheState,
			"storage":  c.Storage,
		},
		"cacheStats": c.Cache.Stats(),
	})
}
