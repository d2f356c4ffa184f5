package app

import (
	"cofq_backend/docs"
	"cofq_backend/internal/config"
	"cofq_backend/internal/middleware"
	"cofq_backend/internal/model"
	"cofq_backend/internal/util"
	"cofq_backend/pkg/monitoring"
	"cofq_backend/pkg/security"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 本地存储的原始文档
	if a.services.storage.Kind == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	// 模型调用按用户限流
	var llmLimit gin.HandlerFunc = func(*gin.Context) {}
	if cfg.RateLimit.LLMPerMinute > 0 {
		a.llmLimiter = security.NewRateLimiter(cfg.RateLimit.LLMPerMinute, time.Minute)
		llmLimit = a.llmLimiter.Middleware(userKey)
	}

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c, llmLimit)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg, llmLimit)
}

func userKey(c *gin.Context) string {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return ""
	}
	return "user:" + strconv.FormatUint(uint64(claims.UserID), 10)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/topics", c.topic.ListTopics)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers, llmLimit gin.HandlerFunc) {
	rg.GET("/profile", c.auth.Profile)
	rg.GET("/stats", c.stats.Overview)
	rg.GET("/knowledge/search", c.knowledge.Search)

	// 练习
	rg.POST("/practice", llmLimit, c.practice.Practice)
	history := rg.Group("/practice/history")
	{
		history.GET("", c.practice.History)
		history.GET("/:id", c.practice.GetAttempt)
		history.DELETE("/:id", c.practice.DeleteAttempt)
	}

	// 题库
	topics := rg.Group("/topics/:slug/questions")
	{
		topics.GET("", c.question.ListQuestions)
		topics.GET("/random", c.question.RandomQuestions)
		topics.POST("/generate", middleware.RoleMiddleware(model.Admin), llmLimit, c.question.Generate)
	}
	rg.POST("/questions/:id/answer", c.question.Answer)

	// 复习卡片
	flashcards := rg.Group("/flashcards")
	{
		flashcards.POST("", c.flashcard.CreateFlashcard)
		flashcards.GET("", c.flashcard.ListFlashcards)
		flashcards.GET("/due", c.flashcard.DueFlashcards)
		flashcards.POST("/:id/review", c.flashcard.ReviewFlashcard)
		flashcards.DELETE("/:id", c.flashcard.DeleteFlashcard)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config, llmLimit gin.HandlerFunc) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/topics", c.topic.CreateTopic)
		admin.PUT("/topics/:id", c.topic.UpdateTopic)

		admin.POST("/questions", c.question.CreateQuestion)

		documents := admin.Group("/knowledge/documents")
		{
			documents.POST("", c.knowledge.CreateDocument)
			documents.POST("/upload", c.knowledge.UploadDocument)
			documents.GET("", c.knowledge.ListDocuments)
			documents.POST("/:id/ingest", llmLimit, c.knowledge.IngestDocument)
			documents.DELETE("/:id", c.knowledge.DeleteDocument)
		}

		admin.GET("/llm/usage", c.stats.LLMUsage)
	}
}
