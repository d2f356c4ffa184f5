package app

import (
	"cofq_backend/internal/config"
	"cofq_backend/internal/controller"
	"cofq_backend/internal/llm"
	"cofq_backend/internal/middleware"
	"cofq_backend/internal/repository"
	"cofq_backend/internal/service"
	"cofq_backend/pkg/cache"
	"cofq_backend/pkg/configwatcher"
	"cofq_backend/pkg/database"
	"cofq_backend/pkg/logger"
	"cofq_backend/pkg/monitoring"
	"cofq_backend/pkg/security"
	"cofq_backend/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Cache  *cache.AnswerCache

	services        *services
	apiLimiter      *security.RateLimiter
	llmLimiter      *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user      *repository.UserRepository
	topic     *repository.TopicRepository
	attempt   *repository.PracticeAttemptRepository
	question  *repository.QuestionRepository
	flashcard *repository.FlashcardRepository
	knowledge *repository.KnowledgeRepository
	llmLog    *repository.LLMLogRepository
	stats     *repository.StatsRepository
}

type services struct {
	auth      *service.AuthService
	storage   *service.StorageService
	topic     *service.TopicService
	knowledge *service.KnowledgeService
	practice  *service.PracticeService
	flashcard *service.FlashcardService
	question  *service.QuestionService
	stats     *service.StatsService
}

type controllers struct {
	auth      *controller.AuthController
	topic     *controller.TopicController
	practice  *controller.PracticeController
	question  *controller.QuestionController
	flashcard *controller.FlashcardController
	knowledge *controller.KnowledgeController
	stats     *controller.StatsController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:      repository.NewUserRepository(db),
		topic:     repository.NewTopicRepository(db),
		attempt:   repository.NewPracticeAttemptRepository(db),
		question:  repository.NewQuestionRepository(db),
		flashcard: repository.NewFlashcardRepository(db),
		knowledge: repository.NewKnowledgeRepository(db),
		llmLog:    repository.NewLLMLogRepository(db),
		stats:     repository.NewStatsRepository(db),
	}
}

func (a *App) initServices(ctx context.Context, repos *repositories, cfg *config.Config) (*services, error) {
	provider, err := llm.NewProvider(ctx, cfg.LLM, repos.llmLog)
	if err != nil {
		return nil, err
	}
	embedder, err := llm.NewEmbedder(ctx, cfg.Embedding, cfg.LLM.Timeout)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		logger.Log.Info("No embedding provider configured, retrieval falls back to keyword search")
	}

	s := &services{}
	s.storage = service.NewStorageService(ctx, cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.topic = service.NewTopicService(repos.topic)
	s.knowledge = service.NewKnowledgeService(repos.knowledge, s.topic, embedder, s.storage, cfg.RAG)
	s.practice = service.NewPracticeService(s.topic, repos.attempt, s.knowledge, provider, a.Cache, service.TuningFromConfig(cfg))
	s.flashcard = service.NewFlashcardService(repos.flashcard, s.topic)
	s.question = service.NewQuestionService(repos.question, s.topic, s.flashcard, s.knowledge, provider)
	s.stats = service.NewStatsService(repos.stats, repos.flashcard, repos.llmLog)

	// 配置热更新
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.practice.UpdateTuning(service.TuningFromConfig(newCfg))
		s.knowledge.UpdateSettings(newCfg.RAG)
	})

	logger.Log.Info("LLM provider ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", provider.ModelID()))
	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, modelID string) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		topic:     controller.NewTopicController(s.topic),
		practice:  controller.NewPracticeController(s.practice),
		question:  controller.NewQuestionController(s.question),
		flashcard: controller.NewFlashcardController(s.flashcard),
		knowledge: controller.NewKnowledgeController(s.knowledge),
		stats:     controller.NewStatsController(s.stats),
		health:    controller.NewHealthController(db, a.Cache, modelID, s.storage.Kind),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.RequestID())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	a.apiLimiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, window)
	router.Use(a.apiLimiter.Middleware(security.ByClientIP))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 初始化数据库、缓存、服务和路由，不启动监听
func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	// release 模式下只有显式指定 -migrate 才迁移
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	if cfg.RedisEnabled() {
		rdb, err := database.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			// 缓存不可用时降级为直接调用模型
			logger.Log.Warn("Redis unavailable, answer cache disabled", zap.Error(err))
		} else {
			app.Redis = rdb
		}
	}
	if cfg.Cache.Enabled {
		app.Cache = cache.NewAnswerCache(app.Redis, cfg.Cache.TTL)
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(ctx, repos, cfg)
	if err != nil {
		return nil, err
	}
	app.services = services

	if err := services.auth.EnsureAdmin(); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	controllers := app.initControllers(services, db, cfg.LLM.Model)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == gin.DebugMode {
		router.Use(gin.Logger())
	}
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app, nil
}

// startBackgroundTasks 后台任务随 ctx 取消退出
func (a *App) startBackgroundTasks(ctx context.Context) *errgroup.Group {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.services.knowledge.RunWorker(ctx, a.Config.RAG.IngestInterval)
		return nil
	})
	g.Go(func() error {
		a.apiLimiter.Run(ctx)
		return nil
	})
	if a.llmLimiter != nil {
		g.Go(func() error {
			a.llmLimiter.Run(ctx)
			return nil
		})
	}
	if a.Config.ConfigDir != "" {
		g.Go(func() error {
			if err := configwatcher.WatchConfig(ctx, a.Config.ConfigDir, a.applyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
			return nil
		})
	}
	return g
}

func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	background := a.startBackgroundTasks(ctx)

	// 启动服务器
	serverErr := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Log.Error("Server listen failed", zap.Error(err))
		stop()
	}
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	_ = background.Wait()
	a.Close(shutdownCtx)

	logger.Log.Info("Server exiting")
}

// Close 释放外部连接
func (a *App) Close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
