package app

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/controller"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/service"
	"coursehub_backend/pkg/configwatcher"
	"coursehub_backend/pkg/database"
	"coursehub_backend/pkg/logger"
	"coursehub_backend/pkg/monitoring"
	"coursehub_backend/pkg/security"
	"coursehub_backend/pkg/tracing"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type repositories struct {
	user       *repository.UserRepository
	course     *repository.CourseRepository
	progress   *repository.ProgressRepository
	completion *repository.CompletionRepository
	submission *repository.SubmissionRepository
	dashboard  *repository.DashboardRepository
}

type services struct {
	auth            *service.AuthService
	user            *service.UserService
	adminPin        *service.AdminPinService
	storage         *service.StorageService
	course          *service.CourseService
	progress        *service.ProgressService
	completion      *service.CompletionService
	submission      *service.SubmissionService
	completionQueue service.CompletionQueue
	completionWork  *service.CompletionWorker
}

type controllers struct {
	auth       *controller.AuthController
	course     *controller.CourseController
	progress   *controller.ProgressController
	submission *controller.SubmissionController
	admin      *controller.AdminController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		course:     repository.NewCourseRepository(db),
		progress:   repository.NewProgressRepository(db),
		completion: repository.NewCompletionRepository(db),
		submission: repository.NewSubmissionRepository(db),
		dashboard:  repository.NewDashboardRepository(db),
	}
}

// newCompletionQueue progress.queue=redis 时多实例共享队列，否则使用进程内队列
func newCompletionQueue(cfg *config.Config, rdb *redis.Client) service.CompletionQueue {
	if cfg.Progress.Queue == config.QueueRedis && rdb != nil {
		return service.NewRedisCompletionQueue(rdb, cfg.Progress.QueueKey)
	}
	return service.NewMemoryCompletionQueue(cfg.Progress.QueueBuffer)
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	email := service.NewEmailSender(&cfg.Email)

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user, email)
	s.adminPin = service.NewAdminPinService(repos.user, cfg)
	s.course = service.NewCourseService(repos.course, repos.user, s.storage, cfg)

	s.completionQueue = newCompletionQueue(cfg, rdb)
	s.completion = service.NewCompletionService(repos.course, repos.progress, repos.completion)
	s.completionWork = service.NewCompletionWorker(
		s.completionQueue,
		s.completion,
		time.Duration(cfg.Progress.WorkerPollSeconds)*time.Second,
	)
	s.progress = service.NewProgressService(
		repos.user,
		repos.progress,
		repos.course,
		s.completionQueue,
		cfg.Progress.CompletionScope,
	)

	s.submission = service.NewSubmissionService(
		repos.submission,
		repos.course,
		repos.user,
		s.progress,
		s.storage,
		email,
	)

	return s
}

func (a *App) initControllers(s *services, repos *repositories) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		course:     controller.NewCourseController(s.course),
		progress:   controller.NewProgressController(s.progress),
		submission: controller.NewSubmissionController(s.submission),
		admin:      controller.NewAdminController(s.adminPin, s.user, s.course, s.completion, repos.dashboard),
		health:     controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.NewIPRateLimiter(cfg.RateLimit).Middleware(a.ctx.Done()))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		s.completionWork.Run(a.ctx)
	}()

	// 配置热更新：完成判定粒度
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.progress.SetCompletionScope(newCfg.Progress.CompletionScope)
		logger.Log.Info("completion scope applied", zap.String("scope", s.progress.CompletionScope()))
	})

	go func() {
		configFile := filepath.Join(a.Config.ConfigDir, "config.yaml")
		err := configwatcher.WatchConfig(a.ctx, configFile, func(newCfg *config.Config) {
			for _, callback := range a.configCallbacks {
				callback(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("config watcher disabled", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	if cfg.Progress.Queue == config.QueueRedis {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		app.Redis = rdb
	}

	app.ctx, app.cancel = context.WithCancel(context.Background())

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, app.Redis)
	controllers := app.initControllers(app.services, repos)

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(app.services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close 停止后台任务并释放连接
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.services != nil {
		if q, ok := a.services.completionQueue.(*service.MemoryCompletionQueue); ok {
			q.Close()
		}
	}
	a.wg.Wait()

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
