package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"studyplanner_backend/internal/config"
	"studyplanner_backend/internal/controller"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/pkg/database"
	"studyplanner_backend/pkg/logger"
	"studyplanner_backend/pkg/monitoring"
	"studyplanner_backend/pkg/security"
	"studyplanner_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	services  *services
	scheduler *gocron.Scheduler
}

type repositories struct {
	user     *repository.UserRepository
	subject  *repository.SubjectRepository
	progress *repository.ProgressRepository
	schedule *repository.ScheduleRepository
	session  *repository.StudySessionRepository
}

type services struct {
	auth        *service.AuthService
	user        *service.UserService
	content     *service.ContentService
	storage     *service.StorageService
	scheduler   *service.SchedulerService
	progress    *service.ProgressService
	streak      *service.StreakService
	leaderboard *service.LeaderboardService
	dashboard   *service.DashboardService
	locks       *service.ScheduleLockManager
}

type controllers struct {
	auth         *controller.AuthController
	user         *controller.UserController
	content      *controller.ContentController
	schedule     *controller.ScheduleController
	progress     *controller.ProgressController
	gamification *controller.GamificationController
	dashboard    *controller.DashboardController
	health       *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		subject:  repository.NewSubjectRepository(db),
		progress: repository.NewProgressRepository(db),
		schedule: repository.NewScheduleRepository(db),
		session:  repository.NewStudySessionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.locks = service.NewScheduleLockManager()
	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user, repos.subject)
	s.content = service.NewContentService(repos.subject, s.storage)
	s.scheduler = service.NewSchedulerService(
		repos.user,
		repos.subject,
		repos.progress,
		repos.schedule,
		s.locks,
		cfg.Scheduler.DefaultDays,
	)
	s.progress = service.NewProgressService(repos.user, repos.subject, repos.progress, repos.session)
	s.streak = service.NewStreakService(repos.user, repos.session, repos.progress)
	s.leaderboard = service.NewLeaderboardService(
		repos.user,
		repos.session,
		rdb,
		time.Duration(cfg.Scheduler.LeaderboardCacheSecs)*time.Second,
	)
	s.dashboard = service.NewDashboardService(repos.user, repos.schedule, repos.session)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		user:         controller.NewUserController(s.user, s.storage),
		content:      controller.NewContentController(s.content),
		schedule:     controller.NewScheduleController(s.scheduler),
		progress:     controller.NewProgressController(s.progress, s.streak),
		gamification: controller.NewGamificationController(s.streak, s.leaderboard),
		dashboard:    controller.NewDashboardController(s.dashboard),
		health:       controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 启动定时任务：每分钟清理过期排期锁，
// 每晚 23:55 批量结算当天有学习记录用户的连续打卡。
func (a *App) startBackgroundTasks(s *services) {
	sched := gocron.NewScheduler(time.Local)
	a.scheduler = sched

	sched.Every(1).Minute().Do(func() {
		if swept := s.locks.Sweep(); swept > 0 {
			logger.Log.Warn("swept stale schedule locks", zap.Int("count", swept))
		}
	})

	sched.Every(1).Day().At("23:55").Do(func() {
		if err := s.streak.EvaluateAll(); err != nil {
			logger.Log.Error("nightly streak evaluation error", zap.Error(err))
		}
	})

	sched.StartAsync()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.ForceMigrate || cfg.MigrateOnly {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migration completed")
		if cfg.MigrateOnly {
			os.Exit(0)
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("study-planner", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
