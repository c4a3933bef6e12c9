package app

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/internal/controller"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/service"
	"elearning_backend/pkg/configwatcher"
	"elearning_backend/pkg/database"
	"elearning_backend/pkg/eventbus"
	"elearning_backend/pkg/logger"
	"elearning_backend/pkg/monitoring"
	"elearning_backend/pkg/security"
	"elearning_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	tracer          *sdktrace.TracerProvider
	stopBackground  context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user           *repository.UserRepository
	course         *repository.CourseRepository
	quiz           *repository.QuizRepository
	testResult     *repository.TestResultRepository
	enrollment     *repository.EnrollmentRepository
	lessonProgress *repository.LessonProgressRepository
	progress       *repository.ProgressRepository
	certificate    *repository.CertificateRepository
	outbox         *repository.OutboxRepository
}

type services struct {
	course      *service.CourseService
	quiz        *service.QuizService
	progress    *service.ProgressService
	certificate *service.CertificateService
	outbox      *service.OutboxDispatcher
}

type controllers struct {
	course      *controller.CourseController
	quiz        *controller.QuizController
	progress    *controller.ProgressController
	certificate *controller.CertificateController
	health      *controller.HealthController
}

// RegisterConfigCallback is called with every config reloaded from disk.
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:           repository.NewUserRepository(db),
		course:         repository.NewCourseRepository(db),
		quiz:           repository.NewQuizRepository(db),
		testResult:     repository.NewTestResultRepository(db),
		enrollment:     repository.NewEnrollmentRepository(db),
		lessonProgress: repository.NewLessonProgressRepository(db),
		progress:       repository.NewProgressRepository(db),
		certificate:    repository.NewCertificateRepository(db),
		outbox:         repository.NewOutboxRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	var (
		cache     service.CertificateCache
		publisher eventbus.Publisher = eventbus.LogPublisher{}
	)
	if rdb != nil {
		ttl := time.Duration(cfg.Certificate.CacheTTLMinutes) * time.Minute
		cache = service.NewRedisCertificateCache(rdb, ttl)
		publisher = eventbus.NewRedisPublisher(rdb, cfg.Outbox.ChannelPrefix)
	}

	s.certificate = service.NewCertificateService(
		db,
		repos.certificate,
		repos.progress,
		repos.enrollment,
		repos.user,
		repos.course,
		repos.outbox,
		&cfg.Certificate,
		cache,
	)
	s.progress = service.NewProgressService(
		db,
		repos.course,
		repos.enrollment,
		repos.lessonProgress,
		repos.progress,
		repos.outbox,
		s.certificate,
	)
	s.quiz = service.NewQuizService(db, repos.quiz, repos.testResult, repos.outbox, s.progress, &cfg.Grading)
	s.course = service.NewCourseService(db, repos.course, repos.quiz)
	s.outbox = service.NewOutboxDispatcher(db, repos.outbox, publisher, &cfg.Outbox)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		course:      controller.NewCourseController(s.course),
		quiz:        controller.NewQuizController(s.quiz),
		progress:    controller.NewProgressController(s.progress),
		certificate: controller.NewCertificateController(s.certificate),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks runs the outbox dispatcher and the config watcher
// until the app shuts down.
func (a *App) startBackgroundTasks(s *services) {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopBackground = cancel

	go s.outbox.Run(ctx)

	a.RegisterConfigCallback(func(cfg *config.Config) {
		if err := s.certificate.SetBands(cfg.Certificate.Bands); err != nil {
			logger.Log.Error("Rejected reloaded grade bands", zap.Error(err))
		}
	})
	go func() {
		err := configwatcher.Watch(ctx, configDir, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Log.Info("Logger initialized successfully", zap.String("file", cfg.Log.File))

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("elearning-grading", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// wait for an interrupt, then give in-flight requests 5 seconds
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.stopBackground != nil {
		a.stopBackground()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
