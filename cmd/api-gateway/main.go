package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classnest/classnest-api/api/swagger"
	"github.com/classnest/classnest-api/internal/handler"
	"github.com/classnest/classnest-api/internal/mailer"
	"github.com/classnest/classnest-api/internal/middleware"
	"github.com/classnest/classnest-api/internal/oracle"
	"github.com/classnest/classnest-api/internal/repository"
	"github.com/classnest/classnest-api/internal/service"
	"github.com/classnest/classnest-api/pkg/cache"
	"github.com/classnest/classnest-api/pkg/config"
	"github.com/classnest/classnest-api/pkg/database"
	"github.com/classnest/classnest-api/pkg/logger"
	corsmiddleware "github.com/classnest/classnest-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classnest/classnest-api/pkg/middleware/requestid"
	"github.com/classnest/classnest-api/pkg/storage"
)

// @title ClassNest API
// @version 1.0.0
// @description Classroom, syllabus and learning-data platform
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	blobs, err := storage.NewLocalStorage(cfg.Storage.BaseDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init storage", "error", err)
	}

	var mail mailer.Mailer
	if cfg.Mail.Enabled {
		mail = mailer.NewSendgrid(cfg.Mail)
	} else {
		mail = mailer.NewConsole(logr)
	}

	oracleClient := oracle.NewClient(cfg.Oracle)

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	resultRepo := repository.NewTestResultRepository(db)
	assetRepo := repository.NewAssetRepository(db)

	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	authSvc := service.NewAuthService(userRepo, redisClient, mail, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		VerificationTTL:   cfg.Account.VerificationTTL,
	})
	classroomSvc := service.NewClassroomService(classroomRepo, profileRepo, userRepo, notificationSvc, notificationRepo, mail, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, classroomRepo, profileRepo, oracleClient, metricsSvc, nil, logr)
	resultSvc := service.NewTestResultService(resultRepo, subjectRepo, profileRepo, profileRepo, classroomRepo, notificationSvc, nil, logr)
	assetSvc := service.NewAssetService(assetRepo, blobs, profileRepo, classroomRepo, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, handler.Services{
		Auth:          authSvc,
		Classrooms:    classroomSvc,
		Subjects:      subjectSvc,
		Notifications: notificationSvc,
		TestResults:   resultSvc,
		Assets:        assetSvc,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
