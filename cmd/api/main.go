package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/shulecore/academic-api/api/swagger"
	"github.com/shulecore/academic-api/internal/handler"
	"github.com/shulecore/academic-api/internal/middleware"
	"github.com/shulecore/academic-api/internal/repository"
	"github.com/shulecore/academic-api/internal/service"
	"github.com/shulecore/academic-api/pkg/cache"
	"github.com/shulecore/academic-api/pkg/config"
	"github.com/shulecore/academic-api/pkg/database"
	"github.com/shulecore/academic-api/pkg/logger"
	corsmiddleware "github.com/shulecore/academic-api/pkg/middleware/cors"
	reqidmiddleware "github.com/shulecore/academic-api/pkg/middleware/requestid"
)

// @title Academic API
// @version 0.1.0
// @description Multi-tenant academic enrollment and number registry service
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	// Redis is optional. Catalog listings fall back to the database when
	// the cache is unavailable.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	sequenceRepo := repository.NewSequenceRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	classSubjectRepo := repository.NewClassSubjectRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	subjectEnrollmentRepo := repository.NewSubjectEnrollmentRepository(db)

	sequenceSvc := service.NewSequenceService(sequenceRepo, schoolRepo, logr, metricsSvc, service.SequenceServiceOptions{
		MaxBatchSize:  cfg.Sequences.MaxBatchSize,
		RetryAttempts: cfg.Sequences.RetryAttempts,
		RetryBackoff:  cfg.Sequences.RetryBackoff,
	})
	catalogSvc := service.NewCatalogService(classSubjectRepo, cacheRepo, logr, metricsSvc, cfg.Catalog.CacheTTL, cfg.Catalog.CacheEnabled && redisClient != nil)
	subjectEnrollmentSvc := service.NewSubjectEnrollmentService(subjectEnrollmentRepo, enrollmentRepo, catalogSvc, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, classRepo, yearRepo, schoolRepo, subjectEnrollmentSvc, validate, logr, metricsSvc)
	studentSvc := service.NewStudentService(studentRepo, sequenceSvc, validate, logr)

	studentHandler := handler.NewStudentHandler(studentSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	subjectEnrollmentHandler := handler.NewSubjectEnrollmentHandler(subjectEnrollmentSvc)
	classSubjectHandler := handler.NewClassSubjectHandler(catalogSvc)
	sequenceHandler := handler.NewSequenceHandler(sequenceSvc)

	tokenValidator := middleware.NewTokenValidator(cfg.JWT.Secret)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenValidator))
	api.Use(middleware.TenantScope())

	api.GET("/students", studentHandler.List)
	api.POST("/students", studentHandler.Create)
	api.GET("/students/:id", studentHandler.Get)

	api.GET("/enrollments", enrollmentHandler.List)
	api.POST("/enrollments", enrollmentHandler.Create)
	api.POST("/enrollments/promote", enrollmentHandler.Promote)
	api.POST("/enrollments/transfer", enrollmentHandler.Transfer)
	api.GET("/enrollments/:id", enrollmentHandler.Get)
	api.PUT("/enrollments/:id/status", enrollmentHandler.UpdateStatus)
	api.GET("/enrollments/:id/available-electives", subjectEnrollmentHandler.AvailableElectives)

	api.GET("/subject-enrollments", subjectEnrollmentHandler.List)
	api.POST("/subject-enrollments", subjectEnrollmentHandler.Enroll)
	api.POST("/subject-enrollments/bulk", subjectEnrollmentHandler.BulkEnroll)
	api.POST("/subject-enrollments/drop", subjectEnrollmentHandler.Drop)

	api.GET("/classes/:classId/subjects", classSubjectHandler.ListByClass)
	api.GET("/classes/:classId/subjects/core", classSubjectHandler.CoreSubjects)
	api.POST("/class-subjects", classSubjectHandler.CreateBinding)

	api.POST("/sequences/:kind/next", sequenceHandler.Next)
	api.GET("/sequences/:kind/peek", sequenceHandler.Peek)
	api.GET("/sequences/:kind/current", sequenceHandler.Current)
	api.PUT("/sequences/:kind/reset", sequenceHandler.Reset)
	api.POST("/sequences/:kind/batch", sequenceHandler.Batch)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
