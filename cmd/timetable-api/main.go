package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Rareminds-eym/skillpassport-sub038/api/swagger"
	"github.com/Rareminds-eym/skillpassport-sub038/internal/handler"
	"github.com/Rareminds-eym/skillpassport-sub038/internal/middleware"
	"github.com/Rareminds-eym/skillpassport-sub038/internal/repository"
	"github.com/Rareminds-eym/skillpassport-sub038/internal/service"
	"github.com/Rareminds-eym/skillpassport-sub038/pkg/cache"
	"github.com/Rareminds-eym/skillpassport-sub038/pkg/config"
	"github.com/Rareminds-eym/skillpassport-sub038/pkg/database"
	"github.com/Rareminds-eym/skillpassport-sub038/pkg/logger"
	corsmiddleware "github.com/Rareminds-eym/skillpassport-sub038/pkg/middleware/cors"
	reqidmiddleware "github.com/Rareminds-eym/skillpassport-sub038/pkg/middleware/requestid"
)

// @title Timetable Allocation API
// @version 0.1.0
// @description School timetable allocation and conflict detection service
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.WorkloadTTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	validate := validator.New()

	timetableRepo := repository.NewTimetableRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	workload := service.NewWorkloadCalculator(cfg.Timetable)
	engine := service.NewConflictEngine(cfg.Timetable, workload)

	// One registry for both services: publishing and slot mutations on the
	// same timetable must share a critical section.
	locks := service.NewLockRegistry()

	timetableSvc := service.NewTimetableService(timetableRepo, slotRepo, catalogRepo, engine, locks, validate, logr)
	allocationSvc := service.NewAllocationService(
		slotRepo, timetableRepo, catalogRepo,
		engine, workload, service.NewRoundRobinStrategy(),
		cacheSvc, metricsSvc,
		cfg.Timetable, cfg.Cache,
		locks, validate, logr,
	)
	catalogSvc := service.NewCatalogService(catalogRepo, logr)

	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	allocationHandler := handler.NewAllocationHandler(allocationSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/timetables", timetableHandler.List)
		api.POST("/timetables", timetableHandler.Create)
		api.GET("/timetables/:id", timetableHandler.Get)
		api.POST("/timetables/:id/publish", timetableHandler.Publish)
		api.GET("/timetables/:id/conflicts", allocationHandler.ListConflicts)
		api.POST("/timetables/:id/slots", allocationHandler.AddSlot)
		api.POST("/timetables/:id/generate", allocationHandler.Generate)
		api.GET("/timetables/:id/teachers/:teacherId/slots", allocationHandler.GetTeacherSchedule)
		api.GET("/timetables/:id/teachers/:teacherId/workload", allocationHandler.GetWorkload)

		api.PUT("/slots/:id", allocationHandler.UpdateSlot)
		api.PATCH("/slots/:id/move", allocationHandler.MoveSlot)
		api.DELETE("/slots/:id", allocationHandler.DeleteSlot)

		api.GET("/teachers", catalogHandler.ListTeachers)
		api.GET("/teachers/:id", catalogHandler.GetTeacher)
		api.GET("/classes", catalogHandler.ListClasses)
		api.GET("/subjects", catalogHandler.ListSubjects)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
