package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/api/handlers"
	"github.com/yourusername/sldl-jobs/api/middleware"
	"github.com/yourusername/sldl-jobs/internal/domain"
	"github.com/yourusername/sldl-jobs/internal/infrastructure"
	"github.com/yourusername/sldl-jobs/internal/metrics"
	"github.com/yourusername/sldl-jobs/pkg/logger"
)

// RouterDeps wires the HTTP surface. Jobs and Logger are required;
// routes for nil optional parts are not registered.
type RouterDeps struct {
	Jobs        handlers.JobService
	History     domain.HistoryRepository
	Events      *infrastructure.EventHub
	Metrics     *metrics.Collector
	MetricsPath string
	MultiLogger *logger.MultiLogger
	Logger      *zap.Logger
	LogsDir     string
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger, deps.MultiLogger))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(deps.Jobs)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		jobHandler := handlers.NewJobHandler(deps.Jobs, deps.Logger)
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobHandler.StartJob)
			jobs.GET("", jobHandler.ListJobs)
			jobs.DELETE("", jobHandler.ClearJobs)
			jobs.GET("/stats", jobHandler.GetStats)
			jobs.GET("/:id", jobHandler.GetJob)
			jobs.POST("/:id/cancel", jobHandler.CancelJob)
		}

		if deps.History != nil {
			historyHandler := handlers.NewHistoryHandler(deps.History, deps.Logger)
			history := v1.Group("/history")
			{
				history.GET("", historyHandler.ListHistory)
				history.GET("/:id", historyHandler.GetHistoryEntry)
			}
		}

		if deps.Events != nil {
			v1.GET("/events", gin.WrapF(deps.Events.ServeWS))
		}

		if deps.LogsDir != "" {
			logHandler := handlers.NewLogHandler(deps.LogsDir)
			logStream := handlers.NewLogWebSocketHandler(deps.LogsDir, deps.Logger)
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/stream", logStream.HandleWebSocket)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/search", logHandler.SearchLogs)
				logs.GET("/:category/export", logHandler.ExportLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.String(http.StatusNotFound, "not found")
	})

	return router
}
