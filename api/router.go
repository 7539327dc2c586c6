package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/yle-dl-go/api/handlers"
	"github.com/yourusername/yle-dl-go/api/middleware"
	"github.com/yourusername/yle-dl-go/internal/app"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	queueMgr *app.QueueManager,
	downloadMgr *app.DownloadManager,
	mode string,
	log *zap.Logger,
) *gin.Engine {
	// Set Gin mode
	if mode == gin.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(queueMgr, downloadMgr)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		resolveHandler := handlers.NewResolveHandler(downloadMgr, log)
		v1.GET("/resolve", resolveHandler.Resolve)

		downloadHandler := handlers.NewDownloadHandler(queueMgr, downloadMgr, log)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/:id", downloadHandler.GetDownload)
		}

		history := v1.Group("/history")
		{
			history.GET("", downloadHandler.ListHistory)
			history.GET("/stats", downloadHandler.GetStats)
			history.GET("/:id", downloadHandler.GetHistory)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "not found"})
	})

	return router
}
