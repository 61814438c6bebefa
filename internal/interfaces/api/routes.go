package api

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"networth/internal/application/port"
	"networth/internal/application/service"
	"networth/internal/application/usecase/refresh"
	"networth/internal/domain/model"
)

// Refresher is the orchestrator surface the API drives.
type Refresher interface {
	Refresh(ctx context.Context) (*model.Snapshot, error)
	Status() refresh.Status
}

type Deps struct {
	Snapshots port.SnapshotRepository
	Holdings  *service.HoldingService
	Export    *service.ExportService
	Refresher Refresher
	// ExportDir receives export files before they are streamed.
	ExportDir    string
	AllowOrigins []string
	Metrics      bool
}

func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	config := cors.DefaultConfig()
	if len(deps.AllowOrigins) > 0 {
		config.AllowOrigins = deps.AllowOrigins
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(config))

	snapshots := NewSnapshotHandler(deps.Snapshots, deps.Export, deps.ExportDir)
	holdings := NewHoldingHandler(deps.Holdings)
	refreshes := NewRefreshHandler(deps.Refresher)

	api := router.Group("/api")
	{
		snaps := api.Group("/snapshots")
		{
			snaps.GET("", snapshots.History)
			snaps.GET("/latest", snapshots.Latest)
		}
		api.GET("/export", snapshots.Export)

		api.POST("/refresh", refreshes.Trigger)
		api.GET("/refresh/status", refreshes.Status)

		h := api.Group("/holdings")
		{
			h.GET("", holdings.List)
			h.POST("", holdings.Add)
			h.GET("/:id", holdings.Get)
			h.PUT("/:id", holdings.Edit)
			h.DELETE("/:id", holdings.Archive)
		}
	}

	if deps.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}
