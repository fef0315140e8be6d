// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/sahayak-analytics/backend/internal/config"
	"github.com/sahayak-analytics/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store     storage.Store
	ReportMgr ReportManager
	Config    *config.AppConfig
	Version   string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Upload    UploadHandler
	Report    ReportHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version),
		Upload:    NewUploadHandler(deps.Store, deps.Config),
		Report:    NewReportHandler(deps.Store, deps.ReportMgr),
		WebSocket: NewWebSocketHandler(deps.ReportMgr, deps.Config.Advanced.WebSocketMaxMessageSize),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Roster file routes
	fileGroup := e.Group("/api/files")
	fileGroup.POST("/upload", handlers.Upload.HandleUploadFile)
	fileGroup.POST("/upload/form", handlers.Upload.HandleUploadForm)
	fileGroup.GET("/recent", handlers.Upload.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Upload.HandleGetFile)
	fileGroup.DELETE("/:id", handlers.Upload.HandleDeleteFile)
	fileGroup.PUT("/:id", handlers.Upload.HandleRenameFile)

	// Report session routes
	reportGroup := e.Group("/api/reports")
	reportGroup.POST("", handlers.Report.HandleStartReport)
	reportGroup.POST("/demo", handlers.Report.HandleStartDemoReport)
	reportGroup.GET("/:sessionId", handlers.Report.HandleReportStatus)
	reportGroup.POST("/:sessionId/keepalive", handlers.Report.HandleSessionKeepAlive)
	reportGroup.GET("/:sessionId/progress", handlers.Report.HandleReportProgressStream)
	reportGroup.GET("/:sessionId/download", handlers.Report.HandleDownloadBundle)
	reportGroup.GET("/:sessionId/students", handlers.Report.HandleGetStudents)
	reportGroup.GET("/:sessionId/students/msgpack", handlers.Report.HandleGetStudentsMsgpack)
	reportGroup.GET("/:sessionId/insights", handlers.Report.HandleGetInsights)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/ws/reports/:sessionId", handlers.WebSocket.HandleReportProgress)
}
