// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/sahayak-analytics/backend/internal/analytics"
	"github.com/sahayak-analytics/backend/internal/models"
)

// UploadHandler handles roster file upload operations
type UploadHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadForm(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
}

// ReportHandler handles report generation session operations
type ReportHandler interface {
	HandleStartReport(c echo.Context) error
	HandleStartDemoReport(c echo.Context) error
	HandleReportStatus(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleReportProgressStream(c echo.Context) error
	HandleDownloadBundle(c echo.Context) error
	HandleGetStudents(c echo.Context) error
	HandleGetStudentsMsgpack(c echo.Context) error
	HandleGetInsights(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// ReportManager defines the interface for report session management.
// This allows mocking in tests.
type ReportManager interface {
	StartReport(fileID string) (*models.ReportSession, error)
	StartDemoReport() (*models.ReportSession, error)
	GetSession(id string) (*models.ReportSession, bool)
	TouchSession(id string) bool
	StudentReports(id string) ([]*models.StudentReport, bool)
	StudentReportsMsgpack(id string) ([]byte, error)
	ClassInsights(id string) ([]analytics.Insight, []string, bool)
	BundlePath(id string) (path, name string, ok bool)
}
