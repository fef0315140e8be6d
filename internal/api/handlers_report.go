// handlers_report.go - Report generation session handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sahayak-analytics/backend/internal/analytics"
	"github.com/sahayak-analytics/backend/internal/models"
	"github.com/sahayak-analytics/backend/internal/storage"
)

// ReportHandlerImpl implements the ReportHandler interface
type ReportHandlerImpl struct {
	store     storage.Store
	reportMgr ReportManager
}

// NewReportHandler creates a new report handler instance
func NewReportHandler(store storage.Store, reportMgr ReportManager) ReportHandler {
	return &ReportHandlerImpl{
		store:     store,
		reportMgr: reportMgr,
	}
}

// HandleStartReport starts report generation for an uploaded roster file
func (h *ReportHandlerImpl) HandleStartReport(c echo.Context) error {
	var req startReportRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.FileID == "" {
		return NewValidationError("fileId")
	}

	if _, err := h.store.Get(req.FileID); err != nil {
		return NewNotFoundError("file", req.FileID)
	}

	sess, err := h.reportMgr.StartReport(req.FileID)
	if err != nil {
		return NewInternalError("failed to start report session", err)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleStartDemoReport starts report generation from the built-in demo roster
func (h *ReportHandlerImpl) HandleStartDemoReport(c echo.Context) error {
	sess, err := h.reportMgr.StartDemoReport()
	if err != nil {
		return NewInternalError("failed to start demo report", err)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleReportStatus returns the current status of a report session
func (h *ReportHandlerImpl) HandleReportStatus(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.reportMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.reportMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *ReportHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.reportMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleReportProgressStream streams generation progress via SSE
func (h *ReportHandlerImpl) HandleReportProgressStream(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sess, ok := h.reportMgr.GetSession(id)
	if !ok {
		h.sendSSEError(c, "session not found")
		return nil
	}

	// Send initial status
	h.sendSSEData(c, sess)

	// Stream updates until complete or error
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			sess, ok := h.reportMgr.GetSession(id)
			if !ok {
				h.sendSSEError(c, "session not found")
				return nil
			}

			h.sendSSEData(c, sess)

			if sess.Status == models.SessionStatusComplete ||
				sess.Status == models.SessionStatusError {
				return nil
			}

		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil

		case <-c.Request().Context().Done():
			return nil
		}
	}
}

// HandleDownloadBundle sends the finished report ZIP as an attachment
func (h *ReportHandlerImpl) HandleDownloadBundle(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.reportMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	if sess.Status != models.SessionStatusComplete {
		return NewConflictError("report is not complete yet")
	}

	path, name, ok := h.reportMgr.BundlePath(id)
	if !ok {
		return NewNotFoundError("bundle", id)
	}

	h.reportMgr.TouchSession(id)

	return c.Attachment(path, name)
}

// HandleGetStudents returns the completed per-student reports as JSON
func (h *ReportHandlerImpl) HandleGetStudents(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	reports, ok := h.reportMgr.StudentReports(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	h.reportMgr.TouchSession(id)

	return c.JSON(http.StatusOK, studentsResponse{
		Students: reports,
		Total:    len(reports),
	})
}

// HandleGetStudentsMsgpack returns the per-student reports in MessagePack format
func (h *ReportHandlerImpl) HandleGetStudentsMsgpack(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	data, err := h.reportMgr.StudentReportsMsgpack(id)
	if err != nil {
		return NewNotFoundError("session", id)
	}

	h.reportMgr.TouchSession(id)

	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}

// HandleGetInsights returns the class-wide strategic insights and
// multi-grade recommendations
func (h *ReportHandlerImpl) HandleGetInsights(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	insights, recommendations, ok := h.reportMgr.ClassInsights(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	h.reportMgr.TouchSession(id)

	return c.JSON(http.StatusOK, insightsResponse{
		Insights:        insights,
		Recommendations: recommendations,
	})
}

// Request/Response types

type startReportRequest struct {
	FileID string `json:"fileId"`
}

type studentsResponse struct {
	Students []*models.StudentReport `json:"students"`
	Total    int                     `json:"total"`
}

type insightsResponse struct {
	Insights        []analytics.Insight `json:"insights"`
	Recommendations []string            `json:"recommendations"`
}

// Helper methods

func (h *ReportHandlerImpl) sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func (h *ReportHandlerImpl) sendSSEError(c echo.Context, message string) {
	h.sendSSEData(c, map[string]string{"error": message})
}
