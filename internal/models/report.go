package models

// SessionStatus represents the status of a report generation session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusAnalyzing SessionStatus = "analyzing"
	SessionStatusRendering SessionStatus = "rendering"
	SessionStatusBundling  SessionStatus = "bundling"
	SessionStatusComplete  SessionStatus = "complete"
	SessionStatusError     SessionStatus = "error"
)

// ReportSession tracks one report generation job from roster to bundle.
type ReportSession struct {
	ID               string        `json:"id"`
	FileID           string        `json:"fileId,omitempty"`
	Status           SessionStatus `json:"status"`
	Progress         float64       `json:"progress"` // 0-100
	StudentCount     int           `json:"studentCount,omitempty"`
	FallbackCount    int           `json:"fallbackCount,omitempty"`
	BundleName       string        `json:"bundleName,omitempty"`
	BundlePath       string        `json:"-"`
	ProcessingTimeMs int64         `json:"processingTimeMs,omitempty"`
	StartTime        int64         `json:"startTime,omitempty"` // Unix ms
	EndTime          int64         `json:"endTime,omitempty"`   // Unix ms
	Provider         string        `json:"provider,omitempty"`
	Errors           []ReportError `json:"errors,omitempty"`
}

// ReportError records a non-fatal problem hit while generating a report.
type ReportError struct {
	Student string `json:"student,omitempty"`
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
}

// NewReportSession creates a new ReportSession in pending status.
func NewReportSession(id, fileID string) *ReportSession {
	return &ReportSession{
		ID:       id,
		FileID:   fileID,
		Status:   SessionStatusPending,
		Progress: 0,
		Errors:   make([]ReportError, 0),
	}
}
