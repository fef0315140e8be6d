// Package report orchestrates report generation sessions: roster parsing,
// per-student analysis, chart rendering, PDF assembly and ZIP bundling.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sahayak-analytics/backend/internal/analysis"
	"github.com/sahayak-analytics/backend/internal/analytics"
	"github.com/sahayak-analytics/backend/internal/charts"
	"github.com/sahayak-analytics/backend/internal/config"
	"github.com/sahayak-analytics/backend/internal/demo"
	"github.com/sahayak-analytics/backend/internal/models"
	"github.com/sahayak-analytics/backend/internal/pdf"
	"github.com/sahayak-analytics/backend/internal/roster"
	"github.com/sahayak-analytics/backend/internal/storage"
)

// sessionKeepAliveWindow is how long recently-touched sessions survive cleanup.
const sessionKeepAliveWindow = 5 * time.Minute

// sessionState holds the session metadata plus everything the query
// endpoints need after generation finishes.
type sessionState struct {
	Session         *models.ReportSession
	Reports         []*models.StudentReport
	Insights        []analytics.Insight
	Recommendations []string
	LastAccessed    time.Time
}

// Manager handles active report generation sessions.
type Manager struct {
	sessions map[string]*sessionState
	mu       sync.RWMutex
	cfg      *config.AppConfig
	store    storage.Store
	registry *roster.Registry
	provider analysis.Provider
	log      *zap.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a report manager backed by the given file store and
// analysis provider.
func NewManager(cfg *config.AppConfig, store storage.Store, provider analysis.Provider, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*sessionState),
		cfg:      cfg,
		store:    store,
		registry: roster.GetGlobalRegistry(),
		provider: provider,
		log:      log,
		done:     make(chan struct{}),
	}
}

// StartCleanup launches the background cleanup loop. Call Shutdown to stop it.
func (m *Manager) StartCleanup() {
	interval := time.Duration(m.cfg.Analysis.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	maxAge := time.Duration(m.cfg.Analysis.SessionTimeoutMinutes) * time.Minute
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CleanupOldSessions(maxAge)
			case <-m.done:
				return
			}
		}
	}()
}

// Shutdown stops the cleanup loop and releases every session's resources.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, state := range m.sessions {
		m.releaseLocked(id, state)
	}
}

// StartReport begins generating a report from an uploaded roster file.
func (m *Manager) StartReport(fileID string) (*models.ReportSession, error) {
	path, err := m.store.GetFilePath(fileID)
	if err != nil {
		return nil, err
	}

	return m.start(fileID, "SAHAYAK_Custom_Report", func() ([]models.StudentRecord, []*roster.RecordError, error) {
		m.store.UpdateStatus(fileID, "analyzing")

		p, err := m.registry.FindParser(path)
		if err != nil {
			return nil, nil, fmt.Errorf("unsupported roster format: %w", err)
		}
		return p.Parse(path)
	})
}

// StartDemoReport begins generating a report from the built-in demo roster.
func (m *Manager) StartDemoReport() (*models.ReportSession, error) {
	return m.start("", "SAHAYAK_Report", func() ([]models.StudentRecord, []*roster.RecordError, error) {
		return demo.Students(), nil, nil
	})
}

type rosterLoader func() ([]models.StudentRecord, []*roster.RecordError, error)

func (m *Manager) start(fileID, bundlePrefix string, load rosterLoader) (*models.ReportSession, error) {
	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()
	session := models.NewReportSession(sessionID, fileID)
	session.Provider = m.provider.Name()
	session.StartTime = time.Now().UnixMilli()

	m.mu.Lock()
	m.sessions[sessionID] = &sessionState{
		Session:      session,
		LastAccessed: time.Now(),
	}
	m.mu.Unlock()

	go m.run(sessionID, fileID, bundlePrefix, load)

	return session, nil
}

func (m *Manager) run(sessionID, fileID, bundlePrefix string, load rosterLoader) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("report generation panicked",
				zap.String("session", short(sessionID)),
				zap.Any("panic", r))
			m.setError(sessionID, fileID, fmt.Sprintf("report generation panicked: %v", r))
		}
	}()

	start := time.Now()
	log := m.log.With(zap.String("session", short(sessionID)))

	records, recordErrors, err := load()
	if err != nil {
		log.Error("roster load failed", zap.Error(err))
		m.setError(sessionID, fileID, err.Error())
		return
	}
	for _, re := range recordErrors {
		if re == nil {
			continue
		}
		m.appendError(sessionID, models.ReportError{
			Stage:  "parse",
			Reason: fmt.Sprintf("line %d: %s", re.Line, re.Reason),
		})
	}

	if len(records) == 0 {
		m.setError(sessionID, fileID, "roster contains no valid student records")
		return
	}
	if max := m.cfg.Analysis.MaxStudentsPerRoster; max > 0 && len(records) > max {
		m.setError(sessionID, fileID, fmt.Sprintf("roster has %d students, limit is %d", len(records), max))
		return
	}

	log.Info("starting analysis",
		zap.Int("students", len(records)),
		zap.String("provider", m.provider.Name()))

	m.update(sessionID, func(s *models.ReportSession) {
		s.Status = models.SessionStatusAnalyzing
		s.StudentCount = len(records)
		s.Progress = 5
	})

	reports := m.analyzeAll(sessionID, records)

	m.update(sessionID, func(s *models.ReportSession) {
		s.Status = models.SessionStatusRendering
		s.Progress = 70
	})

	ctx := context.Background()
	insights, recommendations, bundle, err := m.render(ctx, sessionID, reports)
	if err != nil {
		log.Error("rendering failed", zap.Error(err))
		m.setError(sessionID, fileID, err.Error())
		return
	}

	m.update(sessionID, func(s *models.ReportSession) {
		s.Status = models.SessionStatusBundling
		s.Progress = 85
	})

	bundleName := fmt.Sprintf("%s_%s.zip", bundlePrefix, start.Format("20060102_150405"))
	bundlePath := filepath.Join(m.cfg.GetReportsDir(), bundleName)
	if err := writeBundleFile(bundlePath, bundle); err != nil {
		log.Error("bundling failed", zap.Error(err))
		m.setError(sessionID, fileID, err.Error())
		return
	}

	fallbacks := 0
	for _, r := range reports {
		if r.Fallback {
			fallbacks++
		}
	}

	elapsed := time.Since(start).Milliseconds()
	log.Info("report complete",
		zap.Int("students", len(reports)),
		zap.Int("fallbacks", fallbacks),
		zap.Int64("elapsedMs", elapsed))

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		os.Remove(bundlePath)
		return
	}

	state.Reports = reports
	state.Insights = insights
	state.Recommendations = recommendations
	state.Session.Status = models.SessionStatusComplete
	state.Session.Progress = 100
	state.Session.FallbackCount = fallbacks
	state.Session.BundleName = bundleName
	state.Session.BundlePath = bundlePath
	state.Session.ProcessingTimeMs = elapsed
	state.Session.EndTime = time.Now().UnixMilli()

	if fileID != "" {
		m.store.UpdateStatus(fileID, "analyzed")
	}
}

// analyzeAll runs the provider over every record with bounded concurrency.
// Provider failures never abort the session: the student gets the fallback
// analysis and the failure is recorded on the session.
func (m *Manager) analyzeAll(sessionID string, records []models.StudentRecord) []*models.StudentReport {
	timeout := time.Duration(m.cfg.Analysis.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	reports := make([]*models.StudentReport, len(records))
	var completed int
	var progressMu sync.Mutex

	g, ctx := errgroup.WithContext(context.Background())
	limit := m.cfg.Analysis.MaxConcurrentAnalyses
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for i, rec := range records {
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			result, err := m.safeAnalyze(reqCtx, rec)
			cancel()

			fallback := false
			if err != nil {
				m.log.Warn("analysis failed, using fallback",
					zap.String("session", short(sessionID)),
					zap.String("student", rec.Name),
					zap.Error(err))
				m.appendError(sessionID, models.ReportError{
					Student: rec.Name,
					Stage:   "analysis",
					Reason:  err.Error(),
				})
				result = analysis.FallbackAnalysis(rec)
				fallback = true
			}

			reports[i] = &models.StudentReport{
				StudentID:      i + 1,
				StudentName:    rec.Name,
				Grade:          rec.Grade,
				Subject:        rec.Subject,
				ExamDate:       rec.ExamDate,
				OriginalRemark: rec.Remark,
				AnalysisDate:   time.Now(),
				Fallback:       fallback,
				Analysis:       *result,
			}

			progressMu.Lock()
			completed++
			progress := 5 + 65*float64(completed)/float64(len(records))
			progressMu.Unlock()

			m.update(sessionID, func(s *models.ReportSession) {
				// Updates race with each other between the counter lock
				// and this one; never let progress move backwards.
				if progress > s.Progress {
					s.Progress = progress
				}
			})
			return nil
		})
	}
	g.Wait()

	return reports
}

// safeAnalyze shields the session from a panicking provider. The panic is
// converted into an error so the student falls back like any other failure
// instead of taking the whole server down with it.
func (m *Manager) safeAnalyze(ctx context.Context, rec models.StudentRecord) (result *models.StudentAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("analysis panicked: %v", r)
		}
	}()
	return m.provider.Analyze(ctx, rec)
}

// render builds the class store, charts, insights and the PDF, and
// assembles the full bundle.
func (m *Manager) render(ctx context.Context, sessionID string, reports []*models.StudentReport) ([]analytics.Insight, []string, *Bundle, error) {
	class, err := analytics.NewClassStore(m.cfg.GetTempDir(), sessionID, analytics.StoreOptions{
		Threads:     m.cfg.Advanced.DuckDBThreads,
		MemoryLimit: m.cfg.Advanced.DuckDBMemoryLimit,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating class store: %w", err)
	}
	// The store only lives for the duration of the render: insights and
	// recommendations are snapshotted onto the session, nothing queries
	// the database afterwards.
	defer class.Close()

	for _, r := range reports {
		if err := class.AddReport(r); err != nil {
			return nil, nil, nil, fmt.Errorf("storing report for %s: %w", r.StudentName, err)
		}
	}

	bundle := &Bundle{}
	generated := time.Now()
	timestamp := generated.Format("20060102_150405")

	students := make([]pdf.StudentSection, 0, len(reports))
	for _, r := range reports {
		section := pdf.StudentSection{Report: r}
		png, err := charts.StudentPerformance(r)
		if err != nil {
			m.log.Warn("student chart failed",
				zap.String("session", short(sessionID)),
				zap.String("student", r.StudentName),
				zap.Error(err))
		} else {
			section.Chart = png
			bundle.AddChart(fmt.Sprintf("sahayak_student_%d_%s", r.StudentID, sanitize(r.StudentName)), png)
		}
		if profile, err := charts.LearningProfile(r); err == nil {
			section.Profile = profile
			bundle.AddChart(fmt.Sprintf("sahayak_student_%d_%s_profile", r.StudentID, sanitize(r.StudentName)), profile)
		}
		students = append(students, section)
	}

	dashboard := m.dashboardCharts(ctx, sessionID, class, bundle)

	insights, err := analytics.ClassInsights(ctx, class)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generating class insights: %w", err)
	}
	recommendations, err := analytics.MultiGradeRecommendations(ctx, class)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generating recommendations: %w", err)
	}

	doc := &pdf.Report{
		GeneratedAt:     generated,
		GradeCount:      gradeCount(reports),
		Students:        students,
		DashboardCharts: dashboard,
		Insights:        insights,
		Recommendations: recommendations,
	}

	pdfData, err := renderPDF(doc)
	if err != nil {
		return nil, nil, nil, err
	}
	bundle.AddPDF(timestamp, pdfData)

	if err := bundle.AddAnalysisData(timestamp, generated, reports); err != nil {
		return nil, nil, nil, err
	}

	return insights, recommendations, bundle, nil
}

// dashboardCharts renders the class overview chart set. Charts that cannot
// be drawn (no data) are skipped, never fatal.
func (m *Manager) dashboardCharts(ctx context.Context, sessionID string, class *analytics.ClassStore, bundle *Bundle) [][]byte {
	var out [][]byte

	add := func(name string, png []byte, err error) {
		if err != nil {
			if !errors.Is(err, charts.ErrNoData) {
				m.log.Warn("dashboard chart failed",
					zap.String("session", short(sessionID)),
					zap.String("chart", name),
					zap.Error(err))
			}
			return
		}
		out = append(out, png)
		bundle.AddChart("sahayak_class_"+name, png)
	}

	if dist, err := class.GradeDistribution(ctx); err == nil {
		png, err := charts.GradeDistribution(dist)
		add("grade_distribution", png, err)
	}
	if perf, err := class.GradePerformance(ctx); err == nil {
		png, err := charts.GradePerformance(perf)
		add("grade_performance", png, err)
	}
	if skills, err := class.SkillAverages(ctx); err == nil {
		png, err := charts.SkillAverages(skills)
		add("skill_averages", png, err)
	}
	if dyn, err := class.ClassDynamics(ctx); err == nil {
		png, err := charts.ClassDynamics(dyn, class.Len())
		add("dynamics", png, err)
	}
	if pace, err := class.PaceDistribution(ctx); err == nil {
		png, err := charts.PaceDistribution(pace)
		add("learning_pace", png, err)
	}
	if attn, err := class.AttentionDistribution(ctx); err == nil {
		png, err := charts.AttentionDistribution(attn)
		add("attention_span", png, err)
	}

	return out
}

// GetSession returns a session by ID.
func (m *Manager) GetSession(id string) (*models.ReportSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.Session, true
}

// TouchSession updates the LastAccessed timestamp so active sessions
// survive cleanup.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// StudentReports returns the completed per-student reports for a session.
func (m *Manager) StudentReports(id string) ([]*models.StudentReport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok || state.Reports == nil {
		return nil, false
	}
	return state.Reports, true
}

// StudentReportsMsgpack returns the per-student reports encoded as msgpack,
// for clients that want a compact binary export.
func (m *Manager) StudentReportsMsgpack(id string) ([]byte, error) {
	reports, ok := m.StudentReports(id)
	if !ok {
		return nil, fmt.Errorf("session %s has no completed reports", short(id))
	}
	return msgpack.Marshal(reports)
}

// ClassInsights returns the strategic insights and recommendations for a
// completed session.
func (m *Manager) ClassInsights(id string) ([]analytics.Insight, []string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok || state.Insights == nil {
		return nil, nil, false
	}
	return state.Insights, state.Recommendations, true
}

// BundlePath returns the on-disk ZIP path and its download name.
func (m *Manager) BundlePath(id string) (path, name string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.sessions[id]
	if !exists || state.Session.BundlePath == "" {
		return "", "", false
	}
	return state.Session.BundlePath, state.Session.BundleName, true
}

// CleanupOldSessions removes finished sessions older than maxAge, keeping
// sessions touched within the keep-alive window.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-sessionKeepAliveWindow)

	for id, state := range m.sessions {
		if state.Session.Status != models.SessionStatusComplete &&
			state.Session.Status != models.SessionStatusError {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			m.releaseLocked(id, state)
			m.log.Info("cleaned up aged session", zap.String("session", short(id)))
		}
	}
}

// cleanupOldSessionsIfNeeded evicts finished sessions when at capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	maxSessions := m.cfg.Analysis.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 50
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < maxSessions {
		return
	}

	var finished []string
	for id, state := range m.sessions {
		if state.Session.Status == models.SessionStatusComplete ||
			state.Session.Status == models.SessionStatusError {
			finished = append(finished, id)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return m.sessions[finished[i]].LastAccessed.Before(m.sessions[finished[j]].LastAccessed)
	})

	toFree := len(m.sessions) - maxSessions + 1
	for _, id := range finished {
		if toFree <= 0 {
			break
		}
		m.releaseLocked(id, m.sessions[id])
		m.log.Info("evicted session at capacity", zap.String("session", short(id)))
		toFree--
	}
}

// releaseLocked frees a session's resources. Caller holds m.mu.
func (m *Manager) releaseLocked(id string, state *sessionState) {
	if state.Session.BundlePath != "" {
		os.Remove(state.Session.BundlePath)
	}
	delete(m.sessions, id)
}

func (m *Manager) update(sessionID string, fn func(*models.ReportSession)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.sessions[sessionID]; ok {
		fn(state.Session)
	}
}

func (m *Manager) appendError(sessionID string, e models.ReportError) {
	m.update(sessionID, func(s *models.ReportSession) {
		s.Errors = append(s.Errors, e)
	})
}

func (m *Manager) setError(sessionID, fileID, reason string) {
	m.update(sessionID, func(s *models.ReportSession) {
		s.Status = models.SessionStatusError
		s.EndTime = time.Now().UnixMilli()
		s.Errors = append(s.Errors, models.ReportError{Stage: "session", Reason: reason})
	})
	if fileID != "" {
		m.store.UpdateStatus(fileID, "error")
	}
}

func renderPDF(doc *pdf.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBundleFile(path string, bundle *Bundle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating bundle file: %w", err)
	}
	if err := bundle.WriteZip(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing bundle: %w", err)
	}
	return f.Close()
}

func gradeCount(reports []*models.StudentReport) int {
	grades := make(map[string]struct{})
	for _, r := range reports {
		grades[r.Grade] = struct{}{}
	}
	return len(grades)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
