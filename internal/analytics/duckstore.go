// Package analytics aggregates completed student reports for class-level
// dashboards, strategic insights and teaching recommendations.
package analytics

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marcboeker/go-duckdb"

	"github.com/sahayak-analytics/backend/internal/models"
)

// ClassStore keeps one report session's per-student results in a
// temporary DuckDB file so class aggregates are plain SQL instead of
// hand-rolled map walking.
type ClassStore struct {
	db     *sql.DB
	dbPath string
	count  int
}

// StoreOptions tunes the embedded DuckDB instance. Zero values fall
// back to conservative defaults suited to low-end school hardware.
type StoreOptions struct {
	Threads     int
	MemoryLimit string
}

// NewClassStore creates a DuckDB-backed store for one session in the
// given temp directory.
func NewClassStore(tempDir, sessionID string, opts StoreOptions) (*ClassStore, error) {
	if opts.Threads <= 0 {
		opts.Threads = 2
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "512MB"
	}

	dbPath := filepath.Join(tempDir, fmt.Sprintf("session_%s.duckdb", sessionID))

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE reports (
			student_id           INTEGER PRIMARY KEY,
			name                 VARCHAR NOT NULL,
			grade                VARCHAR NOT NULL,
			subject              VARCHAR NOT NULL,
			fallback             BOOLEAN NOT NULL,
			subject_mastery      DOUBLE NOT NULL,
			comprehension_level  DOUBLE NOT NULL,
			application_skills   DOUBLE NOT NULL,
			problem_solving      DOUBLE NOT NULL,
			retention_rate       DOUBLE NOT NULL,
			avg_score            DOUBLE NOT NULL,
			learning_pace        VARCHAR,
			attention_span       VARCHAR,
			can_help_younger     BOOLEAN NOT NULL,
			needs_challenges     BOOLEAN NOT NULL,
			needs_individual     BOOLEAN NOT NULL,
			works_in_groups      BOOLEAN NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("failed to create reports table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE challenges (
			student_id INTEGER NOT NULL,
			name       VARCHAR NOT NULL,
			subject    VARCHAR NOT NULL,
			challenge  VARCHAR NOT NULL,
			severity   VARCHAR NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("failed to create challenges table: %w", err)
	}

	return &ClassStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// AddReport records one student's completed analysis.
func (s *ClassStore) AddReport(r *models.StudentReport) error {
	perf := r.Analysis.AcademicPerformance
	mg := r.Analysis.MultiGradeConsiderations
	profile := r.Analysis.StudentProfile

	_, err := s.db.Exec(`
		INSERT INTO reports VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.StudentID,
		r.StudentName,
		r.Grade,
		r.Subject,
		r.Fallback,
		perf.SubjectMastery,
		perf.ComprehensionLevel,
		perf.ApplicationSkills,
		perf.ProblemSolving,
		perf.RetentionRate,
		perf.Average(),
		profile.LearningPace,
		profile.AttentionSpan,
		mg.CanHelpYoungerStudents,
		mg.NeedsAdvancedChallenges,
		mg.RequiresIndividualizedAttention,
		mg.WorksWellInMixedGroups,
	)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}

	for _, c := range r.Analysis.DetailedChallenges {
		_, err := s.db.Exec(`INSERT INTO challenges VALUES (?, ?, ?, ?, ?)`,
			r.StudentID, r.StudentName, r.Subject, c.Challenge, c.Severity)
		if err != nil {
			return fmt.Errorf("inserting challenge: %w", err)
		}
	}

	s.count++
	return nil
}

// Len returns the number of stored reports.
func (s *ClassStore) Len() int {
	return s.count
}

// GradeDistribution returns student counts per grade.
func (s *ClassStore) GradeDistribution(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT grade, COUNT(*) FROM reports GROUP BY grade ORDER BY grade")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[string]int)
	for rows.Next() {
		var grade string
		var count int
		if err := rows.Scan(&grade, &count); err != nil {
			return nil, err
		}
		dist[grade] = count
	}
	return dist, rows.Err()
}

// GradeStudents returns student names grouped by grade, in roster order.
func (s *ClassStore) GradeStudents(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT grade, name FROM reports ORDER BY grade, student_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make(map[string][]string)
	for rows.Next() {
		var grade, name string
		if err := rows.Scan(&grade, &name); err != nil {
			return nil, err
		}
		groups[grade] = append(groups[grade], name)
	}
	return groups, rows.Err()
}

// GradePerformance returns the mean performance score per grade.
func (s *ClassStore) GradePerformance(ctx context.Context) (map[string]float64, error) {
	return s.avgBy(ctx, "grade")
}

// SubjectPerformance returns the mean performance score per subject.
func (s *ClassStore) SubjectPerformance(ctx context.Context) (map[string]float64, error) {
	return s.avgBy(ctx, "subject")
}

func (s *ClassStore) avgBy(ctx context.Context, column string) (map[string]float64, error) {
	query := fmt.Sprintf("SELECT %s, AVG(avg_score) FROM reports GROUP BY %s ORDER BY %s", column, column, column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]float64)
	for rows.Next() {
		var key string
		var avg float64
		if err := rows.Scan(&key, &avg); err != nil {
			return nil, err
		}
		result[key] = avg
	}
	return result, rows.Err()
}

// SkillAverages returns the class mean for each of the five performance axes.
func (s *ClassStore) SkillAverages(ctx context.Context) (map[string]float64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT AVG(subject_mastery), AVG(comprehension_level), AVG(application_skills),
		       AVG(problem_solving), AVG(retention_rate)
		FROM reports
	`)

	var mastery, comprehension, application, problemSolving, retention sql.NullFloat64
	if err := row.Scan(&mastery, &comprehension, &application, &problemSolving, &retention); err != nil {
		return nil, err
	}

	return map[string]float64{
		"Subject Mastery": mastery.Float64,
		"Comprehension":   comprehension.Float64,
		"Application":     application.Float64,
		"Problem Solving": problemSolving.Float64,
		"Retention":       retention.Float64,
	}, nil
}

// Dynamics summarizes how students fit the multi-grade classroom.
type Dynamics struct {
	PeerHelpers         int
	IndividualAttention int
	MixedGroups         int
}

// ClassDynamics counts peer helpers, students needing individual
// attention and students who work well in mixed groups.
func (s *ClassStore) ClassDynamics(ctx context.Context) (*Dynamics, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE can_help_younger),
		       COUNT(*) FILTER (WHERE needs_individual),
		       COUNT(*) FILTER (WHERE works_in_groups)
		FROM reports
	`)

	var d Dynamics
	if err := row.Scan(&d.PeerHelpers, &d.IndividualAttention, &d.MixedGroups); err != nil {
		return nil, err
	}
	return &d, nil
}

// PaceDistribution returns student counts per learning pace.
func (s *ClassStore) PaceDistribution(ctx context.Context) (map[string]int, error) {
	return s.countBy(ctx, "learning_pace")
}

// AttentionDistribution returns student counts per attention span.
func (s *ClassStore) AttentionDistribution(ctx context.Context) (map[string]int, error) {
	return s.countBy(ctx, "attention_span")
}

func (s *ClassStore) countBy(ctx context.Context, column string) (map[string]int, error) {
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM reports WHERE %s IS NOT NULL GROUP BY %s", column, column, column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		result[key] = count
	}
	return result, rows.Err()
}

// HighPerformers returns students whose mean score is at least 7.5, in
// roster order.
func (s *ClassStore) HighPerformers(ctx context.Context) ([]string, error) {
	return s.namesWhere(ctx, "avg_score >= 7.5")
}

// NeedUrgentSupport returns students whose mean score is below 5.5.
func (s *ClassStore) NeedUrgentSupport(ctx context.Context) ([]string, error) {
	return s.namesWhere(ctx, "avg_score < 5.5")
}

// PeerHelpers returns students who can help younger classmates.
func (s *ClassStore) PeerHelpers(ctx context.Context) ([]string, error) {
	return s.namesWhere(ctx, "can_help_younger")
}

// IndividualAttention returns students flagged for individual support.
func (s *ClassStore) IndividualAttention(ctx context.Context) ([]string, error) {
	return s.namesWhere(ctx, "needs_individual")
}

// ShortAttention returns students with a short attention span.
func (s *ClassStore) ShortAttention(ctx context.Context) ([]string, error) {
	return s.namesWhere(ctx, "attention_span = 'Short'")
}

// StudentNames returns all student names in roster order.
func (s *ClassStore) StudentNames(ctx context.Context) ([]string, error) {
	return s.namesWhere(ctx, "TRUE")
}

func (s *ClassStore) namesWhere(ctx context.Context, where string) ([]string, error) {
	query := fmt.Sprintf("SELECT name FROM reports WHERE %s ORDER BY student_id", where)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SubjectIssue is one high-severity challenge within a subject.
type SubjectIssue struct {
	Student   string
	Challenge string
}

// HighSeverityIssues returns high-severity challenges grouped by subject.
func (s *ClassStore) HighSeverityIssues(ctx context.Context) (map[string][]SubjectIssue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, name, challenge FROM challenges
		WHERE severity = 'High'
		ORDER BY subject, student_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	issues := make(map[string][]SubjectIssue)
	for rows.Next() {
		var subject, name, challenge string
		if err := rows.Scan(&subject, &name, &challenge); err != nil {
			return nil, err
		}
		issues[subject] = append(issues[subject], SubjectIssue{Student: name, Challenge: challenge})
	}
	return issues, rows.Err()
}

// FallbackCount returns how many reports came from the fallback analysis.
func (s *ClassStore) FallbackCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports WHERE fallback").Scan(&count)
	return count, err
}

// Close closes the database and removes the temp file.
func (s *ClassStore) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	if s.dbPath != "" {
		os.Remove(s.dbPath)
		os.Remove(s.dbPath + ".wal")
	}
	return nil
}
