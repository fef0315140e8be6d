package analytics

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sahayak-analytics/backend/internal/models"
)

func newTestStore(t *testing.T) *ClassStore {
	t.Helper()
	store, err := NewClassStore(t.TempDir(), "test-session", StoreOptions{})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReport(id int, name, grade, subject string, avg float64, helper, individual bool) *models.StudentReport {
	return &models.StudentReport{
		StudentID:    id,
		StudentName:  name,
		Grade:        grade,
		Subject:      subject,
		AnalysisDate: time.Now(),
		Analysis: models.StudentAnalysis{
			StudentProfile: models.StudentProfile{
				CurrentGradeLevel: grade,
				LearningPace:      "Average",
				AttentionSpan:     "Medium",
			},
			AcademicPerformance: models.AcademicPerformance{
				SubjectMastery:     avg,
				ComprehensionLevel: avg,
				ApplicationSkills:  avg,
				ProblemSolving:     avg,
				RetentionRate:      avg,
			},
			MultiGradeConsiderations: models.MultiGradeConsiderations{
				CanHelpYoungerStudents:          helper,
				RequiresIndividualizedAttention: individual,
				WorksWellInMixedGroups:          true,
			},
		},
	}
}

func fillStore(t *testing.T, store *ClassStore) {
	t.Helper()
	reports := []*models.StudentReport{
		sampleReport(1, "Arjun", "Class 4", "Mathematics", 8.0, true, false),
		sampleReport(2, "Priya", "Class 5", "English", 6.0, true, false),
		sampleReport(3, "Rohan", "Class 3", "Science", 5.0, false, true),
		sampleReport(4, "Kavya", "Class 5", "Mathematics", 9.0, true, false),
		sampleReport(5, "Aman", "Class 4", "Hindi", 4.0, false, true),
	}
	reports[4].Analysis.DetailedChallenges = []models.Challenge{
		{Challenge: "Reading fluency", Severity: "High"},
		{Challenge: "Formal writing", Severity: "Medium"},
	}
	reports[4].Analysis.StudentProfile.AttentionSpan = "Short"
	reports[4].Fallback = true

	for _, r := range reports {
		if err := store.AddReport(r); err != nil {
			t.Fatalf("Failed to add report for %s: %v", r.StudentName, err)
		}
	}
}

func TestClassStore_AddAndCount(t *testing.T) {
	store := newTestStore(t)
	fillStore(t, store)

	if store.Len() != 5 {
		t.Errorf("Expected 5 reports, got %d", store.Len())
	}

	fallbacks, err := store.FallbackCount(context.Background())
	if err != nil {
		t.Fatalf("FallbackCount failed: %v", err)
	}
	if fallbacks != 1 {
		t.Errorf("Expected 1 fallback report, got %d", fallbacks)
	}
}

func TestClassStore_GradeDistribution(t *testing.T) {
	store := newTestStore(t)
	fillStore(t, store)

	dist, err := store.GradeDistribution(context.Background())
	if err != nil {
		t.Fatalf("GradeDistribution failed: %v", err)
	}

	expected := map[string]int{"Class 3": 1, "Class 4": 2, "Class 5": 2}
	for grade, count := range expected {
		if dist[grade] != count {
			t.Errorf("Expected %d students in %s, got %d", count, grade, dist[grade])
		}
	}
}

func TestClassStore_GradePerformance(t *testing.T) {
	store := newTestStore(t)
	fillStore(t, store)

	perf, err := store.GradePerformance(context.Background())
	if err != nil {
		t.Fatalf("GradePerformance failed: %v", err)
	}

	// Class 5 is Priya (6.0) and Kavya (9.0)
	if got := perf["Class 5"]; got < 7.49 || got > 7.51 {
		t.Errorf("Expected Class 5 average 7.5, got %v", got)
	}
	if got := perf["Class 3"]; got != 5.0 {
		t.Errorf("Expected Class 3 average 5.0, got %v", got)
	}
}

func TestClassStore_SkillAverages(t *testing.T) {
	store := newTestStore(t)
	fillStore(t, store)

	skills, err := store.SkillAverages(context.Background())
	if err != nil {
		t.Fatalf("SkillAverages failed: %v", err)
	}

	// All five axes were set to the same value per student: mean is 6.4
	for axis, avg := range skills {
		if avg < 6.39 || avg > 6.41 {
			t.Errorf("Expected %s average 6.4, got %v", axis, avg)
		}
	}
	if len(skills) != 5 {
		t.Errorf("Expected 5 skill axes, got %d", len(skills))
	}
}

func TestClassStore_ClassDynamics(t *testing.T) {
	store := newTestStore(t)
	fillStore(t, store)

	d, err := store.ClassDynamics(context.Background())
	if err != nil {
		t.Fatalf("ClassDynamics failed: %v", err)
	}

	if d.PeerHelpers != 3 {
		t.Errorf("Expected 3 peer helpers, got %d", d.PeerHelpers)
	}
	if d.IndividualAttention != 2 {
		t.Errorf("Expected 2 students needing individual attention, got %d", d.IndividualAttention)
	}
	if d.MixedGroups != 5 {
		t.Errorf("Expected 5 students in mixed groups, got %d", d.MixedGroups)
	}
}

func TestClassStore_StudentBuckets(t *testing.T) {
	store := newTestStore(t)
	fillStore(t, store)
	ctx := context.Background()

	high, err := store.HighPerformers(ctx)
	if err != nil {
		t.Fatalf("HighPerformers failed: %v", err)
	}
	if len(high) != 2 || high[0] != "Arjun" || high[1] != "Kavya" {
		t.Errorf("Expected [Arjun Kavya], got %v", high)
	}

	urgent, err := store.NeedUrgentSupport(ctx)
	if err != nil {
		t.Fatalf("NeedUrgentSupport failed: %v", err)
	}
	if len(urgent) != 2 || urgent[0] != "Rohan" || urgent[1] != "Aman" {
		t.Errorf("Expected [Rohan Aman], got %v", urgent)
	}

	short, err := store.ShortAttention(ctx)
	if err != nil {
		t.Fatalf("ShortAttention failed: %v", err)
	}
	if len(short) != 1 || short[0] != "Aman" {
		t.Errorf("Expected [Aman], got %v", short)
	}
}

func TestClassStore_HighSeverityIssues(t *testing.T) {
	store := newTestStore(t)
	fillStore(t, store)

	issues, err := store.HighSeverityIssues(context.Background())
	if err != nil {
		t.Fatalf("HighSeverityIssues failed: %v", err)
	}

	hindiIssues := issues["Hindi"]
	if len(hindiIssues) != 1 {
		t.Fatalf("Expected 1 high-severity Hindi issue, got %d", len(hindiIssues))
	}
	if hindiIssues[0].Student != "Aman" || hindiIssues[0].Challenge != "Reading fluency" {
		t.Errorf("Unexpected issue: %+v", hindiIssues[0])
	}

	// Medium severity challenges are excluded
	total := 0
	for _, list := range issues {
		total += len(list)
	}
	if total != 1 {
		t.Errorf("Expected exactly 1 high-severity issue overall, got %d", total)
	}
}

func TestClassStore_OptionsApplyPragmas(t *testing.T) {
	store, err := NewClassStore(t.TempDir(), "options-test", StoreOptions{
		Threads:     1,
		MemoryLimit: "256MB",
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	var threads int64
	if err := store.db.QueryRow("SELECT current_setting('threads')").Scan(&threads); err != nil {
		t.Fatalf("Failed to read threads setting: %v", err)
	}
	if threads != 1 {
		t.Errorf("Expected 1 thread, got %d", threads)
	}
}

func TestClassStore_CloseRemovesFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewClassStore(dir, "cleanup-test", StoreOptions{})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	dbPath := store.dbPath
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("Expected database file to exist")
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Error("Expected database file to be removed on close")
	}
}
