package models

import "time"

// StudentAnalysis is the structured result of analyzing one student.
// The shape mirrors the JSON contract the analysis prompt asks the model
// to fill in, so provider output unmarshals directly into it.
type StudentAnalysis struct {
	StudentProfile           StudentProfile           `json:"student_profile"`
	AcademicPerformance      AcademicPerformance      `json:"academic_performance"`
	MultiGradeConsiderations MultiGradeConsiderations `json:"multi_grade_considerations"`
	DetailedStrengths        []Strength               `json:"detailed_strengths"`
	DetailedChallenges       []Challenge              `json:"detailed_challenges"`
	Interventions            []Intervention           `json:"sahayak_interventions"`
	PersonalizedSummary      PersonalizedSummary      `json:"personalized_summary"`
}

// StudentProfile describes how the student learns.
type StudentProfile struct {
	CurrentGradeLevel string `json:"current_grade_level"`
	FunctionalLevel   string `json:"functional_level"`
	LearningPace      string `json:"learning_pace"`  // Fast/Average/Slow
	AttentionSpan     string `json:"attention_span"` // Short/Medium/Long
	PeerInteraction   string `json:"peer_interaction"`
	IndependenceLevel string `json:"independence_level"`
}

// AcademicPerformance scores five axes on a 1-10 scale.
type AcademicPerformance struct {
	SubjectMastery     float64 `json:"subject_mastery"`
	ComprehensionLevel float64 `json:"comprehension_level"`
	ApplicationSkills  float64 `json:"application_skills"`
	ProblemSolving     float64 `json:"problem_solving"`
	RetentionRate      float64 `json:"retention_rate"`
}

// Average returns the mean of the five performance axes.
func (p AcademicPerformance) Average() float64 {
	return (p.SubjectMastery + p.ComprehensionLevel + p.ApplicationSkills +
		p.ProblemSolving + p.RetentionRate) / 5
}

// MultiGradeConsiderations captures how the student fits a mixed-grade room.
type MultiGradeConsiderations struct {
	CanHelpYoungerStudents          bool `json:"can_help_younger_students"`
	NeedsAdvancedChallenges         bool `json:"needs_advanced_challenges"`
	RequiresIndividualizedAttention bool `json:"requires_individualized_attention"`
	WorksWellInMixedGroups          bool `json:"works_well_in_mixed_groups"`
}

// Strength is one observed strength with a classroom application.
type Strength struct {
	Strength             string `json:"strength"`
	Evidence             string `json:"evidence"`
	ClassroomApplication string `json:"classroom_application"`
	TeachingStrategy     string `json:"teaching_strategy"`
}

// Challenge is one observed difficulty with its remediation.
type Challenge struct {
	Challenge             string `json:"challenge"`
	RootCause             string `json:"root_cause"`
	Severity              string `json:"severity"` // Low/Medium/High
	ImpactOnMultiGrade    string `json:"impact_on_multi_grade"`
	ImmediateIntervention string `json:"immediate_intervention"`
}

// Intervention is a concrete activity the teacher can run.
type Intervention struct {
	Intervention           string   `json:"intervention"`
	SpecificImplementation string   `json:"specific_implementation"`
	DailySchedule          string   `json:"daily_schedule"`
	ClassroomPositioning   string   `json:"classroom_positioning,omitempty"`
	MaterialsNeeded        string   `json:"materials_needed"`
	StepByStepProcess      []string `json:"step_by_step_process,omitempty"`
	ZeroCostAdaptation     string   `json:"zero_cost_adaptation"`
	ExpectedOutcome        string   `json:"expected_outcome"`
	HowToMeasureSuccess    string   `json:"how_to_measure_success,omitempty"`
}

// PersonalizedSummary is the action plan distilled from the analysis.
type PersonalizedSummary struct {
	ImmediateActionsForTomorrow []string `json:"immediate_actions_for_tomorrow"`
	ThisWeekImplementation      []string `json:"this_week_implementation"`
	SuccessTimeline             string   `json:"success_timeline_with_numbers"`
}

// StudentReport pairs a roster record with its completed analysis.
type StudentReport struct {
	StudentID      int             `json:"student_id"`
	StudentName    string          `json:"student_name"`
	Grade          string          `json:"grade"`
	Subject        string          `json:"subject"`
	ExamDate       string          `json:"exam_date,omitempty"`
	OriginalRemark string          `json:"original_remark"`
	AnalysisDate   time.Time       `json:"analysis_date"`
	Fallback       bool            `json:"fallback,omitempty"`
	Analysis       StudentAnalysis `json:"analysis"`
}
