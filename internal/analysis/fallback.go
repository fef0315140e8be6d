package analysis

import (
	"context"
	"fmt"

	"github.com/sahayak-analytics/backend/internal/models"
)

// FallbackProvider produces a conservative, deterministic analysis when
// no LLM provider is configured or a provider call fails. Reports built
// from it steer the teacher toward closer observation rather than
// inventing specifics.
type FallbackProvider struct{}

func NewFallbackProvider() *FallbackProvider {
	return &FallbackProvider{}
}

func (p *FallbackProvider) Name() string {
	return "fallback"
}

func (p *FallbackProvider) Analyze(_ context.Context, rec models.StudentRecord) (*models.StudentAnalysis, error) {
	return FallbackAnalysis(rec), nil
}

// FallbackAnalysis builds the static analysis for one student.
func FallbackAnalysis(rec models.StudentRecord) *models.StudentAnalysis {
	return &models.StudentAnalysis{
		StudentProfile: models.StudentProfile{
			CurrentGradeLevel: rec.Grade,
			FunctionalLevel:   "Grade level assessment needed",
			LearningPace:      "Average",
			AttentionSpan:     "Medium",
			PeerInteraction:   "Neutral",
			IndependenceLevel: "Medium",
		},
		AcademicPerformance: models.AcademicPerformance{
			SubjectMastery:     6,
			ComprehensionLevel: 6,
			ApplicationSkills:  5,
			ProblemSolving:     6,
			RetentionRate:      6,
		},
		MultiGradeConsiderations: models.MultiGradeConsiderations{
			CanHelpYoungerStudents:          false,
			NeedsAdvancedChallenges:         false,
			RequiresIndividualizedAttention: true,
			WorksWellInMixedGroups:          true,
		},
		DetailedStrengths: []models.Strength{
			{
				Strength:             "Shows potential",
				Evidence:             "Teacher observation",
				ClassroomApplication: "Can participate in group activities",
				TeachingStrategy:     "Provide encouragement and support",
			},
		},
		DetailedChallenges: []models.Challenge{
			{
				Challenge:             "Needs assessment",
				RootCause:             "Requires detailed evaluation",
				Severity:              "Medium",
				ImpactOnMultiGrade:    "May need individualized attention",
				ImmediateIntervention: "Closer observation needed",
			},
		},
		Interventions: []models.Intervention{
			{
				Intervention:           "Individual assessment",
				SpecificImplementation: "One-on-one evaluation with specific activities",
				DailySchedule:          "During individual work time",
				MaterialsNeeded:        "Basic classroom materials",
				ZeroCostAdaptation:     "Use existing materials",
				ExpectedOutcome:        "Better understanding of needs",
			},
		},
		PersonalizedSummary: models.PersonalizedSummary{
			ImmediateActionsForTomorrow: []string{
				fmt.Sprintf("Observe %s more closely during lessons", rec.Name),
				"Note specific areas of strength and challenge",
				"Plan targeted interventions based on observations",
			},
			ThisWeekImplementation: []string{
				"Monday: Detailed observation",
				"Tuesday: Try different teaching approaches",
				"Wednesday: Note what works best",
				"Thursday: Implement successful strategies",
				"Friday: Assess progress",
			},
			SuccessTimeline: "Week 2: Better understanding of student needs. Week 4: Targeted interventions showing results. Week 6: Consistent improvement visible",
		},
	}
}
