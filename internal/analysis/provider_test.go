package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahayak-analytics/backend/internal/config"
	"github.com/sahayak-analytics/backend/internal/models"
)

var testRecord = models.StudentRecord{
	Name:    "Arjun",
	Grade:   "Class 4",
	Subject: "Mathematics",
	Remark:  "Excels in basic arithmetic but struggles with word problems.",
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(testRecord)

	assert.Contains(t, prompt, "Arjun")
	assert.Contains(t, prompt, "Class 4")
	assert.Contains(t, prompt, "Mathematics")
	assert.Contains(t, prompt, "struggles with word problems")

	// The JSON skeleton pins the response contract
	for _, key := range []string{
		"student_profile",
		"academic_performance",
		"multi_grade_considerations",
		"detailed_strengths",
		"detailed_challenges",
		"sahayak_interventions",
		"personalized_summary",
	} {
		assert.Contains(t, prompt, key)
	}
}

const sampleReply = `{
	"student_profile": {
		"current_grade_level": "Class 4",
		"functional_level": "Grade 3 equivalent",
		"learning_pace": "Average",
		"attention_span": "Medium",
		"peer_interaction": "Helpful",
		"independence_level": "Medium"
	},
	"academic_performance": {
		"subject_mastery": 7,
		"comprehension_level": 6,
		"application_skills": 5,
		"problem_solving": 6,
		"retention_rate": 7
	},
	"multi_grade_considerations": {
		"can_help_younger_students": true,
		"needs_advanced_challenges": false,
		"requires_individualized_attention": true,
		"works_well_in_mixed_groups": false
	},
	"detailed_strengths": [
		{"strength": "Strong arithmetic foundation", "evidence": "excels in basic arithmetic", "classroom_application": "Peer tutor", "teaching_strategy": "Math helper"}
	],
	"detailed_challenges": [
		{"challenge": "Word problems", "root_cause": "Reading comprehension", "severity": "Medium", "impact_on_multi_grade": "Combined activities", "immediate_intervention": "Visual templates"}
	],
	"sahayak_interventions": [
		{"intervention": "Object-based word problems", "specific_implementation": "Use stones and sticks", "daily_schedule": "10:15 AM daily", "materials_needed": "Stones, sticks", "zero_cost_adaptation": "Playground stones", "expected_outcome": "Independent solving"}
	],
	"personalized_summary": {
		"immediate_actions_for_tomorrow": ["Introduce object-based problems"],
		"this_week_implementation": ["Monday: start sessions"],
		"success_timeline_with_numbers": "Week 2: 50% improvement"
	}
}`

func TestDecodeAnalysis(t *testing.T) {
	t.Run("decodes plain JSON", func(t *testing.T) {
		analysis, err := DecodeAnalysis(sampleReply)
		require.NoError(t, err)

		assert.Equal(t, "Class 4", analysis.StudentProfile.CurrentGradeLevel)
		assert.Equal(t, 7.0, analysis.AcademicPerformance.SubjectMastery)
		assert.True(t, analysis.MultiGradeConsiderations.CanHelpYoungerStudents)
		require.Len(t, analysis.Interventions, 1)
		assert.Equal(t, "Object-based word problems", analysis.Interventions[0].Intervention)
	})

	t.Run("strips json code fences", func(t *testing.T) {
		fenced := "```json\n" + sampleReply + "\n```"

		analysis, err := DecodeAnalysis(fenced)
		require.NoError(t, err)
		assert.Equal(t, "Class 4", analysis.StudentProfile.CurrentGradeLevel)
	})

	t.Run("strips bare code fences", func(t *testing.T) {
		fenced := "```\n" + sampleReply + "\n```"

		analysis, err := DecodeAnalysis(fenced)
		require.NoError(t, err)
		assert.Equal(t, "Grade 3 equivalent", analysis.StudentProfile.FunctionalLevel)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		_, err := DecodeAnalysis("this is not JSON")
		assert.Error(t, err)
	})

	t.Run("rejects empty analysis object", func(t *testing.T) {
		_, err := DecodeAnalysis("{}")
		assert.Error(t, err)
	})
}

func TestFallbackProvider(t *testing.T) {
	p := NewFallbackProvider()

	analysis, err := p.Analyze(context.Background(), testRecord)
	require.NoError(t, err)

	assert.Equal(t, "fallback", p.Name())
	assert.Equal(t, "Class 4", analysis.StudentProfile.CurrentGradeLevel)
	assert.True(t, analysis.MultiGradeConsiderations.RequiresIndividualizedAttention)
	require.NotEmpty(t, analysis.PersonalizedSummary.ImmediateActionsForTomorrow)
	assert.True(t, strings.Contains(analysis.PersonalizedSummary.ImmediateActionsForTomorrow[0], "Arjun"),
		"fallback actions should name the student")

	// Scores stay on the 1-10 scale
	avg := analysis.AcademicPerformance.Average()
	assert.Greater(t, avg, 0.0)
	assert.LessOrEqual(t, avg, 10.0)
}

func TestNewProvider(t *testing.T) {
	t.Run("falls back without credentials", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")

		cfg := config.DefaultConfig()
		p := NewProvider(cfg)
		assert.Equal(t, "fallback", p.Name())
	})

	t.Run("uses openai when key present", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")

		cfg := config.DefaultConfig()
		cfg.Analysis.Provider = "openai"
		p := NewProvider(cfg)
		assert.Equal(t, "openai:gpt-4o-mini", p.Name())
	})

	t.Run("unknown provider falls back", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Analysis.Provider = "mystery"
		p := NewProvider(cfg)
		assert.Equal(t, "fallback", p.Name())
	})
}
