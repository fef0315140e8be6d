// Package analysis turns teacher observations into structured student
// analyses using an LLM provider, with a deterministic fallback when no
// provider is available or a call fails.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sahayak-analytics/backend/internal/config"
	"github.com/sahayak-analytics/backend/internal/models"
)

// Provider generates a structured analysis for one student.
type Provider interface {
	// Name returns the provider's name for session metadata.
	Name() string

	// Analyze produces a StudentAnalysis for the given record.
	Analyze(ctx context.Context, rec models.StudentRecord) (*models.StudentAnalysis, error)
}

// NewProvider builds the provider named in the config. A provider whose
// API key is missing falls back to the static provider so demo reports
// keep working without credentials.
func NewProvider(cfg *config.AppConfig) Provider {
	switch strings.ToLower(cfg.Analysis.Provider) {
	case "gemini":
		if key := cfg.GeminiAPIKey(); key != "" {
			p, err := NewGeminiProvider(key, cfg.Analysis.GeminiModel)
			if err == nil {
				return p
			}
		}
	case "openai":
		if key := cfg.OpenAIAPIKey(); key != "" {
			return NewOpenAIProvider(key, cfg.Analysis.OpenAIBaseURL, cfg.Analysis.OpenAIModel)
		}
	}
	return NewFallbackProvider()
}

// BuildPrompt assembles the analysis prompt for one student. The embedded
// JSON skeleton pins the response shape so the reply unmarshals directly
// into models.StudentAnalysis.
func BuildPrompt(rec models.StudentRecord) string {
	return fmt.Sprintf(`You are SAHAYAK, an AI teaching assistant for teachers in multi-grade, under-resourced Indian classrooms.
Analyze this student and provide EXTREMELY SPECIFIC, ACTIONABLE insights that a teacher can implement TODAY.

Student: %s (Grade: %s)
Subject: %s
Teacher Observation: "%s"

CRITICAL: Every recommendation must include EXACTLY what to do, WHEN to do it, HOW LONG it takes, and WHAT materials are needed.
Be specific about classroom positioning, peer interactions, daily schedules, and concrete activities.

Provide detailed analysis in JSON format with HYPER-SPECIFIC teaching strategies:

{
    "student_profile": {
        "current_grade_level": "%s",
        "functional_level": "Grade X equivalent",
        "learning_pace": "Fast/Average/Slow",
        "attention_span": "Short/Medium/Long",
        "peer_interaction": "Helpful/Neutral/Needs_Support",
        "independence_level": "High/Medium/Low"
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
        {
            "strength": "Strong arithmetic foundation",
            "evidence": "excels in basic arithmetic",
            "classroom_application": "Can be peer tutor for younger students",
            "teaching_strategy": "Use as math helper during multi-grade activities"
        }
    ],
    "detailed_challenges": [
        {
            "challenge": "Word problem comprehension",
            "root_cause": "Reading comprehension difficulties affecting math",
            "severity": "Medium",
            "impact_on_multi_grade": "May struggle when class does combined reading-math activities",
            "immediate_intervention": "Provide visual word problem templates"
        }
    ],
    "sahayak_interventions": [
        {
            "intervention": "Create visual math problem templates using classroom objects",
            "specific_implementation": "EXACTLY: Use 5 stones, 3 sticks, and 2 books to create word problems. Say 'Student has 5 stones, gives away 2 to friend. How many stones left?' while physically moving objects",
            "daily_schedule": "WHEN: Every day at 10:15 AM, right after morning prayers, for exactly 8 minutes",
            "classroom_positioning": "WHERE: Seat in front row, second seat from left, facing the demonstration table",
            "materials_needed": "5 small stones, 3 wooden sticks, 2 old textbooks, 1 small cloth to place objects",
            "step_by_step_process": [
                "Step 1: Place objects on cloth (30 seconds)",
                "Step 2: Read problem aloud while pointing to objects (1 minute)",
                "Step 3: Have student physically move objects to solve (2 minutes)",
                "Step 4: Ask them to explain what they did (1 minute)",
                "Step 5: Write the number sentence on blackboard together (30 seconds)"
            ],
            "zero_cost_adaptation": "Use broken chalk pieces, torn paper strips, and small stones from playground",
            "expected_outcome": "After 2 weeks: Can solve 3 object-based word problems independently. After 4 weeks: Can draw pictures to solve word problems without objects",
            "how_to_measure_success": "Count how many word problems they attempt vs avoid. Success = attempts 80%% of word problems given"
        }
    ],
    "personalized_summary": {
        "immediate_actions_for_tomorrow": [
            "TOMORROW 10:15 AM: Introduce object-based word problems using specific materials",
            "TOMORROW: Move student's seat to optimal position for learning",
            "TOMORROW: Collect necessary materials and place on student's desk corner"
        ],
        "this_week_implementation": [
            "MONDAY: Start daily sessions",
            "TUESDAY: Begin buddy system if applicable",
            "WEDNESDAY: Send parent communication note home",
            "THURSDAY: Implement progress tracking",
            "FRIDAY: Assess week 1 progress"
        ],
        "success_timeline_with_numbers": "Week 2: 50%% improvement. Week 4: 70%% improvement. Week 6: 80%% improvement + can explain to peer. Week 8: Independent with visual supports"
    }
}

Focus on practical, low-resource solutions suitable for teachers managing multiple grades with limited materials.`,
		rec.Name, rec.Grade, rec.Subject, rec.Remark, rec.Grade)
}

// DecodeAnalysis parses an LLM reply into a StudentAnalysis. Replies
// wrapped in a markdown code fence are unwrapped first.
func DecodeAnalysis(text string) (*models.StudentAnalysis, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	var analysis models.StudentAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, fmt.Errorf("decoding analysis: %w", err)
	}

	if analysis.StudentProfile.CurrentGradeLevel == "" &&
		len(analysis.DetailedStrengths) == 0 &&
		len(analysis.Interventions) == 0 {
		return nil, fmt.Errorf("analysis reply is missing expected fields")
	}

	return &analysis, nil
}
