// Package charts renders the PNG visualizations embedded in report PDFs.
package charts

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/sahayak-analytics/backend/internal/analytics"
	"github.com/sahayak-analytics/backend/internal/models"
)

const (
	chartWidth  = 900
	chartHeight = 500
)

// ErrNoData is returned when a chart has nothing to plot.
var ErrNoData = fmt.Errorf("no data to chart")

// StudentPerformance renders the five academic performance axes for one
// student as a bar chart on the shared 1-10 scale.
func StudentPerformance(report *models.StudentReport) ([]byte, error) {
	perf := report.Analysis.AcademicPerformance
	bars := []chart.Value{
		{Label: "Mastery", Value: perf.SubjectMastery},
		{Label: "Comprehension", Value: perf.ComprehensionLevel},
		{Label: "Application", Value: perf.ApplicationSkills},
		{Label: "Problem Solving", Value: perf.ProblemSolving},
		{Label: "Retention", Value: perf.RetentionRate},
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("%s (%s) - Academic Performance", report.StudentName, report.Grade),
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 80,
		Bars:     bars,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 10},
		},
	}

	return render(graph)
}

// LearningProfile renders the counts of strengths, challenges and
// interventions identified for one student.
func LearningProfile(report *models.StudentReport) ([]byte, error) {
	a := report.Analysis
	counts := []int{len(a.DetailedStrengths), len(a.DetailedChallenges), len(a.Interventions)}
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		return nil, ErrNoData
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("%s - Learning Profile Overview", report.StudentName),
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 120,
		Bars: []chart.Value{
			{Label: fmt.Sprintf("Strengths (%d)", counts[0]), Value: float64(counts[0])},
			{Label: fmt.Sprintf("Challenges (%d)", counts[1]), Value: float64(counts[1])},
			{Label: fmt.Sprintf("Interventions (%d)", counts[2]), Value: float64(counts[2])},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount)},
		},
	}

	return render(graph)
}

// GradeDistribution renders the share of students per grade as a pie chart.
func GradeDistribution(dist map[string]int) ([]byte, error) {
	values := make([]chart.Value, 0, len(dist))
	for _, grade := range sortedKeys(dist) {
		if dist[grade] <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", grade, dist[grade]),
			Value: float64(dist[grade]),
		})
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}

	graph := chart.PieChart{
		Title:  "Grade Distribution",
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}

	return render(graph)
}

// GradePerformance renders the mean performance score per grade.
func GradePerformance(perf map[string]float64) ([]byte, error) {
	return scoreBars("Academic Performance by Grade", perf)
}

// SkillAverages renders the class mean for each performance axis.
func SkillAverages(skills map[string]float64) ([]byte, error) {
	return scoreBars("Class Skill Averages", skills)
}

func scoreBars(title string, scores map[string]float64) ([]byte, error) {
	if len(scores) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, 0, len(scores))
	for _, key := range sortedKeys(scores) {
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s (%.1f)", key, scores[key]),
			Value: scores[key],
		})
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 90,
		Bars:     bars,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 10},
		},
	}

	return render(graph)
}

// ClassDynamics renders the multi-grade classroom dynamics counts.
func ClassDynamics(d *analytics.Dynamics, total int) ([]byte, error) {
	if total == 0 {
		return nil, ErrNoData
	}

	graph := chart.BarChart{
		Title:    "Multi-Grade Classroom Dynamics",
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 120,
		Bars: []chart.Value{
			{Label: "Peer Helpers", Value: float64(d.PeerHelpers)},
			{Label: "Need Individual Attention", Value: float64(d.IndividualAttention)},
			{Label: "Good in Mixed Groups", Value: float64(d.MixedGroups)},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(total)},
		},
	}

	return render(graph)
}

// PaceDistribution renders learning pace counts as a pie chart.
func PaceDistribution(dist map[string]int) ([]byte, error) {
	return countPie("Learning Pace Distribution", dist)
}

// AttentionDistribution renders attention span counts as a bar chart.
func AttentionDistribution(dist map[string]int) ([]byte, error) {
	total := 0
	for _, c := range dist {
		total += c
	}
	if total == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, 0, len(dist))
	for _, key := range sortedKeys(dist) {
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s (%d)", key, dist[key]),
			Value: float64(dist[key]),
		})
	}

	graph := chart.BarChart{
		Title:    "Attention Span Distribution",
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 120,
		Bars:     bars,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(total)},
		},
	}

	return render(graph)
}

func countPie(title string, dist map[string]int) ([]byte, error) {
	values := make([]chart.Value, 0, len(dist))
	for _, key := range sortedKeys(dist) {
		if dist[key] <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", key, dist[key]),
			Value: float64(dist[key]),
		})
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}

	graph := chart.PieChart{
		Title:  title,
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}

	return render(graph)
}

func render(graph interface {
	Render(chart.RendererProvider, io.Writer) error
}) ([]byte, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering chart: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
