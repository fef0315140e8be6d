// Package pdf assembles the complete analytics report document.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/sahayak-analytics/backend/internal/analytics"
	"github.com/sahayak-analytics/backend/internal/models"
)

const (
	pageWidth   = 210.0
	marginLeft  = 15.0
	marginRight = 15.0
	contentW    = pageWidth - marginLeft - marginRight

	chartW = contentW
	chartH = chartW * 0.55
)

const challengeText = "The Challenge: In countless under-resourced schools across India, a single teacher often manages " +
	"multiple grades in one classroom. These educators are stretched thin, lacking the time and tools to create " +
	"localized teaching aids, address diverse learning levels, and personalize education for every child."

const objectiveText = "SAHAYAK's Objective: This AI-powered teaching assistant empowers teachers in multi-grade, " +
	"low-resource environments with comprehensive student analytics, actionable insights, and practical " +
	"intervention strategies."

// StudentSection pairs a student report with its rendered charts.
// Either chart may be nil when rendering failed; the section is emitted
// without it.
type StudentSection struct {
	Report  *models.StudentReport
	Chart   []byte
	Profile []byte
}

// Report carries everything the document needs. Dashboard charts and
// insights come from the analytics store; Recommendations is the final page.
type Report struct {
	GeneratedAt     time.Time
	GradeCount      int
	Students        []StudentSection
	DashboardCharts [][]byte
	Insights        []analytics.Insight
	Recommendations []string
}

// Render writes the complete PDF document to w.
func (r *Report) Render(w io.Writer) error {
	d := &document{pdf: fpdf.New("P", "mm", "A4", "")}
	d.pdf.SetMargins(marginLeft, 20, marginRight)
	d.pdf.SetAutoPageBreak(true, 20)

	d.titlePage(r)
	d.classOverview(r)
	d.studentSections(r.Students)
	d.recommendations(r.Recommendations)

	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("building pdf: %w", err)
	}
	return d.pdf.Output(w)
}

type document struct {
	pdf    *fpdf.Fpdf
	images int
}

func (d *document) titlePage(r *Report) {
	d.pdf.AddPage()

	d.pdf.SetFont("Helvetica", "B", 24)
	d.pdf.SetTextColor(0, 0, 139)
	d.pdf.CellFormat(contentW, 14, "SAHAYAK", "", 1, "C", false, 0, "")

	d.pdf.SetFont("Helvetica", "B", 16)
	d.pdf.SetTextColor(0, 100, 0)
	d.pdf.CellFormat(contentW, 10, "AI Teaching Assistant - Complete Student Analytics Report", "", 1, "C", false, 0, "")
	d.pdf.Ln(8)

	d.body(challengeText)
	d.pdf.Ln(4)
	d.body(objectiveText)
	d.pdf.Ln(12)

	d.summaryTable(r)
}

func (d *document) summaryTable(r *Report) {
	rows := [][2]string{
		{"Report Generated:", r.GeneratedAt.Format("2006-01-02 15:04")},
		{"Total Students Analyzed:", fmt.Sprintf("%d", len(r.Students))},
		{"Grades Represented:", fmt.Sprintf("%d", r.GradeCount)},
		{"Analysis Type:", "Comprehensive AI-Powered Assessment"},
	}

	d.pdf.SetFont("Helvetica", "B", 12)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.SetFillColor(211, 211, 211)
	colW := contentW / 2
	for _, row := range rows {
		d.pdf.CellFormat(colW, 10, row[0], "1", 0, "L", true, 0, "")
		d.pdf.CellFormat(colW, 10, row[1], "1", 1, "L", true, 0, "")
	}
}

func (d *document) classOverview(r *Report) {
	d.pdf.AddPage()
	d.heading("Class Overview Dashboard")

	for _, png := range r.DashboardCharts {
		d.image(png, chartW, chartH)
		d.pdf.Ln(4)
	}

	d.subheading("Class-Wide Strategic Insights")
	for _, insight := range r.Insights {
		if insight.Heading {
			d.pdf.Ln(2)
			d.boldLine(insight.Text)
			continue
		}
		d.bullet(insight.Text)
	}
}

func (d *document) studentSections(students []StudentSection) {
	d.pdf.AddPage()
	d.heading("Individual Student Reports")

	for i, s := range students {
		if i > 0 {
			d.pdf.AddPage()
		}
		d.studentSection(s)
	}
}

func (d *document) studentSection(s StudentSection) {
	report := s.Report
	analysis := report.Analysis

	d.subheading(fmt.Sprintf("Student Report: %s (%s)", report.StudentName, report.Grade))
	d.body(fmt.Sprintf("Subject Focus: %s", report.Subject))
	d.pdf.Ln(4)

	if len(s.Chart) > 0 {
		d.image(s.Chart, chartW, chartH)
		d.pdf.Ln(4)
	}
	if len(s.Profile) > 0 {
		d.image(s.Profile, chartW, chartH)
		d.pdf.Ln(4)
	}

	d.boldLine("Teacher's Observation:")
	remark := report.OriginalRemark
	if remark == "" {
		remark = "No observation recorded"
	}
	d.body(fmt.Sprintf("%q", remark))
	d.pdf.Ln(3)

	if actions := analysis.PersonalizedSummary.ImmediateActionsForTomorrow; len(actions) > 0 {
		d.boldLine("SAHAYAK AI Analysis - Immediate Actions:")
		for _, action := range actions {
			d.bullet(action)
		}
		d.pdf.Ln(3)
	}

	if len(analysis.DetailedStrengths) > 0 {
		d.boldLine("Key Strengths:")
		for _, strength := range analysis.DetailedStrengths {
			strategy := strength.TeachingStrategy
			if strategy == "" {
				strategy = "Strategy to be developed"
			}
			d.bullet(fmt.Sprintf("%s: %s", strength.Strength, strategy))
		}
		d.pdf.Ln(2)
	}

	if interventions := analysis.Interventions; len(interventions) > 0 {
		if len(interventions) > 3 {
			interventions = interventions[:3]
		}
		d.boldLine("Immediate Action Items:")
		for _, iv := range interventions {
			schedule := iv.DailySchedule
			if schedule == "" {
				schedule = "Schedule TBD"
			}
			d.bullet(fmt.Sprintf("%s - %s", iv.Intervention, schedule))
		}
		d.pdf.Ln(2)
	}

	if week := analysis.PersonalizedSummary.ThisWeekImplementation; len(week) > 0 {
		d.boldLine("This Week Implementation:")
		for _, item := range week {
			d.bullet(item)
		}
	}
}

func (d *document) recommendations(recs []string) {
	d.pdf.AddPage()
	d.heading("Multi-Grade Teaching Recommendations")
	for _, rec := range recs {
		d.bullet(rec)
		d.pdf.Ln(1)
	}
}

func (d *document) heading(text string) {
	d.pdf.SetFont("Helvetica", "B", 16)
	d.pdf.SetTextColor(0, 100, 0)
	d.pdf.CellFormat(contentW, 10, text, "", 1, "L", false, 0, "")
	d.pdf.Ln(2)
}

func (d *document) subheading(text string) {
	d.pdf.SetFont("Helvetica", "B", 14)
	d.pdf.SetTextColor(139, 0, 0)
	d.pdf.CellFormat(contentW, 8, text, "", 1, "L", false, 0, "")
	d.pdf.Ln(1)
}

func (d *document) boldLine(text string) {
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.MultiCell(contentW, 6, text, "", "L", false)
}

func (d *document) body(text string) {
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.MultiCell(contentW, 6, text, "", "L", false)
}

func (d *document) bullet(text string) {
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.MultiCell(contentW, 6, "- "+text, "", "L", false)
}

func (d *document) image(png []byte, w, h float64) {
	d.images++
	name := fmt.Sprintf("chart-%d", d.images)
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	d.pdf.ImageOptions(name, marginLeft, 0, w, h, true, opts, 0, "")
}
