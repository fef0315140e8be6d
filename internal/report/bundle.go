package report

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sahayak-analytics/backend/internal/models"
)

// bundleFile is one named entry in the report ZIP.
type bundleFile struct {
	Name string
	Data []byte
}

// Bundle holds every artifact that goes into the downloadable ZIP:
// the PDF document, the raw analysis JSON and all rendered charts.
type Bundle struct {
	files []bundleFile
}

func (b *Bundle) add(name string, data []byte) {
	b.files = append(b.files, bundleFile{Name: name, Data: data})
}

// AddPDF adds the main report document.
func (b *Bundle) AddPDF(timestamp string, data []byte) {
	b.add(fmt.Sprintf("SAHAYAK_Complete_Report_%s.pdf", timestamp), data)
}

// AddChart adds one rendered chart PNG.
func (b *Bundle) AddChart(name string, data []byte) {
	b.add(name+".png", data)
}

// AddAnalysisData serializes the raw per-student analysis results.
func (b *Bundle) AddAnalysisData(timestamp string, generated time.Time, reports []*models.StudentReport) error {
	payload := struct {
		Metadata struct {
			System        string `json:"system"`
			Version       string `json:"version"`
			TotalStudents int    `json:"total_students"`
			AnalysisDate  string `json:"analysis_date"`
			DesignedFor   string `json:"designed_for"`
		} `json:"metadata"`
		Students []*models.StudentReport `json:"students"`
	}{Students: reports}
	payload.Metadata.System = "SAHAYAK - AI Teaching Assistant"
	payload.Metadata.Version = "1.0 - Multi-Grade Classroom Analytics"
	payload.Metadata.TotalStudents = len(reports)
	payload.Metadata.AnalysisDate = generated.Format(time.RFC3339)
	payload.Metadata.DesignedFor = "Under-resourced multi-grade classrooms in India"

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling analysis data: %w", err)
	}
	b.add(fmt.Sprintf("sahayak_analysis_data_%s.json", timestamp), data)
	return nil
}

// WriteZip writes all bundle entries as a deflated ZIP archive.
func (b *Bundle) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, f := range b.files {
		entry, err := zw.Create(f.Name)
		if err != nil {
			zw.Close()
			return fmt.Errorf("creating zip entry %s: %w", f.Name, err)
		}
		if _, err := entry.Write(f.Data); err != nil {
			zw.Close()
			return fmt.Errorf("writing zip entry %s: %w", f.Name, err)
		}
	}
	return zw.Close()
}
