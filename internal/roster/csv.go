package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sahayak-analytics/backend/internal/models"
)

// CSVRosterParser handles CSV rosters.
// Expects a header row naming at least: name, grade, subject, remark.
// Column order is free; an exam_date column is optional.
type CSVRosterParser struct{}

func NewCSVRosterParser() *CSVRosterParser {
	return &CSVRosterParser{}
}

func (p *CSVRosterParser) Name() string {
	return "csv_roster"
}

var requiredColumns = []string{"name", "grade", "subject", "remark"}

func (p *CSVRosterParser) CanParse(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		return false, nil
	}

	cols := headerIndex(header)
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (p *CSVRosterParser) Parse(filePath string) ([]models.StudentRecord, []*RecordError, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1 // ragged rows reported per-record, not fatal

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}

	cols := headerIndex(header)
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("CSV header is missing column %q", required)
		}
	}

	records := make([]models.StudentRecord, 0)
	errors := make([]*RecordError, 0)

	lineNum := 1
	for {
		lineNum++
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errors = append(errors, &RecordError{
				Line:    lineNum,
				Content: "",
				Reason:  err.Error(),
			})
			continue
		}

		rec := models.StudentRecord{
			Name:    field(row, cols, "name"),
			Grade:   field(row, cols, "grade"),
			Subject: field(row, cols, "subject"),
			Remark:  field(row, cols, "remark"),
		}
		if idx, ok := cols["exam_date"]; ok && idx < len(row) {
			rec.ExamDate = strings.TrimSpace(row[idx])
		}

		if err := rec.Validate(); err != nil {
			errors = append(errors, &RecordError{
				Line:    lineNum,
				Content: truncate(strings.Join(row, ","), 120),
				Reason:  err.Error(),
			})
			continue
		}
		records = append(records, rec)
	}

	return records, errors, nil
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func field(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
