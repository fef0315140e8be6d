package roster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sahayak-analytics/backend/internal/models"
)

// JSONRosterParser handles JSON rosters.
// Accepts either a bare array of student objects or an object with a
// "students" array.
type JSONRosterParser struct{}

func NewJSONRosterParser() *JSONRosterParser {
	return &JSONRosterParser{}
}

func (p *JSONRosterParser) Name() string {
	return "json_roster"
}

func (p *JSONRosterParser) CanParse(filePath string) (bool, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return false, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return false, nil
	}
	return trimmed[0] == '[' || trimmed[0] == '{', nil
}

type jsonRoster struct {
	Students []json.RawMessage `json:"students"`
}

func (p *JSONRosterParser) Parse(filePath string) ([]models.StudentRecord, []*RecordError, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil, fmt.Errorf("roster file is empty")
	}

	var raws []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, nil, fmt.Errorf("parsing roster array: %w", err)
		}
	case '{':
		var wrapper jsonRoster
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, nil, fmt.Errorf("parsing roster object: %w", err)
		}
		if wrapper.Students == nil {
			return nil, nil, fmt.Errorf(`roster object is missing a "students" array`)
		}
		raws = wrapper.Students
	default:
		return nil, nil, fmt.Errorf("roster is not valid JSON")
	}

	records := make([]models.StudentRecord, 0, len(raws))
	errors := make([]*RecordError, 0)

	for i, raw := range raws {
		var rec models.StudentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			errors = append(errors, &RecordError{
				Line:    i + 1,
				Content: truncate(string(raw), 120),
				Reason:  "entry is not a student object",
			})
			continue
		}
		if err := rec.Validate(); err != nil {
			errors = append(errors, &RecordError{
				Line:    i + 1,
				Content: truncate(string(raw), 120),
				Reason:  err.Error(),
			})
			continue
		}
		records = append(records, rec)
	}

	return records, errors, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
