package models

import (
	"fmt"
	"strings"
)

// StudentRecord is a single roster entry: one teacher observation about
// one student in a multi-grade classroom.
type StudentRecord struct {
	Name     string `json:"name"`
	Grade    string `json:"grade"`
	Subject  string `json:"subject"`
	Remark   string `json:"remark"`
	ExamDate string `json:"exam_date,omitempty"`
}

// Validate checks the fields a useful analysis depends on.
func (r *StudentRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(r.Grade) == "" {
		return fmt.Errorf("grade is required")
	}
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if strings.TrimSpace(r.Remark) == "" {
		return fmt.Errorf("remark is required")
	}
	return nil
}
