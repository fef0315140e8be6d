// Package roster parses uploaded student roster files into StudentRecords.
package roster

import (
	"fmt"
	"strings"

	"github.com/sahayak-analytics/backend/internal/models"
)

// RecordError represents an error encountered while parsing a roster.
type RecordError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// Parser converts a roster file into student records.
type Parser interface {
	// Name returns the parser's unique name.
	Name() string

	// CanParse inspects the file and reports whether this parser handles it.
	CanParse(filePath string) (bool, error)

	// Parse reads the file and returns records plus per-record errors.
	// Records that fail validation are skipped, not fatal.
	Parse(filePath string) ([]models.StudentRecord, []*RecordError, error)
}

// Registry holds all available parsers and provides auto-detection.
type Registry struct {
	parsers []Parser
}

// Global registry instance
var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		parsers: []Parser{
			NewJSONRosterParser(),
			NewCSVRosterParser(),
		},
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register adds a new parser to the registry.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// FindParser detects the correct parser for a file.
func (r *Registry) FindParser(filePath string) (Parser, error) {
	for _, p := range r.parsers {
		can, err := p.CanParse(filePath)
		if err != nil {
			continue
		}
		if can {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no suitable parser found for file: %s", filePath)
}

// GetParserByName returns a parser by its name.
func (r *Registry) GetParserByName(name string) (Parser, error) {
	name = strings.ToLower(name)
	for _, p := range r.parsers {
		if strings.ToLower(p.Name()) == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("parser not found: %s", name)
}
