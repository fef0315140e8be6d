package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sahayak-analytics/backend/internal/analysis"
	"github.com/sahayak-analytics/backend/internal/models"
)

// StubProvider implements analysis.Provider for testing. With no Err set it
// returns the fallback analysis for every student; with Err set every call
// fails, and with FailFor set only the named students fail.
type StubProvider struct {
	Err      error
	FailFor  map[string]bool
	PanicFor map[string]bool
	Delay    time.Duration

	calls atomic.Int64
}

func (p *StubProvider) Name() string { return "stub" }

func (p *StubProvider) Analyze(ctx context.Context, rec models.StudentRecord) (*models.StudentAnalysis, error) {
	p.calls.Add(1)

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p.PanicFor[rec.Name] {
		panic("stub provider panic for " + rec.Name)
	}
	if p.Err != nil && (p.FailFor == nil || p.FailFor[rec.Name]) {
		return nil, p.Err
	}
	return analysis.FallbackAnalysis(rec), nil
}

// Calls returns how many times Analyze has been invoked.
func (p *StubProvider) Calls() int {
	return int(p.calls.Load())
}

var _ analysis.Provider = (*StubProvider)(nil)
