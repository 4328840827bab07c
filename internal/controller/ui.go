// Package controller provides output adapters for displaying resistance calls.
package controller

import (
	"context"

	m "vdrm.dev/pkg/vdrm/internal/model"
)

// RuleInfo describes one compiled rule for listing purposes.
type RuleInfo struct {
	Name      string
	Rule      string
	Numeric   bool
	Positions []int
	Comment   string
}

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeCall StartMode = iota
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithCallMode sets the UI to rule calling mode.
func WithCallMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeCall
	}
}

// WithViewMode sets the UI to report viewing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// UI defines the interface for displaying rule sets, reports and summaries.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayRuleList(ctx context.Context, setName string, rules []RuleInfo) error
	DisplayConcurrencyInfo(ctx context.Context, threads int, samples int, rules int)
	DisplayReports(ctx context.Context, reports []m.Report) error
	DisplaySummary(ctx context.Context, summaries []m.Summary, rate float64)
}
