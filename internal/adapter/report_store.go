package adapter

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	m "vdrm.dev/pkg/vdrm/internal/model"
)

// ReportStore persists resistance call reports between runs.
type ReportStore interface {
	SaveReports(path m.Path, reports []m.Report) error
	LoadReports(path m.Path) ([]m.Report, error)
}

// FileReportStore stores reports as a YAML document on the local filesystem.
type FileReportStore struct{}

// NewFileReportStore constructs a FileReportStore.
func NewFileReportStore() *FileReportStore {
	return &FileReportStore{}
}

// SaveReports writes the reports to path, replacing any previous content.
func (s *FileReportStore) SaveReports(path m.Path, reports []m.Report) error {
	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}

	if err := os.WriteFile(string(path), data, 0o600); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	slog.Debug("saved reports", "path", path, "count", len(reports))

	return nil
}

// LoadReports reads back a report file written by SaveReports.
func (s *FileReportStore) LoadReports(path m.Path) ([]m.Report, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}

	var reports []m.Report
	if err := yaml.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("parse reports %s: %w", path, err)
	}

	slog.Debug("loaded reports", "path", path, "count", len(reports))

	return reports, nil
}
