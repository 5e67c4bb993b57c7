package reporting

import (
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/orchestrator"
	"github.com/ducminhle1904/whale-tracker/internal/portfolio"
	"github.com/ducminhle1904/whale-tracker/internal/position"
)

// DefaultReporter implements the console and file reporters
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
}

var (
	_ ConsoleReporter = (*DefaultReporter)(nil)
	_ FileReporter    = (*DefaultReporter)(nil)
)

// NewDefaultReporter creates a reporter that prints to stdout
func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(nil),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
	}
}

func (r *DefaultReporter) Render(s orchestrator.Snapshot) { r.console.Render(s) }

func (r *DefaultReporter) PrintConfig(rows [][2]string) { r.console.PrintConfig(rows) }

func (r *DefaultReporter) WriteTradesCSV(history []position.Position, path string) error {
	return r.csv.WriteTradesCSV(history, path)
}

func (r *DefaultReporter) WriteTradesXLSX(history []position.Position, summary portfolio.PortfolioState, path string) error {
	return r.excel.WriteTradesXLSX(history, summary, path)
}

func (r *DefaultReporter) WriteSnapshotJSON(s orchestrator.Snapshot, path string) error {
	return WriteSnapshotJSON(s, path)
}

// ReportingManager writes the end-of-run reports selected by its config
type ReportingManager struct {
	reporter *DefaultReporter
	config   ReportingConfig
}

// NewReportingManager creates a new reporting manager with configuration
func NewReportingManager(config ReportingConfig) *ReportingManager {
	return &ReportingManager{
		reporter: NewDefaultReporter(),
		config:   config,
	}
}

// ReportFinal writes the trade history and snapshot and returns the written paths
func (m *ReportingManager) ReportFinal(s orchestrator.Snapshot, history []position.Position, at time.Time) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.Render(s)
	}

	var written []string
	dir := m.config.OutputDirectory
	if m.config.ExcelEnabled {
		path := ReportPath(dir, "trades", "xlsx", at)
		if err := m.reporter.WriteTradesXLSX(history, s.Portfolio, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if m.config.CSVEnabled {
		path := ReportPath(dir, "trades", "csv", at)
		if err := m.reporter.WriteTradesCSV(history, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if m.config.JSONEnabled {
		path := ReportPath(dir, "snapshot", "json", at)
		if err := m.reporter.WriteSnapshotJSON(s, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
