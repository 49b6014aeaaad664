package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// SummaryFile is written next to the aggregate logs.
const SummaryFile = "summary.yaml"

// Summary is the machine-readable outcome of a run.
type Summary struct {
	RunID       string    `yaml:"run_id"`
	Host        string    `yaml:"host"`
	Started     time.Time `yaml:"started"`
	Elapsed     string    `yaml:"elapsed"`
	Seed        uint64    `yaml:"seed"`
	Workers     int       `yaml:"workers"`
	Jobs        int       `yaml:"jobs"`
	FailedJobs  int       `yaml:"failed_jobs"`
	Errors      int       `yaml:"errors"`
	Warnings    int       `yaml:"warnings"`
	ErrorsLog   string    `yaml:"errors_log"`
	WarningsLog string    `yaml:"warnings_log"`
}

// Summary fills the count fields from the report.
func (r *Report) Summary(runID, host string, started time.Time, elapsed time.Duration) Summary {
	return Summary{
		RunID:       runID,
		Host:        host,
		Started:     started,
		Elapsed:     elapsed.Round(time.Millisecond).String(),
		Errors:      r.Errors,
		Warnings:    r.Warnings,
		ErrorsLog:   r.ErrorsPath,
		WarningsLog: r.WarningsPath,
	}
}

// WriteSummary encodes s into the report's log directory and returns the
// file path.
func (r *Report) WriteSummary(s Summary) (string, error) {
	path := filepath.Join(r.LogDir, SummaryFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create summary: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// LoadSummary reads summary.yaml from a log directory.
func LoadSummary(logDir string) (*Summary, error) {
	data, err := os.ReadFile(filepath.Join(logDir, SummaryFile))
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", SummaryFile, err)
	}
	return &s, nil
}
