// Package logging writes per-run file logs: a plain-text summary, the
// captured output of every unexpected failure, and the raw test2json
// streams for replay through tools that consume that format.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"
)

const (
	RunDirectoryPrefix = "testrun-" // prefix for per-run directories
	SummaryFilename    = "summary.txt"
	FailedDirName      = "failed"
	RawDirName         = "raw"
)

// FileLogger handles writing test output to files. All methods are safe for
// concurrent use.
type FileLogger struct {
	baseDir   string // root log directory
	runDir    string // directory of this run
	failedDir string
	rawDir    string
	runID     string
	mu        sync.Mutex
}

// NewFileLogger creates the per-run directory layout under baseDir
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	failedDir := filepath.Join(runDir, FailedDirName)
	rawDir := filepath.Join(runDir, RawDirName)
	for _, dir := range []string{runDir, failedDir, rawDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}

	return &FileLogger{
		baseDir:   baseDir,
		runDir:    runDir,
		failedDir: failedDir,
		rawDir:    rawDir,
		runID:     runID,
	}, nil
}

// GetRunID returns the run ID this logger was created for
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// RunDir returns the directory holding this run's logs
func (l *FileLogger) RunDir() string {
	return l.runDir
}

// WriteSummary writes the plain-text session summary
func (l *FileLogger) WriteSummary(content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	path := filepath.Join(l.runDir, SummaryFilename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// LogFailure stores the captured output of an unexpectedly failing test,
// ANSI escape sequences stripped, under failed/<sanitized-id>.txt
func (l *FileLogger) LogFailure(testID string, output string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	path := filepath.Join(l.failedDir, SanitizeFilename(testID)+".txt")
	if err := os.WriteFile(path, []byte(stripansi.Strip(output)), 0o644); err != nil {
		return fmt.Errorf("failed to write failure log for %s: %w", testID, err)
	}
	return nil
}

// StoreRawJSON stores the raw test2json stream of one work unit under
// raw/<sanitized-key>.json
func (l *FileLogger) StoreRawJSON(unitKey string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	path := filepath.Join(l.rawDir, SanitizeFilename(unitKey)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write raw JSON for %s: %w", unitKey, err)
	}
	return nil
}

// SanitizeFilename maps a test identifier to a safe file name. Path
// separators and the :: identifier separator collapse to single
// underscores so distinct identifiers stay distinguishable but never
// escape the log directory.
func SanitizeFilename(id string) string {
	replacer := strings.NewReplacer(
		"::", "_",
		"/", "_",
		"\\", "_",
		":", "_",
		" ", "_",
	)
	sanitized := replacer.Replace(id)
	sanitized = strings.Trim(sanitized, "._")
	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
