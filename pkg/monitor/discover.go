package monitor

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// Extension is the watched file extension.
	Extension = ".prompt"
	// CompleteSuffix marks a successfully processed file.
	CompleteSuffix = ".complete"
	// ErrorSuffix marks a file whose processing failed.
	ErrorSuffix = ".error"
)

// Discover returns a candidate job for every prompt file in dir, excluding
// any name already bearing a terminal suffix.
func Discover(dir string) ([]*Job, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+Extension))
	if err != nil {
		return nil, errors.Wrap(err, "glob prompt files")
	}

	jobs := make([]*Job, 0, len(paths))
	for _, path := range paths {
		if strings.HasSuffix(path, CompleteSuffix) || strings.HasSuffix(path, ErrorSuffix) {
			continue
		}
		jobs = append(jobs, &Job{Path: path, Status: StatusCandidate})
	}
	return jobs, nil
}

// IsStable reports whether the file's size held steady across the sample
// delay. This is a heuristic for "nobody is writing this right now": a
// writer that pauses for longer than the delay mid-write will be
// misclassified as stable. A file that vanishes or cannot be read between
// samples is reported unstable, never as an error.
func IsStable(path string, delay time.Duration) bool {
	before, err := os.Stat(path)
	if err != nil {
		return false
	}
	time.Sleep(delay)
	after, err := os.Stat(path)
	if err != nil {
		return false
	}
	return before.Size() == after.Size()
}
