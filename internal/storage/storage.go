package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store resolves filesystem locations for plan documents, data files, raw
// results and generated reports under a single base directory. It hands out
// path strings only; callers own all file I/O.
type Store struct {
	baseDir string
}

// New creates a Store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init creates the storage layout beneath the base directory.
func (s *Store) Init() error {
	for _, dir := range []string{s.JmxDir(), s.CsvDir(), s.ResultsDir(), s.ReportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return nil
}

// BaseDir returns the storage root.
func (s *Store) BaseDir() string { return s.baseDir }

// JmxDir returns the plan document directory.
func (s *Store) JmxDir() string { return filepath.Join(s.baseDir, "jmx") }

// CsvDir returns the data file directory. This is also the engine-host
// convention the plan mutator rewrites data-file references to.
func (s *Store) CsvDir() string { return filepath.Join(s.baseDir, "csv") }

// ResultsDir returns the raw result and execution log directory.
func (s *Store) ResultsDir() string { return filepath.Join(s.baseDir, "results") }

// ReportsDir returns the generated report directory.
func (s *Store) ReportsDir() string { return filepath.Join(s.baseDir, "reports") }

// ResolveJmx turns a stored plan reference into an absolute path. Absolute
// references pass through; bare names resolve under the jmx directory.
func (s *Store) ResolveJmx(ref string) string {
	return s.resolve(s.JmxDir(), ref)
}

// ResolveCsv turns a stored data-file reference into an absolute path.
func (s *Store) ResolveCsv(ref string) string {
	return s.resolve(s.CsvDir(), ref)
}

func (s *Store) resolve(dir, ref string) string {
	if ref == "" {
		return ""
	}
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(dir, ref)
}

// CleanupModifiedPlans removes temporary mutated plan documents older than
// cutoff left behind by interrupted runs.
func (s *Store) CleanupModifiedPlans(cutoff time.Duration) (int, error) {
	entries, err := os.ReadDir(s.ResultsDir())
	if err != nil {
		return 0, err
	}

	removed := 0
	deadline := time.Now().Add(-cutoff)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "modified_") || !strings.HasSuffix(name, ".jmx") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(deadline) {
			continue
		}
		if err := os.Remove(filepath.Join(s.ResultsDir(), name)); err == nil {
			removed++
		}
	}
	return removed, nil
}
