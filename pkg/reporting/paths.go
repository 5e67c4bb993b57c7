package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultOutputDir is used when no report directory is configured
const DefaultOutputDir = "reports"

// ReportPath returns dir/<prefix>_<yyyymmdd_hhmmss>.<ext>
func ReportPath(dir, prefix, ext string, at time.Time) string {
	if dir == "" {
		dir = DefaultOutputDir
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, at.UTC().Format("20060102_150405"), ext))
}

// EnsureDirectoryExists creates the parent directory of path
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
