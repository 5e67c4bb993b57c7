package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/whale-tracker/internal/orchestrator"
)

// WriteSnapshotJSON writes the dashboard document to path, indented
func WriteSnapshotJSON(s orchestrator.Snapshot, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}
