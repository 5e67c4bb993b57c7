package data

import (
	"os"
	"path/filepath"
	"strings"
)

// FindDataFile locates the recorded bars for symbol under dataRoot.
// Layouts tried in order: {SYMBOL}.csv, {symbol}.csv, {SYMBOL}/candles.csv.
// Returns the attempted paths when nothing is found.
func FindDataFile(dataRoot, symbol string) (string, []string) {
	upper := strings.ToUpper(symbol)
	candidates := []string{
		filepath.Join(dataRoot, upper+".csv"),
		filepath.Join(dataRoot, strings.ToLower(symbol)+".csv"),
		filepath.Join(dataRoot, upper, "candles.csv"),
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", candidates
}
