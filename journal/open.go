package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Open returns the journal named by kind: "sqlite", "csv" or "none".
// For csv, path is a directory that receives sizings.csv and fills.csv.
func Open(kind, path string) (Journal, error) {
	switch strings.ToLower(kind) {
	case "", "none":
		return Nop{}, nil
	case "sqlite":
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return NewSQLite(path)
	case "csv":
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, err
		}
		return NewCSV(filepath.Join(path, "sizings.csv"), filepath.Join(path, "fills.csv"))
	}
	return nil, fmt.Errorf("unknown journal type %q", kind)
}
