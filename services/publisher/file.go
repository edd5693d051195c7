package publisher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tablescout/reviewworker/services/metrics"
)

// FilePublisher implements Publisher as a flat-file sink: one JSON file per
// location under a directory, overwritten on re-scrape.
type FilePublisher struct {
	dir string
}

// NewFilePublisher creates the directory if needed and returns the sink
func NewFilePublisher(dir string) (*FilePublisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &FilePublisher{dir: dir}, nil
}

// Publish writes one record as <dir>/<locationID>.json
func (p *FilePublisher) Publish(locationID string, record []byte) error {
	name := sanitizeName(locationID)
	if name == "" {
		name = "unknown"
	}
	path := filepath.Join(p.dir, name+".json")
	if err := os.WriteFile(path, record, 0o644); err != nil {
		return fmt.Errorf("failed to write record file: %w", err)
	}
	metrics.RecordsPublished.WithLabelValues("file").Inc()
	return nil
}

// Trim is a no-op for the file sink
func (p *FilePublisher) Trim() error {
	return nil
}

// Close is a no-op for the file sink
func (p *FilePublisher) Close() error {
	return nil
}

// sanitizeName keeps file names to a safe character set
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
