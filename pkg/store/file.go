package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileStore writes snapshots into a local directory.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates a file store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &FileStore{
		dir:    dir,
		logger: log.With().Str("component", "file-store").Logger(),
	}, nil
}

// Save writes the blob to dir/name.
func (s *FileStore) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	snapshotsSavedTotal.WithLabelValues("file").Inc()
	snapshotBytes.WithLabelValues("file").Observe(float64(len(data)))

	s.logger.Info().
		Str("path", path).
		Int("bytes", len(data)).
		Msg("Snapshot saved")

	return nil
}
