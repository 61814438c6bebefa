package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"networth/internal/application/port"
)

// ExportService writes snapshot history to a file.
type ExportService struct {
	snapshots port.SnapshotRepository
	writerFor func(format string) (port.SnapshotWriter, error)
	now       func() time.Time
}

func NewExportService(snapshots port.SnapshotRepository, writerFor func(format string) (port.SnapshotWriter, error)) *ExportService {
	return &ExportService{snapshots: snapshots, writerFor: writerFor, now: time.Now}
}

// Export writes every snapshot matching q to target and returns the file
// rewound to its start. An empty target or a directory gets a generated
// file name, unique per call, that never replaces an existing file.
func (s *ExportService) Export(ctx context.Context, format, target string, q port.HistoryQuery) (*os.File, error) {
	w, err := s.writerFor(format)
	if err != nil {
		return nil, err
	}
	snaps, err := s.snapshots.History(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	path, generated, err := s.resolveTarget(target, w.Extension())
	if err != nil {
		return nil, err
	}
	flags := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if generated {
		flags = os.O_RDWR | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create export file: %w", err)
	}
	if err := w.Write(f, snaps); err != nil {
		f.Close()
		return nil, fmt.Errorf("export %s: %w", w.Format(), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, fmt.Errorf("sync export file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	log.Info().
		Str("format", w.Format()).
		Str("path", path).
		Int("snapshots", len(snaps)).
		Msg("export written")
	return f, nil
}

func (s *ExportService) resolveTarget(target, ext string) (string, bool, error) {
	name := fmt.Sprintf("networth-%s-%s%s", s.now().UTC().Format("20060102-150405"), uuid.NewString()[:8], ext)
	if target == "" {
		return name, true, nil
	}
	if st, err := os.Stat(target); err == nil && st.IsDir() {
		return filepath.Join(target, name), true, nil
	}
	if dir := filepath.Dir(target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", false, fmt.Errorf("create export dir: %w", err)
		}
	}
	return target, false, nil
}
