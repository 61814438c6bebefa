package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth/internal/application/port"
	"networth/internal/domain/model"
)

type fixedHistory []*model.Snapshot

func (h fixedHistory) Append(context.Context, *model.Snapshot) (string, error) { return "", nil }
func (h fixedHistory) Latest(context.Context) (*model.Snapshot, error) { return nil, nil }
func (h fixedHistory) History(context.Context, port.HistoryQuery) ([]*model.Snapshot, error) {
	return h, nil
}

type idWriter struct{}

func (idWriter) Format() string { return "csv" }
func (idWriter) Extension() string { return ".csv" }
func (idWriter) Write(w io.Writer, snaps []*model.Snapshot) error {
	for _, s := range snaps {
		if _, err := io.WriteString(w, s.ID+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func newExportService(snaps ...*model.Snapshot) *ExportService {
	svc := NewExportService(fixedHistory(snaps), func(string) (port.SnapshotWriter, error) { return idWriter{}, nil })
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestExportNamesAreUniqueWithinASecond(t *testing.T) {
	dir := t.TempDir()
	svc := newExportService(model.NewSnapshot("s1", testNow, "PLN", nil))

	first, err := svc.Export(context.Background(), "csv", dir, port.HistoryQuery{})
	require.NoError(t, err)
	defer first.Close()
	second, err := svc.Export(context.Background(), "csv", dir, port.HistoryQuery{})
	require.NoError(t, err)
	defer second.Close()

	assert.NotEqual(t, first.Name(), second.Name())
	assert.Equal(t, dir, filepath.Dir(first.Name()))
	assert.True(t, strings.HasPrefix(filepath.Base(first.Name()), "networth-20260302-120000-"))

	// removing one export leaves the other readable
	require.NoError(t, os.Remove(first.Name()))
	body, err := io.ReadAll(second)
	require.NoError(t, err)
	assert.Equal(t, "s1\n", string(body))
}

func TestExportToExplicitPathOverwrites(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out", "history.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("stale content that is longer\n"), 0o644))

	f, err := newExportService(model.NewSnapshot("s2", testNow, "PLN", nil)).
		Export(context.Background(), "csv", target, port.HistoryQuery{})
	require.NoError(t, err)
	defer f.Close()

	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "s2\n", string(body))
}
