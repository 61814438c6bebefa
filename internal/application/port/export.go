package port

import (
	"io"

	"networth/internal/domain/model"
)

// SnapshotWriter serializes snapshots in one tabular format.
type SnapshotWriter interface {
	Format() string
	Extension() string
	Write(w io.Writer, snaps []*model.Snapshot) error
}
