package export

import (
	"fmt"
	"io"
	"strings"

	"networth/internal/domain"
	"networth/internal/domain/model"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Formats lists the supported export formats.
var Formats = []string{FormatCSV, FormatParquet}

// Writer writes snapshots in one format.
type Writer struct {
	format string
}

func NewWriter(format string) (*Writer, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	switch f {
	case FormatCSV, FormatParquet:
		return &Writer{format: f}, nil
	default:
		return nil, fmt.Errorf("%w %q (want csv or parquet)", domain.ErrUnsupportedFormat, format)
	}
}

func (w *Writer) Format() string { return w.format }

// Extension is the file suffix for the format, dot included.
func (w *Writer) Extension() string { return "." + w.format }

func (w *Writer) Write(out io.Writer, snaps []*model.Snapshot) error {
	rows := Rows(snaps)
	if w.format == FormatParquet {
		return WriteParquet(out, rows)
	}
	return WriteCSV(out, rows)
}
