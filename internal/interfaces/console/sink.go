package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"networth/internal/application/port"
	"networth/internal/domain/model"
)

// Sink prints a one-line summary of every committed snapshot.
type Sink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewSink(out io.Writer) *Sink {
	if out == nil {
		out = os.Stdout
	}
	return &Sink{out: out}
}

func (s *Sink) Name() string { return "console" }

func (s *Sink) Publish(_ context.Context, snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := fmt.Sprintf("%s %s", snap.TakenAt.Local().Format("2006-01-02 15:04:05"), Amount(snap.Total, snap.ReportingCurrency))
	if snap.Partial {
		line += fmt.Sprintf(" partial, %d missing", len(snap.Missing))
	}
	_, err := fmt.Fprintln(s.out, line)
	return err
}

var _ port.Sink = (*Sink)(nil)
