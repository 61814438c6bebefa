package refresh

import (
	"sync"
	"time"

	"networth/internal/domain"
)

type tracker struct {
	mu sync.Mutex
	st Status
}

func newTracker() *tracker {
	return &tracker{st: Status{State: StateIdle}}
}

// begin claims the single writer slot.
func (t *tracker) begin(now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.st.State.Busy() {
		return domain.ErrRefreshInProgress
	}
	t.st.State = StateFetching
	t.st.StartedAt = now
	t.st.LastError = ""
	return nil
}

func (t *tracker) enter(s State) {
	t.mu.Lock()
	t.st.State = s
	t.mu.Unlock()
}

// finish releases the slot. A nil err returns to Idle; any error is kept
// in the status and the state becomes next.
func (t *tracker) finish(now time.Time, next State, outcome string, snapshotID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.State = next
	t.st.FinishedAt = now
	t.st.LastDuration = now.Sub(t.st.StartedAt)
	t.st.LastOutcome = outcome
	if err != nil {
		t.st.LastError = err.Error()
	}
	if snapshotID != "" {
		t.st.LastSnapshotID = snapshotID
		t.st.Completed++
	}
}

func (t *tracker) snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st
}
