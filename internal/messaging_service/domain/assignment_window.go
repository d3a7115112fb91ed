package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WindowStatus is the lifecycle state of an assignment window.
type WindowStatus string

const (
	WindowStatusActive    WindowStatus = "active"
	WindowStatusExpired   WindowStatus = "expired"
	WindowStatusCancelled WindowStatus = "cancelled"
)

// AssignmentWindow is a time-bounded claim that a sitter owns a thread's
// routing for [StartAt, EndAt]. Window creation lives in the scheduling
// side of the platform; this core only reads them.
type AssignmentWindow struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	ThreadID  uuid.UUID
	SitterID  uuid.UUID
	StartAt   time.Time
	EndAt     time.Time
	Status    WindowStatus
	CreatedAt time.Time
}

// Contains reports whether at falls inside the window's interval.
func (w *AssignmentWindow) Contains(at time.Time) bool {
	return !at.Before(w.StartAt) && !at.After(w.EndAt)
}

// MostRecentWindow is the documented tie-break for the data-quality anomaly
// of overlapping active windows on one thread: latest StartAt wins, with
// the lexically greatest ID as the final deterministic tiebreaker. Callers
// should flag len(windows) > 1 as a data-integrity warning; this function
// never errors on it.
func MostRecentWindow(windows []*AssignmentWindow) *AssignmentWindow {
	var best *AssignmentWindow
	for _, w := range windows {
		if w == nil {
			continue
		}
		if best == nil || w.StartAt.After(best.StartAt) {
			best = w
			continue
		}
		if w.StartAt.Equal(best.StartAt) && strings.Compare(w.ID.String(), best.ID.String()) > 0 {
			best = w
		}
	}
	return best
}

type AssignmentWindowRepository interface {
	// ActiveWindowsForThread returns active windows satisfying
	// start_at <= at <= end_at, ordered by start_at descending.
	ActiveWindowsForThread(ctx context.Context, orgID, threadID uuid.UUID, at time.Time) ([]*AssignmentWindow, error)
	// ActiveWindowForSitter reports the sitter's current window on a thread,
	// or ErrNotFound. Used to gate inbound delivery.
	ActiveWindowForSitter(ctx context.Context, orgID, threadID, sitterID uuid.UUID, at time.Time) (*AssignmentWindow, error)
}
