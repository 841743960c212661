package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TurnState is the state of one pick's countdown.
type TurnState int

const (
	TurnRunning TurnState = iota
	TurnPaused
	TurnExpired
	TurnSuperseded
)

func (s TurnState) String() string {
	switch s {
	case TurnRunning:
		return "running"
	case TurnPaused:
		return "paused"
	case TurnExpired:
		return "expired"
	case TurnSuperseded:
		return "superseded"
	}
	return fmt.Sprintf("TurnState(%d)", int(s))
}

// TurnKey identifies a turn. A timer only ever acts on the turn it was
// armed for.
type TurnKey struct {
	DraftID    uuid.UUID
	PickNumber int
}

func (k TurnKey) String() string {
	return fmt.Sprintf("%s#%d", k.DraftID, k.PickNumber)
}

// Turn is the countdown of the team on the clock. Version is the draft
// version the countdown was (re)armed from; pause and resume bump it.
type Turn struct {
	Key      TurnKey
	TeamID   uuid.UUID
	Round    int
	Version  int64
	Duration time.Duration
	// StartedAt is when the current countdown began: the turn's start or
	// the last resume.
	StartedAt time.Time
	Deadline  time.Time
	State     TurnState
	// Attempt counts escalations retried after a failure.
	Attempt int

	cancel context.CancelFunc
}

// Remaining is the time left on the clock at now.
func (t *Turn) Remaining(now time.Time) time.Duration {
	switch t.State {
	case TurnPaused:
		return t.Duration
	case TurnRunning:
		if r := t.Deadline.Sub(now); r > 0 {
			return r
		}
	}
	return 0
}

// arm restarts the countdown at full duration from startedAt.
func (t *Turn) arm(startedAt time.Time, version int64) {
	t.StartedAt = startedAt
	t.Deadline = startedAt.Add(t.Duration)
	t.Version = version
	t.State = TurnRunning
	t.Attempt = 0
}

// retry puts an expired turn back on a short clock after a failed escalation.
func (t *Turn) retry(deadline time.Time) bool {
	if t.State != TurnExpired {
		return false
	}
	t.Deadline = deadline
	t.State = TurnRunning
	t.Attempt++
	return true
}

func (t *Turn) pause(version int64) {
	t.stop()
	t.Version = version
	t.State = TurnPaused
}

func (t *Turn) supersede() {
	t.stop()
	t.State = TurnSuperseded
}

// expire moves a running turn past its deadline to expired.
func (t *Turn) expire(now time.Time) bool {
	if t.State != TurnRunning || now.Before(t.Deadline) {
		return false
	}
	t.State = TurnExpired
	return true
}

func (t *Turn) stop() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// expiry is the unit of work handed to the worker pool.
type expiry struct {
	Key       TurnKey
	TeamID    uuid.UUID
	Version   int64
	Attempt   int
	ExpiredAt time.Time
}

func (e expiry) claimKey() string {
	if e.Attempt > 0 {
		return fmt.Sprintf("expire:%s:%d:%d:%d", e.Key.DraftID, e.Key.PickNumber, e.Version, e.Attempt)
	}
	return fmt.Sprintf("expire:%s:%d:%d", e.Key.DraftID, e.Key.PickNumber, e.Version)
}
