package gateway

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/lifecycle"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// TurnInfo is the countdown announced by the latest PickStarted for the
// current pick.
type TurnInfo struct {
	PickNumber int       `json:"pick_number"`
	TeamID     uuid.UUID `json:"team_id"`
	StartedAt  time.Time `json:"started_at"`
	TimeoutAt  time.Time `json:"timeout_at"`
	Expired    bool      `json:"expired"`
}

// DraftProjection is the read-only view of one draft rebuilt from events.
// Settings are last-write-wins by Draft.Version; picks are merged by pick
// number so a replayed PickMade never duplicates a pick.
type DraftProjection struct {
	Draft   models.Draft
	Picks   []models.DraftPick
	Turn    *TurnInfo
	LastSeq int64
}

func NewDraftProjection(d models.Draft, picks []models.DraftPick) *DraftProjection {
	p := &DraftProjection{Draft: d}
	for _, pick := range picks {
		p.mergePick(pick)
	}
	return p
}

// Apply folds env into the projection. It returns false for an envelope
// at or below the last applied seq, which the bus may redeliver.
func (p *DraftProjection) Apply(env events.Envelope) (bool, error) {
	if env.Seq != 0 && env.Seq <= p.LastSeq {
		return false, nil
	}
	snap, err := env.Snapshot()
	if err != nil {
		return false, err
	}
	if env.Seq > p.LastSeq {
		p.LastSeq = env.Seq
	}

	if snap.Draft != nil {
		p.mergeDraft(*snap.Draft)
	}
	if snap.Pick != nil {
		p.mergePick(*snap.Pick)
	}

	switch env.EventType {
	case events.TypePickStarted:
		payload, err := env.Decode()
		if err != nil {
			return true, err
		}
		started := payload.(*events.PickStartedPayload)
		if started.PickNumber == p.Draft.CurrentPick {
			p.Turn = &TurnInfo{
				PickNumber: started.PickNumber,
				TeamID:     started.TeamID,
				StartedAt:  started.StartedAt,
				TimeoutAt:  started.TimeoutAt,
			}
		}
	case events.TypeTurnExpired:
		payload, err := env.Decode()
		if err != nil {
			return true, err
		}
		expired := payload.(*events.TurnExpiredPayload)
		if p.Turn != nil && p.Turn.PickNumber == expired.PickNumber {
			p.Turn.Expired = true
		}
	}
	return true, nil
}

func (p *DraftProjection) mergeDraft(d models.Draft) {
	if d.Version <= p.Draft.Version {
		return
	}
	p.Draft = d
	if p.Turn != nil && (p.Turn.PickNumber != d.CurrentPick || d.Status != models.DraftStatusInProgress) {
		p.Turn = nil
	}
}

func (p *DraftProjection) mergePick(pick models.DraftPick) {
	i := sort.Search(len(p.Picks), func(i int) bool {
		return p.Picks[i].PickNumber >= pick.PickNumber
	})
	if i < len(p.Picks) && p.Picks[i].PickNumber == pick.PickNumber {
		return
	}
	p.Picks = append(p.Picks, models.DraftPick{})
	copy(p.Picks[i+1:], p.Picks[i:])
	p.Picks[i] = pick
}

func (p *DraftProjection) clone() DraftProjection {
	c := *p
	c.Picks = append([]models.DraftPick(nil), p.Picks...)
	c.Draft.DraftOrder = append([]uuid.UUID(nil), p.Draft.DraftOrder...)
	if p.Turn != nil {
		t := *p.Turn
		c.Turn = &t
	}
	return c
}

// Projections holds one DraftProjection per draft seen by this gateway.
type Projections struct {
	mu      sync.Mutex
	byDraft map[uuid.UUID]*DraftProjection
}

func NewProjections() *Projections {
	return &Projections{byDraft: make(map[uuid.UUID]*DraftProjection)}
}

// Apply routes env to its draft's projection, creating it from the
// envelope's snapshot on first sight.
func (ps *Projections) Apply(env events.Envelope) (bool, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	p, ok := ps.byDraft[env.DraftID]
	if !ok {
		p = &DraftProjection{Draft: models.Draft{ID: env.DraftID}}
		ps.byDraft[env.DraftID] = p
	}
	applied, err := p.Apply(env)
	if err != nil {
		return applied, fmt.Errorf("failed to apply %s to draft %s: %w", env.EventType, env.DraftID, err)
	}
	return applied, nil
}

// Seed merges a freshly fetched state into the draft's projection.
func (ps *Projections) Seed(state lifecycle.DraftState) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	p, ok := ps.byDraft[state.Draft.ID]
	if !ok {
		ps.byDraft[state.Draft.ID] = NewDraftProjection(state.Draft, state.Picks)
		return
	}
	p.mergeDraft(state.Draft)
	for _, pick := range state.Picks {
		p.mergePick(pick)
	}
}

func (ps *Projections) Get(draftID uuid.UUID) (DraftProjection, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p, ok := ps.byDraft[draftID]
	if !ok {
		return DraftProjection{}, false
	}
	return p.clone(), true
}

func (ps *Projections) Remove(draftID uuid.UUID) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.byDraft, draftID)
}

func (ps *Projections) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.byDraft)
}
