package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/lifecycle"
	"github.com/mcdev12/draftroom/go/internal/httputil"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// StateProvider reads authoritative draft state from the store.
type StateProvider interface {
	GetDraftState(ctx context.Context, draftID uuid.UUID) (lifecycle.DraftState, error)
	ListActiveDrafts(ctx context.Context) ([]models.Draft, error)
}

// DraftStateResponse represents the complete state of a draft
type DraftStateResponse struct {
	Draft          models.Draft       `json:"draft"`
	Picks          []models.DraftPick `json:"picks"`
	CurrentPick    *CurrentPickInfo   `json:"current_pick,omitempty"`
	TimeRemaining  *int               `json:"time_remaining_sec,omitempty"`
	TotalPicks     int                `json:"total_picks"`
	CompletedPicks int                `json:"completed_picks"`
}

// CurrentPickInfo represents the current pick on the clock
type CurrentPickInfo struct {
	TeamID      uuid.UUID `json:"team_id"`
	Round       int       `json:"round"`
	OverallPick int       `json:"overall_pick"`
	StartedAt   time.Time `json:"started_at"`
	TimeoutAt   time.Time `json:"timeout_at"`
	TimePerPick int       `json:"time_per_pick_sec"`
}

// DraftSummary represents a summary of an active draft
type DraftSummary struct {
	DraftID      uuid.UUID  `json:"draft_id"`
	LeagueID     uuid.UUID  `json:"league_id"`
	IsPaused     bool       `json:"is_paused"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CurrentRound int        `json:"current_round"`
	CurrentPick  int        `json:"current_pick"`
	TotalTeams   int        `json:"total_teams"`
	TotalRounds  int        `json:"total_rounds"`
}

// BuildStateResponse shapes a store read for clients. The turn deadline
// is the last settings change plus time_per_pick, the same instant the
// orchestrator arms its timer from.
func BuildStateResponse(state lifecycle.DraftState, now time.Time) DraftStateResponse {
	d := state.Draft
	resp := DraftStateResponse{
		Draft:          d,
		Picks:          state.Picks,
		TotalPicks:     d.TotalPicks(),
		CompletedPicks: len(state.Picks),
	}
	if resp.Picks == nil {
		resp.Picks = []models.DraftPick{}
	}
	if state.OnClockTeamID == nil {
		return resp
	}

	resp.CurrentPick = &CurrentPickInfo{
		TeamID:      *state.OnClockTeamID,
		Round:       d.CurrentRound,
		OverallPick: d.CurrentPick,
		StartedAt:   d.UpdatedAt,
		TimeoutAt:   d.UpdatedAt.Add(d.TimePerPick()),
		TimePerPick: d.TimePerPickSec,
	}
	if !d.IsPaused {
		remaining := int(resp.CurrentPick.TimeoutAt.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		resp.TimeRemaining = &remaining
	}
	return resp
}

// StateHandler handles HTTP requests for draft state
type StateHandler struct {
	stateProvider StateProvider
	projections   *Projections
	clock         clockwork.Clock
}

func NewStateHandler(provider StateProvider, projections *Projections, clock clockwork.Clock) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
		projections:   projections,
		clock:         clock,
	}
}

// HandleGetDraftState handles GET /api/drafts/{id}/state. Clients call it
// after reconnecting; the read also refreshes the gateway's projection.
func (h *StateHandler) HandleGetDraftState(w http.ResponseWriter, r *http.Request) {
	draftID, err := httputil.ParseUUID("draft id", r.PathValue("id"))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	state, err := h.stateProvider.GetDraftState(r.Context(), draftID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	h.projections.Seed(state)

	httputil.WriteJSON(w, http.StatusOK, BuildStateResponse(state, h.clock.Now()))
}

// HandleGetActiveDrafts handles GET /api/drafts/active
func (h *StateHandler) HandleGetActiveDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.stateProvider.ListActiveDrafts(r.Context())
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	out := make([]DraftSummary, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, DraftSummary{
			DraftID:      d.ID,
			LeagueID:     d.LeagueID,
			IsPaused:     d.IsPaused,
			StartedAt:    d.StartedAt,
			CurrentRound: d.CurrentRound,
			CurrentPick:  d.CurrentPick,
			TotalTeams:   d.TeamCount(),
			TotalRounds:  d.TotalRounds,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/drafts/active", h.HandleGetActiveDrafts)
	mux.HandleFunc("GET /api/drafts/{id}/state", h.HandleGetDraftState)
}
