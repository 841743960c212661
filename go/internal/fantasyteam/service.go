package fantasyteam

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/httputil"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// FantasyTeamApp defines what the service layer needs from the fantasy team application
type FantasyTeamApp interface {
	GetQueue(ctx context.Context, teamID, draftID uuid.UUID) ([]models.QueueEntry, error)
	AddToQueue(ctx context.Context, req AddToQueueRequest) ([]models.QueueEntry, error)
	ReorderQueue(ctx context.Context, req ReorderQueueRequest) ([]models.QueueEntry, error)
	RemoveFromQueue(ctx context.Context, teamID uuid.UUID, playerID models.PlayerID, actingUserID uuid.UUID) error
	SetAutoPick(ctx context.Context, req SetAutoPickRequest) (models.FantasyTeam, error)
}

type Service struct {
	app      FantasyTeamApp
	validate *validator.Validate
}

func NewService(app FantasyTeamApp) *Service {
	return &Service{app: app, validate: validator.New()}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Route("/teams/{teamID}", func(r chi.Router) {
		r.Get("/queue", s.GetQueue)
		r.Post("/queue", s.AddToQueue)
		r.Put("/queue", s.ReorderQueue)
		r.Delete("/queue/{playerID}", s.RemoveFromQueue)
		r.Put("/auto-pick", s.SetAutoPick)
	})
}

type queueResponse struct {
	Entries []models.QueueEntry `json:"entries"`
}

type addToQueueBody struct {
	PlayerID models.PlayerID `json:"playerId" validate:"required"`
	Priority int             `json:"priority" validate:"gte=0"`
}

type reorderQueueBody struct {
	PlayerIDs []models.PlayerID `json:"playerIds"`
}

type setAutoPickBody struct {
	Enabled *bool `json:"enabled"`
}

// GetQueue lists the queue. An optional draftId query parameter hides
// players already drafted in that draft.
func (s *Service) GetQueue(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.ParseUUID("team id", chi.URLParam(r, "teamID"))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	draftID := uuid.Nil
	if raw := r.URL.Query().Get("draftId"); raw != "" {
		if draftID, err = httputil.ParseUUID("draft id", raw); err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
	}

	entries, err := s.app.GetQueue(r.Context(), teamID, draftID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, queueResponse{Entries: entries})
}

func (s *Service) AddToQueue(w http.ResponseWriter, r *http.Request) {
	teamID, actor, ok := s.teamAndActor(w, r)
	if !ok {
		return
	}
	var body addToQueueBody
	if err := httputil.Decode(r, s.validate, &body); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	entries, err := s.app.AddToQueue(r.Context(), AddToQueueRequest{
		TeamID:       teamID,
		PlayerID:     body.PlayerID,
		Priority:     body.Priority,
		ActingUserID: actor,
	})
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, queueResponse{Entries: entries})
}

func (s *Service) ReorderQueue(w http.ResponseWriter, r *http.Request) {
	teamID, actor, ok := s.teamAndActor(w, r)
	if !ok {
		return
	}
	var body reorderQueueBody
	if err := httputil.Decode(r, s.validate, &body); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	entries, err := s.app.ReorderQueue(r.Context(), ReorderQueueRequest{
		TeamID:       teamID,
		PlayerIDs:    body.PlayerIDs,
		ActingUserID: actor,
	})
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, queueResponse{Entries: entries})
}

func (s *Service) RemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	teamID, actor, ok := s.teamAndActor(w, r)
	if !ok {
		return
	}
	playerID, err := models.ParsePlayerID(chi.URLParam(r, "playerID"))
	if err != nil {
		httputil.WriteDomainError(w, fmt.Errorf("%w: %v", draft.ErrInvalidRequest, err))
		return
	}

	if err := s.app.RemoveFromQueue(r.Context(), teamID, playerID, actor); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) SetAutoPick(w http.ResponseWriter, r *http.Request) {
	teamID, actor, ok := s.teamAndActor(w, r)
	if !ok {
		return
	}
	var body setAutoPickBody
	if err := httputil.Decode(r, s.validate, &body); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	team, err := s.app.SetAutoPick(r.Context(), SetAutoPickRequest{
		TeamID:       teamID,
		Enabled:      body.Enabled,
		ActingUserID: actor,
	})
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, team)
}

func (s *Service) teamAndActor(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	teamID, err := httputil.ParseUUID("team id", chi.URLParam(r, "teamID"))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return uuid.Nil, uuid.Nil, false
	}
	actor, err := httputil.ActingUser(r)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return uuid.Nil, uuid.Nil, false
	}
	return teamID, actor, true
}
