package lifecycle

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/httputil"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// DraftApp defines what the service layer needs from the draft application
type DraftApp interface {
	CreateDraft(ctx context.Context, req CreateDraftRequest) (models.Draft, error)
	StartDraft(ctx context.Context, draftID, actingUserID uuid.UUID) (models.Draft, error)
	PauseDraft(ctx context.Context, draftID, actingUserID uuid.UUID) (models.Draft, error)
	ResumeDraft(ctx context.Context, draftID, actingUserID uuid.UUID) (models.Draft, error)
	GetDraftState(ctx context.Context, draftID uuid.UUID) (DraftState, error)
}

type Service struct {
	app      DraftApp
	validate *validator.Validate
}

func NewService(app DraftApp) *Service {
	return &Service{app: app, validate: validator.New()}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Route("/draft", func(r chi.Router) {
		r.Post("/", s.CreateDraft)
		r.Get("/{draftID}", s.GetDraft)
		r.Post("/{draftID}/start", s.transition(s.app.StartDraft))
		r.Post("/{draftID}/pause", s.transition(s.app.PauseDraft))
		r.Post("/{draftID}/resume", s.transition(s.app.ResumeDraft))
	})
}

type createDraftBody struct {
	LeagueID        string   `json:"leagueId" validate:"required,uuid"`
	DraftType       string   `json:"draftType" validate:"required,oneof=SNAKE LINEAR"`
	DraftOrder      []string `json:"draftOrder" validate:"required,min=1,dive,uuid"`
	TotalRounds     int      `json:"totalRounds" validate:"required,gt=0"`
	TimePerPickSec  int      `json:"timePerPickSec" validate:"required,gt=0"`
	AutoPickEnabled bool     `json:"autoPickEnabled"`
}

func (s *Service) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var body createDraftBody
	if err := httputil.Decode(r, s.validate, &body); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	actor, err := httputil.ActingUser(r)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	draftOrder := make([]uuid.UUID, len(body.DraftOrder))
	for i, raw := range body.DraftOrder {
		draftOrder[i] = uuid.MustParse(raw)
	}

	d, err := s.app.CreateDraft(r.Context(), CreateDraftRequest{
		LeagueID:        uuid.MustParse(body.LeagueID),
		ActingUserID:    actor,
		DraftType:       models.DraftType(body.DraftType),
		DraftOrder:      draftOrder,
		TotalRounds:     body.TotalRounds,
		TimePerPickSec:  body.TimePerPickSec,
		AutoPickEnabled: body.AutoPickEnabled,
	})
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

func (s *Service) GetDraft(w http.ResponseWriter, r *http.Request) {
	draftID, err := httputil.ParseUUID("draft id", chi.URLParam(r, "draftID"))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	state, err := s.app.GetDraftState(r.Context(), draftID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

func (s *Service) transition(fn func(ctx context.Context, draftID, actingUserID uuid.UUID) (models.Draft, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, err := httputil.ParseUUID("draft id", chi.URLParam(r, "draftID"))
		if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
		actor, err := httputil.ActingUser(r)
		if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
		d, err := fn(r.Context(), draftID, actor)
		if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, d)
	}
}
