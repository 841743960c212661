package pick

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/httputil"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// PickApp defines what the service layer needs from the pick application
type PickApp interface {
	SubmitPick(ctx context.Context, req SubmitPickRequest) (Result, error)
	AutoPick(ctx context.Context, req AutoPickRequest) (AutoPickResult, error)
	ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error)
}

// Service exposes picks over HTTP.
type Service struct {
	app      PickApp
	validate *validator.Validate
}

func NewService(app PickApp) *Service {
	return &Service{
		app:      app,
		validate: validator.New(),
	}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/draft/auto-pick", s.AutoPick)
	r.Post("/draft/pick", s.SubmitPick)
	r.Get("/draft/{draftID}/picks", s.ListPicks)
}

type autoPickBody struct {
	DraftID string `json:"draftId" validate:"required,uuid"`
	TeamID  string `json:"teamId" validate:"required,uuid"`
}

type autoPickResponse struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Message  string `json:"message,omitempty"`
}

// AutoPick handles POST /draft/auto-pick. A disabled preference or a turn
// that has already moved on is reported as an unsuccessful 200.
func (s *Service) AutoPick(w http.ResponseWriter, r *http.Request) {
	var body autoPickBody
	if err := httputil.Decode(r, s.validate, &body); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	actor, err := httputil.ActingUser(r)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	res, err := s.app.AutoPick(r.Context(), AutoPickRequest{
		DraftID:           uuid.MustParse(body.DraftID),
		TeamID:            uuid.MustParse(body.TeamID),
		ActingUserID:      actor,
		System:            actor == uuid.Nil,
		RequirePreference: true,
	})
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusOK, autoPickResponse{Success: true, PlayerID: res.Pick.PlayerID.String()})
	case errors.Is(err, draft.ErrAutoPickDisabled):
		httputil.WriteJSON(w, http.StatusOK, autoPickResponse{Message: "auto-pick is disabled for this team"})
	case errors.Is(err, draft.ErrNotYourTurn), errors.Is(err, draft.ErrStaleState):
		httputil.WriteJSON(w, http.StatusOK, autoPickResponse{Message: "turn has moved on"})
	default:
		httputil.WriteDomainError(w, err)
	}
}

type submitPickBody struct {
	DraftID    string `json:"draftId" validate:"required,uuid"`
	TeamID     string `json:"teamId" validate:"required,uuid"`
	PlayerID   string `json:"playerId" validate:"required,uuid"`
	PickNumber int    `json:"pickNumber" validate:"gte=0"`
}

type submitPickResponse struct {
	Success bool             `json:"success"`
	Pick    models.DraftPick `json:"pick"`
	Draft   models.Draft     `json:"draft"`
}

// SubmitPick handles POST /draft/pick.
func (s *Service) SubmitPick(w http.ResponseWriter, r *http.Request) {
	var body submitPickBody
	if err := httputil.Decode(r, s.validate, &body); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	actor, err := httputil.ActingUser(r)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if actor == uuid.Nil {
		httputil.WriteError(w, http.StatusUnauthorized, draft.ErrInvalidRequest.Error(), httputil.HeaderUserID+" header is required")
		return
	}
	playerID, err := models.ParsePlayerID(body.PlayerID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, draft.ErrInvalidRequest.Error(), err.Error())
		return
	}

	res, err := s.app.SubmitPick(r.Context(), SubmitPickRequest{
		DraftID:      uuid.MustParse(body.DraftID),
		TeamID:       uuid.MustParse(body.TeamID),
		PlayerID:     playerID,
		ActingUserID: actor,
		ExpectedPick: body.PickNumber,
	})
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, submitPickResponse{Success: true, Pick: res.Pick, Draft: res.Draft})
}

// ListPicks handles GET /draft/{draftID}/picks.
func (s *Service) ListPicks(w http.ResponseWriter, r *http.Request) {
	draftID, err := httputil.ParseUUID("draft id", chi.URLParam(r, "draftID"))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	picks, err := s.app.ListPicks(r.Context(), draftID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"picks": picks})
}
