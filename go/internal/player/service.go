package player

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/httputil"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// PlayerApp defines what the service layer needs from the player application
type PlayerApp interface {
	ListAvailable(ctx context.Context, req ListAvailableRequest) ([]models.Player, error)
	GetPlayer(ctx context.Context, id models.PlayerID) (models.Player, error)
	NextAutoPick(ctx context.Context, draftID, teamID uuid.UUID) (models.Player, error)
}

type Service struct {
	app PlayerApp
}

func NewService(app PlayerApp) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/draft/{draftID}/players", s.ListAvailable)
	r.Get("/draft/{draftID}/teams/{teamID}/next-auto-pick", s.NextAutoPick)
	r.Get("/players/{playerID}", s.GetPlayer)
}

type availableResponse struct {
	Players []models.Player `json:"players"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListAvailable handles GET /draft/{draftID}/players?position=&limit=&offset=.
func (s *Service) ListAvailable(w http.ResponseWriter, r *http.Request) {
	draftID, err := httputil.ParseUUID("draft id", chi.URLParam(r, "draftID"))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	query := r.URL.Query()
	limit, err := intParam(query.Get("limit"), "limit")
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	offset, err := intParam(query.Get("offset"), "offset")
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	req := ListAvailableRequest{DraftID: draftID, Position: query.Get("position"), Limit: limit, Offset: offset}
	players, err := s.app.ListAvailable(r.Context(), req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	httputil.WriteJSON(w, http.StatusOK, availableResponse{Players: players, Limit: min(limit, MaxLimit), Offset: offset})
}

// GetPlayer handles GET /players/{playerID}.
func (s *Service) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParsePlayerID(chi.URLParam(r, "playerID"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, draft.ErrInvalidRequest.Error(), err.Error())
		return
	}
	p, err := s.app.GetPlayer(r.Context(), id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// NextAutoPick handles GET /draft/{draftID}/teams/{teamID}/next-auto-pick.
func (s *Service) NextAutoPick(w http.ResponseWriter, r *http.Request) {
	draftID, err := httputil.ParseUUID("draft id", chi.URLParam(r, "draftID"))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	teamID, err := httputil.ParseUUID("team id", chi.URLParam(r, "teamID"))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	p, err := s.app.NextAutoPick(r.Context(), draftID, teamID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", draft.ErrInvalidRequest, name, raw)
	}
	return n, nil
}
