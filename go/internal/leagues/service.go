package leagues

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/httputil"
)

// LeaguesApp defines what the service layer needs from the leagues application
type LeaguesApp interface {
	GetLeague(ctx context.Context, id uuid.UUID) (LeagueDetails, error)
}

type Service struct {
	app LeaguesApp
}

func NewService(app LeaguesApp) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/leagues/{leagueID}", s.GetLeague)
}

// GetLeague handles GET /leagues/{leagueID}.
func (s *Service) GetLeague(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParseUUID("league id", chi.URLParam(r, "leagueID"))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	details, err := s.app.GetLeague(r.Context(), id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}
