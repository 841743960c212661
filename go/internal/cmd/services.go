package main

import (
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/lifecycle"
	"github.com/mcdev12/draftroom/go/internal/draft/pick"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/fantasyteam"
	"github.com/mcdev12/draftroom/go/internal/leagues"
	"github.com/mcdev12/draftroom/go/internal/player"
	"github.com/prometheus/client_golang/prometheus"
)

type Services struct {
	Drafts      *lifecycle.Service
	Picks       *pick.Service
	FantasyTeam *fantasyteam.Service
	Players     *player.Service
	Leagues     *leagues.Service
}

func setupServices(store repository.Store, clock clockwork.Clock, reg prometheus.Registerer) *Services {
	// Wire up dependency injection chain
	// Store → App layer → Service layer

	// Draft lifecycle
	draftApp := lifecycle.NewApp(store, clock)
	draftService := lifecycle.NewService(draftApp)

	// Picks. A nil strategy selects queue-then-ranking auto-pick.
	pickApp := pick.NewApp(store, nil, clock, pick.NewPrometheusMetrics(reg))
	pickService := pick.NewService(pickApp)

	// FantasyTeam queues and preferences
	fantasyTeamApp := fantasyteam.NewApp(store)
	fantasyTeamService := fantasyteam.NewService(fantasyTeamApp)

	// Player pool
	playerApp := player.NewApp(store)
	playerService := player.NewService(playerApp)

	// Leagues
	leagueApp := leagues.NewApp(store)
	leagueService := leagues.NewService(leagueApp)

	return &Services{
		Drafts:      draftService,
		Picks:       pickService,
		FantasyTeam: fantasyTeamService,
		Players:     playerService,
		Leagues:     leagueService,
	}
}
