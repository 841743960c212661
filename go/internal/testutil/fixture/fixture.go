// Package fixture seeds an in-memory draft room for unit tests.
package fixture

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/models"
)

const SportID = "nfl"

type Options struct {
	Teams           int
	Rounds          int
	DraftType       models.DraftType
	TimePerPickSec  int
	AutoPickEnabled bool
	Players         int
	Status          models.DraftStatus
}

// Fixture is a league with teams, a ranked player pool and a draft.
type Fixture struct {
	Store        *repository.MemoryStore
	Clock        *clockwork.FakeClock
	League       models.League
	Commissioner uuid.UUID
	Teams        []models.FantasyTeam
	Players      []models.Player
	Draft        models.Draft
}

// New builds a fixture. Zero options default to a 4 team, 2 round snake
// draft in progress with 60 seconds per pick and 20 ranked players.
func New(opts Options) *Fixture {
	if opts.Teams == 0 {
		opts.Teams = 4
	}
	if opts.Rounds == 0 {
		opts.Rounds = 2
	}
	if opts.DraftType == "" {
		opts.DraftType = models.DraftTypeSnake
	}
	if opts.TimePerPickSec == 0 {
		opts.TimePerPickSec = 60
	}
	if opts.Players == 0 {
		opts.Players = 20
	}
	if opts.Status == "" {
		opts.Status = models.DraftStatusInProgress
	}

	clock := clockwork.NewFakeClockAt(time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC))
	f := &Fixture{
		Store:        repository.NewMemoryStore(clock),
		Clock:        clock,
		Commissioner: uuid.New(),
	}

	f.League = models.League{ID: uuid.New(), Name: "Test League", SportID: SportID, CommissionerID: f.Commissioner}
	f.Store.AddLeague(f.League)

	order := make([]uuid.UUID, 0, opts.Teams)
	for i := 0; i < opts.Teams; i++ {
		team := models.FantasyTeam{
			ID:       uuid.New(),
			LeagueID: f.League.ID,
			OwnerID:  uuid.New(),
			Name:     fmt.Sprintf("Team %c", 'A'+i),
		}
		f.Teams = append(f.Teams, team)
		f.Store.AddTeam(team)
		order = append(order, team.ID)
	}

	for i := 1; i <= opts.Players; i++ {
		rank := i
		p := models.Player{
			ID:       models.PlayerID(uuid.New()),
			SportID:  SportID,
			FullName: fmt.Sprintf("Player %02d", i),
			Position: "WR",
			Rank:     &rank,
		}
		f.Players = append(f.Players, p)
		f.Store.AddPlayer(p)
	}

	now := clock.Now()
	f.Draft = models.Draft{
		ID:              uuid.New(),
		LeagueID:        f.League.ID,
		DraftType:       opts.DraftType,
		Status:          opts.Status,
		DraftOrder:      order,
		TotalRounds:     opts.Rounds,
		CurrentPick:     1,
		CurrentRound:    1,
		TimePerPickSec:  opts.TimePerPickSec,
		AutoPickEnabled: opts.AutoPickEnabled,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if opts.Status == models.DraftStatusInProgress {
		f.Draft.StartedAt = &now
	}
	f.Store.AddDraft(f.Draft)
	return f
}

// SetPreference stores the team's auto-pick preference.
func (f *Fixture) SetPreference(teamIdx int, on bool) {
	f.Teams[teamIdx].AutoPickPreference = &on
	f.Store.AddTeam(f.Teams[teamIdx])
}

// AddPlayer adds an extra player to the store.
func (f *Fixture) AddPlayer(sportID, name string, rank *int) models.Player {
	p := models.Player{ID: models.PlayerID(uuid.New()), SportID: sportID, FullName: name, Rank: rank}
	f.Store.AddPlayer(p)
	return p
}
