package pick_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/draft/autopick"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/order"
	"github.com/mcdev12/draftroom/go/internal/draft/pick"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newApp(f *fixture.Fixture) *pick.App {
	return pick.NewApp(f.Store, nil, f.Clock, nil)
}

func onClock(t *testing.T, f *fixture.Fixture) models.FantasyTeam {
	t.Helper()
	d, err := repository.Read(context.Background(), f.Store, f.Draft.ID)
	require.NoError(t, err)
	teamID, err := order.Current(d)
	require.NoError(t, err)
	for _, team := range f.Teams {
		if team.ID == teamID {
			return team
		}
	}
	t.Fatalf("team %s not in fixture", teamID)
	return models.FantasyTeam{}
}

func submitFor(app *pick.App, f *fixture.Fixture, team models.FantasyTeam, p models.PlayerID) (pick.Result, error) {
	return app.SubmitPick(context.Background(), pick.SubmitPickRequest{
		DraftID:      f.Draft.ID,
		TeamID:       team.ID,
		PlayerID:     p,
		ActingUserID: team.OwnerID,
	})
}

func TestSubmitPick_CommitsAndAdvances(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := newApp(f)

	res, err := submitFor(app, f, f.Teams[0], f.Players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pick.PickNumber)
	assert.Equal(t, 1, res.Pick.RoundNumber)
	assert.Equal(t, f.Teams[0].ID, res.Pick.TeamID)
	assert.False(t, res.Pick.IsAutoPick)
	assert.Equal(t, f.Clock.Now().UTC(), res.Pick.PickedAt)
	assert.Equal(t, 2, res.Draft.CurrentPick)
	assert.Equal(t, f.Draft.Version+1, res.Draft.Version)

	outbox := f.Store.Outbox()
	require.Len(t, outbox, 1)
	assert.Equal(t, events.TypePickMade, outbox[0].EventType)
	snap, err := outbox[0].Envelope().Snapshot()
	require.NoError(t, err)
	assert.Equal(t, res.Draft.Version, snap.Draft.Version)
	assert.Equal(t, res.Pick.ID, snap.Pick.ID)
}

func TestSubmitPick_SnakeTurnsFollowOrder(t *testing.T) {
	f := fixture.New(fixture.Options{Teams: 4, Rounds: 2})
	app := newApp(f)
	a, b, c, d := f.Teams[0], f.Teams[1], f.Teams[2], f.Teams[3]

	for i, team := range []models.FantasyTeam{a, b, c, d, d, c, b, a} {
		require.Equal(t, team.ID, onClock(t, f).ID, "pick %d", i+1)
		res, err := submitFor(app, f, team, f.Players[i].ID)
		require.NoError(t, err, "pick %d", i+1)
		assert.Equal(t, order.RoundForPick(i+1, 4), res.Pick.RoundNumber)
	}
}

func TestSubmitPick_ValidationOrder(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture.Fixture)
		req     func(f *fixture.Fixture) pick.SubmitPickRequest
		wantErr error
	}{
		{
			name: "paused draft wins over wrong turn",
			setup: func(f *fixture.Fixture) {
				setPaused(f, true)
			},
			req: func(f *fixture.Fixture) pick.SubmitPickRequest {
				return pick.SubmitPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[2].ID, PlayerID: f.Players[0].ID, ActingUserID: f.Teams[2].OwnerID}
			},
			wantErr: draft.ErrDraftNotActive,
		},
		{
			name: "wrong turn wins over drafted player",
			setup: func(f *fixture.Fixture) {
				commitDirect(f, f.Teams[0].ID, f.Players[0].ID)
			},
			req: func(f *fixture.Fixture) pick.SubmitPickRequest {
				return pick.SubmitPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[3].ID, PlayerID: f.Players[0].ID, ActingUserID: f.Teams[3].OwnerID}
			},
			wantErr: draft.ErrNotYourTurn,
		},
		{
			name: "drafted player",
			setup: func(f *fixture.Fixture) {
				commitDirect(f, f.Teams[0].ID, f.Players[0].ID)
			},
			req: func(f *fixture.Fixture) pick.SubmitPickRequest {
				return pick.SubmitPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[1].ID, PlayerID: f.Players[0].ID, ActingUserID: f.Teams[1].OwnerID}
			},
			wantErr: draft.ErrPlayerAlreadyDrafted,
		},
		{
			name: "player from another sport",
			req: func(f *fixture.Fixture) pick.SubmitPickRequest {
				rank := 1
				other := f.AddPlayer("nba", "Point Guard", &rank)
				return pick.SubmitPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, PlayerID: other.ID, ActingUserID: f.Teams[0].OwnerID}
			},
			wantErr: draft.ErrInvalidPlayer,
		},
		{
			name: "unknown player",
			req: func(f *fixture.Fixture) pick.SubmitPickRequest {
				return pick.SubmitPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, PlayerID: models.PlayerID(uuid.New()), ActingUserID: f.Teams[0].OwnerID}
			},
			wantErr: draft.ErrInvalidPlayer,
		},
		{
			name: "scheduled draft",
			req: func(f *fixture.Fixture) pick.SubmitPickRequest {
				return pick.SubmitPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, PlayerID: f.Players[0].ID, ActingUserID: f.Teams[0].OwnerID}
			},
			setup: func(f *fixture.Fixture) {
				d := f.Draft
				d.Status = models.DraftStatusScheduled
				f.Store.AddDraft(d)
			},
			wantErr: draft.ErrDraftNotActive,
		},
		{
			name: "user does not own the team",
			req: func(f *fixture.Fixture) pick.SubmitPickRequest {
				return pick.SubmitPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, PlayerID: f.Players[0].ID, ActingUserID: uuid.New()}
			},
			wantErr: draft.ErrNotYourTurn,
		},
		{
			name: "unknown draft",
			req: func(f *fixture.Fixture) pick.SubmitPickRequest {
				return pick.SubmitPickRequest{DraftID: uuid.New(), TeamID: f.Teams[0].ID, PlayerID: f.Players[0].ID, ActingUserID: f.Teams[0].OwnerID}
			},
			wantErr: draft.ErrNotFound,
		},
		{
			name: "missing acting user",
			req: func(f *fixture.Fixture) pick.SubmitPickRequest {
				return pick.SubmitPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, PlayerID: f.Players[0].ID}
			},
			wantErr: draft.ErrInvalidRequest,
		},
		{
			name: "missing player id",
			req: func(f *fixture.Fixture) pick.SubmitPickRequest {
				return pick.SubmitPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID}
			},
			wantErr: draft.ErrInvalidRequest,
		},
		{
			name: "empty draft order",
			setup: func(f *fixture.Fixture) {
				d := f.Draft
				d.DraftOrder = nil
				f.Store.AddDraft(d)
			},
			req: func(f *fixture.Fixture) pick.SubmitPickRequest {
				return pick.SubmitPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, PlayerID: f.Players[0].ID, ActingUserID: f.Teams[0].OwnerID}
			},
			wantErr: draft.ErrInvalidDraftState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fixture.New(fixture.Options{})
			if tt.setup != nil {
				tt.setup(f)
			}
			before := len(f.Store.Outbox())

			_, err := newApp(f).SubmitPick(context.Background(), tt.req(f))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, f.Store.Outbox(), before, "rejected pick must not emit events")
		})
	}
}

func TestSubmitPick_ConcurrentSameSlotCommitsOnce(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := newApp(f)
	team := f.Teams[0]

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		failures []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := app.SubmitPick(context.Background(), pick.SubmitPickRequest{
				DraftID:      f.Draft.ID,
				TeamID:       team.ID,
				PlayerID:     f.Players[i].ID,
				ActingUserID: team.OwnerID,
				ExpectedPick: 1,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			failures = append(failures, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	for _, err := range failures {
		assert.ErrorIs(t, err, draft.ErrStaleState)
	}

	picks, err := app.ListPicks(context.Background(), f.Draft.ID)
	require.NoError(t, err)
	require.Len(t, picks, 1)
	assert.Equal(t, 1, picks[0].PickNumber)

	d, err := repository.Read(context.Background(), f.Store, f.Draft.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, d.CurrentPick)
}

func TestSubmitPick_NoDoubleDraft(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := newApp(f)

	_, err := submitFor(app, f, f.Teams[0], f.Players[0].ID)
	require.NoError(t, err)
	_, err = submitFor(app, f, f.Teams[1], f.Players[0].ID)
	assert.ErrorIs(t, err, draft.ErrPlayerAlreadyDrafted)

	d, err := repository.Read(context.Background(), f.Store, f.Draft.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, d.CurrentPick)
}

func TestSubmitPick_CompletesAfterAllRounds(t *testing.T) {
	f := fixture.New(fixture.Options{Teams: 3, Rounds: 2})
	app := newApp(f)

	var last pick.Result
	for i := 0; i < 6; i++ {
		res, err := submitFor(app, f, onClock(t, f), f.Players[i].ID)
		require.NoError(t, err)
		last = res
	}

	assert.True(t, last.Completed())
	assert.Equal(t, 7, last.Draft.CurrentPick)
	assert.Equal(t, 2, last.Draft.CurrentRound)
	assert.NotNil(t, last.Draft.CompletedAt)

	_, err := submitFor(app, f, f.Teams[0], f.Players[10].ID)
	assert.ErrorIs(t, err, draft.ErrDraftNotActive)

	outbox := f.Store.Outbox()
	assert.Equal(t, events.TypeDraftCompleted, outbox[len(outbox)-1].EventType)
	assert.Equal(t, events.TypePickMade, outbox[len(outbox)-2].EventType)
}

func TestSubmitPick_PausedDraft(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := newApp(f)
	setPaused(f, true)

	_, err := submitFor(app, f, f.Teams[0], f.Players[0].ID)
	assert.ErrorIs(t, err, draft.ErrDraftNotActive)

	res, err := app.SubmitPick(context.Background(), pick.SubmitPickRequest{
		DraftID:      f.Draft.ID,
		TeamID:       f.Teams[0].ID,
		PlayerID:     f.Players[0].ID,
		ActingUserID: f.Commissioner,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pick.PickNumber)
	assert.True(t, res.Draft.IsPaused)
}

func TestSubmitPick_SystemPickSkipsOwnership(t *testing.T) {
	f := fixture.New(fixture.Options{})

	res, err := newApp(f).SubmitPick(context.Background(), pick.SubmitPickRequest{
		DraftID:  f.Draft.ID,
		TeamID:   f.Teams[0].ID,
		PlayerID: f.Players[0].ID,
		System:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, f.Teams[0].ID, res.Pick.TeamID)

	_, err = newApp(f).SubmitPick(context.Background(), pick.SubmitPickRequest{
		DraftID:  f.Draft.ID,
		TeamID:   f.Teams[0].ID,
		PlayerID: f.Players[1].ID,
		System:   true,
	})
	assert.ErrorIs(t, err, draft.ErrNotYourTurn, "system picks still follow the order")
}

func TestAutoPick_RequiresActorOrSystem(t *testing.T) {
	f := fixture.New(fixture.Options{AutoPickEnabled: true})

	_, err := newApp(f).AutoPick(context.Background(), pick.AutoPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID})
	assert.ErrorIs(t, err, draft.ErrInvalidRequest)

	_, err = newApp(f).AutoPick(context.Background(), pick.AutoPickRequest{
		DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, ActingUserID: f.Teams[1].OwnerID,
	})
	assert.ErrorIs(t, err, draft.ErrNotYourTurn)
	assert.Empty(t, f.Store.Outbox())
}

func TestSubmitPick_CommissionerPicksForTeamOnClock(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := newApp(f)

	res, err := app.SubmitPick(context.Background(), pick.SubmitPickRequest{
		DraftID:      f.Draft.ID,
		TeamID:       f.Teams[2].ID,
		PlayerID:     f.Players[0].ID,
		ActingUserID: f.Commissioner,
	})
	require.NoError(t, err)
	assert.Equal(t, f.Teams[0].ID, res.Pick.TeamID)
}

func TestAutoPick_ScenarioQueuedPlayerAtPickOne(t *testing.T) {
	f := fixture.New(fixture.Options{Teams: 4, DraftType: models.DraftTypeSnake, TimePerPickSec: 60})
	f.SetPreference(0, true)
	playerX := f.Players[12].ID
	setQueue(f, f.Teams[0].ID, playerX)

	res, err := newApp(f).AutoPick(context.Background(), pick.AutoPickRequest{
		DraftID:           f.Draft.ID,
		TeamID:            f.Teams[0].ID,
		ExpectedPick:      1,
		System:            true,
		RequirePreference: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pick.PickNumber)
	assert.Equal(t, playerX, res.Pick.PlayerID)
	assert.True(t, res.Pick.IsAutoPick)
	assert.Equal(t, autopick.SourceQueue, res.Source)
	assert.Equal(t, 2, res.Draft.CurrentPick)
}

func TestAutoPick_PreferenceOff(t *testing.T) {
	f := fixture.New(fixture.Options{AutoPickEnabled: true})
	f.SetPreference(0, false)

	_, err := newApp(f).AutoPick(context.Background(), pick.AutoPickRequest{
		DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, System: true, RequirePreference: true,
	})
	assert.ErrorIs(t, err, draft.ErrAutoPickDisabled)
	assert.Empty(t, f.Store.Outbox())
}

func TestAutoPick_DraftDefaultAppliesWithoutTeamPreference(t *testing.T) {
	f := fixture.New(fixture.Options{AutoPickEnabled: true})

	res, err := newApp(f).AutoPick(context.Background(), pick.AutoPickRequest{
		DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, System: true, RequirePreference: true,
	})
	require.NoError(t, err)
	assert.Equal(t, f.Players[0].ID, res.Pick.PlayerID)
	assert.Equal(t, autopick.SourceRanking, res.Source)
}

func TestAutoPick_PausedDraftIsNotActive(t *testing.T) {
	f := fixture.New(fixture.Options{AutoPickEnabled: true})
	setPaused(f, true)

	_, err := newApp(f).AutoPick(context.Background(), pick.AutoPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, System: true})
	assert.ErrorIs(t, err, draft.ErrDraftNotActive)
}

func TestAutoPick_SupersededTurnIsStale(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := newApp(f)
	_, err := submitFor(app, f, f.Teams[0], f.Players[0].ID)
	require.NoError(t, err)

	_, err = app.AutoPick(context.Background(), pick.AutoPickRequest{
		DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, ExpectedPick: 1, System: true,
	})
	assert.ErrorIs(t, err, draft.ErrStaleState)
	assert.Len(t, f.Store.Outbox(), 1)
}

type mockStrategy struct {
	mock.Mock
}

func (m *mockStrategy) Select(ctx context.Context, q repository.Querier, d models.Draft, teamID uuid.UUID) (autopick.Selection, error) {
	args := m.Called(d.CurrentPick, teamID)
	return args.Get(0).(autopick.Selection), args.Error(1)
}

func TestAutoPick_RetriesCollisionOnce(t *testing.T) {
	f := fixture.New(fixture.Options{})
	draftElsewhere(f, f.Players[0].ID)

	strategy := &mockStrategy{}
	strategy.On("Select", 1, f.Teams[0].ID).
		Return(autopick.Selection{PlayerID: f.Players[0].ID, Source: autopick.SourceQueue}, nil).Once()
	strategy.On("Select", 1, f.Teams[0].ID).
		Return(autopick.Selection{PlayerID: f.Players[1].ID, Source: autopick.SourceRanking}, nil).Once()

	app := pick.NewApp(f.Store, strategy, f.Clock, nil)
	res, err := app.AutoPick(context.Background(), pick.AutoPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, System: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, f.Players[1].ID, res.Pick.PlayerID)
	strategy.AssertExpectations(t)
}

func TestAutoPick_GivesUpAfterSecondCollision(t *testing.T) {
	f := fixture.New(fixture.Options{})
	draftElsewhere(f, f.Players[0].ID)

	strategy := &mockStrategy{}
	strategy.On("Select", 1, f.Teams[0].ID).
		Return(autopick.Selection{PlayerID: f.Players[0].ID, Source: autopick.SourceQueue}, nil).Twice()

	app := pick.NewApp(f.Store, strategy, f.Clock, nil)
	_, err := app.AutoPick(context.Background(), pick.AutoPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, System: true})
	assert.ErrorIs(t, err, draft.ErrPlayerAlreadyDrafted)
	strategy.AssertNumberOfCalls(t, "Select", 2)
}

func TestAutoPick_NoAvailablePlayerIsTerminal(t *testing.T) {
	f := fixture.New(fixture.Options{Players: 1})
	draftElsewhere(f, f.Players[0].ID)

	_, err := newApp(f).AutoPick(context.Background(), pick.AutoPickRequest{DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, System: true})
	assert.ErrorIs(t, err, draft.ErrNoAvailablePlayer)
}

func setPaused(f *fixture.Fixture, paused bool) {
	ctx := context.Background()
	_ = f.Store.InTx(ctx, func(q repository.Querier) error {
		_, err := q.SetPauseState(ctx, f.Draft.ID, paused)
		return err
	})
}

func setQueue(f *fixture.Fixture, team uuid.UUID, players ...models.PlayerID) {
	ctx := context.Background()
	entries := make([]models.QueueEntry, len(players))
	for i, p := range players {
		entries[i] = models.QueueEntry{PlayerID: p, Priority: i + 1}
	}
	_ = f.Store.InTx(ctx, func(q repository.Querier) error {
		return q.ReplaceQueue(ctx, team, entries)
	})
}

// commitDirect writes a pick for the current slot and advances the draft
// without going through the engine.
func commitDirect(f *fixture.Fixture, team uuid.UUID, player models.PlayerID) {
	ctx := context.Background()
	_ = f.Store.InTx(ctx, func(q repository.Querier) error {
		d, err := q.GetDraft(ctx, f.Draft.ID)
		if err != nil {
			return err
		}
		if err := q.InsertPick(ctx, models.DraftPick{
			ID: uuid.New(), DraftID: d.ID, TeamID: team, PlayerID: player,
			PickNumber: d.CurrentPick, RoundNumber: d.CurrentRound,
		}); err != nil {
			return err
		}
		_, err = q.CompareAndAdvance(ctx, d.ID, d.CurrentPick, d.CurrentPick+1, order.RoundForPick(d.CurrentPick+1, d.TeamCount()))
		return err
	})
}

// draftElsewhere marks player as drafted without touching the current slot.
func draftElsewhere(f *fixture.Fixture, player models.PlayerID) {
	ctx := context.Background()
	_ = f.Store.InTx(ctx, func(q repository.Querier) error {
		return q.InsertPick(ctx, models.DraftPick{
			ID: uuid.New(), DraftID: f.Draft.ID, TeamID: f.Teams[3].ID, PlayerID: player,
			PickNumber: 1000, RoundNumber: 1,
		})
	})
}
