package fantasyteam_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/draft/repository"
	"github.com/mcdev12/draftroom/go/internal/fantasyteam"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuedPlayers(entries []models.QueueEntry) []models.PlayerID {
	ids := make([]models.PlayerID, len(entries))
	for i, e := range entries {
		ids[i] = e.PlayerID
	}
	return ids
}

func TestAddToQueue_AppendsAndMoves(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := fantasyteam.NewApp(f.Store)
	ctx := context.Background()
	team := f.Teams[0]

	for _, p := range f.Players[:3] {
		_, err := app.AddToQueue(ctx, fantasyteam.AddToQueueRequest{TeamID: team.ID, PlayerID: p.ID, ActingUserID: team.OwnerID})
		require.NoError(t, err)
	}

	// Re-adding the first player without a priority moves it to the back.
	entries, err := app.AddToQueue(ctx, fantasyteam.AddToQueueRequest{TeamID: team.ID, PlayerID: f.Players[0].ID, ActingUserID: team.OwnerID})
	require.NoError(t, err)
	assert.Equal(t, []models.PlayerID{f.Players[1].ID, f.Players[2].ID, f.Players[0].ID}, queuedPlayers(entries))
	assert.Equal(t, []int{2, 3, 4}, []int{entries[0].Priority, entries[1].Priority, entries[2].Priority})
}

func TestAddToQueue_Rejections(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := fantasyteam.NewApp(f.Store)
	ctx := context.Background()
	team := f.Teams[0]
	rank := 1
	mlb := f.AddPlayer("mlb", "Pitcher", &rank)

	tests := []struct {
		name    string
		req     fantasyteam.AddToQueueRequest
		wantErr error
	}{
		{"other owner", fantasyteam.AddToQueueRequest{TeamID: team.ID, PlayerID: f.Players[0].ID, ActingUserID: f.Teams[1].OwnerID}, draft.ErrNotTeamOwner},
		{"anonymous", fantasyteam.AddToQueueRequest{TeamID: team.ID, PlayerID: f.Players[0].ID}, draft.ErrNotTeamOwner},
		{"unknown player", fantasyteam.AddToQueueRequest{TeamID: team.ID, PlayerID: models.PlayerID(uuid.New()), ActingUserID: team.OwnerID}, draft.ErrInvalidPlayer},
		{"other sport", fantasyteam.AddToQueueRequest{TeamID: team.ID, PlayerID: mlb.ID, ActingUserID: team.OwnerID}, draft.ErrInvalidPlayer},
		{"nil player", fantasyteam.AddToQueueRequest{TeamID: team.ID, ActingUserID: team.OwnerID}, draft.ErrInvalidRequest},
		{"unknown team", fantasyteam.AddToQueueRequest{TeamID: uuid.New(), PlayerID: f.Players[0].ID, ActingUserID: team.OwnerID}, draft.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.AddToQueue(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReorderQueue(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := fantasyteam.NewApp(f.Store)
	ctx := context.Background()
	team := f.Teams[0]
	want := []models.PlayerID{f.Players[4].ID, f.Players[2].ID, f.Players[7].ID}

	entries, err := app.ReorderQueue(ctx, fantasyteam.ReorderQueueRequest{TeamID: team.ID, PlayerIDs: want, ActingUserID: team.OwnerID})
	require.NoError(t, err)
	assert.Equal(t, want, queuedPlayers(entries))

	_, err = app.ReorderQueue(ctx, fantasyteam.ReorderQueueRequest{
		TeamID: team.ID, PlayerIDs: []models.PlayerID{want[0], want[0]}, ActingUserID: team.OwnerID,
	})
	assert.ErrorIs(t, err, draft.ErrInvalidRequest)

	// A failed replace leaves the previous queue intact.
	_, err = app.ReorderQueue(ctx, fantasyteam.ReorderQueueRequest{
		TeamID: team.ID, PlayerIDs: []models.PlayerID{want[1], models.PlayerID(uuid.New())}, ActingUserID: team.OwnerID,
	})
	assert.ErrorIs(t, err, draft.ErrInvalidPlayer)
	entries, err = app.GetQueue(ctx, team.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, want, queuedPlayers(entries))
}

func TestGetQueue_HidesDraftedPlayers(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := fantasyteam.NewApp(f.Store)
	ctx := context.Background()
	team := f.Teams[1]

	_, err := app.ReorderQueue(ctx, fantasyteam.ReorderQueueRequest{
		TeamID: team.ID, PlayerIDs: []models.PlayerID{f.Players[0].ID, f.Players[1].ID}, ActingUserID: team.OwnerID,
	})
	require.NoError(t, err)

	err = f.Store.InTx(ctx, func(q repository.Querier) error {
		return q.InsertPick(ctx, models.DraftPick{
			ID: uuid.New(), DraftID: f.Draft.ID, TeamID: f.Teams[0].ID, PlayerID: f.Players[0].ID,
			PickNumber: 1, RoundNumber: 1, PickedAt: f.Clock.Now(),
		})
	})
	require.NoError(t, err)

	entries, err := app.GetQueue(ctx, team.ID, f.Draft.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.PlayerID{f.Players[1].ID}, queuedPlayers(entries))

	entries, err = app.GetQueue(ctx, team.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRemoveFromQueue(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := fantasyteam.NewApp(f.Store)
	ctx := context.Background()
	team := f.Teams[0]

	_, err := app.AddToQueue(ctx, fantasyteam.AddToQueueRequest{TeamID: team.ID, PlayerID: f.Players[3].ID, ActingUserID: team.OwnerID})
	require.NoError(t, err)

	assert.ErrorIs(t, app.RemoveFromQueue(ctx, team.ID, f.Players[3].ID, f.Teams[2].OwnerID), draft.ErrNotTeamOwner)
	require.NoError(t, app.RemoveFromQueue(ctx, team.ID, f.Players[3].ID, team.OwnerID))
	assert.ErrorIs(t, app.RemoveFromQueue(ctx, team.ID, f.Players[3].ID, team.OwnerID), draft.ErrNotFound)
}

func TestSetAutoPick(t *testing.T) {
	f := fixture.New(fixture.Options{})
	app := fantasyteam.NewApp(f.Store)
	ctx := context.Background()
	team := f.Teams[0]
	on, off := true, false

	got, err := app.SetAutoPick(ctx, fantasyteam.SetAutoPickRequest{TeamID: team.ID, Enabled: &on, ActingUserID: team.OwnerID})
	require.NoError(t, err)
	require.NotNil(t, got.AutoPickPreference)
	assert.True(t, *got.AutoPickPreference)

	got, err = app.SetAutoPick(ctx, fantasyteam.SetAutoPickRequest{TeamID: team.ID, Enabled: &off, ActingUserID: f.Commissioner})
	require.NoError(t, err)
	assert.False(t, *got.AutoPickPreference)

	got, err = app.SetAutoPick(ctx, fantasyteam.SetAutoPickRequest{TeamID: team.ID, ActingUserID: team.OwnerID})
	require.NoError(t, err)
	assert.Nil(t, got.AutoPickPreference)

	_, err = app.SetAutoPick(ctx, fantasyteam.SetAutoPickRequest{TeamID: team.ID, Enabled: &on, ActingUserID: f.Teams[1].OwnerID})
	assert.ErrorIs(t, err, draft.ErrNotTeamOwner)
}
