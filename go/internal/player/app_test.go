package player_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/draft/pick"
	"github.com/mcdev12/draftroom/go/internal/fantasyteam"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/player"
	"github.com/mcdev12/draftroom/go/internal/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAvailable_HidesDraftedAndOrdersByRank(t *testing.T) {
	ctx := context.Background()
	f := fixture.New(fixture.Options{})
	unranked := f.AddPlayer(fixture.SportID, "Aaron Unranked", nil)
	f.AddPlayer("nba", "Wrong Sport", nil)

	_, err := pick.NewApp(f.Store, nil, f.Clock, nil).SubmitPick(ctx, pick.SubmitPickRequest{
		DraftID:      f.Draft.ID,
		TeamID:       f.Teams[0].ID,
		PlayerID:     f.Players[0].ID,
		ActingUserID: f.Teams[0].OwnerID,
	})
	require.NoError(t, err)

	app := player.NewApp(f.Store)
	players, err := app.ListAvailable(ctx, player.ListAvailableRequest{DraftID: f.Draft.ID})
	require.NoError(t, err)
	require.Len(t, players, 20)
	assert.Equal(t, f.Players[1].ID, players[0].ID)
	assert.Equal(t, unranked.ID, players[19].ID, "unranked players come last")

	page, err := app.ListAvailable(ctx, player.ListAvailableRequest{DraftID: f.Draft.ID, Limit: 5, Offset: 5})
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, f.Players[6].ID, page[0].ID)

	wr, err := app.ListAvailable(ctx, player.ListAvailableRequest{DraftID: f.Draft.ID, Position: " wr "})
	require.NoError(t, err)
	assert.Len(t, wr, 19)
}

func TestListAvailable_Errors(t *testing.T) {
	ctx := context.Background()
	f := fixture.New(fixture.Options{})
	app := player.NewApp(f.Store)

	_, err := app.ListAvailable(ctx, player.ListAvailableRequest{DraftID: uuid.New()})
	assert.ErrorIs(t, err, draft.ErrNotFound)

	_, err = app.ListAvailable(ctx, player.ListAvailableRequest{DraftID: f.Draft.ID, Limit: -1})
	assert.ErrorIs(t, err, draft.ErrInvalidRequest)
}

func TestNextAutoPick_QueueThenRanking(t *testing.T) {
	ctx := context.Background()
	f := fixture.New(fixture.Options{})
	app := player.NewApp(f.Store)
	team := f.Teams[0]

	p, err := app.NextAutoPick(ctx, f.Draft.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Players[0].ID, p.ID, "empty queue falls back to the ranking")

	_, err = fantasyteam.NewApp(f.Store).AddToQueue(ctx, fantasyteam.AddToQueueRequest{
		TeamID: team.ID, PlayerID: f.Players[7].ID, ActingUserID: team.OwnerID,
	})
	require.NoError(t, err)

	p, err = app.NextAutoPick(ctx, f.Draft.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Players[7].ID, p.ID)

	rec := get(t, f, "/draft/"+f.Draft.ID.String()+"/teams/"+team.ID.String()+"/next-auto-pick")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), f.Players[7].ID.String())
}

func get(t *testing.T, f *fixture.Fixture, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	player.NewService(player.NewApp(f.Store)).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestService_ListAvailable(t *testing.T) {
	f := fixture.New(fixture.Options{})

	rec := get(t, f, "/draft/"+f.Draft.ID.String()+"/players?limit=3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Players []models.Player `json:"players"`
		Limit   int             `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Players, 3)
	assert.Equal(t, 3, body.Limit)

	rec = get(t, f, "/draft/"+f.Draft.ID.String()+"/players?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, f, "/draft/not-a-uuid/players")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestService_GetPlayer(t *testing.T) {
	f := fixture.New(fixture.Options{})

	rec := get(t, f, "/players/"+f.Players[2].ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Player
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, f.Players[2].FullName, p.FullName)

	rec = get(t, f, "/players/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
