package fantasyteam_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/draftroom/go/internal/fantasyteam"
	"github.com/mcdev12/draftroom/go/internal/httputil"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(f *fixture.Fixture) chi.Router {
	r := chi.NewRouter()
	fantasyteam.NewService(fantasyteam.NewApp(f.Store)).RegisterRoutes(r)
	return r
}

func TestService_QueueRoundTrip(t *testing.T) {
	f := fixture.New(fixture.Options{})
	r := newRouter(f)
	team := f.Teams[0]
	base := "/teams/" + team.ID.String()

	body := `{"playerIds":["` + f.Players[5].ID.String() + `","` + f.Players[1].ID.String() + `"]}`
	req := httptest.NewRequest(http.MethodPut, base+"/queue", strings.NewReader(body))
	req.Header.Set(httputil.HeaderUserID, team.OwnerID.String())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodDelete, base+"/queue/"+f.Players[5].ID.String(), nil)
	req.Header.Set(httputil.HeaderUserID, team.OwnerID.String())
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, base+"/queue?draftId="+f.Draft.ID.String(), nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Entries []models.QueueEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, f.Players[1].ID, resp.Entries[0].PlayerID)
}

func TestService_QueueForbiddenForOtherOwner(t *testing.T) {
	f := fixture.New(fixture.Options{})
	body := `{"playerId":"` + f.Players[0].ID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/teams/"+f.Teams[0].ID.String()+"/queue", strings.NewReader(body))
	req.Header.Set(httputil.HeaderUserID, f.Teams[1].OwnerID.String())
	rec := httptest.NewRecorder()
	newRouter(f).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var errResp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "not team owner", errResp.Error)
}

func TestService_SetAutoPick(t *testing.T) {
	f := fixture.New(fixture.Options{})
	team := f.Teams[2]
	req := httptest.NewRequest(http.MethodPut, "/teams/"+team.ID.String()+"/auto-pick", strings.NewReader(`{"enabled":true}`))
	req.Header.Set(httputil.HeaderUserID, team.OwnerID.String())
	rec := httptest.NewRecorder()
	newRouter(f).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got models.FantasyTeam
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.AutoPickPreference)
	assert.True(t, *got.AutoPickPreference)
}
