package lifecycle_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/draftroom/go/internal/draft/lifecycle"
	"github.com/mcdev12/draftroom/go/internal/httputil"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_PauseAndGet(t *testing.T) {
	f := fixture.New(fixture.Options{})
	r := chi.NewRouter()
	lifecycle.NewService(lifecycle.NewApp(f.Store, f.Clock)).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/draft/"+f.Draft.ID.String()+"/pause", nil)
	req.Header.Set(httputil.HeaderUserID, f.Commissioner.String())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var d models.Draft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.True(t, d.IsPaused)

	req = httptest.NewRequest(http.MethodPost, "/draft/"+f.Draft.ID.String()+"/resume", nil)
	req.Header.Set(httputil.HeaderUserID, f.Teams[0].OwnerID.String())
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/draft/"+f.Draft.ID.String(), nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var state lifecycle.DraftState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.Draft.IsPaused)
}

func TestService_CreateDraftValidation(t *testing.T) {
	f := fixture.New(fixture.Options{})
	r := chi.NewRouter()
	lifecycle.NewService(lifecycle.NewApp(f.Store, f.Clock)).RegisterRoutes(r)

	body := `{"leagueId":"` + f.League.ID.String() + `","draftType":"AUCTION","draftOrder":["` +
		f.Teams[0].ID.String() + `"],"totalRounds":1,"timePerPickSec":10}`
	req := httptest.NewRequest(http.MethodPost, "/draft/", strings.NewReader(body))
	req.Header.Set(httputil.HeaderUserID, f.Commissioner.String())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
