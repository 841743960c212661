package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/gateway"
	"github.com/mcdev12/draftroom/go/internal/draft/lifecycle"
	"github.com/mcdev12/draftroom/go/internal/draft/pick"
	"github.com/mcdev12/draftroom/go/internal/testutil/fixture"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayHarness struct {
	f       *fixture.Fixture
	svc     *gateway.Service
	picks   *pick.App
	metrics *gateway.PrometheusMetrics
	server  *httptest.Server
	ctx     context.Context
}

// newGatewayHarness feeds committed outbox events into the gateway from a
// single goroutine, the way the stream consumer does.
func newGatewayHarness(t *testing.T) *gatewayHarness {
	t.Helper()
	f := fixture.New(fixture.Options{})
	metrics := gateway.NewPrometheusMetrics(prometheus.NewRegistry())
	svc := gateway.NewService(gateway.DefaultConnectionConfig(), lifecycle.NewApp(f.Store, f.Clock), f.Clock, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	feed := make(chan events.Envelope, 64)
	f.Store.SetCommitHook(func(evs []events.OutboxEvent) {
		for _, ev := range evs {
			feed <- ev.Envelope()
		}
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case env := <-feed:
				_ = svc.HandleEvent(ctx, env)
			}
		}
	}()

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		svc.Close()
		server.Close()
		cancel()
		<-done
	})
	return &gatewayHarness{
		f:       f,
		svc:     svc,
		picks:   pick.NewApp(f.Store, nil, f.Clock, nil),
		metrics: metrics,
		server:  server,
		ctx:     ctx,
	}
}

func (h *gatewayHarness) dial(t *testing.T, draftID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws/draft?draft_id=" + draftID
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-User-ID": []string{uuid.NewString()}})
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func readFrame(t *testing.T, conn *websocket.Conn) gateway.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame gateway.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func (h *gatewayHarness) pick(t *testing.T, teamIdx, playerIdx int) {
	t.Helper()
	_, err := h.picks.SubmitPick(h.ctx, pick.SubmitPickRequest{
		DraftID:      h.f.Draft.ID,
		TeamID:       h.f.Teams[teamIdx].ID,
		PlayerID:     h.f.Players[playerIdx].ID,
		ActingUserID: h.f.Teams[teamIdx].OwnerID,
	})
	require.NoError(t, err)
}

func TestWebSocket_SnapshotFirstThenOrderedEvents(t *testing.T) {
	h := newGatewayHarness(t)
	conn, _, err := h.dial(t, h.f.Draft.ID.String())
	require.NoError(t, err)

	first := readFrame(t, conn)
	require.Equal(t, gateway.FrameSnapshot, first.Type)
	require.NotNil(t, first.State)
	assert.Equal(t, h.f.Draft.ID, first.State.Draft.ID)
	require.NotNil(t, first.State.CurrentPick)
	assert.Equal(t, h.f.Teams[0].ID, first.State.CurrentPick.TeamID)
	require.NotNil(t, first.State.TimeRemaining)
	assert.Equal(t, 60, *first.State.TimeRemaining)

	h.pick(t, 0, 0)
	h.pick(t, 1, 1)

	for want := 1; want <= 2; want++ {
		frame := readFrame(t, conn)
		require.Equal(t, gateway.FrameEvent, frame.Type)
		require.Equal(t, events.TypePickMade, frame.Event.EventType)
		snap, err := frame.Event.Snapshot()
		require.NoError(t, err)
		assert.Equal(t, want, snap.Pick.PickNumber)
		assert.Equal(t, int64(want+1), snap.Draft.Version)
	}
}

func TestWebSocket_RedeliveryIsNotFannedOutTwice(t *testing.T) {
	h := newGatewayHarness(t)
	conn, _, err := h.dial(t, h.f.Draft.ID.String())
	require.NoError(t, err)
	require.Equal(t, gateway.FrameSnapshot, readFrame(t, conn).Type)

	h.pick(t, 0, 0)
	frame := readFrame(t, conn)
	require.Equal(t, events.TypePickMade, frame.Event.EventType)

	outbox := h.f.Store.Outbox()
	require.NoError(t, h.svc.HandleEvent(h.ctx, outbox[len(outbox)-1].Envelope()))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Duplicates()))

	h.pick(t, 1, 1)
	frame = readFrame(t, conn)
	snap, err := frame.Event.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Pick.PickNumber, "the duplicate never reached the client")
}

func TestWebSocket_RejectsUnknownOrBadDraft(t *testing.T) {
	h := newGatewayHarness(t)

	_, resp, err := h.dial(t, uuid.NewString())
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = h.dial(t, "not-a-uuid")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Zero(t, h.svc.Stats().TotalConnections)
}

func TestStateRoutes(t *testing.T) {
	h := newGatewayHarness(t)
	h.pick(t, 0, 0)

	resp, err := http.Get(h.server.URL + "/api/drafts/" + h.f.Draft.ID.String() + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state gateway.DraftStateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, 8, state.TotalPicks)
	assert.Equal(t, 1, state.CompletedPicks)
	require.NotNil(t, state.CurrentPick)
	assert.Equal(t, 2, state.CurrentPick.OverallPick)
	assert.Equal(t, h.f.Teams[1].ID, state.CurrentPick.TeamID)

	resp, err = http.Get(h.server.URL + "/api/drafts/" + uuid.NewString() + "/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(h.server.URL + "/api/drafts/active")
	require.NoError(t, err)
	defer resp.Body.Close()
	var active []gateway.DraftSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&active))
	require.Len(t, active, 1)
	assert.Equal(t, h.f.Draft.ID, active[0].DraftID)
	assert.Equal(t, 4, active[0].TotalTeams)

	conn, _, err := h.dial(t, h.f.Draft.ID.String())
	require.NoError(t, err)
	readFrame(t, conn)

	resp, err = http.Get(h.server.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats gateway.ConnectionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.DraftConnections[h.f.Draft.ID.String()])
}

func TestBuildStateResponse_PausedDraftHasNoCountdown(t *testing.T) {
	f := fixture.New(fixture.Options{})
	d := f.Draft
	d.IsPaused = true
	team := f.Teams[0].ID

	resp := gateway.BuildStateResponse(lifecycle.DraftState{Draft: d, OnClockTeamID: &team}, f.Clock.Now().Add(10*time.Second))
	require.NotNil(t, resp.CurrentPick)
	assert.Nil(t, resp.TimeRemaining)
	assert.Empty(t, resp.Picks)

	d.IsPaused = false
	resp = gateway.BuildStateResponse(lifecycle.DraftState{Draft: d, OnClockTeamID: &team}, f.Clock.Now().Add(10*time.Second))
	require.NotNil(t, resp.TimeRemaining)
	assert.Equal(t, 50, *resp.TimeRemaining)
}
