package gateway

import (
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnection(cm *ConnectionManager, draftID uuid.UUID) *Connection {
	c := &Connection{
		ID:      uuid.NewString(),
		DraftID: draftID,
		Send:    make(chan []byte, cm.config.SendBuffer),
		Manager: cm,
	}
	cm.registerConnection(c)
	return c
}

func drain(c *Connection) []string {
	var out []string
	for {
		select {
		case frame, ok := <-c.Send:
			if !ok {
				return out
			}
			out = append(out, string(frame))
		default:
			return out
		}
	}
}

func TestConnection_SnapshotGoesOutBeforeHeldFrames(t *testing.T) {
	cm := NewConnectionManager(ConnectionConfig{SendBuffer: 4}, nil)
	draftID := uuid.New()
	c := newTestConnection(cm, draftID)

	assert.Equal(t, 1, cm.BroadcastToDraft(draftID, []byte("e1")))
	assert.Equal(t, 1, cm.BroadcastToDraft(draftID, []byte("e2")))
	require.True(t, c.start(nil, []byte("snapshot")))
	assert.Equal(t, 1, cm.BroadcastToDraft(draftID, []byte("e3")))

	assert.Equal(t, []string{"snapshot", "e1", "e2", "e3"}, drain(c))
}

func TestBroadcast_ClosesSlowConsumer(t *testing.T) {
	metrics := NewPrometheusMetrics(prometheus.NewRegistry())
	cm := NewConnectionManager(ConnectionConfig{SendBuffer: 2}, metrics)
	draftID := uuid.New()
	slow := newTestConnection(cm, draftID)
	require.True(t, slow.start(nil, []byte("snapshot")))

	other := newTestConnection(cm, uuid.New())
	require.True(t, other.start(nil, []byte("snapshot")))

	assert.Equal(t, 1, cm.BroadcastToDraft(draftID, []byte("e1")))
	assert.Equal(t, 0, cm.BroadcastToDraft(draftID, []byte("e2")), "queue is full")

	stats := cm.GetConnectionStats()
	assert.Equal(t, 1, stats.TotalConnections, "only the slow connection is dropped")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SlowConsumers()))

	assert.Equal(t, []string{"snapshot", "e1"}, drain(slow))
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestConnection_PendingOverflowFailsStart(t *testing.T) {
	cm := NewConnectionManager(ConnectionConfig{SendBuffer: 2}, nil)
	draftID := uuid.New()
	c := newTestConnection(cm, draftID)

	assert.Equal(t, 1, cm.BroadcastToDraft(draftID, []byte("e1")))
	assert.Equal(t, 0, cm.BroadcastToDraft(draftID, []byte("e2")))
	assert.False(t, c.start(nil, []byte("snapshot")), "dropped while pending")
}
