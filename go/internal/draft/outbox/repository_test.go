package outbox_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/outbox"
	"github.com/mcdev12/draftroom/go/internal/testutil/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertOutbox(t *testing.T, db *pgtest.Database, draftID uuid.UUID, typ events.Type) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO draft_outbox (id, draft_id, event_type, payload) VALUES ($1, $2, $3, $4)`,
		id, draftID, string(typ), `{"draft":{"version":1}}`)
	require.NoError(t, err)
	return id
}

func TestRepositoryAndListener_Integration(t *testing.T) {
	pg := pgtest.Start(t)
	defer pg.Close(t)

	sqlDB, err := sql.Open("postgres", pg.DSN)
	require.NoError(t, err)
	defer sqlDB.Close()
	repo := outbox.NewRepository(sqlDB)
	ctx := context.Background()

	t.Run("fetch, mark and count", func(t *testing.T) {
		pg.Reset(t)
		draftID := uuid.New()
		first := insertOutbox(t, pg, draftID, events.TypeDraftStarted)
		second := insertOutbox(t, pg, draftID, events.TypePickStarted)

		rows, err := repo.FetchUnsent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, first, rows[0].ID)
		assert.Equal(t, second, rows[1].ID)
		assert.Less(t, rows[0].Seq, rows[1].Seq)
		assert.Equal(t, events.TypeDraftStarted, rows[0].EventType)
		assert.JSONEq(t, `{"draft":{"version":1}}`, string(rows[0].Payload))

		pending, err := repo.Pending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, pending.Count)
		assert.False(t, pending.Oldest.IsZero())

		require.NoError(t, repo.MarkSent(ctx, first, time.Now()))
		rows, err = repo.FetchUnsent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, second, rows[0].ID)
	})

	t.Run("notification drains new rows", func(t *testing.T) {
		pg.Reset(t)
		pub := &recordingPublisher{}
		cfg := relayConfig()
		cfg.FallbackInterval = time.Hour
		relay := outbox.NewRelay(repo, pub, nil, clockwork.NewRealClock(), cfg)

		listener, err := outbox.NewListener(pg.DSN, relay, cfg)
		require.NoError(t, err)
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- listener.Start(runCtx) }()
		defer func() {
			cancel()
			<-done
		}()

		require.Eventually(t, listener.Active, 5*time.Second, 10*time.Millisecond)
		id := insertOutbox(t, pg, uuid.New(), events.TypePickMade)

		require.Eventually(t, func() bool {
			pub.mu.Lock()
			defer pub.mu.Unlock()
			return len(pub.published) == 1 && pub.published[0].ID == id
		}, 10*time.Second, 20*time.Millisecond)

		require.Eventually(t, func() bool {
			p, err := repo.Pending(ctx)
			return err == nil && p.Count == 0
		}, 5*time.Second, 20*time.Millisecond)
	})
}
