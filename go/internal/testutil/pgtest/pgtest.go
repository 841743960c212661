// Package pgtest starts a throwaway PostgreSQL for integration tests.
// Tests using it are skipped unless DRAFTROOM_INTEGRATION is set.
package pgtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/draftroom/go/internal/migrations"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const EnvIntegration = "DRAFTROOM_INTEGRATION"

// SkipUnlessIntegration skips t when integration tests are not enabled.
func SkipUnlessIntegration(t testing.TB) {
	t.Helper()
	if os.Getenv(EnvIntegration) == "" {
		t.Skipf("set %s=1 to run integration tests", EnvIntegration)
	}
}

// Database is a migrated PostgreSQL container.
type Database struct {
	Pool      *pgxpool.Pool
	DSN       string
	container *postgres.PostgresContainer
}

// Start runs postgres:15-alpine, applies migrations and returns a pool.
func Start(t testing.TB) *Database {
	t.Helper()
	SkipUnlessIntegration(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("draftroom"),
		postgres.WithUsername("draftroom"),
		postgres.WithPassword("draftroom"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, migrations.Up(pool))

	return &Database{Pool: pool, DSN: dsn, container: container}
}

func (d *Database) Close(t testing.TB) {
	t.Helper()
	d.Pool.Close()
	if err := testcontainers.TerminateContainer(d.container); err != nil {
		t.Logf("failed to terminate postgres container: %v", err)
	}
}

// Reset empties every table between tests.
func (d *Database) Reset(t testing.TB) {
	t.Helper()
	_, err := d.Pool.Exec(context.Background(),
		`TRUNCATE draft_outbox, draft_queue, draft_picks, draft_settings, players, fantasy_teams, leagues CASCADE`)
	require.NoError(t, err)
}

func (d *Database) InsertLeague(t testing.TB, l models.League) {
	t.Helper()
	_, err := d.Pool.Exec(context.Background(),
		`INSERT INTO leagues (id, name, sport_id, commissioner_id) VALUES ($1, $2, $3, $4)`,
		l.ID, l.Name, l.SportID, l.CommissionerID)
	require.NoError(t, err)
}

func (d *Database) InsertTeam(t testing.TB, team models.FantasyTeam) {
	t.Helper()
	_, err := d.Pool.Exec(context.Background(),
		`INSERT INTO fantasy_teams (id, league_id, owner_id, name, auto_pick_preference) VALUES ($1, $2, $3, $4, $5)`,
		team.ID, team.LeagueID, team.OwnerID, team.Name, team.AutoPickPreference)
	require.NoError(t, err)
}

func (d *Database) InsertPlayer(t testing.TB, p models.Player) {
	t.Helper()
	_, err := d.Pool.Exec(context.Background(),
		`INSERT INTO players (id, sport_id, full_name, position, rank) VALUES ($1, $2, $3, $4, $5)`,
		p.ID.UUID(), p.SportID, p.FullName, p.Position, p.Rank)
	require.NoError(t, err)
}

// NewPlayer builds a ranked player of the sport.
func NewPlayer(sportID, name string, rank int) models.Player {
	return models.Player{
		ID:       models.PlayerID(uuid.New()),
		SportID:  sportID,
		FullName: name,
		Position: "RB",
		Rank:     &rank,
	}
}
