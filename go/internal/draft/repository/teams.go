package repository

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

const teamColumns = `id, league_id, owner_id, name, auto_pick_preference, created_at`

func (q *Queries) GetLeague(ctx context.Context, id uuid.UUID) (models.League, error) {
	var l models.League
	err := q.db.QueryRow(ctx,
		`SELECT id, name, sport_id, commissioner_id, created_at FROM leagues WHERE id = $1`, id,
	).Scan(&l.ID, &l.Name, &l.SportID, &l.CommissionerID, &l.CreatedAt)
	if err != nil {
		return models.League{}, fmt.Errorf("failed to get league %s: %w", id, mapError(err))
	}
	return l, nil
}

func (q *Queries) GetTeam(ctx context.Context, id uuid.UUID) (models.FantasyTeam, error) {
	var t models.FantasyTeam
	if err := pgxscan.Get(ctx, q.db, &t, `SELECT `+teamColumns+` FROM fantasy_teams WHERE id = $1`, id); err != nil {
		return models.FantasyTeam{}, fmt.Errorf("failed to get team %s: %w", id, mapError(err))
	}
	return t, nil
}

func (q *Queries) ListLeagueTeams(ctx context.Context, leagueID uuid.UUID) ([]models.FantasyTeam, error) {
	var teams []models.FantasyTeam
	err := pgxscan.Select(ctx, q.db, &teams,
		`SELECT `+teamColumns+` FROM fantasy_teams WHERE league_id = $1 ORDER BY created_at, id`, leagueID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams of league %s: %w", leagueID, mapError(err))
	}
	return teams, nil
}

func (q *Queries) SetAutoPickPreference(ctx context.Context, teamID uuid.UUID, enabled *bool) (models.FantasyTeam, error) {
	var t models.FantasyTeam
	err := pgxscan.Get(ctx, q.db, &t, `
		UPDATE fantasy_teams SET auto_pick_preference = $2
		WHERE id = $1
		RETURNING `+teamColumns,
		teamID, enabled,
	)
	if err != nil {
		return models.FantasyTeam{}, fmt.Errorf("failed to set auto-pick preference of team %s: %w", teamID, mapError(err))
	}
	return t, nil
}

func (q *Queries) GetPlayer(ctx context.Context, id models.PlayerID) (models.Player, error) {
	var row playerRow
	err := pgxscan.Get(ctx, q.db, &row,
		`SELECT id, sport_id, full_name, position, rank FROM players WHERE id = $1`, id.UUID(),
	)
	if err != nil {
		return models.Player{}, fmt.Errorf("failed to get player %s: %w", id, mapError(err))
	}
	return row.toModel(), nil
}

func (q *Queries) TopRankedAvailable(ctx context.Context, draftID uuid.UUID, sportID string) (models.Player, error) {
	var row playerRow
	err := pgxscan.Get(ctx, q.db, &row, `
		SELECT p.id, p.sport_id, p.full_name, p.position, p.rank
		FROM players p
		WHERE p.sport_id = $2
		  AND NOT EXISTS (
		      SELECT 1 FROM draft_picks dp WHERE dp.draft_id = $1 AND dp.player_id = p.id
		  )
		ORDER BY p.rank ASC NULLS LAST, p.full_name, p.id
		LIMIT 1`,
		draftID, sportID,
	)
	if err != nil {
		return models.Player{}, fmt.Errorf("failed to find available player: %w", mapError(err))
	}
	return row.toModel(), nil
}

func (q *Queries) ListAvailablePlayers(ctx context.Context, arg ListAvailablePlayersParams) ([]models.Player, error) {
	var rows []playerRow
	err := pgxscan.Select(ctx, q.db, &rows, `
		SELECT p.id, p.sport_id, p.full_name, p.position, p.rank
		FROM players p
		WHERE p.sport_id = $2
		  AND ($3 = '' OR p.position = $3)
		  AND NOT EXISTS (
		      SELECT 1 FROM draft_picks dp WHERE dp.draft_id = $1 AND dp.player_id = p.id
		  )
		ORDER BY p.rank ASC NULLS LAST, p.full_name, p.id
		LIMIT $4 OFFSET $5`,
		arg.DraftID, arg.SportID, arg.Position, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", mapError(err))
	}
	players := make([]models.Player, 0, len(rows))
	for _, row := range rows {
		players = append(players, row.toModel())
	}
	return players, nil
}
