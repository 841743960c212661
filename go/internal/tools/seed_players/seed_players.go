package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mcdev12/draftroom/go/internal/dbconfig"
	"github.com/mcdev12/draftroom/go/internal/logging"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// playerPool is the layout of players.yaml.
type playerPool struct {
	SportID string       `yaml:"sport_id"`
	Players []seedPlayer `yaml:"players"`
}

type seedPlayer struct {
	// ID is optional. Without one the id is derived from sport and name so
	// re-running the seed updates rows instead of duplicating them.
	ID       string `yaml:"id"`
	FullName string `yaml:"full_name"`
	Position string `yaml:"position"`
	Rank     *int   `yaml:"rank"`
}

func loadPlayers(data []byte) ([]models.Player, error) {
	var pool playerPool
	if err := yaml.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("failed to parse player pool: %w", err)
	}
	if pool.SportID == "" {
		return nil, fmt.Errorf("player pool has no sport_id")
	}

	players := make([]models.Player, 0, len(pool.Players))
	for i, p := range pool.Players {
		if p.FullName == "" {
			return nil, fmt.Errorf("player %d has no full_name", i)
		}
		id := models.PlayerID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(pool.SportID+"/"+p.FullName)))
		if p.ID != "" {
			parsed, err := models.ParsePlayerID(p.ID)
			if err != nil {
				return nil, fmt.Errorf("player %q: %w", p.FullName, err)
			}
			id = parsed
		}
		players = append(players, models.Player{
			ID:       id,
			SportID:  pool.SportID,
			FullName: p.FullName,
			Position: p.Position,
			Rank:     p.Rank,
		})
	}
	return players, nil
}

func main() {
	file := flag.String("file", "go/internal/assets/players.yaml", "player pool YAML")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	logging.Setup(os.Getenv("LOG_LEVEL"), "seed-players")
	ctx := context.Background()

	// 1) Load the player pool
	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("failed to read player pool")
	}
	players, err := loadPlayers(data)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("invalid player pool")
	}

	// 2) Connect to DB
	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database config")
	}
	pool, err := cfg.OpenPool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	// 3) Seed players
	inserted, updated, errs := seed(ctx, pool, players)
	log.Info().
		Int("total", len(players)).
		Int("inserted", inserted).
		Int("updated", updated).
		Int("errors", errs).
		Msg("players seeded")
	if errs > 0 {
		os.Exit(1)
	}
}

func seed(ctx context.Context, pool *pgxpool.Pool, players []models.Player) (inserted, updated, errs int) {
	for _, p := range players {
		// xmax is zero only for freshly inserted rows.
		var wasInsert bool
		err := pool.QueryRow(ctx, `
            INSERT INTO players (id, sport_id, full_name, position, rank)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (id) DO UPDATE
              SET full_name = EXCLUDED.full_name,
                  position  = EXCLUDED.position,
                  rank      = EXCLUDED.rank
            RETURNING (xmax = 0)
        `, p.ID.UUID(), p.SportID, p.FullName, p.Position, p.Rank).Scan(&wasInsert)
		if err != nil {
			log.Error().Err(err).Str("player", p.FullName).Msg("failed to seed player")
			errs++
			continue
		}
		if wasInsert {
			inserted++
		} else {
			updated++
		}
	}
	return inserted, updated, errs
}
