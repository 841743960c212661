package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teams(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestTeamOnClock_LinearIsPeriodic(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 7, 12} {
		order := teams(n)
		for p := 1; p <= 5*n; p++ {
			got, err := TeamOnClock(models.DraftTypeLinear, order, p)
			require.NoError(t, err)
			next, err := TeamOnClock(models.DraftTypeLinear, order, p+n)
			require.NoError(t, err)
			assert.Equal(t, got, next, "n=%d pick=%d", n, p)
			assert.Equal(t, order[(p-1)%n], got)
		}
	}
}

func TestTeamOnClock_SnakeFourTeams(t *testing.T) {
	order := teams(4)
	a, b, c, d := order[0], order[1], order[2], order[3]
	want := []uuid.UUID{a, b, c, d, d, c, b, a, a, b}

	for i, w := range want {
		got, err := TeamOnClock(models.DraftTypeSnake, order, i+1)
		require.NoError(t, err)
		assert.Equal(t, w, got, "pick %d", i+1)
	}
}

func TestTeamOnClock_SnakeEveryTeamOncePerRound(t *testing.T) {
	order := teams(5)
	for round := 1; round <= 4; round++ {
		seen := map[uuid.UUID]bool{}
		for i := 0; i < len(order); i++ {
			got, err := TeamOnClock(models.DraftTypeSnake, order, (round-1)*len(order)+i+1)
			require.NoError(t, err)
			seen[got] = true
		}
		assert.Len(t, seen, len(order), "round %d", round)
	}
}

func TestTeamOnClock_InvalidState(t *testing.T) {
	tests := []struct {
		name      string
		draftType models.DraftType
		order     []uuid.UUID
		pick      int
	}{
		{"empty order", models.DraftTypeSnake, nil, 1},
		{"empty linear order", models.DraftTypeLinear, []uuid.UUID{}, 3},
		{"zero pick", models.DraftTypeLinear, teams(2), 0},
		{"unknown type", models.DraftType("AUCTION"), teams(2), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TeamOnClock(tt.draftType, tt.order, tt.pick)
			assert.ErrorIs(t, err, draft.ErrInvalidDraftState)
		})
	}
}

func TestRoundForPick(t *testing.T) {
	assert.Equal(t, 1, RoundForPick(1, 4))
	assert.Equal(t, 1, RoundForPick(4, 4))
	assert.Equal(t, 2, RoundForPick(5, 4))
	assert.Equal(t, 3, RoundForPick(9, 4))
	assert.Equal(t, 0, RoundForPick(3, 0))
}

func TestSlots(t *testing.T) {
	order := teams(3)
	slots, err := Slots(models.Draft{DraftType: models.DraftTypeSnake, DraftOrder: order, TotalRounds: 2})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{order[0], order[1], order[2], order[2], order[1], order[0]}, slots)

	_, err = Slots(models.Draft{DraftType: models.DraftTypeSnake, TotalRounds: 2})
	assert.ErrorIs(t, err, draft.ErrInvalidDraftState)
}
