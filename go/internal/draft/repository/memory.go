package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// MemoryStore is an in-process Store with the same conflict semantics as
// PostgreSQL. Transactions are serialized; a failed unit of work restores
// the state it started from.
type MemoryStore struct {
	mu    sync.Mutex
	st    *memState
	clock clockwork.Clock

	hookMu   sync.Mutex
	onCommit func([]events.OutboxEvent)
}

type memQueueItem struct {
	entry models.QueueEntry
	added int64
}

type memState struct {
	leagues map[uuid.UUID]models.League
	teams   map[uuid.UUID]models.FantasyTeam
	players map[models.PlayerID]models.Player
	drafts  map[uuid.UUID]models.Draft
	picks   map[uuid.UUID][]models.DraftPick
	queues  map[uuid.UUID][]memQueueItem
	outbox  []events.OutboxEvent
	seq     int64
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock: clock,
		st: &memState{
			leagues: map[uuid.UUID]models.League{},
			teams:   map[uuid.UUID]models.FantasyTeam{},
			players: map[models.PlayerID]models.Player{},
			drafts:  map[uuid.UUID]models.Draft{},
			picks:   map[uuid.UUID][]models.DraftPick{},
			queues:  map[uuid.UUID][]memQueueItem{},
		},
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		leagues: make(map[uuid.UUID]models.League, len(st.leagues)),
		teams:   make(map[uuid.UUID]models.FantasyTeam, len(st.teams)),
		players: make(map[models.PlayerID]models.Player, len(st.players)),
		drafts:  make(map[uuid.UUID]models.Draft, len(st.drafts)),
		picks:   make(map[uuid.UUID][]models.DraftPick, len(st.picks)),
		queues:  make(map[uuid.UUID][]memQueueItem, len(st.queues)),
		outbox:  append([]events.OutboxEvent(nil), st.outbox...),
		seq:     st.seq,
	}
	for k, v := range st.leagues {
		c.leagues[k] = v
	}
	for k, v := range st.teams {
		c.teams[k] = v
	}
	for k, v := range st.players {
		c.players[k] = v
	}
	for k, v := range st.drafts {
		c.drafts[k] = v
	}
	for k, v := range st.picks {
		c.picks[k] = append([]models.DraftPick(nil), v...)
	}
	for k, v := range st.queues {
		c.queues[k] = append([]memQueueItem(nil), v...)
	}
	return c
}

// SetCommitHook registers fn to receive the outbox events of every
// committed unit of work, in commit order. fn must not commit to the store
// synchronously.
func (s *MemoryStore) SetCommitHook(fn func([]events.OutboxEvent)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onCommit = fn
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(q Querier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := s.st.clone()
	q := &memQuerier{st: s.st, now: s.clock.Now}
	if err := fn(q); err != nil {
		s.st = snapshot
		s.mu.Unlock()
		return err
	}

	s.hookMu.Lock()
	s.mu.Unlock()
	if s.onCommit != nil && len(q.emitted) > 0 {
		s.onCommit(q.emitted)
	}
	s.hookMu.Unlock()
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(q Querier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memQuerier{st: s.st, now: s.clock.Now})
}

// Outbox returns every event committed so far, in insertion order.
func (s *MemoryStore) Outbox() []events.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.OutboxEvent(nil), s.st.outbox...)
}

func (s *MemoryStore) AddLeague(l models.League) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.leagues[l.ID] = l
}

func (s *MemoryStore) AddTeam(t models.FantasyTeam) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.teams[t.ID] = t
}

func (s *MemoryStore) AddPlayer(p models.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.players[p.ID] = p
}

// AddDraft stores d as is. Zero CurrentPick, CurrentRound and Version are
// set to 1.
func (s *MemoryStore) AddDraft(d models.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.CurrentPick == 0 {
		d.CurrentPick = 1
	}
	if d.CurrentRound == 0 {
		d.CurrentRound = 1
	}
	if d.Version == 0 {
		d.Version = 1
	}
	s.st.drafts[d.ID] = d
}

type memQuerier struct {
	st      *memState
	now     func() time.Time
	emitted []events.OutboxEvent
}

func (q *memQuerier) CreateDraft(_ context.Context, arg CreateDraftParams) (models.Draft, error) {
	for _, d := range q.st.drafts {
		if d.LeagueID == arg.LeagueID {
			return models.Draft{}, fmt.Errorf("failed to create draft: league %s already has a draft", arg.LeagueID)
		}
	}
	now := q.now()
	d := models.Draft{
		ID:              arg.ID,
		LeagueID:        arg.LeagueID,
		DraftType:       arg.DraftType,
		Status:          models.DraftStatusScheduled,
		DraftOrder:      append([]uuid.UUID(nil), arg.DraftOrder...),
		TotalRounds:     arg.TotalRounds,
		CurrentPick:     1,
		CurrentRound:    1,
		TimePerPickSec:  arg.TimePerPickSec,
		AutoPickEnabled: arg.AutoPickEnabled,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	q.st.drafts[d.ID] = d
	return d, nil
}

func (q *memQuerier) GetDraft(_ context.Context, id uuid.UUID) (models.Draft, error) {
	d, ok := q.st.drafts[id]
	if !ok {
		return models.Draft{}, fmt.Errorf("failed to get draft %s: %w", id, draft.ErrNotFound)
	}
	return d, nil
}

// LockDraft is GetDraft: memory transactions already run one at a time.
func (q *memQuerier) LockDraft(ctx context.Context, id uuid.UUID) (models.Draft, error) {
	return q.GetDraft(ctx, id)
}

func (q *memQuerier) ListActiveDrafts(_ context.Context) ([]models.Draft, error) {
	var out []models.Draft
	for _, d := range q.st.drafts {
		if d.Status == models.DraftStatusInProgress {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (q *memQuerier) update(id uuid.UUID, fn func(d *models.Draft) error) (models.Draft, error) {
	d, ok := q.st.drafts[id]
	if !ok {
		return models.Draft{}, fmt.Errorf("draft %s: %w", id, draft.ErrNotFound)
	}
	if err := fn(&d); err != nil {
		return models.Draft{}, err
	}
	d.Version++
	d.UpdatedAt = q.now()
	q.st.drafts[id] = d
	return d, nil
}

func (q *memQuerier) CompareAndAdvance(_ context.Context, id uuid.UUID, expectedPick, nextPick, nextRound int) (models.Draft, error) {
	return q.update(id, func(d *models.Draft) error {
		if d.Status != models.DraftStatusInProgress || d.CurrentPick != expectedPick {
			return fmt.Errorf("%w: draft %s is no longer at pick %d", draft.ErrStaleState, id, expectedPick)
		}
		d.CurrentPick = nextPick
		d.CurrentRound = nextRound
		return nil
	})
}

func (q *memQuerier) SetPauseState(_ context.Context, id uuid.UUID, paused bool) (models.Draft, error) {
	return q.update(id, func(d *models.Draft) error {
		d.IsPaused = paused
		return nil
	})
}

func (q *memQuerier) StartDraft(_ context.Context, id uuid.UUID, startedAt time.Time) (models.Draft, error) {
	return q.update(id, func(d *models.Draft) error {
		if d.Status != models.DraftStatusScheduled {
			return fmt.Errorf("%w: draft %s is not scheduled", draft.ErrStaleState, id)
		}
		d.Status = models.DraftStatusInProgress
		d.CurrentPick = 1
		d.CurrentRound = 1
		d.IsPaused = false
		d.StartedAt = &startedAt
		return nil
	})
}

func (q *memQuerier) CompleteDraft(_ context.Context, id uuid.UUID, completedAt time.Time) (models.Draft, error) {
	return q.update(id, func(d *models.Draft) error {
		d.Status = models.DraftStatusCompleted
		d.IsPaused = false
		d.CompletedAt = &completedAt
		return nil
	})
}

func (q *memQuerier) InsertPick(_ context.Context, pick models.DraftPick) error {
	if _, ok := q.st.drafts[pick.DraftID]; !ok {
		return fmt.Errorf("failed to insert pick: draft %s: %w", pick.DraftID, draft.ErrNotFound)
	}
	if _, ok := q.st.players[pick.PlayerID]; !ok {
		return fmt.Errorf("failed to insert pick %d: %w", pick.PickNumber, draft.ErrInvalidPlayer)
	}
	for _, p := range q.st.picks[pick.DraftID] {
		if p.PickNumber == pick.PickNumber {
			return fmt.Errorf("failed to insert pick %d: %w: pick slot already filled", pick.PickNumber, draft.ErrStaleState)
		}
		if p.PlayerID == pick.PlayerID {
			return fmt.Errorf("failed to insert pick %d: %w", pick.PickNumber, draft.ErrPlayerAlreadyDrafted)
		}
	}
	q.st.picks[pick.DraftID] = append(q.st.picks[pick.DraftID], pick)
	return nil
}

func (q *memQuerier) ListPicks(_ context.Context, draftID uuid.UUID) ([]models.DraftPick, error) {
	picks := append([]models.DraftPick(nil), q.st.picks[draftID]...)
	sort.Slice(picks, func(i, j int) bool { return picks[i].PickNumber < picks[j].PickNumber })
	return picks, nil
}

func (q *memQuerier) IsPlayerDrafted(_ context.Context, draftID uuid.UUID, playerID models.PlayerID) (bool, error) {
	for _, p := range q.st.picks[draftID] {
		if p.PlayerID == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (q *memQuerier) GetLeague(_ context.Context, id uuid.UUID) (models.League, error) {
	l, ok := q.st.leagues[id]
	if !ok {
		return models.League{}, fmt.Errorf("failed to get league %s: %w", id, draft.ErrNotFound)
	}
	return l, nil
}

func (q *memQuerier) GetTeam(_ context.Context, id uuid.UUID) (models.FantasyTeam, error) {
	t, ok := q.st.teams[id]
	if !ok {
		return models.FantasyTeam{}, fmt.Errorf("failed to get team %s: %w", id, draft.ErrNotFound)
	}
	return t, nil
}

func (q *memQuerier) ListLeagueTeams(_ context.Context, leagueID uuid.UUID) ([]models.FantasyTeam, error) {
	var out []models.FantasyTeam
	for _, t := range q.st.teams {
		if t.LeagueID == leagueID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (q *memQuerier) SetAutoPickPreference(_ context.Context, teamID uuid.UUID, enabled *bool) (models.FantasyTeam, error) {
	t, ok := q.st.teams[teamID]
	if !ok {
		return models.FantasyTeam{}, fmt.Errorf("failed to set auto-pick preference of team %s: %w", teamID, draft.ErrNotFound)
	}
	if enabled != nil {
		v := *enabled
		enabled = &v
	}
	t.AutoPickPreference = enabled
	q.st.teams[teamID] = t
	return t, nil
}

func (q *memQuerier) GetPlayer(_ context.Context, id models.PlayerID) (models.Player, error) {
	p, ok := q.st.players[id]
	if !ok {
		return models.Player{}, fmt.Errorf("failed to get player %s: %w", id, draft.ErrNotFound)
	}
	return p, nil
}

func (q *memQuerier) TopRankedAvailable(ctx context.Context, draftID uuid.UUID, sportID string) (models.Player, error) {
	var best *models.Player
	for _, p := range q.st.players {
		if p.SportID != sportID {
			continue
		}
		if drafted, _ := q.IsPlayerDrafted(ctx, draftID, p.ID); drafted {
			continue
		}
		if best == nil || rankedBefore(p, *best) {
			p := p
			best = &p
		}
	}
	if best == nil {
		return models.Player{}, fmt.Errorf("failed to find available player: %w", draft.ErrNotFound)
	}
	return *best, nil
}

func (q *memQuerier) ListAvailablePlayers(ctx context.Context, arg ListAvailablePlayersParams) ([]models.Player, error) {
	var out []models.Player
	for _, p := range q.st.players {
		if p.SportID != arg.SportID || (arg.Position != "" && p.Position != arg.Position) {
			continue
		}
		if drafted, _ := q.IsPlayerDrafted(ctx, arg.DraftID, p.ID); drafted {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return rankedBefore(out[i], out[j]) })

	if arg.Offset >= len(out) {
		return []models.Player{}, nil
	}
	out = out[arg.Offset:]
	if arg.Limit > 0 && arg.Limit < len(out) {
		out = out[:arg.Limit]
	}
	return out, nil
}

// rankedBefore orders by rank ascending with unranked players last, then
// by name and id.
func rankedBefore(a, b models.Player) bool {
	switch {
	case a.Rank != nil && b.Rank == nil:
		return true
	case a.Rank == nil && b.Rank != nil:
		return false
	case a.Rank != nil && *a.Rank != *b.Rank:
		return *a.Rank < *b.Rank
	case a.FullName != b.FullName:
		return a.FullName < b.FullName
	}
	return a.ID.String() < b.ID.String()
}

func (q *memQuerier) ListQueue(ctx context.Context, teamID, draftID uuid.UUID) ([]models.QueueEntry, error) {
	items := append([]memQueueItem(nil), q.st.queues[teamID]...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].entry.Priority != items[j].entry.Priority {
			return items[i].entry.Priority < items[j].entry.Priority
		}
		return items[i].added < items[j].added
	})

	entries := make([]models.QueueEntry, len(items))
	for i, it := range items {
		e := it.entry
		e.Drafted, _ = q.IsPlayerDrafted(ctx, draftID, e.PlayerID)
		entries[i] = e
	}
	return entries, nil
}

func (q *memQuerier) UpsertQueueEntry(_ context.Context, entry models.QueueEntry) error {
	if _, ok := q.st.players[entry.PlayerID]; !ok {
		return fmt.Errorf("failed to upsert queue entry: %w", draft.ErrInvalidPlayer)
	}
	entry.Drafted = false
	items := q.st.queues[entry.TeamID]
	for i, it := range items {
		if it.entry.PlayerID == entry.PlayerID {
			items[i].entry.Priority = entry.Priority
			return nil
		}
	}
	q.st.seq++
	q.st.queues[entry.TeamID] = append(items, memQueueItem{entry: entry, added: q.st.seq})
	return nil
}

func (q *memQuerier) DeleteQueueEntry(_ context.Context, teamID uuid.UUID, playerID models.PlayerID) error {
	items := q.st.queues[teamID]
	for i, it := range items {
		if it.entry.PlayerID == playerID {
			q.st.queues[teamID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("queue entry for player %s: %w", playerID, draft.ErrNotFound)
}

func (q *memQuerier) ReplaceQueue(ctx context.Context, teamID uuid.UUID, entries []models.QueueEntry) error {
	delete(q.st.queues, teamID)
	for _, e := range entries {
		e.TeamID = teamID
		if err := q.UpsertQueueEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (q *memQuerier) InsertOutboxEvent(_ context.Context, event events.OutboxEvent) error {
	q.st.seq++
	event.Seq = q.st.seq
	q.st.outbox = append(q.st.outbox, event)
	q.emitted = append(q.emitted, event)
	return nil
}
