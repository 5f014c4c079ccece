// Package registry owns the mapping from player identity to game
// state. It is the only component allowed to hold a live pig.State;
// everything it hands out is a snapshot. Records are created lazily on
// a player's first roll or reset, replaced wholesale on reset, and
// never deleted.
package registry

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/pigbots/pigbots/internal/leaderboard"
	"github.com/pigbots/pigbots/internal/pig"
)

// DefaultShards is the default number of lock shards.
const DefaultShards = 32

// ReportError wraps a leaderboard failure during Complete. The global
// games-played counter is untouched when this is returned.
type ReportError struct {
	Player string
	Err    error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("completion report for %q: %v", e.Player, e.Err)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// shard holds a slice of the player keyspace under its own lock, so
// that unrelated players never contend on a single registry-wide
// mutex. Two operations on the same player always hash to the same
// shard and therefore serialize.
type shard struct {
	mu    sync.RWMutex
	games map[string]*pig.State
}

// Registry maps player identity to game state and counts completed
// games across all players. Completion reports go to the leaderboard
// collaborator, which also owns the win threshold consulted on every
// hold.
type Registry struct {
	logger      *log.Logger
	leaderboard leaderboard.Leaderboard
	shards      []*shard

	countMu          sync.RWMutex
	totalGamesPlayed int
}

// New creates an empty registry. shards <= 0 selects DefaultShards.
func New(logger *log.Logger, lb leaderboard.Leaderboard, shards int) *Registry {
	if shards <= 0 {
		shards = DefaultShards
	}
	r := &Registry{
		logger:      logger.WithPrefix("registry"),
		leaderboard: lb,
		shards:      make([]*shard, shards),
	}
	for i := range r.shards {
		r.shards[i] = &shard{games: make(map[string]*pig.State)}
	}
	return r
}

func (r *Registry) shardFor(player string) *shard {
	h := fnv.New32a()
	h.Write([]byte(player))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// Roll applies one die roll for the player, creating a fresh game
// record on the player's first roll. Rolling is the only mutating
// operation (besides Reset) that may create a record.
func (r *Registry) Roll(player string, die int) (pig.View, error) {
	sh := r.shardFor(player)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.games[player]
	if !ok {
		state = &pig.State{}
		sh.games[player] = state
	}

	view, err := state.ApplyRoll(die)
	if err != nil {
		return pig.View{}, err
	}
	r.logger.Debug("roll applied", "player", player, "die", die, "turnScore", view.TurnScore, "round", view.Round)
	return view, nil
}

// Hold banks the player's current turn score. Unlike Roll it requires
// an existing record: there is no holding without having rolled first.
func (r *Registry) Hold(player string) (pig.View, error) {
	// The threshold is owned by the leaderboard and read once per hold.
	threshold := r.leaderboard.WinThreshold()

	sh := r.shardFor(player)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.games[player]
	if !ok {
		return pig.View{}, pig.ErrNoActiveGame
	}

	view, err := state.ApplyHold(threshold)
	if err != nil {
		return pig.View{}, err
	}
	if view.GameOver {
		r.logger.Info("game won", "player", player, "totalScore", view.TotalScore, "turns", view.Turn)
	}
	return view, nil
}

// Complete registers the player's finished game with the leaderboard
// and, only once the leaderboard has accepted the report, increments
// the global games-played counter. A failed or rejected report leaves
// the counter untouched and surfaces as a *ReportError.
//
// The player's record stays locked for the duration of the report, so
// a concurrent reset cannot interleave with a completion.
func (r *Registry) Complete(ctx context.Context, player string) (pig.Completion, error) {
	sh := r.shardFor(player)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.games[player]
	if !ok {
		return pig.Completion{}, pig.ErrNoActiveGame
	}

	report, err := state.CompletionReport()
	if err != nil {
		return pig.Completion{}, err
	}

	if err := r.leaderboard.ReportCompletion(ctx, player, report); err != nil {
		return pig.Completion{}, &ReportError{Player: player, Err: err}
	}

	r.countMu.Lock()
	r.totalGamesPlayed++
	total := r.totalGamesPlayed
	r.countMu.Unlock()

	r.logger.Info("game completed", "player", player, "totalScore", report.TotalScore,
		"rounds", report.Rounds, "turns", report.Turns, "totalGames", total)
	return report, nil
}

// Reset replaces the player's record with a fresh zero-valued game,
// creating one for a never-seen player. It always succeeds and is the
// only mutating operation permitted on a finished game besides
// Complete.
func (r *Registry) Reset(player string) pig.View {
	sh := r.shardFor(player)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state := &pig.State{}
	sh.games[player] = state
	return state.View()
}

// view returns a snapshot of the player's record, or a zero view for a
// player with no record. "No game yet" is a valid query state, never
// an error.
func (r *Registry) view(player string) pig.View {
	sh := r.shardFor(player)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	state, ok := sh.games[player]
	if !ok {
		return pig.View{}
	}
	return state.View()
}

// View returns a read-only snapshot of the player's game.
func (r *Registry) View(player string) pig.View { return r.view(player) }

// LastRoll returns the player's most recent die value, 0 if none.
func (r *Registry) LastRoll(player string) int { return r.view(player).LastRoll }

// Round returns the player's roll-or-hold action count.
func (r *Registry) Round(player string) int { return r.view(player).Round }

// Turn returns the player's turn-ending event count.
func (r *Registry) Turn(player string) int { return r.view(player).Turn }

// GameOver reports whether the player's game is finished.
func (r *Registry) GameOver(player string) bool { return r.view(player).GameOver }

// TurnScore returns the player's unbanked turn score.
func (r *Registry) TurnScore(player string) int { return r.view(player).TurnScore }

// TotalScore returns the player's banked score.
func (r *Registry) TotalScore(player string) int { return r.view(player).TotalScore }

// GamesPlayed returns the number of completions accepted by the
// leaderboard through this registry, across all players.
func (r *Registry) GamesPlayed() int {
	r.countMu.RLock()
	defer r.countMu.RUnlock()
	return r.totalGamesPlayed
}

// UserGamesPlayedFor returns the leaderboard's completed-game count
// for the player. A player the leaderboard has no data for counts as
// 0; only a collaborator failure returns an error.
func (r *Registry) UserGamesPlayedFor(ctx context.Context, player string) (int, error) {
	count, ok, err := r.leaderboard.CompletedGamesFor(ctx, player)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return count, nil
}
