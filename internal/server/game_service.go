package server

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/pigbots/pigbots/internal/dice"
	"github.com/pigbots/pigbots/internal/leaderboard"
	"github.com/pigbots/pigbots/internal/pig"
	"github.com/pigbots/pigbots/internal/registry"
)

// GameService ties the transport to the game core: it rolls the die,
// drives the registry and answers stat queries. Connections never
// touch the registry directly.
type GameService struct {
	logger      *log.Logger
	registry    *registry.Registry
	leaderboard leaderboard.Leaderboard

	// The roller is a single stream shared by all players; it is not
	// concurrency-safe on its own.
	rollerMu sync.Mutex
	roller   dice.Roller
}

// NewGameService creates a game service backed by the given registry,
// leaderboard and die roller.
func NewGameService(logger *log.Logger, reg *registry.Registry, lb leaderboard.Leaderboard, roller dice.Roller) *GameService {
	return &GameService{
		logger:      logger.WithPrefix("game"),
		registry:    reg,
		leaderboard: lb,
		roller:      roller,
	}
}

// Roll draws a die value and applies it to the player's game, creating
// the game on the player's first roll.
func (gs *GameService) Roll(player string) (pig.View, error) {
	gs.rollerMu.Lock()
	die := gs.roller.Roll()
	gs.rollerMu.Unlock()

	return gs.registry.Roll(player, die)
}

// Hold banks the player's turn score.
func (gs *GameService) Hold(player string) (pig.View, error) {
	return gs.registry.Hold(player)
}

// Complete registers the player's finished game with the leaderboard.
// It returns the completion payload and the updated global counter.
func (gs *GameService) Complete(ctx context.Context, player string) (pig.Completion, int, error) {
	report, err := gs.registry.Complete(ctx, player)
	if err != nil {
		return pig.Completion{}, 0, err
	}
	return report, gs.registry.GamesPlayed(), nil
}

// Reset replaces the player's game with a fresh one.
func (gs *GameService) Reset(player string) pig.View {
	return gs.registry.Reset(player)
}

// State returns a snapshot of the player's game. Players with no game
// yet get the zero view.
func (gs *GameService) State(player string) pig.View {
	return gs.registry.View(player)
}

// Stats returns the global completed-games counter, the leaderboard's
// count for the player and the win threshold in force.
func (gs *GameService) Stats(ctx context.Context, player string) (StatsData, error) {
	userGames, err := gs.registry.UserGamesPlayedFor(ctx, player)
	if err != nil {
		return StatsData{}, err
	}
	return StatsData{
		Player:          player,
		GamesPlayed:     gs.registry.GamesPlayed(),
		UserGamesPlayed: userGames,
		WinThreshold:    gs.leaderboard.WinThreshold(),
	}, nil
}
