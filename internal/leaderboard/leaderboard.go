// Package leaderboard defines the external collaborator that the game
// registry reports finished games to. The collaborator owns the win
// threshold and the authoritative per-player completion counts; the
// core only calls into it when a game completes and reads the
// threshold from it on every hold.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pigbots/pigbots/internal/pig"
)

// DefaultWinThreshold is the standard Pig target score.
const DefaultWinThreshold = 100

var (
	// ErrRejected indicates the leaderboard refused a completion
	// report, e.g. a score below its win threshold.
	ErrRejected = errors.New("leaderboard: report rejected")

	// ErrUnavailable indicates the leaderboard service could not be
	// reached. Callers must propagate it, not swallow it.
	ErrUnavailable = errors.New("leaderboard: unavailable")
)

// Leaderboard records finished games and exposes the win threshold.
type Leaderboard interface {
	// WinThreshold returns the banked score a player must reach or
	// exceed to win.
	WinThreshold() int

	// ReportCompletion registers a finished game. Implementations may
	// validate the report (ErrRejected) and must return an error when
	// nothing was recorded.
	ReportCompletion(ctx context.Context, player string, c pig.Completion) error

	// CompletedGamesFor returns the number of games the leaderboard
	// has recorded for a player. ok is false when the leaderboard has
	// no data for the player.
	CompletedGamesFor(ctx context.Context, player string) (count int, ok bool, err error)
}

// Memory is an in-process leaderboard. It backs single-node deployments
// and tests; state is lost on restart.
type Memory struct {
	mu        sync.RWMutex
	threshold int
	counts    map[string]int
}

// NewMemory creates an in-process leaderboard with the given win
// threshold. A threshold <= 0 falls back to DefaultWinThreshold.
func NewMemory(threshold int) *Memory {
	if threshold <= 0 {
		threshold = DefaultWinThreshold
	}
	return &Memory{
		threshold: threshold,
		counts:    make(map[string]int),
	}
}

func (m *Memory) WinThreshold() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.threshold
}

func (m *Memory) ReportCompletion(_ context.Context, player string, c pig.Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.TotalScore < m.threshold {
		return fmt.Errorf("%w: score %d below threshold %d", ErrRejected, c.TotalScore, m.threshold)
	}
	m.counts[player]++
	return nil
}

func (m *Memory) CompletedGamesFor(_ context.Context, player string) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count, ok := m.counts[player]
	return count, ok, nil
}
