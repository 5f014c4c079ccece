package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pigbots/pigbots/internal/leaderboard"
	"github.com/pigbots/pigbots/internal/pig"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// stubLeaderboard captures completion reports and can be told to fail.
type stubLeaderboard struct {
	mu        sync.Mutex
	threshold int
	reportErr error
	reports   []reportedCompletion
	counts    map[string]int
}

type reportedCompletion struct {
	player string
	report pig.Completion
}

func newStubLeaderboard(threshold int) *stubLeaderboard {
	return &stubLeaderboard{threshold: threshold, counts: make(map[string]int)}
}

func (s *stubLeaderboard) WinThreshold() int { return s.threshold }

func (s *stubLeaderboard) ReportCompletion(_ context.Context, player string, c pig.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reportErr != nil {
		return s.reportErr
	}
	s.reports = append(s.reports, reportedCompletion{player: player, report: c})
	s.counts[player]++
	return nil
}

func (s *stubLeaderboard) CompletedGamesFor(_ context.Context, player string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, ok := s.counts[player]
	return count, ok, nil
}

func newTestRegistry(threshold int) (*Registry, *stubLeaderboard) {
	lb := newStubLeaderboard(threshold)
	return New(testLogger(), lb, 0), lb
}

func TestRollCreatesRecordLazily(t *testing.T) {
	r, _ := newTestRegistry(100)

	assert.Equal(t, pig.View{}, r.View("alice"))

	view, err := r.Roll("alice", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, view.LastRoll)
	assert.Equal(t, 5, view.TurnScore)
	assert.Equal(t, 1, view.Round)
}

func TestRollThenHold(t *testing.T) {
	// Threshold 100: roll 6,5,4 then hold banks 15 on turn 1.
	r, _ := newTestRegistry(100)

	for _, die := range []int{6, 5, 4} {
		_, err := r.Roll("alice", die)
		require.NoError(t, err)
	}
	assert.Equal(t, 15, r.TurnScore("alice"))
	assert.Equal(t, 3, r.Round("alice"))

	view, err := r.Hold("alice")
	require.NoError(t, err)
	assert.Equal(t, 15, view.TotalScore)
	assert.Equal(t, 0, view.TurnScore)
	assert.Equal(t, 1, view.Turn)
	assert.False(t, view.GameOver)
}

func TestHoldRequiresExistingRecord(t *testing.T) {
	r, _ := newTestRegistry(100)

	_, err := r.Hold("ghost")
	require.ErrorIs(t, err, pig.ErrNoActiveGame)

	// Holding must not have created a record on the side.
	assert.Equal(t, pig.View{}, r.View("ghost"))
}

func TestWinThenGameOverErrors(t *testing.T) {
	r, _ := newTestRegistry(10)

	_, err := r.Roll("alice", 6)
	require.NoError(t, err)
	_, err = r.Roll("alice", 6)
	require.NoError(t, err)

	view, err := r.Hold("alice")
	require.NoError(t, err)
	require.True(t, view.GameOver)
	assert.Equal(t, 12, view.TotalScore)

	_, err = r.Roll("alice", 3)
	assert.ErrorIs(t, err, pig.ErrGameOver)
	_, err = r.Hold("alice")
	assert.ErrorIs(t, err, pig.ErrGameOver)
}

func TestCompleteForwardsReportAndCounts(t *testing.T) {
	r, lb := newTestRegistry(100)
	ctx := context.Background()

	// Drive alice to a win: five turns of 21 unbanked points each.
	for turn := 0; turn < 5; turn++ {
		for i := 0; i < 3; i++ {
			_, err := r.Roll("alice", 6)
			require.NoError(t, err)
		}
		_, err := r.Roll("alice", 3)
		require.NoError(t, err)
		_, err = r.Hold("alice")
		require.NoError(t, err)
	}
	require.True(t, r.GameOver("alice"))
	require.Equal(t, 105, r.TotalScore("alice"))

	report, err := r.Complete(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, pig.Completion{TotalScore: 105, Rounds: 20, Turns: 5}, report)

	require.Len(t, lb.reports, 1)
	assert.Equal(t, "alice", lb.reports[0].player)
	assert.Equal(t, report, lb.reports[0].report)
	assert.Equal(t, 1, r.GamesPlayed())
}

func TestCompleteInProgressGame(t *testing.T) {
	r, _ := newTestRegistry(100)
	ctx := context.Background()

	_, err := r.Complete(ctx, "ghost")
	require.ErrorIs(t, err, pig.ErrNoActiveGame)

	_, err = r.Roll("alice", 4)
	require.NoError(t, err)
	_, err = r.Complete(ctx, "alice")
	require.ErrorIs(t, err, pig.ErrGameOver)
	assert.Equal(t, 0, r.GamesPlayed())
}

func TestCompleteRollsBackOnReportFailure(t *testing.T) {
	r, lb := newTestRegistry(5)
	ctx := context.Background()

	_, err := r.Roll("alice", 6)
	require.NoError(t, err)
	_, err = r.Hold("alice")
	require.NoError(t, err)
	require.True(t, r.GameOver("alice"))

	cause := fmt.Errorf("wrapped: %w", leaderboard.ErrUnavailable)
	lb.reportErr = cause

	_, err = r.Complete(ctx, "alice")
	var reportErr *ReportError
	require.ErrorAs(t, err, &reportErr)
	assert.Equal(t, "alice", reportErr.Player)
	assert.ErrorIs(t, err, leaderboard.ErrUnavailable)

	// The counter only counts reports the leaderboard accepted.
	assert.Equal(t, 0, r.GamesPlayed())

	// The game is still finished and completable once the service is back.
	lb.reportErr = nil
	_, err = r.Complete(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, r.GamesPlayed())
}

func TestResetAlwaysSucceeds(t *testing.T) {
	r, _ := newTestRegistry(5)

	// Reset on a never-seen player creates a zero-valued record.
	view := r.Reset("fresh")
	assert.Equal(t, pig.View{}, view)

	// Reset clears a won game entirely.
	_, err := r.Roll("alice", 6)
	require.NoError(t, err)
	_, err = r.Hold("alice")
	require.NoError(t, err)
	require.True(t, r.GameOver("alice"))

	view = r.Reset("alice")
	assert.Equal(t, pig.View{}, view)
	assert.False(t, r.GameOver("alice"))

	// Play continues normally after reset.
	_, err = r.Roll("alice", 2)
	require.NoError(t, err)
}

func TestViewsZeroForMissingRecord(t *testing.T) {
	r, _ := newTestRegistry(100)

	assert.Equal(t, 0, r.LastRoll("ghost"))
	assert.Equal(t, 0, r.Round("ghost"))
	assert.Equal(t, 0, r.Turn("ghost"))
	assert.Equal(t, 0, r.TurnScore("ghost"))
	assert.Equal(t, 0, r.TotalScore("ghost"))
	assert.False(t, r.GameOver("ghost"))
}

func TestUserGamesPlayedFor(t *testing.T) {
	r, lb := newTestRegistry(100)
	ctx := context.Background()

	count, err := r.UserGamesPlayedFor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	lb.counts["alice"] = 3
	count, err = r.UserGamesPlayedFor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPlayersAreIndependent(t *testing.T) {
	r, _ := newTestRegistry(100)

	_, err := r.Roll("alice", 6)
	require.NoError(t, err)
	_, err = r.Roll("bob", 1)
	require.NoError(t, err)

	assert.Equal(t, 6, r.TurnScore("alice"))
	assert.Equal(t, 0, r.TurnScore("bob"))
	assert.Equal(t, 1, r.Turn("bob"))
	assert.Equal(t, 0, r.Turn("alice"))
}

func TestConcurrentRollsSamePlayerSerialize(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(1 << 30)

	const rolls = 500
	var wg sync.WaitGroup
	for i := 0; i < rolls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Roll("alice", 2)
			if err != nil {
				t.Errorf("roll: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, rolls, r.Round("alice"))
	assert.Equal(t, 2*rolls, r.TurnScore("alice"))
}

func TestConcurrentDistinctPlayers(t *testing.T) {
	t.Parallel()
	r, lb := newTestRegistry(12)
	ctx := context.Background()

	const players = 64
	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			player := fmt.Sprintf("player-%d", n)
			for j := 0; j < 2; j++ {
				if _, err := r.Roll(player, 6); err != nil {
					t.Errorf("%s roll: %v", player, err)
					return
				}
			}
			if _, err := r.Hold(player); err != nil {
				t.Errorf("%s hold: %v", player, err)
				return
			}
			if _, err := r.Complete(ctx, player); err != nil {
				t.Errorf("%s complete: %v", player, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, players, r.GamesPlayed())
	lb.mu.Lock()
	defer lb.mu.Unlock()
	assert.Len(t, lb.reports, players)
}

func TestCompleteTwiceCountsTwice(t *testing.T) {
	// CompletionReport never mutates the record, so a second Complete
	// re-reports the same game. Deduplication belongs to the
	// leaderboard, not the registry.
	r, lb := newTestRegistry(5)
	ctx := context.Background()

	_, err := r.Roll("alice", 6)
	require.NoError(t, err)
	_, err = r.Hold("alice")
	require.NoError(t, err)

	_, err = r.Complete(ctx, "alice")
	require.NoError(t, err)
	_, err = r.Complete(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, 2, r.GamesPlayed())
	assert.Len(t, lb.reports, 2)
}

func TestReportErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &ReportError{Player: "alice", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "alice")
}
