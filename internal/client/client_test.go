package client

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pigbots/pigbots/internal/dice"
	"github.com/pigbots/pigbots/internal/leaderboard"
	"github.com/pigbots/pigbots/internal/registry"
	"github.com/pigbots/pigbots/internal/server"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// seqRoller replays a fixed die sequence, then wraps around.
type seqRoller struct {
	dies []int
	next int
}

func (s *seqRoller) Roll() int {
	die := s.dies[s.next%len(s.dies)]
	s.next++
	return die
}

func startTestServer(t *testing.T, threshold int, roller dice.Roller) string {
	t.Helper()

	logger := testLogger()
	lb := leaderboard.NewMemory(threshold)
	reg := registry.New(logger, lb, 0)
	service := server.NewGameService(logger, reg, lb, roller)

	srv := server.NewServer("127.0.0.1:0", logger, service)
	go func() {
		if err := srv.Start(); err != nil {
			t.Errorf("server: %v", err)
		}
	}()
	t.Cleanup(func() { _ = srv.Stop() })

	require.Eventually(t, func() bool {
		return srv.Addr() != "127.0.0.1:0"
	}, 2*time.Second, 10*time.Millisecond, "server never started listening")

	return "ws://" + srv.Addr()
}

func connectedClient(t *testing.T, url string) *Client {
	t.Helper()
	c := NewClient(url, testLogger())
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}

func TestClientPlaysFullGame(t *testing.T) {
	t.Parallel()
	url := startTestServer(t, 10, &seqRoller{dies: []int{6, 6}})
	ctx := context.Background()

	c := connectedClient(t, url)

	resp, err := c.Auth(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.PlayerID)

	state, err := c.Roll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, state.LastRoll)
	assert.Equal(t, 6, state.TurnScore)

	state, err = c.Roll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, state.TurnScore)

	state, err = c.Hold(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, state.TotalScore)
	assert.True(t, state.GameOver)

	complete, err := c.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, complete.Completion.TotalScore)
	assert.Equal(t, 1, complete.GamesPlayed)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, 1, stats.UserGamesPlayed)
	assert.Equal(t, 10, stats.WinThreshold)

	state, err = c.Reset(ctx)
	require.NoError(t, err)
	assert.False(t, state.GameOver)
	assert.Equal(t, 0, state.TotalScore)
}

func TestClientSurfacesServerErrors(t *testing.T) {
	t.Parallel()
	url := startTestServer(t, 100, dice.New(1))
	ctx := context.Background()

	c := connectedClient(t, url)
	_, err := c.Auth(ctx, "bob", "")
	require.NoError(t, err)

	// Holding before any roll is a protocol-level error.
	_, err = c.Hold(ctx)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "no_active_game", serverErr.Code)

	_, err = c.Complete(ctx)
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "no_active_game", serverErr.Code)
}

func TestClientRequiresAuth(t *testing.T) {
	t.Parallel()
	url := startTestServer(t, 100, dice.New(1))
	ctx := context.Background()

	c := connectedClient(t, url)

	_, err := c.Roll(ctx)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "not_authenticated", serverErr.Code)
}

func TestClientContextCancellation(t *testing.T) {
	t.Parallel()
	url := startTestServer(t, 100, dice.New(1))

	c := connectedClient(t, url)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.State(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
