package leaderboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pigbots/pigbots/internal/pig"
)

func TestMemoryDefaults(t *testing.T) {
	lb := NewMemory(0)
	assert.Equal(t, DefaultWinThreshold, lb.WinThreshold())

	lb = NewMemory(50)
	assert.Equal(t, 50, lb.WinThreshold())
}

func TestMemoryReportAndCount(t *testing.T) {
	ctx := context.Background()
	lb := NewMemory(100)

	count, ok, err := lb.CompletedGamesFor(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, count)

	require.NoError(t, lb.ReportCompletion(ctx, "alice", pig.Completion{TotalScore: 101, Rounds: 9, Turns: 5}))
	require.NoError(t, lb.ReportCompletion(ctx, "alice", pig.Completion{TotalScore: 110, Rounds: 12, Turns: 6}))

	count, ok, err = lb.CompletedGamesFor(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, count)

	// Other players are unaffected.
	count, ok, err = lb.CompletedGamesFor(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, count)
}

func TestMemoryRejectsBelowThreshold(t *testing.T) {
	ctx := context.Background()
	lb := NewMemory(100)

	err := lb.ReportCompletion(ctx, "alice", pig.Completion{TotalScore: 99, Rounds: 9, Turns: 5})
	require.ErrorIs(t, err, ErrRejected)

	// A rejected report must not be counted.
	count, ok, err := lb.CompletedGamesFor(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, count)
}
