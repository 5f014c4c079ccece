package tui

import (
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/pigbots/pigbots/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	return New(logger, nil, "alice", 100)
}

func TestProcessCommand(t *testing.T) {
	t.Run("unknown command logs an error without a round trip", func(t *testing.T) {
		m := newTestModel(t)
		cmd := m.processCommand("flip")

		assert.Nil(t, cmd)
		assert.False(t, m.busy)
		require.NotEmpty(t, m.gameLog)
		assert.Contains(t, m.gameLog[len(m.gameLog)-1], "flip")
	})

	t.Run("help lists the available commands", func(t *testing.T) {
		m := newTestModel(t)
		cmd := m.processCommand("help")

		assert.Nil(t, cmd)
		assert.Contains(t, m.gameLog[len(m.gameLog)-1], "roll, hold, complete")
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		m := newTestModel(t)
		before := len(m.gameLog)

		assert.Nil(t, m.processCommand(""))
		assert.Len(t, m.gameLog, before)
	})

	t.Run("game commands mark the model busy", func(t *testing.T) {
		for _, command := range []string{"roll", "hold", "complete", "reset", "state", "stats"} {
			m := newTestModel(t)
			cmd := m.processCommand(command)

			assert.NotNil(t, cmd, command)
			assert.True(t, m.busy, command)
		}
	})

	t.Run("quit terminates the program", func(t *testing.T) {
		m := newTestModel(t)
		cmd := m.processCommand("quit")

		assert.NotNil(t, cmd)
		assert.True(t, m.quitting)
	})
}

func TestResultMsgUpdatesState(t *testing.T) {
	m := newTestModel(t)
	m.busy = true

	state := server.GameStateData{Player: "alice"}
	state.LastRoll = 4
	state.TurnScore = 9
	state.TotalScore = 30
	state.Round = 6
	state.Turn = 2

	updated, _ := m.Update(resultMsg{
		lines: []string{"Rolled a 4."},
		state: &state,
	})
	m = updated.(*Model)

	assert.False(t, m.busy)
	assert.Equal(t, 9, m.state.TurnScore)
	assert.Equal(t, 30, m.state.TotalScore)
	assert.Contains(t, m.gameLog[len(m.gameLog)-1], "Rolled a 4")
}

func TestSidebarShowsScores(t *testing.T) {
	m := newTestModel(t)
	m.state.LastRoll = 5
	m.state.TurnScore = 11
	m.state.TotalScore = 42
	m.state.Round = 8
	m.state.Turn = 3

	sidebar := m.renderSidebarPane()

	assert.Contains(t, sidebar, "alice")
	assert.Contains(t, sidebar, "Turn score:  11")
	assert.Contains(t, sidebar, "Total score: 42")
	assert.Contains(t, sidebar, "Round: 8  Turn: 3")
	assert.NotContains(t, sidebar, "GAME OVER")

	m.state.GameOver = true
	assert.Contains(t, m.renderSidebarPane(), "GAME OVER")
}

func TestViewLayout(t *testing.T) {
	m := newTestModel(t)

	// No dimensions yet
	assert.Equal(t, "Loading...", m.View())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(*Model)

	view := m.View()
	assert.True(t, strings.Contains(view, "Enter to submit"))
	assert.Contains(t, view, "alice")
}
