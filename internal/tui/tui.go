package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/pigbots/pigbots/internal/client"
	"github.com/pigbots/pigbots/internal/server"
)

// requestTimeout bounds every round trip issued from the TUI.
const requestTimeout = 5 * time.Second

// Model represents the Bubble Tea model for the dice game client
type Model struct {
	client *client.Client
	logger *log.Logger
	player string

	// UI components
	logViewport viewport.Model
	cmdInput    textinput.Model

	// State
	gameLog     []string
	state       server.GameStateData
	stats       *server.StatsData
	winThresh   int
	busy        bool
	quitting    bool
	focusedPane int // 0 = log, 1 = input

	// Dimensions
	width       int
	height      int
	initialized bool
}

// resultMsg carries the outcome of a server round trip back into Update.
type resultMsg struct {
	lines []string
	state *server.GameStateData
	stats *server.StatsData
	err   error
}

// New creates a TUI model bound to an authenticated client.
func New(logger *log.Logger, c *client.Client, player string, winThreshold int) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "roll, hold, complete, reset, state, stats, quit"
	ti.Focus()
	ti.CharLimit = 40
	ti.Width = 60
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	return &Model{
		client:      c,
		logger:      logger.WithPrefix("tui"),
		player:      player,
		logViewport: vp,
		cmdInput:    ti,
		gameLog:     []string{InfoStyle.Render(fmt.Sprintf("Playing as %s. First to %d wins.", player, winThreshold))},
		winThresh:   winThreshold,
		focusedPane: 1,
	}
}

// Init initializes the TUI model
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case resultMsg:
		m.busy = false
		if msg.err != nil {
			m.appendLog(ErrorStyle.Render(fmt.Sprintf("error: %v", msg.err)))
		}
		for _, line := range msg.lines {
			m.appendLog(line)
		}
		if msg.state != nil {
			m.state = *msg.state
		}
		if msg.stats != nil {
			m.stats = msg.stats
		}
		m.logViewport.GotoBottom()

	case tea.WindowSizeMsg:
		m.logger.Debug("Updating dimensions", "width", msg.Width, "height", msg.Height)
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.cmdInput.Focus()
			} else {
				m.focusedPane = 0
				m.cmdInput.Blur()
			}
		case "enter":
			if m.focusedPane == 1 && !m.busy {
				command := strings.TrimSpace(strings.ToLower(m.cmdInput.Value()))
				m.cmdInput.SetValue("")
				if cmd := m.processCommand(command); cmd != nil {
					cmds = append(cmds, cmd)
				}
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "pgup", "b":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageUp()
			}
		case "pgdown", "f":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageDown()
			}
		case "home", "g":
			if m.focusedPane == 0 {
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == 0 {
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.cmdInput, cmd = m.cmdInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// processCommand turns a typed command into a server round trip command.
func (m *Model) processCommand(command string) tea.Cmd {
	switch command {
	case "":
		return nil
	case "quit", "exit", "q":
		m.quitting = true
		return tea.Sequence(tea.ClearScreen, tea.Quit)
	case "roll", "r":
		m.busy = true
		return m.rollCmd()
	case "hold", "h":
		m.busy = true
		return m.holdCmd()
	case "complete", "c":
		m.busy = true
		return m.completeCmd()
	case "reset":
		m.busy = true
		return m.resetCmd()
	case "state", "s":
		m.busy = true
		return m.stateCmd()
	case "stats":
		m.busy = true
		return m.statsCmd()
	case "help", "?":
		m.appendLog(InfoStyle.Render("Commands: roll, hold, complete, reset, state, stats, quit"))
		return nil
	default:
		m.appendLog(ErrorStyle.Render(fmt.Sprintf("unknown command %q (try 'help')", command)))
		return nil
	}
}

func (m *Model) rollCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		state, err := m.client.Roll(ctx)
		if err != nil {
			return resultMsg{err: err}
		}
		var lines []string
		face := dieFaces[state.LastRoll]
		if state.LastRoll == 1 {
			lines = append(lines, BustStyle.Render(fmt.Sprintf("%s  Rolled a 1. Bust! Turn score gone.", face)))
		} else {
			lines = append(lines, DieStyle.Render(fmt.Sprintf("%s  Rolled a %d.", face, state.LastRoll))+
				GameLogStyle.Render(fmt.Sprintf(" Turn score %d.", state.TurnScore)))
		}
		return resultMsg{lines: lines, state: &state}
	}
}

func (m *Model) holdCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		state, err := m.client.Hold(ctx)
		if err != nil {
			return resultMsg{err: err}
		}
		var lines []string
		lines = append(lines, ScoreStyle.Render(fmt.Sprintf("Held. Total score %d.", state.TotalScore)))
		if state.GameOver {
			lines = append(lines, SuccessStyle.Render(fmt.Sprintf("You win with %d! Type 'complete' to record it.", state.TotalScore)))
		}
		return resultMsg{lines: lines, state: &state}
	}
}

func (m *Model) completeCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		done, err := m.client.Complete(ctx)
		if err != nil {
			return resultMsg{err: err}
		}
		lines := []string{
			SuccessStyle.Render(fmt.Sprintf("Game recorded: %d points in %d rounds over %d turns.",
				done.Completion.TotalScore, done.Completion.Rounds, done.Completion.Turns)),
			InfoStyle.Render(fmt.Sprintf("%d games completed on this server. Type 'reset' to play again.", done.GamesPlayed)),
		}
		return resultMsg{lines: lines}
	}
}

func (m *Model) resetCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		state, err := m.client.Reset(ctx)
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{
			lines: []string{InfoStyle.Render("Fresh game. Roll when ready.")},
			state: &state,
		}
	}
}

func (m *Model) stateCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		state, err := m.client.State(ctx)
		if err != nil {
			return resultMsg{err: err}
		}
		line := GameLogStyle.Render(fmt.Sprintf("Round %d, turn %d: turn score %d, total %d.",
			state.Round, state.Turn, state.TurnScore, state.TotalScore))
		return resultMsg{lines: []string{line}, state: &state}
	}
}

func (m *Model) statsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		stats, err := m.client.Stats(ctx)
		if err != nil {
			return resultMsg{err: err}
		}
		line := InfoStyle.Render(fmt.Sprintf("Server games: %d. Your completed games: %d.",
			stats.GamesPlayed, stats.UserGamesPlayed))
		return resultMsg{lines: []string{line}, stats: &stats}
	}
}

func (m *Model) appendLog(line string) {
	m.gameLog = append(m.gameLog, line)
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Command pane (bottom, full width)
	commandContent := m.renderCommandPane()
	commandHeight := lipgloss.Height(commandContent)
	calculatedCommandWidth := m.width - 2
	calculatedCommandHeight := commandHeight - 2
	if calculatedCommandWidth < 1 {
		calculatedCommandWidth = 1
	}
	if calculatedCommandHeight < 1 {
		calculatedCommandHeight = 1
	}

	commandStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(calculatedCommandWidth).
		Height(calculatedCommandHeight)
	commandPane := commandStyle.Render(commandContent)

	// Sidebar pane (right side of log pane, same height as log pane)
	sidebarContent := m.renderSidebarPane()
	sidebarWidth := lipgloss.Width(sidebarContent)

	calculatedSidebarWidth := 25
	if sidebarWidth > calculatedSidebarWidth {
		calculatedSidebarWidth = sidebarWidth
	}
	calculatedSidebarHeight := m.height - commandHeight - 4
	if calculatedSidebarWidth < 1 {
		calculatedSidebarWidth = 1
	}
	if calculatedSidebarHeight < 1 {
		calculatedSidebarHeight = 1
	}

	sidebarStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(calculatedSidebarWidth).
		Height(calculatedSidebarHeight)
	sidebarPane := sidebarStyle.Render(sidebarContent)

	// Log pane (top, fills height minus command pane)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))

	calculatedLogWidth := m.width - calculatedSidebarWidth - 4
	calculatedLogHeight := m.height - commandHeight - 4
	if calculatedLogWidth < 1 {
		calculatedLogWidth = 1
	}
	if calculatedLogHeight < 1 {
		calculatedLogHeight = 1
	}

	m.logViewport.Width = calculatedLogWidth
	m.logViewport.Height = calculatedLogHeight

	if !m.initialized && calculatedLogWidth > 1 && calculatedLogHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(calculatedLogWidth).
		Height(calculatedLogHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)

	return lipgloss.JoinVertical(lipgloss.Top, topRow, commandPane)
}

// renderSidebarPane creates the scoreboard sidebar content
func (m *Model) renderSidebarPane() string {
	var content strings.Builder

	content.WriteString(HeaderStyle.Render(" "+m.player+" "))
	content.WriteString("\n\n")

	if m.state.LastRoll >= 1 && m.state.LastRoll <= 6 {
		content.WriteString(DieStyle.Render(fmt.Sprintf("Last roll: %s %d", dieFaces[m.state.LastRoll], m.state.LastRoll)))
		content.WriteString("\n")
	}
	content.WriteString(ScoreStyle.Render(fmt.Sprintf("Turn score:  %d", m.state.TurnScore)))
	content.WriteString("\n")
	content.WriteString(ScoreStyle.Render(fmt.Sprintf("Total score: %d", m.state.TotalScore)))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("Round: %d  Turn: %d", m.state.Round, m.state.Turn))
	content.WriteString("\n")
	if m.state.GameOver {
		content.WriteString(SuccessStyle.Render("GAME OVER"))
		content.WriteString("\n")
	}

	if m.stats != nil {
		content.WriteString("\n")
		content.WriteString(InfoStyle.Render(fmt.Sprintf("Server games:  %d", m.stats.GamesPlayed)))
		content.WriteString("\n")
		content.WriteString(InfoStyle.Render(fmt.Sprintf("Your finishes: %d", m.stats.UserGamesPlayed)))
		content.WriteString("\n")
	}

	return content.String()
}

// renderCommandPane renders the command input pane
func (m *Model) renderCommandPane() string {
	var content strings.Builder

	switch {
	case m.busy:
		content.WriteString(WarningStyle.Render("Waiting for server..."))
	case m.state.GameOver:
		content.WriteString(SuccessStyle.Render("[complete]") + " " + InfoStyle.Render("[reset]"))
	default:
		content.WriteString(DieStyle.Render("[roll]") + " " + ScoreStyle.Render("[hold]"))
	}
	content.WriteString("\n")

	content.WriteString(m.cmdInput.View())
	content.WriteString("\n")

	if m.focusedPane == 0 {
		content.WriteString(InfoStyle.Render(
			"Log focused: ↑↓ scroll, PgUp/PgDn half page, Home/End, Tab to input"))
	} else {
		content.WriteString(InfoStyle.Render(
			"Tab to scroll log • Enter to submit • Ctrl+C to quit"))
	}

	return content.String()
}
