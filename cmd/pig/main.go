package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/pigbots/pigbots/internal/client"
	"github.com/pigbots/pigbots/internal/tui"
)

var CLI struct {
	Server   string `short:"s" long:"server" default:"ws://localhost:8080/ws" help:"Server URL to connect to"`
	Player   string `short:"p" long:"player" help:"Player name"`
	Token    string `short:"t" long:"token" help:"Auth token, if the server requires one"`
	LogLevel string `short:"l" long:"log-level" default:"info" help:"Log level"`
	LogFile  string `long:"log-file" default:"pig-client.log" help:"Log file path"`
}

func main() {
	kctx := kong.Parse(&CLI)

	if CLI.Player == "" {
		fmt.Print("Enter your player name: ")
		var input string
		_, _ = fmt.Scanln(&input)
		CLI.Player = strings.TrimSpace(input)
		if CLI.Player == "" {
			fmt.Println("Player name is required")
			kctx.Exit(1)
		}
	}

	// The TUI owns the terminal, so logs go to a file
	logFile, err := os.OpenFile(CLI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		kctx.Exit(1)
	}
	defer func() { _ = logFile.Close() }()

	logger := log.New(logFile)
	switch CLI.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	logger.Info("Starting Pig Client", "server", CLI.Server, "player", CLI.Player)

	wsClient := client.NewClient(CLI.Server, logger)
	if err := wsClient.Connect(); err != nil {
		fmt.Printf("Failed to connect to server: %v\n", err)
		kctx.Exit(1)
	}
	defer func() { _ = wsClient.Disconnect() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := wsClient.Auth(ctx, CLI.Player, CLI.Token); err != nil {
		fmt.Printf("Failed to authenticate: %v\n", err)
		kctx.Exit(1)
	}

	stats, err := wsClient.Stats(ctx)
	if err != nil {
		fmt.Printf("Failed to fetch server stats: %v\n", err)
		kctx.Exit(1)
	}

	model := tui.New(logger, wsClient, CLI.Player, stats.WinThreshold)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Printf("TUI error: %v\n", err)
		kctx.Exit(1)
	}
}
