package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/pigbots/pigbots/internal/auth"
	"github.com/pigbots/pigbots/internal/dice"
	"github.com/pigbots/pigbots/internal/leaderboard"
	"github.com/pigbots/pigbots/internal/registry"
	"github.com/pigbots/pigbots/internal/server"
	"golang.org/x/sync/errgroup"
)

var CLI struct {
	Config       string `short:"c" long:"config" default:"pig-server.hcl" help:"Path to HCL configuration file"`
	Addr         string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel     string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	WinThreshold int    `short:"w" long:"win-threshold" help:"Winning total score (overrides config)"`
	DiceSeed     int64  `long:"dice-seed" help:"Deterministic dice seed (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadServerConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.WinThreshold > 0 {
		cfg.Game.WinThreshold = CLI.WinThreshold
	}
	if CLI.DiceSeed != 0 {
		cfg.Game.DiceSeed = CLI.DiceSeed
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	// Setup logging
	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lb, err := buildLeaderboard(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to build leaderboard", "error", err, "backend", cfg.Leaderboard.Backend)
		kctx.Exit(1)
	}

	seed := cfg.Game.DiceSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var roller dice.Roller
	if cfg.Game.LegacyDice {
		roller = dice.NewLegacy(seed)
	} else {
		roller = dice.New(seed)
	}

	reg := registry.New(logger, lb, cfg.Game.Shards)
	gameService := server.NewGameService(logger, reg, lb, roller)
	wsServer := server.NewServer(cfg.GetServerAddress(), logger, gameService)

	if cfg.Auth != nil && cfg.Auth.Enabled {
		wsServer.SetValidator(auth.NewHTTPValidator(cfg.Auth.URL), cfg.Auth.FailOpen)
		logger.Info("External auth enabled", "url", cfg.Auth.URL, "failOpen", cfg.Auth.FailOpen)
	}

	logger.Info("Starting Pig Server",
		"addr", cfg.GetServerAddress(),
		"winThreshold", cfg.Game.WinThreshold,
		"leaderboard", cfg.Leaderboard.Backend,
		"legacyDice", cfg.Game.LegacyDice)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return wsServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		return wsServer.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}

// buildLeaderboard constructs the configured leaderboard backend.
func buildLeaderboard(ctx context.Context, cfg *server.ServerConfig, logger *log.Logger) (leaderboard.Leaderboard, error) {
	switch cfg.Leaderboard.Backend {
	case "memory":
		return leaderboard.NewMemory(cfg.Game.WinThreshold), nil
	case "sqlite":
		logger.Info("Opening leaderboard database", "path", cfg.Leaderboard.Path)
		return leaderboard.NewSQLite(ctx, cfg.Leaderboard.Path, cfg.Game.WinThreshold)
	case "http":
		timeout := time.Duration(cfg.Leaderboard.TimeoutMs) * time.Millisecond
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		return leaderboard.NewHTTP(ctx, cfg.Leaderboard.URL, timeout)
	default:
		return nil, fmt.Errorf("unknown leaderboard backend: %q", cfg.Leaderboard.Backend)
	}
}
