package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server      ServerSettings    `hcl:"server,block"`
	Game        GameConfig        `hcl:"game,block"`
	Leaderboard LeaderboardConfig `hcl:"leaderboard,block"`
	Auth        *AuthConfig       `hcl:"auth,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameConfig defines the dice game parameters
type GameConfig struct {
	WinThreshold int   `hcl:"win_threshold,optional"`
	DiceSeed     int64 `hcl:"dice_seed,optional"`
	LegacyDice   bool  `hcl:"legacy_dice,optional"`
	Shards       int   `hcl:"shards,optional"`
}

// LeaderboardConfig selects and configures the leaderboard backend
type LeaderboardConfig struct {
	Backend   string `hcl:"backend,optional"` // "memory", "sqlite" or "http"
	Path      string `hcl:"path,optional"`    // sqlite database path
	URL       string `hcl:"url,optional"`     // http service base URL
	TimeoutMs int    `hcl:"timeout_ms,optional"`
}

// AuthConfig configures the optional external auth service
type AuthConfig struct {
	Enabled  bool   `hcl:"enabled,optional"`
	URL      string `hcl:"url,optional"`
	FailOpen bool   `hcl:"fail_open,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameConfig{
			WinThreshold: 100,
			Shards:       32,
		},
		Leaderboard: LeaderboardConfig{
			Backend: "memory",
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A
// missing file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game.WinThreshold == 0 {
		config.Game.WinThreshold = 100
	}
	if config.Game.Shards == 0 {
		config.Game.Shards = 32
	}
	if config.Leaderboard.Backend == "" {
		config.Leaderboard.Backend = "memory"
	}
	if config.Leaderboard.Backend == "sqlite" && config.Leaderboard.Path == "" {
		config.Leaderboard.Path = "pig-leaderboard.db"
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Game.WinThreshold <= 0 {
		return fmt.Errorf("win threshold must be positive, got %d", c.Game.WinThreshold)
	}
	if c.Game.Shards <= 0 {
		return fmt.Errorf("shards must be positive, got %d", c.Game.Shards)
	}

	switch c.Leaderboard.Backend {
	case "memory", "sqlite":
	case "http":
		if c.Leaderboard.URL == "" {
			return fmt.Errorf("http leaderboard requires a url")
		}
	default:
		return fmt.Errorf("unknown leaderboard backend: %q", c.Leaderboard.Backend)
	}

	if c.Auth != nil && c.Auth.Enabled && c.Auth.URL == "" {
		return fmt.Errorf("auth requires a url when enabled")
	}

	return nil
}

// GetServerAddress returns the host:port address to bind
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
