package server

import (
	"encoding/json"
	"time"

	"github.com/pigbots/pigbots/internal/pig"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerName string `json:"playerName"`
	Token      string `json:"token,omitempty"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GameStateData is the snapshot sent after every mutating action and
// on state queries.
type GameStateData struct {
	Player string `json:"player"`
	pig.View
}

// GameCompleteData confirms a completion was accepted by the
// leaderboard.
type GameCompleteData struct {
	Player      string         `json:"player"`
	Completion  pig.Completion `json:"completion"`
	GamesPlayed int            `json:"gamesPlayed"`
}

// StatsData reports the global and per-player completion counters.
type StatsData struct {
	Player          string `json:"player"`
	GamesPlayed     int    `json:"gamesPlayed"`
	UserGamesPlayed int    `json:"userGamesPlayed"`
	WinThreshold    int    `json:"winThreshold"`
}
