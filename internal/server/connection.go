package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/pigbots/pigbots/internal/auth"
	"github.com/pigbots/pigbots/internal/pig"
	"github.com/pigbots/pigbots/internal/registry"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Time allowed for a client to authenticate before the connection
	// is dropped
	authWait = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a WebSocket connection to a client
type Connection struct {
	id          string
	conn        *websocket.Conn
	send        chan *Message
	playerID    string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
	validator   auth.Validator
	failOpen    bool
	authTimer   *quartz.Timer
}

// NewConnection creates a new connection wrapper
func NewConnection(id string, conn *websocket.Conn, logger *log.Logger, gameService *GameService, validator auth.Validator, failOpen bool) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		id:          id,
		conn:        conn,
		send:        make(chan *Message, 64),
		logger:      logger.WithPrefix("conn").With("id", id),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
		validator:   validator,
		failOpen:    failOpen,
	}
}

// Start begins handling the connection. Unauthenticated connections
// are dropped after authWait on the given clock.
func (c *Connection) Start(clock quartz.Clock) {
	c.authTimer = clock.AfterFunc(authWait, func() {
		if c.Player() == "" {
			c.logger.Warn("Closing connection: no auth within deadline")
			_ = c.Close()
		}
	})
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.authTimer != nil {
			c.authTimer.Stop()
		}
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// Player returns the associated player ID
func (c *Connection) Player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.Player())

	if msg.Type == MessageTypeAuth {
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.RequestID, "invalid_message", "Failed to parse auth data")
			return
		}
		c.handleAuth(msg.RequestID, data)
		return
	}

	player := c.Player()
	if player == "" {
		c.sendError(msg.RequestID, "not_authenticated", "Must authenticate first")
		return
	}

	switch msg.Type {
	case MessageTypeRoll:
		c.handleRoll(msg.RequestID, player)
	case MessageTypeHold:
		c.handleHold(msg.RequestID, player)
	case MessageTypeComplete:
		c.handleComplete(msg.RequestID, player)
	case MessageTypeReset:
		c.handleReset(msg.RequestID, player)
	case MessageTypeState:
		c.handleState(msg.RequestID, player)
	case MessageTypeStats:
		c.handleStats(msg.RequestID, player)
	default:
		c.sendError(msg.RequestID, "unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// reply sends a response message correlated to the request
func (c *Connection) reply(requestID string, messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	msg.RequestID = requestID
	_ = c.SendMessage(msg)
}

// sendError sends an error message to the client
func (c *Connection) sendError(requestID, code, message string) {
	c.reply(requestID, MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
}

// errorCode maps game errors to wire codes
func errorCode(err error) string {
	var reportErr *registry.ReportError
	switch {
	case errors.Is(err, pig.ErrGameOver):
		return "game_over"
	case errors.Is(err, pig.ErrNoActiveGame):
		return "no_active_game"
	case errors.As(err, &reportErr):
		return "report_failed"
	default:
		return "internal_error"
	}
}

func (c *Connection) handleAuth(requestID string, data AuthData) {
	c.logger.Info("Auth request", "playerName", data.PlayerName)

	playerID := data.PlayerName

	if c.validator != nil {
		identity, err := c.validator.Validate(c.ctx, data.Token)
		switch {
		case err == nil && identity != nil:
			playerID = identity.PlayerID
		case err == nil:
			// Auth disabled; the presented name stands.
		case errors.Is(err, auth.ErrUnavailable) && c.failOpen:
			c.logger.Warn("Auth service unavailable, failing open", "playerName", data.PlayerName)
		default:
			c.reply(requestID, MessageTypeAuthResponse, AuthResponseData{
				Success: false,
				Error:   "authentication failed",
			})
			return
		}
	}

	if playerID == "" {
		c.sendError(requestID, "invalid_auth", "Player name required")
		return
	}

	c.SetPlayer(playerID)
	if c.authTimer != nil {
		c.authTimer.Stop()
	}

	c.reply(requestID, MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: playerID,
	})
}

func (c *Connection) handleRoll(requestID, player string) {
	view, err := c.gameService.Roll(player)
	if err != nil {
		c.sendError(requestID, errorCode(err), err.Error())
		return
	}
	c.reply(requestID, MessageTypeGameState, GameStateData{Player: player, View: view})
}

func (c *Connection) handleHold(requestID, player string) {
	view, err := c.gameService.Hold(player)
	if err != nil {
		c.sendError(requestID, errorCode(err), err.Error())
		return
	}
	c.reply(requestID, MessageTypeGameState, GameStateData{Player: player, View: view})
}

func (c *Connection) handleComplete(requestID, player string) {
	report, total, err := c.gameService.Complete(c.ctx, player)
	if err != nil {
		c.sendError(requestID, errorCode(err), err.Error())
		return
	}
	c.reply(requestID, MessageTypeGameComplete, GameCompleteData{
		Player:      player,
		Completion:  report,
		GamesPlayed: total,
	})
}

func (c *Connection) handleReset(requestID, player string) {
	view := c.gameService.Reset(player)
	c.reply(requestID, MessageTypeGameState, GameStateData{Player: player, View: view})
}

func (c *Connection) handleState(requestID, player string) {
	view := c.gameService.State(player)
	c.reply(requestID, MessageTypeGameState, GameStateData{Player: player, View: view})
}

func (c *Connection) handleStats(requestID, player string) {
	stats, err := c.gameService.Stats(c.ctx, player)
	if err != nil {
		c.sendError(requestID, "stats_unavailable", err.Error())
		return
	}
	c.reply(requestID, MessageTypeStatsResult, stats)
}
