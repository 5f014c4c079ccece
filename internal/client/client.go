// Package client implements the WebSocket client side of the pig
// protocol. Every operation is a request/response pair correlated by
// request id, so callers get plain synchronous methods.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pigbots/pigbots/internal/server" // Reuse message types
)

// ServerError is an error message returned by the server.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}

// Client represents a WebSocket client for the pig game
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	closeOnce sync.Once

	pendingMu sync.Mutex
	pending   map[string]chan *server.Message
}

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		send:      make(chan *server.Message, 64),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]chan *server.Message),
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect() error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.connected = false
		}
		close(c.send)
		c.mu.Unlock()

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg server.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.logger.Debug("Received message", "type", msg.Type, "requestId", msg.RequestID)
		c.dispatch(&msg)
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// dispatch routes a response to the waiting request, if any
func (c *Client) dispatch(msg *server.Message) {
	c.pendingMu.Lock()
	ch, ok := c.pending[msg.RequestID]
	if ok {
		delete(c.pending, msg.RequestID)
	}
	c.pendingMu.Unlock()

	if !ok {
		c.logger.Debug("No pending request for message", "type", msg.Type, "requestId", msg.RequestID)
		return
	}
	ch <- msg
}

// do sends a request and waits for the correlated response
func (c *Client) do(ctx context.Context, messageType server.MessageType, data interface{}) (*server.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return nil, err
	}
	msg.RequestID = uuid.NewString()

	ch := make(chan *server.Message, 1)
	c.pendingMu.Lock()
	c.pending[msg.RequestID] = ch
	c.pendingMu.Unlock()

	cleanup := func() {
		c.pendingMu.Lock()
		delete(c.pending, msg.RequestID)
		c.pendingMu.Unlock()
	}

	select {
	case c.send <- msg:
	case <-c.ctx.Done():
		cleanup()
		return nil, c.ctx.Err()
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	}

	select {
	case resp := <-ch:
		if resp.Type == server.MessageTypeError {
			var errData server.ErrorData
			if err := json.Unmarshal(resp.Data, &errData); err != nil {
				return nil, fmt.Errorf("undecodable server error: %w", err)
			}
			return nil, &ServerError{Code: errData.Code, Message: errData.Message}
		}
		return resp, nil
	case <-c.ctx.Done():
		cleanup()
		return nil, c.ctx.Err()
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	}
}

func decodeInto[T any](msg *server.Message) (T, error) {
	var out T
	if err := json.Unmarshal(msg.Data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	return out, nil
}

// Auth authenticates the connection as the given player
func (c *Client) Auth(ctx context.Context, playerName, token string) (server.AuthResponseData, error) {
	msg, err := c.do(ctx, server.MessageTypeAuth, server.AuthData{PlayerName: playerName, Token: token})
	if err != nil {
		return server.AuthResponseData{}, err
	}
	resp, err := decodeInto[server.AuthResponseData](msg)
	if err != nil {
		return server.AuthResponseData{}, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("authentication failed: %s", resp.Error)
	}
	return resp, nil
}

// Roll rolls the die
func (c *Client) Roll(ctx context.Context) (server.GameStateData, error) {
	msg, err := c.do(ctx, server.MessageTypeRoll, nil)
	if err != nil {
		return server.GameStateData{}, err
	}
	return decodeInto[server.GameStateData](msg)
}

// Hold banks the current turn score
func (c *Client) Hold(ctx context.Context) (server.GameStateData, error) {
	msg, err := c.do(ctx, server.MessageTypeHold, nil)
	if err != nil {
		return server.GameStateData{}, err
	}
	return decodeInto[server.GameStateData](msg)
}

// Complete registers a finished game with the leaderboard
func (c *Client) Complete(ctx context.Context) (server.GameCompleteData, error) {
	msg, err := c.do(ctx, server.MessageTypeComplete, nil)
	if err != nil {
		return server.GameCompleteData{}, err
	}
	return decodeInto[server.GameCompleteData](msg)
}

// Reset starts a fresh game
func (c *Client) Reset(ctx context.Context) (server.GameStateData, error) {
	msg, err := c.do(ctx, server.MessageTypeReset, nil)
	if err != nil {
		return server.GameStateData{}, err
	}
	return decodeInto[server.GameStateData](msg)
}

// State fetches the current game snapshot
func (c *Client) State(ctx context.Context) (server.GameStateData, error) {
	msg, err := c.do(ctx, server.MessageTypeState, nil)
	if err != nil {
		return server.GameStateData{}, err
	}
	return decodeInto[server.GameStateData](msg)
}

// Stats fetches the completion counters
func (c *Client) Stats(ctx context.Context) (server.StatsData, error) {
	msg, err := c.do(ctx, server.MessageTypeStats, nil)
	if err != nil {
		return server.StatsData{}, err
	}
	return decodeInto[server.StatsData](msg)
}
