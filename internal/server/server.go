package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pigbots/pigbots/internal/auth"
)

// Server represents the WebSocket server
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	gameService *GameService
	validator   auth.Validator
	failOpen    bool
	clock       quartz.Clock
	listener    net.Listener
}

// NewServer creates a new WebSocket server
func NewServer(addr string, logger *log.Logger, gameService *GameService) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Game clients are bots, not browsers; origin checks add nothing
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
		clock:       quartz.NewReal(),
	}
}

// SetValidator enables token authentication for new connections.
// failOpen controls behavior when the auth service is unreachable.
func (s *Server) SetValidator(v auth.Validator, failOpen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validator = v
	s.failOpen = failOpen
}

// SetClock replaces the clock used for connection deadlines (tests).
func (s *Server) SetClock(clock quartz.Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Start starts the WebSocket server and blocks until it stops.
func (s *Server) Start() error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("Starting WebSocket server", "addr", listener.Addr().String())
	if err := http.Serve(listener, mux); err != nil {
		select {
		case <-s.ctx.Done():
			return nil // Shutting down
		default:
			return err
		}
	}
	return nil
}

// Addr returns the address the server is listening on, or the
// configured address before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop stops the WebSocket server
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			count := len(s.connections)
			s.mu.Unlock()
			s.logger.Debug("Connection registered", "total", count)

		case conn := <-s.unregister:
			s.mu.Lock()
			delete(s.connections, conn)
			count := len(s.connections)
			s.mu.Unlock()
			s.logger.Debug("Connection unregistered", "total", count)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	s.mu.RLock()
	validator, failOpen, clock := s.validator, s.failOpen, s.clock
	s.mu.RUnlock()

	conn := NewConnection(uuid.NewString(), wsConn, s.logger, s.gameService, validator, failOpen)

	select {
	case s.register <- conn:
	case <-s.ctx.Done():
		_ = conn.Close()
		return
	}

	conn.Start(clock)

	go func() {
		<-conn.ctx.Done()
		select {
		case s.unregister <- conn:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth responds to health checks
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
