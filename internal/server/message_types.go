package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeAuth     MessageType = "auth"
	MessageTypeRoll     MessageType = "roll"
	MessageTypeHold     MessageType = "hold"
	MessageTypeComplete MessageType = "complete"
	MessageTypeReset    MessageType = "reset"
	MessageTypeState    MessageType = "state"
	MessageTypeStats    MessageType = "stats"

	// Server to client messages
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeGameState    MessageType = "game_state"
	MessageTypeGameComplete MessageType = "game_complete"
	MessageTypeStatsResult  MessageType = "stats_result"
	MessageTypeError        MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
