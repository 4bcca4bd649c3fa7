package server

// MessageType represents a WebSocket message type
type MessageType string

const (
	// Client to server messages
	MessageTypeJoin    MessageType = "join"
	MessageTypeSit     MessageType = "sit"
	MessageTypeReserve MessageType = "reserve"
	MessageTypeLeave   MessageType = "leave"
	MessageTypeStart   MessageType = "start"
	MessageTypeAdvance MessageType = "advance"
	MessageTypeAction  MessageType = "action"

	// Server to client messages
	MessageTypeState MessageType = "state"
	MessageTypeError MessageType = "error"
)

func (mt MessageType) String() string {
	return string(mt)
}
