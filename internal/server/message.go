package server

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/lox/holdemtable/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType         `json:"type"`
	Data      jsoniter.RawMessage `json:"data,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	RequestID string              `json:"request_id,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
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

// Client → Server

// JoinData binds the connection to a table, optionally as a player. A
// connection without a player id is a spectator.
type JoinData struct {
	TableID  string `json:"table_id"`
	PlayerID string `json:"player_id,omitempty"`
}

type SitData struct {
	Seat  int `json:"seat,omitempty"`
	BuyIn int `json:"buy_in"`
}

type ReserveData struct {
	Seat int    `json:"seat"`
	TTL  string `json:"ttl,omitempty"`
}

type ActionData struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// Server → Client

// StateData is the table as the connection's player may see it, with the
// actions open to them when it is their turn.
type StateData struct {
	Table        game.Snapshot      `json:"table"`
	ValidActions []game.ValidAction `json:"valid_actions,omitempty"`
}
