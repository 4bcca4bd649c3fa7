package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lox/holdemtable/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = errors.New("connection closed")

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn    *websocket.Conn
	send    chan *Message
	manager *Manager
	limiter *rate.Limiter
	logger  zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	mu       sync.RWMutex
	tableID  string
	playerID string
	unwatch  func()

	closeOnce sync.Once
	onClose   func(*Connection)
}

// NewConnection creates a new connection wrapper. limiter may be nil for
// no rate limit.
func NewConnection(conn *websocket.Conn, manager *Manager, limiter *rate.Limiter, logger zerolog.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 256),
		manager: manager,
		limiter: limiter,
		logger:  logger.With().Str("component", "conn").Str("remote", conn.RemoteAddr().String()).Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		if c.unwatch != nil {
			c.unwatch()
			c.unwatch = nil
		}
		c.mu.Unlock()
		err = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
	return err
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn().Msg("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) binding() (tableID, playerID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID, c.playerID
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
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("WebSocket error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("", ErrorData{Code: CodeBadRequest, Message: "malformed message"})
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.sendError(msg.RequestID, ErrorData{Code: CodeRateLimited, Message: "too many messages"})
			continue
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			data, err := json.Marshal(message)
			if err != nil {
				c.logger.Error().Err(err).Msg("Failed to encode message")
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug().Err(err).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug().Str("type", msg.Type.String()).Msg("Received message")

	if msg.Type == MessageTypeJoin {
		var data JoinData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.RequestID, ErrorData{Code: CodeBadRequest, Message: "failed to parse join data"})
			return
		}
		c.handleJoin(msg.RequestID, data)
		return
	}

	tableID, playerID := c.binding()
	if tableID == "" {
		c.sendError(msg.RequestID, ErrorData{Code: CodeBadRequest, Message: "join a table first"})
		return
	}
	if playerID == "" && msg.Type != MessageTypeStart && msg.Type != MessageTypeAdvance {
		c.sendError(msg.RequestID, ErrorData{Code: CodeBadRequest, Message: "spectators cannot " + msg.Type.String()})
		return
	}

	ctx := c.ctx
	var err error
	switch msg.Type {
	case MessageTypeSit:
		var data SitData
		if err = json.Unmarshal(msg.Data, &data); err == nil {
			_, err = c.manager.SitDown(ctx, tableID, playerID, data.Seat, data.BuyIn)
		}

	case MessageTypeReserve:
		var data ReserveData
		if err = json.Unmarshal(msg.Data, &data); err == nil {
			var ttl time.Duration
			if data.TTL != "" {
				ttl, err = time.ParseDuration(data.TTL)
			}
			if err == nil {
				_, err = c.manager.ReserveSeat(ctx, tableID, data.Seat, playerID, ttl)
			}
		}

	case MessageTypeLeave:
		_, err = c.manager.Leave(ctx, tableID, playerID)

	case MessageTypeStart:
		_, err = c.manager.StartHand(ctx, tableID)

	case MessageTypeAdvance:
		_, err = c.manager.Advance(ctx, tableID)

	case MessageTypeAction:
		var data ActionData
		if err = json.Unmarshal(msg.Data, &data); err == nil {
			var action game.Action
			if action, err = game.ParseAction(data.Action); err == nil {
				_, _, err = c.manager.Act(ctx, tableID, playerID, action, data.Amount)
			}
		}

	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}

	if err != nil {
		data, _ := errorData(err)
		c.sendError(msg.RequestID, data)
		return
	}
	c.sendState(msg.RequestID)
}

func (c *Connection) handleJoin(requestID string, data JoinData) {
	if data.TableID == "" {
		c.sendError(requestID, ErrorData{Code: CodeBadRequest, Message: "table_id is required"})
		return
	}
	updates, unwatch, err := c.manager.Watch(data.TableID)
	if err != nil {
		ed, _ := errorData(err)
		c.sendError(requestID, ed)
		return
	}

	c.mu.Lock()
	if c.unwatch != nil {
		c.unwatch()
	}
	c.tableID, c.playerID, c.unwatch = data.TableID, data.PlayerID, unwatch
	c.mu.Unlock()

	c.logger.Info().Str("table_id", data.TableID).Str("player", data.PlayerID).Msg("Connection joined table")
	go c.watch(updates)
	c.sendState(requestID)
}

// watch pushes fresh state to the client after every table change.
func (c *Connection) watch(updates <-chan struct{}) {
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
			c.sendState("")
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) sendState(requestID string) {
	tableID, playerID := c.binding()
	snap, err := c.manager.PublicSnapshot(tableID, playerID)
	if err != nil {
		ed, _ := errorData(err)
		c.sendError(requestID, ed)
		return
	}
	state := StateData{Table: snap}
	if playerID != "" && snap.Hand != nil && snap.Hand.CurrentPlayer == playerID {
		state.ValidActions, _ = c.manager.ValidActions(tableID, playerID)
	}
	msg, err := NewMessage(MessageTypeState, state)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to create state message")
		return
	}
	msg.RequestID = requestID
	_ = c.SendMessage(msg)
}

// sendError sends an error message to the client
func (c *Connection) sendError(requestID string, data ErrorData) {
	msg, err := NewMessage(MessageTypeError, data)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to create error message")
		return
	}
	msg.RequestID = requestID
	_ = c.SendMessage(msg)
}
