package network

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/CookieClicker/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Bound on a SAVE or RESET issued by a client.
	commandTimeout = 5 * time.Second
)

// Player action types accepted from the UI.
const (
	ActionClick    = "CLICK"
	ActionPurchase = "PURCHASE"
	ActionReset    = "RESET"
	ActionSave     = "SAVE"
)

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type   string `json:"type"`
	ItemID string `json:"item_id,omitempty"` // PURCHASE only
}

// Client is one connected UI.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	clicks *rate.Limiter
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	burst := hub.config.MaxClicksPerSecond
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.config.SendBuffer),
		clicks: rate.NewLimiter(rate.Limit(burst), burst),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
		close(c.send)
	}
}

// ReadPump pumps messages from the websocket connection to the engine.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warnf("WebSocket read error: %v", err)
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Warn("Failed to parse PlayerAction from WebSocket. err: " + err.Error())
			c.reply(ServerMessage{Type: MessageError, Error: "malformed action"})
			continue
		}

		c.handlePlayerAction(action)
	}
}

func (c *Client) handlePlayerAction(action PlayerAction) {
	ctrl := c.hub.controller

	switch action.Type {
	case ActionClick:
		// Anti-spam only: excess clicks are dropped silently.
		if !c.clicks.Allow() {
			return
		}
		ctrl.Click()
	case ActionPurchase:
		c.handlePurchase(action.ItemID)
	case ActionReset:
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := ctrl.Reset(ctx); err != nil {
			c.reply(ServerMessage{Type: MessageError, Error: err.Error()})
		}
	case ActionSave:
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := ctrl.Save(ctx); err != nil {
			c.reply(ServerMessage{Type: MessageError, Error: err.Error()})
			return
		}
		c.reply(ServerMessage{Type: MessageSaved})
	default:
		c.hub.logger.Warn("Unknown PlayerAction type: " + action.Type)
		c.reply(ServerMessage{Type: MessageError, Error: "unknown action " + action.Type})
		return
	}
	c.hub.Notify()
}

func (c *Client) handlePurchase(id string) {
	res, err := c.hub.controller.Purchase(id)
	if err != nil {
		msg := ServerMessage{Type: MessageError, Error: err.Error()}
		var notFound *engine.ItemNotFoundError
		if errors.As(err, &notFound) {
			msg.Suggestion = notFound.Suggestion
		}
		c.reply(msg)
		return
	}
	c.reply(ServerMessage{Type: MessagePurchaseResult, Result: &res})
}

func (c *Client) reply(msg ServerMessage) {
	c.hub.sendTo(c, msg)
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame; the UI parses frames individually.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.metrics.RecordWSError()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
