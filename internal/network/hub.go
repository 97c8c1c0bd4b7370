package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/CookieClicker/internal/engine"
	"github.com/MRamiBalles/CookieClicker/internal/events"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/internal/platform/metrics"
)

// Server message types.
const (
	MessageState          = "STATE"
	MessageEvent          = "EVENT"
	MessagePurchaseResult = "PURCHASE_RESULT"
	MessageSaved          = "SAVED"
	MessageError          = "ERROR"
)

// DefaultPollInterval is how often the hub looks for state changes and new events.
const DefaultPollInterval = 200 * time.Millisecond

// ServerMessage is every frame the hub sends to a client.
type ServerMessage struct {
	Type       string                 `json:"type"`
	State      *engine.Snapshot       `json:"state,omitempty"`
	Event      *events.GameEvent      `json:"event,omitempty"`
	Result     *engine.PurchaseResult `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
}

// HubConfig tunes the hub. Zero values fall back to defaults.
type HubConfig struct {
	PollInterval       time.Duration
	SendBuffer         int
	MaxClicksPerSecond int
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	nudge      chan struct{}
	done       chan struct{}
	mu         sync.Mutex

	controller *Controller
	logger     *logger.Logger
	metrics    *metrics.Collector
	config     HubConfig
	upgrader   websocket.Upgrader
}

// NewHub initializes a new WebSocket Hub. m may be nil.
func NewHub(ctrl *Controller, cfg HubConfig, log *logger.Logger, m *metrics.Collector) *Hub {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.MaxClicksPerSecond <= 0 {
		cfg.MaxClicksPerSecond = 30
	}
	return &Hub{
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		nudge:      make(chan struct{}, 1),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		controller: ctrl,
		logger:     log,
		metrics:    m,
		config:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // The UI may be served from a dev server on another port
			},
		},
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
			h.sendTo(client, h.stateMessage())
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.metrics.RecordWSMessage(false)
				default:
					// Slow consumer: drop it rather than stall the economy.
					close(client.send)
					delete(h.clients, client)
					h.metrics.RecordWSConnection(-1)
					h.metrics.RecordWSError()
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify asks the poller to look for changes now instead of at the next interval.
func (h *Hub) Notify() {
	select {
	case h.nudge <- struct{}{}:
	default:
	}
}

// Broadcast serializes msg and queues it for every connected client.
func (h *Hub) Broadcast(ctx context.Context, msg ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s message for WebSocket broadcast: %v", msg.Type, err)
		return
	}
	select {
	case h.broadcast <- payload:
	case <-ctx.Done():
	}
}

// StartPoller spawns a goroutine that watches the engine for state changes
// and the event log for new entries, broadcasting both. Ticks, clicks and
// purchases all surface here, so the engine never calls into the network.
func (h *Hub) StartPoller(ctx context.Context) {
	go func() {
		pollInterval := time.NewTicker(h.config.PollInterval)
		defer pollInterval.Stop()

		eng := h.controller.Engine()
		lastVersion := eng.Snapshot().Version
		lastSeq := latestSeq(eng.EventLog())

		for {
			select {
			case <-ctx.Done():
				return
			case <-h.nudge:
			case <-pollInterval.C:
			}

			for _, event := range eng.EventLog().Since(lastSeq) {
				event := event
				lastSeq = event.Seq
				h.Broadcast(ctx, ServerMessage{Type: MessageEvent, Event: &event})
			}

			snap := eng.Snapshot()
			if snap.Version != lastVersion {
				lastVersion = snap.Version
				h.Broadcast(ctx, ServerMessage{Type: MessageState, State: &snap})
			}
		}
	}()
}

// ServeWS upgrades the request and starts the client's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Warnf("Failed to upgrade websocket connection: %v", err)
		return
	}

	client := NewClient(h, conn)
	client.Register()

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}

// sendTo queues msg for one client if it is still connected.
func (h *Hub) sendTo(c *Client, msg ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s reply: %v", msg.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- payload:
		h.metrics.RecordWSMessage(false)
	default:
		h.metrics.RecordWSError()
	}
}

func (h *Hub) stateMessage() ServerMessage {
	snap := h.controller.Engine().Snapshot()
	return ServerMessage{Type: MessageState, State: &snap}
}

func latestSeq(el *events.EventLog) uint64 {
	recent := el.Recent(1)
	if len(recent) == 0 {
		return 0
	}
	return recent[0].Seq
}
