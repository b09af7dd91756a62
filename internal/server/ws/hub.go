// Package ws is the WebSocket subscriber hub. Each connected client
// carries its own filter configuration; the hub fans out per-cycle market
// updates and threshold alerts, and mirrors both onto the Redis signal
// bus so out-of-process consumers see the same stream.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"primeflip/internal/domain"
	"primeflip/internal/pricing"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 64
)

// Bus channels mirrored by the hub.
const (
	ChannelMarketUpdate = "market_update"
	ChannelAlert        = "opportunity_alert"
)

// OpportunitySource exposes the latest completed cycle for the snapshot
// sent to freshly connected clients. Satisfied by *scheduler.Scheduler.
type OpportunitySource interface {
	Current() *domain.OpportunitySet
}

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// clientConfig is one subscriber's personal filter preferences, mutated
// only by that subscriber's own set_config messages.
type clientConfig struct {
	Strategy  string  `json:"strategy"`
	MinProfit float64 `json:"min_profit"`
	MinMargin float64 `json:"min_margin"`
	Platform  string  `json:"platform"`
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		Strategy: pricing.DefaultStrategy,
		Platform: domain.PlatformPC,
	}
}

// client represents a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu  sync.RWMutex
	cfg clientConfig
}

func (c *client) config() clientConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// inboundMsg is the only message shape clients may send: a set_config
// request with optional fields merged into the stored config. Anything
// else is logged and ignored.
type inboundMsg struct {
	Type      string   `json:"type"`
	Strategy  *string  `json:"strategy"`
	MinProfit *float64 `json:"min_profit"`
	MinMargin *float64 `json:"min_margin"`
	Platform  *string  `json:"platform"`
}

// marketUpdateMsg is the bulk state update sent on connect and each cycle.
type marketUpdateMsg struct {
	Type          string               `json:"type"`
	Opportunities []domain.Opportunity `json:"opportunities"`
	Timestamp     time.Time            `json:"timestamp"`
}

// alertMsg is the targeted threshold-crossing notification.
type alertMsg struct {
	Type        string             `json:"type"`
	Opportunity domain.Opportunity `json:"opportunity"`
	Reason      string             `json:"reason"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Hub manages the set of connected subscribers.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	updates    chan *domain.OpportunitySet
	alerts     chan alertMsg

	source OpportunitySource
	bus    domain.SignalBus // optional mirror, may be nil
	logger *slog.Logger

	mu sync.RWMutex
}

// NewHub creates a hub. source provides the connect-time snapshot; bus,
// when non-nil, receives a copy of every update and alert.
func NewHub(source OpportunitySource, bus domain.SignalBus, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		updates:    make(chan *domain.OpportunitySet, 16),
		alerts:     make(chan alertMsg, 64),
		source:     source,
		bus:        bus,
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// SetSource replaces the connect-time snapshot source. Intended for
// wiring up the scheduler after construction; must be called before the
// first client connects.
func (h *Hub) SetSource(source OpportunitySource) {
	h.source = source
}

// BroadcastUpdate fans the new opportunity set out to every subscriber,
// filtered per their stored thresholds. Called by the scheduler once per
// cycle. Non-blocking: if the hub loop is saturated the update is dropped,
// since the next cycle supersedes it anyway.
func (h *Hub) BroadcastUpdate(set *domain.OpportunitySet) {
	select {
	case h.updates <- set:
	default:
		h.logger.Warn("ws: update queue full, dropping cycle broadcast")
	}
}

// BroadcastAlert delivers a threshold alert to every subscriber.
func (h *Hub) BroadcastAlert(opp domain.Opportunity, reason string, ts time.Time) {
	msg := alertMsg{Type: "opportunity_alert", Opportunity: opp, Reason: reason, Timestamp: ts}
	select {
	case h.alerts <- msg:
	default:
		h.logger.Warn("ws: alert queue full, dropping alert", slog.String("item", opp.ItemID))
	}
}

// Run is the hub's event loop: registration, unregistration and fan-out.
// It exits when the context is cancelled, closing every client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: client connected", slog.Int("total_clients", total))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected", slog.Int("total_clients", total))

		case set := <-h.updates:
			h.fanOutUpdate(ctx, set)

		case msg := <-h.alerts:
			h.fanOutAlert(ctx, msg)
		}
	}
}

func (h *Hub) fanOutUpdate(ctx context.Context, set *domain.OpportunitySet) {
	h.mu.RLock()
	for c := range h.clients {
		c.trySend(marketUpdate(set, c.config()))
	}
	h.mu.RUnlock()

	h.mirror(ctx, ChannelMarketUpdate, marketUpdate(set, clientConfig{}))
}

func (h *Hub) fanOutAlert(ctx context.Context, msg alertMsg) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	for c := range h.clients {
		c.trySend(data)
	}
	h.mu.RUnlock()

	h.mirror(ctx, ChannelAlert, data)
}

// mirror publishes a copy of the message to the signal bus, best effort.
func (h *Hub) mirror(ctx context.Context, channel string, data []byte) {
	if h.bus == nil || data == nil {
		return
	}
	if err := h.bus.Publish(ctx, channel, data); err != nil {
		h.logger.Warn("ws: bus mirror failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// marketUpdate renders the set as a market_update message filtered by the
// client's thresholds. Returns nil on marshal failure.
func marketUpdate(set *domain.OpportunitySet, cfg clientConfig) []byte {
	msg := marketUpdateMsg{
		Type:          "market_update",
		Opportunities: set.Filtered(cfg.MinProfit, cfg.MinMargin),
		Timestamp:     updatedAt(set),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil
	}
	return data
}

func updatedAt(set *domain.OpportunitySet) time.Time {
	if set == nil {
		return time.Now().UTC()
	}
	return set.UpdatedAt
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades an HTTP request to a WebSocket connection, registers
// the client with a default config, and immediately sends it a snapshot
// of the current opportunity set.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		cfg:  defaultClientConfig(),
	}

	h.register <- c
	c.trySend(marketUpdate(h.source.Current(), c.config()))

	go c.writePump()
	go c.readPump()
}

// trySend queues a message for the client, dropping it when the client's
// buffer is full. A consistently slow client loses intermediate updates
// rather than stalling the hub.
func (c *client) trySend(data []byte) {
	if data == nil {
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("ws: dropping message for slow client")
	}
}

// readPump reads config messages from the connection until it closes.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error", slog.String("error", err.Error()))
			}
			return
		}

		var msg inboundMsg
		if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "set_config" {
			c.hub.logger.Warn("ws: ignoring unrecognized message")
			continue
		}
		c.applyConfig(msg)
	}
}

// applyConfig merges the set_config fields into the client's stored
// config and answers with a market_update reflecting the new filters.
func (c *client) applyConfig(msg inboundMsg) {
	c.mu.Lock()
	if msg.Strategy != nil {
		c.cfg.Strategy = *msg.Strategy
	}
	if msg.MinProfit != nil {
		c.cfg.MinProfit = *msg.MinProfit
	}
	if msg.MinMargin != nil {
		c.cfg.MinMargin = *msg.MinMargin
	}
	if msg.Platform != nil {
		c.cfg.Platform = *msg.Platform
	}
	cfg := c.cfg
	c.mu.Unlock()

	c.hub.logger.Info("ws: client config updated",
		slog.String("strategy", cfg.Strategy),
		slog.Float64("min_profit", cfg.MinProfit),
		slog.Float64("min_margin", cfg.MinMargin),
		slog.String("platform", cfg.Platform),
	)

	c.trySend(marketUpdate(c.hub.source.Current(), cfg))
}

// writePump writes queued messages and periodic pings to the connection.
func (c *client) writePump() {
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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
