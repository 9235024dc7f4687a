package websocket

import (
	"context"
	"time"

	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Conn   Conn
}

type PayoutEvent struct {
	Type      string        `json:"type"`
	Payout    models.Payout `json:"payout"`
	Timestamp time.Time     `json:"timestamp"`
}

// Hub fans payout status changes out to connected admin clients.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan PayoutEvent
	clients    map[uuid.UUID]*Client
	done       chan struct{}
	logger     *zerolog.Logger
}

func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan PayoutEvent, 64),
		clients:    make(map[uuid.UUID]*Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the client set until ctx is cancelled. It must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id, c := range h.clients {
				c.Conn.Close()
				delete(h.clients, id)
			}
			return
		case c := <-h.register:
			h.clients[c.ID] = c
			h.logger.Debug().Str("user_id", c.UserID.String()).Int("clients", len(h.clients)).Msg("payout feed client registered")
		case c := <-h.unregister:
			if _, ok := h.clients[c.ID]; ok {
				delete(h.clients, c.ID)
				h.logger.Debug().Str("user_id", c.UserID.String()).Msg("payout feed client unregistered")
			}
		case ev := <-h.broadcast:
			for id, c := range h.clients {
				if err := c.Conn.WriteJSON(ev); err != nil {
					h.logger.Warn().Err(err).Str("user_id", c.UserID.String()).Msg("dropping payout feed client")
					c.Conn.Close()
					delete(h.clients, id)
				}
			}
		}
	}
}

// PublishPayout queues an update without blocking; updates are dropped when the buffer is full.
func (h *Hub) PublishPayout(p models.Payout) {
	ev := PayoutEvent{Type: "payout.updated", Payout: p, Timestamp: time.Now().UTC()}
	select {
	case h.broadcast <- ev:
	default:
		h.logger.Warn().Str("payout_id", p.ID.String()).Msg("payout feed buffer full, update dropped")
	}
}

// Register adds c to the feed. After Run has returned it closes c instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Conn.Close()
	}
}

// Unregister is a no-op once Run has returned; the client set was already closed.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Serve keeps an upgraded connection registered until the client goes away.
func (h *Hub) Serve(c *websocket.Conn, userID uuid.UUID) {
	client := &Client{ID: uuid.New(), UserID: userID, Conn: c}
	h.Register(client)
	defer h.Unregister(client)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
