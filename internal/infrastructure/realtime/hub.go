// Package realtime pushes scheduling events to websocket clients.
// Clients subscribe to provider:{id} and patient:{id} channels; the hub only
// admits subscriptions the caller's role allows.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/service"

	"github.com/sirupsen/logrus"
)

// ClientMessage is an inbound subscription request from a websocket client
type ClientMessage struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

// Conn abstracts a websocket connection for testability
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one websocket connection
type Client struct {
	ID       string
	Actor    entity.Actor
	Channels []string
	Send     chan []byte
	conn     Conn
}

// Hub tracks clients and their channel subscriptions
type Hub struct {
	log     *logrus.Logger
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // channel -> set of clients
	all     map[*Client]struct{}
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
	}
}

// OwnChannel is the channel every client is subscribed to on connect
func OwnChannel(actor entity.Actor) string {
	if actor.IsDoctor() {
		return service.ProviderChannel(actor.UserID)
	}
	return service.PatientChannel(actor.UserID)
}

// CanSubscribe reports whether actor may listen on channel.
// Admins may listen anywhere; everyone else only on their own channel.
func CanSubscribe(actor entity.Actor, channel string) bool {
	if !strings.HasPrefix(channel, "provider:") && !strings.HasPrefix(channel, "patient:") {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return channel == OwnChannel(actor)
}

// Register adds a client and subscribes it to its own channel
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	if !client.Actor.IsAdmin() {
		h.subscribeLocked(client, []string{OwnChannel(client.Actor)})
	}
}

// Unregister removes a client from every channel and closes its Send channel
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}

	h.unsubscribeLocked(client, client.Channels)
	delete(h.all, client)
	close(client.Send)
}

// Subscribe adds the permitted channels and returns the ones that were refused
func (h *Hub) Subscribe(client *Client, channels []string) []string {
	var allowed, refused []string
	for _, ch := range channels {
		if CanSubscribe(client.Actor, ch) {
			allowed = append(allowed, ch)
		} else {
			refused = append(refused, ch)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribeLocked(client, allowed)

	return refused
}

func (h *Hub) Unsubscribe(client *Client, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(client, channels)
}

func (h *Hub) subscribeLocked(client *Client, channels []string) {
	for _, ch := range channels {
		if h.clients[ch] == nil {
			h.clients[ch] = make(map[*Client]struct{})
		}
		if _, ok := h.clients[ch][client]; ok {
			continue
		}
		h.clients[ch][client] = struct{}{}
		client.Channels = append(client.Channels, ch)
	}
}

func (h *Hub) unsubscribeLocked(client *Client, channels []string) {
	removeSet := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		removeSet[ch] = struct{}{}
		if subscribers, ok := h.clients[ch]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, ch)
			}
		}
	}

	remaining := make([]string, 0, len(client.Channels))
	for _, ch := range client.Channels {
		if _, rm := removeSet[ch]; !rm {
			remaining = append(remaining, ch)
		}
	}
	client.Channels = remaining
}

// ProcessMessage dispatches a client request and returns refused channels
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) []string {
	switch msg.Action {
	case "subscribe":
		return h.Subscribe(client, msg.Channels)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Channels)
	}
	return nil
}

// Broadcast sends an encoded message to every subscriber of channel.
// Clients with a full buffer miss the message.
func (h *Hub) Broadcast(channel string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[channel] {
		select {
		case client.Send <- data:
		default:
			h.log.Debugf("Client %s buffer full, skipping message on %s", client.ID, channel)
		}
	}
}

// Deliver implements service.Sink
func (h *Hub) Deliver(_ context.Context, msg service.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.Broadcast(msg.Channel, data)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) ChannelCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[channel])
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.all))
	for c := range h.all {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}
