package realtime

import (
	"encoding/json"
	"time"

	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

type refusedReply struct {
	Event    string   `json:"event"`
	Channels []string `json:"channels"`
}

// Serve registers an upgraded connection for actor and starts its pumps.
// The connection is closed when the client disconnects or the hub closes.
func (h *Hub) Serve(actor entity.Actor, ws *gorillawebsocket.Conn) *Client {
	client := &Client{
		ID:    uuid.New().String(),
		Actor: actor,
		Send:  make(chan []byte, sendBuffer),
		conn:  &gorillaConnAdapter{ws},
	}
	h.Register(client)

	go h.writePump(client, ws)
	go h.readPump(client, ws)

	return client
}

func (h *Hub) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.Unregister(client)
		ws.Close()
	}()

	ws.SetReadLimit(4096)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if refused := h.ProcessMessage(client, msg); len(refused) > 0 {
			reply, _ := json.Marshal(refusedReply{Event: "subscription_refused", Channels: refused})
			select {
			case client.Send <- reply:
			default:
			}
		}
	}
}

func (h *Hub) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
