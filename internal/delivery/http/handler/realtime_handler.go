package handler

import (
	"net/http"
	"strings"

	"clinic-backend/internal/infrastructure/realtime"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// RealtimeHandler upgrades authenticated requests to websocket connections on the hub
type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, allowedOrigins []string, log *logrus.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowedOrigins) == 0 {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		return false
	}
}

func (h *RealtimeHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	// Upgrade writes its own error response
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("Failed to upgrade websocket for %s: %+v", actor.UserID, err)
		return
	}

	client := h.hub.Serve(actor, ws)
	h.log.Debugf("Websocket client %s connected: user=%s, role=%s", client.ID, actor.UserID, actor.Role)
}
