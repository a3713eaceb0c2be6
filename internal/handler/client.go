package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"recicleai/internal/logger"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ClientRegistry receives dashboard connections.
type ClientRegistry interface {
	Register(client *websocket.Conn) bool
	Unregister(client *websocket.Conn)
}

// ViewWebsocketHandler handles dashboard connections over WebSocket and
// registers them to receive broadcast events.
func ViewWebsocketHandler(hub ClientRegistry, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		if !hub.Register(connection) {
			connection.Close()
			return
		}
		defer hub.Unregister(connection)

		logger.Info("Viewer connected from %s", r.RemoteAddr)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected: %v", err)
				}
				return
			}
		}
	}
}
