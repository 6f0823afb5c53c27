package handlers

import (
	"net/http"

	"paeshift-backend/internal/services"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // clients connect from mobile apps and the web frontend
	},
}

// writePump drains a room client's outbound queue onto the socket. It
// exits when the client is closed or the socket write fails.
func writePump(conn *websocket.Conn, client *services.RoomClient) {
	for frame := range client.Outbound() {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}
