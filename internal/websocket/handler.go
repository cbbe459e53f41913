package websocket

import (
	"healthtrack-realtime/pkg/protocol"

	"github.com/gofiber/websocket/v2"
)

// ServeWs runs one relay connection: auth handshake, hub registration, then the pumps.
// It blocks until the connection ends.
func ServeWs(hub *Hub, conn *websocket.Conn, secret string) {
	client := newClient(hub, conn)
	if !client.authenticate(secret) {
		conn.Close()
		return
	}

	// queued ahead of registration so auth_ok precedes any hub traffic
	client.reply(protocol.EventAuthOK, nil)
	if !hub.Register(client) {
		conn.Close()
		return
	}

	hub.logger.Info("Client", "Authenticated", map[string]interface{}{"user_id": client.UserID})

	go client.writePump()
	client.readPump()
}
