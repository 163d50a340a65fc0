/*
Package handler provides the HTTP handlers and routing setup for the relay.

This file upgrades HTTP requests to WebSocket connections and runs the
connection's pumps. Rooms are chosen later, in-band, with a join frame.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"roomrelay/internal/app/chat"
	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/limiter"
	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/resp"
)

// HandleWebSocket upgrades the request and serves the connection until it closes.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if upgrader.CheckOrigin != nil && !upgrader.CheckOrigin(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrOriginNotAllowed, r.Header.Get("Origin")))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error response.
			logx.Warn("Failed to upgrade connection to WebSocket", "error", err.Error(), "ip", logx.AnonymizeIP(limiter.ClientIP(r)))
			return
		}

		client := chat.NewClient(conn, deps.clientOptions())
		deps.Dispatcher.Connect(client)

		go client.WritePump()

		client.ReadPump(deps.Dispatcher)
	}
}
