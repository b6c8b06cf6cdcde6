package websocket

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/nudge/internal/auth"
)

// Sessions is notified when a user's first socket opens and last one closes,
// so reminder monitoring follows the user's live presence.
type Sessions interface {
	Attach(ctx context.Context, userID int64) error
	Detach(userID int64)
}

// HandleWebSocket returns an HTTP handler that upgrades authenticated
// connections to WebSocket and runs them as Hub clients.
func HandleWebSocket(hub *Hub, sessions Sessions, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // token auth, not origin checks
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		client := NewClient(hub, conn, userID)

		// Register before attaching so the immediate monitor pass can reach
		// this socket.
		hub.Register(client)
		if sessions != nil {
			if err := sessions.Attach(r.Context(), userID); err != nil {
				logger.Error("attach session", "user_id", userID, "error", err)
				hub.Unregister(client)
				conn.Close(ws.StatusInternalError, "session unavailable")
				return
			}
			defer sessions.Detach(userID)
		}

		client.Run(r.Context())
	}
}
