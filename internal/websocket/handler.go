package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and runs it as a Hub client. The
// optional region query parameter narrows the feed. originPatterns restricts
// cross-origin dashboards; empty allows same-origin only.
func HandleWebSocket(hub *Hub, logger *slog.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept", "error", err, "remote", r.RemoteAddr)
			return
		}
		region := r.URL.Query().Get("region")
		logger.Debug("dashboard connected", "remote", r.RemoteAddr, "region", region)

		NewClient(hub, conn, region).Run(r.Context())
		logger.Debug("dashboard disconnected", "remote", r.RemoteAddr)
	}
}
