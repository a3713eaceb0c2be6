package routes

import (
	"net/http"

	"recicleai/internal/dto"
	"recicleai/internal/handler"
	"recicleai/internal/logger"
	"recicleai/internal/middleware"
	"recicleai/internal/repository"
)

// Dependencies are the services the dashboard reads from.
type Dependencies struct {
	Logger        *logger.Logger
	Hub           handler.ClientRegistry
	Confirmations repository.ConfirmationRepository
	Inbound       repository.InboundRepository
	Status        func() dto.Status
	Token         string
}

// SetupRoutes registers the websocket feed, API endpoints and log endpoints,
// and wraps the mux with the token middleware.
func SetupRoutes(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Live events
	mux.HandleFunc("/ws", handler.ViewWebsocketHandler(deps.Hub, deps.Logger))

	// API endpoints
	mux.HandleFunc("/api/confirmations", handler.ConfirmationsHandler(deps.Confirmations, deps.Logger))
	mux.HandleFunc("/api/inbound", handler.InboundHandler(deps.Inbound, deps.Logger))
	mux.HandleFunc("/api/status", handler.StatusHandler(deps.Status, deps.Logger))

	// Log endpoints
	if dir := deps.Logger.Dir(); dir != "" {
		for level, file := range handler.LogFiles {
			mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(dir, file))
			mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(deps.Logger, file))
		}
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/api/status", http.StatusFound)
	})

	return middleware.TokenMiddleware(deps.Token, mux)
}
