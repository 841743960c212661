package gateway

import (
	"net/http"

	"github.com/mcdev12/draftroom/go/internal/httputil"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for draft connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	snapshot          SnapshotFunc
}

func NewWebSocketHandler(cm *ConnectionManager, snapshot SnapshotFunc) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		snapshot:          snapshot,
	}
}

// HandleDraftConnection handles GET /ws/draft?draft_id=...
func (h *WebSocketHandler) HandleDraftConnection(w http.ResponseWriter, r *http.Request) {
	draftID, err := httputil.ParseUUID("draft_id", r.URL.Query().Get("draft_id"))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	// Browsers cannot set headers on a WebSocket handshake, so the proxy
	// may pass the user as a query parameter instead.
	userID := r.Header.Get(httputil.HeaderUserID)
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		userID = "anonymous"
	}

	if err := h.connectionManager.Connect(w, r, userID, draftID, h.snapshot); err != nil {
		log.Warn().
			Err(err).
			Str("draft_id", draftID.String()).
			Str("user_id", userID).
			Msg("rejected WebSocket connection")
		httputil.WriteDomainError(w, err)
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/draft", h.HandleDraftConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
