package handler

import "net/http"

// KeyHandler hands the configured model API key to the browser client. It
// holds no state beyond the key.
type KeyHandler struct {
	apiKey string
}

// NewKeyHandler creates a KeyHandler serving apiKey.
func NewKeyHandler(apiKey string) *KeyHandler {
	return &KeyHandler{apiKey: apiKey}
}

// ServeHTTP implements http.Handler.
// /api/key
func (h *KeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if h.apiKey == "" {
		writeError(w, http.StatusInternalServerError, "API key not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"apiKey": h.apiKey})
}
