package sponsors

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// HandleList serves GET /api/sponsors.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	sponsors, err := h.repo.ActiveSponsors(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load sponsors")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load sponsors"})
		return
	}
	writeJSON(w, http.StatusOK, sponsors)
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sponsors", h.HandleList)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
