package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fortuna/statcard/internal/card"
	"github.com/fortuna/statcard/internal/faceit"
	"github.com/fortuna/statcard/internal/render"
	"github.com/fortuna/statcard/internal/service"
)

// Stable user-facing messages, one per error kind. Internal kinds never leak
// wrapped error text.
const (
	msgNotFound     = "player not found on FACEIT"
	msgRateLimited  = "FACEIT is busy right now, try again in a moment"
	msgTransient    = "FACEIT is unreachable right now, try again in a moment"
	msgRenderBusy   = "the card renderer is busy, try again in a moment"
	msgTemplateBad  = "internal template error"
	msgRenderFailed = "card rendering failed"
	msgAuthRejected = "the service is misconfigured, contact the operator"
	msgInternal     = "internal error"
)

// Handler serves card requests.
type Handler struct {
	cards           *service.CardService
	templateIDs     []string
	defaultTemplate string
	logger          zerolog.Logger
}

// NewHandler creates a handler over the card service.
func NewHandler(cards *service.CardService, templateIDs []string, defaultTemplate string, logger zerolog.Logger) *Handler {
	return &Handler{
		cards:           cards,
		templateIDs:     templateIDs,
		defaultTemplate: defaultTemplate,
		logger:          logger,
	}
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "statcard",
	})
}

// ListTemplates returns the registered template ids.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"templates": h.templateIDs,
		"default":   h.defaultTemplate,
	})
}

// GetCard renders (or serves from cache) the stat card for a nickname and
// writes the PNG bytes.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	nickname := mux.Vars(r)["nickname"]
	if nickname == "" {
		respondError(w, http.StatusBadRequest, "nickname is required")
		return
	}

	templateID := r.URL.Query().Get("template")
	if templateID == "" {
		templateID = h.defaultTemplate
	}

	rendered, err := h.cards.PlayerCard(r.Context(), nickname, templateID)
	if err != nil {
		h.respondCardError(w, nickname, templateID, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(rendered.Image)))
	w.Header().Set("X-Card-Key", rendered.Key)
	w.WriteHeader(http.StatusOK)
	w.Write(rendered.Image)
}

// respondCardError maps each error kind to a distinct status and a stable
// message.
func (h *Handler) respondCardError(w http.ResponseWriter, nickname, templateID string, err error) {
	event := h.logger.Error().
		Err(err).
		Str("nickname", nickname).
		Str("template", templateID)

	switch {
	case errors.Is(err, faceit.ErrNotFound):
		event.Msg("player lookup failed")
		respondError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, faceit.ErrRateLimited):
		event.Msg("rate limit budget exhausted")
		respondError(w, http.StatusServiceUnavailable, msgRateLimited)
	case errors.Is(err, faceit.ErrTransient):
		event.Msg("upstream unavailable")
		respondError(w, http.StatusServiceUnavailable, msgTransient)
	case errors.Is(err, faceit.ErrAuth):
		event.Msg("api key rejected")
		respondError(w, http.StatusInternalServerError, msgAuthRejected)
	case errors.Is(err, render.ErrCheckoutTimeout):
		event.Msg("render pool exhausted")
		respondError(w, http.StatusServiceUnavailable, msgRenderBusy)
	case errors.Is(err, card.ErrUnknownTemplate):
		event.Msg("unknown template requested")
		respondError(w, http.StatusInternalServerError, msgTemplateBad)
	case errors.Is(err, card.ErrCapture):
		event.Msg("capture failed twice")
		respondError(w, http.StatusInternalServerError, msgRenderFailed)
	default:
		event.Msg("card request failed")
		respondError(w, http.StatusInternalServerError, msgInternal)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
