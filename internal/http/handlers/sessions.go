package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"brewdesk-alert-services/internal/gesture"
	"brewdesk-alert-services/internal/session"
	"brewdesk-alert-services/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SessionCreate resolves a disposition session for the alert screen. The body
// mirrors the page's entry context: an optional order id from the URL and the
// viewport width the swipe threshold is derived from.
func (h *Handler) SessionCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrderID       string  `json:"order_id"`
		ViewportWidth float64 `json:"viewport_width"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	resolution, err := h.Sessions.Resolve(r.Context(), session.Entry{
		OrderID:       strings.TrimSpace(body.OrderID),
		ViewportWidth: body.ViewportWidth,
	})
	if err != nil {
		h.Logger.Error("session resolution failed", zap.Error(err))
		response.Error(w, http.StatusBadGateway, "PENDING_LOAD_FAILED", "Failed to load pending orders")
		return
	}

	if resolution.Redirect != nil {
		response.Success(w, map[string]any{
			"mode":       "redirect",
			"navigation": resolution.Redirect,
		})
		return
	}

	response.Success(w, resolution.Session.State())
}

func (h *Handler) SessionGet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response.Success(w, s.State())
}

// SessionGesture feeds one normalized touch or pointer sample into the swipe
// recognizer. Both input schemes post the same {phase, x} shape; pointer_kind
// is accepted and ignored beyond validation.
func (h *Handler) SessionGesture(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Phase       string  `json:"phase"`
		X           float64 `json:"x"`
		PointerKind string  `json:"pointer_kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid gesture event")
		return
	}
	phase := gesture.Phase(body.Phase)
	if phase != gesture.PhaseStart && phase != gesture.PhaseMove && phase != gesture.PhaseEnd {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "phase must be start, move or end")
		return
	}

	frame, outcome, err := s.Gesture(r.Context(), gesture.Event{Phase: phase, X: body.X})
	if err != nil {
		h.writeDispositionError(w, err)
		return
	}

	payload := map[string]any{"frame": frame}
	if outcome != nil {
		payload["outcome"] = outcome
	}
	response.Success(w, payload)
}

// SessionDispose is the tap path: accept or reject one order directly, used by
// the card list in multi-order mode.
func (h *Handler) SessionDispose(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Order ID is required")
		return
	}

	var body struct {
		Decision string `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Decision is required")
		return
	}
	decision, err := session.ParseDecision(strings.TrimSpace(body.Decision))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "decision must be accepted or rejected")
		return
	}

	outcome, err := s.Dispose(r.Context(), orderID, decision)
	if errors.Is(err, session.ErrInFlight) {
		// Duplicate attempt while one is outstanding: suppressed, not an error.
		response.Success(w, map[string]any{"suppressed": true, "state": s.State()})
		return
	}
	if err != nil {
		h.writeDispositionError(w, err)
		return
	}

	response.Success(w, map[string]any{"outcome": outcome, "state": s.State()})
}

func (h *Handler) SessionClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	if !h.Sessions.Close(id) {
		response.Error(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
		return
	}
	response.SuccessMessage(w, "Session closed", nil)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "sessionId")
	s, ok := h.Sessions.Get(id)
	if !ok {
		response.Error(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
		return nil, false
	}
	return s, true
}

func (h *Handler) writeDispositionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionClosed):
		response.Error(w, http.StatusGone, "SESSION_CLOSED", "Session has ended")
	case errors.Is(err, session.ErrUnknownOrder):
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order is not part of this session")
	case errors.Is(err, session.ErrGestureUnavailable):
		response.Error(w, http.StatusBadRequest, "GESTURE_UNAVAILABLE", "Swipe is only available in single-order mode")
	default:
		response.Error(w, http.StatusBadGateway, "DISPOSITION_FAILED", "Failed to update order status")
	}
}
