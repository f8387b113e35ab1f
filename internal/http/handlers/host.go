package handlers

import (
	"encoding/json"
	"net/http"

	"brewdesk-alert-services/internal/bridge"
	"brewdesk-alert-services/pkg/response"
)

// HostPush is the HTTP entry point the host shell calls when an order arrives.
// Hosts without a live websocket use this; both paths land in the same slot.
func (h *Handler) HostPush(w http.ResponseWriter, r *http.Request) {
	var payload bridge.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order payload")
		return
	}
	if !payload.Valid() {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "order_id is required")
		return
	}

	h.Bridge.Push(payload)
	response.SuccessMessage(w, "Order queued for the console", map[string]any{
		"order_id": payload.OrderID,
	})
}
