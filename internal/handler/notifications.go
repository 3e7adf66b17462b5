package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/OriginProtocol/origin-bridge/internal/audit"
	"github.com/OriginProtocol/origin-bridge/internal/model"
	"github.com/OriginProtocol/origin-bridge/internal/service"
)

type NotificationsHandler struct {
	notifier *service.NotifierService
}

func NewNotificationsHandler(notifier *service.NotifierService) *NotificationsHandler {
	return &NotificationsHandler{notifier: notifier}
}

func (h *NotificationsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/eth-endpoint", h.RegisterEthEndpoint)
	r.Post("/new-eth-message", h.NewEthMessage)

	return r
}

// POST /api/notifications/eth-endpoint
func (h *NotificationsHandler) RegisterEthEndpoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EthAddress  string                     `json:"eth_address"`
		DeviceToken string                     `json:"device_token"`
		Type        model.NotificationProvider `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	endpoint, err := h.notifier.RegisterEndpoint(r.Context(), req.EthAddress, req.DeviceToken, req.Type)
	if err != nil {
		log.Warn().Err(err).Msg("endpoint registration rejected")
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventEndpointRegister,
		Details: map[string]interface{}{"provider": string(endpoint.Provider)},
	})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/notifications/new-eth-message
func (h *NotificationsHandler) NewEthMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Receivers []string `json:"receivers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	notified, err := h.notifier.NewEthMessage(r.Context(), req.Receivers)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"notified": notified,
	})
}
