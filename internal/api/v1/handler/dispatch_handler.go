package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"pressroom/internal/api/v1/dto"
	"pressroom/internal/pubsub"
	"pressroom/internal/service"

	"github.com/rs/zerolog"
)

// DispatchHandler receives Pub/Sub push notifications for queued items and
// executes the publish step. Mounted behind the push-auth middleware.
type DispatchHandler struct {
	dispatchSvc service.DispatchService
	logger      zerolog.Logger
}

// NewDispatchHandler creates a new DispatchHandler.
func NewDispatchHandler(dispatchSvc service.DispatchService, logger zerolog.Logger) *DispatchHandler {
	return &DispatchHandler{dispatchSvc: dispatchSvc, logger: logger}
}

// RegisterRoutes mounts the push endpoint.
func (h *DispatchHandler) RegisterRoutes(mux *http.ServeMux, pushAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/dispatch", pushAuthMw(http.HandlerFunc(h.handlePush)))
}

// handlePush godoc
// @Summary Execute a publish dispatch
// @Description Pub/Sub push endpoint. Decodes the dispatch notification and runs the publish attempt for the named queue item. Non-2xx responses make Pub/Sub redeliver, so only transient errors return 5xx; malformed messages are acked with 200 to keep them out of the retry loop.
// @Tags dispatch
// @Accept json
// @Produce json
// @Success 200 {string} string "ok"
// @Failure 500 {string} string "dispatch failed"
// @Router /dispatch [post]
func (h *DispatchHandler) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var push dto.PubSubPushRequest
	if err := json.NewDecoder(r.Body).Decode(&push); err != nil {
		h.logger.Error().Err(err).Msg("failed to decode push request")
		// Acked: a malformed envelope never becomes valid on redelivery.
		w.WriteHeader(http.StatusOK)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(push.Message.Data)
	if err != nil {
		h.logger.Error().Err(err).Str("message_id", push.Message.MessageID).Msg("failed to decode push message data")
		w.WriteHeader(http.StatusOK)
		return
	}
	var notification pubsub.DispatchNotification
	if err := json.Unmarshal(raw, &notification); err != nil || notification.ItemID == "" {
		h.logger.Error().Err(err).Str("message_id", push.Message.MessageID).Msg("malformed dispatch notification")
		w.WriteHeader(http.StatusOK)
		return
	}

	status, err := h.dispatchSvc.Execute(r.Context(), notification.ItemID)
	if err != nil {
		h.logger.Error().Err(err).Str("item_id", notification.ItemID).Msg("dispatch failed")
		http.Error(w, "dispatch failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"item_id": notification.ItemID, "status": string(status)}, h.logger)
}
