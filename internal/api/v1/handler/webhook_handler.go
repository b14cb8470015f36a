package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"pressroom/internal/api/v1/dto"
	"pressroom/internal/middleware"
	"pressroom/internal/model"
	"pressroom/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// WebhookHandler exposes webhook subscription and delivery-log endpoints.
type WebhookHandler struct {
	webhookSvc service.WebhookService
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc service.WebhookService, validate *validator.Validate, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc, validate: validate, logger: logger}
}

// RegisterRoutes mounts subscription routes under /webhooks and delivery
// retries under /deliveries.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/webhooks", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/webhooks/", authMw(http.HandlerFunc(h.handleItem)))
	mux.Handle("/deliveries/", authMw(http.HandlerFunc(h.handleDelivery)))
}

func (h *WebhookHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createSubscription(w, r)
	case http.MethodGet:
		h.listSubscriptions(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *WebhookHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/reactivate"):
		h.reactivateSubscription(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/deliveries"):
		h.listDeliveries(w, r)
	case r.Method == http.MethodGet:
		h.getSubscription(w, r)
	case r.Method == http.MethodDelete:
		h.deleteSubscription(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *WebhookHandler) handleDelivery(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/retry") {
		h.retryDelivery(w, r)
		return
	}
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}

// createSubscription godoc
// @Summary Create a webhook subscription
// @Description Registers a subscriber endpoint for a set of event types. The signing secret is returned once, in this response only.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param subscription body dto.WebhookCreateRequestDTO true "Subscription request"
// @Success 201 {object} dto.WebhookCreateResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Router /webhooks [post]
func (h *WebhookHandler) createSubscription(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := r.Context().Value(middleware.TenantContextKey).(string)
	if !ok || tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.WebhookCreateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.webhookSvc.CreateSubscription(r.Context(), tenantID, req.URL, req.EventTypes, req.CustomHeaders)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			http.Error(w, vErr.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("failed to create webhook subscription")
		http.Error(w, "failed to create webhook subscription", http.StatusInternalServerError)
		return
	}
	resp := dto.WebhookCreateResponseDTO{
		WebhookResponseDTO: dto.NewWebhookResponse(sub),
		Secret:             sub.Secret,
	}
	writeJSON(w, http.StatusCreated, resp, h.logger)
}

// listSubscriptions godoc
// @Summary List webhook subscriptions
// @Tags webhooks
// @Produce json
// @Success 200 {array} dto.WebhookResponseDTO
// @Router /webhooks [get]
func (h *WebhookHandler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := r.Context().Value(middleware.TenantContextKey).(string)
	if !ok || tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	subs, err := h.webhookSvc.ListSubscriptions(r.Context(), tenantID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list webhook subscriptions")
		http.Error(w, "failed to list webhook subscriptions", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.WebhookResponseDTO, 0, len(subs))
	for i := range subs {
		resp = append(resp, dto.NewWebhookResponse(&subs[i]))
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

// getSubscription godoc
// @Summary Get a webhook subscription
// @Tags webhooks
// @Produce json
// @Param subscriptionId path string true "Subscription ID"
// @Success 200 {object} dto.WebhookResponseDTO
// @Failure 404 {string} string "subscription not found"
// @Router /webhooks/{subscriptionId} [get]
func (h *WebhookHandler) getSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.ownedSubscription(w, r, strings.TrimPrefix(r.URL.Path, "/webhooks/"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dto.NewWebhookResponse(sub), h.logger)
}

// deleteSubscription godoc
// @Summary Delete a webhook subscription
// @Tags webhooks
// @Param subscriptionId path string true "Subscription ID"
// @Success 204 {string} string "No Content"
// @Failure 404 {string} string "subscription not found"
// @Router /webhooks/{subscriptionId} [delete]
func (h *WebhookHandler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.ownedSubscription(w, r, strings.TrimPrefix(r.URL.Path, "/webhooks/"))
	if !ok {
		return
	}
	if err := h.webhookSvc.DeleteSubscription(r.Context(), sub.ID); err != nil {
		h.logger.Error().Err(err).Msg("failed to delete webhook subscription")
		http.Error(w, "failed to delete webhook subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reactivateSubscription godoc
// @Summary Reactivate a disabled webhook subscription
// @Description Resets the failure counter and returns the subscription to active.
// @Tags webhooks
// @Produce json
// @Param subscriptionId path string true "Subscription ID"
// @Success 200 {object} dto.WebhookResponseDTO
// @Failure 404 {string} string "subscription not found"
// @Router /webhooks/{subscriptionId}/reactivate [post]
func (h *WebhookHandler) reactivateSubscription(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/webhooks/"), "/reactivate")
	sub, ok := h.ownedSubscription(w, r, id)
	if !ok {
		return
	}
	if err := h.webhookSvc.ReactivateSubscription(r.Context(), sub.ID); err != nil {
		h.logger.Error().Err(err).Msg("failed to reactivate webhook subscription")
		http.Error(w, "failed to reactivate webhook subscription", http.StatusInternalServerError)
		return
	}
	sub, err := h.webhookSvc.GetSubscription(r.Context(), sub.ID)
	if err != nil || sub == nil {
		http.Error(w, "failed to fetch webhook subscription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewWebhookResponse(sub), h.logger)
}

// listDeliveries godoc
// @Summary List delivery attempts for a subscription
// @Tags webhooks
// @Produce json
// @Param subscriptionId path string true "Subscription ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} dto.DeliveryLogResponseDTO
// @Router /webhooks/{subscriptionId}/deliveries [get]
func (h *WebhookHandler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/webhooks/"), "/deliveries")
	sub, ok := h.ownedSubscription(w, r, id)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	logs, err := h.webhookSvc.ListDeliveries(r.Context(), sub.ID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list deliveries")
		http.Error(w, "failed to list deliveries", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.DeliveryLogResponseDTO, 0, len(logs))
	for i := range logs {
		resp = append(resp, dto.NewDeliveryLogResponse(&logs[i]))
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

// retryDelivery godoc
// @Summary Retry a past delivery
// @Description Re-delivers the payload of a logged delivery attempt with a fresh envelope and signature.
// @Tags webhooks
// @Produce json
// @Param deliveryId path string true "Delivery log ID"
// @Success 200 {object} service.DeliveryResult
// @Failure 404 {string} string "delivery log not found"
// @Router /deliveries/{deliveryId}/retry [post]
func (h *WebhookHandler) retryDelivery(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := r.Context().Value(middleware.TenantContextKey).(string)
	if !ok || tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/deliveries/"), "/retry")
	result, err := h.webhookSvc.RetryDelivery(r.Context(), id)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			http.Error(w, vErr.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("failed to retry delivery")
		http.Error(w, "failed to retry delivery", http.StatusInternalServerError)
		return
	}
	status := map[string]any{"success": result.Success}
	if result.StatusCode != nil {
		status["status_code"] = *result.StatusCode
	}
	if result.Err != nil {
		status["error"] = result.Err.Error()
	}
	writeJSON(w, http.StatusOK, status, h.logger)
}

// ownedSubscription resolves a subscription id and enforces tenant ownership.
// Writes the error response itself when the second return is false.
func (h *WebhookHandler) ownedSubscription(w http.ResponseWriter, r *http.Request, id string) (*model.WebhookSubscription, bool) {
	tenantID, ok := r.Context().Value(middleware.TenantContextKey).(string)
	if !ok || tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	sub, err := h.webhookSvc.GetSubscription(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch webhook subscription")
		http.Error(w, "failed to fetch webhook subscription", http.StatusInternalServerError)
		return nil, false
	}
	if sub == nil || sub.TenantID != tenantID {
		http.Error(w, "subscription not found", http.StatusNotFound)
		return nil, false
	}
	return sub, true
}
