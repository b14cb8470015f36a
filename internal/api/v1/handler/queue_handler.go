package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"pressroom/internal/api/v1/dto"
	"pressroom/internal/middleware"
	"pressroom/internal/model"
	"pressroom/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// QueueHandler exposes the publishing queue endpoints.
type QueueHandler struct {
	queueSvc   service.QueueService
	webhookSvc service.WebhookService
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler(queueSvc service.QueueService, webhookSvc service.WebhookService, validate *validator.Validate, logger zerolog.Logger) *QueueHandler {
	return &QueueHandler{queueSvc: queueSvc, webhookSvc: webhookSvc, validate: validate, logger: logger}
}

// RegisterRoutes mounts queue routes under /queue.
func (h *QueueHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/queue", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/queue/", authMw(http.HandlerFunc(h.handleItem)))
}

func (h *QueueHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.enqueue(w, r)
	case http.MethodGet:
		h.listItems(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *QueueHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/cancel"):
		h.cancelItem(w, r)
	case r.Method == http.MethodGet:
		h.getItem(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// enqueue godoc
// @Summary Enqueue a publish job
// @Description Creates a queue item that publishes content to a platform, optionally at a scheduled time.
// @Tags queue
// @Accept json
// @Produce json
// @Param item body dto.EnqueueRequestDTO true "Enqueue request"
// @Success 201 {object} dto.QueueItemResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to enqueue"
// @Router /queue [post]
func (h *QueueHandler) enqueue(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := r.Context().Value(middleware.TenantContextKey).(string)
	if !ok || tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.EnqueueRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.queueSvc.Enqueue(r.Context(), tenantID, req.ContentID, req.Platform, service.EnqueueOptions{
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			http.Error(w, vErr.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("failed to enqueue publish item")
		http.Error(w, "failed to enqueue", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewQueueItemResponse(item), h.logger)
}

// listItems godoc
// @Summary List queue items
// @Description Lists the tenant's queue items, optionally filtered by status.
// @Tags queue
// @Produce json
// @Param status query string false "Status filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} dto.QueueItemResponseDTO
// @Router /queue [get]
func (h *QueueHandler) listItems(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := r.Context().Value(middleware.TenantContextKey).(string)
	if !ok || tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	var status *model.ItemStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := model.ItemStatus(s)
		status = &st
	}
	items, err := h.queueSvc.ListItems(r.Context(), tenantID, status, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list queue items")
		http.Error(w, "failed to list queue items", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.QueueItemResponseDTO, 0, len(items))
	for i := range items {
		resp = append(resp, dto.NewQueueItemResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

// getItem godoc
// @Summary Get a queue item
// @Tags queue
// @Produce json
// @Param queueItemId path string true "Queue item ID"
// @Success 200 {object} dto.QueueItemResponseDTO
// @Failure 404 {string} string "queue item not found"
// @Router /queue/{queueItemId} [get]
func (h *QueueHandler) getItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := r.Context().Value(middleware.TenantContextKey).(string)
	if !ok || tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/queue/")
	item, err := h.queueSvc.GetItem(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch queue item")
		http.Error(w, "failed to fetch queue item", http.StatusInternalServerError)
		return
	}
	if item == nil || item.TenantID != tenantID {
		http.Error(w, "queue item not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewQueueItemResponse(item), h.logger)
}

// cancelItem godoc
// @Summary Cancel a queue item
// @Description Cancels a pending or queued item. Items already publishing or finished cannot be cancelled.
// @Tags queue
// @Produce json
// @Param queueItemId path string true "Queue item ID"
// @Success 200 {object} dto.QueueItemResponseDTO
// @Failure 404 {string} string "queue item not found"
// @Failure 409 {string} string "item cannot be cancelled"
// @Router /queue/{queueItemId}/cancel [post]
func (h *QueueHandler) cancelItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := r.Context().Value(middleware.TenantContextKey).(string)
	if !ok || tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/queue/"), "/cancel")
	item, err := h.queueSvc.GetItem(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to fetch queue item", http.StatusInternalServerError)
		return
	}
	if item == nil || item.TenantID != tenantID {
		http.Error(w, "queue item not found", http.StatusNotFound)
		return
	}
	if err := h.queueSvc.Cancel(r.Context(), id); err != nil {
		var vErr *service.ValidationError
		var sErr *service.InvalidStateError
		switch {
		case errors.As(err, &vErr):
			http.Error(w, vErr.Error(), http.StatusNotFound)
		case errors.As(err, &sErr):
			http.Error(w, sErr.Error(), http.StatusConflict)
		default:
			h.logger.Error().Err(err).Msg("failed to cancel queue item")
			http.Error(w, "failed to cancel queue item", http.StatusInternalServerError)
		}
		return
	}
	item, err = h.queueSvc.GetItem(r.Context(), id)
	if err != nil || item == nil {
		http.Error(w, "failed to fetch queue item", http.StatusInternalServerError)
		return
	}
	h.webhookSvc.TriggerWebhooks(r.Context(), tenantID, service.EventItemCancelled, map[string]any{
		"item_id":    item.ID,
		"content_id": item.ContentID,
		"platform":   item.Platform,
	})
	writeJSON(w, http.StatusOK, dto.NewQueueItemResponse(item), h.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
