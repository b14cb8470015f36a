package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"pressroom/internal/api/v1/dto"
	"pressroom/internal/repository"
	"pressroom/internal/service"
	"pressroom/internal/worker/activation"
	"pressroom/internal/worker/retry"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// WorkerHandler exposes the HTTP triggers for the batch workers, invoked by
// the platform scheduler behind the trigger-auth middleware.
type WorkerHandler struct {
	queueRepo     repository.QueueRepository
	queueSvc      service.QueueService
	dispatchSvc   service.DispatchService
	retryCfg      retry.Config
	activationCfg activation.Config
	validate      *validator.Validate
	logger        zerolog.Logger
}

// NewWorkerHandler creates a new WorkerHandler.
func NewWorkerHandler(queueRepo repository.QueueRepository, queueSvc service.QueueService, dispatchSvc service.DispatchService, retryCfg retry.Config, activationCfg activation.Config, validate *validator.Validate, logger zerolog.Logger) *WorkerHandler {
	return &WorkerHandler{
		queueRepo:     queueRepo,
		queueSvc:      queueSvc,
		dispatchSvc:   dispatchSvc,
		retryCfg:      retryCfg,
		activationCfg: activationCfg,
		validate:      validate,
		logger:        logger,
	}
}

// RegisterRoutes mounts worker trigger routes under /workers.
func (h *WorkerHandler) RegisterRoutes(mux *http.ServeMux, triggerMw func(http.Handler) http.Handler) {
	mux.Handle("/workers/retry", triggerMw(http.HandlerFunc(h.triggerRetry)))
	mux.Handle("/workers/activation", triggerMw(http.HandlerFunc(h.triggerActivation)))
}

// triggerRetry godoc
// @Summary Run one retry sweep
// @Description Selects due retry items and re-enters each through the publish path. Always returns 200 with a run summary; per-item failures show up in the summary, not the status code.
// @Tags workers
// @Accept json
// @Produce json
// @Param overrides body dto.WorkerTriggerRequestDTO false "Optional batch overrides"
// @Success 200 {object} retry.Summary
// @Failure 500 {string} string "retry run failed"
// @Router /workers/retry [post]
func (h *WorkerHandler) triggerRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := h.retryCfg
	req, ok := h.decodeOverrides(w, r)
	if !ok {
		return
	}
	if req.Platform != "" {
		cfg.Platform = req.Platform
	}
	if req.Limit > 0 {
		cfg.BatchLimit = req.Limit
	}

	summary, err := retry.RunOnce(r.Context(), h.logger, h.queueRepo, h.dispatchSvc, cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("retry run failed")
		http.Error(w, "retry run failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary, h.logger)
}

// triggerActivation godoc
// @Summary Run one activation sweep
// @Description Promotes scheduled items whose activation time has arrived from pending to queued.
// @Tags workers
// @Accept json
// @Produce json
// @Param overrides body dto.WorkerTriggerRequestDTO false "Optional batch overrides"
// @Success 200 {object} activation.Summary
// @Failure 500 {string} string "activation run failed"
// @Router /workers/activation [post]
func (h *WorkerHandler) triggerActivation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := h.activationCfg
	req, ok := h.decodeOverrides(w, r)
	if !ok {
		return
	}
	if req.Platform != "" {
		cfg.Platform = req.Platform
	}
	if req.Limit > 0 {
		cfg.BatchLimit = req.Limit
	}

	summary, err := activation.RunOnce(r.Context(), h.logger, h.queueRepo, h.queueSvc, cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("activation run failed")
		http.Error(w, "activation run failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary, h.logger)
}

// decodeOverrides reads the optional trigger body. An empty body is fine.
func (h *WorkerHandler) decodeOverrides(w http.ResponseWriter, r *http.Request) (dto.WorkerTriggerRequestDTO, bool) {
	var req dto.WorkerTriggerRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request payload: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	return req, true
}
