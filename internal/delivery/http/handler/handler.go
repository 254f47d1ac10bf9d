package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/user/pricewatch-service/internal/delivery/http/response"
	"github.com/user/pricewatch-service/internal/entity"
	"github.com/user/pricewatch-service/internal/repository"
	"github.com/user/pricewatch-service/internal/usecase"
	"go.uber.org/zap"
)

// MonitorTrigger starts runs on demand and reports whether the periodic
// loop is active.
type MonitorTrigger interface {
	TriggerNow(ctx context.Context) (entity.RunResult, error)
	Running() bool
}

// HealthCheck pings one dependency.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Handler struct {
	baseCtx   context.Context
	trigger   MonitorTrigger
	runStatus repository.RunStatusRepository
	checks    []HealthCheck
	logger    *zap.Logger
}

// NewHandler returns a Handler. Manual runs are bound to baseCtx, which
// should live as long as the process.
func NewHandler(baseCtx context.Context, trigger MonitorTrigger, runStatus repository.RunStatusRepository, checks []HealthCheck, logger *zap.Logger) *Handler {
	return &Handler{
		baseCtx:   baseCtx,
		trigger:   trigger,
		runStatus: runStatus,
		checks:    checks,
		logger:    logger,
	}
}

// HandleRunNow executes one run synchronously. The run follows the handler's
// base context rather than the request, so a client disconnect does not abort
// it halfway through a batch but shutdown does.
func (h *Handler) HandleRunNow(w http.ResponseWriter, r *http.Request) {
	result, err := h.trigger.TriggerNow(h.baseCtx)
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			h.writeJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("manual run failed", zap.Error(err),
			zap.Int("checked", result.Checked),
			zap.Int("notified", result.Notified))
		h.writeJSONError(w, "Run failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, response.RunResponse{
		Checked:  result.Checked,
		Notified: result.Notified,
	})
}

func (h *Handler) HandleRunStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.runStatus.LastRun(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNoRunRecorded) {
			h.writeJSONError(w, "No run recorded yet", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load run status", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, response.RunStatusResponse{
		Trigger:        report.Trigger,
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
		DurationMS:     report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
		Checked:        report.Checked,
		Notified:       report.Notified,
		Failed:         report.Failed,
		Error:          report.Error,
		PeriodicActive: h.trigger.Running(),
	})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := response.HealthResponse{Status: "ok"}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Dependencies = make(map[string]string, len(h.checks))
	}
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			h.logger.Error("health check failed", zap.String("dependency", c.Name), zap.Error(err))
			resp.Dependencies[c.Name] = "unhealthy"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[c.Name] = "healthy"
	}

	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
