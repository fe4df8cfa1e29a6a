package httpx

import (
	"net/http"

	"github.com/merchkit/merchsync/internal/service"
)

// MaintenanceHandlers provides HTTP handlers for operational recovery:
// manual sweeps, failed-job resets, and empty-window validation.
type MaintenanceHandlers struct {
	Watchdog *service.WatchdogService
	Recovery *service.RecoveryService
}

// Sweep handles HTTP requests to run one watchdog sweep immediately.
func (h *MaintenanceHandlers) Sweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.Watchdog.Sweep(r.Context())
	if err != nil {
		WriteServiceError(w, "sweep_failed", err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// Reset handles HTTP requests to return failed jobs to pending.
func (h *MaintenanceHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	var req service.ResetRequest
	if r.ContentLength != 0 {
		if !DecodeJSON(w, r, &req) {
			return
		}
	}

	result, err := h.Recovery.Reset(r.Context(), req)
	if err != nil {
		WriteServiceError(w, "reset_failed", err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Validate handles HTTP requests to reconcile failed jobs against upstream
// record counts, completing those whose windows hold nothing to sync.
func (h *MaintenanceHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req service.ValidateRequest
	if r.ContentLength != 0 {
		if !DecodeJSON(w, r, &req) {
			return
		}
	}

	result, err := h.Recovery.ValidateFailed(r.Context(), req)
	if err != nil {
		WriteServiceError(w, "validate_failed", err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
