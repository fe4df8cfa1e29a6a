// Package httpx provides HTTP handlers and utilities for the merchsync API.
package httpx

import (
	"errors"
	"net/http"

	"github.com/merchkit/merchsync/internal/core"
	"github.com/merchkit/merchsync/internal/data"
	"github.com/merchkit/merchsync/internal/domain/model"
	"github.com/merchkit/merchsync/internal/service"
)

// SyncHandlers provides HTTP handlers for dispatch and queue inspection.
type SyncHandlers struct {
	Svc  *service.DispatcherService
	Repo core.WorkItemRepository
}

// Continue handles HTTP requests to run one dispatch pass. The body is an
// optional filter; an empty body dispatches everything. Callers re-invoke
// until the report says Complete.
func (h *SyncHandlers) Continue(w http.ResponseWriter, r *http.Request) {
	var req service.ContinueRequest
	if r.ContentLength != 0 {
		if !DecodeJSON(w, r, &req) {
			return
		}
	}

	report, err := h.Svc.Continue(r.Context(), req)
	if err != nil {
		WriteServiceError(w, "continue_failed", err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// Status handles HTTP requests for queue depth by status.
func (h *SyncHandlers) Status(w http.ResponseWriter, r *http.Request) {
	req := service.ContinueRequest{
		Shop:       r.URL.Query().Get("shop"),
		ObjectType: model.ObjectType(r.URL.Query().Get("object_type")),
	}

	stats, err := h.Svc.Status(r.Context(), req)
	if err != nil {
		WriteServiceError(w, "status_failed", err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// GetJob handles HTTP requests for a single sync job by id.
func (h *SyncHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	item, err := h.Repo.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, data.ErrItemNotFound) {
			WriteError(
				w,
				ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: errors.New("sync job not found")},
			)
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "get_job_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, item)
}
