package httpx

import (
	"fmt"
	"net/http"

	"github.com/merchkit/merchsync/internal/service"
)

// SmartSyncHandlers provides HTTP handlers for estimate-driven order syncs.
type SmartSyncHandlers struct {
	Svc *service.SmartSyncService
}

// smartSyncBody is the wire form of a smart sync request with YYYY-MM-DD dates.
type smartSyncBody struct {
	Shop  string `json:"shop"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (b smartSyncBody) toRequest() (service.SmartSyncRequest, error) {
	req := service.SmartSyncRequest{Shop: b.Shop}

	var err error
	if req.Start, err = parseDate(b.Start); err != nil {
		return req, fmt.Errorf("invalid start date %q", b.Start)
	}
	if req.End, err = parseDate(b.End); err != nil {
		return req, fmt.Errorf("invalid end date %q", b.End)
	}
	return req, nil
}

// Run handles HTTP requests to sync a shop's order window, choosing direct
// or chunked execution from the upstream volume estimate.
func (h *SmartSyncHandlers) Run(w http.ResponseWriter, r *http.Request) {
	var body smartSyncBody
	if !DecodeJSON(w, r, &body) {
		return
	}

	req, err := body.toRequest()
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}

	result, err := h.Svc.Run(r.Context(), req)
	if err != nil {
		WriteServiceError(w, "smart_sync_failed", err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
