package httpx

import (
	"fmt"
	"net/http"
	"time"

	"github.com/merchkit/merchsync/internal/domain/model"
	"github.com/merchkit/merchsync/internal/service"
)

// GapHandlers provides HTTP handlers for gap detection and creation.
type GapHandlers struct {
	Svc *service.GapFillService
}

// fillBody is the wire form of a gap-fill request. Dates travel as
// YYYY-MM-DD strings; both empty means the configured lookback window.
type fillBody struct {
	Start      string           `json:"start,omitempty"`
	End        string           `json:"end,omitempty"`
	ObjectType model.ObjectType `json:"object_type,omitempty"`
	Shops      []string         `json:"shops,omitempty"`
}

func (b fillBody) toRequest() (service.FillRequest, error) {
	req := service.FillRequest{ObjectType: b.ObjectType, Shops: b.Shops}

	var err error
	if req.Start, err = parseDate(b.Start); err != nil {
		return req, fmt.Errorf("invalid start date %q", b.Start)
	}
	if req.End, err = parseDate(b.End); err != nil {
		return req, fmt.Errorf("invalid end date %q", b.End)
	}
	return req, nil
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(model.DateLayout, v)
}

// Fill handles HTTP requests to detect and create missing sync jobs.
func (h *GapHandlers) Fill(w http.ResponseWriter, r *http.Request) {
	var body fillBody
	if r.ContentLength != 0 {
		if !DecodeJSON(w, r, &body) {
			return
		}
	}

	req, err := body.toRequest()
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}

	stats, err := h.Svc.Fill(r.Context(), req)
	if err != nil {
		WriteServiceError(w, "gap_fill_failed", err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
