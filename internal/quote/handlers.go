package quote

import (
	"net/http"

	"github.com/noah-isme/backend-promo/internal/common"
)

// Handler exposes quote endpoints.
type Handler struct {
	Svc *Service
}

type catalogRequest struct {
	Items []Selection `json:"items" validate:"max=500,dive"`
}

type linesRequest struct {
	Items []Line `json:"items" validate:"max=500"`
}

// Catalog handles POST /api/v1/quotes.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req catalogRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Svc.FromCatalog(r.Context(), req.Items)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, result)
}

// Lines handles POST /api/v1/quotes/lines.
func (h *Handler) Lines(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req linesRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, h.Svc.FromLines(r.Context(), req.Items))
}
