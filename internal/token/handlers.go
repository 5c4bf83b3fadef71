package token

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flexy-hms/payments-api/internal/common"
)

// Handler exposes the token lifecycle over HTTP.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// List returns the stored tokens for ?customerId= within the property scope.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(r.URL.Query().Get("customerId"), 10, 64)
	if err != nil || customerID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "CUSTOMER_ID_INVALID", "customerId must be a positive integer", nil)
		return
	}
	records, err := h.Svc.ListForCustomer(r.Context(), customerID)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"tokens": records})
}

// Delete removes one token, gateway side first.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "tokenID")
	if err := h.Svc.Delete(r.Context(), tokenID); err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
