package payment

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/flexy-hms/payments-api/internal/common"
)

// Handler exposes the charge flows over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New()}
}

type linkRequest struct {
	OrderID     string           `json:"orderId" validate:"required"`
	Context     string           `json:"context" validate:"required"`
	Records     []map[string]any `json:"records" validate:"required,min=1"`
	Currency    string           `json:"currency"`
	RedirectURL string           `json:"redirectUrl"`
	SuccessURL  string           `json:"successUrl"`
	CancelURL   string           `json:"cancelUrl"`
}

// Link creates a redirect-flow transaction and returns its payment page URL.
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
		return
	}
	octx, err := ParseOrderContext(req.Context)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	pageURL, err := h.Svc.PaymentLink(r.Context(), PaymentLinkRequest{
		OrderID:     req.OrderID,
		Context:     octx,
		Records:     req.Records,
		Currency:    req.Currency,
		RedirectURL: req.RedirectURL,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"paymentPageUrl": pageURL})
}

// CustomerID may be absent for walk-in charges; zero means no customer
// record to attach the token to.
type terminalRequest struct {
	Amount     string `json:"amount" validate:"required"`
	CustomerID int64  `json:"customerId"`
}

// Terminal performs a card-present charge on the configured terminal. The
// response carries the final transaction state as reported by the terminal.
func (h *Handler) Terminal(w http.ResponseWriter, r *http.Request) {
	var req terminalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
		return
	}
	state, err := h.Svc.TerminalCharge(r.Context(), req.Amount, req.CustomerID)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"state": state})
}

type tokenChargeRequest struct {
	Amount  string `json:"amount" validate:"required"`
	TokenID string `json:"tokenId" validate:"required"`
}

// TokenCharge processes a charge against a previously stored token.
func (h *Handler) TokenCharge(w http.ResponseWriter, r *http.Request) {
	var req tokenChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
		return
	}
	state, err := h.Svc.ChargeWithToken(r.Context(), req.Amount, req.TokenID)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"state": state})
}
