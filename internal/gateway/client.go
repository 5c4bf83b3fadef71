package gateway

import "context"

// Transaction states reported by the gateway. The set is open ended; only the
// states this service branches on are named here.
const (
	StatePending    = "PENDING"
	StateAuthorized = "AUTHORIZED"
	StateCompleted  = "COMPLETED"
	StateFulfill    = "FULFILL"
	StateFailed     = "FAILED"
	StateDeclined   = "DECLINED"
)

// IsSuccessState reports whether a terminal-reported state allows the payment
// instrument to be tokenized for later reuse.
func IsSuccessState(state string) bool {
	switch state {
	case StateCompleted, StateFulfill, StateAuthorized:
		return true
	default:
		return false
	}
}

// LineItem is one priced entry within a transaction request. Amounts are
// pre-formatted to two decimal places before they reach this type.
type LineItem struct {
	UniqueID           string `json:"uniqueId"`
	Name               string `json:"name"`
	Quantity           int    `json:"quantity"`
	AmountIncludingTax string `json:"amountIncludingTax"`
	Type               string `json:"type"`
}

// LineItemTypeProduct is the only line item type this integration emits.
const LineItemTypeProduct = "PRODUCT"

// TransactionCreate is the request sent to the gateway to open a transaction.
type TransactionCreate struct {
	Currency                string     `json:"currency"`
	LineItems               []LineItem `json:"lineItems"`
	AutoConfirmationEnabled bool       `json:"autoConfirmationEnabled"`
	SuccessURL              string     `json:"successUrl,omitempty"`
	FailedURL               string     `json:"failedUrl,omitempty"`
	Token                   string     `json:"token,omitempty"`
}

// Transaction is the gateway's view of a created or progressed transaction.
type Transaction struct {
	ID    int64  `json:"id"`
	State string `json:"state"`
}

// TokenVersion carries the presentable instrument details of an active token
// version: the card description and the brand image path.
type TokenVersion struct {
	Name      string
	ImagePath string
}

// Client is the single seam through which every call to the external payment
// processor passes. Implementations own timeout policy; callers never retry.
type Client interface {
	CreateTransaction(ctx context.Context, req TransactionCreate) (Transaction, error)
	PaymentPageURL(ctx context.Context, transactionID int64) (string, error)
	TriggerOnTerminal(ctx context.Context, transactionID int64, terminalID string) (Transaction, error)
	CreateToken(ctx context.Context, transactionID int64) (string, error)
	ActiveTokenVersion(ctx context.Context, tokenID string) (TokenVersion, error)
	ProcessWithToken(ctx context.Context, transactionID int64) (Transaction, error)
	DeleteToken(ctx context.Context, tokenID string) error
}
