package payment

import (
	"encoding/base64"
	"strings"

	"github.com/flexy-hms/payments-api/internal/common"
	"github.com/flexy-hms/payments-api/internal/gateway"
)

// DefaultCurrency applies when the caller supplies none.
const DefaultCurrency = "CHF"

// PayloadOptions carries the optional parts of a transaction request. Success
// and failed URLs only make sense together; a reusable token makes both
// unnecessary because token charges are synchronous with no browser redirect.
type PayloadOptions struct {
	SuccessURL string
	FailedURL  string
	Token      string
}

// BuildTransaction assembles a gateway transaction request. Pure construction:
// same inputs yield an equivalent request, with auto confirmation always on.
func BuildTransaction(currency string, items []gateway.LineItem, opt PayloadOptions) (gateway.TransactionCreate, error) {
	if len(items) == 0 {
		return gateway.TransactionCreate{}, common.NewValidation("LINE_ITEMS_EMPTY", "transaction requires at least one line item", nil)
	}
	if strings.TrimSpace(currency) == "" {
		currency = DefaultCurrency
	}
	return gateway.TransactionCreate{
		Currency:                currency,
		LineItems:               items,
		AutoConfirmationEnabled: true,
		SuccessURL:              opt.SuccessURL,
		FailedURL:               opt.FailedURL,
		Token:                   opt.Token,
	}, nil
}

// SuccessCallbackURL appends the base64-encoded success flag and order id to
// the caller's redirect URL. The encoding is a stable wire contract consumed
// by existing redirect handlers and must not change.
func SuccessCallbackURL(base, orderID string) string {
	return callbackURL(base, "1", orderID)
}

// FailedCallbackURL is the failure counterpart of SuccessCallbackURL.
func FailedCallbackURL(base, orderID string) string {
	return callbackURL(base, "0", orderID)
}

func callbackURL(base, flag, orderID string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte("payment_callback=" + flag + "&paid_id=" + orderID))
	return base + "?" + encoded
}
