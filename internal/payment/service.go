package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/flexy-hms/payments-api/internal/common"
	"github.com/flexy-hms/payments-api/internal/gateway"
	"github.com/flexy-hms/payments-api/internal/lock"
	"github.com/flexy-hms/payments-api/internal/obs"
)

// cashierItemName is the fixed label for ad-hoc cashier charges.
const cashierItemName = "Reservation Billing Transaction"

// TokenCapturer stores a reusable payment token minted from a completed
// transaction. Failures are isolated: a charge that already succeeded is
// never rolled back because tokenization failed.
type TokenCapturer interface {
	CaptureAndStore(ctx context.Context, transactionID int64, customerID int64) error
}

// Service drives the create / trigger / tokenize / respond sequences against
// the gateway. It never retries a gateway call: payment creation is not
// safely idempotent without a caller-supplied idempotency key.
type Service struct {
	Gateway    gateway.Client
	Tokens     TokenCapturer
	Locker     lock.Locker
	TerminalID string
	LockTTL    time.Duration
	Currency   string
	Logger     zerolog.Logger
}

// PaymentLinkRequest captures a redirect-flow charge: checkout screens, the
// web shop and the guest app all funnel through it.
type PaymentLinkRequest struct {
	OrderID     string
	Context     OrderContext
	Records     []map[string]any
	Currency    string
	RedirectURL string
	SuccessURL  string
	CancelURL   string
}

// PaymentLink creates a transaction and returns the hosted payment page URL.
// When explicit success/cancel URLs are absent they are derived from the
// redirect URL with the encoded callback flag.
func (s *Service) PaymentLink(ctx context.Context, req PaymentLinkRequest) (string, error) {
	if s == nil || s.Gateway == nil {
		return "", errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.PaymentLink")
	defer span.End()
	result := "error"
	defer func() { recordFlow("link", result) }()
	span.SetAttributes(
		attribute.String("payment.context", req.Context.String()),
		attribute.String("payment.order_id", req.OrderID),
	)

	items, err := BuildLineItems(req.Records, req.Context)
	if err != nil {
		return "", err
	}

	successURL := strings.TrimSpace(req.SuccessURL)
	failedURL := strings.TrimSpace(req.CancelURL)
	if successURL == "" {
		base := strings.TrimSpace(req.RedirectURL)
		if base == "" {
			return "", common.NewValidation("REDIRECT_URL_MISSING", "redirectUrl is required when successUrl is not set", nil)
		}
		successURL = SuccessCallbackURL(base, req.OrderID)
		failedURL = FailedCallbackURL(base, req.OrderID)
	}

	payload, err := BuildTransaction(s.currency(req.Currency), items, PayloadOptions{
		SuccessURL: successURL,
		FailedURL:  failedURL,
	})
	if err != nil {
		return "", err
	}

	tx, err := s.Gateway.CreateTransaction(ctx, payload)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	pageURL, err := s.Gateway.PaymentPageURL(ctx, tx.ID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	result = "success"
	return pageURL, nil
}

// TerminalCharge creates a transaction for an in-person amount and performs
// it on the configured terminal, blocking until the terminal reports a state.
// On a success state the payment instrument is tokenized for the customer;
// tokenization failure is reported but the charge result stands.
func (s *Service) TerminalCharge(ctx context.Context, amount string, customerID int64) (string, error) {
	if s == nil || s.Gateway == nil {
		return "", errors.New("payment service not configured")
	}
	if strings.TrimSpace(s.TerminalID) == "" {
		return "", common.NewValidation("TERMINAL_NOT_CONFIGURED", "no payment terminal configured", nil)
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.TerminalCharge")
	defer span.End()
	result := "error"
	defer func() { recordFlow("terminal", result) }()

	payload, err := s.cashierPayload(amount, "")
	if err != nil {
		return "", err
	}
	tx, err := s.Gateway.CreateTransaction(ctx, payload)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.Int64("payment.transaction_id", tx.ID))

	var triggered gateway.Transaction
	trigger := func(ctx context.Context) error {
		var err error
		triggered, err = s.Gateway.TriggerOnTerminal(ctx, tx.ID, s.TerminalID)
		return err
	}
	// one cardholder at a time per physical terminal
	if s.Locker.R != nil {
		err = s.Locker.WithLock(ctx, "terminal:"+s.TerminalID, s.lockTTL(), trigger)
	} else {
		err = trigger(ctx)
	}
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.String("payment.state", triggered.State))

	if gateway.IsSuccessState(triggered.State) && s.Tokens != nil {
		if err := s.Tokens.CaptureAndStore(ctx, tx.ID, customerID); err != nil {
			s.Logger.Error().Err(err).
				Int64("transaction_id", tx.ID).
				Int64("customer_id", customerID).
				Msg("token capture failed after successful charge")
		}
	}
	result = strings.ToLower(triggered.State)
	return triggered.State, nil
}

// ChargeWithToken creates a transaction referencing a stored token and
// processes it synchronously. No tokenization happens here: a token is being
// consumed, not created.
func (s *Service) ChargeWithToken(ctx context.Context, amount string, tokenID string) (string, error) {
	if s == nil || s.Gateway == nil {
		return "", errors.New("payment service not configured")
	}
	if strings.TrimSpace(tokenID) == "" {
		return "", common.NewValidation("TOKEN_REQUIRED", "token id is required", nil)
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.ChargeWithToken")
	defer span.End()
	result := "error"
	defer func() { recordFlow("token_charge", result) }()

	payload, err := s.cashierPayload(amount, tokenID)
	if err != nil {
		return "", err
	}
	tx, err := s.Gateway.CreateTransaction(ctx, payload)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	processed, err := s.Gateway.ProcessWithToken(ctx, tx.ID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(
		attribute.Int64("payment.transaction_id", tx.ID),
		attribute.String("payment.state", processed.State),
	)
	result = strings.ToLower(processed.State)
	return processed.State, nil
}

func (s *Service) cashierPayload(amount, tokenID string) (gateway.TransactionCreate, error) {
	items, err := BuildLineItems([]map[string]any{{
		"name":  cashierItemName,
		"price": amount,
	}}, ContextCashier)
	if err != nil {
		return gateway.TransactionCreate{}, err
	}
	return BuildTransaction(s.currency(""), items, PayloadOptions{Token: tokenID})
}

func (s *Service) currency(requested string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	if strings.TrimSpace(s.Currency) != "" {
		return s.Currency
	}
	return DefaultCurrency
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL > 0 {
		return s.LockTTL
	}
	return 150 * time.Second
}

func recordFlow(flow, result string) {
	if obs.GatewayFlowTotal != nil {
		obs.GatewayFlowTotal.WithLabelValues(flow, result).Inc()
	}
}
