package payment_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/flexy-hms/payments-api/internal/common"
	"github.com/flexy-hms/payments-api/internal/gateway"
	"github.com/flexy-hms/payments-api/internal/payment"
)

type fakeGateway struct {
	created        []gateway.TransactionCreate
	nextID         int64
	triggerState   string
	triggerErr     error
	processState   string
	processErr     error
	pageURL        string
	pageErr        error
	triggeredOn    []string
	processedTxIDs []int64
}

func (f *fakeGateway) CreateTransaction(ctx context.Context, req gateway.TransactionCreate) (gateway.Transaction, error) {
	f.created = append(f.created, req)
	f.nextID++
	return gateway.Transaction{ID: f.nextID, State: gateway.StatePending}, nil
}

func (f *fakeGateway) PaymentPageURL(ctx context.Context, transactionID int64) (string, error) {
	if f.pageErr != nil {
		return "", f.pageErr
	}
	return f.pageURL, nil
}

func (f *fakeGateway) TriggerOnTerminal(ctx context.Context, transactionID int64, terminalID string) (gateway.Transaction, error) {
	f.triggeredOn = append(f.triggeredOn, terminalID)
	if f.triggerErr != nil {
		return gateway.Transaction{}, f.triggerErr
	}
	return gateway.Transaction{ID: transactionID, State: f.triggerState}, nil
}

func (f *fakeGateway) CreateToken(ctx context.Context, transactionID int64) (string, error) {
	return "tok-1", nil
}

func (f *fakeGateway) ActiveTokenVersion(ctx context.Context, tokenID string) (gateway.TokenVersion, error) {
	return gateway.TokenVersion{}, nil
}

func (f *fakeGateway) ProcessWithToken(ctx context.Context, transactionID int64) (gateway.Transaction, error) {
	f.processedTxIDs = append(f.processedTxIDs, transactionID)
	if f.processErr != nil {
		return gateway.Transaction{}, f.processErr
	}
	return gateway.Transaction{ID: transactionID, State: f.processState}, nil
}

func (f *fakeGateway) DeleteToken(ctx context.Context, tokenID string) error { return nil }

type fakeCapturer struct {
	calls  int
	lastTx int64
	err    error
}

func (c *fakeCapturer) CaptureAndStore(ctx context.Context, transactionID, customerID int64) error {
	c.calls++
	c.lastTx = transactionID
	return c.err
}

func newService(gw *fakeGateway, capt *fakeCapturer) *payment.Service {
	return &payment.Service{
		Gateway:    gw,
		Tokens:     capt,
		TerminalID: "till-9",
		Currency:   "CHF",
		Logger:     zerolog.Nop(),
	}
}

func TestPaymentLinkReturnsPageURL(t *testing.T) {
	gw := &fakeGateway{pageURL: "https://pay.example/page/1"}
	svc := newService(gw, nil)

	url, err := svc.PaymentLink(context.Background(), payment.PaymentLinkRequest{
		OrderID:     "o-7",
		Context:     payment.ContextWebshop,
		Records:     []map[string]any{{"treatment": "Facial", "price": "55"}},
		RedirectURL: "https://shop.example/return",
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/page/1", url)

	require.Len(t, gw.created, 1)
	req := gw.created[0]
	require.Equal(t, "CHF", req.Currency)
	require.True(t, req.AutoConfirmationEnabled)
	require.Len(t, req.LineItems, 1)
	require.Equal(t, "Facial", req.LineItems[0].Name)
	require.Equal(t, "55.00", req.LineItems[0].AmountIncludingTax)
	require.Equal(t, payment.SuccessCallbackURL("https://shop.example/return", "o-7"), req.SuccessURL)
	require.Equal(t, payment.FailedCallbackURL("https://shop.example/return", "o-7"), req.FailedURL)
}

func TestPaymentLinkPrefersExplicitURLs(t *testing.T) {
	gw := &fakeGateway{pageURL: "https://pay.example/page/1"}
	svc := newService(gw, nil)

	_, err := svc.PaymentLink(context.Background(), payment.PaymentLinkRequest{
		OrderID:    "o-7",
		Context:    payment.ContextGuestApp,
		Records:    []map[string]any{{"name": "Spa", "price": 30}},
		SuccessURL: "https://app.example/done",
		CancelURL:  "https://app.example/fail",
	})
	require.NoError(t, err)
	require.Equal(t, "https://app.example/done", gw.created[0].SuccessURL)
	require.Equal(t, "https://app.example/fail", gw.created[0].FailedURL)
}

func TestPaymentLinkRejectsBadRecords(t *testing.T) {
	gw := &fakeGateway{}
	svc := newService(gw, nil)

	_, err := svc.PaymentLink(context.Background(), payment.PaymentLinkRequest{
		OrderID: "o-1",
		Context: payment.ContextBilling,
		Records: []map[string]any{{"productName": "Room"}},
	})
	require.True(t, common.IsKind(err, common.KindValidation))
	require.Empty(t, gw.created, "no gateway call for an invalid batch")
}

func TestPaymentLinkRequiresRedirectBase(t *testing.T) {
	gw := &fakeGateway{}
	svc := newService(gw, nil)

	_, err := svc.PaymentLink(context.Background(), payment.PaymentLinkRequest{
		OrderID: "o-9",
		Context: payment.ContextWebshop,
		Records: []map[string]any{{"treatment": "Massage", "price": 80}},
	})
	require.True(t, common.IsKind(err, common.KindValidation))
	require.Contains(t, err.Error(), "redirectUrl")
	require.Empty(t, gw.created, "no transaction without a usable callback URL")
}

func TestTerminalChargeTokenizesOnSuccessStates(t *testing.T) {
	for _, state := range []string{gateway.StateCompleted, gateway.StateFulfill, gateway.StateAuthorized} {
		t.Run(state, func(t *testing.T) {
			gw := &fakeGateway{triggerState: state}
			capt := &fakeCapturer{}
			svc := newService(gw, capt)

			got, err := svc.TerminalCharge(context.Background(), "19.90", 77)
			require.NoError(t, err)
			require.Equal(t, state, got)
			require.Equal(t, 1, capt.calls)
			require.Equal(t, gw.nextID, capt.lastTx)
			require.Equal(t, []string{"till-9"}, gw.triggeredOn)

			req := gw.created[0]
			require.Len(t, req.LineItems, 1)
			require.Equal(t, "Reservation Billing Transaction", req.LineItems[0].Name)
			require.Equal(t, "19.90", req.LineItems[0].AmountIncludingTax)
		})
	}
}

func TestTerminalChargeSkipsTokenizationOnFailureStates(t *testing.T) {
	for _, state := range []string{gateway.StateFailed, gateway.StateDeclined, gateway.StatePending} {
		gw := &fakeGateway{triggerState: state}
		capt := &fakeCapturer{}
		svc := newService(gw, capt)

		got, err := svc.TerminalCharge(context.Background(), "10", 1)
		require.NoError(t, err)
		require.Equal(t, state, got)
		require.Zero(t, capt.calls, state)
	}
}

func TestTerminalChargeSurvivesCaptureFailure(t *testing.T) {
	gw := &fakeGateway{triggerState: gateway.StateCompleted}
	capt := &fakeCapturer{err: common.NewGateway("TOKEN_EMPTY", "boom", nil)}
	svc := newService(gw, capt)

	got, err := svc.TerminalCharge(context.Background(), "10", 1)
	require.NoError(t, err, "charge already happened, tokenization must not fail it")
	require.Equal(t, gateway.StateCompleted, got)
	require.Equal(t, 1, capt.calls)
}

func TestTerminalChargeRequiresTerminal(t *testing.T) {
	svc := newService(&fakeGateway{}, nil)
	svc.TerminalID = ""
	_, err := svc.TerminalCharge(context.Background(), "10", 1)
	require.True(t, common.IsKind(err, common.KindValidation))
	require.Equal(t, "TERMINAL_NOT_CONFIGURED", common.CodeOf(err))
}

func TestChargeWithToken(t *testing.T) {
	gw := &fakeGateway{processState: gateway.StateAuthorized}
	capt := &fakeCapturer{}
	svc := newService(gw, capt)

	got, err := svc.ChargeWithToken(context.Background(), "42.00", "tok-55")
	require.NoError(t, err)
	require.Equal(t, gateway.StateAuthorized, got)
	require.Equal(t, []int64{1}, gw.processedTxIDs)
	require.Equal(t, "tok-55", gw.created[0].Token)
	require.Zero(t, capt.calls, "token charges never mint new tokens")
}

func TestChargeWithTokenRequiresToken(t *testing.T) {
	svc := newService(&fakeGateway{}, nil)
	_, err := svc.ChargeWithToken(context.Background(), "10", "  ")
	require.True(t, common.IsKind(err, common.KindValidation))
}
