package payment_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/flexy-hms/payments-api/internal/payment"
	"github.com/flexy-hms/payments-api/internal/security"
)

type fakeAppender struct {
	events [][]byte
	types  []string
	err    error
}

func (a *fakeAppender) AppendWebhookEvent(ctx context.Context, merchantType string, payload []byte) error {
	if a.err != nil {
		return a.err
	}
	a.types = append(a.types, merchantType)
	a.events = append(a.events, payload)
	return nil
}

func TestIngestAppendsEveryDelivery(t *testing.T) {
	store := &fakeAppender{}
	rec := &payment.Reconciler{Store: store, Logger: zerolog.Nop()}

	payload := []byte(`{"entityId":991,"state":"COMPLETED"}`)
	require.True(t, rec.Ingest(context.Background(), payload))
	require.True(t, rec.Ingest(context.Background(), payload))

	// duplicate deliveries are both kept, reconciliation dedupes later
	require.Len(t, store.events, 2)
	require.Equal(t, []string{"wallee", "wallee"}, store.types)
	require.Equal(t, payload, store.events[0])
	require.Equal(t, payload, store.events[1])
}

func TestIngestSwallowsStoreFailure(t *testing.T) {
	store := &fakeAppender{err: errors.New("db down")}
	rec := &payment.Reconciler{Store: store, Logger: zerolog.Nop()}
	require.False(t, rec.Ingest(context.Background(), []byte(`{}`)))
}

func TestWebhookAcknowledgesOversizedDelivery(t *testing.T) {
	store := &fakeAppender{}
	h := &payment.Webhook{Reconciler: &payment.Reconciler{Store: store, Logger: zerolog.Nop()}}
	handler := security.BodyLimit{Max: 16, Acknowledge: true}.Middleware(http.HandlerFunc(h.Handle))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/wallee", strings.NewReader(strings.Repeat("x", 64)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// a non-2xx would make the gateway redeliver forever, so the oversized
	// body is dropped but still acknowledged
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Body.String())
	require.Empty(t, store.events)
}

func TestWebhookAlwaysRespondsOK(t *testing.T) {
	cases := []struct {
		name  string
		store *fakeAppender
	}{
		{"stored", &fakeAppender{}},
		{"store failing", &fakeAppender{err: errors.New("db down")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &payment.Webhook{Reconciler: &payment.Reconciler{Store: tc.store, Logger: zerolog.Nop()}}

			req := httptest.NewRequest(http.MethodPost, "/webhooks/wallee", strings.NewReader(`{"entityId":1}`))
			w := httptest.NewRecorder()
			h.Handle(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			require.Empty(t, w.Body.String())
		})
	}
}
