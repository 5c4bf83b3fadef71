package payment

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/flexy-hms/payments-api/internal/obs"
)

// MerchantType tags every recorded notification with its originating gateway.
const MerchantType = "wallee"

// EventAppender records one raw notification delivery.
type EventAppender interface {
	AppendWebhookEvent(ctx context.Context, merchantType string, payload []byte) error
}

// Reconciler ingests gateway notifications. Ingestion never fails the
// delivery: the gateway retries on non-2xx responses and a storage hiccup
// must not amplify into a retry storm, so errors are logged and swallowed.
type Reconciler struct {
	Store  EventAppender
	Logger zerolog.Logger
}

// Ingest appends the raw payload and reports whether it was stored.
func (r *Reconciler) Ingest(ctx context.Context, payload []byte) bool {
	if r == nil || r.Store == nil {
		return false
	}
	if err := r.Store.AppendWebhookEvent(ctx, MerchantType, payload); err != nil {
		r.Logger.Error().Err(err).Int("payload_bytes", len(payload)).Msg("webhook ingest failed")
		if obs.WebhookIngestTotal != nil {
			obs.WebhookIngestTotal.WithLabelValues("error").Inc()
		}
		return false
	}
	if obs.WebhookIngestTotal != nil {
		obs.WebhookIngestTotal.WithLabelValues("stored").Inc()
	}
	return true
}

// Webhook is the HTTP entry point for gateway notifications. It always
// answers 200 with an empty body regardless of outcome.
type Webhook struct {
	Reconciler *Reconciler
}

func (h *Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.Reconciler.Logger.Warn().Err(err).Msg("webhook body read failed")
		w.WriteHeader(http.StatusOK)
		return
	}
	h.Reconciler.Ingest(r.Context(), payload)
	w.WriteHeader(http.StatusOK)
}
