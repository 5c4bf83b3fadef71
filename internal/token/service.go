package token

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/flexy-hms/payments-api/internal/common"
	"github.com/flexy-hms/payments-api/internal/gateway"
	"github.com/flexy-hms/payments-api/internal/obs"
	"github.com/flexy-hms/payments-api/internal/property"
)

// Storage is the persistence surface the service needs.
type Storage interface {
	Save(ctx context.Context, rec Record) error
	ListByCustomer(ctx context.Context, customerID int64, propertyID string) ([]Record, error)
	Delete(ctx context.Context, tokenID, propertyID string) (bool, error)
}

// Service manages the token lifecycle: minting a reusable token from a
// completed transaction, listing a customer's instruments and removing them.
type Service struct {
	Gateway gateway.Client
	Store   Storage
	Logger  zerolog.Logger
}

// CaptureAndStore mints a token for the given transaction, resolves its
// active version for display details and stores the record under the current
// property scope. A token whose version lookup fails is still stored, just
// without display details.
func (s *Service) CaptureAndStore(ctx context.Context, transactionID int64, customerID int64) error {
	ctx, span := otel.Tracer("token.Service").Start(ctx, "TokenService.CaptureAndStore")
	defer span.End()
	span.SetAttributes(attribute.Int64("payment.transaction_id", transactionID))

	tokenID, err := s.Gateway.CreateToken(ctx, transactionID)
	if err != nil {
		recordLifecycle("capture", "error")
		return err
	}
	if strings.TrimSpace(tokenID) == "" {
		recordLifecycle("capture", "error")
		return common.NewGateway("TOKEN_EMPTY", "gateway returned an empty token id", nil)
	}

	rec := Record{CustomerID: customerID, TokenID: tokenID}
	if version, err := s.Gateway.ActiveTokenVersion(ctx, tokenID); err != nil {
		s.Logger.Warn().Err(err).Str("token_id", tokenID).Msg("token version lookup failed")
	} else {
		rec.Name = version.Name
		rec.ImagePath = version.ImagePath
	}
	if scope, ok := property.FromContext(ctx); ok {
		rec.PropertyID = scope
	}

	if err := s.Store.Save(ctx, rec); err != nil {
		recordLifecycle("capture", "error")
		return err
	}
	recordLifecycle("capture", "success")
	return nil
}

// ListForCustomer returns the stored tokens for a customer in the current
// property scope.
func (s *Service) ListForCustomer(ctx context.Context, customerID int64) ([]Record, error) {
	scope, _ := property.FromContext(ctx)
	return s.Store.ListByCustomer(ctx, customerID, scope)
}

// ErrTokenNotFound reports a delete for a token the property scope does not
// hold.
var ErrTokenNotFound = errors.New("token not found")

// Delete removes the token at the gateway first and locally second. When the
// gateway refuses, the local record is kept so the instrument stays visible
// and the delete can be retried.
func (s *Service) Delete(ctx context.Context, tokenID string) error {
	ctx, span := otel.Tracer("token.Service").Start(ctx, "TokenService.Delete")
	defer span.End()

	if strings.TrimSpace(tokenID) == "" {
		return common.NewValidation("TOKEN_REQUIRED", "token id is required", nil)
	}
	if err := s.Gateway.DeleteToken(ctx, tokenID); err != nil {
		recordLifecycle("delete", "error")
		return err
	}

	scope, _ := property.FromContext(ctx)
	removed, err := s.Store.Delete(ctx, tokenID, scope)
	if err != nil {
		recordLifecycle("delete", "error")
		return err
	}
	if !removed {
		recordLifecycle("delete", "missing")
		return common.NewValidation("TOKEN_NOT_FOUND", ErrTokenNotFound.Error(), ErrTokenNotFound)
	}
	recordLifecycle("delete", "success")
	return nil
}

func recordLifecycle(operation, result string) {
	if obs.TokenLifecycleTotal != nil {
		obs.TokenLifecycleTotal.WithLabelValues(operation, result).Inc()
	}
}
