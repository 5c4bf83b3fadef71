package common_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flexy-hms/payments-api/internal/common"
)

func TestErrorKindsCarryStatusAndCode(t *testing.T) {
	cases := []struct {
		err        error
		kind       common.Kind
		wantStatus int
	}{
		{common.NewValidation("AMOUNT_MISSING", "no amount", nil), common.KindValidation, http.StatusBadRequest},
		{common.NewGateway("GATEWAY_REJECTED", "442", nil), common.KindGateway, http.StatusBadGateway},
		{common.NewPersistence("TOKEN_SAVE_FAILED", "insert failed", nil), common.KindPersistence, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.True(t, common.IsKind(tc.err, tc.kind))
		require.Equal(t, tc.wantStatus, common.HTTPStatusOf(tc.err))
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := common.NewGateway("GATEWAY_UNREACHABLE", "dial refused", nil)
	wrapped := fmt.Errorf("terminal charge: %w", inner)

	require.True(t, common.IsKind(wrapped, common.KindGateway))
	require.Equal(t, "GATEWAY_UNREACHABLE", common.CodeOf(wrapped))
	require.Equal(t, http.StatusBadGateway, common.HTTPStatusOf(wrapped))
}

func TestPlainErrorsDefaultToInternal(t *testing.T) {
	err := errors.New("boom")
	require.Equal(t, http.StatusInternalServerError, common.HTTPStatusOf(err))
	require.Equal(t, "INTERNAL", common.CodeOf(err))
	_, ok := common.KindOf(err)
	require.False(t, ok)
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := common.NewPersistence("WEBHOOK_APPEND_FAILED", "insert failed", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "connection reset", err.Error())
}
