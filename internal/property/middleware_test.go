package property_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flexy-hms/payments-api/internal/property"
)

func resolveThrough(t *testing.T, resolver *property.Resolver, header map[string]string) (string, bool) {
	t.Helper()
	var scope string
	var ok bool
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, ok = property.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tokens", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return scope, ok
}

func TestResolverReadsHeader(t *testing.T) {
	resolver := property.NewResolver("X-Property-ID", "")
	scope, ok := resolveThrough(t, resolver, map[string]string{"X-Property-ID": "prop-7"})
	require.True(t, ok)
	require.Equal(t, "prop-7", scope)
}

func TestResolverFallsBackToDefault(t *testing.T) {
	resolver := property.NewResolver("X-Property-ID", "main-site")
	scope, ok := resolveThrough(t, resolver, nil)
	require.True(t, ok)
	require.Equal(t, "main-site", scope)
}

func TestResolverNoScopeLeavesContextEmpty(t *testing.T) {
	resolver := property.NewResolver("X-Property-ID", "")
	_, ok := resolveThrough(t, resolver, nil)
	require.False(t, ok)

	_, ok = property.FromContext(context.Background())
	require.False(t, ok)
}

func TestResolverDefaultsHeaderName(t *testing.T) {
	resolver := property.NewResolver("  ", "")
	require.Equal(t, "X-Property-ID", resolver.HeaderName)
}
