package property

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const propertyContextKey contextKey = "property.id"

// Resolver extracts the opaque property scope identifier from inbound
// requests. The identifier is passed through to token listing and deletion; it
// is never interpreted by this service.
type Resolver struct {
	HeaderName string
	Default    string
}

// NewResolver returns a resolver for the given header name. If headerName is
// empty, "X-Property-ID" is used.
func NewResolver(headerName, defaultScope string) *Resolver {
	if strings.TrimSpace(headerName) == "" {
		headerName = "X-Property-ID"
	}
	return &Resolver{HeaderName: headerName, Default: strings.TrimSpace(defaultScope)}
}

// Middleware resolves the property scope and injects it into the request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		scope := strings.TrimSpace(req.Header.Get(r.HeaderName))
		if scope == "" {
			scope = r.Default
		}
		if scope != "" {
			req = req.WithContext(WithScope(req.Context(), scope))
		}
		next.ServeHTTP(w, req)
	})
}

// WithScope stores the property scope identifier inside the context.
func WithScope(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, propertyContextKey, id)
}

// FromContext extracts the property scope from the context if available.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(propertyContextKey).(string)
	if !ok {
		return "", false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	return id, true
}
