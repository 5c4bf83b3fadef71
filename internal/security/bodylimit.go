package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"
)

// BodyLimit caps request payload size before a handler sees the body. The
// webhook inbox stores payloads verbatim, so without a cap an oversized
// delivery would flow straight into the transaction log.
//
// Acknowledge controls the over-limit response. API routes want 413 so the
// caller learns the payload was refused. The webhook route wants 200 with an
// empty body: a non-2xx makes the gateway redeliver a payload this service
// will never store.
type BodyLimit struct {
	Max         int64
	Acknowledge bool
}

// Middleware drops requests whose body exceeds Max. Bounded bodies are
// buffered and handed to the next handler intact.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > b.Max && r.ContentLength != -1 {
			b.refuse(w, http.StatusRequestEntityTooLarge, "request entity too large")
			return
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, b.Max+1))
		if err != nil && !errors.Is(err, io.EOF) {
			b.refuse(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if int64(len(buf)) > b.Max {
			b.refuse(w, http.StatusRequestEntityTooLarge, "request entity too large")
			return
		}

		_ = r.Body.Close()

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func (b BodyLimit) refuse(w http.ResponseWriter, status int, msg string) {
	if b.Acknowledge {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Error(w, msg, status)
}
