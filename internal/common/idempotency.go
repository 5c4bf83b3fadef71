package common

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem guards the charge endpoints against duplicate submissions. A retried
// terminal or token charge would bill the card twice, so requests carrying an
// already-seen Idempotency-Key are answered with 409 instead of re-executed.
// Requests without a key pass through unguarded.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

// chargeKey derives the Redis reservation key. Hashing keeps caller-chosen
// key material out of the keyspace.
func chargeKey(header string) string {
	sum := sha256.Sum256([]byte(header))
	return "payments:idem:" + hex.EncodeToString(sum[:])
}

// Middleware reserves the request's Idempotency-Key before the handler runs.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}

		fresh, err := i.R.SetNX(r.Context(), chargeKey(header), "1", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !fresh {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
