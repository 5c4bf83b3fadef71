package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker probes the two stores a charge depends on. Postgres holds the
// token and webhook records, Redis backs the terminal lock and idempotency
// keys. Readiness fails when either is unreachable so the balancer stops
// routing charges that would die halfway through.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler serves the liveness and readiness probes.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Live answers as long as the process can serve HTTP. No dependency probes.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes Postgres and Redis and reports per-dependency status.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()

	report := readiness{Status: "ready", Checks: map[string]string{}}
	probes := []struct {
		name string
		ping func() error
	}{
		{"postgres", func() error { return h.Checker.PingDB(ctx, h.dbTimeout()) }},
		{"redis", func() error { return h.Checker.PingRedis(ctx, h.redisTimeout()) }},
	}
	for _, p := range probes {
		if err := p.ping(); err != nil {
			report.Status = "degraded"
			report.Checks[p.name] = err.Error()
			continue
		}
		report.Checks[p.name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if report.Status != "ready" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(report)
}

func (h Handler) dbTimeout() time.Duration {
	if h.DBTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.DBTimeout
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
