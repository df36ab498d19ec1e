package http

import (
	"context"
	stdhttp "net/http"
	"time"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency that must answer before the service takes traffic.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports basic liveness for the service.
func HealthHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(stdhttp.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler answers 503 while any dependency fails its ping.
func ReadinessHandler(deps ...Pinger) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		for _, d := range deps {
			if err := d.Ping(ctx); err != nil {
				loggerFrom(r.Context()).WithError(err).Warn("readiness check failed")
				writeError(w, stdhttp.StatusServiceUnavailable, codeUnavailable, "not ready")
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
}
