// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/streamrx/internal/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

const statusTimeout = 2 * time.Second

// NewRouter builds the diagnostics handler: metrics, health, readiness, the
// session status and, with the simulator, a few debug actions.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(tagRequestID)
	r.Use(middleware.Recoverer)
	if limit := deps.Config.Diagnostics.RateLimit; limit > 0 {
		r.Use(rateLimit(limit, time.Minute))
	}

	r.Handle("/metrics", promhttp.Handler())
	if deps.Health != nil {
		r.Get("/healthz", deps.Health.ServeHealth)
		r.Get("/readyz", deps.Health.ServeReady)
	}
	r.Get("/status", handleStatus(deps))

	if deps.Sim != nil {
		r.Route("/debug/sim", func(r chi.Router) {
			r.Get("/display", handleSimDisplay(deps))
			r.Post("/shutdown", handleSimShutdown(deps))
			r.Post("/error", handleSimError(deps))
			r.Post("/confirm", handleSimConfirm(deps))
		})
	}

	return otelhttp.NewHandler(r, "diagnostics",
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		otelhttp.WithFilter(func(req *http.Request) bool { return req.URL.Path != "/metrics" }),
	)
}

// tagRequestID copies chi's request ID into the log context so handler logs
// can be matched to the access log.
func tagRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(log.ContextWith(r.Context(), log.FieldRequestID, id))
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit answers 429 with a JSON body once a client exceeds limit per window.
func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":  "rate_limit_exceeded",
				"detail": "Too many requests. Please try again later.",
			})
		}),
	)
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), statusTimeout)
		defer cancel()

		st, err := deps.Orchestrator.Snapshot(ctx)
		if err != nil {
			logger := log.WithComponentFromContext(r.Context(), "diagnostics")
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "status.snapshot_failed").
				Msg("status snapshot failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handleSimDisplay(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"display":        deps.Sim.Display.Stats(),
			"dropped_frames": deps.Sim.DroppedFrames(),
		})
	}
}

func handleSimShutdown(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		rc := deps.Sim.Receiver()
		if rc == nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no session"})
			return
		}
		if err := rc.ServerShutdown(); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

type simErrorRequest struct {
	Message string `json:"message"`
}

func handleSimError(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req simErrorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		rc := deps.Sim.Receiver()
		if rc == nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no session"})
			return
		}
		rc.InjectError(req.Message)
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleSimConfirm(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		deps.Sim.Display.PressConfirm()
		w.WriteHeader(http.StatusAccepted)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
