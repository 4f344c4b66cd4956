package controllers

import (
	"context"
	"net/http"

	"github.com/mercatohq/stockroom-backend/api/responses"
	"github.com/mercatohq/stockroom-backend/pkg/config"
	"github.com/mercatohq/stockroom-backend/pkg/logger"
)

const envHeader = "X-Stockroom-Env"

// Pinger is the connectivity check each backing service exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks every wired dependency and reports per-check status.
// Any failed check turns the response into a 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		results := map[string]string{}
		healthy := true
		for name, pinger := range checks {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(r.Context()); err != nil {
				healthy = false
				results[name] = "down"
				if logg != nil {
					ctx := logg.WithField(r.Context(), "check", name)
					logg.Warn(ctx, "readiness check failed: "+err.Error())
				}
				continue
			}
			results[name] = "up"
		}

		status := http.StatusOK
		overall := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": overall,
			"checks": results,
		})
	}
}
