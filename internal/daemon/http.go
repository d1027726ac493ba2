package daemon

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/datainit/internal/bootstrap"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
	"git.home.luguber.info/inful/datainit/internal/metrics"
	"git.home.luguber.info/inful/datainit/internal/state"
)

// HealthStatus represents the overall health of the daemon.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status    HealthStatus      `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Storage   state.StoreHealth `json:"storage"`
}

// ReadyResponse is the /readyz payload.
type ReadyResponse struct {
	State bootstrap.State `json:"state"`
}

// Handler returns the daemon's HTTP routes.
func (d *Daemon) Handler() http.Handler {
	adapter := errors.NewHTTPErrorAdapter(nil)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		h := d.opts.Store.Health(r.Context())
		resp := HealthResponse{
			Status:    HealthStatusHealthy,
			Timestamp: d.opts.Clock.Now(),
			Uptime:    d.opts.Clock.Since(d.startedAt).Round(time.Second).String(),
			Storage:   h,
		}
		status := http.StatusOK
		if h.Status != state.HealthStatusHealthy {
			resp.Status = HealthStatusUnhealthy
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		rd := d.opts.Orchestrator.Readiness()
		st := rd.State()
		switch st {
		case bootstrap.StateReady:
			writeJSON(w, http.StatusOK, ReadyResponse{State: st})
		case bootstrap.StateFailed:
			_, _, err := rd.Result()
			adapter.WriteErrorResponse(w, r, err)
		default:
			writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{State: st})
		}
	})

	mux.HandleFunc("POST /reinitialize", func(w http.ResponseWriter, r *http.Request) {
		omit := true
		if raw := r.URL.Query().Get("omit_tokens"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				adapter.WriteErrorResponse(w, r, errors.ValidationError("omit_tokens must be a boolean").
					WithContext("value", raw).Build())
				return
			}
			omit = v
		}
		res, err := d.opts.Orchestrator.Reinitialize(r.Context(), bootstrap.ReinitOptions{OmitTokens: omit, Reason: ReasonHTTP})
		if err != nil {
			adapter.WriteErrorResponse(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	if d.opts.History != nil {
		mux.HandleFunc("GET /journal", func(w http.ResponseWriter, r *http.Request) {
			if err := d.opts.History.Rebuild(r.Context()); err != nil {
				adapter.WriteErrorResponse(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, d.opts.History.History())
		})
	}
	if d.opts.AppStore != nil {
		mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, d.opts.AppStore.Stats())
		})
	}
	if d.opts.Registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(d.opts.Registry))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
