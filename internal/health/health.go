// Package health serves the liveness and readiness probes for the gridvoice
// server.
//
// /healthz answers 200 whenever the process can serve HTTP at all. /readyz
// additionally runs the registered probes — typically the snapshot store and
// the speech-to-text provider — and answers 503 with a per-probe breakdown
// until every one of them passes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout caps how long a single readiness probe may run.
const probeTimeout = 5 * time.Second

// Checker is one named readiness probe. Check returns nil when the
// dependency can serve traffic and an error describing the problem
// otherwise. It must respect context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// report is the body of every probe response.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers /healthz and /readyz. The probe set is fixed at
// construction; the handler itself is stateless and safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New builds a [Handler] over the given probes. /readyz runs them in the
// order given.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Healthz is the liveness probe. Reaching it at all is the signal, so it
// always answers 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ok"})
}

// Readyz runs every probe and answers 200 only when all pass. Each probe
// gets its own [probeTimeout] deadline derived from the request context, so
// one hung dependency cannot stall the endpoint indefinitely.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks, ready := h.run(r.Context())

	rep := report{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !ready {
		rep.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

// run evaluates all probes and reports the per-probe outcome plus overall
// readiness.
func (h *Handler) run(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string, len(h.checkers))
	ready := true
	for _, c := range h.checkers {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := c.Check(probeCtx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			ready = false
			continue
		}
		checks[c.Name] = "ok"
	}
	return checks, ready
}

// Register mounts both probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
