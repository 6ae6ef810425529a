// Package server exposes the decision engine over a small JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acrine/authstack"
)

type authorizeRequest struct {
	Domain     string         `json:"domain"`
	Layer      string         `json:"layer,omitempty"`
	Identity   string         `json:"identity,omitempty"`
	Roles      []string       `json:"roles,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type authorizeResponse struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason,omitempty"`
}

// A Handler serves authorization decisions. It shares one policy store and
// module registry across all domains and creates the per-domain
// [authstack.Context] lazily.
type Handler struct {
	log      *slog.Logger
	store    authstack.PolicyStore
	registry *authstack.Registry
	metrics  *authstack.Metrics

	mu       sync.Mutex
	contexts map[string]*authstack.Context
}

func NewHandler(log *slog.Logger, store authstack.PolicyStore, registry *authstack.Registry, metrics *authstack.Metrics) *Handler {
	return &Handler{
		log:      log,
		store:    store,
		registry: registry,
		metrics:  metrics,
		contexts: map[string]*authstack.Context{},
	}
}

// Router builds the HTTP routes. The prometheus registry may be nil, in
// which case no /metrics endpoint is mounted.
func (h *Handler) Router(promRegistry *prometheus.Registry) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/v1/authorize", h.authorize)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Domain == "" {
		http.Error(w, "domain is required", http.StatusBadRequest)
		return
	}

	resource := authstack.Resource{
		Layer:      authstack.Layer(req.Layer),
		Attributes: req.Attributes,
	}
	identity := authstack.Anonymous
	if req.Identity != "" {
		identity = authstack.Identity{Name: req.Identity}
	}
	roles := authstack.RoleGroup{Name: "caller", Roles: req.Roles}

	_, err := h.contextFor(req.Domain).AuthorizeAs(r.Context(), resource, identity, roles)
	if err != nil {
		var denied *authstack.AccessDeniedError
		if errors.As(err, &denied) {
			writeJSON(w, http.StatusForbidden, authorizeResponse{
				Verdict: authstack.Deny.String(),
				Reason:  denied.Error(),
			})
			return
		}
		h.log.Error("authorization failed",
			slog.String("domain", req.Domain), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, authorizeResponse{
			Verdict: authstack.Deny.String(),
			Reason:  "internal error",
		})
		return
	}

	writeJSON(w, http.StatusOK, authorizeResponse{Verdict: authstack.Permit.String()})
}

func (h *Handler) contextFor(domain string) *authstack.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ctx, ok := h.contexts[domain]; ok {
		return ctx
	}
	ctx := authstack.New(domain,
		authstack.WithPolicyStore(h.store),
		authstack.WithRegistry(h.registry),
		authstack.WithLogger(h.log.With(slog.String("domain", domain))),
		authstack.WithMetrics(h.metrics),
	)
	h.contexts[domain] = ctx
	return ctx
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
