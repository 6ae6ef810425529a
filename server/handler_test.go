package server_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/acrine/authstack"
	_ "github.com/acrine/authstack/modules"
	"github.com/acrine/authstack/server"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	policies := authstack.NewPolicyRegistry()
	policies.Set(&authstack.Policy{
		Name: "payments",
		Authorization: &authstack.Authorization{
			Name: "payments",
			Entries: []authstack.ModuleEntry{
				{Type: "rolecheck", Flag: authstack.Required, Options: map[string]any{
					"roles": []any{"operator"},
				}},
			},
		},
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	promRegistry := prometheus.NewRegistry()
	metrics := authstack.NewMetrics(promRegistry)

	handler := server.NewHandler(log, policies, authstack.NewRegistry(), metrics)
	return handler.Router(promRegistry)
}

func postAuthorize(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/authorize", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthorizePermit(t *testing.T) {
	router := newTestRouter(t)

	rec := postAuthorize(t, router, `{
		"domain": "payments",
		"layer": "component",
		"identity": "alice",
		"roles": ["operator"]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeResponse(t, rec)
	require.Equal(t, "PERMIT", body["verdict"])
}

func TestAuthorizeDeny(t *testing.T) {
	router := newTestRouter(t)

	rec := postAuthorize(t, router, `{
		"domain": "payments",
		"identity": "bob",
		"roles": ["viewer"]
	}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeResponse(t, rec)
	require.Equal(t, "DENY", body["verdict"])
	require.NotEmpty(t, body["reason"])
}

func TestAuthorizeUnconfiguredDomainFallsBackOpen(t *testing.T) {
	router := newTestRouter(t)

	// No policy and no layer default: the delegating fallback permits.
	rec := postAuthorize(t, router, `{"domain": "unconfigured", "identity": "alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthorizeBadRequests(t *testing.T) {
	router := newTestRouter(t)

	rec := postAuthorize(t, router, `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postAuthorize(t, router, `{"identity": "alice"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointCountsDecisions(t *testing.T) {
	router := newTestRouter(t)

	postAuthorize(t, router, `{"domain": "payments", "identity": "alice", "roles": ["operator"]}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `authstack_decisions_total{domain="payments",verdict="PERMIT"} 1`)
}
