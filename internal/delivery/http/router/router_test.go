package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/election-scraper/internal/delivery/http/handler"
	"github.com/user/election-scraper/internal/entity"
	"github.com/user/election-scraper/internal/usecase"
	"github.com/user/election-scraper/pkg/metrics"
)

type noopService struct{}

func (noopService) Scrape(context.Context, string) (*entity.Dataset, error) {
	return nil, &usecase.FatalSourceError{URL: "u", Reason: usecase.ErrNoEntities}
}

func (noopService) GetSkipped(context.Context, string) ([]entity.SkippedEntity, error) {
	return nil, usecase.ErrLedgerDisabled
}

func (noopService) GetRun(context.Context, string) (*entity.RunReport, error) {
	return nil, usecase.ErrRunStoreDisabled
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(New(handler.NewHandler(noopService{}, nil), metrics.New(reg), reg, nil))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	resp, _ = get(t, srv.URL+"/api/runs/abc/skipped")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/api/runs/abc")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/api/scrape")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsUseRoutePattern(t *testing.T) {
	srv := newTestServer(t)

	get(t, srv.URL+"/api/runs/first/skipped")
	get(t, srv.URL+"/api/runs/second/skipped")

	resp, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/runs/{id}/skipped",status="501"} 2`)
	assert.NotContains(t, body, "/api/runs/first")
}
