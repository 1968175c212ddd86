package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/user/election-scraper/internal/delivery/http/response"
	"github.com/user/election-scraper/internal/entity"
	"github.com/user/election-scraper/internal/repository"
	"github.com/user/election-scraper/internal/usecase"
)

type fakeService struct {
	ds         *entity.Dataset
	err        error
	skipped    []entity.SkippedEntity
	skippedErr error
	run        *entity.RunReport
	runErr     error
	gotURL     string
}

func (s *fakeService) Scrape(_ context.Context, indexURL string) (*entity.Dataset, error) {
	s.gotURL = indexURL
	return s.ds, s.err
}

func (s *fakeService) GetSkipped(context.Context, string) ([]entity.SkippedEntity, error) {
	return s.skipped, s.skippedErr
}

func (s *fakeService) GetRun(context.Context, string) (*entity.RunReport, error) {
	return s.run, s.runErr
}

func testDataset() *entity.Dataset {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &entity.Dataset{
		Schema: []string{"Strana A", "Strana B"},
		Rows: []entity.OutputRow{{
			Code:    "529303",
			Name:    "Test Obec",
			Summary: entity.EntitySummary{Registered: 1000, Issued: 800, Valid: 750},
			Counts:  map[string]int{"Strana A": 500, "Strana B": 250},
		}},
		Report: entity.RunReport{
			RunID:      "run-1",
			Requested:  2,
			Emitted:    1,
			Skipped:    []entity.SkippedEntity{{Code: "529311", Name: "Druhá", Reason: "status 500"}},
			StartedAt:  start,
			FinishedAt: start.Add(3 * time.Second),
		},
	}
}

func postScrape(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleScrape(rec, req)
	return rec
}

func withRunID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandleScrapeCSV(t *testing.T) {
	svc := &fakeService{ds: testDataset()}
	rec := postScrape(NewHandler(svc, nil), `{"url":"https://www.volby.cz/pls/ps2017nss/ps32?xjazyk=CZ"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://www.volby.cz/pls/ps2017nss/ps32?xjazyk=CZ", svc.gotURL)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "run-1", rec.Header().Get("X-Run-ID"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "results-run-1.csv")
	assert.Equal(t,
		"\ufeffcode;name;registered;issued;valid;Strana A;Strana B\n529303;Test Obec;1000;800;750;500;250\n",
		rec.Body.String())
}

func TestHandleScrapeXLSX(t *testing.T) {
	rec := postScrape(NewHandler(&fakeService{ds: testDataset()}, nil), `{"url":"https://example.test/index","format":"XLSX"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestHandleScrapeJSON(t *testing.T) {
	rec := postScrape(NewHandler(&fakeService{ds: testDataset()}, nil), `{"url":"https://example.test/index","format":"json"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp response.ScrapeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, []string{"code", "name", "registered", "issued", "valid", "Strana A", "Strana B"}, resp.Header)
	assert.Equal(t, [][]string{{"529303", "Test Obec", "1000", "800", "750", "500", "250"}}, resp.Rows)
	assert.Equal(t, 2, resp.Requested)
	assert.Equal(t, 1, resp.Emitted)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, "529311", resp.Skipped[0].Code)
	assert.Equal(t, "3s", resp.Duration)
}

func TestHandleScrapeBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed body", body: `{`},
		{name: "missing url", body: `{}`},
		{name: "relative url", body: `{"url":"ps32?xjazyk=CZ"}`},
		{name: "unsupported scheme", body: `{"url":"ftp://example.test/index"}`},
		{name: "unsupported format", body: `{"url":"https://example.test/index","format":"pdf"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{ds: testDataset()}
			rec := postScrape(NewHandler(svc, nil), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.gotURL)
		})
	}
}

func TestHandleScrapeErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "no entities", err: &usecase.FatalSourceError{URL: "u", Reason: usecase.ErrNoEntities}, want: http.StatusUnprocessableEntity},
		{name: "unreachable", err: &usecase.FatalSourceError{URL: "u", Reason: usecase.ErrSourceUnreachable, Cause: repository.ErrFetchFailed}, want: http.StatusBadGateway},
		{name: "timeout", err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{name: "cancelled", err: context.Canceled, want: http.StatusServiceUnavailable},
		{name: "store failure", err: assert.AnError, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postScrape(NewHandler(&fakeService{err: tt.err}, nil), `{"url":"https://example.test/index"}`)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Empty(t, rec.Header().Get("X-Run-ID"))
		})
	}
}

func TestHandleGetSkipped(t *testing.T) {
	svc := &fakeService{skipped: []entity.SkippedEntity{{Code: "1", Name: "Jedna", Reason: "timeout"}}}
	req := withRunID(httptest.NewRequest(http.MethodGet, "/api/runs/run-1/skipped", nil), "run-1")
	rec := httptest.NewRecorder()

	NewHandler(svc, nil).HandleGetSkipped(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp response.SkippedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "run-1", resp.RunID)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, "timeout", resp.Skipped[0].Reason)
}

func TestHandleGetSkippedLedgerDisabled(t *testing.T) {
	req := withRunID(httptest.NewRequest(http.MethodGet, "/api/runs/run-1/skipped", nil), "run-1")
	rec := httptest.NewRecorder()

	NewHandler(&fakeService{skippedErr: usecase.ErrLedgerDisabled}, nil).HandleGetSkipped(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHandleGetRun(t *testing.T) {
	report := testDataset().Report
	tests := []struct {
		name string
		svc  *fakeService
		want int
	}{
		{name: "found", svc: &fakeService{run: &report}, want: http.StatusOK},
		{name: "not found", svc: &fakeService{runErr: repository.ErrRunNotFound}, want: http.StatusNotFound},
		{name: "no store", svc: &fakeService{runErr: usecase.ErrRunStoreDisabled}, want: http.StatusNotImplemented},
		{name: "failure", svc: &fakeService{runErr: assert.AnError}, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withRunID(httptest.NewRequest(http.MethodGet, "/api/runs/run-1", nil), "run-1")
			rec := httptest.NewRecorder()

			NewHandler(tt.svc, nil).HandleGetRun(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	req := withRunID(httptest.NewRequest(http.MethodGet, "/api/runs/run-1", nil), "run-1")
	rec := httptest.NewRecorder()
	NewHandler(&fakeService{run: &report}, nil).HandleGetRun(rec, req)

	var resp response.RunResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, 1, resp.Emitted)
}
