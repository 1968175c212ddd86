package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/election-scraper/internal/adapter/export"
	"github.com/user/election-scraper/internal/delivery/http/request"
	"github.com/user/election-scraper/internal/delivery/http/response"
	"github.com/user/election-scraper/internal/entity"
	"github.com/user/election-scraper/internal/repository"
	"github.com/user/election-scraper/internal/usecase"
)

const formatJSON = "json"

var contentTypes = map[string]string{
	export.FormatCSV:  "text/csv; charset=utf-8",
	export.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type Handler struct {
	service usecase.ScrapeService
	logger  *zap.Logger
}

func NewHandler(service usecase.ScrapeService, l *zap.Logger) *Handler {
	if l == nil {
		l = zap.NewNop()
	}
	return &Handler{
		service: service,
		logger:  l,
	}
}

// HandleScrape runs a scrape synchronously and returns the dataset in the
// requested format.
func (h *Handler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	var req request.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !validURL(req.URL) {
		h.writeJSONError(w, "Invalid URL format", http.StatusBadRequest)
		return
	}

	format := strings.ToLower(req.Format)
	if format == "" {
		format = export.FormatCSV
	}
	if _, ok := contentTypes[format]; !ok && format != formatJSON {
		h.writeJSONError(w, fmt.Sprintf("Unsupported format %q", req.Format), http.StatusBadRequest)
		return
	}

	ds, err := h.service.Scrape(r.Context(), req.URL)
	if err != nil {
		status, message := scrapeErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Scrape failed", zap.String("url", req.URL), zap.Error(err))
		}
		h.writeJSONError(w, message, status)
		return
	}

	w.Header().Set("X-Run-ID", ds.Report.RunID)
	if format == formatJSON {
		h.writeJSON(w, http.StatusOK, toScrapeResponse(ds))
		return
	}

	var buf bytes.Buffer
	writer, _ := export.NewWriter(format, &buf)
	if err := writer.Write(r.Context(), ds); err != nil {
		h.logger.Error("Failed to render dataset", zap.String("run_id", ds.Report.RunID), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="results-%s.%s"`, ds.Report.RunID, format))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Failed to write dataset", zap.String("run_id", ds.Report.RunID), zap.Error(err))
	}
}

// HandleGetSkipped lists the entities a run had to leave out.
func (h *Handler) HandleGetSkipped(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	skipped, err := h.service.GetSkipped(r.Context(), runID)
	if err != nil {
		if errors.Is(err, usecase.ErrLedgerDisabled) {
			h.writeJSONError(w, err.Error(), http.StatusNotImplemented)
			return
		}
		h.logger.Error("Failed to read skip ledger", zap.String("run_id", runID), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, response.SkippedResponse{
		RunID:   runID,
		Skipped: toSkippedDTOs(skipped),
	})
}

// HandleGetRun returns the stored report of a run.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	report, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrRunStoreDisabled):
			h.writeJSONError(w, err.Error(), http.StatusNotImplemented)
		case errors.Is(err, repository.ErrRunNotFound):
			h.writeJSONError(w, "Run not found", http.StatusNotFound)
		default:
			h.logger.Error("Failed to read run", zap.String("run_id", runID), zap.Error(err))
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, response.RunResponse{
		RunID:      report.RunID,
		IndexURL:   report.IndexURL,
		Requested:  report.Requested,
		Emitted:    report.Emitted,
		Skipped:    len(report.Skipped),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func scrapeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrNoEntities):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, usecase.ErrSourceUnreachable):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Scrape timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "Scrape cancelled"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func toScrapeResponse(ds *entity.Dataset) response.ScrapeResponse {
	rows := ds.Records()
	if rows == nil {
		rows = [][]string{}
	}
	return response.ScrapeResponse{
		RunID:     ds.Report.RunID,
		Header:    ds.Header(),
		Rows:      rows,
		Requested: ds.Report.Requested,
		Emitted:   ds.Report.Emitted,
		Skipped:   toSkippedDTOs(ds.Report.Skipped),
		Duration:  ds.Report.Duration().String(),
	}
}

func toSkippedDTOs(skipped []entity.SkippedEntity) []response.SkippedEntity {
	out := make([]response.SkippedEntity, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, response.SkippedEntity{
			Code:      s.Code,
			Name:      s.Name,
			DetailURL: s.DetailURL,
			Reason:    s.Reason,
			SkippedAt: s.SkippedAt,
		})
	}
	return out
}
