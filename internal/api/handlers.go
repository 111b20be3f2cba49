package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pricescout/zap-scraper/internal/database"
	"github.com/pricescout/zap-scraper/internal/models"
)

type Handlers struct {
	jobs    *Manager
	results *database.ResultRepository
	logger  *slog.Logger
}

func NewHandlers(jobs *Manager, results *database.ResultRepository, logger *slog.Logger) *Handlers {
	return &Handlers{
		jobs:    jobs,
		results: results,
		logger:  logger,
	}
}

// ScrapeRequest enqueues one product for scraping.
type ScrapeRequest struct {
	ProductName    string  `json:"product_name"`
	ReferencePrice float64 `json:"reference_price,omitempty"`
}

// ScrapeResponse is the job handle returned for an accepted request.
type ScrapeResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// CreateScrape handles new scrape job creation.
func (h *Handlers) CreateScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductName == "" {
		h.respondError(w, http.StatusBadRequest, "product_name is required")
		return
	}

	job, err := h.jobs.CreateJob(req.ProductName, req.ReferencePrice)
	if err != nil {
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusServiceUnavailable, "failed to enqueue job")
		return
	}

	h.respondJSON(w, http.StatusAccepted, ScrapeResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// GetJob handles job status retrieval.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job := h.jobs.GetJob(jobID)
	if job == nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// ListJobs handles listing all jobs.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.ListJobs())
}

// GetResult handles stored result retrieval.
func (h *Handlers) GetResult(w http.ResponseWriter, r *http.Request) {
	resultID := chi.URLParam(r, "resultID")
	if resultID == "" {
		h.respondError(w, http.StatusBadRequest, "result ID is required")
		return
	}

	result, err := h.results.Get(r.Context(), resultID)
	if err != nil {
		h.logger.Error("failed to get result", "error", err, "id", resultID)
		h.respondError(w, http.StatusInternalServerError, "failed to get result")
		return
	}
	if result == nil {
		h.respondError(w, http.StatusNotFound, "result not found")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ListResults handles listing recent results.
func (h *Handlers) ListResults(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	results, err := h.results.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list results", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list results")
		return
	}

	h.respondJSON(w, http.StatusOK, results)
}

// StatsResponse combines job-registry and persisted-result statistics.
type StatsResponse struct {
	Jobs    JobStats              `json:"jobs"`
	Results map[models.Status]int `json:"results"`
}

// GetStats handles statistics retrieval.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Jobs: h.jobs.Stats()}

	counts, err := h.results.CountByStatus(r.Context())
	if err != nil {
		h.logger.Error("failed to count results", "error", err)
	} else {
		resp.Results = counts
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
