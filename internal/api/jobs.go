package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pricescout/zap-scraper/internal/models"
	"github.com/pricescout/zap-scraper/internal/queue"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job tracks one enqueued product through its scrape run.
type Job struct {
	ID             string     `json:"id"`
	ProductName    string     `json:"product_name"`
	ReferencePrice float64    `json:"reference_price,omitempty"`
	Status         JobStatus  `json:"status"`
	ResultID       string     `json:"result_id,omitempty"`
	ResultStatus   string     `json:"result_status,omitempty"`
	OfferCount     int        `json:"offer_count,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// Runner is the per-product pipeline the worker drives.
type Runner interface {
	Process(ctx context.Context, productName string, referencePrice float64) *models.ScrapeResult
}

// ResultSink persists finished results. Nil-safe usage is the caller's
// concern; the worker requires one.
type ResultSink interface {
	Persist(ctx context.Context, result *models.ScrapeResult) error
}

// Manager owns the job registry and the worker loop that drains the queue.
type Manager struct {
	queue  queue.Queue
	runner Runner
	sink   ResultSink
	logger *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewManager(q queue.Queue, runner Runner, sink ResultSink, logger *slog.Logger) *Manager {
	return &Manager{
		queue:  q,
		runner: runner,
		sink:   sink,
		logger: logger.With("component", "job_manager"),
		jobs:   make(map[string]*Job),
	}
}

// CreateJob registers and enqueues a product for scraping.
func (m *Manager) CreateJob(productName string, referencePrice float64) (*Job, error) {
	job := &Job{
		ID:             uuid.New().String(),
		ProductName:    productName,
		ReferencePrice: referencePrice,
		Status:         JobQueued,
		CreatedAt:      time.Now(),
	}

	err := m.queue.Push(&queue.Job{
		ID:             job.ID,
		ProductName:    productName,
		ReferencePrice: referencePrice,
		CreatedAt:      job.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.logger.Info("job created", "id", job.ID, "product", productName)
	return job, nil
}

// GetJob returns a snapshot of the job, or nil if unknown.
func (m *Manager) GetJob(jobID string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil
	}
	snapshot := *job
	return &snapshot
}

// ListJobs returns snapshots of all known jobs, newest first.
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}

	for i := 0; i < len(jobs)-1; i++ {
		for j := i + 1; j < len(jobs); j++ {
			if jobs[j].CreatedAt.After(jobs[i].CreatedAt) {
				jobs[i], jobs[j] = jobs[j], jobs[i]
			}
		}
	}

	return jobs
}

// JobStats summarizes the registry.
type JobStats struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

func (m *Manager) Stats() JobStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := JobStats{Total: len(m.jobs)}
	for _, job := range m.jobs {
		switch job.Status {
		case JobQueued:
			stats.Queued++
		case JobRunning:
			stats.Running++
		case JobCompleted:
			stats.Completed++
		case JobFailed:
			stats.Failed++
		}
	}
	return stats
}

// StartWorker drains the queue until the context is cancelled or the queue
// closes. One job runs at a time; concurrency lives inside the pipeline's
// vendor pool.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("worker started")

	for {
		queued, err := m.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
				m.logger.Info("worker stopped")
				return
			}
			m.logger.Error("failed to pop job", "error", err)
			continue
		}

		m.runJob(ctx, queued)
	}
}

func (m *Manager) runJob(ctx context.Context, queued *queue.Job) {
	now := time.Now()
	m.update(queued.ID, func(job *Job) {
		job.Status = JobRunning
		job.StartedAt = &now
	})

	result := m.runner.Process(ctx, queued.ProductName, queued.ReferencePrice)

	if err := m.sink.Persist(ctx, result); err != nil {
		m.logger.Error("failed to persist result",
			"job_id", queued.ID, "result_id", result.ID, "error", err)
		done := time.Now()
		m.update(queued.ID, func(job *Job) {
			job.Status = JobFailed
			job.CompletedAt = &done
			job.Error = err.Error()
		})
		return
	}

	done := time.Now()
	m.update(queued.ID, func(job *Job) {
		job.Status = JobCompleted
		job.CompletedAt = &done
		job.ResultID = result.ID
		job.ResultStatus = string(result.Status)
		job.OfferCount = len(result.Offers)
	})

	m.logger.Info("job completed",
		"job_id", queued.ID,
		"result_id", result.ID,
		"status", result.Status,
		"offers", len(result.Offers))
}

func (m *Manager) update(jobID string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[jobID]; ok {
		fn(job)
	}
}
