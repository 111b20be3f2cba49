package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrQueueClosed = errors.New("queue is closed")
	ErrQueueFull   = errors.New("queue is full")
)

// Job is one product awaiting a scrape run. ReferencePrice is the caller's
// own price for the product, used for savings statistics; zero means unknown.
type Job struct {
	ID             string
	ProductName    string
	ReferencePrice float64
	Priority       int
	Retries        int
	CreatedAt      time.Time
}

type Queue interface {
	Push(job *Job) error
	Pop(ctx context.Context) (*Job, error)
	Size() int
	Close() error
}

// InMemoryQueue is a bounded priority queue. Higher priority pops first;
// equal priorities pop in insertion order.
type InMemoryQueue struct {
	jobs    []*Job
	maxSize int
	mu      sync.Mutex
	cond    *sync.Cond
	closed  bool
}

func NewInMemoryQueue(maxSize int) *InMemoryQueue {
	q := &InMemoryQueue{
		jobs:    make([]*Job, 0),
		maxSize: maxSize,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *InMemoryQueue) Push(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.maxSize > 0 && len(q.jobs) >= q.maxSize {
		return ErrQueueFull
	}

	q.jobs = append(q.jobs, job)
	q.sortByPriority()
	q.cond.Signal()

	return nil
}

func (q *InMemoryQueue) Pop(ctx context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.jobs) == 0 && !q.closed {
		done := make(chan struct{})
		go func() {
			q.cond.Wait()
			close(done)
		}()

		select {
		case <-ctx.Done():
			q.cond.Signal()
			return nil, ctx.Err()
		case <-done:
		}
	}

	if q.closed && len(q.jobs) == 0 {
		return nil, ErrQueueClosed
	}

	if len(q.jobs) == 0 {
		return nil, ErrQueueEmpty
	}

	job := q.jobs[0]
	q.jobs = q.jobs[1:]

	return job, nil
}

func (q *InMemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()

	return nil
}

// Stable: equal priorities keep their arrival order.
func (q *InMemoryQueue) sortByPriority() {
	for i := 0; i < len(q.jobs)-1; i++ {
		for j := 0; j < len(q.jobs)-i-1; j++ {
			if q.jobs[j].Priority < q.jobs[j+1].Priority {
				q.jobs[j], q.jobs[j+1] = q.jobs[j+1], q.jobs[j]
			}
		}
	}
}

// BatchQueue drains jobs in fixed-size batches for the worker loop.
type BatchQueue struct {
	queue     Queue
	batchSize int
}

func NewBatchQueue(q Queue, batchSize int) *BatchQueue {
	return &BatchQueue{
		queue:     q,
		batchSize: batchSize,
	}
}

func (b *BatchQueue) PushBatch(jobs []*Job) error {
	for _, job := range jobs {
		if err := b.queue.Push(job); err != nil {
			return err
		}
	}
	return nil
}

func (b *BatchQueue) PopBatch(ctx context.Context) ([]*Job, error) {
	var jobs []*Job

	for i := 0; i < b.batchSize; i++ {
		job, err := b.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueEmpty) || errors.Is(err, ErrQueueClosed) {
				break
			}
			return jobs, err
		}
		jobs = append(jobs, job)
	}

	if len(jobs) == 0 {
		return nil, ErrQueueEmpty
	}

	return jobs, nil
}
