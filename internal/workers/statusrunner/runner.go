// Package statusrunner persists validation verdicts off the request path.
package statusrunner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ecavalidator/internal/domain"
	"ecavalidator/internal/ports"
)

// ErrQueueFull is returned by Record when the batch could not be queued.
var ErrQueueFull = errors.New("statusrunner: queue full")

// ErrStopped is returned by Record once the runner has shut down.
var ErrStopped = errors.New("statusrunner: stopped")

const saveTimeout = 5 * time.Second

// Runner queues status batches and saves them with a fixed set of workers.
type Runner struct {
	store  ports.StatusStore
	logger *slog.Logger
	jobs   chan []domain.StatusRecord

	mu      sync.RWMutex
	stopped bool
}

func New(store ports.StatusStore, queueSize int, logger *slog.Logger) *Runner {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{store: store, logger: logger, jobs: make(chan []domain.StatusRecord, queueSize)}
}

// Record implements ports.StatusRecorder. It never blocks; a full queue drops
// the batch and reports ErrQueueFull.
func (r *Runner) Record(_ context.Context, records ...domain.StatusRecord) error {
	if len(records) == 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return ErrStopped
	}
	select {
	case r.jobs <- records:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run starts worker goroutines and blocks until ctx is done and the queue has
// been drained.
func (r *Runner) Run(ctx context.Context, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for batch := range r.jobs {
				r.save(idx, batch)
			}
		}(i)
	}

	<-ctx.Done()
	r.mu.Lock()
	r.stopped = true
	close(r.jobs)
	r.mu.Unlock()
	wg.Wait()
}

func (r *Runner) save(worker int, batch []domain.StatusRecord) {
	// the request that produced the batch may be gone already
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := r.store.SaveStatus(ctx, batch); err != nil {
		r.logger.Error("saving validation status failed",
			slog.Int("worker", worker),
			slog.String("repo", batch[0].RepoURL),
			slog.Int("records", len(batch)),
			slog.Any("error", err))
		return
	}
	r.logger.Debug("saved validation status",
		slog.Int("worker", worker),
		slog.String("repo", batch[0].RepoURL),
		slog.Int("records", len(batch)))
}
