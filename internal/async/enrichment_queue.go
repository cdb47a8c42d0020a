package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/enrichment"
	"github.com/dwesselviax/EstateLogger/internal/entity"
)

// BatchRunner is the part of the enrichment orchestrator the queue drives.
type BatchRunner interface {
	EligibleItems(ctx context.Context, estateID uuid.UUID) ([]*entity.ItemWithEnrichment, error)
	EnrichEstate(ctx context.Context, estateID uuid.UUID, progress enrichment.ProgressFunc) (*enrichment.Result, error)
}

var _ Queue = (*EnrichmentQueue)(nil)

type EnrichmentQueue struct {
	runner  BatchRunner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// mu guards closed; senders tracks Enqueue calls past the closed check so
	// Shutdown can close ch once they are gone.
	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	senders sync.WaitGroup

	// pmu guards progress and seq; workers never take mu.
	pmu      sync.Mutex
	progress map[uuid.UUID]*Progress
	seq      uint64
}

type Option func(*EnrichmentQueue)

func WithWorkers(n int) Option {
	return func(q *EnrichmentQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *EnrichmentQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
// WithRunTimeout bounds each batch. Batches are unbounded by default.
func WithRunTimeout(d time.Duration) Option {
	return func(q *EnrichmentQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// OptionsFrom maps the enrichment config section onto queue options.
func OptionsFrom(c common.EnrichmentConfig) []Option {
	return []Option{WithWorkers(c.Workers), WithQueueSize(c.QueueSize), WithRunTimeout(c.RunTimeout)}
}

func NewEnrichmentQueue(runner BatchRunner, logger *slog.Logger, opts ...Option) *EnrichmentQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &EnrichmentQueue{
		runner:   runner,
		logger:   logger,
		workers:  2,
		ch:       make(chan Job, 64),
		done:     make(chan struct{}),
		progress: make(map[uuid.UUID]*Progress),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *EnrichmentQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("enrich.queue.worker_started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Info("enrich.queue.worker_stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *EnrichmentQueue) run(workerID int, job Job) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	logger := q.logger.With("worker_id", workerID, "estate_id", job.EstateID)

	q.update(job, func(p *Progress) {
		now := time.Now()
		p.State = StateRunning
		p.StartedAt = &now
	})

	res, err := q.runner.EnrichEstate(ctx, job.EstateID, func(done, total int) {
		q.update(job, func(p *Progress) {
			p.Done, p.Total = done, total
		})
	})

	q.update(job, func(p *Progress) {
		now := time.Now()
		p.FinishedAt = &now
		p.Result = res
		if err != nil {
			p.State = StateFailed
			p.Error = common.PublicMessage(err)
			return
		}
		p.State = StateDone
	})
	if err != nil {
		logger.Error("enrich.queue.batch_failed", "error", err, "waited_ms", time.Since(job.SubmittedAt).Milliseconds())
		return
	}
	logger.Info("enrich.queue.batch_done", "succeeded", res.Succeeded, "failed", res.Failed)
}

// update applies fn to the job's progress unless a forced job replaced it.
func (q *EnrichmentQueue) update(job Job, fn func(p *Progress)) {
	q.pmu.Lock()
	defer q.pmu.Unlock()
	if p, ok := q.progress[job.EstateID]; ok && p.seq == job.seq {
		fn(p)
	}
}

// Enqueue schedules a batch for the estate. It fails with common.ErrNoWork
// when nothing is eligible, and returns the pending batch instead of a new one
// unless job.Force is set.
func (q *EnrichmentQueue) Enqueue(ctx context.Context, job Job) (Progress, error) {
	eligible, err := q.runner.EligibleItems(ctx, job.EstateID)
	if err != nil {
		return Progress{}, err
	}
	if len(eligible) == 0 {
		return Progress{}, fmt.Errorf("estate %s: %w", job.EstateID, common.ErrNoWork)
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("enrich.queue.closed", "estate_id", job.EstateID)
		return Progress{}, ErrQueueClosed
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	q.pmu.Lock()
	prev, ok := q.progress[job.EstateID]
	if ok && prev.Pending() && !job.Force {
		snapshot := *prev
		q.pmu.Unlock()
		q.logger.Info("enrich.queue.deduplicated", "estate_id", job.EstateID, "state", snapshot.State)
		return snapshot, nil
	}
	q.seq++
	job.seq = q.seq
	p := &Progress{EstateID: job.EstateID, State: StateQueued, Total: len(eligible), QueuedAt: job.SubmittedAt, seq: job.seq}
	q.progress[job.EstateID] = p
	snapshot := *p
	q.pmu.Unlock()

	select {
	case q.ch <- job:
		q.logger.Info("enrich.queue.enqueued", "estate_id", job.EstateID, "eligible", len(eligible), "force", job.Force)
		return snapshot, nil
	default:
	}

	q.logger.Warn("enrich.queue.full", "estate_id", job.EstateID)
	select {
	case q.ch <- job:
		return snapshot, nil
	case <-ctx.Done():
		err = ctx.Err()
	case <-q.done:
		err = ErrQueueClosed
	}
	q.pmu.Lock()
	if cur, has := q.progress[job.EstateID]; has && cur.seq == job.seq {
		if ok {
			q.progress[job.EstateID] = prev
		} else {
			delete(q.progress, job.EstateID)
		}
	}
	q.pmu.Unlock()
	return Progress{}, err
}

// Progress returns a snapshot of the latest batch for the estate.
func (q *EnrichmentQueue) Progress(estateID uuid.UUID) (Progress, bool) {
	q.pmu.Lock()
	defer q.pmu.Unlock()
	p, ok := q.progress[estateID]
	if !ok {
		return Progress{}, false
	}
	return *p, true
}

func (q *EnrichmentQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()
	q.senders.Wait()
	close(q.ch)

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("enrich.queue.shutdown_interrupted")
	case <-done:
		q.logger.Info("enrich.queue.drained")
	}
}
