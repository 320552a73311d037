package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/garnizeh/realty/internal/metrics"
)

// WorkerPool polls the queue with a fixed number of goroutines and routes
// each claimed job to the handler registered for its type.
type WorkerPool struct {
	repo         *Repository
	handlers     map[string]Handler
	workerCount  int
	pollInterval time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewWorkerPool(repo *Repository, handlers map[string]Handler, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &WorkerPool{repo: repo, handlers: handlers, workerCount: workerCount, pollInterval: 500 * time.Millisecond, stop: make(chan struct{})}
}

// SetPollInterval changes how long an idle worker waits before polling again.
func (p *WorkerPool) SetPollInterval(d time.Duration) {
	if d > 0 {
		p.pollInterval = d
	}
}

// Start requeues jobs interrupted by a previous shutdown and launches the
// workers.
func (p *WorkerPool) Start(ctx context.Context) {
	if n, err := p.repo.RequeueRunning(ctx); err != nil {
		logger.Error("jobs: requeue interrupted jobs", slog.Any("err", err))
	} else if n > 0 {
		logger.Info("jobs: requeued interrupted jobs", slog.Int64("count", n))
	}
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for the jobs in flight.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// wait returns false when the pool is stopping.
func (p *WorkerPool) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-p.stop:
		return false
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			logger.Debug("jobs: worker stopping", slog.Int("worker", id))
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.repo.Claim(ctx)
		if err != nil {
			logger.Error("jobs: claim", slog.Int("worker", id), slog.Any("err", err))
			if !p.wait(ctx, time.Second) {
				return
			}
			continue
		}
		if job == nil {
			if !p.wait(ctx, p.pollInterval) {
				return
			}
			continue
		}
		p.run(ctx, job)
	}
}

func (p *WorkerPool) run(ctx context.Context, job *Job) {
	start := time.Now()
	log := logger.With(slog.Int64("job_id", job.ID), slog.String("type", job.Type))

	var err error
	if h, ok := p.handlers[job.Type]; ok {
		err = h(ctx, job)
	} else {
		err = fmt.Errorf("no handler for %s", job.Type)
		job.Attempts = job.MaxAttempts - 1
	}

	outcome := p.settle(ctx, job, err)
	if err != nil {
		log.Warn("jobs: attempt failed", slog.Int("attempt", job.Attempts), slog.String("outcome", outcome), slog.Any("err", err))
	}
	metrics.ObserveJob(job.Type, outcome, time.Since(start))
}

// settle records the result of one attempt and returns the metrics outcome.
func (p *WorkerPool) settle(ctx context.Context, job *Job, runErr error) string {
	if runErr == nil {
		job.Status = StatusDone
		if err := p.repo.UpdateJob(ctx, job); err != nil {
			logger.Error("jobs: mark done", slog.Int64("job_id", job.ID), slog.Any("err", err))
		}
		return metrics.OutcomeSuccess
	}

	job.Attempts++
	job.LastError = runErr.Error()
	if job.Attempts >= job.MaxAttempts {
		job.Status = StatusFailed
		if err := p.repo.MoveToDeadLetter(ctx, job); err != nil {
			logger.Error("jobs: move to dead letter", slog.Int64("job_id", job.ID), slog.Any("err", err))
		}
		return metrics.OutcomeDeadLetter
	}

	next := time.Now().Add(BackoffDuration(job.Attempts))
	job.NextTryAt = &next
	job.Status = StatusRetry
	if err := p.repo.UpdateJob(ctx, job); err != nil {
		logger.Error("jobs: schedule retry", slog.Int64("job_id", job.ID), slog.Any("err", err))
	}
	return metrics.OutcomeRetry
}

// Enqueue marshals payload and queues a job of type typ.
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return p.repo.Enqueue(ctx, &Job{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: time.Now()})
}
