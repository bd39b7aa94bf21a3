package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manthysbr/labforge/internal/core/domain"
)

// Orchestrator drives all experiments of a job to completion: batched
// parallel dispatch, whole-batch settlement, and timed retry passes for
// retryable failures. One orchestration run per job at a time.
type Orchestrator struct {
	logger     *slog.Logger
	jobs       *JobService
	bus        *EventBus
	batchSize  int
	retryDelay time.Duration
	maxPasses  int

	mu      sync.Mutex
	running map[domain.JobID]struct{}
}

func NewOrchestrator(logger *slog.Logger, jobs *JobService, bus *EventBus, batchSize int, retryDelay time.Duration, maxPasses int) *Orchestrator {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Orchestrator{
		logger:     logger,
		jobs:       jobs,
		bus:        bus,
		batchSize:  batchSize,
		retryDelay: retryDelay,
		maxPasses:  maxPasses,
		running:    make(map[domain.JobID]struct{}),
	}
}

// Start launches an orchestration run in the background. Returns false if a
// run for this job is already in flight.
func (o *Orchestrator) Start(ctx context.Context, jobID domain.JobID, userID domain.UserID) bool {
	o.mu.Lock()
	if _, busy := o.running[jobID]; busy {
		o.mu.Unlock()
		return false
	}
	o.running[jobID] = struct{}{}
	o.mu.Unlock()

	go func() {
		defer func() {
			o.mu.Lock()
			delete(o.running, jobID)
			o.mu.Unlock()
		}()
		if err := o.Run(ctx, jobID, userID); err != nil {
			o.logger.Warn("orchestration run ended with unfinished experiments",
				"job_id", jobID, "error", err)
		}
	}()
	return true
}

// Run processes every non-completed experiment in batches, then retries
// failures after retryDelay, up to maxPasses passes. Returns nil when the
// job is fully completed; an error when experiments remain failed after the
// retry budget or the run is canceled.
func (o *Orchestrator) Run(ctx context.Context, jobID domain.JobID, userID domain.UserID) error {
	for pass := 0; ; pass++ {
		pending, err := o.pendingIndexes(ctx, jobID, userID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		if pass > 0 {
			o.logger.Info("scheduling retry pass",
				"job_id", jobID, "pass", pass, "experiments", len(pending), "delay", o.retryDelay)
			o.bus.Publish(Event{JobID: string(jobID), Type: EventRetryScheduled,
				Data: fmt.Sprintf(`{"pass":%d,"remaining":%d}`, pass, len(pending)),
				Timestamp: time.Now().Unix()})
			select {
			case <-time.After(o.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := o.runBatches(ctx, jobID, userID, pending); err != nil {
			return err
		}

		remaining, err := o.pendingIndexes(ctx, jobID, userID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			return nil
		}
		if pass+1 >= o.maxPasses {
			// Give up on automatic retries. The job keeps its failed
			// experiments for manual retry or reset.
			return fmt.Errorf("%d experiments still failing after %d passes", len(remaining), pass+1)
		}
	}
}

// RetryOne re-dispatches a single experiment outside a full run, used by
// the manual retry endpoint.
func (o *Orchestrator) RetryOne(ctx context.Context, jobID domain.JobID, userID domain.UserID, index int) (*ProcessOutcome, error) {
	return o.jobs.ProcessExperiment(ctx, jobID, userID, index)
}

// runBatches dispatches the given experiment indexes in groups of batchSize.
// Each batch settles completely before the next starts. Individual failures
// do not abort the batch; they are collected for the next retry pass.
func (o *Orchestrator) runBatches(ctx context.Context, jobID domain.JobID, userID domain.UserID, indexes []int) error {
	for start := 0; start < len(indexes); start += o.batchSize {
		end := start + o.batchSize
		if end > len(indexes) {
			end = len(indexes)
		}
		batch := indexes[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for _, idx := range batch {
			idx := idx
			g.Go(func() error {
				_, err := o.jobs.ProcessExperiment(gctx, jobID, userID, idx)
				if err != nil && !IsRetryable(err) {
					// Non-retryable (missing key, not found): abort the run,
					// retrying cannot help.
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// pendingIndexes returns the indexes of experiments not yet completed.
func (o *Orchestrator) pendingIndexes(ctx context.Context, jobID domain.JobID, userID domain.UserID) ([]int, error) {
	job, err := o.jobs.Get(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	var idxs []int
	for i, e := range job.Experiments {
		if e.Status != domain.ExperimentCompleted {
			idxs = append(idxs, i)
		}
	}
	return idxs, nil
}
