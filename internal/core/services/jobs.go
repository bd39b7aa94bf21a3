package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manthysbr/labforge/internal/config"
	"github.com/manthysbr/labforge/internal/core/domain"
	"github.com/manthysbr/labforge/internal/core/ports"
)

// CreateJobRequest is the validated input for a new lab job.
type CreateJobRequest struct {
	InstructorName string                    `json:"instructor_name"`
	Subject        string                    `json:"subject"`
	SubjectCode    string                    `json:"subject_code"`
	PracticalTitle string                    `json:"practical_title"`
	Experiments    []CreateExperimentRequest `json:"experiments"`
}

type CreateExperimentRequest struct {
	Title           string `json:"title"`
	Aim             string `json:"aim"`
	AdditionalNotes string `json:"additional_notes"`
}

// ProcessOutcome summarizes a single ProcessExperiment call for the caller
// (HTTP handler or orchestrator).
type ProcessOutcome struct {
	Experiment   domain.Experiment `json:"experiment"`
	JobStatus    domain.JobStatus  `json:"job_status"`
	Progress     domain.Progress   `json:"progress"`
	AllCompleted bool              `json:"all_completed"`
}

// JobService owns the lab job lifecycle: creation, experiment processing,
// reset, and export. All experiment state transitions happen here so the
// derived invariants (progress, job status, completed-at) hold no matter
// which caller drives a transition.
type JobService struct {
	logger    *slog.Logger
	repo      ports.Repository
	generator *ContentGenerator
	secret    *config.SecretKey
	bus       *EventBus
	renderers map[string]ports.DocumentRenderer

	// locks serializes dispatch per (job, experiment); jobLocks serializes
	// every persisted read-modify-write per job so sibling experiments
	// finishing together cannot clobber each other's save. Entries are never
	// pruned; both maps are bounded by the jobs touched during the process
	// lifetime, one mutex each.
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	jobLocks map[string]*sync.Mutex
}

func NewJobService(logger *slog.Logger, repo ports.Repository, generator *ContentGenerator, secret *config.SecretKey, bus *EventBus, renderers map[string]ports.DocumentRenderer) *JobService {
	return &JobService{
		logger:    logger,
		repo:      repo,
		generator: generator,
		secret:    secret,
		bus:       bus,
		renderers: renderers,
		locks:     make(map[string]*sync.Mutex),
		jobLocks:  make(map[string]*sync.Mutex),
	}
}

func (s *JobService) lockFor(jobID domain.JobID, index int) *sync.Mutex {
	key := fmt.Sprintf("%s/%d", jobID, index)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *JobService) jobLockFor(jobID domain.JobID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.jobLocks[string(jobID)]
	if !ok {
		l = &sync.Mutex{}
		s.jobLocks[string(jobID)] = l
	}
	return l
}

// Create validates the request and persists a new job with every experiment
// pending. The user's profile must be complete before any job exists.
func (s *JobService) Create(ctx context.Context, userID domain.UserID, req CreateJobRequest) (*domain.LabJob, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Profile.Complete {
		return nil, domain.ErrProfileIncomplete
	}

	if strings.TrimSpace(req.InstructorName) == "" {
		return nil, &domain.ValidationError{Field: "instructor_name", Msg: "must not be empty"}
	}
	if strings.TrimSpace(req.Subject) == "" {
		return nil, &domain.ValidationError{Field: "subject", Msg: "must not be empty"}
	}
	// A blank subject code would also blind the code-prefix half of the
	// programming-lab heuristic.
	if strings.TrimSpace(req.SubjectCode) == "" {
		return nil, &domain.ValidationError{Field: "subject_code", Msg: "must not be empty"}
	}
	if strings.TrimSpace(req.PracticalTitle) == "" {
		return nil, &domain.ValidationError{Field: "practical_title", Msg: "must not be empty"}
	}
	if len(req.Experiments) == 0 {
		return nil, &domain.ValidationError{Field: "experiments", Msg: "at least one experiment is required"}
	}
	// Aim is optional; an experiment can be generated from its title alone.
	for i, e := range req.Experiments {
		if strings.TrimSpace(e.Title) == "" {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("experiments[%d].title", i), Msg: "must not be empty"}
		}
	}

	job := &domain.LabJob{
		ID:             domain.JobID(uuid.New().String()),
		UserID:         userID,
		InstructorName: strings.TrimSpace(req.InstructorName),
		Subject:        strings.TrimSpace(req.Subject),
		SubjectCode:    strings.TrimSpace(req.SubjectCode),
		PracticalTitle: strings.TrimSpace(req.PracticalTitle),
		Status:         domain.JobStatusCreated,
		CreatedAt:      time.Now().UTC(),
	}
	for i, e := range req.Experiments {
		job.Experiments = append(job.Experiments, domain.Experiment{
			ExperimentNumber: i + 1,
			Title:            strings.TrimSpace(e.Title),
			Aim:              strings.TrimSpace(e.Aim),
			AdditionalNotes:  strings.TrimSpace(e.AdditionalNotes),
			Status:           domain.ExperimentPending,
		})
	}
	job.Recalculate()

	if err := s.repo.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("lab job created", "job_id", job.ID, "user_id", userID, "experiments", len(job.Experiments))
	s.bus.Publish(Event{JobID: string(job.ID), Type: EventJobCreated, Timestamp: time.Now().Unix()})
	return job, nil
}

// Get returns a job scoped to its owner.
func (s *JobService) Get(ctx context.Context, jobID domain.JobID, userID domain.UserID) (*domain.LabJob, error) {
	return s.repo.GetJob(ctx, jobID, userID)
}

// List returns the user's jobs, newest first, capped at 50.
func (s *JobService) List(ctx context.Context, userID domain.UserID) ([]domain.LabJob, error) {
	return s.repo.ListJobs(ctx, userID, 50)
}

// ProcessExperiment runs one generation attempt for a single experiment and
// persists the transition. Re-dispatching a completed experiment is an
// idempotent no-op. Credential problems surface before any status change so
// the experiment stays dispatchable. The generation call itself runs outside
// the job lock; only the persisted read-modify-write sections hold it.
func (s *JobService) ProcessExperiment(ctx context.Context, jobID domain.JobID, userID domain.UserID, index int) (*ProcessOutcome, error) {
	lock := s.lockFor(jobID, index)
	lock.Lock()
	defer lock.Unlock()

	job, exp, apiKey, err := s.beginProcessing(ctx, jobID, userID, index)
	if err != nil {
		return nil, err
	}
	if exp.Status == domain.ExperimentCompleted {
		return s.outcome(job, exp), nil
	}
	s.bus.Publish(Event{JobID: string(jobID), Type: EventExperimentStarted,
		Data: fmt.Sprintf(`{"index":%d}`, index), Timestamp: time.Now().Unix()})

	content, genErr := s.generator.Generate(ctx,
		JobContext{
			Subject:        job.Subject,
			SubjectCode:    job.SubjectCode,
			InstructorName: job.InstructorName,
			PracticalTitle: job.PracticalTitle,
		},
		ExperimentContext{
			ExperimentNumber: exp.ExperimentNumber,
			Title:            exp.Title,
			Aim:              exp.Aim,
			AdditionalNotes:  exp.AdditionalNotes,
		},
		apiKey,
	)

	job, exp, firstCompletion, err := s.finishProcessing(ctx, jobID, userID, index, content, genErr)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		s.logger.Warn("experiment generation failed",
			"job_id", jobID, "index", index, "retry_count", exp.RetryCount, "error", genErr)
		s.bus.Publish(Event{JobID: string(jobID), Type: EventExperimentFailed,
			Data: fmt.Sprintf(`{"index":%d}`, index), Timestamp: time.Now().Unix()})
		return s.outcome(job, exp), genErr
	}

	s.bus.Publish(Event{JobID: string(jobID), Type: EventExperimentCompleted,
		Data: fmt.Sprintf(`{"index":%d}`, index), Timestamp: time.Now().Unix()})

	if firstCompletion {
		s.bus.Publish(Event{JobID: string(jobID), Type: EventJobCompleted, Timestamp: time.Now().Unix()})
		if user, err := s.repo.GetUser(ctx, userID); err == nil {
			user.ReportsGenerated++
			user.UpdatedAt = time.Now().UTC()
			if err := s.repo.UpdateUser(ctx, user); err != nil {
				s.logger.Warn("failed to bump reports counter", "user_id", userID, "error", err)
			}
		}
		s.logger.Info("lab job completed", "job_id", jobID, "user_id", userID)
	}

	return s.outcome(job, exp), nil
}

// beginProcessing moves the experiment into processing under the job lock.
// A completed experiment comes back unchanged so the caller can short-circuit
// without a provider call.
func (s *JobService) beginProcessing(ctx context.Context, jobID domain.JobID, userID domain.UserID, index int) (*domain.LabJob, *domain.Experiment, string, error) {
	mu := s.jobLockFor(jobID)
	mu.Lock()
	defer mu.Unlock()

	job, err := s.repo.GetJob(ctx, jobID, userID)
	if err != nil {
		return nil, nil, "", err
	}
	exp, err := job.Experiment(index)
	if err != nil {
		return nil, nil, "", err
	}
	if exp.Status == domain.ExperimentCompleted {
		return job, exp, "", nil
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, "", err
	}
	if user.APIKeyEncrypted == "" {
		return nil, nil, "", domain.ErrAPIKeyMissing
	}
	apiKey, err := s.secret.Decrypt(user.APIKeyEncrypted)
	if err != nil {
		return nil, nil, "", fmt.Errorf("decrypt api key: %w", err)
	}

	exp.Status = domain.ExperimentProcessing
	exp.Error = ""
	job.Recalculate()
	if err := s.repo.SaveJob(ctx, job); err != nil {
		return nil, nil, "", err
	}
	return job, exp, apiKey, nil
}

// finishProcessing writes the generation outcome against the latest persisted
// job state. The job lock serializes this read-modify-write with sibling
// experiments settling in the same batch, so no completion is lost to a stale
// whole-document save. Reports whether this write was the one that completed
// the job.
func (s *JobService) finishProcessing(ctx context.Context, jobID domain.JobID, userID domain.UserID, index int, content *domain.ExperimentContent, genErr error) (*domain.LabJob, *domain.Experiment, bool, error) {
	mu := s.jobLockFor(jobID)
	mu.Lock()
	defer mu.Unlock()

	job, err := s.repo.GetJob(ctx, jobID, userID)
	if err != nil {
		return nil, nil, false, err
	}
	exp, err := job.Experiment(index)
	if err != nil {
		return nil, nil, false, err
	}

	wasCompleted := job.AllCompleted()

	if genErr != nil {
		exp.Status = domain.ExperimentFailed
		exp.Error = genErr.Error()
		exp.RetryCount++
	} else {
		exp.Status = domain.ExperimentCompleted
		exp.GeneratedContent = content
		exp.Error = ""
	}
	job.Recalculate()
	if err := s.repo.SaveJob(ctx, job); err != nil {
		return nil, nil, false, err
	}
	return job, exp, job.AllCompleted() && !wasCompleted, nil
}

// Reset returns a failed experiment to pending so it can be regenerated.
// Resetting an already completed experiment on a fully completed job is an
// acknowledged no-op: a finished report never regresses behind its owner's
// back. On a job still in flight, a completed experiment may be reset to
// force regeneration. Stale generated content stays in place until the next
// successful generation overwrites it.
func (s *JobService) Reset(ctx context.Context, jobID domain.JobID, userID domain.UserID, index int) (*ProcessOutcome, error) {
	lock := s.lockFor(jobID, index)
	lock.Lock()
	defer lock.Unlock()
	mu := s.jobLockFor(jobID)
	mu.Lock()
	defer mu.Unlock()

	job, err := s.repo.GetJob(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	exp, err := job.Experiment(index)
	if err != nil {
		return nil, err
	}

	if exp.Status == domain.ExperimentCompleted && job.AllCompleted() {
		return s.outcome(job, exp), nil
	}
	if exp.Status == domain.ExperimentProcessing {
		return nil, &domain.ValidationError{Field: "experiment", Msg: "cannot reset while processing"}
	}

	exp.Status = domain.ExperimentPending
	exp.Error = ""
	job.Recalculate()
	if err := s.repo.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("experiment reset", "job_id", jobID, "index", index)
	s.bus.Publish(Event{JobID: string(jobID), Type: EventExperimentReset,
		Data: fmt.Sprintf(`{"index":%d}`, index), Timestamp: time.Now().Unix()})
	return s.outcome(job, exp), nil
}

// Export renders a fully completed job into the requested format ("docx" or
// "pdf") and writes the document to w.
func (s *JobService) Export(ctx context.Context, jobID domain.JobID, userID domain.UserID, format string, w io.Writer) (ports.DocumentRenderer, error) {
	renderer, ok := s.renderers[strings.ToLower(format)]
	if !ok {
		return nil, &domain.ValidationError{Field: "format", Msg: "must be docx or pdf"}
	}

	job, err := s.repo.GetJob(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	if !job.AllCompleted() {
		return nil, domain.ErrJobNotExportable
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := renderer.Render(w, user, job); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	s.logger.Info("lab job exported", "job_id", jobID, "format", format)
	return renderer, nil
}

func (s *JobService) outcome(job *domain.LabJob, exp *domain.Experiment) *ProcessOutcome {
	return &ProcessOutcome{
		Experiment:   *exp,
		JobStatus:    job.Status,
		Progress:     job.Progress,
		AllCompleted: job.AllCompleted(),
	}
}

// IsRetryable reports whether an experiment failure should be retried
// automatically. Credential and validation problems are not; provider and
// schema failures are.
func IsRetryable(err error) bool {
	var pe *domain.ProviderError
	var se *domain.SchemaValidationError
	if errors.As(err, &pe) || errors.As(err, &se) {
		return true
	}
	return false
}
