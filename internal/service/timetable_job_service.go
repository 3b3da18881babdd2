package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

// SolveJobType labels timetable solves on the worker queue.
const SolveJobType = "timetable.solve"

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
}

type solveDispatcher interface {
	TryEnqueue(job jobs.Job) error
}

type solveJobEntry struct {
	job     models.SolveJob
	request dto.GenerateTimetableRequest
	result  *dto.GenerateTimetableResponse
	err     *appErrors.Error
}

// SolveJobStore tracks asynchronous solves in memory. Finished jobs are dropped after the TTL.
type SolveJobStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]*solveJobEntry
}

// NewSolveJobStore constructs a job registry.
func NewSolveJobStore(ttl time.Duration) *SolveJobStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SolveJobStore{ttl: ttl, now: time.Now, entries: make(map[string]*solveJobEntry)}
}

func (s *SolveJobStore) create(req dto.GenerateTimetableRequest, actorID string) models.SolveJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	job := models.SolveJob{
		ID:        uuid.NewString(),
		Status:    models.SolveJobStatusQueued,
		CreatedBy: actorID,
		CreatedAt: s.now().UTC(),
	}
	s.entries[job.ID] = &solveJobEntry{job: job, request: req}
	return job
}

func (s *SolveJobStore) start(id string) (dto.GenerateTimetableRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok || entry.job.Status != models.SolveJobStatusQueued {
		return dto.GenerateTimetableRequest{}, false
	}
	now := s.now().UTC()
	entry.job.Status = models.SolveJobStatusRunning
	entry.job.StartedAt = &now
	return entry.request, true
}

func (s *SolveJobStore) finish(id string, result *dto.GenerateTimetableResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return
	}
	now := s.now().UTC()
	entry.job.FinishedAt = &now
	if err != nil {
		entry.job.Status = models.SolveJobStatusFailed
		entry.err = appErrors.FromError(err)
		return
	}
	entry.job.Status = models.SolveJobStatusSucceeded
	entry.result = result
}

func (s *SolveJobStore) get(id string) (solveJobEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok || s.expiredLocked(entry) {
		return solveJobEntry{}, false
	}
	return *entry, true
}

func (s *SolveJobStore) expiredLocked(entry *solveJobEntry) bool {
	return entry.job.FinishedAt != nil && s.now().Sub(*entry.job.FinishedAt) > s.ttl
}

func (s *SolveJobStore) purgeLocked() {
	for id, entry := range s.entries {
		if s.expiredLocked(entry) {
			delete(s.entries, id)
		}
	}
}

// TimetableJobService accepts solve requests for background processing.
type TimetableJobService struct {
	store     *SolveJobStore
	queue     solveDispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableJobService wires the job registry to the dispatch queue.
func NewTimetableJobService(store *SolveJobStore, queue solveDispatcher, validate *validator.Validate, logger *zap.Logger) *TimetableJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableJobService{store: store, queue: queue, validator: validate, logger: logger}
}

// Submit validates the payload, registers a job and hands it to the queue.
func (s *TimetableJobService) Submit(ctx context.Context, req dto.GenerateTimetableRequest, actorID string) (*dto.SolveJobResponse, error) {
	if _, err := validateRequest(s.validator, req); err != nil {
		return nil, err
	}
	job := s.store.create(req, actorID)
	if err := s.queue.TryEnqueue(jobs.Job{ID: job.ID, Type: SolveJobType}); err != nil {
		s.store.finish(job.ID, nil, err)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "solver queue is full, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue solve job")
	}
	s.logger.Info("timetable solve queued", zap.String("job_id", job.ID), zap.String("actor_id", actorID))
	return &dto.SolveJobResponse{Job: job}, nil
}

// Get reports a job. Teachers and students only see their own jobs.
func (s *TimetableJobService) Get(ctx context.Context, id, actorID string, role models.UserRole) (*dto.SolveJobResponse, error) {
	entry, ok := s.store.get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "solve job not found or expired")
	}
	if role != models.RoleAdmin && role != models.RoleSuperAdmin && entry.job.CreatedBy != actorID {
		return nil, appErrors.ErrForbidden
	}
	resp := &dto.SolveJobResponse{Job: entry.job, Result: entry.result}
	if entry.err != nil {
		resp.ErrorCode = entry.err.Code
		resp.Error = entry.err.Message
	}
	return resp, nil
}

// TimetableJobWorker runs queued solves. Solves are deterministic, so a failed job is not retried.
type TimetableJobWorker struct {
	store     *SolveJobStore
	generator timetableGenerator
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewTimetableJobWorker constructs a worker.
func NewTimetableJobWorker(store *SolveJobStore, generator timetableGenerator, metrics *MetricsService, logger *zap.Logger) *TimetableJobWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableJobWorker{store: store, generator: generator, metrics: metrics, logger: logger}
}

// Handle processes a queue job.
func (w *TimetableJobWorker) Handle(ctx context.Context, job jobs.Job) error {
	req, ok := w.store.start(job.ID)
	if !ok {
		w.logger.Warn("solve job vanished before start", zap.String("job_id", job.ID))
		return nil
	}
	w.metrics.JobStarted()
	defer w.metrics.JobFinished()

	result, err := w.generator.Generate(ctx, req)
	w.store.finish(job.ID, result, err)
	if err != nil {
		return jobs.Permanent(err)
	}
	w.logger.Info("timetable solve finished", zap.String("job_id", job.ID), zap.String("proposal_id", result.ProposalID))
	return nil
}
