package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grad-oversight-api/internal/models"
	"github.com/noah-isme/grad-oversight-api/internal/oversight"
	appErrors "github.com/noah-isme/grad-oversight-api/pkg/errors"
	"github.com/noah-isme/grad-oversight-api/pkg/jobs"
)

// RiskRefreshJobType identifies risk refresh jobs on the queue.
const RiskRefreshJobType = "risk_refresh"

type riskEvaluator interface {
	Evaluate(ctx context.Context, programID string, now time.Time) (*Evaluation, error)
}

type riskScoreWriter interface {
	SaveRiskScores(ctx context.Context, records []models.RiskScoreRecord) error
}

type jobDispatcher interface {
	Register(jobType string, handler jobs.Handler)
	Submit(jobType string, payload interface{}) (string, error)
	Status(id string) (jobs.Status, bool)
}

// RiskRefreshPayload scopes a refresh run. An empty program refreshes every program.
type RiskRefreshPayload struct {
	ProgramID string `json:"program_id,omitempty"`
}

// RiskRefreshResult summarizes a completed refresh run.
type RiskRefreshResult struct {
	RunID    string `json:"run_id"`
	Scored   int    `json:"scored"`
	Failures int    `json:"failures"`
}

// RiskRefreshService recomputes and persists every active student's risk score in the background.
type RiskRefreshService struct {
	evaluator riskEvaluator
	writer    riskScoreWriter
	queue     jobDispatcher
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	inFlight string
}

// RiskRefreshParams groups constructor dependencies.
type RiskRefreshParams struct {
	Evaluator riskEvaluator
	Writer    riskScoreWriter
	Queue     jobDispatcher
	Cache     *CacheService
	Metrics   *MetricsService
	Logger    *zap.Logger
}

// NewRiskRefreshService constructs the service and registers its job handler.
func NewRiskRefreshService(params RiskRefreshParams) *RiskRefreshService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RiskRefreshService{
		evaluator: params.Evaluator,
		writer:    params.Writer,
		queue:     params.Queue,
		cache:     params.Cache,
		metrics:   params.Metrics,
		logger:    logger,
		now:       time.Now,
	}
	if s.queue != nil {
		s.queue.Register(RiskRefreshJobType, s.Handle)
	}
	return s
}

// Trigger enqueues a refresh unless one is already queued or running.
func (s *RiskRefreshService) Trigger(_ context.Context, programID string) (jobs.Status, error) {
	if s.queue == nil {
		return jobs.Status{}, appErrors.Clone(appErrors.ErrUnavailable, "risk refresh is disabled")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight != "" {
		if st, ok := s.queue.Status(s.inFlight); ok && !finished(st.State) {
			return st, appErrors.Clone(appErrors.ErrRefreshInFlight, "risk refresh already in progress")
		}
	}
	id, err := s.queue.Submit(RiskRefreshJobType, RiskRefreshPayload{ProgramID: programID})
	if err != nil {
		return jobs.Status{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue risk refresh")
	}
	s.inFlight = id
	st, _ := s.queue.Status(id)
	s.logger.Info("risk refresh queued", zap.String("job_id", id), zap.String("program_id", programID))
	return st, nil
}

// Status reports the progress of a refresh job.
func (s *RiskRefreshService) Status(id string) (jobs.Status, error) {
	if s.queue == nil {
		return jobs.Status{}, appErrors.Clone(appErrors.ErrUnavailable, "risk refresh is disabled")
	}
	st, ok := s.queue.Status(id)
	if !ok || st.Type != RiskRefreshJobType {
		return jobs.Status{}, appErrors.Clone(appErrors.ErrNotFound, "refresh job not found")
	}
	return st, nil
}

// Handle processes a queued refresh job.
func (s *RiskRefreshService) Handle(ctx context.Context, job jobs.Job) error {
	payload, _ := job.Payload.(RiskRefreshPayload)
	_, err := s.Run(ctx, job.ID, payload.ProgramID)
	return err
}

// Run scores every active student and upserts the results in one transaction.
// Students the engine rejects are counted and skipped.
func (s *RiskRefreshService) Run(ctx context.Context, runID, programID string) (*RiskRefreshResult, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	now := s.now().UTC()
	run, err := s.evaluator.Evaluate(ctx, programID, now)
	if err != nil {
		s.metrics.RecordRefresh(string(jobs.StateFailed))
		return nil, err
	}

	records := make([]models.RiskScoreRecord, 0, len(run.Report.Evaluations))
	for _, e := range run.Report.Evaluations {
		records = append(records, models.RiskScoreRecord{
			StudentID:    e.StudentID,
			Score:        e.Risk.Score,
			Tier:         e.Risk.Tier,
			Quadrant:     e.Quadrant.Quadrant,
			Inactive:     e.Quadrant.DaysSinceLogin > oversight.InactivityThresholdDays,
			RunID:        runID,
			CalculatedAt: now,
		})
	}
	if err := s.writer.SaveRiskScores(ctx, records); err != nil {
		s.metrics.RecordRefresh(string(jobs.StateFailed))
		s.logger.Error("risk refresh failed", zap.String("run_id", runID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save risk scores")
	}

	failures := 0
	for _, f := range run.Report.Failures {
		if f.Kind == oversight.RecordStudent {
			failures++
		}
	}
	if err := s.cache.Invalidate(ctx, CacheKey("*")); err != nil {
		s.logger.Warn("cache invalidation after refresh failed", zap.Error(err))
	}
	s.metrics.RecordRefresh(string(jobs.StateSucceeded))
	s.logger.Info("risk refresh completed",
		zap.String("run_id", runID),
		zap.String("program_id", programID),
		zap.Int("scored", len(records)),
		zap.Int("failures", failures),
	)
	return &RiskRefreshResult{RunID: runID, Scored: len(records), Failures: failures}, nil
}

// Schedule triggers a full refresh every interval until ctx is cancelled.
func (s *RiskRefreshService) Schedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Trigger(ctx, ""); err != nil && !errors.Is(err, appErrors.ErrRefreshInFlight) {
					s.logger.Warn("scheduled risk refresh not queued", zap.Error(err))
				}
			}
		}
	}()
}

func finished(state jobs.State) bool {
	return state == jobs.StateSucceeded || state == jobs.StateFailed
}
