package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/grad-oversight-api/internal/dto"
	"github.com/noah-isme/grad-oversight-api/internal/models"
	"github.com/noah-isme/grad-oversight-api/internal/oversight"
	appErrors "github.com/noah-isme/grad-oversight-api/pkg/errors"
)

const asOfLayout = "2006-01-02"

type oversightReader interface {
	ListStudentSnapshots(ctx context.Context, filter models.OversightFilter) ([]models.StudentSnapshot, error)
	FindStudent(ctx context.Context, id string) (*models.StudentSnapshot, error)
	ListAdvisorLoads(ctx context.Context, programID string) ([]models.AdvisorLoadSnapshot, error)
	ListPendingApprovals(ctx context.Context, from, to time.Time) ([]models.PendingApproval, error)
	ListRiskFactors(ctx context.Context, studentIDs []string) (map[string][]models.RiskFactor, error)
}

// OversightServiceConfig tunes oversight behaviour.
type OversightServiceConfig struct {
	CacheTTL time.Duration
}

// OversightService loads academic records, runs the oversight engine and shapes its output per view.
type OversightService struct {
	repo      oversightReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       OversightServiceConfig
}

// Evaluation is one engine run together with the records it read.
type Evaluation struct {
	Report   oversight.Report
	Students []models.StudentSnapshot
	Now      time.Time
}

// NewOversightService constructs the service.
func NewOversightService(repo oversightReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg OversightServiceConfig) *OversightService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OversightService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: NewValidator(validate),
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// NewValidator registers the oversight enum validations on validate, creating it when nil.
func NewValidator(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("quadrant", func(fl validator.FieldLevel) bool {
		_, ok := oversight.ParseQuadrant(fl.Field().String())
		return ok
	})
	_ = validate.RegisterValidation("stage_bucket", func(fl validator.FieldLevel) bool {
		_, ok := oversight.ParseStageBucket(fl.Field().String())
		return ok
	})
	return validate
}

func (s *OversightService) validate(req interface{}) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters")
	}
	return nil
}

// Dashboard returns the summary, alerts and dropped-record report for a program.
func (s *OversightService) Dashboard(ctx context.Context, scope dto.OversightScope) (*dto.DashboardResponse, bool, error) {
	if err := s.validate(scope); err != nil {
		return nil, false, err
	}
	now, asOf, err := s.referenceTime(scope.AsOf)
	if err != nil {
		return nil, false, err
	}
	key := CacheKey("dashboard", scope.ProgramID, asOf)
	var cached dto.DashboardResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	run, err := s.Evaluate(ctx, scope.ProgramID, now)
	if err != nil {
		return nil, false, err
	}
	resp := &dto.DashboardResponse{
		ProgramID: scope.ProgramID,
		AsOf:      asOf,
		Summary:   run.Report.Summary,
		Alerts:    run.Report.Alerts,
		Failures:  run.Report.Failures,
	}
	resp.Summary.Advisors.MeanUtilization = round2(resp.Summary.Advisors.MeanUtilization)
	s.persist(ctx, key, resp)
	return resp, false, nil
}

// Radar returns the quadrant histogram. When a quadrant is requested, the students
// placed in it are listed by descending risk.
func (s *OversightService) Radar(ctx context.Context, req dto.RadarRequest) (*dto.RadarResponse, bool, error) {
	if err := s.validate(req); err != nil {
		return nil, false, err
	}
	quadrant := models.Quadrant(req.Quadrant)
	page, size := dto.NormalizePage(req.Page, req.PageSize)
	now, asOf, err := s.referenceTime(req.AsOf)
	if err != nil {
		return nil, false, err
	}
	key := CacheKey("radar", req.ProgramID, asOf, string(quadrant), strconv.Itoa(page), strconv.Itoa(size))
	var cached dto.RadarResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	run, err := s.Evaluate(ctx, req.ProgramID, now)
	if err != nil {
		return nil, false, err
	}
	resp := &dto.RadarResponse{AsOf: asOf, Quadrants: run.Report.Summary.Quadrants}
	if quadrant != "" {
		points := oversight.FilterByQuadrant(oversight.QuadrantPoints(run.Report.Evaluations), quadrant)
		sort.SliceStable(points, func(i, j int) bool {
			if points[i].RiskScore == points[j].RiskScore {
				return points[i].StudentID < points[j].StudentID
			}
			return points[i].RiskScore > points[j].RiskScore
		})
		resp.Quadrant = string(quadrant)
		resp.Total = len(points)
		resp.Students = paginate(points, page, size)
	}
	s.persist(ctx, key, resp)
	return resp, false, nil
}

// Funnel returns the stage funnel. When a bucket is requested, its students are listed,
// optionally restricted to those needing urgent action.
func (s *OversightService) Funnel(ctx context.Context, req dto.FunnelRequest) (*dto.FunnelResponse, bool, error) {
	if err := s.validate(req); err != nil {
		return nil, false, err
	}
	bucket := models.StageBucket(req.Bucket)
	page, size := dto.NormalizePage(req.Page, req.PageSize)
	now, asOf, err := s.referenceTime(req.AsOf)
	if err != nil {
		return nil, false, err
	}
	key := CacheKey("funnel", req.ProgramID, asOf, string(bucket), strconv.FormatBool(req.UrgentOnly), strconv.Itoa(page), strconv.Itoa(size))
	var cached dto.FunnelResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	run, err := s.Evaluate(ctx, req.ProgramID, now)
	if err != nil {
		return nil, false, err
	}
	resp := &dto.FunnelResponse{
		AsOf:           asOf,
		Stages:         run.Report.Summary.Stages,
		UrgentStudents: run.Report.Summary.UrgentStudents,
	}
	if bucket != "" {
		points := oversight.FilterByStage(stagePoints(run), bucket, req.UrgentOnly)
		resp.Bucket = string(bucket)
		resp.Total = len(points)
		resp.Students = paginate(points, page, size)
	}
	s.persist(ctx, key, resp)
	return resp, false, nil
}

// Advisors lists advisor capacity sorted by utilization, highest first.
func (s *OversightService) Advisors(ctx context.Context, programID string) (*dto.AdvisorsResponse, bool, error) {
	now := s.now().UTC()
	key := CacheKey("advisors", programID, now.Format(asOfLayout))
	var cached dto.AdvisorsResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	run, err := s.Evaluate(ctx, programID, now)
	if err != nil {
		return nil, false, err
	}
	advisors := make([]oversight.AdvisorCapacity, len(run.Report.Advisors))
	copy(advisors, run.Report.Advisors)
	sort.SliceStable(advisors, func(i, j int) bool {
		if advisors[i].Utilization == advisors[j].Utilization {
			return advisors[i].AdvisorID < advisors[j].AdvisorID
		}
		return advisors[i].Utilization > advisors[j].Utilization
	})
	for i := range advisors {
		advisors[i].Utilization = round2(advisors[i].Utilization)
	}
	resp := &dto.AdvisorsResponse{Summary: run.Report.Summary.Advisors, Advisors: advisors}
	s.persist(ctx, key, resp)
	return resp, false, nil
}

// Alerts returns the summarized alerts in evaluation order.
func (s *OversightService) Alerts(ctx context.Context, scope dto.OversightScope) ([]oversight.Alert, bool, error) {
	if err := s.validate(scope); err != nil {
		return nil, false, err
	}
	now, asOf, err := s.referenceTime(scope.AsOf)
	if err != nil {
		return nil, false, err
	}
	key := CacheKey("alerts", scope.ProgramID, asOf)
	var cached []oversight.Alert
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	run, err := s.Evaluate(ctx, scope.ProgramID, now)
	if err != nil {
		return nil, false, err
	}
	s.persist(ctx, key, run.Report.Alerts)
	return run.Report.Alerts, false, nil
}

// StudentRisk scores a single student and explains the result.
func (s *OversightService) StudentRisk(ctx context.Context, studentID, asOfRaw string) (*dto.StudentRiskResponse, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	now, asOf, err := s.referenceTime(asOfRaw)
	if err != nil {
		return nil, false, err
	}
	key := CacheKey("student", studentID, asOf)
	var cached dto.StudentRiskResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	student, err := s.repo.FindStudent(ctx, studentID)
	if err != nil {
		return nil, false, wrapLoadError(err, "failed to load student")
	}
	factors, err := s.repo.ListRiskFactors(ctx, []string{studentID})
	if err != nil {
		return nil, false, wrapLoadError(err, "failed to load risk factors")
	}
	eval, err := oversight.EvaluateStudent(*student, factors[studentID], now)
	if err != nil {
		s.logger.Warn("student evaluation rejected", zap.String("kind", oversight.RecordStudent), zap.String("record_id", studentID), zap.Error(err))
		return nil, false, engineError(err)
	}
	resp := &dto.StudentRiskResponse{
		StudentID: eval.StudentID,
		FullName:  eval.FullName,
		ProgramID: eval.ProgramID,
		AsOf:      asOf,
		Risk:      eval.Risk,
		Quadrant:  eval.Quadrant,
		Stage:     eval.Stage,
	}
	s.persist(ctx, key, resp)
	return resp, false, nil
}

// AtRisk returns the evaluations in the High and Critical tiers, highest score first.
func (s *OversightService) AtRisk(ctx context.Context, scope dto.OversightScope) ([]oversight.StudentEvaluation, time.Time, error) {
	now, _, err := s.referenceTime(scope.AsOf)
	if err != nil {
		return nil, time.Time{}, err
	}
	run, err := s.Evaluate(ctx, scope.ProgramID, now)
	if err != nil {
		return nil, time.Time{}, err
	}
	out := make([]oversight.StudentEvaluation, 0)
	for _, e := range run.Report.Evaluations {
		if e.Risk.Tier == models.RiskTierHigh || e.Risk.Tier == models.RiskTierCritical {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Risk.Score == out[j].Risk.Score {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].Risk.Score > out[j].Risk.Score
	})
	return out, now, nil
}

// Evaluate loads the records of a program (all programs when empty) and runs the engine once.
// Dropped records are logged and counted, never returned as an error.
func (s *OversightService) Evaluate(ctx context.Context, programID string, now time.Time) (*Evaluation, error) {
	start := time.Now()
	in, err := s.load(ctx, programID, now)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDBQuery("oversight_load", time.Since(start))

	report := oversight.Evaluate(in)
	failures := make(map[string]int)
	for _, f := range report.Failures {
		failures[f.Kind]++
		s.logger.Warn("oversight record dropped",
			zap.String("kind", f.Kind),
			zap.String("record_id", f.ID),
			zap.String("reason", f.Reason),
		)
	}
	s.metrics.RecordEvaluation(time.Since(start), failures)
	return &Evaluation{Report: report, Students: in.Students, Now: now}, nil
}

func (s *OversightService) load(ctx context.Context, programID string, now time.Time) (oversight.EvaluateInput, error) {
	in := oversight.EvaluateInput{Now: now}
	completedSince := oversight.MonthWindows(now)[0].Start
	today := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		students, err := s.repo.ListStudentSnapshots(gctx, models.OversightFilter{ProgramID: programID, CompletedSince: &completedSince})
		if err != nil {
			return fmt.Errorf("students: %w", err)
		}
		in.Students = students
		return nil
	})
	g.Go(func() error {
		advisors, err := s.repo.ListAdvisorLoads(gctx, programID)
		if err != nil {
			return fmt.Errorf("advisors: %w", err)
		}
		in.Advisors = advisors
		return nil
	})
	g.Go(func() error {
		approvals, err := s.repo.ListPendingApprovals(gctx, today, today.AddDate(0, 0, oversight.ApprovalExpiryWindowDays+1))
		if err != nil {
			return fmt.Errorf("approvals: %w", err)
		}
		in.Approvals = approvals
		return nil
	})
	if err := g.Wait(); err != nil {
		return in, wrapLoadError(err, "failed to load oversight records")
	}

	ids := make([]string, 0, len(in.Students))
	for _, st := range in.Students {
		if st.Active && st.ID != "" {
			ids = append(ids, st.ID)
		}
	}
	factors, err := s.repo.ListRiskFactors(ctx, ids)
	if err != nil {
		return in, wrapLoadError(err, "failed to load risk factors")
	}
	in.StoredFactors = factors
	return in, nil
}

// referenceTime resolves an optional YYYY-MM-DD day. A past or future day is evaluated at its
// last instant; today or no day uses the current time.
func (s *OversightService) referenceTime(raw string) (time.Time, string, error) {
	now := s.now().UTC()
	if raw == "" || raw == now.Format(asOfLayout) {
		return now, now.Format(asOfLayout), nil
	}
	day, err := time.Parse(asOfLayout, raw)
	if err != nil {
		return time.Time{}, "", appErrors.Clone(appErrors.ErrValidation, "asOf must be formatted as YYYY-MM-DD")
	}
	return day.AddDate(0, 0, 1).Add(-time.Second), raw, nil
}

func (s *OversightService) persist(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, s.cfg.CacheTTL)
}

func stagePoints(run *Evaluation) []oversight.StagePoint {
	evaluated := make(map[string]struct{}, len(run.Report.Evaluations))
	for _, e := range run.Report.Evaluations {
		evaluated[e.StudentID] = struct{}{}
	}
	points := make([]oversight.StagePoint, 0, len(evaluated))
	for _, st := range run.Students {
		if _, ok := evaluated[st.ID]; !ok {
			continue
		}
		points = append(points, oversight.StagePoint{
			StudentID: st.ID,
			FullName:  st.FullName,
			Input:     oversight.StageInputFor(st),
		})
	}
	return points
}

func paginate[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := min(start+size, len(items))
	return items[start:end]
}

// engineError maps a rejected single record onto a validation error.
func engineError(err error) error {
	var factorErr *oversight.InvalidFactorError
	var capacityErr *oversight.InvalidCapacityError
	var malformedErr *oversight.MalformedRecordError
	switch {
	case errors.As(err, &factorErr), errors.As(err, &capacityErr), errors.As(err, &malformedErr):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evaluate student")
	}
}

// wrapLoadError keeps typed errors from the repository and wraps everything else as internal.
func wrapLoadError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
