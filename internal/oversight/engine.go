package oversight

import (
	"time"

	"github.com/noah-isme/grad-oversight-api/internal/models"
)

// Record kinds reported in failures.
const (
	RecordStudent  = "student"
	RecordAdvisor  = "advisor"
	RecordApproval = "approval"
)

// EvaluateInput is everything one aggregation run needs.
type EvaluateInput struct {
	Now           time.Time
	Students      []models.StudentSnapshot
	StoredFactors map[string][]models.RiskFactor
	Advisors      []models.AdvisorLoadSnapshot
	Approvals     []models.PendingApproval
}

// Report is the outcome of an aggregation run, including the records that were dropped.
type Report struct {
	Summary     DashboardSummary    `json:"summary"`
	Evaluations []StudentEvaluation `json:"-"`
	Advisors    []AdvisorCapacity   `json:"-"`
	Alerts      []Alert             `json:"alerts"`
	Failures    []RecordFailure     `json:"failures"`
}

// EvaluateStudent scores and classifies one student. Stored factors are added to the derived ones.
func EvaluateStudent(s models.StudentSnapshot, stored []models.RiskFactor, now time.Time) (StudentEvaluation, error) {
	if s.ID == "" {
		return StudentEvaluation{}, &MalformedRecordError{Kind: RecordStudent, Field: "id"}
	}
	factors := append(DeriveFactors(s, now), stored...)
	risk, err := ScoreRisk(factors)
	if err != nil {
		return StudentEvaluation{}, err
	}
	return StudentEvaluation{
		StudentID: s.ID,
		FullName:  s.FullName,
		ProgramID: s.ProgramID,
		Risk:      risk,
		Quadrant:  ClassifyQuadrant(DaysSinceLogin(s.LastLoginAt, now), risk.Score),
		Stage:     ClassifyStage(StageInputFor(s)),
	}, nil
}

// Evaluate runs the full pipeline. A bad record is dropped and reported in Failures;
// it never aborts the run. Only active students are scored and scanned for alerts,
// while inactive ones still feed the completion trend.
func Evaluate(in EvaluateInput) Report {
	report := Report{
		Evaluations: make([]StudentEvaluation, 0, len(in.Students)),
		Advisors:    make([]AdvisorCapacity, 0, len(in.Advisors)),
		Failures:    make([]RecordFailure, 0),
	}

	students := make([]models.StudentSnapshot, 0, len(in.Students))
	active := make([]models.StudentSnapshot, 0, len(in.Students))
	for _, s := range in.Students {
		if !s.Active {
			if s.ID == "" {
				report.Failures = append(report.Failures, newFailure(RecordStudent, "", &MalformedRecordError{Kind: RecordStudent, Field: "id"}))
				continue
			}
			students = append(students, s)
			continue
		}
		eval, err := EvaluateStudent(s, in.StoredFactors[s.ID], in.Now)
		if err != nil {
			report.Failures = append(report.Failures, newFailure(RecordStudent, s.ID, err))
			continue
		}
		students = append(students, s)
		active = append(active, s)
		report.Evaluations = append(report.Evaluations, eval)
	}

	for _, a := range in.Advisors {
		capacity, err := EvaluateCapacity(a)
		if err != nil {
			report.Failures = append(report.Failures, newFailure(RecordAdvisor, a.ID, err))
			continue
		}
		report.Advisors = append(report.Advisors, capacity)
	}

	approvals := make([]models.PendingApproval, 0, len(in.Approvals))
	for _, a := range in.Approvals {
		if a.ID == "" {
			report.Failures = append(report.Failures, newFailure(RecordApproval, "", &MalformedRecordError{Kind: RecordApproval, Field: "id"}))
			continue
		}
		approvals = append(approvals, a)
	}

	report.Summary = Aggregate(AggregateInput{
		Now:         in.Now,
		Students:    students,
		Evaluations: report.Evaluations,
		Advisors:    report.Advisors,
	})
	report.Alerts = GenerateAlerts(AlertInput{
		Now:       in.Now,
		Students:  active,
		Advisors:  report.Advisors,
		Approvals: approvals,
	})
	return report
}

// QuadrantPoints projects evaluations onto radar points for drill-down.
func QuadrantPoints(evals []StudentEvaluation) []QuadrantPoint {
	points := make([]QuadrantPoint, 0, len(evals))
	for _, e := range evals {
		points = append(points, QuadrantPoint{
			StudentID:      e.StudentID,
			FullName:       e.FullName,
			DaysSinceLogin: e.Quadrant.DaysSinceLogin,
			RiskScore:      e.Risk.Score,
		})
	}
	return points
}
