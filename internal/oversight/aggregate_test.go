package oversight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grad-oversight-api/internal/models"
)

func ptrTime(t time.Time) *time.Time { return &t }

func ptrInt(v int) *int { return &v }

func TestAggregateEmptyInput(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	summary := Aggregate(AggregateInput{Now: now})

	assert.Equal(t, 0, summary.TotalStudents)
	assert.Equal(t, 0, summary.EvaluatedStudents)
	require.Len(t, summary.Tiers, len(models.RiskTiers))
	for _, tier := range summary.Tiers {
		assert.Zero(t, tier.Count)
		assert.Zero(t, tier.Percentage)
	}
	require.Len(t, summary.Quadrants, len(models.Quadrants))
	require.Len(t, summary.Stages, len(models.StageBuckets))
	assert.Equal(t, AdvisorLoadSummary{}, summary.Advisors)
	assert.Len(t, summary.Completions.Trend, TrendMonths)
	assert.Zero(t, summary.Completions.MeanYearsToCompletion)
	assert.Empty(t, summary.Programs)
}

func TestMonthWindowsCoverTrailingYear(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	windows := MonthWindows(now)

	require.Len(t, windows, TrendMonths)
	assert.Equal(t, "2025-04", windows[0].Month)
	assert.Equal(t, "2026-03", windows[len(windows)-1].Month)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), windows[10].Start)
	assert.Equal(t, time.Date(2026, 2, 28, 23, 59, 59, 999999999, time.UTC), windows[10].End)
}

func TestAggregateCompletionBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	enrolled := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	students := []models.StudentSnapshot{
		{ID: "feb", EnrollmentDate: ptrTime(enrolled), CompletedAt: ptrTime(time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC))},
		{ID: "mar", EnrollmentDate: ptrTime(enrolled), CompletedAt: ptrTime(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))},
		{ID: "old", CompletedAt: ptrTime(time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC))},
	}

	summary := Aggregate(AggregateInput{Now: now, Students: students})
	trend := summary.Completions.Trend

	assert.Equal(t, 1, trend[11].Count)
	assert.Equal(t, 1, trend[10].Count)
	total := 0
	for _, m := range trend {
		total += m.Count
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, summary.Completions.ThisMonth)
	assert.Equal(t, 1, summary.Completions.LastMonth)
	assert.Equal(t, 0, summary.Completions.Change)
	assert.Equal(t, 4.0, summary.Completions.MeanYearsToCompletion)
}

func TestAggregateHistogramsAndPrograms(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	students := []models.StudentSnapshot{
		{ID: "a", ProgramID: "cs", Active: true, DelaySemesters: ptrInt(2)},
		{ID: "b", ProgramID: "cs", Active: true},
		{ID: "c", ProgramID: "bio", Active: true, DelaySemesters: ptrInt(5)},
		{ID: "d", ProgramID: "bio", Active: false, DelaySemesters: ptrInt(9)},
	}
	evals := []StudentEvaluation{
		{StudentID: "a", Risk: RiskScore{Score: 80, Tier: models.RiskTierCritical}, Quadrant: QuadrantResult{Quadrant: models.QuadrantIntervene}, Stage: StageResult{Bucket: models.StageThesis, Urgent: true}},
		{StudentID: "b", Risk: RiskScore{Score: 10, Tier: models.RiskTierLow}, Quadrant: QuadrantResult{Quadrant: models.QuadrantSafe}, Stage: StageResult{Bucket: models.StageCourse}},
		{StudentID: "c", Risk: RiskScore{Score: 40, Tier: models.RiskTierMedium}, Quadrant: QuadrantResult{Quadrant: models.QuadrantSafe}, Stage: StageResult{Bucket: models.StageThesis}},
	}
	advisors := []AdvisorCapacity{{AdvisorID: "x", Utilization: 120}, {AdvisorID: "y", Utilization: 80}, {AdvisorID: "z", Utilization: 40}}

	summary := Aggregate(AggregateInput{Now: now, Students: students, Evaluations: evals, Advisors: advisors})

	assert.Equal(t, 4, summary.TotalStudents)
	assert.Equal(t, 3, summary.ActiveStudents)
	assert.Equal(t, 3, summary.EvaluatedStudents)
	assert.Equal(t, TierCount{Tier: models.RiskTierCritical, Count: 1, Percentage: 33.33}, summary.Tiers[3])
	assert.Equal(t, QuadrantCount{Quadrant: models.QuadrantSafe, Count: 2, Percentage: 66.67}, summary.Quadrants[0])
	assert.Equal(t, StageCount{Bucket: models.StageThesis, Count: 2, Urgent: 1}, summary.Stages[3])
	assert.Equal(t, 1, summary.UrgentStudents)

	assert.Equal(t, AdvisorLoadSummary{Total: 3, Overloaded: 1, MeanUtilization: 80}, summary.Advisors)
	assert.Equal(t, StageDelaySummary{Delayed: 2, MeanDelay: 3.5}, summary.StageDelays)

	require.Len(t, summary.Programs, 2)
	assert.Equal(t, ProgramCount{ProgramID: "cs", Count: 2, Percentage: 67}, summary.Programs[0])
	assert.Equal(t, ProgramCount{ProgramID: "bio", Count: 1, Percentage: 33}, summary.Programs[1])
}
