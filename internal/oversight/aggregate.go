package oversight

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/grad-oversight-api/internal/models"
)

// TrendMonths is the length of the trailing completion trend.
const TrendMonths = 12

// OverloadedAdvisorUtilization is the dashboard cut-off for counting an advisor as overloaded.
const OverloadedAdvisorUtilization = 80.0

// StudentEvaluation bundles the per-student engine outputs.
type StudentEvaluation struct {
	StudentID string         `json:"student_id"`
	FullName  string         `json:"full_name,omitempty"`
	ProgramID string         `json:"program_id,omitempty"`
	Risk      RiskScore      `json:"risk"`
	Quadrant  QuadrantResult `json:"quadrant"`
	Stage     StageResult    `json:"stage"`
}

// AggregateInput is the already-scoped record set for one reporting window.
type AggregateInput struct {
	Now         time.Time
	Students    []models.StudentSnapshot
	Evaluations []StudentEvaluation
	Advisors    []AdvisorCapacity
}

// TierCount is one bar of the severity histogram.
type TierCount struct {
	Tier       models.RiskTier `json:"tier"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// QuadrantCount is one cell of the radar histogram.
type QuadrantCount struct {
	Quadrant   models.Quadrant `json:"quadrant"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// StageCount is one funnel bucket with its urgent sub-count.
type StageCount struct {
	Bucket models.StageBucket `json:"bucket"`
	Count  int                `json:"count"`
	Urgent int                `json:"urgent"`
}

// AdvisorLoadSummary aggregates advisor capacity.
type AdvisorLoadSummary struct {
	Total           int     `json:"total"`
	Overloaded      int     `json:"overloaded"`
	MeanUtilization float64 `json:"mean_utilization"`
}

// MonthlyCount is one point of the completion trend.
type MonthlyCount struct {
	Month string    `json:"month"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`
}

// CompletionSummary tracks completions over the trailing window.
type CompletionSummary struct {
	ThisMonth             int            `json:"this_month"`
	LastMonth             int            `json:"last_month"`
	Change                int            `json:"change"`
	MeanYearsToCompletion float64        `json:"mean_years_to_completion"`
	Trend                 []MonthlyCount `json:"trend"`
}

// StageDelaySummary reports students running behind their expected stage.
type StageDelaySummary struct {
	Delayed   int     `json:"delayed"`
	MeanDelay float64 `json:"mean_delay"`
}

// ProgramCount is the active headcount of one program.
type ProgramCount struct {
	ProgramID  string `json:"program_id"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// DashboardSummary is the aggregated dashboard payload.
type DashboardSummary struct {
	GeneratedAt       time.Time          `json:"generated_at"`
	TotalStudents     int                `json:"total_students"`
	ActiveStudents    int                `json:"active_students"`
	EvaluatedStudents int                `json:"evaluated_students"`
	Tiers             []TierCount        `json:"tiers"`
	Quadrants         []QuadrantCount    `json:"quadrants"`
	Stages            []StageCount       `json:"stages"`
	UrgentStudents    int                `json:"urgent_students"`
	Advisors          AdvisorLoadSummary `json:"advisors"`
	Completions       CompletionSummary  `json:"completions"`
	StageDelays       StageDelaySummary  `json:"stage_delays"`
	Programs          []ProgramCount     `json:"programs"`
}

// Aggregate folds per-student and per-advisor results into a dashboard summary.
// It applies no filtering; callers pass the correctly scoped records.
func Aggregate(in AggregateInput) DashboardSummary {
	now := in.Now.UTC()
	summary := DashboardSummary{
		GeneratedAt:       now,
		TotalStudents:     len(in.Students),
		EvaluatedStudents: len(in.Evaluations),
	}

	for _, s := range in.Students {
		if s.Active {
			summary.ActiveStudents++
		}
	}

	summary.Tiers = tierHistogram(in.Evaluations)
	summary.Quadrants = quadrantHistogram(in.Evaluations)
	summary.Stages, summary.UrgentStudents = stageHistogram(in.Evaluations)
	summary.Advisors = advisorSummary(in.Advisors)
	summary.Completions = completionSummary(in.Students, now)
	summary.StageDelays = stageDelays(in.Students)
	summary.Programs = programDistribution(in.Students)
	return summary
}

func tierHistogram(evals []StudentEvaluation) []TierCount {
	counts := make(map[models.RiskTier]int, len(models.RiskTiers))
	for _, e := range evals {
		counts[e.Risk.Tier]++
	}
	out := make([]TierCount, 0, len(models.RiskTiers))
	for _, tier := range models.RiskTiers {
		out = append(out, TierCount{Tier: tier, Count: counts[tier], Percentage: percentage(counts[tier], len(evals))})
	}
	return out
}

func quadrantHistogram(evals []StudentEvaluation) []QuadrantCount {
	counts := make(map[models.Quadrant]int, len(models.Quadrants))
	for _, e := range evals {
		counts[e.Quadrant.Quadrant]++
	}
	out := make([]QuadrantCount, 0, len(models.Quadrants))
	for _, q := range models.Quadrants {
		out = append(out, QuadrantCount{Quadrant: q, Count: counts[q], Percentage: percentage(counts[q], len(evals))})
	}
	return out
}

func stageHistogram(evals []StudentEvaluation) ([]StageCount, int) {
	type acc struct{ count, urgent int }
	counts := make(map[models.StageBucket]acc, len(models.StageBuckets))
	urgentTotal := 0
	for _, e := range evals {
		a := counts[e.Stage.Bucket]
		a.count++
		if e.Stage.Urgent {
			a.urgent++
			urgentTotal++
		}
		counts[e.Stage.Bucket] = a
	}
	out := make([]StageCount, 0, len(models.StageBuckets))
	for _, b := range models.StageBuckets {
		out = append(out, StageCount{Bucket: b, Count: counts[b].count, Urgent: counts[b].urgent})
	}
	return out, urgentTotal
}

func advisorSummary(advisors []AdvisorCapacity) AdvisorLoadSummary {
	summary := AdvisorLoadSummary{Total: len(advisors)}
	var total float64
	for _, a := range advisors {
		total += a.Utilization
		if a.Utilization > OverloadedAdvisorUtilization {
			summary.Overloaded++
		}
	}
	if len(advisors) > 0 {
		summary.MeanUtilization = round2(total / float64(len(advisors)))
	}
	return summary
}

// MonthWindows returns TrendMonths consecutive calendar months ending with the month of now,
// oldest first. Each window spans the first to the last instant of its month.
func MonthWindows(now time.Time) []MonthlyCount {
	now = now.UTC()
	windows := make([]MonthlyCount, 0, TrendMonths)
	for i := TrendMonths - 1; i >= 0; i-- {
		start := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
		windows = append(windows, MonthlyCount{Month: start.Format("2006-01"), Start: start, End: end})
	}
	return windows
}

func completionSummary(students []models.StudentSnapshot, now time.Time) CompletionSummary {
	trend := MonthWindows(now)
	for i := range trend {
		trend[i].Count = countCompletions(students, trend[i].Start, trend[i].End)
	}

	summary := CompletionSummary{Trend: trend}
	summary.ThisMonth = trend[len(trend)-1].Count
	summary.LastMonth = trend[len(trend)-2].Count
	summary.Change = summary.ThisMonth - summary.LastMonth

	var years float64
	var graduates int
	for _, s := range students {
		if s.CompletedAt == nil || s.EnrollmentDate == nil {
			continue
		}
		elapsed := math.Abs(s.CompletedAt.Sub(*s.EnrollmentDate).Hours())
		years += elapsed / (24 * 365)
		graduates++
	}
	if graduates > 0 {
		summary.MeanYearsToCompletion = round1(years / float64(graduates))
	}
	return summary
}

func countCompletions(students []models.StudentSnapshot, start, end time.Time) int {
	count := 0
	for _, s := range students {
		if s.CompletedAt == nil {
			continue
		}
		at := s.CompletedAt.UTC()
		if !at.Before(start) && !at.After(end) {
			count++
		}
	}
	return count
}

func stageDelays(students []models.StudentSnapshot) StageDelaySummary {
	summary := StageDelaySummary{}
	total := 0
	for _, s := range students {
		if !s.Active || s.Delay() <= 0 {
			continue
		}
		summary.Delayed++
		total += s.Delay()
	}
	if summary.Delayed > 0 {
		summary.MeanDelay = round2(float64(total) / float64(summary.Delayed))
	}
	return summary
}

func programDistribution(students []models.StudentSnapshot) []ProgramCount {
	counts := map[string]int{}
	active := 0
	for _, s := range students {
		if !s.Active {
			continue
		}
		counts[s.ProgramID]++
		active++
	}
	out := make([]ProgramCount, 0, len(counts))
	for programID, count := range counts {
		pct := 0
		if active > 0 {
			pct = int(math.Round(float64(count) / float64(active) * 100))
		}
		out = append(out, ProgramCount{ProgramID: programID, Count: count, Percentage: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].ProgramID < out[j].ProgramID
		}
		return out[i].Count > out[j].Count
	})
	return out
}

func percentage(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(n) / float64(total) * 100)
}
