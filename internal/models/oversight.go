package models

import "time"

// SeminarStatus captures where a student stands on the seminar/qualifying track.
type SeminarStatus string

// Seminar statuses. SeminarUnknown is used when the source record carries no usable value.
const (
	SeminarUnknown    SeminarStatus = ""
	SeminarNone       SeminarStatus = "none"
	SeminarIncomplete SeminarStatus = "incomplete"
	SeminarFailed     SeminarStatus = "failed"
	SeminarPassed     SeminarStatus = "passed"
)

// ProgramLevel identifies the degree type, which drives the maximum study duration.
type ProgramLevel string

// Supported program levels.
const (
	ProgramDoctorate        ProgramLevel = "doctorate"
	ProgramThesisMasters    ProgramLevel = "thesis_masters"
	ProgramNonThesisMasters ProgramLevel = "non_thesis_masters"
)

// RiskTier is the severity band derived from a composite risk score.
type RiskTier string

// Risk tiers ordered from least to most severe.
const (
	RiskTierLow      RiskTier = "low"
	RiskTierMedium   RiskTier = "medium"
	RiskTierHigh     RiskTier = "high"
	RiskTierCritical RiskTier = "critical"
)

// RiskTiers lists tiers in ascending severity.
var RiskTiers = []RiskTier{RiskTierLow, RiskTierMedium, RiskTierHigh, RiskTierCritical}

// Quadrant is a region of the attrition radar (inactivity days × risk score).
type Quadrant string

// Radar quadrants.
const (
	QuadrantSafe      Quadrant = "safe"
	QuadrantAttention Quadrant = "attention"
	QuadrantWatch     Quadrant = "watch"
	QuadrantIntervene Quadrant = "intervene"
)

// Quadrants lists radar quadrants in display order.
var Quadrants = []Quadrant{QuadrantSafe, QuadrantAttention, QuadrantWatch, QuadrantIntervene}

// StageBucket is a pipeline position in the bottleneck funnel.
type StageBucket string

// Funnel buckets.
const (
	StageCourse            StageBucket = "course_stage"
	StageSeminarPending    StageBucket = "seminar_pending"
	StageQualifyingPending StageBucket = "qualifying_pending"
	StageThesis            StageBucket = "thesis_stage"
)

// StageBuckets lists funnel buckets in pipeline order.
var StageBuckets = []StageBucket{StageCourse, StageSeminarPending, StageQualifyingPending, StageThesis}

// AdvisorStatus classifies advisor utilization.
type AdvisorStatus string

// Advisor load statuses.
const (
	AdvisorStatusLow        AdvisorStatus = "low"
	AdvisorStatusMedium     AdvisorStatus = "medium"
	AdvisorStatusHigh       AdvisorStatus = "high"
	AdvisorStatusOverloaded AdvisorStatus = "overloaded"
)

// AlertKind enumerates threshold conditions scanned by the alert generator.
type AlertKind string

// Alert kinds in evaluation order.
const (
	AlertNearDeadline     AlertKind = "near_deadline"
	AlertAdvisorOverload  AlertKind = "advisor_overload"
	AlertExpiringApproval AlertKind = "expiring_approval"
)

// AlertSeverity ranks alerts for presentation.
type AlertSeverity string

// Alert severities.
const (
	AlertSeverityMedium AlertSeverity = "medium"
	AlertSeverityHigh   AlertSeverity = "high"
)

// StudentSnapshot is the per-student academic record read for one aggregation run.
// Nullable columns stay pointers so missing values can fall back to documented defaults.
type StudentSnapshot struct {
	ID              string       `db:"id" json:"id"`
	FullName        string       `db:"full_name" json:"full_name"`
	ProgramID       string       `db:"program_id" json:"program_id"`
	ProgramLevel    ProgramLevel `db:"program_level" json:"program_level"`
	AdvisorID       *string      `db:"advisor_id" json:"advisor_id,omitempty"`
	EnrollmentDate  *time.Time   `db:"enrollment_date" json:"enrollment_date,omitempty"`
	LastLoginAt     *time.Time   `db:"last_login_at" json:"last_login_at,omitempty"`
	CurrentSemester *int         `db:"current_semester" json:"current_semester,omitempty"`
	SeminarStatus   *string      `db:"seminar_status" json:"seminar_status,omitempty"`
	InThesisStage   bool         `db:"in_thesis_stage" json:"in_thesis_stage"`
	UrgentAction    bool         `db:"urgent_action" json:"urgent_action"`
	DelaySemesters  *int         `db:"delay_semesters" json:"delay_semesters,omitempty"`
	Active          bool         `db:"active" json:"active"`
	CompletedAt     *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}

// Semester returns the current semester, defaulting to 1 when absent or invalid.
func (s StudentSnapshot) Semester() int {
	if s.CurrentSemester == nil || *s.CurrentSemester < 1 {
		return 1
	}
	return *s.CurrentSemester
}

// Delay returns the delay-semester count, defaulting to 0.
func (s StudentSnapshot) Delay() int {
	if s.DelaySemesters == nil || *s.DelaySemesters < 0 {
		return 0
	}
	return *s.DelaySemesters
}

// RiskFactor is a named weighted contributor to a student's composite score.
// Weights across a student's factors are additive and intentionally not normalised.
type RiskFactor struct {
	StudentID string  `db:"student_id" json:"-"`
	Name      string  `db:"name" json:"name"`
	SubScore  float64 `db:"sub_score" json:"sub_score"`
	Weight    float64 `db:"weight" json:"weight"`
}

// AdvisorLoadSnapshot is an advisor's current assignment count and capacity limits.
type AdvisorLoadSnapshot struct {
	ID          string `db:"id" json:"id"`
	FullName    string `db:"full_name" json:"full_name"`
	CurrentLoad int    `db:"current_load" json:"current_load"`
	SoftLimit   int    `db:"soft_limit" json:"soft_limit"`
	HardLimit   int    `db:"hard_limit" json:"hard_limit"`
}

// PendingApproval is an approval awaiting renewal, e.g. an ethics board decision.
type PendingApproval struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Kind      string    `db:"kind" json:"kind"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// OversightFilter scopes the record set loaded for an aggregation run.
type OversightFilter struct {
	ProgramID      string
	CompletedSince *time.Time
}

// RiskScoreRecord is a persisted composite score produced by a refresh run.
type RiskScoreRecord struct {
	StudentID    string    `db:"student_id" json:"student_id"`
	Score        float64   `db:"score" json:"score"`
	Tier         RiskTier  `db:"tier" json:"tier"`
	Quadrant     Quadrant  `db:"quadrant" json:"quadrant"`
	Inactive     bool      `db:"inactive" json:"inactive"`
	RunID        string    `db:"run_id" json:"run_id"`
	CalculatedAt time.Time `db:"calculated_at" json:"calculated_at"`
}

// SystemMetrics represents instrumentation counters exposed to operators.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	EvaluationRuns           uint64    `json:"evaluation_runs"`
	RecordFailures           uint64    `json:"record_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
