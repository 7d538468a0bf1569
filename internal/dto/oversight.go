package dto

import (
	"time"

	"github.com/noah-isme/grad-oversight-api/internal/oversight"
	"github.com/noah-isme/grad-oversight-api/pkg/jobs"
)

// Drill-down paging defaults.
const (
	DefaultPageSize = 25
	MaxPageSize     = 200
)

// NormalizePage applies the drill-down paging defaults.
func NormalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// OversightScope narrows an aggregation run to one program and reference day.
type OversightScope struct {
	ProgramID string `form:"programId" json:"programId" validate:"omitempty,max=64"`
	AsOf      string `form:"asOf" json:"asOf" validate:"omitempty,datetime=2006-01-02"`
}

// RadarRequest asks for the radar histogram and optionally one quadrant's students.
type RadarRequest struct {
	OversightScope
	Quadrant string `form:"quadrant" validate:"omitempty,quadrant"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

// FunnelRequest asks for the stage funnel and optionally one bucket's students.
type FunnelRequest struct {
	OversightScope
	Bucket     string `form:"bucket" validate:"omitempty,stage_bucket"`
	UrgentOnly bool   `form:"urgentOnly"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

// ExportRequest asks for the at-risk list in a given format.
type ExportRequest struct {
	Format    string `json:"format" validate:"required,oneof=csv pdf"`
	ProgramID string `json:"programId" validate:"omitempty,max=64"`
	AsOf      string `json:"asOf" validate:"omitempty,datetime=2006-01-02"`
}

// DashboardResponse is the full oversight dashboard.
type DashboardResponse struct {
	ProgramID string                     `json:"program_id,omitempty"`
	AsOf      string                     `json:"as_of"`
	Summary   oversight.DashboardSummary `json:"summary"`
	Alerts    []oversight.Alert          `json:"alerts"`
	Failures  []oversight.RecordFailure  `json:"failures"`
}

// RadarResponse carries the quadrant histogram plus an optional drill-down page.
type RadarResponse struct {
	AsOf      string                    `json:"as_of"`
	Quadrants []oversight.QuadrantCount `json:"quadrants"`
	Quadrant  string                    `json:"quadrant,omitempty"`
	Students  []oversight.QuadrantPoint `json:"students,omitempty"`
	Total     int                       `json:"total"`
}

// FunnelResponse carries the stage funnel plus an optional drill-down page.
type FunnelResponse struct {
	AsOf           string                 `json:"as_of"`
	Stages         []oversight.StageCount `json:"stages"`
	UrgentStudents int                    `json:"urgent_students"`
	Bucket         string                 `json:"bucket,omitempty"`
	Students       []oversight.StagePoint `json:"students,omitempty"`
	Total          int                    `json:"total"`
}

// AdvisorsResponse lists advisor capacity, most utilized first.
type AdvisorsResponse struct {
	Summary  oversight.AdvisorLoadSummary `json:"summary"`
	Advisors []oversight.AdvisorCapacity  `json:"advisors"`
}

// StudentRiskResponse breaks down one student's classification.
type StudentRiskResponse struct {
	StudentID string                   `json:"student_id"`
	FullName  string                   `json:"full_name,omitempty"`
	ProgramID string                   `json:"program_id,omitempty"`
	AsOf      string                   `json:"as_of"`
	Risk      oversight.RiskScore      `json:"risk"`
	Quadrant  oversight.QuadrantResult `json:"quadrant"`
	Stage     oversight.StageResult    `json:"stage"`
}

// RefreshJobResponse reports a risk refresh job.
type RefreshJobResponse struct {
	Job jobs.Status `json:"job"`
}

// ExportResponse points at a rendered at-risk list.
type ExportResponse struct {
	ExportID  string    `json:"export_id"`
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
