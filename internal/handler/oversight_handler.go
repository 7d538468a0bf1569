package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grad-oversight-api/internal/dto"
	"github.com/noah-isme/grad-oversight-api/internal/middleware"
	"github.com/noah-isme/grad-oversight-api/internal/oversight"
	"github.com/noah-isme/grad-oversight-api/internal/service"
	appErrors "github.com/noah-isme/grad-oversight-api/pkg/errors"
	"github.com/noah-isme/grad-oversight-api/pkg/jobs"
	"github.com/noah-isme/grad-oversight-api/pkg/response"
)

type oversightService interface {
	Dashboard(ctx context.Context, scope dto.OversightScope) (*dto.DashboardResponse, bool, error)
	Radar(ctx context.Context, req dto.RadarRequest) (*dto.RadarResponse, bool, error)
	Funnel(ctx context.Context, req dto.FunnelRequest) (*dto.FunnelResponse, bool, error)
	Advisors(ctx context.Context, programID string) (*dto.AdvisorsResponse, bool, error)
	Alerts(ctx context.Context, scope dto.OversightScope) ([]oversight.Alert, bool, error)
	StudentRisk(ctx context.Context, studentID, asOf string) (*dto.StudentRiskResponse, bool, error)
}

type riskRefresher interface {
	Trigger(ctx context.Context, programID string) (jobs.Status, error)
	Status(id string) (jobs.Status, error)
}

type atRiskExporter interface {
	Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error)
	Open(token string) (*service.Download, error)
}

// OversightHandler exposes the graduate oversight dashboard endpoints.
type OversightHandler struct {
	service  oversightService
	refresh  riskRefresher
	exporter atRiskExporter
}

// NewOversightHandler constructs the handler. refresh and exporter may be nil when those features are disabled.
func NewOversightHandler(service oversightService, refresh riskRefresher, exporter atRiskExporter) *OversightHandler {
	return &OversightHandler{service: service, refresh: refresh, exporter: exporter}
}

// Dashboard godoc
// @Summary Oversight dashboard summary
// @Description Risk tiers, radar quadrants, stage funnel, advisor load, completion trend and alerts.
// @Tags Oversight
// @Produce json
// @Param programId query string false "Program ID"
// @Param asOf query string false "Reference day (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /oversight/dashboard [get]
func (h *OversightHandler) Dashboard(c *gin.Context) {
	var scope dto.OversightScope
	if !bindQuery(c, &scope) {
		return
	}
	programID, err := middleware.ScopeProgram(c, scope.ProgramID)
	if err != nil {
		response.Error(c, err)
		return
	}
	scope.ProgramID = programID

	start := time.Now()
	resp, hit, err := h.service.Dashboard(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "dropped_records", len(resp.Failures))
	response.JSON(c, http.StatusOK, resp, nil, responseMeta(c, start, hit))
}

// Radar godoc
// @Summary Attrition radar
// @Description Quadrant histogram; pass quadrant to list the students placed in it.
// @Tags Oversight
// @Produce json
// @Param programId query string false "Program ID"
// @Param asOf query string false "Reference day (YYYY-MM-DD)"
// @Param quadrant query string false "safe, attention, watch or intervene"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /oversight/radar [get]
func (h *OversightHandler) Radar(c *gin.Context) {
	var req dto.RadarRequest
	if !bindQuery(c, &req) {
		return
	}
	programID, err := middleware.ScopeProgram(c, req.ProgramID)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.ProgramID = programID

	start := time.Now()
	resp, hit, err := h.service.Radar(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	var pagination *response.Pagination
	if resp.Quadrant != "" {
		pagination = pageOf(req.Page, req.PageSize, resp.Total)
	}
	response.JSON(c, http.StatusOK, resp, pagination, responseMeta(c, start, hit))
}

// Funnel godoc
// @Summary Stage bottleneck funnel
// @Description Funnel buckets with urgent counts; pass bucket to list its students.
// @Tags Oversight
// @Produce json
// @Param programId query string false "Program ID"
// @Param asOf query string false "Reference day (YYYY-MM-DD)"
// @Param bucket query string false "course_stage, seminar_pending, qualifying_pending or thesis_stage"
// @Param urgentOnly query bool false "Only students needing urgent action"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /oversight/funnel [get]
func (h *OversightHandler) Funnel(c *gin.Context) {
	var req dto.FunnelRequest
	if !bindQuery(c, &req) {
		return
	}
	programID, err := middleware.ScopeProgram(c, req.ProgramID)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.ProgramID = programID

	start := time.Now()
	resp, hit, err := h.service.Funnel(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	var pagination *response.Pagination
	if resp.Bucket != "" {
		pagination = pageOf(req.Page, req.PageSize, resp.Total)
	}
	response.JSON(c, http.StatusOK, resp, pagination, responseMeta(c, start, hit))
}

// Advisors godoc
// @Summary Advisor capacity
// @Tags Oversight
// @Produce json
// @Param programId query string false "Program ID"
// @Success 200 {object} response.Envelope
// @Router /oversight/advisors [get]
func (h *OversightHandler) Advisors(c *gin.Context) {
	programID, err := middleware.ScopeProgram(c, strings.TrimSpace(c.Query("programId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	resp, hit, err := h.service.Advisors(c.Request.Context(), programID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil, responseMeta(c, start, hit))
}

// Alerts godoc
// @Summary Threshold alerts
// @Tags Oversight
// @Produce json
// @Param programId query string false "Program ID"
// @Param asOf query string false "Reference day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /oversight/alerts [get]
func (h *OversightHandler) Alerts(c *gin.Context) {
	var scope dto.OversightScope
	if !bindQuery(c, &scope) {
		return
	}
	programID, err := middleware.ScopeProgram(c, scope.ProgramID)
	if err != nil {
		response.Error(c, err)
		return
	}
	scope.ProgramID = programID

	start := time.Now()
	alerts, hit, err := h.service.Alerts(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, nil, responseMeta(c, start, hit))
}

// StudentRisk godoc
// @Summary Risk breakdown for one student
// @Tags Oversight
// @Produce json
// @Param id path string true "Student ID"
// @Param asOf query string false "Reference day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /oversight/students/{id}/risk [get]
func (h *OversightHandler) StudentRisk(c *gin.Context) {
	start := time.Now()
	resp, hit, err := h.service.StudentRisk(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("asOf")))
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := middleware.ScopeProgram(c, resp.ProgramID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil, responseMeta(c, start, hit))
}

// TriggerRefresh godoc
// @Summary Queue a risk score refresh
// @Tags Oversight
// @Accept json
// @Produce json
// @Param payload body service.RiskRefreshPayload false "Optional program scope"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /oversight/risk/refresh [post]
func (h *OversightHandler) TriggerRefresh(c *gin.Context) {
	if h.refresh == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "risk refresh is disabled"))
		return
	}
	var payload service.RiskRefreshPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
			return
		}
	}
	status, err := h.refresh.Trigger(c.Request.Context(), payload.ProgramID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.RefreshJobResponse{Job: status})
}

// RefreshStatus godoc
// @Summary Risk refresh job status
// @Tags Oversight
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /oversight/risk/refresh/{id} [get]
func (h *OversightHandler) RefreshStatus(c *gin.Context) {
	if h.refresh == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "risk refresh is disabled"))
		return
	}
	status, err := h.refresh.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RefreshJobResponse{Job: status}, nil)
}

// CreateExport godoc
// @Summary Export the at-risk student list
// @Tags Oversight
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Router /oversight/exports [post]
func (h *OversightHandler) CreateExport(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled"))
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	programID, err := middleware.ScopeProgram(c, req.ProgramID)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.ProgramID = programID

	resp, err := h.exporter.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// DownloadExport godoc
// @Summary Download an export through its signed link
// @Tags Oversight
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 410 {object} response.Envelope
// @Router /oversight/exports/download [get]
func (h *OversightHandler) DownloadExport(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled"))
		return
	}
	dl, err := h.exporter.Open(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer dl.File.Close() //nolint:errcheck

	info, err := dl.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), dl.ContentType, dl.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", dl.Filename),
	})
}

func bindQuery(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return false
	}
	return true
}

func responseMeta(c *gin.Context, start time.Time, hit bool) map[string]interface{} {
	middleware.SetCacheHit(c, hit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}

func pageOf(page, size, total int) *response.Pagination {
	page, size = dto.NormalizePage(page, size)
	return &response.Pagination{Page: page, PageSize: size, TotalCount: total}
}
