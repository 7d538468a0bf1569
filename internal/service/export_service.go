package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grad-oversight-api/internal/dto"
	"github.com/noah-isme/grad-oversight-api/internal/oversight"
	appErrors "github.com/noah-isme/grad-oversight-api/pkg/errors"
	"github.com/noah-isme/grad-oversight-api/pkg/export"
	"github.com/noah-isme/grad-oversight-api/pkg/storage"
)

type atRiskSource interface {
	AtRisk(ctx context.Context, scope dto.OversightScope) ([]oversight.StudentEvaluation, time.Time, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// Download is an opened export file ready to be streamed.
type Download struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ExportService renders the at-risk student list and hands out signed download links.
type ExportService struct {
	source    atRiskSource
	storage   fileStorage
	renderers map[export.Format]export.Renderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. CSV and PDF renderers are used unless others are given.
func NewExportService(source atRiskSource, store fileStorage, signer *storage.SignedURLSigner, validate *validator.Validate, cfg ExportConfig, logger *zap.Logger, renderers ...export.Renderer) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if len(renderers) == 0 {
		renderers = []export.Renderer{export.NewCSVExporter(), export.NewPDFExporter()}
	}
	byFormat := make(map[export.Format]export.Renderer, len(renderers))
	for _, r := range renderers {
		byFormat[r.Format()] = r
	}
	return &ExportService{
		source:    source,
		storage:   store,
		renderers: byFormat,
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders the High and Critical tier students, stores the file and signs a download link.
func (s *ExportService) Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	format, ok := export.ParseFormat(req.Format)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("format %s is not enabled", format))
	}

	evals, now, err := s.source.AtRisk(ctx, dto.OversightScope{ProgramID: req.ProgramID, AsOf: req.AsOf})
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(atRiskDataset(evals, now, req.ProgramID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	relPath, err := s.storage.Save(buildFilename(exportID, req.ProgramID, now, format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("at-risk export generated", zap.String("export_id", exportID), zap.String("format", string(format)), zap.Int("rows", len(evals)))
	return &dto.ExportResponse{
		ExportID:  exportID,
		Format:    string(format),
		Rows:      len(evals),
		URL:       fmt.Sprintf("%s/oversight/exports/download?token=%s", prefix, url.QueryEscape(token)),
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// Open validates a download token and opens the file it points at.
func (s *ExportService) Open(token string) (*Download, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	_, relPath, _, err := s.signer.Parse(token)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return nil, appErrors.Clone(appErrors.ErrExpired, "download link expired")
	case err != nil:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	format, _ := export.ParseFormat(strings.TrimPrefix(path.Ext(relPath), "."))
	contentType := "application/octet-stream"
	if r, ok := s.renderers[format]; ok {
		contentType = r.ContentType()
	}
	return &Download{File: file, Filename: path.Base(relPath), ContentType: contentType}, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

var atRiskColumns = []string{"Student ID", "Name", "Program", "Risk Score", "Tier", "Quadrant", "Days Since Login", "Stage", "Urgent"}

func atRiskDataset(evals []oversight.StudentEvaluation, now time.Time, programID string) export.Dataset {
	title := "At-risk students"
	if programID != "" {
		title = fmt.Sprintf("At-risk students: %s", programID)
	}
	rows := make([][]string, 0, len(evals))
	for _, e := range evals {
		urgent := "no"
		if e.Stage.Urgent {
			urgent = "yes"
		}
		rows = append(rows, []string{
			e.StudentID,
			e.FullName,
			e.ProgramID,
			strconv.FormatFloat(e.Risk.Score, 'f', 1, 64),
			string(e.Risk.Tier),
			string(e.Quadrant.Quadrant),
			strconv.Itoa(e.Quadrant.DaysSinceLogin),
			string(e.Stage.Bucket),
			urgent,
		})
	}
	return export.Dataset{Title: title, GeneratedAt: now.UTC(), Columns: atRiskColumns, Rows: rows}
}

func buildFilename(exportID, programID string, now time.Time, format export.Format) string {
	return fmt.Sprintf("at-risk/%s_%s_%s.%s", sanitizeFilename(programID), now.UTC().Format("20060102_150405"), exportID[:8], format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 64 {
		return result[:64]
	}
	return result
}
