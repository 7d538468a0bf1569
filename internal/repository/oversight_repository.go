package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/grad-oversight-api/internal/models"
	appErrors "github.com/noah-isme/grad-oversight-api/pkg/errors"
)

const studentSnapshotColumns = `s.id, s.full_name, s.program_id, p.level AS program_level, s.advisor_id,
        s.enrollment_date, u.last_login AS last_login_at, s.current_semester, s.seminar_status,
        s.in_thesis_stage, s.urgent_action, s.delay_semesters, s.active, s.completed_at
        FROM students s
        JOIN programs p ON p.id = s.program_id
        LEFT JOIN users u ON u.id = s.user_id`

// OversightRepository reads the academic records the oversight engine evaluates
// and stores the scores produced by refresh runs.
type OversightRepository struct {
	db *sqlx.DB
}

// NewOversightRepository instantiates the repository.
func NewOversightRepository(db *sqlx.DB) *OversightRepository {
	return &OversightRepository{db: db}
}

// ListStudentSnapshots returns active students, plus students completed since
// filter.CompletedSince when set, so the completion trend can be computed.
func (r *OversightRepository) ListStudentSnapshots(ctx context.Context, filter models.OversightFilter) ([]models.StudentSnapshot, error) {
	var builder strings.Builder
	builder.WriteString("SELECT ")
	builder.WriteString(studentSnapshotColumns)
	builder.WriteString(" WHERE 1=1")
	var args []interface{}
	if filter.ProgramID != "" {
		args = append(args, filter.ProgramID)
		builder.WriteString(fmt.Sprintf(" AND s.program_id = $%d", len(args)))
	}
	if filter.CompletedSince != nil {
		args = append(args, *filter.CompletedSince)
		builder.WriteString(fmt.Sprintf(" AND (s.active = TRUE OR s.completed_at >= $%d)", len(args)))
	} else {
		builder.WriteString(" AND s.active = TRUE")
	}
	builder.WriteString(" ORDER BY s.id")

	var students []models.StudentSnapshot
	if err := r.db.SelectContext(ctx, &students, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list student snapshots: %w", err)
	}
	return students, nil
}

// FindStudent loads one student snapshot regardless of enrollment state.
func (r *OversightRepository) FindStudent(ctx context.Context, id string) (*models.StudentSnapshot, error) {
	query := "SELECT " + studentSnapshotColumns + " WHERE s.id = $1"
	var student models.StudentSnapshot
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ListAdvisorLoads counts each active advisor's active advisees.
func (r *OversightRepository) ListAdvisorLoads(ctx context.Context, programID string) ([]models.AdvisorLoadSnapshot, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT a.id, a.full_name, COUNT(s.id) AS current_load, a.soft_limit, a.hard_limit
        FROM advisors a
        LEFT JOIN students s ON s.advisor_id = a.id AND s.active = TRUE
        WHERE a.active = TRUE`)
	var args []interface{}
	if programID != "" {
		args = append(args, programID)
		builder.WriteString(fmt.Sprintf(" AND a.program_id = $%d", len(args)))
	}
	builder.WriteString(" GROUP BY a.id, a.full_name, a.soft_limit, a.hard_limit ORDER BY a.id")

	var loads []models.AdvisorLoadSnapshot
	if err := r.db.SelectContext(ctx, &loads, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list advisor loads: %w", err)
	}
	return loads, nil
}

// ListPendingApprovals returns pending approvals expiring in [from, to).
func (r *OversightRepository) ListPendingApprovals(ctx context.Context, from, to time.Time) ([]models.PendingApproval, error) {
	const query = `SELECT id, student_id, kind, expires_at FROM student_approvals
        WHERE status = 'pending' AND expires_at >= $1 AND expires_at < $2
        ORDER BY expires_at ASC, id ASC`
	var approvals []models.PendingApproval
	if err := r.db.SelectContext(ctx, &approvals, query, from, to); err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	return approvals, nil
}

// ListRiskFactors returns the manually recorded risk factors of the given students, keyed by student id.
func (r *OversightRepository) ListRiskFactors(ctx context.Context, studentIDs []string) (map[string][]models.RiskFactor, error) {
	result := make(map[string][]models.RiskFactor)
	if len(studentIDs) == 0 {
		return result, nil
	}
	const query = `SELECT student_id, name, sub_score, weight FROM student_risk_factors
        WHERE student_id = ANY($1) ORDER BY student_id, name`
	var factors []models.RiskFactor
	if err := r.db.SelectContext(ctx, &factors, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list risk factors: %w", err)
	}
	for _, f := range factors {
		result[f.StudentID] = append(result[f.StudentID], f)
	}
	return result, nil
}

// SaveRiskScores upserts the latest score of every student in one transaction.
func (r *OversightRepository) SaveRiskScores(ctx context.Context, records []models.RiskScoreRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin risk score tx: %w", err)
	}
	const query = `INSERT INTO student_risk_scores (student_id, score, tier, quadrant, inactive, run_id, calculated_at)
VALUES (:student_id, :score, :tier, :quadrant, :inactive, :run_id, :calculated_at)
ON CONFLICT (student_id)
DO UPDATE SET score = EXCLUDED.score, tier = EXCLUDED.tier, quadrant = EXCLUDED.quadrant,
              inactive = EXCLUDED.inactive, run_id = EXCLUDED.run_id, calculated_at = EXCLUDED.calculated_at`
	for i := range records {
		if _, err := tx.NamedExecContext(ctx, query, records[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert risk score: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit risk score tx: %w", err)
	}
	return nil
}
