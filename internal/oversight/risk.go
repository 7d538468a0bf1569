// Package oversight implements the risk classification and cohort aggregation
// engine behind the graduate oversight dashboard. Every function is pure: it
// reads already-fetched records, never mutates them and performs no I/O.
package oversight

import (
	"math"
	"time"

	"github.com/noah-isme/grad-oversight-api/internal/models"
)

// Tier lower bounds. A score belongs to the highest tier whose bound it reaches.
const (
	MediumTierFloor   = 31.0
	HighTierFloor     = 51.0
	CriticalTierFloor = 71.0
	MaxRiskScore      = 100.0
)

// Standard factor names produced by DeriveFactors.
const (
	FactorInactivity      = "inactivity"
	FactorDeadlineOverrun = "deadline_overrun"
	FactorSeminarFailure  = "seminar_failure"
)

const (
	inactivityWeight      = 0.30
	deadlineOverrunWeight = 0.50
	seminarFailureWeight  = 0.20

	passiveDays = 90
)

// RiskScore is a composite score with its severity tier.
type RiskScore struct {
	Score   float64             `json:"score"`
	Tier    models.RiskTier     `json:"tier"`
	Factors []models.RiskFactor `json:"factors,omitempty"`
}

// ScoreRisk combines weighted factors into a composite score in [0,100].
//
// Weights are additive: a student's factor weights are not required to sum to 1,
// so the raw sum can exceed 100 and is then clamped.
func ScoreRisk(factors []models.RiskFactor) (RiskScore, error) {
	var sum float64
	for _, f := range factors {
		if f.Weight < 0 || f.SubScore < 0 {
			return RiskScore{}, &InvalidFactorError{Factor: f.Name, Weight: f.Weight, SubScore: f.SubScore}
		}
		sum += f.Weight * f.SubScore * 100
	}
	score := clamp(round1(sum), 0, MaxRiskScore)
	return RiskScore{Score: score, Tier: TierFor(score), Factors: factors}, nil
}

// TierFor maps a score to its severity tier. Lower bounds are inclusive.
func TierFor(score float64) models.RiskTier {
	switch {
	case score >= CriticalTierFloor:
		return models.RiskTierCritical
	case score >= HighTierFloor:
		return models.RiskTierHigh
	case score >= MediumTierFloor:
		return models.RiskTierMedium
	default:
		return models.RiskTierLow
	}
}

// DeriveFactors builds the standard inactivity, deadline and seminar factors for a student.
func DeriveFactors(s models.StudentSnapshot, now time.Time) []models.RiskFactor {
	days := NormalizeDays(DaysSinceLogin(s.LastLoginAt, now))
	var inactivity float64
	switch {
	case days > InactivityThresholdDays:
		inactivity = 1
	case days > passiveDays:
		inactivity = 0.5
	}

	var seminar float64
	switch ParseSeminarStatus(stringValue(s.SeminarStatus)) {
	case models.SeminarFailed:
		seminar = 1
	case models.SeminarIncomplete:
		seminar = 0.5
	}

	return []models.RiskFactor{
		{StudentID: s.ID, Name: FactorInactivity, SubScore: inactivity, Weight: inactivityWeight},
		{StudentID: s.ID, Name: FactorDeadlineOverrun, SubScore: deadlineOverrun(s.ProgramLevel, s.Semester()), Weight: deadlineOverrunWeight},
		{StudentID: s.ID, Name: FactorSeminarFailure, SubScore: seminar, Weight: seminarFailureWeight},
	}
}

// deadlineOverrun scores how close a student is to the program's maximum duration.
func deadlineOverrun(level models.ProgramLevel, semester int) float64 {
	var maxSemesters, warning int
	switch level {
	case models.ProgramDoctorate:
		maxSemesters, warning = 12, 2
	case models.ProgramThesisMasters:
		maxSemesters, warning = 6, 1
	default:
		maxSemesters, warning = 3, 0
	}
	switch {
	case semester >= maxSemesters:
		return 1
	case warning > 0 && semester >= maxSemesters-warning:
		return 0.5
	default:
		return 0
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
