package oversight

import (
	"time"

	"github.com/noah-isme/grad-oversight-api/internal/models"
)

// Radar axis constants.
const (
	// NeverLoggedIn is the days-since-login sentinel for students with no recorded login.
	NeverLoggedIn = 999
	// MaxInactivityDays is the upper bound of the inactivity axis.
	MaxInactivityDays = 365
	// InactivityThresholdDays splits the inactivity axis; only values strictly above it are inactive.
	InactivityThresholdDays = 180
	// RiskThreshold splits the risk axis; values at or above it are high risk.
	RiskThreshold = 70.0
)

// QuadrantResult is a radar placement with the axis values that produced it.
type QuadrantResult struct {
	Quadrant       models.Quadrant `json:"quadrant"`
	DaysSinceLogin int             `json:"days_since_login"`
	RiskScore      float64         `json:"risk_score"`
}

// QuadrantPoint is one student's position on the radar, used for drill-down.
type QuadrantPoint struct {
	StudentID      string  `json:"student_id"`
	FullName       string  `json:"full_name,omitempty"`
	DaysSinceLogin int     `json:"days_since_login"`
	RiskScore      float64 `json:"risk_score"`
}

// DaysSinceLogin counts whole days between the last login and now.
// A missing login yields the NeverLoggedIn sentinel.
func DaysSinceLogin(lastLogin *time.Time, now time.Time) int {
	if lastLogin == nil {
		return NeverLoggedIn
	}
	elapsed := now.Sub(*lastLogin)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

// NormalizeDays maps the never-logged-in sentinel to the worst case and clamps to the axis range.
func NormalizeDays(days int) int {
	switch {
	case days == NeverLoggedIn:
		return MaxInactivityDays
	case days > MaxInactivityDays:
		return MaxInactivityDays
	case days < 0:
		return 0
	default:
		return days
	}
}

// ClassifyQuadrant places a (days, risk) pair on the radar.
func ClassifyQuadrant(days int, risk float64) QuadrantResult {
	days = NormalizeDays(days)
	return QuadrantResult{
		Quadrant:       quadrantOf(days, risk),
		DaysSinceLogin: days,
		RiskScore:      risk,
	}
}

// FilterByQuadrant returns the points that classify into q, in input order.
func FilterByQuadrant(points []QuadrantPoint, q models.Quadrant) []QuadrantPoint {
	matched := make([]QuadrantPoint, 0)
	for _, p := range points {
		if quadrantOf(NormalizeDays(p.DaysSinceLogin), p.RiskScore) == q {
			matched = append(matched, p)
		}
	}
	return matched
}

// quadrantOf is the single boundary implementation shared by classification and drill-down.
// Boundary values go to the higher-risk side on the risk axis (>= 70) and to the
// safe side on the inactivity axis (exactly 180 days is not inactive).
func quadrantOf(normalizedDays int, risk float64) models.Quadrant {
	inactive := normalizedDays > InactivityThresholdDays
	highRisk := risk >= RiskThreshold
	switch {
	case inactive && highRisk:
		return models.QuadrantIntervene
	case inactive:
		return models.QuadrantWatch
	case highRisk:
		return models.QuadrantAttention
	default:
		return models.QuadrantSafe
	}
}

// ParseQuadrant validates a quadrant name.
func ParseQuadrant(raw string) (models.Quadrant, bool) {
	for _, q := range models.Quadrants {
		if string(q) == raw {
			return q, true
		}
	}
	return "", false
}
