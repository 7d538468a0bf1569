package oversight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/grad-oversight-api/internal/models"
)

func TestClassifyQuadrantBoundaries(t *testing.T) {
	cases := []struct {
		days int
		risk float64
		want models.Quadrant
	}{
		{0, 0, models.QuadrantSafe},
		{180, 69.9, models.QuadrantSafe},
		{180, 70, models.QuadrantAttention},
		{181, 69.9, models.QuadrantWatch},
		{181, 70, models.QuadrantIntervene},
		{365, 100, models.QuadrantIntervene},
	}
	for _, tc := range cases {
		res := ClassifyQuadrant(tc.days, tc.risk)
		assert.Equal(t, tc.want, res.Quadrant, "days=%d risk=%.1f", tc.days, tc.risk)
	}
}

func TestClassifyQuadrantNeverLoggedIn(t *testing.T) {
	res := ClassifyQuadrant(NeverLoggedIn, 85)
	assert.Equal(t, 365, res.DaysSinceLogin)
	assert.Equal(t, models.QuadrantIntervene, res.Quadrant)
	assert.Equal(t, 85.0, res.RiskScore)
	assert.Equal(t, models.RiskTierCritical, TierFor(res.RiskScore))
}

func TestNormalizeDays(t *testing.T) {
	assert.Equal(t, 365, NormalizeDays(NeverLoggedIn))
	assert.Equal(t, 365, NormalizeDays(400))
	assert.Equal(t, 0, NormalizeDays(-3))
	assert.Equal(t, 180, NormalizeDays(180))
}

func TestDaysSinceLogin(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, NeverLoggedIn, DaysSinceLogin(nil, now))

	last := now.Add(-(180*24 + 11) * time.Hour)
	assert.Equal(t, 180, DaysSinceLogin(&last, now))

	future := now.Add(time.Hour)
	assert.Equal(t, 0, DaysSinceLogin(&future, now))
}

func TestQuadrantForwardAndReverseAgree(t *testing.T) {
	var points []QuadrantPoint
	for _, days := range []int{0, 90, 179, 180, 181, 365, NeverLoggedIn} {
		for _, risk := range []float64{0, 69.9, 70, 70.1, 100} {
			points = append(points, QuadrantPoint{StudentID: "s", DaysSinceLogin: days, RiskScore: risk})
		}
	}

	for _, p := range points {
		forward := ClassifyQuadrant(p.DaysSinceLogin, p.RiskScore)
		assert.Equal(t, forward, ClassifyQuadrant(p.DaysSinceLogin, p.RiskScore))
		assert.Contains(t, FilterByQuadrant(points, forward.Quadrant), p)
	}

	total := 0
	for _, q := range models.Quadrants {
		total += len(FilterByQuadrant(points, q))
	}
	assert.Equal(t, len(points), total)
}

func TestParseQuadrant(t *testing.T) {
	q, ok := ParseQuadrant("intervene")
	assert.True(t, ok)
	assert.Equal(t, models.QuadrantIntervene, q)

	_, ok = ParseQuadrant("panic")
	assert.False(t, ok)
}
