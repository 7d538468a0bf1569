package oversight

import (
	"fmt"
	"time"

	"github.com/noah-isme/grad-oversight-api/internal/models"
)

// Alert thresholds.
const (
	// CriticalDelaySemesters is the delay above which a student is near the maximum duration.
	CriticalDelaySemesters = 8
	// ApprovalExpiryWindowDays is how far ahead pending approvals are checked.
	ApprovalExpiryWindowDays = 14
	// MaxAlertSources caps the source ids attached to a summarized alert.
	MaxAlertSources = 5
)

// Alert is a summarized threshold breach.
type Alert struct {
	Kind      models.AlertKind     `json:"kind"`
	Severity  models.AlertSeverity `json:"severity"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Count     int                  `json:"count"`
	SourceIDs []string             `json:"source_ids"`
}

// AlertInput is the state scanned for threshold breaches.
type AlertInput struct {
	Now       time.Time
	Students  []models.StudentSnapshot
	Advisors  []AdvisorCapacity
	Approvals []models.PendingApproval
}

type alertCheck func(AlertInput) (Alert, bool)

// alertChecks run in this order and the output keeps it regardless of severity.
var alertChecks = []alertCheck{
	nearDeadlineAlert,
	advisorOverloadAlert,
	expiringApprovalAlert,
}

// GenerateAlerts evaluates every condition and returns at most one alert per kind.
func GenerateAlerts(in AlertInput) []Alert {
	alerts := make([]Alert, 0, len(alertChecks))
	for _, check := range alertChecks {
		if alert, ok := check(in); ok {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

func nearDeadlineAlert(in AlertInput) (Alert, bool) {
	var ids []string
	count, maxDelay := 0, 0
	for _, s := range in.Students {
		if s.Delay() <= CriticalDelaySemesters {
			continue
		}
		count++
		maxDelay = max(maxDelay, s.Delay())
		if len(ids) < MaxAlertSources {
			ids = append(ids, s.ID)
		}
	}
	if count == 0 {
		return Alert{}, false
	}
	return Alert{
		Kind:      models.AlertNearDeadline,
		Severity:  models.AlertSeverityHigh,
		Title:     "Maximum duration risk",
		Message:   fmt.Sprintf("%d %s exceeded %d delay semesters (longest delay: %d).", count, plural(count, "student", "students"), CriticalDelaySemesters, maxDelay),
		Count:     count,
		SourceIDs: ids,
	}, true
}

func advisorOverloadAlert(in AlertInput) (Alert, bool) {
	var ids []string
	count := 0
	var peak AdvisorCapacity
	for _, a := range in.Advisors {
		if a.Utilization <= OverloadedUtilization {
			continue
		}
		count++
		if count == 1 || a.Utilization > peak.Utilization {
			peak = a
		}
		if len(ids) < MaxAlertSources {
			ids = append(ids, a.AdvisorID)
		}
	}
	if count == 0 {
		return Alert{}, false
	}
	name := peak.FullName
	if name == "" {
		name = peak.AdvisorID
	}
	excess := int(peak.Utilization - OverloadedUtilization + 0.5)
	return Alert{
		Kind:      models.AlertAdvisorOverload,
		Severity:  models.AlertSeverityHigh,
		Title:     "Advisor overload",
		Message:   fmt.Sprintf("%d %s above hard capacity; %s exceeds the quota by %d%%.", count, plural(count, "advisor", "advisors"), name, excess),
		Count:     count,
		SourceIDs: ids,
	}, true
}

func expiringApprovalAlert(in AlertInput) (Alert, bool) {
	today := truncateDay(in.Now)
	limit := today.AddDate(0, 0, ApprovalExpiryWindowDays)
	var ids []string
	count := 0
	for _, a := range in.Approvals {
		day := truncateDay(a.ExpiresAt)
		if day.Before(today) || day.After(limit) {
			continue
		}
		count++
		if len(ids) < MaxAlertSources {
			ids = append(ids, a.ID)
		}
	}
	if count == 0 {
		return Alert{}, false
	}
	return Alert{
		Kind:      models.AlertExpiringApproval,
		Severity:  models.AlertSeverityHigh,
		Title:     "Approvals expiring",
		Message:   fmt.Sprintf("%d pending %s expire within %d days.", count, plural(count, "approval", "approvals"), ApprovalExpiryWindowDays),
		Count:     count,
		SourceIDs: ids,
	}, true
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
