package oversight

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grad-oversight-api/internal/models"
)

func TestGenerateAlertsSummarizesOverloadedAdvisors(t *testing.T) {
	var advisors []AdvisorCapacity
	for i := 0; i < 7; i++ {
		util := 101.0 + float64(i)
		if i >= 5 {
			util = 100
		}
		advisors = append(advisors, AdvisorCapacity{AdvisorID: fmt.Sprintf("adv-%d", i), FullName: fmt.Sprintf("Advisor %d", i), Utilization: util})
	}

	alerts := GenerateAlerts(AlertInput{Now: time.Now(), Advisors: advisors})
	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, models.AlertAdvisorOverload, alert.Kind)
	assert.Equal(t, models.AlertSeverityHigh, alert.Severity)
	assert.Equal(t, 5, alert.Count)
	assert.Equal(t, []string{"adv-0", "adv-1", "adv-2", "adv-3", "adv-4"}, alert.SourceIDs)
	assert.Contains(t, alert.Message, "Advisor 4 exceeds the quota by 5%")
}

func TestGenerateAlertsExactCapacityIsNotOverload(t *testing.T) {
	alerts := GenerateAlerts(AlertInput{Now: time.Now(), Advisors: []AdvisorCapacity{{AdvisorID: "a", Utilization: 100}}})
	assert.Empty(t, alerts)
}

func TestGenerateAlertsCapsSourceIDs(t *testing.T) {
	var students []models.StudentSnapshot
	for i := 0; i < 8; i++ {
		students = append(students, models.StudentSnapshot{ID: fmt.Sprintf("s-%d", i), DelaySemesters: ptrInt(9 + i)})
	}
	students = append(students, models.StudentSnapshot{ID: "on-time", DelaySemesters: ptrInt(8)})

	alerts := GenerateAlerts(AlertInput{Now: time.Now(), Students: students})
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertNearDeadline, alerts[0].Kind)
	assert.Equal(t, 8, alerts[0].Count)
	assert.Len(t, alerts[0].SourceIDs, MaxAlertSources)
	assert.Contains(t, alerts[0].Message, "longest delay: 16")
}

func TestGenerateAlertsApprovalWindowIsInclusive(t *testing.T) {
	now := time.Date(2026, 4, 1, 15, 30, 0, 0, time.UTC)
	approvals := []models.PendingApproval{
		{ID: "yesterday", ExpiresAt: time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)},
		{ID: "today", ExpiresAt: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)},
		{ID: "edge", ExpiresAt: time.Date(2026, 4, 15, 23, 59, 0, 0, time.UTC)},
		{ID: "beyond", ExpiresAt: time.Date(2026, 4, 16, 0, 0, 0, 0, time.UTC)},
	}

	alerts := GenerateAlerts(AlertInput{Now: now, Approvals: approvals})
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertExpiringApproval, alerts[0].Kind)
	assert.Equal(t, []string{"today", "edge"}, alerts[0].SourceIDs)
}

func TestGenerateAlertsOrderIsStable(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	in := AlertInput{
		Now:       now,
		Students:  []models.StudentSnapshot{{ID: "s", DelaySemesters: ptrInt(10)}},
		Advisors:  []AdvisorCapacity{{AdvisorID: "a", Utilization: 150}},
		Approvals: []models.PendingApproval{{ID: "p", ExpiresAt: now.AddDate(0, 0, 3)}},
	}

	first := GenerateAlerts(in)
	require.Len(t, first, 3)
	assert.Equal(t, models.AlertNearDeadline, first[0].Kind)
	assert.Equal(t, models.AlertAdvisorOverload, first[1].Kind)
	assert.Equal(t, models.AlertExpiringApproval, first[2].Kind)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, GenerateAlerts(in))
	}
}
