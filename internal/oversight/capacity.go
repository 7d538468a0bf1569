package oversight

import "github.com/noah-isme/grad-oversight-api/internal/models"

// Utilization thresholds, in percent of the hard limit.
const (
	OverloadedUtilization = 100.0
	HighUtilization       = 80.0
	MediumUtilization     = 50.0
)

// AdvisorCapacity is the derived load state of one advisor.
type AdvisorCapacity struct {
	AdvisorID         string               `json:"advisor_id"`
	FullName          string               `json:"full_name,omitempty"`
	CurrentLoad       int                  `json:"current_load"`
	SoftLimit         int                  `json:"soft_limit"`
	HardLimit         int                  `json:"hard_limit"`
	Utilization       float64              `json:"utilization"`
	RemainingCapacity int                  `json:"remaining_capacity"`
	Status            models.AdvisorStatus `json:"status"`
	Overloaded        bool                 `json:"overloaded"`
	OverSoftLimit     bool                 `json:"over_soft_limit"`
}

// EvaluateCapacity computes utilization, remaining capacity and status for an advisor.
// A zero hard limit yields zero utilization.
func EvaluateCapacity(a models.AdvisorLoadSnapshot) (AdvisorCapacity, error) {
	if a.ID == "" {
		return AdvisorCapacity{}, &MalformedRecordError{Kind: RecordAdvisor, Field: "id"}
	}
	switch {
	case a.CurrentLoad < 0:
		return AdvisorCapacity{}, &InvalidCapacityError{AdvisorID: a.ID, Reason: "current load is negative"}
	case a.SoftLimit < 0 || a.HardLimit < 0:
		return AdvisorCapacity{}, &InvalidCapacityError{AdvisorID: a.ID, Reason: "limits must not be negative"}
	case a.SoftLimit > a.HardLimit:
		return AdvisorCapacity{}, &InvalidCapacityError{AdvisorID: a.ID, Reason: "soft limit exceeds hard limit"}
	}

	var utilization float64
	if a.HardLimit > 0 {
		utilization = float64(a.CurrentLoad*100) / float64(a.HardLimit)
	}

	return AdvisorCapacity{
		AdvisorID:         a.ID,
		FullName:          a.FullName,
		CurrentLoad:       a.CurrentLoad,
		SoftLimit:         a.SoftLimit,
		HardLimit:         a.HardLimit,
		Utilization:       utilization,
		RemainingCapacity: max(0, a.HardLimit-a.CurrentLoad),
		Status:            advisorStatus(utilization),
		Overloaded:        utilization >= OverloadedUtilization,
		OverSoftLimit:     a.CurrentLoad > a.SoftLimit,
	}, nil
}

func advisorStatus(utilization float64) models.AdvisorStatus {
	switch {
	case utilization >= OverloadedUtilization:
		return models.AdvisorStatusOverloaded
	case utilization >= HighUtilization:
		return models.AdvisorStatusHigh
	case utilization >= MediumUtilization:
		return models.AdvisorStatusMedium
	default:
		return models.AdvisorStatusLow
	}
}
