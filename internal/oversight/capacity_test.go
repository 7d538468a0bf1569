package oversight

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grad-oversight-api/internal/models"
)

func TestEvaluateCapacityOverloadedAdvisor(t *testing.T) {
	capacity, err := EvaluateCapacity(models.AdvisorLoadSnapshot{ID: "adv-1", CurrentLoad: 18, SoftLimit: 15, HardLimit: 15})
	require.NoError(t, err)
	assert.Equal(t, 120.0, capacity.Utilization)
	assert.Equal(t, models.AdvisorStatusOverloaded, capacity.Status)
	assert.Equal(t, 0, capacity.RemainingCapacity)
	assert.True(t, capacity.Overloaded)
	assert.True(t, capacity.OverSoftLimit)
}

func TestEvaluateCapacityZeroHardLimit(t *testing.T) {
	capacity, err := EvaluateCapacity(models.AdvisorLoadSnapshot{ID: "adv-2", CurrentLoad: 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, capacity.Utilization)
	assert.Equal(t, models.AdvisorStatusLow, capacity.Status)
	assert.Equal(t, 0, capacity.RemainingCapacity)
	assert.False(t, capacity.Overloaded)
}

func TestEvaluateCapacityStatusThresholds(t *testing.T) {
	cases := []struct {
		load, hard int
		want       models.AdvisorStatus
	}{
		{49, 100, models.AdvisorStatusLow},
		{5, 10, models.AdvisorStatusMedium},
		{79, 100, models.AdvisorStatusMedium},
		{8, 10, models.AdvisorStatusHigh},
		{99, 100, models.AdvisorStatusHigh},
		{10, 10, models.AdvisorStatusOverloaded},
	}
	for _, tc := range cases {
		capacity, err := EvaluateCapacity(models.AdvisorLoadSnapshot{ID: "adv", CurrentLoad: tc.load, HardLimit: tc.hard})
		require.NoError(t, err)
		assert.Equal(t, tc.want, capacity.Status, "load %d / hard %d", tc.load, tc.hard)
	}
}

func TestEvaluateCapacityRemaining(t *testing.T) {
	capacity, err := EvaluateCapacity(models.AdvisorLoadSnapshot{ID: "adv", CurrentLoad: 6, SoftLimit: 8, HardLimit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, capacity.RemainingCapacity)
	assert.Equal(t, 60.0, capacity.Utilization)
	assert.False(t, capacity.OverSoftLimit)
}

func TestEvaluateCapacityValidation(t *testing.T) {
	cases := []models.AdvisorLoadSnapshot{
		{ID: "adv", CurrentLoad: -1, SoftLimit: 1, HardLimit: 2},
		{ID: "adv", CurrentLoad: 1, SoftLimit: -1, HardLimit: 2},
		{ID: "adv", CurrentLoad: 1, SoftLimit: 5, HardLimit: 4},
	}
	for _, tc := range cases {
		_, err := EvaluateCapacity(tc)
		var capErr *InvalidCapacityError
		assert.True(t, errors.As(err, &capErr), "%+v", tc)
	}

	_, err := EvaluateCapacity(models.AdvisorLoadSnapshot{CurrentLoad: 1, HardLimit: 2})
	var malformed *MalformedRecordError
	assert.True(t, errors.As(err, &malformed))
}
