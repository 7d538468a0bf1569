package oversight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/grad-oversight-api/internal/models"
)

func TestClassifyStageRules(t *testing.T) {
	cases := []struct {
		name   string
		in     StageInput
		bucket models.StageBucket
		rule   string
	}{
		{"no seminar", StageInput{SeminarStatus: models.SeminarNone, CurrentSemester: 6}, models.StageSeminarPending, "seminar_pending"},
		{"incomplete seminar", StageInput{SeminarStatus: models.SeminarIncomplete, CurrentSemester: 2}, models.StageSeminarPending, "seminar_pending"},
		{"failed seminar overrides early semester", StageInput{SeminarStatus: models.SeminarFailed, CurrentSemester: 1}, models.StageQualifyingPending, "seminar_failed"},
		{"passed seminar", StageInput{SeminarStatus: models.SeminarPassed, CurrentSemester: 2}, models.StageThesis, "thesis"},
		{"thesis signal without seminar status", StageInput{InThesisStage: true, CurrentSemester: 9}, models.StageThesis, "thesis"},
		{"pending seminar outranks thesis signal", StageInput{SeminarStatus: models.SeminarIncomplete, InThesisStage: true}, models.StageSeminarPending, "seminar_pending"},
		{"early semester", StageInput{CurrentSemester: 3}, models.StageCourse, "early_semester"},
		{"fallback", StageInput{CurrentSemester: 7}, models.StageCourse, "default"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ClassifyStage(tc.in)
			assert.Equal(t, tc.bucket, res.Bucket)
			assert.Equal(t, tc.rule, res.Rule)
			assert.False(t, res.Urgent)
		})
	}
}

func TestClassifyStageUrgencyIndependentOfBucket(t *testing.T) {
	for _, status := range []models.SeminarStatus{models.SeminarNone, models.SeminarFailed, models.SeminarPassed, models.SeminarUnknown} {
		res := ClassifyStage(StageInput{SeminarStatus: status, CurrentSemester: 5, UrgentAction: true})
		assert.True(t, res.Urgent, "status %q", status)
	}
}

func TestParseSeminarStatus(t *testing.T) {
	cases := map[string]models.SeminarStatus{
		"none":       models.SeminarNone,
		"Incomplete": models.SeminarIncomplete,
		"B":          models.SeminarIncomplete,
		"failed":     models.SeminarFailed,
		"C":          models.SeminarFailed,
		"d":          models.SeminarFailed,
		"F":          models.SeminarFailed,
		" passed ":   models.SeminarPassed,
		"A":          models.SeminarPassed,
		"":           models.SeminarUnknown,
		"pending":    models.SeminarUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseSeminarStatus(raw), "raw %q", raw)
	}
}

func TestStageInputForDefaults(t *testing.T) {
	in := StageInputFor(models.StudentSnapshot{ID: "s"})
	assert.Equal(t, models.SeminarUnknown, in.SeminarStatus)
	assert.Equal(t, 1, in.CurrentSemester)
	assert.Equal(t, models.StageCourse, ClassifyStage(in).Bucket)
}

func TestFilterByStageMatchesClassification(t *testing.T) {
	points := []StagePoint{
		{StudentID: "a", Input: StageInput{SeminarStatus: models.SeminarFailed, CurrentSemester: 1, UrgentAction: true}},
		{StudentID: "b", Input: StageInput{SeminarStatus: models.SeminarFailed, CurrentSemester: 8}},
		{StudentID: "c", Input: StageInput{CurrentSemester: 2}},
	}

	qualifying := FilterByStage(points, models.StageQualifyingPending, false)
	assert.Len(t, qualifying, 2)
	assert.Equal(t, "a", qualifying[0].StudentID)
	assert.Equal(t, models.StageQualifyingPending, qualifying[0].Result.Bucket)

	urgent := FilterByStage(points, models.StageQualifyingPending, true)
	assert.Len(t, urgent, 1)
	assert.Equal(t, "a", urgent[0].StudentID)

	assert.Empty(t, FilterByStage(points, models.StageThesis, false))
}
