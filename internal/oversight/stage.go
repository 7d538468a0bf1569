package oversight

import (
	"strings"

	"github.com/noah-isme/grad-oversight-api/internal/models"
)

// CourseStageSemesters is the semester count below which a student without seminar signals is in coursework.
const CourseStageSemesters = 4

// StageInput carries the fields the funnel classifier reads.
type StageInput struct {
	SeminarStatus   models.SeminarStatus
	CurrentSemester int
	InThesisStage   bool
	UrgentAction    bool
}

// StageResult is a funnel placement.
type StageResult struct {
	Bucket models.StageBucket `json:"bucket"`
	Urgent bool               `json:"urgent"`
	Rule   string             `json:"rule"`
}

type stageRule struct {
	name   string
	match  func(StageInput) bool
	bucket models.StageBucket
}

// stageRules is evaluated top to bottom and the first match wins. Any seminar
// signal outranks the semester fallback, even for first-semester students.
var stageRules = []stageRule{
	{
		name: "seminar_pending",
		match: func(in StageInput) bool {
			return in.SeminarStatus == models.SeminarNone || in.SeminarStatus == models.SeminarIncomplete
		},
		bucket: models.StageSeminarPending,
	},
	{
		name:   "seminar_failed",
		match:  func(in StageInput) bool { return in.SeminarStatus == models.SeminarFailed },
		bucket: models.StageQualifyingPending,
	},
	{
		name:   "thesis",
		match:  func(in StageInput) bool { return in.SeminarStatus == models.SeminarPassed || in.InThesisStage },
		bucket: models.StageThesis,
	},
	{
		name:   "early_semester",
		match:  func(in StageInput) bool { return in.CurrentSemester < CourseStageSemesters },
		bucket: models.StageCourse,
	},
	{
		name:   "default",
		match:  func(StageInput) bool { return true },
		bucket: models.StageCourse,
	},
}

// ClassifyStage places a student into a funnel bucket. Urgency is independent of the bucket.
func ClassifyStage(in StageInput) StageResult {
	for _, rule := range stageRules {
		if rule.match(in) {
			return StageResult{Bucket: rule.bucket, Urgent: in.UrgentAction, Rule: rule.name}
		}
	}
	// unreachable: the default rule always matches
	return StageResult{Bucket: models.StageCourse, Urgent: in.UrgentAction, Rule: "default"}
}

// StageInputFor extracts classifier input from a snapshot.
func StageInputFor(s models.StudentSnapshot) StageInput {
	return StageInput{
		SeminarStatus:   ParseSeminarStatus(stringValue(s.SeminarStatus)),
		CurrentSemester: s.Semester(),
		InThesisStage:   s.InThesisStage,
		UrgentAction:    s.UrgentAction,
	}
}

// ParseSeminarStatus normalises stored seminar values, including seminar letter grades.
func ParseSeminarStatus(raw string) models.SeminarStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "none":
		return models.SeminarNone
	case "incomplete", "b":
		return models.SeminarIncomplete
	case "failed", "c", "d", "f":
		return models.SeminarFailed
	case "passed", "a":
		return models.SeminarPassed
	default:
		return models.SeminarUnknown
	}
}

// StagePoint is one student's funnel placement, used for drill-down.
type StagePoint struct {
	StudentID string      `json:"student_id"`
	FullName  string      `json:"full_name,omitempty"`
	Input     StageInput  `json:"-"`
	Result    StageResult `json:"result"`
}

// FilterByStage returns the points whose input classifies into bucket, re-using the rule table.
// When urgentOnly is set, only urgent students are kept.
func FilterByStage(points []StagePoint, bucket models.StageBucket, urgentOnly bool) []StagePoint {
	matched := make([]StagePoint, 0)
	for _, p := range points {
		res := ClassifyStage(p.Input)
		if res.Bucket != bucket || (urgentOnly && !res.Urgent) {
			continue
		}
		p.Result = res
		matched = append(matched, p)
	}
	return matched
}

// ParseStageBucket validates a bucket name.
func ParseStageBucket(raw string) (models.StageBucket, bool) {
	for _, b := range models.StageBuckets {
		if string(b) == raw {
			return b, true
		}
	}
	return "", false
}
