package oversight

import "fmt"

// InvalidFactorError reports a risk factor with a negative weight or sub-score.
type InvalidFactorError struct {
	Factor   string
	Weight   float64
	SubScore float64
}

func (e *InvalidFactorError) Error() string {
	return fmt.Sprintf("invalid risk factor %q: weight=%g sub_score=%g must not be negative", e.Factor, e.Weight, e.SubScore)
}

// InvalidCapacityError reports negative load/limits or a soft limit above the hard limit.
type InvalidCapacityError struct {
	AdvisorID string
	Reason    string
}

func (e *InvalidCapacityError) Error() string {
	return fmt.Sprintf("invalid capacity for advisor %q: %s", e.AdvisorID, e.Reason)
}

// MalformedRecordError reports a record missing a required identifier.
type MalformedRecordError struct {
	Kind  string
	Field string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: missing %s", e.Kind, e.Field)
}

// RecordFailure describes one record dropped from an aggregation run.
type RecordFailure struct {
	Kind   string `json:"kind"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

func newFailure(kind, id string, err error) RecordFailure {
	return RecordFailure{Kind: kind, ID: id, Reason: err.Error()}
}
