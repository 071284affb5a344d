package trajectory

import "fmt"

// StructureError reports a required field missing from a patient record.
// Fatal for that record; never retried.
type StructureError struct {
	Field string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("patient record missing required field %q", e.Field)
}

// FormatError reports an event date that failed to parse, naming the
// offending event by its position in the input record.
type FormatError struct {
	EventIndex int
	Value      string
	Err        error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("event %d: invalid date %q: %v", e.EventIndex, e.Value, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
