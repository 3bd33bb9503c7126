package models

import "fmt"

// ValidationError reports a missing or malformed required field on a
// value-object constructor
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
