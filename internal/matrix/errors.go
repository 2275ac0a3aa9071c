package matrix

import (
	"errors"
	"fmt"
)

// MissingFieldError reports a record without a required field
type MissingFieldError struct {
	Index  int
	Field  string
	Reason string
}

func (e *MissingFieldError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("record %d: field %q %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("record %d: missing field %q", e.Index, e.Field)
}

// ShapeError reports embeddings of inconsistent dimensionality
type ShapeError struct {
	Index int
	Want  int
	Got   int
}

func (e *ShapeError) Error() string {
	if e.Index < 0 {
		return "no records to cluster"
	}
	return fmt.Sprintf("record %d: embedding has %d dimensions, expected %d", e.Index, e.Got, e.Want)
}

// IsMissingField reports whether err is a MissingFieldError
func IsMissingField(err error) bool {
	var target *MissingFieldError
	return errors.As(err, &target)
}

// IsShapeError reports whether err is a ShapeError
func IsShapeError(err error) bool {
	var target *ShapeError
	return errors.As(err, &target)
}
