package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrBounds        = errors.New("bounds error")
	ErrDataShape     = errors.New("data shape error")
)

// ConfigurationError reports an unrecognized or invalid selector such as a
// season, period, region, or scenario setting.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// BoundsError reports a window [Start, End) that does not fit in a series of
// the given Length.
type BoundsError struct {
	Start  int
	End    int
	Length int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("window [%d, %d) outside series of length %d", e.Start, e.End, e.Length)
}

func (e *BoundsError) Is(target error) bool { return target == ErrBounds }

// DataShapeError reports arrays whose shapes do not match what an operation
// requires.
type DataShapeError struct {
	Want   []int
	Got    []int
	Reason string
}

func (e *DataShapeError) Error() string {
	if e.Want == nil && e.Got == nil {
		return "data shape: " + e.Reason
	}
	return fmt.Sprintf("data shape: %s (want %v, got %v)", e.Reason, e.Want, e.Got)
}

func (e *DataShapeError) Is(target error) bool { return target == ErrDataShape }

func configErr(field, value, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

func shapeErr(reason string, want, got []int) error {
	return &DataShapeError{Want: want, Got: got, Reason: reason}
}
