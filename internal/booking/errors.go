package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrEventTypeNotConfigured is returned by operations that need an event
	// type when none is configured.
	ErrEventTypeNotConfigured = errors.New("CAL_EVENT_TYPE_ID is not configured")

	// ErrInvalidStartTime matches errors for start times that are not ISO 8601.
	ErrInvalidStartTime = errors.New("invalid start time")

	// ErrInvalidDate matches errors for dates and clock times that do not
	// follow YYYY-MM-DD and HH:MM.
	ErrInvalidDate = errors.New("invalid date")
)

type startTimeError struct {
	input string
}

func (e *startTimeError) Error() string {
	return fmt.Sprintf("Invalid start time format '%s'. Please use ISO 8601 format.", e.input)
}

func (e *startTimeError) Is(target error) bool {
	return target == ErrInvalidStartTime
}
