package calendar

import (
	"errors"
	"fmt"
)

// Data-level failures. Callers are expected to report them and carry on.
var (
	ErrConflict               = errors.New("event conflicts with an existing event")
	ErrDuplicateEvent         = errors.New("an event with the same subject, start and end already exists")
	ErrNotFound               = errors.New("event not found")
	ErrAmbiguousEvent         = errors.New("more than one event matches")
	ErrRecurringEventNotFound = errors.New("recurring event not found")
	ErrNoOccurrences          = errors.New("recurring event produces no occurrences")
	ErrCalendarExists         = errors.New("calendar already exists")
	ErrCalendarNotFound       = errors.New("calendar not found")
	ErrNoActiveCalendar       = errors.New("no calendar in use")
)

var recoverable = []error{
	ErrConflict,
	ErrDuplicateEvent,
	ErrNotFound,
	ErrAmbiguousEvent,
	ErrRecurringEventNotFound,
	ErrNoOccurrences,
	ErrCalendarExists,
	ErrCalendarNotFound,
	ErrNoActiveCalendar,
}

// IsRecoverable reports whether err is a data-level failure rather than a
// malformed request or a misuse of the API.
func IsRecoverable(err error) bool {
	for _, target := range recoverable {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// UnsupportedPropertyError is returned when a property exists but cannot be
// edited in the requested scope, e.g. "start" on a whole series or "color"
// on a calendar.
type UnsupportedPropertyError struct {
	Scope string
	Name  string
}

func (e *UnsupportedPropertyError) Error() string {
	return fmt.Sprintf("property %q is not supported for %s edits", e.Name, e.Scope)
}
