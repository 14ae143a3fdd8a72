package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Property names an editable event field.
type Property string

const (
	PropSubject     Property = "subject"
	PropStart       Property = "start"
	PropEnd         Property = "end"
	PropDescription Property = "description"
	PropLocation    Property = "location"
	PropStatus      Property = "status"
	PropAllDay      Property = "allday"
)

var properties = []Property{PropSubject, PropStart, PropEnd, PropDescription, PropLocation, PropStatus, PropAllDay}

// Properties lists every property accepted by WithUpdatedProperty.
func Properties() []Property {
	out := make([]Property, len(properties))
	copy(out, properties)
	return out
}

// ParseProperty resolves a property name case-insensitively.
func ParseProperty(name string) (Property, error) {
	p := Property(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range properties {
		if p == known {
			return p, nil
		}
	}
	return "", &UnknownPropertyError{Name: name}
}

// WithUpdatedProperty returns a copy of e with one field replaced by value,
// validated the same way New validates.
func (e Event) WithUpdatedProperty(p Property, value string) (Event, error) {
	out := e
	switch p {
	case PropSubject:
		out.Subject = value
	case PropStart:
		t, err := ParseTimestamp(value, e.Start)
		if err != nil {
			return Event{}, invalid("start", "%s", err)
		}
		out.Start = t
	case PropEnd:
		t, err := ParseTimestamp(value, e.End)
		if err != nil {
			return Event{}, invalid("end", "%s", err)
		}
		out.End = t
	case PropDescription:
		out.Description = value
	case PropLocation:
		out.Location = value
	case PropStatus:
		v, err := ParseVisibility(value)
		if err != nil {
			return Event{}, err
		}
		out.Visibility = v
	case PropAllDay:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return Event{}, invalid("allday", "%q is not a boolean", value)
		}
		out.AllDay = b
	default:
		return Event{}, &UnknownPropertyError{Name: string(p)}
	}
	if err := out.Validate(); err != nil {
		return Event{}, err
	}
	return out, nil
}

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an edit value relative to ref. Accepted forms:
//
//	2025-06-01T09:00:00Z / 2025-06-01T09:00:00+02:00  absolute (RFC 3339)
//	2025-06-01T09:00                                  wall clock in ref's zone
//	2025-06-01                                        new date, ref's time of day
//	09:30                                             ref's date, new time of day
//
// The result is always expressed in ref's zone.
func ParseTimestamp(value string, ref time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	loc := ref.Location()
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	if d, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), loc), nil
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if c, err := time.Parse(layout, value); err == nil {
			return time.Date(ref.Year(), ref.Month(), ref.Day(), c.Hour(), c.Minute(), c.Second(), 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}
