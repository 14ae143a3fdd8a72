package event

import (
	"strconv"
	"strings"
	"time"
)

// Series-level properties, accepted only by Template.WithUpdatedProperty.
const (
	PropWeekdays Property = "weekdays"
	PropCount    Property = "count"
	PropUntil    Property = "until"
)

// Template describes a weekly-recurring series. It is never stored as an
// event itself; it is expanded into occurrences.
//
// A positive Count takes precedence over Until.
type Template struct {
	Base     Event
	Weekdays WeekdaySet
	Count    int
	Until    time.Time
}

// NewTemplate builds and validates a Template.
func NewTemplate(base Event, weekdays WeekdaySet, count int, until time.Time) (Template, error) {
	t := Template{Base: base, Weekdays: weekdays, Count: count, Until: until}
	if err := t.Validate(); err != nil {
		return Template{}, err
	}
	return t, nil
}

func (t Template) Validate() error {
	if err := t.Base.Validate(); err != nil {
		return err
	}
	if t.Weekdays.Empty() {
		return invalid("weekdays", "recurring event needs at least one weekday")
	}
	if t.Count < 0 {
		return invalid("count", "must not be negative, got %d", t.Count)
	}
	return nil
}

// Regenerates reports whether changing p rebuilds the occurrences of a
// series rather than editing them in place.
func (p Property) Regenerates() bool {
	return p == PropWeekdays || p == PropCount || p == PropUntil
}

// ParseSeriesProperty resolves a property usable on a whole series.
func ParseSeriesProperty(name string) (Property, error) {
	p := Property(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case PropWeekdays, PropCount, PropUntil:
		return p, nil
	}
	return ParseProperty(name)
}

// WithUpdatedProperty returns a copy of t with one series-level field
// replaced. Setting count clears until and the reverse, so the new
// termination rule is unambiguous.
func (t Template) WithUpdatedProperty(p Property, value string) (Template, error) {
	out := t
	switch p {
	case PropWeekdays:
		w, err := ParseWeekdays(value)
		if err != nil {
			return Template{}, err
		}
		out.Weekdays = w
	case PropCount:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return Template{}, invalid("count", "%q is not a number", value)
		}
		out.Count = n
		out.Until = time.Time{}
	case PropUntil:
		u, err := ParseUntil(value, t.Base.Start.Location())
		if err != nil {
			return Template{}, err
		}
		out.Until = u
		out.Count = 0
	default:
		base, err := t.Base.WithUpdatedProperty(p, value)
		if err != nil {
			return Template{}, err
		}
		out.Base = base
	}
	if err := out.Validate(); err != nil {
		return Template{}, err
	}
	return out, nil
}

// ParseUntil parses a repeat-until bound. A bare date means the end of that
// day in loc, so occurrences on that date are included.
func ParseUntil(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if d, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return d.AddDate(0, 0, 1).Add(-time.Second), nil
	}
	t, err := ParseTimestamp(value, time.Now().In(loc))
	if err != nil {
		return time.Time{}, invalid("until", "%s", err)
	}
	return t, nil
}

// In re-expresses the template in loc without moving any instant.
func (t Template) In(loc *time.Location) Template {
	t.Base = t.Base.In(loc)
	if !t.Until.IsZero() && loc != nil {
		t.Until = t.Until.In(loc)
	}
	return t
}
