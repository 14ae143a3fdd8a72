package event

import (
	"fmt"
	"strings"
	"time"
)

// Visibility marks an event as public or private.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// ParseVisibility accepts "public" or "private" in any case.
func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(strings.ToLower(strings.TrimSpace(s))) {
	case Public:
		return Public, nil
	case Private:
		return Private, nil
	}
	return "", invalid("status", "%q is neither public nor private", s)
}

// Event is a single timed occurrence. Events are values: every change goes
// through WithUpdatedProperty or the helpers below and yields a new Event.
//
// SeriesID is empty for standalone events and set on every occurrence
// generated from the same recurring add.
type Event struct {
	Subject     string
	Start       time.Time
	End         time.Time
	Description string
	Location    string
	Visibility  Visibility
	AllDay      bool
	SeriesID    string
}

// Option customizes an Event built by New.
type Option func(*Event)

func WithDescription(d string) Option { return func(e *Event) { e.Description = d } }
func WithLocation(l string) Option    { return func(e *Event) { e.Location = l } }
func WithVisibility(v Visibility) Option {
	return func(e *Event) { e.Visibility = v }
}
func WithAllDay(allDay bool) Option { return func(e *Event) { e.AllDay = allDay } }
func WithSeriesID(id string) Option { return func(e *Event) { e.SeriesID = id } }

// New builds and validates an Event.
func New(subject string, start, end time.Time, opts ...Option) (Event, error) {
	e := Event{
		Subject:    subject,
		Start:      start,
		End:        end,
		Visibility: Public,
	}
	for _, opt := range opts {
		opt(&e)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// AllDayOn returns an all-day event covering the given date in loc.
func AllDayOn(subject string, date time.Time, loc *time.Location, opts ...Option) (Event, error) {
	if loc == nil {
		loc = date.Location()
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return New(subject, start, start.AddDate(0, 0, 1), append(opts, WithAllDay(true))...)
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Subject) == "" {
		return invalid("subject", "must not be empty")
	}
	if e.Start.IsZero() {
		return invalid("start", "missing")
	}
	if e.End.IsZero() {
		return invalid("end", "missing")
	}
	if !e.End.After(e.Start) {
		return invalid("end", "%s is not after start %s", e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
	}
	switch e.Visibility {
	case Public, Private, "":
	default:
		return invalid("status", "unknown visibility %q", e.Visibility)
	}
	return nil
}

// Duration is End minus Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// SameKey reports whether both events have the same subject and the same
// start and end instants, regardless of zone.
func (e Event) SameKey(o Event) bool {
	return e.Subject == o.Subject && e.Start.Equal(o.Start) && e.End.Equal(o.End)
}

// Matches reports whether e is the event identified by subject, start and end.
func (e Event) Matches(subject string, start, end time.Time) bool {
	return e.Subject == subject && e.Start.Equal(start) && e.End.Equal(end)
}

// In re-expresses the event in loc. Instants do not move.
func (e Event) In(loc *time.Location) Event {
	if loc == nil {
		return e
	}
	e.Start = e.Start.In(loc)
	e.End = e.End.In(loc)
	return e
}

// ShiftDays moves the event by whole calendar days in its own zone, keeping
// the wall-clock time of day.
func (e Event) ShiftDays(days int) Event {
	d := e.Duration()
	e.Start = e.Start.AddDate(0, 0, days)
	e.End = e.Start.Add(d)
	return e
}

// IsBusyAt reports whether t falls inside [Start, End).
func (e Event) IsBusyAt(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

func (e Event) String() string {
	s := fmt.Sprintf("<%s @ %s-%s", e.Subject, e.Start.Format("2006-01-02 15:04 MST"), e.End.Format("15:04"))
	if e.SeriesID != "" {
		s += " series=" + e.SeriesID
	}
	return s + ">"
}
