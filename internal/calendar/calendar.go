package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"calmgr/internal/event"
	appLog "calmgr/internal/log"
	"calmgr/internal/recurrence"
)

// Calendar owns one named set of events in one time zone. It is not safe for
// concurrent use; AddEvent checks then inserts.
type Calendar struct {
	name   string
	loc    *time.Location
	events []event.Event
	series map[string]series

	newID  func() string
	expand recurrence.Options
}

// series remembers how a recurring add was made so that series-level edits
// can regenerate it.
type series struct {
	template    event.Template
	autoDecline bool
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithIDGenerator replaces the series ID generator (uuid by default).
func WithIDGenerator(fn func() string) Option {
	return func(c *Calendar) { c.newID = fn }
}

// WithMaxOccurrences caps the size of one until-bounded recurring expansion.
func WithMaxOccurrences(n int) Option {
	return func(c *Calendar) { c.expand.MaxOccurrences = n }
}

// New creates an empty calendar. A nil loc means UTC.
func New(name string, loc *time.Location, opts ...Option) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	c := &Calendar{
		name:   name,
		loc:    loc,
		series: make(map[string]series),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calendar) Name() string {
	return c.name
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Len is the number of stored events.
func (c *Calendar) Len() int {
	return len(c.events)
}

// AddEvent stores e as a standalone event.
//
// An event with the same subject, start and end as a stored one is always
// rejected with ErrDuplicateEvent. An overlapping event is rejected with
// ErrConflict only when autoDecline is set; otherwise it is stored next to
// the events it overlaps.
func (c *Calendar) AddEvent(e event.Event, autoDecline bool) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e = e.In(c.loc)
	e.SeriesID = ""
	if err := admit(e, c.events, autoDecline); err != nil {
		return err
	}
	c.events = append(c.events, e)
	appLog.Debug("event added", "calendar", c.name, "subject", e.Subject, "start", e.Start.Format(time.RFC3339))
	return nil
}

// AddRecurringEvent expands t and stores every occurrence under one new
// series ID, which it returns. Each occurrence is checked against the
// existing events (not against its siblings); the whole series is rejected
// if any occurrence is a duplicate, or conflicts while autoDecline is set.
func (c *Calendar) AddRecurringEvent(t event.Template, autoDecline bool) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	id := c.newID()
	occ := c.materialize(t, id)
	if len(occ) == 0 {
		return "", ErrNoOccurrences
	}
	for _, o := range occ {
		if err := admit(o, c.events, autoDecline); err != nil {
			return "", err
		}
	}
	c.events = append(c.events, occ...)
	c.series[id] = series{template: t, autoDecline: autoDecline}
	appLog.Debug("recurring event added", "calendar", c.name, "subject", t.Base.Subject, "series", id, "occurrences", len(occ))
	return id, nil
}

// materialize expands t in its own zone, so the wall-clock time of day is
// kept across DST changes, then moves the occurrences into the calendar zone.
func (c *Calendar) materialize(t event.Template, id string) []event.Event {
	occ := recurrence.ExpandWith(t, id, c.expand)
	for i := range occ {
		occ[i] = occ[i].In(c.loc)
	}
	return occ
}

func admit(e event.Event, pool []event.Event, autoDecline bool) error {
	for _, other := range pool {
		if other.SameKey(e) {
			return fmt.Errorf("%w: %s", ErrDuplicateEvent, e)
		}
	}
	if !autoDecline {
		return nil
	}
	for _, other := range pool {
		if event.HasConflict(e, other) {
			return fmt.Errorf("%w: %s overlaps %s", ErrConflict, e, other)
		}
	}
	return nil
}

// Events returns a copy of every stored event, ordered by start.
func (c *Calendar) Events() []event.Event {
	return c.filter(func(event.Event) bool { return true })
}

// EventsOnDate returns the events overlapping the calendar day of date,
// read as a year/month/day in the calendar's zone.
func (c *Calendar) EventsOnDate(date time.Time) []event.Event {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.loc)
	end := start.AddDate(0, 0, 1)
	return c.filter(func(e event.Event) bool {
		return e.Start.Before(end) && e.End.After(start)
	})
}

// EventsBetween returns the events overlapping [start, end].
func (c *Calendar) EventsBetween(start, end time.Time) []event.Event {
	if end.Before(start) {
		return []event.Event{}
	}
	return c.filter(func(e event.Event) bool {
		return !e.Start.After(end) && e.End.After(start)
	})
}

// IsBusyAt reports whether some event covers t.
func (c *Calendar) IsBusyAt(t time.Time) bool {
	for _, e := range c.events {
		if e.IsBusyAt(t) {
			return true
		}
	}
	return false
}

// Series returns the stored occurrences of one series.
func (c *Calendar) Series(id string) []event.Event {
	return c.filter(func(e event.Event) bool { return e.SeriesID == id })
}

// Template returns the template a series was generated from.
func (c *Calendar) Template(id string) (event.Template, bool) {
	s, ok := c.series[id]
	return s.template, ok
}

func (c *Calendar) filter(keep func(event.Event) bool) []event.Event {
	out := make([]event.Event, 0)
	for _, e := range c.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out
}

func sortEvents(events []event.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].Subject < events[j].Subject
	})
}

// UpdateTimezone moves the calendar to loc. Every event keeps its instants;
// only the zone its times are expressed in changes.
func (c *Calendar) UpdateTimezone(loc *time.Location) {
	if loc == nil {
		return
	}
	for i := range c.events {
		c.events[i] = c.events[i].In(loc)
	}
	for id, s := range c.series {
		s.template = s.template.In(loc)
		c.series[id] = s
	}
	appLog.Debug("calendar timezone updated", "calendar", c.name, "from", c.loc.String(), "to", loc.String())
	c.loc = loc
}
