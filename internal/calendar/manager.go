package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"calmgr/internal/event"
	appLog "calmgr/internal/log"
)

// Manager is a registry of named calendars with one of them in use.
type Manager struct {
	calendars map[string]*Calendar
	active    string
	opts      []Option
}

// NewManager returns an empty registry. opts are applied to every calendar
// it creates.
func NewManager(opts ...Option) *Manager {
	return &Manager{
		calendars: make(map[string]*Calendar),
		opts:      opts,
	}
}

// AddCalendar registers a new empty calendar.
func (m *Manager) AddCalendar(name string, loc *time.Location) error {
	if strings.TrimSpace(name) == "" {
		return &event.ValidationError{Field: "name", Reason: "calendar name must not be empty"}
	}
	if loc == nil {
		return &event.ValidationError{Field: "timezone", Reason: "calendar needs a time zone"}
	}
	if _, ok := m.calendars[name]; ok {
		return fmt.Errorf("%w: %q", ErrCalendarExists, name)
	}
	m.calendars[name] = New(name, loc, m.opts...)
	appLog.Info("calendar created", "calendar", name, "timezone", loc.String())
	return nil
}

// UseCalendar makes name the calendar in use. On failure the previous
// calendar stays in use.
func (m *Manager) UseCalendar(name string) error {
	if _, ok := m.calendars[name]; !ok {
		return fmt.Errorf("%w: %q", ErrCalendarNotFound, name)
	}
	m.active = name
	return nil
}

// ActiveCalendar returns the calendar in use.
func (m *Manager) ActiveCalendar() (*Calendar, error) {
	if m.active == "" {
		return nil, ErrNoActiveCalendar
	}
	return m.Calendar(m.active)
}

// ActiveName is the name of the calendar in use, or "".
func (m *Manager) ActiveName() string {
	return m.active
}

func (m *Manager) Calendar(name string) (*Calendar, error) {
	c, ok := m.calendars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCalendarNotFound, name)
	}
	return c, nil
}

// Names lists the registered calendars alphabetically.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.calendars))
	for name := range m.calendars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EditCalendar changes a calendar's "name" or "timezone".
func (m *Manager) EditCalendar(name, property, value string) error {
	c, err := m.Calendar(name)
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(property)) {
	case "name":
		return m.rename(c, value)
	case "timezone":
		loc, err := time.LoadLocation(strings.TrimSpace(value))
		if err != nil {
			return &event.ValidationError{Field: "timezone", Reason: err.Error()}
		}
		c.UpdateTimezone(loc)
		return nil
	default:
		return &UnsupportedPropertyError{Scope: "calendar", Name: property}
	}
}

func (m *Manager) rename(c *Calendar, to string) error {
	if strings.TrimSpace(to) == "" {
		return &event.ValidationError{Field: "name", Reason: "calendar name must not be empty"}
	}
	if to == c.name {
		return nil
	}
	if _, ok := m.calendars[to]; ok {
		return fmt.Errorf("%w: %q", ErrCalendarExists, to)
	}
	from := c.name
	delete(m.calendars, from)
	c.name = to
	m.calendars[to] = c
	if m.active == from {
		m.active = to
	}
	appLog.Info("calendar renamed", "from", from, "to", to)
	return nil
}
