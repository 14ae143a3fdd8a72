package calendar

import "fmt"

// Command is an action against a Manager. It is one of exactly two kinds:
// RegistryCommand works on the registry itself, EventsCommand works on the
// events of the calendar in use. Callers pick the kind when they build the
// command.
type Command interface {
	command()
}

// RegistryCommand operates on the calendar registry.
type RegistryCommand func(m *Manager) error

// EventsCommand operates on the calendar in use.
type EventsCommand func(c *Calendar) error

func (RegistryCommand) command() {}
func (EventsCommand) command()   {}

// Run executes cmd. An EventsCommand fails with ErrNoActiveCalendar when no
// calendar is in use.
func (m *Manager) Run(cmd Command) error {
	switch c := cmd.(type) {
	case RegistryCommand:
		return c(m)
	case EventsCommand:
		cal, err := m.ActiveCalendar()
		if err != nil {
			return err
		}
		return c(cal)
	case nil:
		return fmt.Errorf("calendar: nil command")
	default:
		return fmt.Errorf("calendar: unknown command %T", cmd)
	}
}

// OnCalendar adapts fn into a RegistryCommand for a named calendar, for
// callers that address calendars explicitly instead of the one in use.
func OnCalendar(name string, fn func(c *Calendar) error) RegistryCommand {
	return func(m *Manager) error {
		c, err := m.Calendar(name)
		if err != nil {
			return err
		}
		return fn(c)
	}
}
