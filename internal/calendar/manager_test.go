package calendar

import (
	"errors"
	"testing"
	"time"

	"calmgr/internal/event"
)

func newManager(t *testing.T) (*Manager, *time.Location) {
	t.Helper()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	m := NewManager(sequentialIDs())
	if err := m.AddCalendar("Work", time.UTC); err != nil {
		t.Fatal(err)
	}
	if err := m.AddCalendar("Home", ny); err != nil {
		t.Fatal(err)
	}
	return m, ny
}

func TestManagerRegistry(t *testing.T) {
	m, ny := newManager(t)

	if err := m.AddCalendar("Work", ny); !errors.Is(err, ErrCalendarExists) {
		t.Errorf("expected ErrCalendarExists, got %v", err)
	}
	if _, err := m.ActiveCalendar(); !errors.Is(err, ErrNoActiveCalendar) {
		t.Errorf("expected ErrNoActiveCalendar, got %v", err)
	}
	if err := m.UseCalendar("Work"); err != nil {
		t.Fatal(err)
	}
	if err := m.UseCalendar("Nope"); !errors.Is(err, ErrCalendarNotFound) {
		t.Errorf("expected ErrCalendarNotFound, got %v", err)
	}
	if m.ActiveName() != "Work" {
		t.Errorf("failed UseCalendar changed the active calendar to %q", m.ActiveName())
	}
	if got := m.Names(); len(got) != 2 || got[0] != "Home" || got[1] != "Work" {
		t.Errorf("Names() = %v", got)
	}
}

func TestEditCalendar(t *testing.T) {
	m, ny := newManager(t)
	if err := m.UseCalendar("Work"); err != nil {
		t.Fatal(err)
	}
	work, _ := m.Calendar("Work")
	if err := work.AddEvent(ev(t, "Meeting", "2025-06-01T10:00:00Z", "2025-06-01T11:00:00Z"), false); err != nil {
		t.Fatal(err)
	}

	if err := m.EditCalendar("Work", "name", "Home"); !errors.Is(err, ErrCalendarExists) {
		t.Errorf("rename onto a taken name: %v", err)
	}
	if err := m.EditCalendar("Work", "name", "Office"); err != nil {
		t.Fatal(err)
	}
	if m.ActiveName() != "Office" {
		t.Errorf("active pointer did not follow the rename: %q", m.ActiveName())
	}
	if _, err := m.Calendar("Work"); !errors.Is(err, ErrCalendarNotFound) {
		t.Errorf("old name still registered")
	}

	if err := m.EditCalendar("Office", "timezone", "America/New_York"); err != nil {
		t.Fatal(err)
	}
	office, _ := m.Calendar("Office")
	if got := office.Events()[0]; got.Start.Location().String() != ny.String() || got.Start.Hour() != 6 {
		t.Errorf("timezone change did not re-express events: %s", got.Start)
	}

	var verr *event.ValidationError
	if err := m.EditCalendar("Office", "timezone", "Mars/Olympus"); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for a bad zone, got %v", err)
	}
	var perr *UnsupportedPropertyError
	if err := m.EditCalendar("Office", "color", "blue"); !errors.As(err, &perr) {
		t.Errorf("expected UnsupportedPropertyError, got %v", err)
	}
}

func TestCopySingleEventAcrossZones(t *testing.T) {
	m, ny := newManager(t)
	if err := m.UseCalendar("Work"); err != nil {
		t.Fatal(err)
	}
	work, _ := m.Calendar("Work")
	if err := work.AddEvent(ev(t, "Meeting", "2025-06-01T09:00:00Z", "2025-06-01T10:00:00Z"), false); err != nil {
		t.Fatal(err)
	}

	target := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) // read as 09:00 in New York
	if err := m.CopySingleEvent("Meeting", ts(t, "2025-06-01T09:00:00Z"), "Home", target); err != nil {
		t.Fatalf("CopySingleEvent: %v", err)
	}

	home, _ := m.Calendar("Home")
	got := home.Events()
	if len(got) != 1 {
		t.Fatalf("home has %d events", len(got))
	}
	if got[0].Start.Location() != ny {
		t.Errorf("copied event zone = %s, want America/New_York", got[0].Start.Location())
	}
	if !got[0].Start.Equal(ts(t, "2025-06-02T13:00:00Z")) || got[0].Duration() != time.Hour {
		t.Errorf("copied event = %s - %s", got[0].Start.UTC(), got[0].End.UTC())
	}

	// A second copy to the same slot is a duplicate.
	err := m.CopySingleEvent("Meeting", ts(t, "2025-06-01T09:00:00Z"), "Home", target)
	if !errors.Is(err, ErrDuplicateEvent) {
		t.Errorf("expected ErrDuplicateEvent, got %v", err)
	}
	if err := m.CopySingleEvent("Missing", ts(t, "2025-06-01T09:00:00Z"), "Home", target); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := m.CopySingleEvent("Meeting", ts(t, "2025-06-01T09:00:00Z"), "Nope", target); !errors.Is(err, ErrCalendarNotFound) {
		t.Errorf("expected ErrCalendarNotFound, got %v", err)
	}

	// Same subject and start, different end: the start alone does not pick one.
	if err := work.AddEvent(ev(t, "Meeting", "2025-06-01T09:00:00Z", "2025-06-01T09:30:00Z"), false); err != nil {
		t.Fatal(err)
	}
	err = m.CopySingleEvent("Meeting", ts(t, "2025-06-01T09:00:00Z"), "Home", target.Add(2*time.Hour))
	if !errors.Is(err, ErrAmbiguousEvent) {
		t.Errorf("expected ErrAmbiguousEvent, got %v", err)
	}
	if n := home.Len(); n != 1 {
		t.Errorf("ambiguous copy changed Home: %d events", n)
	}
}

func TestCopyEventsOnDate(t *testing.T) {
	m, _ := newManager(t)
	if err := m.UseCalendar("Work"); err != nil {
		t.Fatal(err)
	}
	work, _ := m.Calendar("Work")
	standup(t, work)
	if err := work.AddEvent(ev(t, "Review", "2025-06-02T15:00:00Z", "2025-06-02T16:00:00Z"), false); err != nil {
		t.Fatal(err)
	}
	home, _ := m.Calendar("Home")
	// Occupies the slot the Review copy would land on.
	if err := home.AddEvent(ev(t, "Gym", "2025-06-09T15:30:00Z", "2025-06-09T16:30:00Z"), false); err != nil {
		t.Fatal(err)
	}

	n, err := m.CopyEventsOnDate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), "Home", time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CopyEventsOnDate: %v", err)
	}
	if n != 1 {
		t.Fatalf("copied %d events, want 1 (Review conflicts)", n)
	}
	got := home.EventsOnDate(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC))
	if len(got) != 2 {
		t.Fatalf("home on 06-09: %v", got)
	}
	for _, e := range got {
		if e.Subject == "Standup" {
			if !e.Start.Equal(ts(t, "2025-06-09T09:00:00Z")) || e.SeriesID != "" {
				t.Errorf("standup copy = %v", e)
			}
		}
	}

	// Everything rejected: the call fails.
	_, err = m.CopyEventsOnDate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), "Home", time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrConflict) || !errors.Is(err, ErrDuplicateEvent) {
		t.Errorf("expected joined conflict and duplicate errors, got %v", err)
	}
	if _, err := m.CopyEventsOnDate(time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), "Home", time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty source day: expected ErrNotFound, got %v", err)
	}
}

func TestCopyEventsBetween(t *testing.T) {
	m, _ := newManager(t)
	if err := m.AddCalendar("Archive", time.UTC); err != nil {
		t.Fatal(err)
	}
	if err := m.UseCalendar("Work"); err != nil {
		t.Fatal(err)
	}
	work, _ := m.Calendar("Work")
	standup(t, work)

	n, err := m.CopyEventsBetween(
		time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
		"Archive",
		time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("CopyEventsBetween: %v", err)
	}
	if n != 2 {
		t.Fatalf("copied %d events, want 2", n)
	}
	archive, _ := m.Calendar("Archive")
	got := archive.Events()
	if !got[0].Start.Equal(ts(t, "2025-07-02T09:00:00Z")) || !got[1].Start.Equal(ts(t, "2025-07-04T09:00:00Z")) {
		t.Errorf("copies landed at %s and %s", got[0].Start, got[1].Start)
	}
}

func TestRunCommands(t *testing.T) {
	m, _ := newManager(t)

	add := EventsCommand(func(c *Calendar) error {
		return c.AddEvent(ev(t, "Meeting", "2025-06-01T09:00:00Z", "2025-06-01T10:00:00Z"), false)
	})
	if err := m.Run(add); !errors.Is(err, ErrNoActiveCalendar) {
		t.Fatalf("events command without a calendar in use: %v", err)
	}
	if err := m.Run(RegistryCommand(func(m *Manager) error { return m.UseCalendar("Work") })); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(add); err != nil {
		t.Fatal(err)
	}
	var count int
	err := m.Run(OnCalendar("Work", func(c *Calendar) error {
		count = c.Len()
		return nil
	}))
	if err != nil || count != 1 {
		t.Errorf("OnCalendar saw %d events, err %v", count, err)
	}
}
