package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	_ "time/tzdata"

	"calmgr/internal/calendar"
	"calmgr/internal/config"
)

// mapReader serves ICS bodies from memory.
type mapReader map[string]string

func (r mapReader) Read(_ context.Context, location string) ([]byte, error) {
	body, ok := r[location]
	if !ok {
		return nil, errors.New("no such source")
	}
	return []byte(body), nil
}

const standupFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTART:20250602T090000Z\r\n" +
	"DTEND:20250602T091500Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=3\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Calendars = []config.CalendarConfig{
		{Name: "Work", Import: []string{"work.ics", "missing.ics", "garbage.ics"}},
		{Name: "Home", Timezone: "Europe/Berlin"},
	}
	cfg.Active = "Work"
	r := mapReader{"work.ics": standupFeed, "garbage.ics": strings.Repeat("x", 10)}

	svc, err := FromConfig(context.Background(), cfg, r)
	if err != nil {
		t.Fatal(err)
	}
	svc.View(func(m *calendar.Manager) {
		if m.ActiveName() != "Work" {
			t.Errorf("active = %q", m.ActiveName())
		}
		work, _ := m.Calendar("Work")
		if work.Len() != 3 {
			t.Errorf("Work holds %d events, want 3", work.Len())
		}
		home, err := m.Calendar("Home")
		if err != nil || home.Location().String() != "Europe/Berlin" {
			t.Errorf("Home = %v, %v", home, err)
		}
	})
}

func TestFromConfigRejectsInvalid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Active = "Nope"
	if _, err := FromConfig(context.Background(), cfg, mapReader{}); err == nil {
		t.Error("expected a config error")
	}
}
