package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"calmgr/internal/calendar"
	"calmgr/internal/event"
	"calmgr/internal/ics"
	appLog "calmgr/internal/log"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// eventDTO is the JSON view of an event.
type eventDTO struct {
	Subject     string    `json:"subject"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
	AllDay      bool      `json:"all_day"`
	SeriesID    string    `json:"series_id,omitempty"`
}

func toDTOs(events []event.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, eventDTO{
			Subject:     e.Subject,
			Start:       e.Start,
			End:         e.End,
			Description: e.Description,
			Location:    e.Location,
			Status:      string(e.Visibility),
			AllDay:      e.AllDay,
			SeriesID:    e.SeriesID,
		})
	}
	return out
}

type calendarDTO struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Events   int    `json:"events"`
	Active   bool   `json:"active"`
}

type calendarsResponse struct {
	Active    string        `json:"active"`
	Calendars []calendarDTO `json:"calendars"`
}

// parseTime reads a request timestamp in loc. Bare dates mean midnight and
// bare times of day mean today.
func parseTime(field, value string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, badRequest("%s is required", field)
	}
	now := time.Now().In(loc)
	ref := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	t, err := event.ParseTimestamp(value, ref)
	if err != nil {
		return time.Time{}, badRequest("%s: %v", field, err)
	}
	return t, nil
}

func (s *Server) handleListCalendars(w http.ResponseWriter, _ *http.Request) {
	var resp calendarsResponse
	s.svc.View(func(m *calendar.Manager) {
		resp.Active = m.ActiveName()
		resp.Calendars = make([]calendarDTO, 0)
		for _, name := range m.Names() {
			c, err := m.Calendar(name)
			if err != nil {
				continue
			}
			resp.Calendars = append(resp.Calendars, calendarDTO{
				Name:     name,
				Timezone: c.Location().String(),
				Events:   c.Len(),
				Active:   name == resp.Active,
			})
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateCalendar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	tz := req.Timezone
	if tz == "" {
		tz = s.cfg.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		writeFailure(w, r, &event.ValidationError{Field: "timezone", Reason: err.Error()})
		return
	}
	err = s.svc.Update(func(m *calendar.Manager) error {
		return m.AddCalendar(req.Name, loc)
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, calendarDTO{Name: req.Name, Timezone: loc.String()})
}

func (s *Server) handleUseCalendar(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.svc.Update(func(m *calendar.Manager) error { return m.UseCalendar(name) }); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"active": name})
}

func (s *Server) handleEditCalendar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Property string `json:"property"`
		Value    string `json:"value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	name := r.PathValue("name")
	if err := s.svc.Update(func(m *calendar.Manager) error {
		return m.EditCalendar(name, req.Property, req.Value)
	}); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListEvents serves ?date=, ?start=&end=, ?series= or everything.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var out []eventDTO
	err := s.svc.Do(calendar.OnCalendar(r.PathValue("name"), func(c *calendar.Calendar) error {
		loc := c.Location()
		switch {
		case q.Get("date") != "":
			d, err := parseTime("date", q.Get("date"), loc)
			if err != nil {
				return err
			}
			out = toDTOs(c.EventsOnDate(d))
		case q.Get("start") != "" || q.Get("end") != "":
			start, err := parseTime("start", q.Get("start"), loc)
			if err != nil {
				return err
			}
			end, err := parseTime("end", q.Get("end"), loc)
			if err != nil {
				return err
			}
			out = toDTOs(c.EventsBetween(start, end))
		case q.Get("series") != "":
			out = toDTOs(c.Series(q.Get("series")))
		default:
			out = toDTOs(c.Events())
		}
		return nil
	}))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBusy(w http.ResponseWriter, r *http.Request) {
	var (
		at   time.Time
		busy bool
	)
	err := s.svc.Do(calendar.OnCalendar(r.PathValue("name"), func(c *calendar.Calendar) error {
		var err error
		if at, err = parseTime("at", r.URL.Query().Get("at"), c.Location()); err != nil {
			return err
		}
		busy = c.IsBusyAt(at)
		return nil
	}))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"at": at, "busy": busy})
}

// addEventRequest is a single event, or a recurring one when Weekdays is
// set.
type addEventRequest struct {
	Subject     string `json:"subject"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	AllDay      bool   `json:"all_day"`
	AutoDecline *bool  `json:"auto_decline"`
	Weekdays    string `json:"weekdays"`
	Count       int    `json:"count"`
	Until       string `json:"until"`
}

func (req addEventRequest) build(loc *time.Location) (event.Event, error) {
	start, err := parseTime("start", req.Start, loc)
	if err != nil {
		return event.Event{}, err
	}
	opts := []event.Option{event.WithDescription(req.Description), event.WithLocation(req.Location)}
	if req.Status != "" {
		v, err := event.ParseVisibility(req.Status)
		if err != nil {
			return event.Event{}, err
		}
		opts = append(opts, event.WithVisibility(v))
	}
	if req.AllDay && req.End == "" {
		return event.AllDayOn(req.Subject, start, loc, opts...)
	}
	end, err := parseTime("end", req.End, loc)
	if err != nil {
		return event.Event{}, err
	}
	return event.New(req.Subject, start, end, append(opts, event.WithAllDay(req.AllDay))...)
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var req addEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	autoDecline := s.cfg.AutoDecline
	if req.AutoDecline != nil {
		autoDecline = *req.AutoDecline
	}

	var (
		added    []eventDTO
		seriesID string
	)
	err := s.svc.Do(calendar.OnCalendar(r.PathValue("name"), func(c *calendar.Calendar) error {
		loc := c.Location()
		e, err := req.build(loc)
		if err != nil {
			return err
		}
		if req.Weekdays == "" {
			if err := c.AddEvent(e, autoDecline); err != nil {
				return err
			}
			added = toDTOs([]event.Event{e.In(loc)})
			return nil
		}

		days, err := event.ParseWeekdays(req.Weekdays)
		if err != nil {
			return err
		}
		var until time.Time
		if req.Until != "" {
			if until, err = event.ParseUntil(req.Until, loc); err != nil {
				return err
			}
		}
		tpl, err := event.NewTemplate(e, days, req.Count, until)
		if err != nil {
			return err
		}
		if seriesID, err = c.AddRecurringEvent(tpl, autoDecline); err != nil {
			return err
		}
		added = toDTOs(c.Series(seriesID))
		return nil
	}))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"series_id": seriesID, "events": added})
}

type editRequest struct {
	Mode     string `json:"mode"`
	Property string `json:"property"`
	Subject  string `json:"subject"`
	Start    string `json:"start"`
	End      string `json:"end"`
	From     string `json:"from"`
	Value    string `json:"value"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	err := s.svc.Do(calendar.OnCalendar(r.PathValue("name"), func(c *calendar.Calendar) error {
		if req.Mode == "series" {
			return c.EditRecurringEvent(req.Subject, event.Property(req.Property), req.Value)
		}
		p, err := event.ParseProperty(req.Property)
		if err != nil {
			return badRequest("%v; known properties: %s", err, knownProperties())
		}
		loc := c.Location()
		switch req.Mode {
		case "single":
			start, err := parseTime("start", req.Start, loc)
			if err != nil {
				return err
			}
			end, err := parseTime("end", req.End, loc)
			if err != nil {
				return err
			}
			return c.EditSingleEvent(p, req.Subject, start, end, req.Value)
		case "from":
			from, err := parseTime("from", req.From, loc)
			if err != nil {
				return err
			}
			return c.EditEventsFrom(p, req.Subject, from, req.Value)
		case "all":
			return c.EditEventsAll(p, req.Subject, req.Value)
		default:
			return badRequest("mode must be single, from, all or series, got %q", req.Mode)
		}
	}))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func knownProperties() string {
	names := make([]string, 0, len(event.Properties()))
	for _, p := range event.Properties() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

type copyRequest struct {
	Mode        string `json:"mode"`
	Subject     string `json:"subject"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Date        string `json:"date"`
	Target      string `json:"target"`
	TargetStart string `json:"target_start"`
	TargetDate  string `json:"target_date"`
}

// handleCopy copies from the calendar in use to req.Target.
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	var req copyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	copied := 0
	err := s.svc.Update(func(m *calendar.Manager) error {
		src, err := m.ActiveCalendar()
		if err != nil {
			return err
		}
		dst, err := m.Calendar(req.Target)
		if err != nil {
			return err
		}
		loc := src.Location()
		switch req.Mode {
		case "single":
			start, err := parseTime("start", req.Start, loc)
			if err != nil {
				return err
			}
			at, err := parseTime("target_start", req.TargetStart, dst.Location())
			if err != nil {
				return err
			}
			if err := m.CopySingleEvent(req.Subject, start, req.Target, at); err != nil {
				return err
			}
			copied = 1
			return nil
		case "date":
			date, err := parseTime("date", req.Date, loc)
			if err != nil {
				return err
			}
			to, err := parseTime("target_date", req.TargetDate, dst.Location())
			if err != nil {
				return err
			}
			copied, err = m.CopyEventsOnDate(date, req.Target, to)
			return err
		case "between":
			start, err := parseTime("start", req.Start, loc)
			if err != nil {
				return err
			}
			end, err := parseTime("end", req.End, loc)
			if err != nil {
				return err
			}
			to, err := parseTime("target_date", req.TargetDate, dst.Location())
			if err != nil {
				return err
			}
			copied, err = m.CopyEventsBetween(start, end, req.Target, to)
			return err
		default:
			return badRequest("mode must be single, date or between, got %q", req.Mode)
		}
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"copied": copied})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var body string
	err := s.svc.Do(calendar.OnCalendar(r.PathValue("name"), func(c *calendar.Calendar) error {
		body = ics.Export(c)
		return nil
	}))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// handleImport loads an ICS body into the calendar. ?auto_decline= overrides
// the configured default.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	autoDecline := s.cfg.AutoDecline
	if v := r.URL.Query().Get("auto_decline"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeFailure(w, r, badRequest("auto_decline: %v", err))
			return
		}
		autoDecline = b
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeFailure(w, r, badRequest("read body: %v", err))
		return
	}

	var res ics.LoadResult
	err = s.svc.Do(calendar.OnCalendar(r.PathValue("name"), func(c *calendar.Calendar) error {
		items, err := ics.Parse(body, c.Location())
		if err != nil {
			return badRequest("%v", err)
		}
		res, err = ics.Load(c, items, autoDecline)
		return err
	}))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	appLog.Info("ics imported over HTTP", "calendar", r.PathValue("name"), "added", res.Added)
	writeJSON(w, http.StatusOK, map[string]int{
		"added":    res.Added,
		"rejected": res.Rejected,
		"skipped":  res.Skipped,
	})
}
