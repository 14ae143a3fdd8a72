package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"calmgr/internal/calendar"
	"calmgr/internal/config"
	"calmgr/internal/service"
)

type apiClient struct {
	t       *testing.T
	h       http.Handler
	user    string
	pass    string
	useAuth bool
}

func newAPI(t *testing.T, cfg *config.Config) *apiClient {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Timezone = "UTC"
	}
	svc := service.New(calendar.NewManager())
	return &apiClient{t: t, h: NewServer(cfg, svc).Handler()}
}

func (c *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			c.t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if c.useAuth {
		req.SetBasicAuth(c.user, c.pass)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	return rec
}

func (c *apiClient) expect(method, path string, body any, status int) *httptest.ResponseRecorder {
	c.t.Helper()
	rec := c.do(method, path, body)
	if rec.Code != status {
		c.t.Fatalf("%s %s = %d, want %d: %s", method, path, rec.Code, status, rec.Body.String())
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "s3cret"}
	api := newAPI(t, cfg)

	api.expect(http.MethodGet, "/health", nil, http.StatusOK)
	rec := api.expect(http.MethodGet, "/api/calendars", nil, http.StatusUnauthorized)
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	api.useAuth, api.user, api.pass = true, "admin", "wrong"
	api.expect(http.MethodGet, "/api/calendars", nil, http.StatusUnauthorized)
	api.pass = "s3cret"
	api.expect(http.MethodGet, "/api/calendars", nil, http.StatusOK)
}

func TestCalendarRegistry(t *testing.T) {
	api := newAPI(t, nil)

	api.expect(http.MethodPost, "/api/calendars", map[string]string{"name": "Work"}, http.StatusCreated)
	api.expect(http.MethodPost, "/api/calendars", map[string]string{"name": "Work"}, http.StatusConflict)
	api.expect(http.MethodPost, "/api/calendars", map[string]string{"name": "Bad", "timezone": "Nowhere/City"}, http.StatusBadRequest)
	api.expect(http.MethodPost, "/api/calendars", map[string]string{"name": ""}, http.StatusBadRequest)
	api.expect(http.MethodPost, "/api/calendars", `{"name": "X", "colour": "red"}`, http.StatusBadRequest)

	api.expect(http.MethodPost, "/api/calendars/Nope/use", nil, http.StatusNotFound)
	api.expect(http.MethodPost, "/api/calendars/Work/use", nil, http.StatusOK)
	api.expect(http.MethodPatch, "/api/calendars/Work", map[string]string{"property": "timezone", "value": "Asia/Seoul"}, http.StatusOK)
	api.expect(http.MethodPatch, "/api/calendars/Work", map[string]string{"property": "color", "value": "red"}, http.StatusBadRequest)
	api.expect(http.MethodPatch, "/api/calendars/Work", map[string]string{"property": "name", "value": "Office"}, http.StatusOK)

	list := decode[calendarsResponse](t, api.expect(http.MethodGet, "/api/calendars", nil, http.StatusOK))
	if list.Active != "Office" || len(list.Calendars) != 1 || list.Calendars[0].Timezone != "Asia/Seoul" {
		t.Errorf("calendars = %+v", list)
	}
}

func TestEventsLifecycle(t *testing.T) {
	api := newAPI(t, nil)
	api.expect(http.MethodPost, "/api/calendars", map[string]string{"name": "Work", "timezone": "UTC"}, http.StatusCreated)

	meeting := map[string]any{"subject": "Meeting", "start": "2025-06-01T10:00", "end": "2025-06-01T11:00"}
	api.expect(http.MethodPost, "/api/calendars/Work/events", meeting, http.StatusCreated)
	api.expect(http.MethodPost, "/api/calendars/Work/events", meeting, http.StatusConflict)
	api.expect(http.MethodPost, "/api/calendars/Work/events",
		map[string]any{"subject": "Lunch", "start": "2025-06-01T10:30", "end": "2025-06-01T11:30", "auto_decline": true},
		http.StatusConflict)
	api.expect(http.MethodPost, "/api/calendars/Work/events",
		map[string]any{"subject": "Backwards", "start": "2025-06-01T12:00", "end": "2025-06-01T11:00"},
		http.StatusBadRequest)
	api.expect(http.MethodPost, "/api/calendars/Nope/events", meeting, http.StatusNotFound)

	rec := api.expect(http.MethodPost, "/api/calendars/Work/events", map[string]any{
		"subject": "Standup", "start": "2025-06-02T09:00", "end": "2025-06-02T09:15",
		"weekdays": "MWF", "count": 3, "location": "Room A",
	}, http.StatusCreated)
	created := decode[struct {
		SeriesID string     `json:"series_id"`
		Events   []eventDTO `json:"events"`
	}](t, rec)
	if created.SeriesID == "" || len(created.Events) != 3 {
		t.Fatalf("recurring add = %+v", created)
	}

	day := decode[[]eventDTO](t, api.expect(http.MethodGet, "/api/calendars/Work/events?date=2025-06-01", nil, http.StatusOK))
	if len(day) != 1 || day[0].Subject != "Meeting" {
		t.Errorf("events on 06-01 = %+v", day)
	}
	series := decode[[]eventDTO](t, api.expect(http.MethodGet, "/api/calendars/Work/events?series="+created.SeriesID, nil, http.StatusOK))
	if len(series) != 3 {
		t.Errorf("series has %d events", len(series))
	}
	ranged := decode[[]eventDTO](t, api.expect(http.MethodGet, "/api/calendars/Work/events?start=2025-06-03&end=2025-06-07", nil, http.StatusOK))
	if len(ranged) != 2 {
		t.Errorf("range query returned %d events, want 2", len(ranged))
	}
	api.expect(http.MethodGet, "/api/calendars/Work/events?start=yesterday&end=2025-06-07", nil, http.StatusBadRequest)

	busy := decode[map[string]any](t, api.expect(http.MethodGet, "/api/calendars/Work/busy?at=2025-06-02T09:10", nil, http.StatusOK))
	if busy["busy"] != true {
		t.Errorf("busy = %v", busy)
	}

	api.expect(http.MethodPost, "/api/calendars/Work/edits",
		map[string]string{"mode": "series", "subject": "Standup", "property": "location", "value": "Room B"}, http.StatusOK)
	api.expect(http.MethodPost, "/api/calendars/Work/edits",
		map[string]string{"mode": "series", "subject": "Standup", "property": "start", "value": "10:00"}, http.StatusBadRequest)
	api.expect(http.MethodPost, "/api/calendars/Work/edits",
		map[string]string{"mode": "from", "subject": "Standup", "from": "2025-06-04", "property": "subject", "value": "Sync"}, http.StatusOK)
	api.expect(http.MethodPost, "/api/calendars/Work/edits",
		map[string]string{"mode": "single", "subject": "Meeting", "start": "2025-06-01T10:00", "end": "2025-06-01T11:00", "property": "status", "value": "private"},
		http.StatusOK)
	api.expect(http.MethodPost, "/api/calendars/Work/edits",
		map[string]string{"mode": "all", "subject": "Nobody", "property": "subject", "value": "x"}, http.StatusNotFound)
	rec = api.expect(http.MethodPost, "/api/calendars/Work/edits",
		map[string]string{"mode": "all", "subject": "Meeting", "property": "colour", "value": "x"}, http.StatusBadRequest)
	if body := rec.Body.String(); !strings.Contains(body, `colour`) || !strings.Contains(body, "known properties: subject, start, end") {
		t.Errorf("unknown property response = %s", body)
	}
	api.expect(http.MethodPost, "/api/calendars/Work/edits",
		map[string]string{"mode": "sideways", "subject": "Meeting", "property": "subject", "value": "x"}, http.StatusBadRequest)

	all := decode[[]eventDTO](t, api.expect(http.MethodGet, "/api/calendars/Work/events", nil, http.StatusOK))
	subjects := make([]string, 0, len(all))
	for _, e := range all {
		subjects = append(subjects, e.Subject+"@"+e.Location+"/"+e.Status)
	}
	want := "Meeting@/private Standup@Room B/public Sync@Room B/public Sync@Room B/public"
	if got := strings.Join(subjects, " "); got != want {
		t.Errorf("events = %s\nwant     %s", got, want)
	}
}

func TestCopyAcrossZones(t *testing.T) {
	api := newAPI(t, nil)
	api.expect(http.MethodPost, "/api/calendars", map[string]string{"name": "Work", "timezone": "UTC"}, http.StatusCreated)
	api.expect(http.MethodPost, "/api/calendars", map[string]string{"name": "Home", "timezone": "America/New_York"}, http.StatusCreated)

	copyReq := map[string]string{"mode": "single", "subject": "Meeting", "start": "2025-06-01T09:00", "target": "Home", "target_start": "2025-06-02T09:00"}
	api.expect(http.MethodPost, "/api/copy", copyReq, http.StatusConflict) // no calendar in use

	api.expect(http.MethodPost, "/api/calendars/Work/use", nil, http.StatusOK)
	api.expect(http.MethodPost, "/api/calendars/Work/events",
		map[string]any{"subject": "Meeting", "start": "2025-06-01T09:00", "end": "2025-06-01T10:00"}, http.StatusCreated)

	res := decode[map[string]int](t, api.expect(http.MethodPost, "/api/copy", copyReq, http.StatusOK))
	if res["copied"] != 1 {
		t.Errorf("copied = %v", res)
	}
	home := decode[[]eventDTO](t, api.expect(http.MethodGet, "/api/calendars/Home/events", nil, http.StatusOK))
	if len(home) != 1 || !home[0].Start.Equal(time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC)) {
		t.Errorf("home events = %+v", home)
	}
	api.expect(http.MethodPost, "/api/copy", copyReq, http.StatusConflict)

	res = decode[map[string]int](t, api.expect(http.MethodPost, "/api/copy",
		map[string]string{"mode": "date", "date": "2025-06-01", "target": "Home", "target_date": "2025-06-08"}, http.StatusOK))
	if res["copied"] != 1 {
		t.Errorf("date copy = %v", res)
	}
	api.expect(http.MethodPost, "/api/copy",
		map[string]string{"mode": "between", "start": "2025-07-01", "end": "2025-07-02", "target": "Home", "target_date": "2025-08-01"}, http.StatusNotFound)
	api.expect(http.MethodPost, "/api/copy",
		map[string]string{"mode": "between", "start": "2025-06-01", "end": "2025-06-01", "target": "Nope", "target_date": "2025-08-01"}, http.StatusNotFound)
}

func TestICSExportImport(t *testing.T) {
	api := newAPI(t, nil)
	api.expect(http.MethodPost, "/api/calendars", map[string]string{"name": "Work", "timezone": "UTC"}, http.StatusCreated)
	api.expect(http.MethodPost, "/api/calendars", map[string]string{"name": "Copy", "timezone": "UTC"}, http.StatusCreated)
	api.expect(http.MethodPost, "/api/calendars/Work/events", map[string]any{
		"subject": "Standup", "start": "2025-06-02T09:00", "end": "2025-06-02T09:15", "weekdays": "MWF", "until": "2025-06-06",
	}, http.StatusCreated)

	rec := api.expect(http.MethodGet, "/api/calendars/Work/ics", nil, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	feed := rec.Body.String()
	if strings.Count(feed, "BEGIN:VEVENT") != 3 {
		t.Errorf("feed has %d events, want 3", strings.Count(feed, "BEGIN:VEVENT"))
	}

	res := decode[map[string]int](t, api.expect(http.MethodPost, "/api/calendars/Copy/ics", feed, http.StatusOK))
	if res["added"] != 3 {
		t.Errorf("import = %v", res)
	}
	res = decode[map[string]int](t, api.expect(http.MethodPost, "/api/calendars/Copy/ics?auto_decline=true", feed, http.StatusOK))
	if res["rejected"] != 3 {
		t.Errorf("re-import = %v", res)
	}
	api.expect(http.MethodPost, "/api/calendars/Copy/ics?auto_decline=maybe", feed, http.StatusBadRequest)
	api.expect(http.MethodPost, "/api/calendars/Copy/ics", "", http.StatusBadRequest)
}
