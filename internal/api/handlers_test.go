package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zapponejosh/ordo-api/internal/config"
	"github.com/zapponejosh/ordo-api/internal/data"
	"github.com/zapponejosh/ordo-api/internal/database"
	"github.com/zapponejosh/ordo-api/internal/liturgy"
	"github.com/zapponejosh/ordo-api/internal/source"
)

// =============================================================================
// TEST SETUP HELPERS
// =============================================================================

type testEnv struct {
	engine   *liturgy.Engine
	handlers *Handlers
	router   http.Handler
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *config.Config {
	return &config.Config{
		Port:         8080,
		Env:          config.EnvDevelopment,
		CORSOrigins:  "*",
		DataSource:   config.SourceEmbedded,
		FetchTimeout: time.Second,
		DefaultRite:  "extraordinaire",
		AdventRule:   "fixed",
		LogLevel:     "error",
		LogFormat:    "text",
	}
}

// setupTest serves the embedded dataset.
func setupTest(t *testing.T) *testEnv {
	t.Helper()
	return setupWith(t, source.NewFS(data.FS, ""), nil)
}

func setupWith(t *testing.T, f liturgy.Fetcher, db *database.DB) *testEnv {
	t.Helper()
	return setupOptions(t, f, db, liturgy.Options{})
}

func setupOptions(t *testing.T, f liturgy.Fetcher, db *database.DB, opts liturgy.Options) *testEnv {
	t.Helper()
	log := quietLogger()
	opts.Logger = log
	engine := liturgy.NewEngine(f, opts)
	handlers := NewHandlers(engine, db, testConfig(), log)
	return &testEnv{
		engine:   engine,
		handlers: handlers,
		router:   SetupRoutes(handlers, testConfig(), log),
	}
}

func (env *testEnv) get(t *testing.T, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorInfo      `json:"error"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rr.Body.String())
	}
	if data != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

// dayJSON mirrors the fields of liturgy.Day the tests look at.
type dayJSON struct {
	Date    string `json:"date"`
	Rite    string `json:"rite"`
	Season  string `json:"season"`
	Reason  string `json:"reason"`
	Color   string `json:"color"`
	Version string `json:"dataset_version"`
	Chosen  *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"chosen"`
	Commemoration *struct {
		ID string `json:"id"`
	} `json:"commemoration"`
	Cycle *struct {
		Sunday  string `json:"sunday"`
		Weekday string `json:"weekday"`
	} `json:"cycle"`
}

type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

// =============================================================================
// DAYS
// =============================================================================

func TestGetDay(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name       string
		path       string
		wantChosen string
		wantReason string
		wantColor  string
		wantCommem string
		wantCycle  bool
		wantRite   string
	}{
		{
			name:       "christmas",
			path:       "/api/v1/days/2025-12-25",
			wantChosen: "nativity",
			wantReason: "temporal_supersedes_sanctoral",
			wantColor:  "blanc",
			wantRite:   "extraordinaire",
		},
		{
			name:       "christmas, ordinary rite",
			path:       "/api/v1/days/2025-12-25?rite=ordinary",
			wantChosen: "nativity",
			wantReason: "temporal_only",
			wantColor:  "blanc",
			wantCycle:  true,
			wantRite:   "ordinaire",
		},
		{
			name:       "saint joseph",
			path:       "/api/v1/days/2025-03-19",
			wantChosen: "st_joseph",
			wantReason: "sanctoral_supersedes_temporal",
			wantColor:  "blanc",
			wantRite:   "extraordinaire",
		},
		{
			name:       "sunday with commemoration",
			path:       "/api/v1/days/2025-07-13?rite=EF",
			wantChosen: "sunday_after_pentecost",
			wantReason: "temporal_with_commemoration",
			wantColor:  "vert",
			wantCommem: "st_anacletus",
			wantRite:   "extraordinaire",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.get(t, tt.path)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
			}

			var day dayJSON
			resp := decode(t, rr, &day)
			if !resp.Success {
				t.Fatal("success = false")
			}
			if day.Chosen == nil || day.Chosen.ID != tt.wantChosen {
				t.Errorf("chosen = %+v, want %s", day.Chosen, tt.wantChosen)
			}
			if day.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", day.Reason, tt.wantReason)
			}
			if day.Color != tt.wantColor {
				t.Errorf("color = %q, want %q", day.Color, tt.wantColor)
			}
			if day.Rite != tt.wantRite {
				t.Errorf("rite = %q, want %q", day.Rite, tt.wantRite)
			}
			if tt.wantCommem != "" && (day.Commemoration == nil || day.Commemoration.ID != tt.wantCommem) {
				t.Errorf("commemoration = %+v, want %s", day.Commemoration, tt.wantCommem)
			}
			if (day.Cycle != nil) != tt.wantCycle {
				t.Errorf("cycle = %+v, want present=%v", day.Cycle, tt.wantCycle)
			}
			if want := `"` + day.Version + "-" + day.Rite + `"`; rr.Header().Get("ETag") != want {
				t.Errorf("ETag = %q, want %q", rr.Header().Get("ETag"), want)
			}
		})
	}
}

func TestGetDay_NotModified(t *testing.T) {
	env := setupTest(t)

	first := env.get(t, "/api/v1/days/2025-12-25")
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("no ETag on first response")
	}

	second := env.get(t, "/api/v1/days/2025-12-25", "If-None-Match", etag)
	if second.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", second.Code)
	}
	if second.Body.Len() != 0 {
		t.Errorf("304 carried a body: %q", second.Body.String())
	}

	stale := env.get(t, "/api/v1/days/2025-12-25", "If-None-Match", `"bafkreiold"`)
	if stale.Code != http.StatusOK {
		t.Errorf("stale ETag status = %d, want 200", stale.Code)
	}
}

func TestGetDay_ETagFollowsDefaultRite(t *testing.T) {
	extra := setupTest(t)
	ordinary := setupOptions(t, source.NewFS(data.FS, ""), nil, liturgy.Options{DefaultRite: liturgy.RiteOrdinary})

	first := extra.get(t, "/api/v1/days/2025-12-25")
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("no ETag on first response")
	}

	rr := ordinary.get(t, "/api/v1/days/2025-12-25", "If-None-Match", etag)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 after the default rite changed", rr.Code)
	}
	if rr.Header().Get("ETag") == etag {
		t.Errorf("ETag %q unchanged across rites", etag)
	}

	// An explicit rite matching the old default revalidates.
	same := ordinary.get(t, "/api/v1/days/2025-12-25?rite=extraordinaire", "If-None-Match", etag)
	if same.Code != http.StatusNotModified {
		t.Errorf("explicit rite status = %d, want 304", same.Code)
	}
}

func TestGetDay_Errors(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"malformed date", "/api/v1/days/25-12-2025", http.StatusBadRequest, "INVALID_DATE"},
		{"impossible date", "/api/v1/days/2025-02-30", http.StatusBadRequest, "INVALID_DATE"},
		{"year before gregorian computus", "/api/v1/days/1500-04-01", http.StatusBadRequest, "INVALID_DATE"},
		{"unknown rite", "/api/v1/days/2025-12-25?rite=ambrosian", http.StatusBadRequest, "INVALID_RITE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.get(t, tt.path)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			resp := decode(t, rr, nil)
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("response = %+v, want code %s", resp, tt.wantCode)
			}
		})
	}

	if env.engine.Loaded() != nil {
		t.Error("invalid requests loaded calendar data")
	}
}

func TestGetDay_DataUnavailable(t *testing.T) {
	env := setupWith(t, failingFetcher{}, nil)

	rr := env.get(t, "/api/v1/days/2025-12-25")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	resp := decode(t, rr, nil)
	if resp.Error == nil || resp.Error.Code != "DATA_LOAD_FAILURE" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestGetToday(t *testing.T) {
	env := setupTest(t)
	env.handlers.now = func() time.Time {
		return time.Date(2025, time.March, 19, 9, 30, 0, 0, time.UTC)
	}

	rr := env.get(t, "/api/v1/days/today")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var day dayJSON
	decode(t, rr, &day)
	if day.Date != "2025-03-19" || day.Chosen == nil || day.Chosen.ID != "st_joseph" {
		t.Errorf("today = %+v", day)
	}
}

// =============================================================================
// RANGES AND FEEDS
// =============================================================================

func TestGetRange(t *testing.T) {
	env := setupTest(t)

	rr := env.get(t, "/api/v1/days?start=2025-04-13&end=2025-04-20")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Start string    `json:"start"`
		End   string    `json:"end"`
		Days  []dayJSON `json:"days"`
	}
	decode(t, rr, &body)
	if len(body.Days) != 8 {
		t.Fatalf("got %d days, want 8", len(body.Days))
	}
	if body.Days[0].Season != "holy_week" || body.Days[7].Chosen.ID != "easter_sunday" {
		t.Errorf("first = %+v, last = %+v", body.Days[0], body.Days[7])
	}
	if body.Days[5].Color != "noir" {
		t.Errorf("Good Friday color = %q, want noir", body.Days[5].Color)
	}
}

func TestGetRange_Errors(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name     string
		path     string
		wantCode string
	}{
		{"missing end", "/api/v1/days?start=2025-01-01", "BAD_REQUEST"},
		{"bad start", "/api/v1/days?start=2025-1-1&end=2025-01-10", "INVALID_DATE"},
		{"reversed", "/api/v1/days?start=2025-02-01&end=2025-01-01", "INVALID_DATE"},
		{"too long", "/api/v1/days?start=2025-01-01&end=2025-06-01", "BAD_REQUEST"},
		{"bad rite", "/api/v1/days?start=2025-01-01&end=2025-01-02&rite=x", "INVALID_RITE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.get(t, tt.path)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if resp := decode(t, rr, nil); resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestGetCalendarICS(t *testing.T) {
	env := setupTest(t)

	rr := env.get(t, "/api/v1/calendar.ics?year=2025&rite=ordinaire")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "BEGIN:VCALENDAR") {
		t.Errorf("body starts %q", body[:min(len(body), 40)])
	}
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 365 {
		t.Errorf("got %d events, want 365", n)
	}

	bad := env.get(t, "/api/v1/calendar.ics?year=soon")
	if bad.Code != http.StatusBadRequest {
		t.Errorf("bad year status = %d", bad.Code)
	}
	old := env.get(t, "/api/v1/calendar.ics?year=1200")
	if old.Code != http.StatusBadRequest {
		t.Errorf("out of range year status = %d", old.Code)
	}
}

func TestGetCalendarICS_YearRollover(t *testing.T) {
	env := setupTest(t)

	env.handlers.now = func() time.Time { return time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC) }
	dec := env.get(t, "/api/v1/calendar.ics")
	if dec.Code != http.StatusOK {
		t.Fatalf("status = %d", dec.Code)
	}
	etag := dec.Header().Get("ETag")
	if !strings.HasSuffix(etag, `-2025"`) {
		t.Fatalf("ETag = %q, want the feed year in it", etag)
	}

	again := env.get(t, "/api/v1/calendar.ics", "If-None-Match", etag)
	if again.Code != http.StatusNotModified {
		t.Errorf("same year status = %d, want 304", again.Code)
	}

	env.handlers.now = func() time.Time { return time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC) }
	jan := env.get(t, "/api/v1/calendar.ics", "If-None-Match", etag)
	if jan.Code != http.StatusOK {
		t.Fatalf("new year status = %d, want 200", jan.Code)
	}
	if got := jan.Header().Get("ETag"); got == etag || !strings.HasSuffix(got, `-2026"`) {
		t.Errorf("new year ETag = %q, previous %q", got, etag)
	}
	if cd := jan.Header().Get("Content-Disposition"); !strings.Contains(cd, "ordo-2026.ics") {
		t.Errorf("Content-Disposition = %q, want the 2026 feed", cd)
	}
}

// =============================================================================
// DATASET, EASTER, HEALTH
// =============================================================================

func TestGetDataset(t *testing.T) {
	env := setupTest(t)

	rr := env.get(t, "/api/v1/dataset")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var stats struct {
		Version   string         `json:"version"`
		Temporal  map[string]int `json:"temporal_entries"`
		Sanctoral map[string]int `json:"sanctoral_entries"`
	}
	decode(t, rr, &stats)
	if !strings.HasPrefix(stats.Version, "bafkrei") {
		t.Errorf("version = %q", stats.Version)
	}
	if stats.Temporal["extraordinaire"] == 0 || stats.Sanctoral["ordinaire"] == 0 {
		t.Errorf("counts = %v / %v", stats.Temporal, stats.Sanctoral)
	}
	if rr.Header().Get("ETag") != `"`+stats.Version+`"` {
		t.Errorf("ETag = %q", rr.Header().Get("ETag"))
	}
}

func TestGetEaster(t *testing.T) {
	env := setupTest(t)

	rr := env.get(t, "/api/v1/easter/2025")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var got easterResponse
	decode(t, rr, &got)
	want := easterResponse{
		Year:         2025,
		Septuagesima: "2025-02-16",
		AshWednesday: "2025-03-05",
		PalmSunday:   "2025-04-13",
		Easter:       "2025-04-20",
		Ascension:    "2025-05-29",
		Pentecost:    "2025-06-08",
		FirstAdvent:  "2025-11-30",
	}
	if got != want {
		t.Errorf("got %+v\nwant %+v", got, want)
	}

	for _, path := range []string{"/api/v1/easter/1400", "/api/v1/easter/next"} {
		if rr := env.get(t, path); rr.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, rr.Code)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	env := setupTest(t)

	var status map[string]any
	decode(t, env.get(t, "/health"), &status)
	if status["status"] != "healthy" || status["data_loaded"] != false {
		t.Errorf("before load: %v", status)
	}

	if _, err := env.engine.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	decode(t, env.get(t, "/health"), &status)
	if status["data_loaded"] != true || status["dataset_version"] == nil {
		t.Errorf("after load: %v", status)
	}
}

func TestHealthCheck_Database(t *testing.T) {
	db, err := database.Open(database.Config{Path: ":memory:"}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	env := setupWith(t, source.NewFS(data.FS, ""), db)

	if rr := env.get(t, "/health"); rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	db.Close()
	if rr := env.get(t, "/health"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("closed database status = %d, want 503", rr.Code)
	}
}

// =============================================================================
// ROUTING AND MIDDLEWARE
// =============================================================================

func TestRouting(t *testing.T) {
	env := setupTest(t)

	rr := env.get(t, "/api/v1/readings/today")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d", rr.Code)
	}
	if resp := decode(t, rr, nil); resp.Error == nil || resp.Error.Code != "NOT_FOUND" {
		t.Errorf("unknown route error = %+v", resp.Error)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dataset", nil)
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := setupTest(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/days/2025-12-25", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORSMiddleware_AllowList(t *testing.T) {
	handler := CORSMiddleware("https://ordo.example, https://app.example/")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{"first listed", "https://ordo.example", "https://ordo.example"},
		{"second listed, trailing slash in config", "https://app.example", "https://app.example"},
		{"not listed", "https://evil.example", ""},
		{"no origin", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/dataset", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.want)
			}
			if strings.Contains(rr.Header().Get("Access-Control-Allow-Origin"), ",") {
				t.Error("Allow-Origin holds a list")
			}
			if rr.Header().Get("Vary") != "Origin" {
				t.Errorf("Vary = %q, want Origin", rr.Header().Get("Vary"))
			}
		})
	}
}

func TestCORSMiddleware_Wildcard(t *testing.T) {
	for _, origins := range []string{"", "*", "https://ordo.example,*"} {
		handler := CORSMiddleware(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("CORSMiddleware(%q): Allow-Origin = %q, want *", origins, got)
		}
	}
}

func TestRequestID(t *testing.T) {
	env := setupTest(t)

	rr := env.get(t, "/health")
	if len(rr.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("generated request ID = %q, want a uuid", rr.Header().Get("X-Request-ID"))
	}

	rr = env.get(t, "/health", "X-Request-ID", "client-abc")
	if got := rr.Header().Get("X-Request-ID"); got != "client-abc" {
		t.Errorf("request ID = %q, want client-abc", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{liturgy.ErrInvalidDate, http.StatusBadRequest},
		{liturgy.ErrInvalidRite, http.StatusBadRequest},
		{liturgy.ErrDataLoadFailure, http.StatusServiceUnavailable},
		{liturgy.ErrDataIntegrity, http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
