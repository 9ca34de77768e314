package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/ordo-api/internal/calendar"
	"github.com/zapponejosh/ordo-api/internal/config"
	"github.com/zapponejosh/ordo-api/internal/database"
	"github.com/zapponejosh/ordo-api/internal/export"
	"github.com/zapponejosh/ordo-api/internal/liturgy"
	"github.com/zapponejosh/ordo-api/internal/logger"
)

// MaxRangeDays bounds GET /api/v1/days.
const MaxRangeDays = 90

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	engine *liturgy.Engine
	db     *database.DB // nil unless calendar data is served from SQLite
	cfg    *config.Config
	logger *slog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// NewHandlers creates a new Handlers instance. db may be nil.
func NewHandlers(engine *liturgy.Engine, db *database.DB, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{
		engine: engine,
		db:     db,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			h.logger.Warn("health check failed", slog.Any("error", err))
			WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
			return
		}
	}

	status := map[string]any{
		"status":       "healthy",
		"default_rite": h.engine.DefaultRite(),
		"data_loaded":  false,
	}
	if b := h.engine.Loaded(); b != nil {
		status["data_loaded"] = true
		status["dataset_version"] = b.Version
	}
	WriteSuccess(w, status)
}

// GetToday handles GET /api/v1/days/today
func (h *Handlers) GetToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	day, err := h.engine.ComputeLiturgicalDay(ctx, h.now(), r.URL.Query().Get("rite"))
	if err != nil {
		h.fail(w, r, "failed to resolve today", err)
		return
	}

	logger.Debug(ctx, "resolved day", slog.String("date", day.Date), slog.String("chosen", chosenID(day)))
	WriteSuccess(w, day)
}

// GetDay handles GET /api/v1/days/{YYYY-MM-DD}
func (h *Handlers) GetDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dateStr := chi.URLParam(r, "date")

	day, err := h.engine.ComputeLiturgicalDayISO(ctx, dateStr, r.URL.Query().Get("rite"))
	if err != nil {
		h.fail(w, r, "failed to resolve day", err, slog.String("date", dateStr))
		return
	}

	if notModified(w, r, day.DatasetVersion, string(day.Rite)) {
		return
	}
	logger.Debug(ctx, "resolved day", slog.String("date", day.Date), slog.String("chosen", chosenID(day)))
	WriteSuccess(w, day)
}

// GetRange handles GET /api/v1/days?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handlers) GetRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	startStr, endStr := q.Get("start"), q.Get("end")
	if startStr == "" || endStr == "" {
		WriteBadRequest(w, "Both start and end date parameters are required")
		return
	}

	start, err := liturgy.ParseDate(startStr)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	end, err := liturgy.ParseDate(endStr)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	if start.After(end) {
		WriteError(w, http.StatusBadRequest, "Start date must be before or equal to end date", string(liturgy.CodeInvalidDate))
		return
	}
	if calendar.DaysBetween(start, end) > MaxRangeDays {
		WriteBadRequest(w, fmt.Sprintf("Date range cannot exceed %d days", MaxRangeDays))
		return
	}

	days, err := h.engine.ComputeRange(ctx, start, end, q.Get("rite"))
	if err != nil {
		h.fail(w, r, "failed to resolve range", err,
			slog.String("start", startStr), slog.String("end", endStr))
		return
	}

	if len(days) > 0 && notModified(w, r, days[0].DatasetVersion, string(days[0].Rite)) {
		return
	}
	WriteSuccess(w, map[string]any{
		"start": startStr,
		"end":   endStr,
		"days":  days,
	})
}

// GetCalendarICS handles GET /api/v1/calendar.ics?year=YYYY
func (h *Handlers) GetCalendarICS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	year := h.now().Year()
	if s := q.Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid year: %s", s), string(liturgy.CodeInvalidDate))
			return
		}
		year = y
	}
	if year < calendar.MinYear || year > calendar.MaxYear {
		WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("Year must be between %d and %d", calendar.MinYear, calendar.MaxYear),
			string(liturgy.CodeInvalidDate))
		return
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	days, err := h.engine.ComputeRange(ctx, start, end, q.Get("rite"))
	if err != nil {
		h.fail(w, r, "failed to build calendar feed", err, slog.Int("year", year))
		return
	}
	if len(days) > 0 && notModified(w, r, days[0].DatasetVersion, string(days[0].Rite), strconv.Itoa(year)) {
		return
	}

	name := fmt.Sprintf("Ordo %d", year)
	if len(days) > 0 {
		name = fmt.Sprintf("Ordo %d (%s)", year, days[0].Rite)
	}
	body := export.ICS(days, export.ICSOptions{Name: name, Stamp: h.now()})

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ordo-%d.ics"`, year))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// GetDataset handles GET /api/v1/dataset
func (h *Handlers) GetDataset(w http.ResponseWriter, r *http.Request) {
	b, err := h.engine.Load(r.Context())
	if err != nil {
		h.fail(w, r, "failed to load calendar data", err)
		return
	}
	if notModified(w, r, b.Version) {
		return
	}
	WriteSuccess(w, b.Stats())
}

// easterResponse lists a year's movable dates as YYYY-MM-DD.
type easterResponse struct {
	Year         int    `json:"year"`
	Septuagesima string `json:"septuagesima"`
	AshWednesday string `json:"ash_wednesday"`
	PalmSunday   string `json:"palm_sunday"`
	Easter       string `json:"easter"`
	Ascension    string `json:"ascension"`
	Pentecost    string `json:"pentecost"`
	FirstAdvent  string `json:"first_sunday_of_advent"`
}

// GetEaster handles GET /api/v1/easter/{year}
func (h *Handlers) GetEaster(w http.ResponseWriter, r *http.Request) {
	yearStr := chi.URLParam(r, "year")
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid year: %s", yearStr), string(liturgy.CodeInvalidDate))
		return
	}

	kd, err := calendar.KeyDatesFor(year)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), string(liturgy.CodeInvalidDate))
		return
	}

	WriteSuccess(w, easterResponse{
		Year:         kd.Year,
		Septuagesima: calendar.FormatDate(kd.Septuagesima),
		AshWednesday: calendar.FormatDate(kd.AshWednesday),
		PalmSunday:   calendar.FormatDate(kd.PalmSunday),
		Easter:       calendar.FormatDate(kd.Easter),
		Ascension:    calendar.FormatDate(kd.Ascension),
		Pentecost:    calendar.FormatDate(kd.Pentecost),
		FirstAdvent:  calendar.FormatDate(kd.FirstAdvent),
	})
}

// fail logs server-side failures and writes the mapped error response.
// Client errors are not logged above debug.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, msg string, err error, args ...any) {
	ctx := r.Context()
	if StatusOf(err) >= http.StatusInternalServerError {
		logger.Error(ctx, msg, err, args...)
	} else {
		logger.Debug(ctx, msg, append([]any{slog.Any("error", err)}, args...)...)
	}
	WriteEngineError(w, err)
}

// notModified sets the ETag for a response derived from one dataset
// version and answers 304 when the client already has it. qualifiers name
// whatever else the body depends on (rite, feed year), so a default that
// changes underneath the same URL changes the tag.
func notModified(w http.ResponseWriter, r *http.Request, version string, qualifiers ...string) bool {
	if version == "" {
		return false
	}
	etag := `"` + strings.Join(append([]string{version}, qualifiers...), "-") + `"`
	w.Header().Set("ETag", etag)

	for _, candidate := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}

func chosenID(day *liturgy.Day) string {
	if day.Chosen == nil {
		return ""
	}
	return day.Chosen.ID
}
