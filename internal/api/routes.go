package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/ordo-api/internal/config"
)

// SetupRoutes configures all HTTP routes and returns the router.
//
// Route structure:
//
//	GET /health                               liveness, dataset state
//	GET /api/v1/days/today?rite=              today's celebration
//	GET /api/v1/days/{date}?rite=             one date, YYYY-MM-DD
//	GET /api/v1/days?start=&end=&rite=        inclusive range, at most 90 days
//	GET /api/v1/calendar.ics?year=&rite=      a year as an iCalendar feed
//	GET /api/v1/dataset                       version, entry counts, load warnings
//	GET /api/v1/easter/{year}                 movable feasts of a year
func SetupRoutes(handlers *Handlers, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.CORSOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "No route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed", "METHOD_NOT_ALLOWED")
	})

	r.Get("/health", handlers.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/days", handlers.GetRange)
		r.Get("/days/today", handlers.GetToday)
		r.Get("/days/{date}", handlers.GetDay)
		r.Get("/calendar.ics", handlers.GetCalendarICS)
		r.Get("/dataset", handlers.GetDataset)
		r.Get("/easter/{year}", handlers.GetEaster)
	})

	return r
}
