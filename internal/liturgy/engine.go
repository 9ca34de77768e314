package liturgy

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/zapponejosh/ordo-api/internal/calendar"
)

// Options configures an Engine. The zero value uses the default manifest,
// the fixed Advent window, the extraordinary rite and slog.Default.
type Options struct {
	Manifest    Manifest
	Boundaries  calendar.Boundaries
	DefaultRite Rite
	Logger      *slog.Logger
}

// Engine answers (date, rite) queries. Calendar data is fetched on first
// use and kept for the life of the engine.
type Engine struct {
	fetcher Fetcher
	opts    Options
	log     *slog.Logger

	bundle atomic.Pointer[Bundle]

	mu      sync.Mutex
	pending *loadCall
}

// loadCall is a load in flight that later callers wait on.
type loadCall struct {
	done   chan struct{}
	bundle *Bundle
	err    error
}

// NewEngine creates an engine reading its documents from f.
func NewEngine(f Fetcher, opts Options) *Engine {
	if len(opts.Manifest.Temporal) == 0 && opts.Manifest.Sanctoral == "" {
		opts.Manifest = DefaultManifest()
	}
	if opts.DefaultRite == "" {
		opts.DefaultRite = DefaultRite
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		fetcher: f,
		opts:    opts,
		log:     opts.Logger.With(slog.String("component", "liturgy")),
	}
}

// DefaultRite is the rite used when a query names none.
func (e *Engine) DefaultRite() Rite {
	return e.opts.DefaultRite
}

// Loaded returns the bundle if it has been loaded, else nil.
func (e *Engine) Loaded() *Bundle {
	return e.bundle.Load()
}

// Load makes sure calendar data is resident and returns it.
//
// Concurrent first callers share one fetch. The fetch is not cancelled
// when a waiting caller's ctx is; that caller returns early and the others
// keep waiting. A failed load is not remembered: the next call tries again.
func (e *Engine) Load(ctx context.Context) (*Bundle, error) {
	if b := e.bundle.Load(); b != nil {
		return b, nil
	}

	e.mu.Lock()
	if b := e.bundle.Load(); b != nil {
		e.mu.Unlock()
		return b, nil
	}
	call := e.pending
	if call == nil {
		call = &loadCall{done: make(chan struct{})}
		e.pending = call
		go e.load(context.WithoutCancel(ctx), call)
	}
	e.mu.Unlock()

	select {
	case <-call.done:
		return call.bundle, call.err
	case <-ctx.Done():
		return nil, newError(CodeDataLoadFailure, ctx.Err(), "waiting for calendar data")
	}
}

func (e *Engine) load(ctx context.Context, call *loadCall) {
	start := time.Now()
	b, err := LoadBundle(ctx, e.fetcher, e.opts.Manifest, e.opts.Boundaries)

	e.mu.Lock()
	if err == nil {
		e.bundle.Store(b)
	}
	e.pending = nil
	e.mu.Unlock()

	if err != nil {
		e.log.Error("calendar load failed", slog.Any("error", err))
	} else {
		stats := b.Stats()
		e.log.Info("calendar loaded",
			slog.String("version", b.Version),
			slog.Any("temporal_entries", stats.Temporal),
			slog.Any("sanctoral_entries", stats.Sanctoral),
			slog.Duration("took", time.Since(start)),
		)
		for _, w := range b.Warnings {
			e.log.Warn("calendar data conflict", slog.String("detail", w.Message), slog.Any("entries", w.EntryIDs))
		}
	}

	call.bundle, call.err = b, err
	close(call.done)
}

// ParseRite resolves a query's rite, falling back to the engine default
// when s is blank.
func (e *Engine) ParseRite(s string) (Rite, error) {
	if strings.TrimSpace(s) == "" {
		return e.opts.DefaultRite, nil
	}
	return ParseRite(s)
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	d, err := calendar.ParseDateString(s)
	if err != nil {
		return time.Time{}, newError(CodeInvalidDate, err, "%q is not a YYYY-MM-DD date", s)
	}
	return d, nil
}

// ComputeLiturgicalDayISO is ComputeLiturgicalDay for an ISO date string.
func (e *Engine) ComputeLiturgicalDayISO(ctx context.Context, date, rite string) (*Day, error) {
	d, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	return e.ComputeLiturgicalDay(ctx, d, rite)
}

// ComputeLiturgicalDay resolves the celebration of date for rite. Only the
// civil date of date is used. A blank rite means the engine default.
func (e *Engine) ComputeLiturgicalDay(ctx context.Context, date time.Time, rite string) (*Day, error) {
	r, err := e.ParseRite(rite)
	if err != nil {
		return nil, err
	}
	if _, err := calendar.EasterDate(date.Year()); err != nil {
		return nil, newError(CodeInvalidDate, err, "%s", calendar.FormatDate(date))
	}

	b, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	day, err := b.resolve(date, r)
	if err != nil {
		return nil, err
	}
	e.report(ctx, day)
	return day, nil
}

func (e *Engine) report(ctx context.Context, day *Day) {
	for _, w := range day.Warnings {
		e.log.WarnContext(ctx, "temporal conflict",
			slog.String("date", day.Date),
			slog.String("rite", string(day.Rite)),
			slog.String("detail", w.Message),
		)
	}
	if len(day.shadowed) > 0 && day.Temporal != nil {
		ids := make([]string, len(day.shadowed))
		for i, s := range day.shadowed {
			ids[i] = s.ID
		}
		e.log.DebugContext(ctx, "range entries shadowed by exact anchor",
			slog.String("date", day.Date),
			slog.String("rite", string(day.Rite)),
			slog.String("chosen", day.Temporal.ID),
			slog.Any("shadowed", ids),
		)
	}
}

// ComputeRange resolves every day from start to end inclusive.
func (e *Engine) ComputeRange(ctx context.Context, start, end time.Time, rite string) ([]*Day, error) {
	start, end = calendar.DateOf(start), calendar.DateOf(end)
	if end.Before(start) {
		return nil, newError(CodeInvalidDate, nil, "range end %s before start %s",
			calendar.FormatDate(end), calendar.FormatDate(start))
	}
	for _, d := range []time.Time{start, end} {
		if _, err := calendar.EasterDate(d.Year()); err != nil {
			return nil, newError(CodeInvalidDate, err, "%s", calendar.FormatDate(d))
		}
	}

	r, err := e.ParseRite(rite)
	if err != nil {
		return nil, err
	}
	b, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Until:   end,
	})
	if err != nil {
		return nil, newError(CodeInvalidDate, err, "build date range")
	}

	dates := rule.All()
	days := make([]*Day, 0, len(dates))
	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day, err := b.resolve(d, r)
		if err != nil {
			return nil, err
		}
		e.report(ctx, day)
		days = append(days, day)
	}
	return days, nil
}

// resolve builds the Day for date from the rite's calendar.
func (b *Bundle) resolve(date time.Time, r Rite) (*Day, error) {
	cal := b.Calendar(r)
	if cal == nil {
		return nil, newError(CodeInvalidRite, nil, "no calendar for rite %q", r)
	}

	date = calendar.DateOf(date)
	pos, err := cal.Position(date)
	if err != nil {
		return nil, err
	}

	temporal, warnings, shadowed, err := cal.resolveTemporal(date)
	if err != nil {
		return nil, err
	}
	sanctoral := cal.ResolveSanctoral(date)
	if sanctoral == nil {
		sanctoral = []*Entry{}
	}

	day := &Day{
		Date:             calendar.FormatDate(date),
		Rite:             r,
		Season:           pos.Season,
		OffsetFromEaster: pos.OffsetFromEaster,
		Result:           ApplyPrecedence(temporal, Competitor(sanctoral), r),
		Temporal:         temporal,
		Sanctoral:        sanctoral,
		Warnings:         warnings,
		DatasetVersion:   b.Version,
		shadowed:         shadowed,
	}
	if r == RiteOrdinary {
		cycle := calendar.GetYearCycle(date)
		day.Cycle = &cycle
	}
	return day, nil
}
