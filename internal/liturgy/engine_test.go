package liturgy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zapponejosh/ordo-api/internal/calendar"
)

func newTestEngine(f Fetcher, opts Options) *Engine {
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(f, opts)
}

func TestComputeLiturgicalDay_Scenarios(t *testing.T) {
	eng := newTestEngine(embedded(), Options{})

	tests := []struct {
		date          string
		rite          string
		chosen        string
		suppressed    string
		commemoration string
		color         Color
		reason        Reason
		season        Season
	}{
		{"2025-12-25", "extraordinaire", "nativity", "st_anastasia", "", ColorBlanc, ReasonTemporalSupersedesSanctoral, calendar.SeasonChristmastide},
		{"2025-12-25", "ordinaire", "nativity", "", "", ColorBlanc, ReasonTemporalOnly, calendar.SeasonChristmastide},
		{"2025-03-19", "extraordinaire", "st_joseph", "lent_feria", "", ColorBlanc, ReasonSanctoralSupersedesTemporal, calendar.SeasonLent},
		{"2025-07-13", "extraordinaire", "sunday_after_pentecost", "st_anacletus", "st_anacletus", ColorVert, ReasonTemporalWithCommemoration, calendar.SeasonPostPentecost},
		{"2025-07-13", "ordinaire", "sunday_after_pentecost", "", "", ColorVert, ReasonTemporalOnly, calendar.SeasonPostPentecost},
		{"2025-07-22", "extra", "st_mary_magdalene", "feria_after_pentecost", "feria_after_pentecost", ColorBlanc, ReasonSanctoralWithCommemoration, calendar.SeasonPostPentecost},
		{"2025-11-30", "", "advent_sunday", "st_andrew", "", ColorViolet, ReasonTemporalSupersedesSanctoral, calendar.SeasonAdvent},
		{"2024-03-25", "", "holy_monday", "annunciation", "", ColorViolet, ReasonTemporalSupersedesSanctoral, calendar.SeasonHolyWeek},
		{"2025-12-26", "", "st_stephen", "christmas_octave_day", "", ColorRouge, ReasonSanctoralSupersedesTemporal, calendar.SeasonChristmastide},
		{"2025-04-18", "", "good_friday", "", "", ColorNoir, ReasonTemporalOnly, calendar.SeasonHolyWeek},
		{"2025-04-20", "", "easter_sunday", "", "", ColorBlanc, ReasonTemporalOnly, calendar.SeasonEastertide},
		{"2025-06-08", "", "pentecost_sunday", "", "", ColorRouge, ReasonTemporalOnly, calendar.SeasonPentecost},
	}

	id := func(e *Entry) string {
		if e == nil {
			return ""
		}
		return e.ID
	}

	for _, tt := range tests {
		t.Run(tt.date+"/"+tt.rite, func(t *testing.T) {
			day, err := eng.ComputeLiturgicalDayISO(context.Background(), tt.date, tt.rite)
			if err != nil {
				t.Fatalf("ComputeLiturgicalDay: %v", err)
			}
			if day.Date != tt.date {
				t.Errorf("Date = %s", day.Date)
			}
			if got := id(day.Chosen); got != tt.chosen {
				t.Errorf("Chosen = %q, want %q", got, tt.chosen)
			}
			if got := id(day.Suppressed); got != tt.suppressed {
				t.Errorf("Suppressed = %q, want %q", got, tt.suppressed)
			}
			if got := id(day.Commemoration); got != tt.commemoration {
				t.Errorf("Commemoration = %q, want %q", got, tt.commemoration)
			}
			if day.Color != tt.color {
				t.Errorf("Color = %q, want %q", day.Color, tt.color)
			}
			if day.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", day.Reason, tt.reason)
			}
			if day.Season != tt.season {
				t.Errorf("Season = %q, want %q", day.Season, tt.season)
			}
			if day.DatasetVersion == "" {
				t.Error("DatasetVersion is empty")
			}
		})
	}
}

func TestComputeLiturgicalDay_Position(t *testing.T) {
	eng := newTestEngine(embedded(), Options{})

	day, err := eng.ComputeLiturgicalDayISO(context.Background(), "2025-07-13", "")
	if err != nil {
		t.Fatal(err)
	}
	if day.Rite != RiteExtraordinary {
		t.Errorf("Rite = %q, want default", day.Rite)
	}
	if day.OffsetFromEaster != 84 {
		t.Errorf("OffsetFromEaster = %d, want 84", day.OffsetFromEaster)
	}
	if day.Cycle != nil {
		t.Errorf("Cycle = %+v, want nil for the 1962 rite", day.Cycle)
	}

	// 23:30 in New York is already the 26th in UTC.
	ny := time.FixedZone("EST", -5*3600)
	day, err = eng.ComputeLiturgicalDay(context.Background(), time.Date(2025, 12, 25, 23, 30, 0, 0, ny), "")
	if err != nil {
		t.Fatal(err)
	}
	if day.Date != "2025-12-25" || day.Chosen.ID != "nativity" {
		t.Errorf("got %s %s, want the civil date 2025-12-25", day.Date, day.Chosen.ID)
	}
}

func TestComputeLiturgicalDay_OrdinaryRite(t *testing.T) {
	eng := newTestEngine(embedded(), Options{DefaultRite: RiteOrdinary})

	day, err := eng.ComputeLiturgicalDayISO(context.Background(), "2025-12-25", "")
	if err != nil {
		t.Fatal(err)
	}
	if day.Rite != RiteOrdinary {
		t.Errorf("Rite = %q", day.Rite)
	}
	if day.Chosen.Title != "Nativité du Seigneur" {
		t.Errorf("Title = %q", day.Chosen.Title)
	}
	if day.Cycle == nil || day.Cycle.Sunday != calendar.SundayCycleA || day.Cycle.Weekday != calendar.WeekdayCycleII {
		t.Errorf("Cycle = %+v, want A/II", day.Cycle)
	}

	day, err = eng.ComputeLiturgicalDayISO(context.Background(), "2025-05-01", "ordinaire")
	if err != nil {
		t.Fatal(err)
	}
	if day.Chosen.ID != "st_joseph_the_worker" || day.Chosen.Rank != RankThirdClass {
		t.Errorf("chosen = %s (%s)", day.Chosen.ID, day.Chosen.Rank)
	}
}

func TestComputeLiturgicalDay_NoEntry(t *testing.T) {
	eng := newTestEngine(&mapFetcher{docs: smallDocs()}, Options{Manifest: smallManifest()})

	day, err := eng.ComputeLiturgicalDayISO(context.Background(), "2025-01-20", "")
	if err != nil {
		t.Fatal(err)
	}
	if day.Chosen != nil || day.Reason != ReasonNoEntry || day.Color != ColorBlanc {
		t.Errorf("got %+v, want no_entry", day.Result)
	}
	if day.Sanctoral == nil || len(day.Sanctoral) != 0 {
		t.Errorf("Sanctoral = %#v, want empty list", day.Sanctoral)
	}
}

func TestComputeLiturgicalDay_LogsShadowedRanges(t *testing.T) {
	docs := smallDocs()
	docs["temporal/lent.json"] = `[
	  {"id": "lent_feria", "rank": "Férie", "temporal_class": "feria", "offset_range": {"start": -46, "end": -8}},
	  {"id": "ash_wednesday", "rank": "I classe", "temporal_class": "feria", "easter_offset": -46}
	]`
	var buf bytes.Buffer
	eng := NewEngine(&mapFetcher{docs: docs}, Options{
		Manifest: smallManifest(),
		Logger:   slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})

	day, err := eng.ComputeLiturgicalDayISO(context.Background(), "2025-03-05", "")
	if err != nil {
		t.Fatal(err)
	}
	if day.Chosen == nil || day.Chosen.ID != "ash_wednesday" || len(day.Warnings) != 0 {
		t.Fatalf("chosen %v, warnings %v", day.Chosen, day.Warnings)
	}
	out := buf.String()
	if !strings.Contains(out, "range entries shadowed by exact anchor") || !strings.Contains(out, "lent_feria") {
		t.Errorf("no debug line for the shadowed range entry:\n%s", out)
	}
	if strings.Contains(out, "level=WARN") {
		t.Errorf("shadowed range logged as a warning:\n%s", out)
	}

	if _, err := json.Marshal(day); err != nil {
		t.Fatal(err)
	}
}

func TestComputeLiturgicalDay_Idempotent(t *testing.T) {
	eng := newTestEngine(embedded(), Options{})
	ctx := context.Background()

	for _, date := range []string{"2025-12-25", "2025-07-13", "2024-03-25", "2025-01-20"} {
		a, err := eng.ComputeLiturgicalDayISO(ctx, date, "extraordinaire")
		if err != nil {
			t.Fatal(err)
		}
		b, err := eng.ComputeLiturgicalDayISO(ctx, date, "extraordinaire")
		if err != nil {
			t.Fatal(err)
		}
		if a == b {
			t.Fatalf("%s: results share a Day", date)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: results differ", date)
		}

		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		if string(ja) != string(jb) {
			t.Errorf("%s: encodings differ", date)
		}
	}
}

func TestComputeLiturgicalDay_HolyWeek(t *testing.T) {
	eng := newTestEngine(embedded(), Options{})
	ctx := context.Background()

	for year := 2000; year <= 2060; year++ {
		easter := calendar.CalculateEaster(year)
		for off := -7; off <= -1; off++ {
			for _, rite := range Rites() {
				day, err := eng.ComputeLiturgicalDay(ctx, easter.AddDate(0, 0, off), string(rite))
				if err != nil {
					t.Fatal(err)
				}
				if day.Season != calendar.SeasonHolyWeek {
					t.Fatalf("%s season = %s", day.Date, day.Season)
				}
				if day.Commemoration != nil {
					t.Fatalf("%s (%s): commemoration %s", day.Date, rite, day.Commemoration.ID)
				}
			}
		}
	}
}

func TestComputeLiturgicalDay_InvalidInput(t *testing.T) {
	f := &mapFetcher{docs: smallDocs()}
	eng := newTestEngine(f, Options{Manifest: smallManifest()})
	ctx := context.Background()

	for _, date := range []string{"", "2025-13-01", "2025-02-30", "yesterday", "1400-01-01", "25-12-2025"} {
		if _, err := eng.ComputeLiturgicalDayISO(ctx, date, ""); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("date %q: error = %v, want INVALID_DATE", date, err)
		}
	}
	if _, err := eng.ComputeLiturgicalDayISO(ctx, "2025-12-25", "ambrosian"); !errors.Is(err, ErrInvalidRite) {
		t.Errorf("error = %v, want INVALID_RITE", err)
	}

	if n := f.calls.Load(); n != 0 {
		t.Errorf("invalid queries fetched %d documents", n)
	}
}

func TestComputeRange(t *testing.T) {
	eng := newTestEngine(embedded(), Options{})
	start, _ := calendar.ParseDateString("2025-04-13")
	end, _ := calendar.ParseDateString("2025-04-20")

	days, err := eng.ComputeRange(context.Background(), start, end, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 8 {
		t.Fatalf("got %d days, want 8", len(days))
	}
	want := []string{"palm_sunday", "holy_monday", "holy_tuesday", "holy_wednesday", "holy_thursday", "good_friday", "holy_saturday", "easter_sunday"}
	for i, d := range days {
		if d.Chosen.ID != want[i] {
			t.Errorf("day %d (%s) = %s, want %s", i, d.Date, d.Chosen.ID, want[i])
		}
	}

	if _, err := eng.ComputeRange(context.Background(), end, start, ""); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("reversed range error = %v, want INVALID_DATE", err)
	}
}

func TestEngineLoad_Coalesced(t *testing.T) {
	f := &mapFetcher{docs: smallDocs(), gate: make(chan struct{})}
	eng := newTestEngine(f, Options{Manifest: smallManifest()})

	const callers = 32
	var (
		wg      sync.WaitGroup
		bundles = make([]*Bundle, callers)
		errs    = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bundles[i], errs[i] = eng.Load(context.Background())
		}(i)
	}

	// Let the callers pile up behind the first fetch.
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	for i := range bundles {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if bundles[i] != bundles[0] {
			t.Fatalf("caller %d got a different bundle", i)
		}
	}
	if n := f.calls.Load(); n != 3 {
		t.Errorf("fetched %d documents, want 3", n)
	}

	if _, err := eng.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := f.calls.Load(); n != 3 {
		t.Errorf("reload fetched again: %d calls", n)
	}
}

func TestEngineLoad_FailureNotCached(t *testing.T) {
	f := &mapFetcher{docs: smallDocs(), fail: errors.New("connection refused")}
	eng := newTestEngine(f, Options{Manifest: smallManifest()})

	_, err := eng.ComputeLiturgicalDayISO(context.Background(), "2025-03-19", "")
	if !errors.Is(err, ErrDataLoadFailure) {
		t.Fatalf("error = %v, want DATA_LOAD_FAILURE", err)
	}
	var coded *Error
	if !errors.As(err, &coded) || coded.Code != CodeDataLoadFailure {
		t.Fatalf("error %v is not a coded error", err)
	}
	if eng.Loaded() != nil {
		t.Fatal("failed load left a bundle behind")
	}

	f.fail = nil
	day, err := eng.ComputeLiturgicalDayISO(context.Background(), "2025-03-19", "")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if day.Chosen.ID != "st_joseph" {
		t.Errorf("chosen = %s", day.Chosen.ID)
	}
}

func TestEngineLoad_WaiterCancelled(t *testing.T) {
	f := &mapFetcher{docs: smallDocs(), gate: make(chan struct{})}
	eng := newTestEngine(f, Options{Manifest: smallManifest()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Load(ctx)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrDataLoadFailure) {
		t.Fatalf("error = %v, want cancelled DATA_LOAD_FAILURE", err)
	}

	// The load itself carries on.
	close(f.gate)
	b, err := eng.Load(context.Background())
	if err != nil || b == nil {
		t.Fatalf("Load after cancel: %v", err)
	}
}

func TestEngine_AdventRule(t *testing.T) {
	fixed := newTestEngine(embedded(), Options{})
	sunday := newTestEngine(embedded(), Options{Boundaries: calendar.Boundaries{Advent: calendar.AdventFirstSunday}})
	ctx := context.Background()

	// Advent 2023 began on 3 December.
	a, err := fixed.ComputeLiturgicalDayISO(ctx, "2023-11-28", "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := sunday.ComputeLiturgicalDayISO(ctx, "2023-11-28", "")
	if err != nil {
		t.Fatal(err)
	}
	if a.Season != calendar.SeasonAdvent || a.Chosen.ID != "advent_feria" {
		t.Errorf("fixed rule: %s %s", a.Season, a.Chosen.ID)
	}
	if b.Season != calendar.SeasonPostPentecost || b.Chosen.ID != "feria_after_pentecost" {
		t.Errorf("sunday rule: %s %s", b.Season, b.Chosen.ID)
	}
}
