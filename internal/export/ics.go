// Package export renders resolved days in calendar interchange formats.
package export

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/zapponejosh/ordo-api/internal/calendar"
	"github.com/zapponejosh/ordo-api/internal/liturgy"
)

// ProductID identifies this program in exported calendars.
const ProductID = "-//ordo-api//Ordo 1962//FR"

// ICSOptions controls an ICS export.
type ICSOptions struct {
	// Name becomes X-WR-CALNAME. Empty omits it.
	Name string
	// Stamp is written as DTSTAMP on every event. Zero means time.Now.
	Stamp time.Time
}

// ICS renders days as an iCalendar feed with one all-day event per day.
// Event UIDs are stable for a given date, rite and dataset version, so a
// subscriber only sees changes when the data changes.
func ICS(days []*liturgy.Day, opts ICSOptions) string {
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, day := range days {
		if day.Chosen == nil {
			continue
		}
		date, err := calendar.ParseDateString(day.Date)
		if err != nil {
			continue
		}

		ev := cal.AddEvent(eventUID(day))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(date)
		ev.SetAllDayEndAt(date.AddDate(0, 0, 1))
		ev.SetSummary(day.Chosen.Title)
		ev.SetDescription(describe(day))
		ev.SetProperty(ical.ComponentPropertyCategories, string(day.Color))
	}
	return cal.Serialize()
}

func eventUID(day *liturgy.Day) string {
	version := day.DatasetVersion
	if len(version) > 16 {
		version = version[len(version)-16:]
	}
	return fmt.Sprintf("%s-%s-%s@ordo-api", day.Date, day.Rite, version)
}

// describe lists what the summary leaves out: rank, colour, the
// commemoration and why precedence decided as it did.
func describe(day *liturgy.Day) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rang: %s\nCouleur: %s\nTemps: %s", day.Chosen.Rank, day.Color, day.Season)
	if day.Commemoration != nil {
		fmt.Fprintf(&b, "\nMémoire: %s", day.Commemoration.Title)
	}
	if day.Cycle != nil {
		fmt.Fprintf(&b, "\nCycle: %s / %s", day.Cycle.Sunday, day.Cycle.Weekday)
	}
	fmt.Fprintf(&b, "\nPréséance: %s", day.Reason)
	return b.String()
}
