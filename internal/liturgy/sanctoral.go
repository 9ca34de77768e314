package liturgy

import (
	"time"

	"github.com/zapponejosh/ordo-api/internal/calendar"
)

// ResolveSanctoral returns the sanctoral entries kept on date's month and
// day, in source order. The year plays no part.
func (c *Calendar) ResolveSanctoral(date time.Time) []*Entry {
	found := c.sanctoral[calendar.MonthDayOf(date)]
	if len(found) == 0 {
		return nil
	}
	return append([]*Entry(nil), found...)
}

// Competitor picks the entry that competes with the temporal cycle: the
// highest ranked, the first listed on ties. Nil for an empty list.
func Competitor(entries []*Entry) *Entry {
	var best *Entry
	for _, e := range entries {
		if best == nil || rankScore[e.Rank] > rankScore[best.Rank] {
			best = e
		}
	}
	return best
}
