package calendar

import (
	"fmt"
	"time"
)

// Season is a liturgical season bucket of the 1962 calendar.
type Season string

const (
	SeasonNone          Season = ""
	SeasonAdvent        Season = "advent"
	SeasonChristmastide Season = "christmastide"
	SeasonPreLent       Season = "pre_lent"
	SeasonLent          Season = "lent"
	SeasonHolyWeek      Season = "holy_week"
	SeasonEastertide    Season = "eastertide"
	SeasonPentecost     Season = "pentecost"
	SeasonPostPentecost Season = "post_pentecost"
)

// Seasons returns every season in search order: the fixed-date seasons
// first, then the Easter-anchored ones by offset.
func Seasons() []Season {
	return []Season{
		SeasonAdvent,
		SeasonChristmastide,
		SeasonPreLent,
		SeasonLent,
		SeasonHolyWeek,
		SeasonEastertide,
		SeasonPentecost,
		SeasonPostPentecost,
	}
}

// IsValid checks if a season is one of the known buckets.
func (s Season) IsValid() bool {
	for _, valid := range Seasons() {
		if s == valid {
			return true
		}
	}
	return false
}

// IsFixed reports whether the season is bounded by civil dates rather than
// by the date of Easter.
func (s Season) IsFixed() bool {
	return s == SeasonAdvent || s == SeasonChristmastide
}

// Offsets from Easter Sunday that open each Easter-anchored season.
const (
	OffsetSeptuagesima  = -63
	OffsetAshWednesday  = -46
	OffsetPalmSunday    = -7
	OffsetPentecost     = 49
	OffsetPostPentecost = OffsetPentecost + 1
)

// AdventRule selects how the start of Advent is computed.
type AdventRule int

const (
	// AdventFixed opens Advent on November 27 every year.
	AdventFixed AdventRule = iota
	// AdventFirstSunday opens Advent on the first Sunday of Advent.
	AdventFirstSunday
)

// ParseAdventRule parses "fixed" or "sunday".
func ParseAdventRule(s string) (AdventRule, error) {
	switch s {
	case "", "fixed":
		return AdventFixed, nil
	case "sunday":
		return AdventFirstSunday, nil
	default:
		return AdventFixed, fmt.Errorf("unknown advent rule %q", s)
	}
}

func (r AdventRule) String() string {
	if r == AdventFirstSunday {
		return "sunday"
	}
	return "fixed"
}

// Boundaries holds the adjustable season windows.
type Boundaries struct {
	Advent AdventRule
}

// DefaultBoundaries returns the November 27 Advent window.
func DefaultBoundaries() Boundaries {
	return Boundaries{Advent: AdventFixed}
}

// AdventStart returns the first day of Advent in year.
func (b Boundaries) AdventStart(year int) time.Time {
	if b.Advent == AdventFirstSunday {
		return CalculateAdvent(year)
	}
	return time.Date(year, time.November, 27, 0, 0, 0, 0, time.UTC)
}

// Position places a date in the liturgical year.
type Position struct {
	Season           Season `json:"season"`
	OffsetFromEaster int    `json:"offset_from_easter"`
}

// SeasonOf classifies date using the default boundaries. easter must be
// Easter Sunday of date's civil year.
func SeasonOf(date, easter time.Time) Position {
	return DefaultBoundaries().SeasonOf(date, easter)
}

// SeasonOf classifies date. A boundary date belongs to the later season,
// so Ash Wednesday is lent and Easter Sunday is eastertide.
//
// Christmastide covers Christmas and the time after Epiphany: it runs from
// December 25 to the eve of Septuagesima, wrapping the civil year end.
func (b Boundaries) SeasonOf(date, easter time.Time) Position {
	d := DateOf(date)
	offset := DaysBetween(DateOf(easter), d)
	pos := Position{OffsetFromEaster: offset}

	christmas := time.Date(d.Year(), time.December, 25, 0, 0, 0, 0, time.UTC)

	switch {
	case !d.Before(christmas):
		pos.Season = SeasonChristmastide
	case !d.Before(b.AdventStart(d.Year())):
		pos.Season = SeasonAdvent
	case offset >= OffsetPostPentecost:
		pos.Season = SeasonPostPentecost
	case offset == OffsetPentecost:
		pos.Season = SeasonPentecost
	case offset >= 0:
		pos.Season = SeasonEastertide
	case offset >= OffsetPalmSunday:
		pos.Season = SeasonHolyWeek
	case offset >= OffsetAshWednesday:
		pos.Season = SeasonLent
	case offset >= OffsetSeptuagesima:
		pos.Season = SeasonPreLent
	default:
		pos.Season = SeasonChristmastide
	}

	return pos
}
