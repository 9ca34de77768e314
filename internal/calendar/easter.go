// Package calendar provides the civil-date arithmetic of the 1962 liturgical
// year: the date of Easter, the movable feasts anchored on it, and the season
// a date belongs to.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// Supported range for the Gregorian computus.
const (
	MinYear = 1583
	MaxYear = 9999
)

// ErrYearOutOfRange is returned when a year falls outside [MinYear, MaxYear].
var ErrYearOutOfRange = errors.New("year out of supported range")

// CalculateEaster calculates the date of Easter Sunday for a given year
// using the anonymous Gregorian computus (Meeus/Jones/Butcher).
//
// The result is only meaningful for Gregorian years; use EasterDate when the
// year comes from user input.
func CalculateEaster(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// EasterDate returns Easter Sunday for year, or ErrYearOutOfRange.
func EasterDate(year int) (time.Time, error) {
	if year < MinYear || year > MaxYear {
		return time.Time{}, fmt.Errorf("easter %d: %w", year, ErrYearOutOfRange)
	}
	return CalculateEaster(year), nil
}

// CalculateSeptuagesima returns Septuagesima Sunday (63 days before Easter).
func CalculateSeptuagesima(year int) time.Time {
	return CalculateEaster(year).AddDate(0, 0, -63)
}

// CalculateAshWednesday calculates Ash Wednesday for a given year.
// Ash Wednesday is 46 days before Easter (40 days of Lent + 6 Sundays).
func CalculateAshWednesday(year int) time.Time {
	return CalculateEaster(year).AddDate(0, 0, -46)
}

// CalculatePalmSunday returns the first day of Holy Week.
func CalculatePalmSunday(year int) time.Time {
	return CalculateEaster(year).AddDate(0, 0, -7)
}

// CalculateAscension calculates Ascension Day for a given year.
// Ascension is 39 days after Easter (always on a Thursday).
func CalculateAscension(year int) time.Time {
	return CalculateEaster(year).AddDate(0, 0, 39)
}

// CalculatePentecost calculates Pentecost Sunday for a given year.
// Pentecost is 49 days after Easter (7 weeks).
func CalculatePentecost(year int) time.Time {
	return CalculateEaster(year).AddDate(0, 0, 49)
}

// CalculateAdvent calculates the first Sunday of Advent, the fourth Sunday
// before Christmas. It always falls between November 27 and December 3.
func CalculateAdvent(year int) time.Time {
	dec24 := time.Date(year, time.December, 24, 0, 0, 0, 0, time.UTC)

	// Sunday on or before Christmas Eve is the 4th Sunday of Advent
	fourth := dec24.AddDate(0, 0, -int(dec24.Weekday()))
	return fourth.AddDate(0, 0, -21)
}

// KeyDates holds the movable dates of one civil year.
type KeyDates struct {
	Year         int       `json:"year"`
	Septuagesima time.Time `json:"septuagesima"`
	AshWednesday time.Time `json:"ash_wednesday"`
	PalmSunday   time.Time `json:"palm_sunday"`
	Easter       time.Time `json:"easter"`
	Ascension    time.Time `json:"ascension"`
	Pentecost    time.Time `json:"pentecost"`
	FirstAdvent  time.Time `json:"first_sunday_of_advent"`
}

// KeyDatesFor returns the movable dates of year.
func KeyDatesFor(year int) (KeyDates, error) {
	easter, err := EasterDate(year)
	if err != nil {
		return KeyDates{}, err
	}
	return KeyDates{
		Year:         year,
		Septuagesima: easter.AddDate(0, 0, -63),
		AshWednesday: easter.AddDate(0, 0, -46),
		PalmSunday:   easter.AddDate(0, 0, -7),
		Easter:       easter,
		Ascension:    easter.AddDate(0, 0, 39),
		Pentecost:    easter.AddDate(0, 0, 49),
		FirstAdvent:  CalculateAdvent(year),
	}, nil
}
