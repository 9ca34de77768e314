package calendar

import "time"

// Lectionary cycles of the reformed rite. The 1962 books read the same
// propers every year and have no cycle.
const (
	SundayCycleA = "A"
	SundayCycleB = "B"
	SundayCycleC = "C"

	WeekdayCycleI  = "I"
	WeekdayCycleII = "II"
)

// Cycle names the readings cycle in force on a date.
type Cycle struct {
	Sunday  string `json:"sunday"`
	Weekday string `json:"weekday"`
}

// GetLiturgicalYear returns the starting year of the liturgical year
// that contains the given date.
//
// The liturgical year is identified by the year in which its Advent begins.
// For example, the liturgical year "2024" runs from Advent 2024 through
// the Saturday before Advent 2025.
func GetLiturgicalYear(date time.Time) int {
	year := date.Year()
	advent := CalculateAdvent(year)

	if DateOf(date).Before(advent) {
		return year - 1
	}
	return year
}

// GetYearCycle returns the Sunday and weekday cycles for a date.
//
// Both are keyed on the civil year in which the liturgical year ends:
//   - Sunday cycle A when that year is divisible by 3 with remainder 1,
//     B with remainder 2, C when divisible (2025 is C, 2026 is A)
//   - weekday cycle I in odd years, II in even years
//
// Examples:
//   - November 30, 2025 (Advent 2025): A, II
//   - March 15, 2025: C, I
func GetYearCycle(date time.Time) Cycle {
	closing := GetLiturgicalYear(date) + 1

	c := Cycle{Weekday: WeekdayCycleII}
	if closing%2 == 1 {
		c.Weekday = WeekdayCycleI
	}

	switch closing % 3 {
	case 1:
		c.Sunday = SundayCycleA
	case 2:
		c.Sunday = SundayCycleB
	default:
		c.Sunday = SundayCycleC
	}
	return c
}
