package liturgy

import (
	"fmt"
	"time"

	"github.com/zapponejosh/ordo-api/internal/calendar"
)

// Calendar is the normalised data of one rite. It is read-only after
// LoadBundle returns and safe for concurrent use.
type Calendar struct {
	rite       Rite
	boundaries calendar.Boundaries

	// temporal is in season search order.
	temporal       []*Entry
	sanctoral      map[calendar.MonthDay][]*Entry
	sanctoralCount int
}

// Rite returns the rite the calendar was built for.
func (c *Calendar) Rite() Rite {
	return c.rite
}

// Position places a date in its season. The year must be one EasterDate
// supports.
func (c *Calendar) Position(date time.Time) (calendar.Position, error) {
	date = calendar.DateOf(date)
	easter, err := calendar.EasterDate(date.Year())
	if err != nil {
		return calendar.Position{}, newError(CodeInvalidDate, err, "%s", calendar.FormatDate(date))
	}
	return c.boundaries.SeasonOf(date, easter), nil
}

// ResolveTemporal finds the temporal entry for date.
//
// Entries are searched in season order. Exact anchors (a fixed date or an
// Easter offset) are tried before ranges, and a range only matches while
// the date lies in the entry's own season. The first match wins; further
// matches in the winning tier come back as DataIntegrity warnings. A nil
// entry with no error means the data has nothing for this day.
func (c *Calendar) ResolveTemporal(date time.Time) (*Entry, []Warning, error) {
	entry, warnings, _, err := c.resolveTemporal(date)
	return entry, warnings, err
}

// resolveTemporal is ResolveTemporal that also returns the range entries
// an exact anchor beat.
func (c *Calendar) resolveTemporal(date time.Time) (*Entry, []Warning, []*Entry, error) {
	date = calendar.DateOf(date)
	pos, err := c.Position(date)
	if err != nil {
		return nil, nil, nil, err
	}
	md := calendar.MonthDayOf(date)
	weekday := date.Weekday()

	var exact, ranged []*Entry
	for _, e := range c.temporal {
		if !e.Anchor.Matches(md, weekday, pos.OffsetFromEaster) {
			continue
		}
		if e.Anchor.IsExact() {
			exact = append(exact, e)
			continue
		}
		if e.Season == calendar.SeasonNone || e.Season == pos.Season {
			ranged = append(ranged, e)
		}
	}

	matches, shadowed := exact, ranged
	if len(matches) == 0 {
		matches, shadowed = ranged, nil
	}
	if len(matches) == 0 {
		return nil, nil, nil, nil
	}

	var warnings []Warning
	if len(matches) > 1 {
		warnings = append(warnings, conflict(calendar.FormatDate(date), matches))
	}
	return matches[0], warnings, shadowed, nil
}

func conflict(where string, entries []*Entry) Warning {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return Warning{
		Code:     CodeDataIntegrity,
		Message:  fmt.Sprintf("%d temporal entries match %s, using %s", len(entries), where, ids[0]),
		EntryIDs: ids,
	}
}

// collisions reports temporal entries whose exact anchors name the same day.
func (c *Calendar) collisions() []Warning {
	var (
		warnings []Warning
		reported = make(map[*Entry]bool)
	)
	for i, a := range c.temporal {
		if !a.Anchor.IsExact() || reported[a] {
			continue
		}
		group := []*Entry{a}
		for _, b := range c.temporal[i+1:] {
			if sameExactDay(a.Anchor, b.Anchor) {
				group = append(group, b)
				reported[b] = true
			}
		}
		if len(group) > 1 {
			warnings = append(warnings, conflict(anchorLabel(a.Anchor)+" ("+string(c.rite)+")", group))
		}
	}
	return warnings
}

func sameExactDay(a, b Anchor) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case AnchorFixedDate:
		if a.Date != b.Date {
			return false
		}
	case AnchorEasterOffset:
		if a.Offset != b.Offset {
			return false
		}
	default:
		return false
	}
	if len(a.Weekdays) == 0 || len(b.Weekdays) == 0 {
		return true
	}
	for _, d := range a.Weekdays {
		if containsWeekday(b.Weekdays, d) {
			return true
		}
	}
	return false
}

func anchorLabel(a Anchor) string {
	if a.Kind == AnchorEasterOffset {
		return fmt.Sprintf("easter%+d", a.Offset)
	}
	return a.Date.String()
}
