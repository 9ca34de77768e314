// Package liturgy resolves the celebration observed on a civil date under the
// 1962 Roman Missal: it finds the temporal and sanctoral candidates, ranks
// them, decides on a commemoration and derives the liturgical colour.
package liturgy

import (
	"encoding/json"
	"time"

	"github.com/zapponejosh/ordo-api/internal/calendar"
)

// Season re-exports the calendar bucket so callers need one import.
type Season = calendar.Season

// Rank is the normalised class of a celebration.
type Rank string

const (
	RankFirstClass      Rank = "first_class"
	RankSecondClass     Rank = "second_class"
	RankThirdClass      Rank = "third_class"
	RankPrivilegedFeria Rank = "privileged_feria"
	RankFeria           Rank = "feria"
	RankUnspecified     Rank = "unspecified"
)

// TemporalClass describes what kind of day a temporal entry is.
type TemporalClass string

const (
	ClassSunday TemporalClass = "sunday"
	ClassFeria  TemporalClass = "feria"
	ClassVigil  TemporalClass = "vigil"
	ClassOctave TemporalClass = "octave"
	ClassNone   TemporalClass = "none"
)

// EntryType is the semantic subtype of an entry. The vocabulary is open;
// only the values below influence precedence.
type EntryType string

const (
	TypeNone               EntryType = ""
	TypeTemporalMajorFeast EntryType = "temporal_major_feast"
	TypeTemporalFeast      EntryType = "temporal_feast"
	TypeMajorFeast         EntryType = "major_feast"
	TypeTemporalVigil      EntryType = "temporal_vigil"
	TypeVigil              EntryType = "vigil"
	TypeMajorFeria         EntryType = "major_feria"
	TypeFeastOfTheLord     EntryType = "feast_of_the_lord"
)

// Color is a liturgical colour.
type Color string

const (
	ColorViolet Color = "violet"
	ColorVert   Color = "vert"
	ColorRouge  Color = "rouge"
	ColorNoir   Color = "noir"
	ColorBlanc  Color = "blanc"
	ColorOr     Color = "or"

	DefaultColor = ColorBlanc
)

// Source tells which cycle an entry belongs to.
type Source string

const (
	SourceTemporal  Source = "temporal"
	SourceSanctoral Source = "sanctoral"
)

// Features are boolean flags on an entry.
type Features struct {
	Octave bool `json:"octave,omitempty"`
}

// AnchorKind is the form of an entry's anchor.
type AnchorKind int

const (
	AnchorFixedDate AnchorKind = iota + 1
	AnchorEasterOffset
	AnchorDateRange
	AnchorOffsetRange
)

// Anchor places an entry in the civil year. Exactly one form is set,
// chosen by Kind. Weekdays, when non-empty, further restricts any form.
type Anchor struct {
	Kind        AnchorKind
	Date        calendar.MonthDay
	Offset      int
	Start, End  calendar.MonthDay
	OffsetStart int
	OffsetEnd   int
	Weekdays    []time.Weekday
}

// IsExact reports whether the anchor names a single day.
func (a Anchor) IsExact() bool {
	return a.Kind == AnchorFixedDate || a.Kind == AnchorEasterOffset
}

// Matches reports whether a date (given as month/day, weekday and offset
// from Easter) satisfies the anchor.
func (a Anchor) Matches(md calendar.MonthDay, weekday time.Weekday, offset int) bool {
	if len(a.Weekdays) > 0 && !containsWeekday(a.Weekdays, weekday) {
		return false
	}

	switch a.Kind {
	case AnchorFixedDate:
		return md == a.Date
	case AnchorEasterOffset:
		return offset == a.Offset
	case AnchorDateRange:
		return md.Within(a.Start, a.End)
	case AnchorOffsetRange:
		return offset >= a.OffsetStart && offset <= a.OffsetEnd
	}
	return false
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, w := range days {
		if w == d {
			return true
		}
	}
	return false
}

type rangeJSON[T any] struct {
	Start T `json:"start"`
	End   T `json:"end"`
}

// MarshalJSON renders the anchor in the dataset's own field names.
func (a Anchor) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	switch a.Kind {
	case AnchorFixedDate:
		out["fixed_date"] = a.Date.String()
	case AnchorEasterOffset:
		out["easter_offset"] = a.Offset
	case AnchorDateRange:
		out["date_range"] = rangeJSON[string]{a.Start.String(), a.End.String()}
	case AnchorOffsetRange:
		out["offset_range"] = rangeJSON[int]{a.OffsetStart, a.OffsetEnd}
	}
	if len(a.Weekdays) > 0 {
		days := make([]string, len(a.Weekdays))
		for i, d := range a.Weekdays {
			days[i] = d.String()
		}
		out["weekdays"] = days
	}
	return json.Marshal(out)
}

// Entry is one celebration of either cycle. Entries are built once at load
// time and never mutated afterwards; results share them by pointer.
type Entry struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Rank          Rank          `json:"rank"`
	Season        Season        `json:"season,omitempty"`
	TemporalClass TemporalClass `json:"temporal_class"`
	Type          EntryType     `json:"type,omitempty"`
	Features      Features      `json:"features"`
	Color         Color         `json:"color"`
	Anchor        Anchor        `json:"anchor"`
	Source        Source        `json:"source"`
	Segment       string        `json:"segment"`
}

// Reason explains a precedence outcome.
type Reason string

const (
	ReasonNoEntry                          Reason = "no_entry"
	ReasonTemporalOnly                     Reason = "temporal_only"
	ReasonSanctoralOnly                    Reason = "sanctoral_only"
	ReasonTemporalWithCommemoration        Reason = "temporal_with_commemoration"
	ReasonTemporalSupersedesSanctoral      Reason = "temporal_supersedes_sanctoral"
	ReasonSanctoralWithCommemoration       Reason = "sanctoral_with_commemoration"
	ReasonSanctoralSupersedesTemporal      Reason = "sanctoral_supersedes_temporal"
	ReasonTemporalWithCommemorationEqual   Reason = "temporal_with_commemoration_equal_rank"
	ReasonTemporalSupersedesSanctoralEqual Reason = "temporal_supersedes_sanctoral_equal_rank"
)

// Result is the outcome of precedence between two candidates.
type Result struct {
	Chosen        *Entry `json:"chosen"`
	Suppressed    *Entry `json:"suppressed"`
	Commemoration *Entry `json:"commemoration"`
	Color         Color  `json:"color"`
	Reason        Reason `json:"reason"`
}

// Day is the full answer for one (date, rite) query. It is built fresh per
// call and owned by the caller.
type Day struct {
	Date             string `json:"date"`
	Rite             Rite   `json:"rite"`
	Season           Season `json:"season"`
	OffsetFromEaster int    `json:"offset_from_easter"`
	Result
	Temporal       *Entry          `json:"temporal"`
	Sanctoral      []*Entry        `json:"sanctoral"`
	Cycle          *calendar.Cycle `json:"cycle,omitempty"`
	Warnings       []Warning       `json:"warnings,omitempty"`
	DatasetVersion string          `json:"dataset_version"`

	// shadowed holds range entries that also matched but lost to an exact
	// anchor. Logged at debug level only.
	shadowed []*Entry
}
