package liturgy

import "github.com/zapponejosh/ordo-api/internal/calendar"

var rankScore = map[Rank]int{
	RankFirstClass:      100,
	RankSecondClass:     80,
	RankThirdClass:      60,
	RankPrivilegedFeria: 55,
	RankFeria:           40,
	RankUnspecified:     20,
}

// Ids with a fixed bonus.
var solemnities = map[string]bool{
	"easter_sunday":    true,
	"pentecost_sunday": true,
	"trinity_sunday":   true,
}

// ScoreOf is the precedence weight of e when it competes as src.
func ScoreOf(e *Entry, src Source) int {
	if e == nil {
		return 0
	}

	score, ok := rankScore[e.Rank]
	if !ok {
		score = rankScore[RankUnspecified]
	}

	sunday := e.TemporalClass == ClassSunday
	feria := e.TemporalClass == ClassFeria

	if sunday {
		score += 25
	}
	switch e.Type {
	case TypeTemporalMajorFeast, TypeTemporalFeast, TypeMajorFeast:
		score += 20
	case TypeTemporalVigil, TypeVigil:
		score += 5
	case TypeFeastOfTheLord:
		score += 20
	}
	if e.Features.Octave {
		score += 10
	}

	switch e.Season {
	case calendar.SeasonLent:
		if feria {
			score += 30
		}
	case calendar.SeasonHolyWeek:
		if feria {
			score += 40
		}
	case calendar.SeasonAdvent:
		if e.Type == TypeMajorFeria {
			score += 15
		}
	}
	if sunday && (e.Season == calendar.SeasonAdvent || e.Season == calendar.SeasonLent || e.Season == calendar.SeasonHolyWeek) {
		score += 15
	}

	if solemnities[e.ID] {
		score += 50
	}
	if src == SourceTemporal {
		score += 5
	}
	return score
}

// AllowCommemoration decides whether the suppressed entry may be kept as a
// commemoration. Only the temporal entry's season and class matter, plus the
// saint's rank on post-Pentecost Sundays.
func AllowCommemoration(temporal, sanctoral *Entry) bool {
	if temporal == nil || sanctoral == nil {
		return false
	}

	switch {
	case temporal.Season == calendar.SeasonHolyWeek:
		return false
	case temporal.Features.Octave && (temporal.Season == calendar.SeasonEastertide || temporal.Season == calendar.SeasonPentecost):
		return false
	case temporal.TemporalClass == ClassSunday && (temporal.Season == calendar.SeasonAdvent ||
		temporal.Season == calendar.SeasonLent || temporal.Season == calendar.SeasonEastertide):
		return false
	case temporal.Season == calendar.SeasonPostPentecost && temporal.TemporalClass == ClassSunday && sanctoral.Rank == RankThirdClass:
		return true
	case temporal.TemporalClass == ClassFeria:
		switch temporal.Season {
		case calendar.SeasonAdvent, calendar.SeasonLent, calendar.SeasonHolyWeek, calendar.SeasonEastertide:
			return false
		}
		return true
	}
	return false
}

// ApplyPrecedence decides between the temporal entry and the sanctoral
// competitor of a day. Either may be nil. The outcome does not depend on
// rite; callers choose the calendar per rite before resolving.
func ApplyPrecedence(temporal, sanctoral *Entry, rite Rite) Result {
	var res Result
	switch {
	case temporal == nil && sanctoral == nil:
		res.Reason = ReasonNoEntry
	case sanctoral == nil:
		res.Chosen, res.Reason = temporal, ReasonTemporalOnly
	case temporal == nil:
		res.Chosen, res.Reason = sanctoral, ReasonSanctoralOnly
	default:
		ts := ScoreOf(temporal, SourceTemporal)
		ss := ScoreOf(sanctoral, SourceSanctoral)
		allow := AllowCommemoration(temporal, sanctoral)

		switch {
		case ss > ts:
			res.Chosen, res.Suppressed = sanctoral, temporal
			res.Reason = ReasonSanctoralSupersedesTemporal
			if allow {
				res.Reason = ReasonSanctoralWithCommemoration
			}
		case ts > ss:
			res.Chosen, res.Suppressed = temporal, sanctoral
			res.Reason = ReasonTemporalSupersedesSanctoral
			if allow {
				res.Reason = ReasonTemporalWithCommemoration
			}
		default:
			res.Chosen, res.Suppressed = temporal, sanctoral
			res.Reason = ReasonTemporalSupersedesSanctoralEqual
			if allow {
				res.Reason = ReasonTemporalWithCommemorationEqual
			}
		}
		if allow {
			res.Commemoration = res.Suppressed
		}
	}

	res.Color = ColorOf(res.Chosen)
	return res
}
