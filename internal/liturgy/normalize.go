package liturgy

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/zapponejosh/ordo-api/internal/calendar"
)

// fold strips accents, case-folds and collapses separators so that
// "Férie II classe", "ferie_ii-classe" and "FERIE II CLASSE" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = cases.Fold().String(out)

	out = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.', ',', '/':
			return ' '
		}
		return r
	}, out)
	return strings.Join(strings.Fields(out), " ")
}

// token is fold with words joined by underscores: "temps pascal" -> "temps_pascal".
func token(s string) string {
	return strings.ReplaceAll(fold(s), " ", "_")
}

// Rite is the form of the Roman rite a query is made for.
type Rite string

const (
	RiteExtraordinary Rite = "extraordinaire"
	RiteOrdinary      Rite = "ordinaire"

	DefaultRite = RiteExtraordinary
)

// Rites returns every supported rite.
func Rites() []Rite {
	return []Rite{RiteExtraordinary, RiteOrdinary}
}

// ParseRite normalises a rite name. The empty string is not accepted here;
// callers pick their default first.
func ParseRite(s string) (Rite, error) {
	switch token(s) {
	case "extraordinaire", "extraordinary", "extra", "ef", "1962", "vetus_ordo":
		return RiteExtraordinary, nil
	case "ordinaire", "ordinary", "ord", "of", "novus_ordo":
		return RiteOrdinary, nil
	}
	return "", newError(CodeInvalidRite, nil, "unknown rite %q", s)
}

var classLevels = map[string]int{
	"i": 1, "1": 1, "1st": 1, "first": 1, "1re": 1, "1ere": 1, "premiere": 1,
	"ii": 2, "2": 2, "2nd": 2, "second": 2, "2e": 2, "2eme": 2, "deuxieme": 2, "seconde": 2,
	"iii": 3, "3": 3, "3rd": 3, "third": 3, "3e": 3, "3eme": 3, "troisieme": 3,
}

// NormalizeRank maps free-text class labels ("I classe", "Férie II classe",
// "3rd class", "first_class", "—") onto the closed Rank vocabulary.
//
// A feria of the second class is a privileged feria. Other ferias with a
// class keep that class; a bare feria is RankFeria.
func NormalizeRank(s string) (Rank, error) {
	f := fold(s)
	switch f {
	case "", "—", "–", "unspecified", "none", "null", "sans rang":
		return RankUnspecified, nil
	}

	words := strings.Fields(f)
	level := 0
	feria, privileged := false, false

	for i, w := range words {
		switch {
		case strings.HasPrefix(w, "feri"):
			feria = true
		case strings.HasPrefix(w, "privileg"):
			privileged = true
		case w == "cl" || strings.HasPrefix(w, "clas"):
			if i > 0 && classLevels[words[i-1]] > 0 {
				level = classLevels[words[i-1]]
			} else if i+1 < len(words) && classLevels[words[i+1]] > 0 {
				level = classLevels[words[i+1]]
			}
		}
	}

	switch {
	case feria && (privileged || level == 2):
		return RankPrivilegedFeria, nil
	case level == 1:
		return RankFirstClass, nil
	case level == 2:
		return RankSecondClass, nil
	case level == 3:
		return RankThirdClass, nil
	case feria:
		return RankFeria, nil
	}
	return "", fmt.Errorf("unknown rank %q", s)
}

// NormalizeSeason maps canonical and French season labels onto a Season.
// The empty label means the entry is not tied to a season.
func NormalizeSeason(s string) (Season, error) {
	switch token(s) {
	case "", "null", "none":
		return calendar.SeasonNone, nil
	case "advent", "avent":
		return calendar.SeasonAdvent, nil
	case "christmastide", "christmas", "noel", "noel_epiphanie", "epiphany", "epiphanie", "temps_de_noel":
		return calendar.SeasonChristmastide, nil
	case "pre_lent", "prelent", "septuagesima", "septuagesime", "pre_careme", "precareme":
		return calendar.SeasonPreLent, nil
	case "lent", "careme", "quadragesima":
		return calendar.SeasonLent, nil
	case "holy_week", "semaine_sainte", "hebdomada_sancta":
		return calendar.SeasonHolyWeek, nil
	case "eastertide", "easter", "paques", "temps_pascal":
		return calendar.SeasonEastertide, nil
	case "pentecost", "pentecote":
		return calendar.SeasonPentecost, nil
	case "post_pentecost", "post_pentecote", "after_pentecost", "apres_pentecote":
		return calendar.SeasonPostPentecost, nil
	}
	return "", fmt.Errorf("unknown season %q", s)
}

// NormalizeTemporalClass maps a class label onto TemporalClass; empty is none.
func NormalizeTemporalClass(s string) (TemporalClass, error) {
	switch token(s) {
	case "", "none", "null":
		return ClassNone, nil
	case "sunday", "dimanche", "dominica":
		return ClassSunday, nil
	case "feria", "ferie":
		return ClassFeria, nil
	case "vigil", "vigile", "vigilia":
		return ClassVigil, nil
	case "octave", "octava":
		return ClassOctave, nil
	}
	return "", fmt.Errorf("unknown temporal class %q", s)
}

// NormalizeType folds a subtype label, translating the French "vigile".
func NormalizeType(s string) EntryType {
	t := token(s)
	switch t {
	case "vigile":
		return TypeVigil
	case "temporal_vigile":
		return TypeTemporalVigil
	}
	return EntryType(t)
}

// NormalizeColor maps colour names (French, English, "doré") onto Color.
// An empty colour is DefaultColor.
func NormalizeColor(s string) (Color, error) {
	switch token(s) {
	case "":
		return DefaultColor, nil
	case "violet", "purple", "violacea":
		return ColorViolet, nil
	case "vert", "green", "viridis":
		return ColorVert, nil
	case "rouge", "red", "rubea":
		return ColorRouge, nil
	case "noir", "black", "nigra":
		return ColorNoir, nil
	case "blanc", "white", "alba":
		return ColorBlanc, nil
	case "or", "dore", "gold", "golden":
		return ColorOr, nil
	}
	return "", fmt.Errorf("unknown color %q", s)
}
