package liturgy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"gopkg.in/yaml.v3"

	"github.com/zapponejosh/ordo-api/internal/calendar"
)

// Fetcher supplies raw calendar documents by path. It may read files, call a
// remote server or query a database; the engine does not care which.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Segment is one temporal dataset file and the season its entries default to.
type Segment struct {
	Season Season `json:"season"`
	Path   string `json:"path"`
}

// Manifest lists the documents that make up a calendar.
type Manifest struct {
	Temporal  []Segment `json:"temporal"`
	Sanctoral string    `json:"sanctoral"`
}

// DefaultManifest is the layout of the embedded dataset.
func DefaultManifest() Manifest {
	return Manifest{
		Temporal: []Segment{
			{calendar.SeasonAdvent, "temporal/advent.json"},
			{calendar.SeasonChristmastide, "temporal/christmastide.json"},
			{calendar.SeasonPreLent, "temporal/pre_lent.json"},
			{calendar.SeasonLent, "temporal/lent.json"},
			{calendar.SeasonHolyWeek, "temporal/holy_week.json"},
			{calendar.SeasonEastertide, "temporal/eastertide.json"},
			{calendar.SeasonPentecost, "temporal/pentecost.json"},
			{calendar.SeasonPostPentecost, "temporal/post_pentecost.json"},
		},
		Sanctoral: "sanctoral.yaml",
	}
}

// Paths returns every document path in load order.
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m.Temporal)+1)
	for _, seg := range m.Temporal {
		paths = append(paths, seg.Path)
	}
	return append(paths, m.Sanctoral)
}

// =============================================================================
// Source document schema
// =============================================================================

// RiteText is a field that is either one string for every rite or an object
// keyed by rite, e.g. {"extraordinaire": "II classe", "ordinaire": "Mémoire"}.
type RiteText struct {
	Default string
	PerRite map[Rite]string
}

// For returns the text for rite r.
func (t RiteText) For(r Rite) string {
	if v, ok := t.PerRite[r]; ok {
		return v
	}
	return t.Default
}

// IsZero reports whether no text was given.
func (t RiteText) IsZero() bool {
	return t.Default == "" && len(t.PerRite) == 0
}

func (t *RiteText) fromMap(m map[string]string) error {
	t.PerRite = make(map[Rite]string, len(m))
	for k, v := range m {
		if token(k) == "default" {
			t.Default = v
			continue
		}
		r, err := ParseRite(k)
		if err != nil {
			return err
		}
		t.PerRite[r] = v
	}
	return nil
}

func (t *RiteText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		return t.fromMap(m)
	}
	return json.Unmarshal(data, &t.Default)
}

func (t *RiteText) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&t.Default)
	case yaml.MappingNode:
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		return t.fromMap(m)
	}
	return fmt.Errorf("line %d: expected string or mapping", node.Line)
}

type rawDateRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type rawOffsetRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// rawEntry is one record as authored. Source files may carry more fields
// (hymns, propers); they are ignored.
type rawEntry struct {
	ID            string          `json:"id" yaml:"id"`
	Title         RiteText        `json:"title" yaml:"title"`
	Rank          RiteText        `json:"rank" yaml:"rank"`
	Categorie     RiteText        `json:"categorie" yaml:"categorie"`
	Season        string          `json:"season" yaml:"season"`
	TemporalClass string          `json:"temporal_class" yaml:"temporal_class"`
	Type          string          `json:"type" yaml:"type"`
	Features      map[string]bool `json:"features" yaml:"features"`
	Color         string          `json:"color" yaml:"color"`
	Rites         []string        `json:"rites" yaml:"rites"`

	FixedDate    string          `json:"fixed_date" yaml:"fixed_date"`
	EasterOffset *int            `json:"easter_offset" yaml:"easter_offset"`
	DateRange    *rawDateRange   `json:"date_range" yaml:"date_range"`
	OffsetRange  *rawOffsetRange `json:"offset_range" yaml:"offset_range"`
	Month        int             `json:"month" yaml:"month"`
	Day          int             `json:"day" yaml:"day"`
	Weekdays     []string        `json:"weekdays" yaml:"weekdays"`
}

// decodeDocument parses a JSON or YAML array of entries, chosen by the
// file extension. Unknown extensions are tried as JSON.
func decodeDocument(name string, data []byte) ([]rawEntry, error) {
	var entries []rawEntry
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}
	return entries, nil
}

// appliesTo reports whether the entry belongs to rite r's calendar.
func (raw rawEntry) appliesTo(r Rite) (bool, error) {
	if len(raw.Rites) == 0 {
		return true, nil
	}
	for _, s := range raw.Rites {
		rite, err := ParseRite(s)
		if err != nil {
			return false, err
		}
		if rite == r {
			return true, nil
		}
	}
	return false, nil
}

// anchor builds the entry's single anchor form.
func (raw rawEntry) anchor(src Source) (Anchor, error) {
	var a Anchor
	forms := 0

	if raw.FixedDate != "" {
		md, err := calendar.ParseMonthDay(raw.FixedDate)
		if err != nil {
			return a, fmt.Errorf("fixed_date: %w", err)
		}
		a.Kind, a.Date = AnchorFixedDate, md
		forms++
	}
	if raw.Month != 0 || raw.Day != 0 {
		md := calendar.MonthDay{Month: time.Month(raw.Month), Day: raw.Day}
		if !md.IsValid() {
			return a, fmt.Errorf("invalid month/day %d/%d", raw.Month, raw.Day)
		}
		a.Kind, a.Date = AnchorFixedDate, md
		forms++
	}
	if raw.EasterOffset != nil {
		a.Kind, a.Offset = AnchorEasterOffset, *raw.EasterOffset
		forms++
	}
	if raw.DateRange != nil {
		start, err := calendar.ParseMonthDay(raw.DateRange.Start)
		if err != nil {
			return a, fmt.Errorf("date_range.start: %w", err)
		}
		end, err := calendar.ParseMonthDay(raw.DateRange.End)
		if err != nil {
			return a, fmt.Errorf("date_range.end: %w", err)
		}
		a.Kind, a.Start, a.End = AnchorDateRange, start, end
		forms++
	}
	if raw.OffsetRange != nil {
		if raw.OffsetRange.Start > raw.OffsetRange.End {
			return a, fmt.Errorf("offset_range start %d after end %d", raw.OffsetRange.Start, raw.OffsetRange.End)
		}
		a.Kind, a.OffsetStart, a.OffsetEnd = AnchorOffsetRange, raw.OffsetRange.Start, raw.OffsetRange.End
		forms++
	}

	if forms != 1 {
		return a, fmt.Errorf("want exactly one anchor, got %d", forms)
	}
	if src == SourceSanctoral && a.Kind != AnchorFixedDate {
		return a, errors.New("sanctoral entries need a fixed month/day")
	}

	for _, w := range raw.Weekdays {
		d, err := calendar.ParseWeekday(w)
		if err != nil {
			return a, err
		}
		a.Weekdays = append(a.Weekdays, d)
	}
	return a, nil
}

// normalize turns a raw record into an Entry for rite r.
func (raw rawEntry) normalize(src Source, r Rite, defaultSeason Season) (*Entry, error) {
	if raw.ID == "" {
		return nil, errors.New("missing id")
	}

	rankText := raw.Rank
	if rankText.IsZero() {
		rankText = raw.Categorie
	}
	rank, err := NormalizeRank(rankText.For(r))
	if err != nil {
		return nil, err
	}

	season := defaultSeason
	if raw.Season != "" {
		if season, err = NormalizeSeason(raw.Season); err != nil {
			return nil, err
		}
	}

	class, err := NormalizeTemporalClass(raw.TemporalClass)
	if err != nil {
		return nil, err
	}

	color, err := NormalizeColor(raw.Color)
	if err != nil {
		return nil, err
	}

	anchor, err := raw.anchor(src)
	if err != nil {
		return nil, err
	}

	title := raw.Title.For(r)
	if title == "" {
		title = raw.ID
	}

	return &Entry{
		ID:            raw.ID,
		Title:         title,
		Rank:          rank,
		Season:        season,
		TemporalClass: class,
		Type:          NormalizeType(raw.Type),
		Features:      Features{Octave: raw.Features["octave"]},
		Color:         color,
		Anchor:        anchor,
		Source:        src,
	}, nil
}

// =============================================================================
// Bundle
// =============================================================================

// Bundle is the loaded, immutable calendar data: one normalised calendar
// per rite plus the content identifier of the documents it came from.
type Bundle struct {
	Version string
	// Warnings are integrity findings that do not stop the load, such as
	// two temporal entries pinned to the same day.
	Warnings  []Warning
	calendars map[Rite]*Calendar
}

// Calendar returns the calendar for rite r, or nil if r is unknown.
func (b *Bundle) Calendar(r Rite) *Calendar {
	return b.calendars[r]
}

// Stats summarises a bundle.
type Stats struct {
	Version   string       `json:"version"`
	Temporal  map[Rite]int `json:"temporal_entries"`
	Sanctoral map[Rite]int `json:"sanctoral_entries"`
	Warnings  []Warning    `json:"warnings"`
}

// Stats counts entries per rite.
func (b *Bundle) Stats() Stats {
	st := Stats{
		Version:   b.Version,
		Temporal:  make(map[Rite]int, len(b.calendars)),
		Sanctoral: make(map[Rite]int, len(b.calendars)),
	}
	for r, c := range b.calendars {
		st.Temporal[r] = len(c.temporal)
		st.Sanctoral[r] = c.sanctoralCount
	}
	st.Warnings = append([]Warning(nil), b.Warnings...)
	return st
}

// VersionOf returns the CIDv1 (raw codec, sha2-256) of data.
func VersionOf(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// LoadBundle fetches every document of m and builds one calendar per rite.
// Any fetch, decode or validation problem is a DataLoadFailure.
func LoadBundle(ctx context.Context, f Fetcher, m Manifest, b calendar.Boundaries) (*Bundle, error) {
	if len(m.Temporal) == 0 || m.Sanctoral == "" {
		return nil, newError(CodeDataLoadFailure, nil, "manifest lists no documents")
	}

	docs := make(map[string][]rawEntry, len(m.Temporal)+1)
	var digest bytes.Buffer

	for _, p := range m.Paths() {
		data, err := f.Fetch(ctx, p)
		if err != nil {
			return nil, newError(CodeDataLoadFailure, err, "fetch %s", p)
		}
		entries, err := decodeDocument(p, data)
		if err != nil {
			return nil, newError(CodeDataLoadFailure, err, "parse %s", p)
		}
		docs[p] = entries

		digest.WriteString(p)
		digest.WriteByte(0)
		digest.Write(data)
		digest.WriteByte(0)
	}

	version, err := VersionOf(digest.Bytes())
	if err != nil {
		return nil, newError(CodeDataLoadFailure, err, "hash calendar data")
	}

	bundle := &Bundle{Version: version, calendars: make(map[Rite]*Calendar)}
	for _, r := range Rites() {
		c, err := buildCalendar(r, m, docs, b)
		if err != nil {
			return nil, err
		}
		bundle.calendars[r] = c
		bundle.Warnings = append(bundle.Warnings, c.collisions()...)
	}
	return bundle, nil
}

func buildCalendar(r Rite, m Manifest, docs map[string][]rawEntry, b calendar.Boundaries) (*Calendar, error) {
	c := &Calendar{
		rite:       r,
		boundaries: b,
		sanctoral:  make(map[calendar.MonthDay][]*Entry),
	}

	seen := make(map[string]string)
	for _, seg := range orderedSegments(m.Temporal) {
		for i, raw := range docs[seg.Path] {
			ok, err := raw.appliesTo(r)
			if err != nil {
				return nil, newError(CodeDataLoadFailure, err, "%s[%d] %s", seg.Path, i, raw.ID)
			}
			if !ok {
				continue
			}
			e, err := raw.normalize(SourceTemporal, r, seg.Season)
			if err != nil {
				return nil, newError(CodeDataLoadFailure, err, "%s[%d] %s", seg.Path, i, raw.ID)
			}
			e.Segment = seg.Path
			if prev, dup := seen[e.ID]; dup {
				return nil, newError(CodeDataLoadFailure, nil, "temporal id %q in both %s and %s", e.ID, prev, seg.Path)
			}
			seen[e.ID] = seg.Path
			c.temporal = append(c.temporal, e)
		}
	}

	seen = make(map[string]string)
	for i, raw := range docs[m.Sanctoral] {
		ok, err := raw.appliesTo(r)
		if err != nil {
			return nil, newError(CodeDataLoadFailure, err, "%s[%d] %s", m.Sanctoral, i, raw.ID)
		}
		if !ok {
			continue
		}
		e, err := raw.normalize(SourceSanctoral, r, calendar.SeasonNone)
		if err != nil {
			return nil, newError(CodeDataLoadFailure, err, "%s[%d] %s", m.Sanctoral, i, raw.ID)
		}
		e.Segment = m.Sanctoral
		if _, dup := seen[e.ID]; dup {
			return nil, newError(CodeDataLoadFailure, nil, "duplicate sanctoral id %q", e.ID)
		}
		seen[e.ID] = m.Sanctoral
		c.sanctoral[e.Anchor.Date] = append(c.sanctoral[e.Anchor.Date], e)
		c.sanctoralCount++
	}

	return c, nil
}

// orderedSegments sorts segments into season search order, keeping the
// manifest order among segments of the same season.
func orderedSegments(segs []Segment) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range calendar.Seasons() {
		for _, seg := range segs {
			if seg.Season == s {
				out = append(out, seg)
			}
		}
	}
	// Segments with no season go last
	for _, seg := range segs {
		if !seg.Season.IsValid() {
			out = append(out, seg)
		}
	}
	return out
}
