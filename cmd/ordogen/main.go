// Command ordogen prints the ordo of a civil year: the celebration, its
// rank and colour, and any commemoration for every day.
//
// Usage:
//
//	go run ./cmd/ordogen -year 2025
//	go run ./cmd/ordogen -year 2025 -rite ordinaire -format ics -o ordo-2025.ics
//	go run ./cmd/ordogen -year 2026 -dir ./calendar -format json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/zapponejosh/ordo-api/internal/calendar"
	"github.com/zapponejosh/ordo-api/internal/data"
	"github.com/zapponejosh/ordo-api/internal/export"
	"github.com/zapponejosh/ordo-api/internal/liturgy"
	"github.com/zapponejosh/ordo-api/internal/source"
)

func main() {
	year := flag.Int("year", time.Now().Year(), "Year to generate the ordo for")
	rite := flag.String("rite", string(liturgy.DefaultRite), "Rite: extraordinaire or ordinaire")
	format := flag.String("format", "text", "Output format: text, json or ics")
	dir := flag.String("dir", "", "Dataset directory (default: the embedded dataset)")
	advent := flag.String("advent", "fixed", "Advent rule: fixed or sunday")
	out := flag.String("o", "", "Write to file instead of stdout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	rule, err := calendar.ParseAdventRule(*advent)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var fetcher liturgy.Fetcher = source.NewFS(data.FS, "")
	if *dir != "" {
		fetcher = source.NewFS(os.DirFS(*dir), "")
	}
	engine := liturgy.NewEngine(fetcher, liturgy.Options{
		Boundaries: calendar.Boundaries{Advent: rule},
		Logger:     logger,
	})

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	if err := run(context.Background(), engine, w, *year, *rite, *format); err != nil {
		fmt.Fprintln(os.Stderr, "ordogen:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, engine *liturgy.Engine, w io.Writer, year int, rite, format string) error {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	days, err := engine.ComputeRange(ctx, start, end, rite)
	if err != nil {
		return err
	}

	switch format {
	case "text":
		return writeText(w, year, days)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(days)
	case "ics":
		name := fmt.Sprintf("Ordo %d (%s)", year, days[0].Rite)
		_, err := io.WriteString(w, export.ICS(days, export.ICSOptions{Name: name}))
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeText(w io.Writer, year int, days []*liturgy.Day) error {
	kd, err := calendar.KeyDatesFor(year)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "=== Ordo %d (%s) ===\n\n", year, days[0].Rite)
	fmt.Fprintln(w, "Key Dates:")
	fmt.Fprintf(w, "  Septuagesima:    %s\n", calendar.FormatDate(kd.Septuagesima))
	fmt.Fprintf(w, "  Ash Wednesday:   %s\n", calendar.FormatDate(kd.AshWednesday))
	fmt.Fprintf(w, "  Easter:          %s\n", calendar.FormatDate(kd.Easter))
	fmt.Fprintf(w, "  Pentecost:       %s\n", calendar.FormatDate(kd.Pentecost))
	fmt.Fprintf(w, "  Advent Start:    %s\n", calendar.FormatDate(kd.FirstAdvent))
	fmt.Fprintf(w, "  Dataset:         %s\n\n", days[0].DatasetVersion)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDAY\tSEASON\tCELEBRATION\tRANK\tCOLOR\tCOMMEMORATION")

	var season liturgy.Season
	for _, d := range days {
		if d.Season != season {
			if season != "" {
				fmt.Fprintln(tw, "\t\t\t\t\t\t")
			}
			season = d.Season
		}

		date, _ := calendar.ParseDateString(d.Date)
		title, rank, commem := "-", "-", ""
		if d.Chosen != nil {
			title, rank = d.Chosen.Title, string(d.Chosen.Rank)
		}
		if d.Commemoration != nil {
			commem = d.Commemoration.Title
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Date, date.Weekday().String()[:3], d.Season, title, rank, d.Color, commem)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts := make(map[liturgy.Reason]int)
	for _, d := range days {
		counts[d.Reason]++
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Precedence outcomes:")
	for _, r := range []liturgy.Reason{
		liturgy.ReasonTemporalOnly,
		liturgy.ReasonTemporalWithCommemoration,
		liturgy.ReasonTemporalSupersedesSanctoral,
		liturgy.ReasonTemporalWithCommemorationEqual,
		liturgy.ReasonTemporalSupersedesSanctoralEqual,
		liturgy.ReasonSanctoralWithCommemoration,
		liturgy.ReasonSanctoralSupersedesTemporal,
		liturgy.ReasonSanctoralOnly,
		liturgy.ReasonNoEntry,
	} {
		if counts[r] > 0 {
			fmt.Fprintf(w, "  %-42s %3d\n", strings.ReplaceAll(string(r), "_", " "), counts[r])
		}
	}
	return nil
}
