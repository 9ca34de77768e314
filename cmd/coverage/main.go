// Command coverage resolves every day of a span of years and reports the
// days a dataset leaves without a temporal entry, the days where its
// entries conflict, and the days that fail outright.
//
// Usage:
//
//	go run ./cmd/coverage -start 2024 -years 10
//	go run ./cmd/coverage -dir ./calendar -rite ordinaire -o coverage.json
//
// The exit status is 1 when any day fails or is uncovered.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/zapponejosh/ordo-api/internal/calendar"
	"github.com/zapponejosh/ordo-api/internal/data"
	"github.com/zapponejosh/ordo-api/internal/liturgy"
	"github.com/zapponejosh/ordo-api/internal/source"
)

// Issue kinds
const (
	IssueError     = "error"
	IssueUncovered = "uncovered"
	IssueConflict  = "conflict"
)

// TestResult holds the result for a single date and rite.
type TestResult struct {
	Date   string         `json:"date"`
	Rite   liturgy.Rite   `json:"rite"`
	Season liturgy.Season `json:"season,omitempty"`
	Chosen string         `json:"chosen,omitempty"`
	Reason liturgy.Reason `json:"reason,omitempty"`
	Issue  string         `json:"issue,omitempty"`
	Detail string         `json:"detail,omitempty"`
}

// SeasonStats tracks statistics for each season.
type SeasonStats struct {
	Season      liturgy.Season `json:"season"`
	TotalDays   int            `json:"total_days"`
	IssueDays   int            `json:"issue_days"`
	IssueDates  []string       `json:"issue_dates,omitempty"`
	Commemorate int            `json:"commemorations"`
}

// YearStats tracks statistics for each year.
type YearStats struct {
	Year      int `json:"year"`
	TotalDays int `json:"total_days"`
	IssueDays int `json:"issue_days"`
}

// Analysis holds the analyzed results.
type Analysis struct {
	TotalDays int                             `json:"total_days"`
	ByIssue   map[string]int                  `json:"by_issue"`
	BySeason  map[liturgy.Season]*SeasonStats `json:"by_season"`
	ByYear    map[int]*YearStats              `json:"by_year"`
	ByReason  map[liturgy.Reason]int          `json:"by_reason"`
	Issues    []TestResult                    `json:"issues"`
}

func main() {
	startYear := flag.Int("start", time.Now().Year(), "Start year")
	years := flag.Int("years", 4, "Number of years to check")
	rite := flag.String("rite", "", "Rite to check (default: every rite)")
	dir := flag.String("dir", "", "Dataset directory (default: the embedded dataset)")
	advent := flag.String("advent", "fixed", "Advent rule: fixed or sunday")
	verbose := flag.Bool("v", false, "Verbose output (show each issue as found)")
	outputFile := flag.String("o", "", "Output results to JSON file")
	flag.Parse()

	rule, err := calendar.ParseAdventRule(*advent)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	rites := liturgy.Rites()
	if *rite != "" {
		r, err := liturgy.ParseRite(*rite)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		rites = []liturgy.Rite{r}
	}

	var fetcher liturgy.Fetcher = source.NewFS(data.FS, "")
	label := "embedded"
	if *dir != "" {
		fetcher, label = source.NewFS(os.DirFS(*dir), ""), *dir
	}
	engine := liturgy.NewEngine(fetcher, liturgy.Options{
		Boundaries: calendar.Boundaries{Advent: rule},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	endYear := *startYear + *years - 1

	fmt.Println("================================================================")
	fmt.Println("Ordo - Dataset Coverage Check")
	fmt.Println("================================================================")
	fmt.Printf("Dataset:     %s\n", label)
	fmt.Printf("Date Range:  %d-01-01 to %d-12-31\n", *startYear, endYear)
	fmt.Printf("Rites:       %v\n", rites)
	fmt.Printf("Advent rule: %s\n", rule)
	fmt.Println()

	ctx := context.Background()
	bundle, err := engine.Load(ctx)
	if err != nil {
		fmt.Printf("Error: dataset does not load: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Version:     %s\n", bundle.Version)
	for _, w := range bundle.Warnings {
		fmt.Printf("Load warning: %s\n", w.Message)
	}
	fmt.Println()

	results := checkAll(ctx, engine, rites, *startYear, endYear, *verbose)
	analysis := analyzeResults(results)

	printSummary(analysis, *startYear, endYear)
	printIssuesBySeason(analysis)

	if *outputFile != "" {
		saveResults(*outputFile, bundle.Version, analysis)
	}

	if len(analysis.Issues) > 0 || len(bundle.Warnings) > 0 {
		os.Exit(1)
	}
}

func checkAll(ctx context.Context, engine *liturgy.Engine, rites []liturgy.Rite, startYear, endYear int, verbose bool) []TestResult {
	var results []TestResult

	for _, r := range rites {
		for year := startYear; year <= endYear; year++ {
			for d := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
				result := checkDate(ctx, engine, d, r)
				results = append(results, result)

				if verbose && result.Issue != "" {
					fmt.Printf("  ✗ %s [%s] %s: %s\n", result.Date, r, result.Issue, result.Detail)
				}
			}
		}
	}
	return results
}

func checkDate(ctx context.Context, engine *liturgy.Engine, date time.Time, r liturgy.Rite) TestResult {
	result := TestResult{Date: calendar.FormatDate(date), Rite: r}

	day, err := engine.ComputeLiturgicalDay(ctx, date, string(r))
	if err != nil {
		result.Issue, result.Detail = IssueError, err.Error()
		return result
	}
	result.Season = day.Season
	result.Reason = day.Reason
	if day.Chosen != nil {
		result.Chosen = day.Chosen.ID
	}

	switch {
	case day.Temporal == nil:
		result.Issue, result.Detail = IssueUncovered, "no temporal entry"
	case len(day.Warnings) > 0:
		result.Issue, result.Detail = IssueConflict, day.Warnings[0].Message
	}
	return result
}

func analyzeResults(results []TestResult) *Analysis {
	analysis := &Analysis{
		ByIssue:  make(map[string]int),
		BySeason: make(map[liturgy.Season]*SeasonStats),
		ByYear:   make(map[int]*YearStats),
		ByReason: make(map[liturgy.Reason]int),
	}

	for _, r := range results {
		analysis.TotalDays++

		date, _ := calendar.ParseDateString(r.Date)
		year := date.Year()
		if _, ok := analysis.ByYear[year]; !ok {
			analysis.ByYear[year] = &YearStats{Year: year}
		}
		analysis.ByYear[year].TotalDays++

		season := r.Season
		if season == "" {
			season = "(unresolved)"
		}
		if _, ok := analysis.BySeason[season]; !ok {
			analysis.BySeason[season] = &SeasonStats{Season: season}
		}
		analysis.BySeason[season].TotalDays++
		if r.Reason != "" {
			analysis.ByReason[r.Reason]++
		}
		if r.Reason == liturgy.ReasonTemporalWithCommemoration ||
			r.Reason == liturgy.ReasonTemporalWithCommemorationEqual ||
			r.Reason == liturgy.ReasonSanctoralWithCommemoration {
			analysis.BySeason[season].Commemorate++
		}

		if r.Issue == "" {
			continue
		}
		analysis.ByIssue[r.Issue]++
		analysis.ByYear[year].IssueDays++
		analysis.BySeason[season].IssueDays++
		analysis.BySeason[season].IssueDates = append(analysis.BySeason[season].IssueDates, r.Date)
		analysis.Issues = append(analysis.Issues, r)
	}

	return analysis
}

func printSummary(analysis *Analysis, startYear, endYear int) {
	fmt.Println("================================================================")
	fmt.Println("SUMMARY")
	fmt.Println("================================================================")
	fmt.Printf("Total Days Checked: %d\n", analysis.TotalDays)
	fmt.Printf("Clean:              %d (%.1f%%)\n", analysis.TotalDays-len(analysis.Issues),
		percent(analysis.TotalDays-len(analysis.Issues), analysis.TotalDays))
	for _, kind := range []string{IssueError, IssueUncovered, IssueConflict} {
		fmt.Printf("%-19s %d\n", kind+":", analysis.ByIssue[kind])
	}
	fmt.Println()

	fmt.Println("By Year:")
	for year := startYear; year <= endYear; year++ {
		if stats, ok := analysis.ByYear[year]; ok {
			status := "✓"
			if stats.IssueDays > 0 {
				status = "✗"
			}
			fmt.Printf("  %s %d: %d/%d days clean\n",
				status, year, stats.TotalDays-stats.IssueDays, stats.TotalDays)
		}
	}
	fmt.Println()

	reasons := make([]string, 0, len(analysis.ByReason))
	for r := range analysis.ByReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	fmt.Println("By Outcome:")
	for _, r := range reasons {
		fmt.Printf("  %-42s %d\n", r, analysis.ByReason[liturgy.Reason(r)])
	}
	fmt.Println()
}

func printIssuesBySeason(analysis *Analysis) {
	if len(analysis.Issues) == 0 {
		fmt.Println("No issues found.")
		return
	}

	fmt.Println("================================================================")
	fmt.Println("ISSUES BY SEASON")
	fmt.Println("================================================================")

	var seasons []*SeasonStats
	for _, stats := range analysis.BySeason {
		if stats.IssueDays > 0 {
			seasons = append(seasons, stats)
		}
	}
	sort.Slice(seasons, func(i, j int) bool {
		return seasons[i].IssueDays > seasons[j].IssueDays
	})

	for _, stats := range seasons {
		fmt.Printf("\n%s: %d issues\n", stats.Season, stats.IssueDays)
		for i, date := range stats.IssueDates {
			if i == 5 {
				fmt.Printf("  ... and %d more\n", len(stats.IssueDates)-5)
				break
			}
			fmt.Printf("  - %s\n", date)
		}
	}
	fmt.Println()
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func saveResults(filename, version string, analysis *Analysis) {
	output := struct {
		GeneratedAt    string    `json:"generated_at"`
		DatasetVersion string    `json:"dataset_version"`
		Analysis       *Analysis `json:"analysis"`
	}{
		GeneratedAt:    time.Now().Format(time.RFC3339),
		DatasetVersion: version,
		Analysis:       analysis,
	}

	out, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling results: %v\n", err)
		return
	}

	if err := os.WriteFile(filename, out, 0644); err != nil {
		fmt.Printf("Error writing file: %v\n", err)
		return
	}

	fmt.Printf("Results saved to: %s\n", filename)
}
