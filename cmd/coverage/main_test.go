package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/zapponejosh/ordo-api/internal/data"
	"github.com/zapponejosh/ordo-api/internal/liturgy"
	"github.com/zapponejosh/ordo-api/internal/source"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckAll_EmbeddedDatasetIsClean(t *testing.T) {
	engine := liturgy.NewEngine(source.NewFS(data.FS, ""), liturgy.Options{Logger: quiet()})

	results := checkAll(context.Background(), engine, liturgy.Rites(), 2024, 2025, false)
	if len(results) != 2*(366+365) {
		t.Fatalf("got %d results, want %d", len(results), 2*(366+365))
	}

	analysis := analyzeResults(results)
	if len(analysis.Issues) != 0 {
		t.Errorf("issues: %+v", analysis.Issues[:min(len(analysis.Issues), 5)])
	}
	if analysis.ByYear[2024].TotalDays != 2*366 {
		t.Errorf("2024 days = %d", analysis.ByYear[2024].TotalDays)
	}
	if analysis.ByReason[liturgy.ReasonSanctoralSupersedesTemporal] == 0 {
		t.Error("no sanctoral feast outranked its day")
	}
	if analysis.BySeason["post_pentecost"].Commemorate == 0 {
		t.Error("no commemorations counted after Pentecost")
	}
}

type brokenFetcher struct{}

func (brokenFetcher) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("offline")
}

func TestCheckDate_Error(t *testing.T) {
	engine := liturgy.NewEngine(brokenFetcher{}, liturgy.Options{Logger: quiet()})

	r := checkDate(context.Background(), engine, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), liturgy.RiteExtraordinary)
	if r.Issue != IssueError {
		t.Errorf("issue = %q, want %q", r.Issue, IssueError)
	}

	analysis := analyzeResults([]TestResult{r})
	if analysis.ByIssue[IssueError] != 1 || analysis.BySeason["(unresolved)"].IssueDays != 1 {
		t.Errorf("analysis = %+v", analysis)
	}
}

func TestAnalyzeResults(t *testing.T) {
	results := []TestResult{
		{Date: "2025-07-13", Season: "post_pentecost", Reason: liturgy.ReasonTemporalWithCommemoration},
		{Date: "2025-07-14", Season: "post_pentecost", Issue: IssueUncovered, Reason: liturgy.ReasonSanctoralOnly},
		{Date: "2025-07-15", Season: "post_pentecost", Issue: IssueConflict, Reason: liturgy.ReasonTemporalOnly},
	}

	a := analyzeResults(results)
	stats := a.BySeason["post_pentecost"]
	if stats.TotalDays != 3 || stats.IssueDays != 2 || stats.Commemorate != 1 {
		t.Errorf("season stats = %+v", stats)
	}
	if a.ByIssue[IssueUncovered] != 1 || a.ByIssue[IssueConflict] != 1 {
		t.Errorf("by issue = %v", a.ByIssue)
	}
	if len(a.Issues) != 2 || a.Issues[0].Date != "2025-07-14" {
		t.Errorf("issues = %+v", a.Issues)
	}
}
