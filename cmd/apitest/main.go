// Command apitest runs a smoke suite against a running Ordo API server:
// the reference feasts, a range, the feeds and the error paths.
//
// Usage:
//
//	go run ./cmd/apitest -url http://localhost:8080
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// =============================================================================
// Response Types - Match the actual API response structure
// =============================================================================

type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Rank  string `json:"rank"`
}

// DayResponse is the response for /days/{date} and /days/today
type DayResponse struct {
	Date           string `json:"date"`
	Rite           string `json:"rite"`
	Season         string `json:"season"`
	Chosen         *Entry `json:"chosen"`
	Commemoration  *Entry `json:"commemoration"`
	Color          string `json:"color"`
	Reason         string `json:"reason"`
	DatasetVersion string `json:"dataset_version"`
}

// RangeResponse is the response for /days?start=&end=
type RangeResponse struct {
	Start string        `json:"start"`
	End   string        `json:"end"`
	Days  []DayResponse `json:"days"`
}

// HealthResponse is the response for /health
type HealthResponse struct {
	Status     string `json:"status"`
	DataLoaded bool   `json:"data_loaded"`
}

// =============================================================================
// Test Runner
// =============================================================================

type TestRunner struct {
	baseURL      string
	client       *http.Client
	out          io.Writer
	verbose      bool
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL string, out io.Writer, verbose bool) *TestRunner {
	return &TestRunner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		out:     out,
		verbose: verbose,
	}
}

func (tr *TestRunner) Run() {
	fmt.Fprintln(tr.out, "==============================================")
	fmt.Fprintln(tr.out, "Ordo API Test Suite")
	fmt.Fprintln(tr.out, "==============================================")
	fmt.Fprintf(tr.out, "Base URL: %s\n", tr.baseURL)

	tr.testHealth()
	tr.testToday()
	tr.testReferenceDays()
	tr.testDateRange()
	tr.testConditionalGet()
	tr.testFeeds()
	tr.testEdgeCases()

	tr.printSummary()
}

// =============================================================================
// Test Groups
// =============================================================================

func (tr *TestRunner) testHealth() {
	tr.printSection("Health Check")

	resp, err := tr.get("/health")
	if err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	var health HealthResponse
	if err := json.Unmarshal(resp.Data, &health); err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	if health.Status == "healthy" {
		tr.recordSuccess(fmt.Sprintf("Health check passed (data loaded: %v)", health.DataLoaded))
	} else {
		tr.recordError("Health", fmt.Sprintf("Unexpected status: %s", health.Status))
	}
}

func (tr *TestRunner) testToday() {
	tr.printSection("Today")

	var day DayResponse
	if err := tr.getDataAs("/api/v1/days/today", &day); err != nil {
		tr.recordError("Today", err.Error())
		return
	}
	if day.Chosen == nil {
		tr.recordError("Today", fmt.Sprintf("%s has no celebration", day.Date))
		return
	}
	tr.recordSuccess(fmt.Sprintf("Today (%s): %s [%s]", day.Date, day.Chosen.Title, day.Color))
}

// referenceDays are outcomes of the default dataset that any build must keep.
var referenceDays = []struct {
	path       string
	wantChosen string
	wantReason string
	wantColor  string
}{
	{"/api/v1/days/2025-12-25", "nativity", "temporal_supersedes_sanctoral", "blanc"},
	{"/api/v1/days/2025-03-19", "st_joseph", "sanctoral_supersedes_temporal", "blanc"},
	{"/api/v1/days/2025-07-13", "sunday_after_pentecost", "temporal_with_commemoration", "vert"},
	{"/api/v1/days/2025-07-22", "st_mary_magdalene", "sanctoral_with_commemoration", "blanc"},
	{"/api/v1/days/2025-04-18", "good_friday", "temporal_only", "noir"},
	{"/api/v1/days/2025-12-25?rite=ordinaire", "nativity", "temporal_only", "blanc"},
}

func (tr *TestRunner) testReferenceDays() {
	tr.printSection("Reference Days")

	for _, tc := range referenceDays {
		var day DayResponse
		if err := tr.getDataAs(tc.path, &day); err != nil {
			tr.recordError(tc.path, err.Error())
			continue
		}

		var problems []string
		if day.Chosen == nil || day.Chosen.ID != tc.wantChosen {
			problems = append(problems, fmt.Sprintf("chosen %v, want %s", day.Chosen, tc.wantChosen))
		}
		if day.Reason != tc.wantReason {
			problems = append(problems, fmt.Sprintf("reason %s, want %s", day.Reason, tc.wantReason))
		}
		if day.Color != tc.wantColor {
			problems = append(problems, fmt.Sprintf("color %s, want %s", day.Color, tc.wantColor))
		}
		if len(problems) > 0 {
			tr.recordError(tc.path, strings.Join(problems, "; "))
			continue
		}

		tr.recordSuccess(fmt.Sprintf("%s %s: %s", day.Date, day.Rite, day.Chosen.Title))
		if tr.verbose {
			tr.printDayDetail(&day)
		}
	}
}

func (tr *TestRunner) testDateRange() {
	tr.printSection("Date Range")

	var rng RangeResponse
	if err := tr.getDataAs("/api/v1/days?start=2025-04-13&end=2025-04-20", &rng); err != nil {
		tr.recordError("Holy Week range", err.Error())
	} else if len(rng.Days) != 8 {
		tr.recordError("Holy Week range", fmt.Sprintf("got %d days, want 8", len(rng.Days)))
	} else {
		tr.recordSuccess(fmt.Sprintf("Holy Week range: %d days", len(rng.Days)))
	}

	tr.expectStatus("Range over 90 days", "/api/v1/days?start=2025-01-01&end=2025-12-31", http.StatusBadRequest)
	tr.expectStatus("Reversed range", "/api/v1/days?start=2025-12-31&end=2025-01-01", http.StatusBadRequest)
}

func (tr *TestRunner) testConditionalGet() {
	tr.printSection("Conditional GET")

	resp, err := tr.getRaw("/api/v1/days/2025-12-25", nil)
	if err != nil {
		tr.recordError("ETag", err.Error())
		return
	}
	resp.Body.Close()
	etag := resp.Header.Get("ETag")
	if etag == "" {
		tr.recordError("ETag", "no ETag header")
		return
	}

	resp, err = tr.getRaw("/api/v1/days/2025-12-25", map[string]string{"If-None-Match": etag})
	if err != nil {
		tr.recordError("If-None-Match", err.Error())
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotModified {
		tr.recordError("If-None-Match", fmt.Sprintf("status %d, want 304", resp.StatusCode))
		return
	}
	tr.recordSuccess("If-None-Match " + etag + " answered 304")
}

func (tr *TestRunner) testFeeds() {
	tr.printSection("Feeds")

	resp, err := tr.getRaw("/api/v1/calendar.ics?year=2025", nil)
	if err != nil {
		tr.recordError("ICS", err.Error())
	} else {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if n := strings.Count(string(body), "BEGIN:VEVENT"); n != 365 {
			tr.recordError("ICS", fmt.Sprintf("got %d events, want 365", n))
		} else {
			tr.recordSuccess("ICS 2025: 365 events")
		}
	}

	var easter struct {
		Easter string `json:"easter"`
	}
	if err := tr.getDataAs("/api/v1/easter/2025", &easter); err != nil {
		tr.recordError("Easter", err.Error())
	} else if easter.Easter != "2025-04-20" {
		tr.recordError("Easter", "Easter 2025 = "+easter.Easter)
	} else {
		tr.recordSuccess("Easter 2025: " + easter.Easter)
	}

	var dataset struct {
		Version string `json:"version"`
	}
	if err := tr.getDataAs("/api/v1/dataset", &dataset); err != nil {
		tr.recordError("Dataset", err.Error())
	} else {
		tr.recordSuccess("Dataset version " + dataset.Version)
	}
}

func (tr *TestRunner) testEdgeCases() {
	tr.printSection("Edge Cases")

	tr.expectStatus("Invalid date format", "/api/v1/days/invalid", http.StatusBadRequest)
	tr.expectStatus("Impossible date", "/api/v1/days/2025-02-29", http.StatusBadRequest)
	tr.expectStatus("Unknown rite", "/api/v1/days/2025-12-25?rite=ambrosian", http.StatusBadRequest)
	tr.expectStatus("Year out of range", "/api/v1/days/1400-01-01", http.StatusBadRequest)
	tr.expectStatus("Unknown route", "/api/v1/readings/today", http.StatusNotFound)
	tr.expectStatus("Leap day", "/api/v1/days/2024-02-29", http.StatusOK)
}

// =============================================================================
// Helpers
// =============================================================================

func (tr *TestRunner) get(path string) (*APIResponse, error) {
	resp, err := tr.getRaw(path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	if !apiResp.Success {
		errMsg := "unknown error"
		if apiResp.Error != nil {
			errMsg = apiResp.Error.Code + ": " + apiResp.Error.Message
		}
		return nil, fmt.Errorf("API error: %s", errMsg)
	}

	return &apiResp, nil
}

func (tr *TestRunner) getDataAs(path string, target any) error {
	resp, err := tr.get(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp.Data, target)
}

func (tr *TestRunner) getRaw(path string, header map[string]string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, tr.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return tr.client.Do(req)
}

func (tr *TestRunner) expectStatus(name, path string, want int) {
	resp, err := tr.getRaw(path, nil)
	if err != nil {
		tr.recordError(name, err.Error())
		return
	}
	resp.Body.Close()
	if resp.StatusCode != want {
		tr.recordError(name, fmt.Sprintf("status %d, want %d", resp.StatusCode, want))
		return
	}
	tr.recordSuccess(fmt.Sprintf("%s: %d", name, want))
}

func (tr *TestRunner) printSection(name string) {
	fmt.Fprintln(tr.out)
	fmt.Fprintf(tr.out, "--- %s ---\n", name)
	fmt.Fprintln(tr.out)
}

func (tr *TestRunner) printDayDetail(d *DayResponse) {
	fmt.Fprintf(tr.out, "    Season: %s\n", d.Season)
	if d.Chosen != nil {
		fmt.Fprintf(tr.out, "    Rank:   %s\n", d.Chosen.Rank)
	}
	if d.Commemoration != nil {
		fmt.Fprintf(tr.out, "    Commemoration: %s\n", d.Commemoration.Title)
	}
	fmt.Fprintf(tr.out, "    Reason: %s\n", d.Reason)
	fmt.Fprintln(tr.out)
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.successCount++
	fmt.Fprintf(tr.out, "  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(context, msg string) {
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", context, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Fprintf(tr.out, "  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Fprintln(tr.out)
	fmt.Fprintln(tr.out, "==============================================")
	fmt.Fprintln(tr.out, "Summary")
	fmt.Fprintln(tr.out, "==============================================")
	fmt.Fprintf(tr.out, "  Passed: %d\n", tr.successCount)
	fmt.Fprintf(tr.out, "  Failed: %d\n", tr.errorCount)
	fmt.Fprintln(tr.out)

	if tr.errorCount > 0 {
		fmt.Fprintln(tr.out, "Failures:")
		for _, err := range tr.errors {
			fmt.Fprintf(tr.out, "  • %s\n", err)
		}
		fmt.Fprintln(tr.out)
		fmt.Fprintf(tr.out, "Tests completed with %d failure(s)\n", tr.errorCount)
		return
	}
	fmt.Fprintln(tr.out, "All tests passed! ✓")
}

// =============================================================================
// Main
// =============================================================================

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	verbose := flag.Bool("v", false, "Verbose output (show day details)")
	flag.Parse()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(*baseURL + "/health")
	if err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}
	resp.Body.Close()

	runner := NewTestRunner(*baseURL, os.Stdout, *verbose)
	runner.Run()

	if runner.errorCount > 0 {
		os.Exit(1)
	}
}
