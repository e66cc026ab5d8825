// Command conflict_audit walks every timetable of an organization through a
// running API instance, fetches its conflict report, and exits non-zero when
// any timetable carries error-severity conflicts. Intended as a CI / cron
// gate before bulk publishing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type timetable struct {
	ID           string `json:"id"`
	AcademicYear string `json:"academic_year"`
	Term         string `json:"term"`
	Status       string `json:"status"`
}

type conflict struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type audit struct {
	Timetable timetable
	Errors    int
	Warnings  int
	Err       error
	Duration  time.Duration
}

func main() {
	var (
		base    string
		orgID   string
		timeout time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL including prefix")
	flag.StringVar(&orgID, "org", "", "organization id to audit")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	if orgID == "" {
		log.Fatal("missing required -org flag")
	}

	client := &http.Client{Timeout: timeout}

	timetables, err := listTimetables(client, base, orgID)
	if err != nil {
		log.Fatalf("failed to list timetables: %v", err)
	}
	if len(timetables) == 0 {
		fmt.Printf("no timetables found for org %s\n", orgID)
		return
	}

	var audits []audit
	blocking := 0
	for _, t := range timetables {
		a := auditTimetable(client, base, t)
		if a.Err != nil || a.Errors > 0 {
			blocking++
		}
		audits = append(audits, a)
	}

	printReport(audits)

	fmt.Printf("Timetables with blocking conflicts: %d of %d\n", blocking, len(audits))
	if blocking > 0 {
		os.Exit(1)
	}
}

func listTimetables(client *http.Client, base, orgID string) ([]timetable, error) {
	raw, err := get(client, base, "/timetables?orgId="+orgID+"&limit=100")
	if err != nil {
		return nil, err
	}
	var timetables []timetable
	if err := json.Unmarshal(raw, &timetables); err != nil {
		return nil, fmt.Errorf("decode timetables: %w", err)
	}
	return timetables, nil
}

func auditTimetable(client *http.Client, base string, t timetable) audit {
	a := audit{Timetable: t}
	start := time.Now()
	raw, err := get(client, base, "/timetables/"+t.ID+"/conflicts")
	a.Duration = time.Since(start)
	if err != nil {
		a.Err = err
		return a
	}

	var bySlot map[string][]conflict
	if err := json.Unmarshal(raw, &bySlot); err != nil {
		a.Err = fmt.Errorf("decode conflicts: %w", err)
		return a
	}
	for _, conflicts := range bySlot {
		for _, c := range conflicts {
			if c.Severity == "error" {
				a.Errors++
			} else {
				a.Warnings++
			}
		}
	}
	return a
}

func get(client *http.Client, base, path string) (json.RawMessage, error) {
	url := strings.TrimRight(base, "/") + path
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return env.Data, nil
}

func printReport(audits []audit) {
	fmt.Println("Timetable Conflict Audit")
	fmt.Println("========================")
	for _, a := range audits {
		status := "CLEAN"
		if a.Err != nil {
			status = "ERROR"
		} else if a.Errors > 0 {
			status = "BLOCKED"
		} else if a.Warnings > 0 {
			status = "WARN"
		}
		fmt.Printf("[%s] %s %s/%s (%s)\n", status, a.Timetable.ID, a.Timetable.AcademicYear, a.Timetable.Term, a.Timetable.Status)
		if a.Err != nil {
			fmt.Printf("  Error: %v\n", a.Err)
			continue
		}
		fmt.Printf("  Errors: %d | Warnings: %d | Fetched in %s\n", a.Errors, a.Warnings, a.Duration)
	}
}
