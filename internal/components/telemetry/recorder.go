package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// Report is a single call recorded by Recorder.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory so tests can assert on
// what a component logged.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(kind, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

// Reports returns a copy of the reports of the given kind, all of them if kind
// is empty.
func (r *Recorder) Reports(kind string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, report := range r.reports {
		if kind == "" || report.Kind == kind {
			out = append(out, report)
		}
	}
	return out
}

// Broken returns the ids of every ReportBroken call.
func (r *Recorder) Broken() []string {
	var ids []string
	for _, report := range r.Reports("broken") {
		ids = append(ids, report.ID)
	}
	return ids
}

func (r *Recorder) String() string {
	var out strings.Builder
	for _, report := range r.Reports("") {
		out.WriteString(fmt.Sprintf("[%s] %s %v\n", report.Kind, report.ID, report.Params))
	}
	return out.String()
}
