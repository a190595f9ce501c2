// Package logsink accumulates diagnostic records produced by the conversion
// engine and the orchestrator, and serves severity-filtered views of them.
package logsink

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Severity orders records from most to least severe.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
	Debug
	Verbose
)

// Severities lists every severity in ordinal order.
var Severities = []Severity{Error, Warning, Info, Debug, Verbose}

// String returns the severity name
func (s Severity) String() string {
	switch s {
	case Error:
		return "Error"
	case Warning:
		return "Warning"
	case Info:
		return "Info"
	case Debug:
		return "Debug"
	case Verbose:
		return "Verbose"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity accepts a severity name in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return Error, nil
	case "warning", "warn":
		return Warning, nil
	case "info":
		return Info, nil
	case "debug":
		return Debug, nil
	case "verbose":
		return Verbose, nil
	default:
		return Error, fmt.Errorf("unknown severity %q", s)
	}
}

// Record is one log line.
type Record struct {
	Time     time.Time
	Text     string
	Severity Severity
}

// String renders the record as a log pane line.
func (r Record) String() string {
	return fmt.Sprintf("%s [%s] %s", r.Time.Format("15:04:05"), r.Severity, r.Text)
}

// Drainer hands over pending records and forgets them, so draining twice
// never duplicates a message.
type Drainer interface {
	DrainLogs() []Record
}

// Sink is an append-only, concurrency-safe record store.
type Sink struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

// New creates an empty sink.
func New() *Sink {
	return &Sink{now: time.Now}
}

// Append adds a record, stamping it if it has no time.
func (s *Sink) Append(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Time.IsZero() {
		r.Time = s.now()
	}
	s.records = append(s.records, r)
}

// Add appends a formatted record.
func (s *Sink) Add(severity Severity, format string, args ...interface{}) Record {
	r := Record{Time: s.now(), Text: fmt.Sprintf(format, args...), Severity: severity}
	s.Append(r)
	return r
}

// DrainFrom pulls every pending record from d and returns them.
func (s *Sink) DrainFrom(d Drainer) []Record {
	if d == nil {
		return nil
	}
	pending := d.DrainLogs()
	for _, r := range pending {
		s.Append(r)
	}
	return pending
}

// Clear drops all records.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

// Len returns the number of stored records.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns a copy of every record in insertion order.
func (s *Sink) Records() []Record {
	return s.Filtered(Verbose)
}

// Filtered returns records at or above min, i.e. whose ordinal is <= min,
// in insertion order.
func (s *Sink) Filtered(min Severity) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Severity <= min {
			out = append(out, r)
		}
	}
	return out
}
