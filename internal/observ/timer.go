// Package observ collects coarse wall-clock timings for the phases of an
// emission run.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase records the duration and annotation of one pipeline phase.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks execution time across named phases. A nil Timer is inert:
// Begin and End are no-ops, so callers thread an optional timer through
// without guarding every call.
type Timer struct {
	phases []Phase
}

// NewTimer returns an empty timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin opens a phase and returns its index, -1 on a nil timer.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase at idx and attaches a note. Out-of-range indices are
// ignored, so the -1 from a nil Begin feeds back in safely.
func (t *Timer) End(idx int, note string) {
	if t == nil || idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// PhaseReport is one phase flattened for serialization.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates a timer's phases and their total.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report flattens the recorded phases into milliseconds.
func (t *Timer) Report() Report {
	if t == nil || len(t.phases) == 0 {
		return Report{}
	}
	out := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, p := range t.phases {
		total += p.Dur
		out.Phases[i] = PhaseReport{Name: p.Name, DurationMS: millis(p.Dur), Note: p.Note}
	}
	out.TotalMS = millis(total)
	return out
}

// Summary renders the recorded phases as an aligned text block.
func (t *Timer) Summary() string {
	rep := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range rep.Phases {
		fmt.Fprintf(&b, "  %-12s %8.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			b.WriteString("  (" + p.Note + ")")
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-12s %8.2f ms\n", "total", rep.TotalMS)
	return b.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
