// Package progressreporter adapts the index manager's scanning /
// chunking / embedding / storing / finalizing progress callbacks onto a
// terminal progress bar.
package progressreporter

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Phase names one stage of an index operation.
type Phase string

const (
	PhaseScanning   Phase = "scanning"
	PhaseChunking   Phase = "chunking"
	PhaseEmbedding  Phase = "embedding"
	PhaseStoring    Phase = "storing"
	PhaseFinalizing Phase = "finalizing"
	PhaseAdding     Phase = "adding"
	PhaseModifying  Phase = "modifying"
	PhaseRemoving   Phase = "removing"
)

// Update is one progress callback invocation.
type Update struct {
	Phase       Phase
	Current     int
	Total       int
	CurrentFile string
}

// Func is the callback shape IndexManager invokes.
type Func func(Update)

// Bar renders Updates onto a terminal progress bar, one bar per phase
// transition.
type Bar struct {
	quiet     bool
	current   *progressbar.ProgressBar
	phase     Phase
	startedAt time.Time
}

// New creates a Bar. When quiet is true, Report is a no-op.
func New(quiet bool) *Bar {
	return &Bar{quiet: quiet, startedAt: time.Now()}
}

// Report renders u, starting a fresh bar whenever the phase changes.
func (b *Bar) Report(u Update) {
	if b.quiet {
		return
	}

	if u.Phase != b.phase || b.current == nil {
		if b.current != nil {
			fmt.Println()
		}
		b.phase = u.Phase
		b.current = progressbar.NewOptions(u.Total,
			progressbar.OptionSetDescription(string(u.Phase)),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)
	}

	b.current.Set(u.Current) //nolint:errcheck
}

// Func returns a Func bound to this Bar, suitable for passing straight
// into IndexManager.CreateIndex.
func (b *Bar) Func() Func {
	return b.Report
}

// NoOp is a Func that discards every update, for callers that don't want
// progress output.
func NoOp(Update) {}
