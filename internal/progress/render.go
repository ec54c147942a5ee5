package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// TerminalRenderer renders Updates as a single live-updating status line
// when stdout is a tty, and falls back to plain sequential lines
// otherwise (e.g. when output is redirected to a log file or a CI
// runner), mirroring the teacher CLI's interactive/non-interactive
// status split.
type TerminalRenderer struct {
	out        io.Writer
	spin       *spinner.Spinner
	isTerminal bool
}

// NewTerminalRenderer builds a renderer writing to out (typically
// os.Stdout). The file descriptor backing out is used to detect whether
// a spinner can be drawn in place.
func NewTerminalRenderer(out *os.File) *TerminalRenderer {
	isTTY := term.IsTerminal(int(out.Fd()))
	r := &TerminalRenderer{out: out, isTerminal: isTTY}
	if isTTY {
		r.spin = spinner.New(spinner.CharSets[11], 120*time.Millisecond, spinner.WithWriter(out))
	}
	return r
}

// Sink returns the progress.Sink the scheduler feeds Updates to.
func (r *TerminalRenderer) Sink() Sink {
	return func(u Update) {
		line := formatUpdate(u)
		if r.isTerminal && r.spin != nil {
			r.spin.Suffix = " " + line
			if !r.spin.Active() {
				r.spin.Start()
			}
			if u.Percent != nil && *u.Percent >= 1.0 {
				r.spin.Stop()
				fmt.Fprintln(r.out, line)
			}
			return
		}
		fmt.Fprintln(r.out, line)
	}
}

func formatUpdate(u Update) string {
	pct := "?"
	if u.Percent != nil {
		pct = fmt.Sprintf("%.0f%%", *u.Percent*100)
	}
	stage := ""
	if u.Stage != nil {
		stage = " [" + *u.Stage + "]"
	}
	eta := ""
	if u.GlobalETA != nil {
		eta = fmt.Sprintf(" eta=%.0fs", *u.GlobalETA)
	}
	return fmt.Sprintf("job %d/%d %q%s %s%s: %s", u.JobIndex, u.TotalJobs, u.JobName, stage, pct, eta, u.Message)
}
