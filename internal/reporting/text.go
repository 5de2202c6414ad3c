// internal/reporting/text.go
package reporting

import (
	"fmt"
	"io"

	"github.com/xkilldash9x/raidcc/internal/omsa"
)

// TextReporter writes the human-readable console report, one "Found:" line
// per drive followed by an indented outcome line.
type TextReporter struct {
	w io.WriteCloser
}

// NewTextReporter creates a TextReporter that owns w.
func NewTextReporter(w io.WriteCloser) *TextReporter {
	return &TextReporter{w: w}
}

func (r *TextReporter) Found(d omsa.VirtualDrive) error {
	_, err := fmt.Fprintf(r.w, "Found: %s [state: %s; layout: %s; size: %s]\n",
		d.Name, d.StateText, d.Layout, d.SizeDisplay)
	return err
}

func (r *TextReporter) Write(res omsa.ActionResult) error {
	var err error
	switch res.Outcome {
	case omsa.Started:
		_, err = fmt.Fprintf(r.w, "  CC for %s has been started\n", res.Drive.Name)
	case omsa.AlreadyRunning:
		_, err = fmt.Fprintf(r.w, "  CC for %s is still running, progress: %s\n", res.Drive.Name, res.Progress)
	case omsa.WouldStart:
		_, err = fmt.Fprintf(r.w, "  CC for %s would be started (dry run)\n", res.Drive.Name)
	default:
		_, err = io.WriteString(r.w, "  NO CC option found - this should not ever happen!\n")
	}
	return err
}

func (r *TextReporter) Close() error { return r.w.Close() }
