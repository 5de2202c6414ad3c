// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/raidcc/internal/omsa"
)

// Reporter writes the per-drive records of a run to an output.
type Reporter interface {
	// Found records a discovered drive before any action is taken on it.
	Found(drive omsa.VirtualDrive) error
	// Write records the outcome of dispatching a drive.
	Write(result omsa.ActionResult) error
	// Close finalizes the report and closes any underlying file.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// NopCloser returns a WriteCloser whose Close leaves w open.
func NopCloser(w io.Writer) io.WriteCloser {
	return &nopWriteCloser{w}
}

// New creates a reporter for format writing to outputPath; an empty path or
// "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = NopCloser(os.Stdout)
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWithWriter(format, writer)
}

// NewWithWriter creates a reporter that takes ownership of w.
func NewWithWriter(format string, w io.WriteCloser) (Reporter, error) {
	switch format {
	case "text":
		return NewTextReporter(w), nil
	case "json":
		return NewJSONReporter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
