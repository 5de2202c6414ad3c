// internal/reporting/json.go
package reporting

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/raidcc/internal/omsa"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is the JSON form of one dispatched drive.
type Record struct {
	Name       string       `json:"name"`
	Path       string       `json:"path"`
	Controller string       `json:"controller"`
	State      string       `json:"state"`
	Layout     string       `json:"layout"`
	Size       string       `json:"size"`
	Outcome    omsa.Outcome `json:"outcome"`
	Progress   string       `json:"progress,omitempty"`
}

// NewRecord flattens an ActionResult into a Record.
func NewRecord(res omsa.ActionResult) Record {
	return Record{
		Name:       res.Drive.Name,
		Path:       res.Drive.Path.Dotted(),
		Controller: res.Drive.ControllerID(),
		State:      res.Drive.StateText,
		Layout:     res.Drive.Layout,
		Size:       res.Drive.SizeDisplay,
		Outcome:    res.Outcome,
		Progress:   res.Progress,
	}
}

// JSONReporter writes one JSON object per line for each dispatched drive.
// Discovery alone produces no output.
type JSONReporter struct {
	w   io.WriteCloser
	enc *jsoniter.Encoder
}

// NewJSONReporter creates a JSONReporter that owns w.
func NewJSONReporter(w io.WriteCloser) *JSONReporter {
	return &JSONReporter{w: w, enc: json.NewEncoder(w)}
}

func (r *JSONReporter) Found(omsa.VirtualDrive) error { return nil }

func (r *JSONReporter) Write(res omsa.ActionResult) error {
	return r.enc.Encode(NewRecord(res))
}

func (r *JSONReporter) Close() error { return r.w.Close() }
