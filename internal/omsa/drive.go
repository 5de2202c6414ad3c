// internal/omsa/drive.go
package omsa

import (
	"fmt"
	"strconv"
	"strings"
)

// DriveState is the operational state shown for a virtual drive.
type DriveState int

const (
	StateOther DriveState = iota
	StateReady
	StateResynching
)

func (s DriveState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateResynching:
		return "Resynching"
	default:
		return "Other"
	}
}

// ParseDriveState maps the console's state text onto DriveState.
func ParseDriveState(text string) DriveState {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "ready":
		return StateReady
	case "resynching":
		return StateResynching
	default:
		return StateOther
	}
}

// ObjectPath locates a virtual drive on its controller.
type ObjectPath struct {
	// Controller is the controller part of the path, "0" on single-controller hosts.
	Controller string
	// Index is the zero-based position of the drive on the controller.
	Index int
}

// ParseObjectPath parses a task-selector name such as "vdtasks.0.1": the
// first segment names the control, the last is the zero-based drive index and
// everything between is the controller path.
func ParseObjectPath(name string) (ObjectPath, error) {
	segments := strings.Split(strings.TrimSpace(name), ".")
	if len(segments) < 3 {
		return ObjectPath{}, fmt.Errorf("%w: %q", ErrMalformedObjectPath, name)
	}
	segments = segments[1:]

	last := segments[len(segments)-1]
	index, err := strconv.Atoi(last)
	if err != nil || index < 0 {
		return ObjectPath{}, fmt.Errorf("%w: %q: drive index %q", ErrMalformedObjectPath, name, last)
	}
	controller := strings.Join(segments[:len(segments)-1], ".")
	if controller == "" {
		return ObjectPath{}, fmt.Errorf("%w: %q: empty controller", ErrMalformedObjectPath, name)
	}
	return ObjectPath{Controller: controller, Index: index}, nil
}

// DisplayID is the one-based id the console uses for the drive's row cells.
func (p ObjectPath) DisplayID() int { return p.Index + 1 }

// ObjectID is the controller-relative object id, e.g. "0.1".
func (p ObjectPath) ObjectID() string {
	return p.Controller + "." + strconv.Itoa(p.Index)
}

// Dotted is the object path in the form onExecute expects, e.g. ".0.1".
func (p ObjectPath) Dotted() string { return "." + p.ObjectID() }

func (p ObjectPath) String() string { return p.Dotted() }

// VirtualDrive is a snapshot of one drive row, read once per run.
type VirtualDrive struct {
	Path ObjectPath
	// TaskSelector addresses the drive's task menu control.
	TaskSelector string
	Name         string
	State        DriveState
	// StateText is the state exactly as the console displays it.
	StateText   string
	Layout      string
	SizeDisplay string
}

// ControllerID returns the controller part of the drive's path.
func (d VirtualDrive) ControllerID() string { return d.Path.Controller }
