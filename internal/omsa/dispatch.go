// internal/omsa/dispatch.go
package omsa

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Outcome is what dispatching did for a drive.
type Outcome int

const (
	// NoActionAvailable means neither CC option was offered.
	NoActionAvailable Outcome = iota
	// Started means a consistency check was triggered.
	Started
	// AlreadyRunning means a consistency check was already in flight.
	AlreadyRunning
	// WouldStart is Started in dry-run mode: nothing was invoked.
	WouldStart
)

func (o Outcome) String() string {
	switch o {
	case Started:
		return "Started"
	case AlreadyRunning:
		return "AlreadyRunning"
	case WouldStart:
		return "WouldStart"
	default:
		return "NoActionAvailable"
	}
}

// MarshalText renders the outcome by name in reports.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// ActionResult is produced once per drive and only reported.
type ActionResult struct {
	Drive   VirtualDrive
	Outcome Outcome
	// Progress is the console's progress cell, set for AlreadyRunning.
	Progress string
}

// Dispatcher decides and executes the idempotent action for a drive. The
// console's task menu is the only state consulted: it offers "Check
// Consistency" when no check runs and "Cancel Check Consistency" while one
// does, so re-dispatching a started drive reports it instead of starting it again.
type Dispatcher struct {
	logger *zap.Logger
	dryRun bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDryRun makes Dispatch report WouldStart instead of invoking the console.
func WithDryRun(dryRun bool) DispatcherOption {
	return func(d *Dispatcher) { d.dryRun = dryRun }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{logger: logger.Named("dispatch")}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch positions nav at the data area, inspects the drive's task selector
// and acts on it. "Check Consistency" wins over "Cancel Check Consistency"
// when both are offered.
func (d *Dispatcher) Dispatch(ctx context.Context, nav *NavigationContext, drive VirtualDrive) (ActionResult, error) {
	result := ActionResult{Drive: drive, Outcome: NoActionAvailable}
	log := d.logger.With(zap.String("drive", drive.Name), zap.Stringer("path", drive.Path))

	if err := enterDataArea(ctx, nav); err != nil {
		return result, fmt.Errorf("dispatching %s: %w", drive.Name, err)
	}
	options, err := d.taskOptions(ctx, nav, drive)
	if err != nil {
		return result, err
	}

	if opt, ok := findOption(options, OptionCheckConsistency); ok {
		if d.dryRun {
			result.Outcome = WouldStart
			log.Info("Dry run, consistency check not started.")
			return result, nil
		}
		if err := nav.SetValue(ctx, drive.TaskSelector, opt.Value); err != nil {
			return result, fmt.Errorf("selecting %q for %s: %w", opt.Text, drive.Name, err)
		}
		if err := nav.Invoke(ctx, FunctionExecute, drive.Name, drive.Path.Dotted(), "true", "", "0"); err != nil {
			return result, fmt.Errorf("starting consistency check on %s: %w", drive.Name, err)
		}
		result.Outcome = Started
		log.Info("Consistency check started.")
		return result, nil
	}

	if _, ok := findOption(options, OptionCancelCheckConsistency); ok {
		progress, err := d.progress(ctx, nav, drive)
		if err != nil {
			return result, err
		}
		result.Outcome = AlreadyRunning
		result.Progress = progress
		log.Info("Consistency check already running.", zap.String("progress", progress))
		return result, nil
	}

	labels := make([]string, 0, len(options))
	for _, o := range options {
		labels = append(labels, o.Text)
	}
	log.Warn("No consistency check option offered.", zap.Strings("options", labels))
	return result, nil
}

func (d *Dispatcher) taskOptions(ctx context.Context, nav *NavigationContext, drive VirtualDrive) ([]Option, error) {
	if err := nav.WaitElement(ctx, drive.TaskSelector); err != nil {
		return nil, fmt.Errorf("task selector of %s: %w", drive.Name, err)
	}
	elements, err := nav.Query(ctx, drive.TaskSelector)
	if err != nil {
		return nil, fmt.Errorf("task selector of %s: %w", drive.Name, err)
	}
	if len(elements) == 0 {
		return nil, nil
	}
	return elements[0].Options, nil
}

func (d *Dispatcher) progress(ctx context.Context, nav *NavigationContext, drive VirtualDrive) (string, error) {
	elements, err := nav.Query(ctx, progressSelector(drive.Path.DisplayID()))
	if err != nil {
		return "", fmt.Errorf("progress of %s: %w", drive.Name, err)
	}
	var progress string
	if len(elements) > 0 {
		progress = strings.TrimSpace(elements[0].HTML)
	}
	if progress == "" {
		d.logger.Warn("Progress cell missing or empty.", zap.String("drive", drive.Name))
		return progressUnknown, nil
	}
	return progress, nil
}

// progressUnknown is reported when the console shows no progress for a running check.
const progressUnknown = "unknown"

func findOption(options []Option, label string) (Option, bool) {
	for _, o := range options {
		if strings.TrimSpace(o.Text) == label {
			return o, true
		}
	}
	return Option{}, false
}
