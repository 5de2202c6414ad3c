// internal/omsa/discovery.go
package omsa

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"
)

// Pacer is awaited before each drive is read. The orchestrator uses it to
// let the data area finish reloading after the previous drive's action.
type Pacer interface {
	Await(ctx context.Context) error
}

// PacerFunc adapts a function to Pacer.
type PacerFunc func(ctx context.Context) error

func (f PacerFunc) Await(ctx context.Context) error { return f(ctx) }

// Discoverer enumerates the virtual drives of the first controller.
type Discoverer struct {
	logger *zap.Logger
}

// NewDiscoverer creates a Discoverer.
func NewDiscoverer(logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{logger: logger.Named("discovery")}
}

// OpenStorage walks Storage, Controller.0 and VD.0 in the tree frame, then
// opens the virtual drive tab in the data area so the task selectors render.
func (d *Discoverer) OpenStorage(ctx context.Context, nav *NavigationContext) error {
	nav.Reset()
	for _, frame := range []string{FrameBody, FrameTree} {
		if err := nav.Enter(ctx, frame); err != nil {
			return fmt.Errorf("opening storage tree: %w", err)
		}
	}
	for _, link := range []string{SelectorStorageLink, SelectorControllerLink, SelectorVirtualDrivesLink} {
		if err := nav.WaitAndClick(ctx, link); err != nil {
			return fmt.Errorf("opening storage tree: %w", err)
		}
		d.logger.Debug("Clicked tree link.", zap.String("selector", link))
	}

	if err := enterDataArea(ctx, nav); err != nil {
		return fmt.Errorf("opening virtual drive view: %w", err)
	}
	if err := nav.WaitAndClick(ctx, SelectorVirtualDrivesLink); err != nil {
		return fmt.Errorf("opening virtual drive view: %w", err)
	}
	return nil
}

// Drives lazily yields one VirtualDrive per task selector on the page. The
// selectors are enumerated on the first pull; each drive's display cells are
// read only after pace has been awaited for it. The sequence reads the live
// console and cannot be restarted. After an error it stops.
func (d *Discoverer) Drives(ctx context.Context, nav *NavigationContext, pace Pacer) iter.Seq2[VirtualDrive, error] {
	return func(yield func(VirtualDrive, error) bool) {
		selectors, err := d.taskSelectors(ctx, nav)
		if err != nil {
			yield(VirtualDrive{}, err)
			return
		}
		d.logger.Info("Found virtual drive task selectors.", zap.Int("count", len(selectors)))

		for _, sel := range selectors {
			if pace != nil {
				if err := pace.Await(ctx); err != nil {
					yield(VirtualDrive{}, err)
					return
				}
			}
			drive, err := d.readDrive(ctx, nav, sel)
			if !yield(drive, err) || err != nil {
				return
			}
		}
	}
}

// Discover drains Drives into a slice.
func (d *Discoverer) Discover(ctx context.Context, nav *NavigationContext, pace Pacer) ([]VirtualDrive, error) {
	var drives []VirtualDrive
	for drive, err := range d.Drives(ctx, nav, pace) {
		if err != nil {
			return drives, err
		}
		drives = append(drives, drive)
	}
	return drives, nil
}

type taskSelector struct {
	path     ObjectPath
	selector string
}

func (d *Discoverer) taskSelectors(ctx context.Context, nav *NavigationContext) ([]taskSelector, error) {
	if err := enterDataArea(ctx, nav); err != nil {
		return nil, fmt.Errorf("discovering drives: %w", err)
	}
	if err := nav.WaitElement(ctx, SelectorTaskSelector); err != nil {
		return nil, fmt.Errorf("discovering drives: %w", err)
	}
	elements, err := nav.Query(ctx, SelectorTaskSelector)
	if err != nil {
		return nil, fmt.Errorf("discovering drives: %w", err)
	}

	selectors := make([]taskSelector, 0, len(elements))
	for _, el := range elements {
		name := el.Attr("name")
		path, err := ParseObjectPath(name)
		if err != nil {
			return nil, err
		}
		selectors = append(selectors, taskSelector{
			path:     path,
			selector: taskSelectorFor(el.Attr("id"), name),
		})
	}
	return selectors, nil
}

func (d *Discoverer) readDrive(ctx context.Context, nav *NavigationContext, sel taskSelector) (VirtualDrive, error) {
	// The previous drive's action may have reloaded the data area.
	if err := enterDataArea(ctx, nav); err != nil {
		return VirtualDrive{}, fmt.Errorf("reading drive %s: %w", sel.path, err)
	}
	id := sel.path.DisplayID()

	name, err := readCell(ctx, nav, nameSelector(id), func(e Element) string { return e.Text })
	if err != nil {
		return VirtualDrive{}, err
	}
	html := func(e Element) string { return e.HTML }
	state, err := readCell(ctx, nav, stateSelector(id), html)
	if err != nil {
		return VirtualDrive{}, err
	}
	layout, err := readCell(ctx, nav, layoutSelector(id), html)
	if err != nil {
		return VirtualDrive{}, err
	}
	size, err := readCell(ctx, nav, sizeSelector(id), html)
	if err != nil {
		return VirtualDrive{}, err
	}

	drive := VirtualDrive{
		Path:         sel.path,
		TaskSelector: sel.selector,
		Name:         name,
		State:        ParseDriveState(state),
		StateText:    state,
		Layout:       layout,
		SizeDisplay:  size,
	}
	d.logger.Debug("Read virtual drive.",
		zap.String("name", drive.Name), zap.Stringer("path", drive.Path), zap.Stringer("state", drive.State))
	return drive, nil
}

// enterDataArea positions nav at body/da from the root.
func enterDataArea(ctx context.Context, nav *NavigationContext) error {
	nav.Reset()
	for _, frame := range []string{FrameBody, FrameDataArea} {
		if err := nav.Enter(ctx, frame); err != nil {
			return err
		}
	}
	return nil
}

func readCell(ctx context.Context, nav *NavigationContext, selector string, value func(Element) string) (string, error) {
	elements, err := nav.Query(ctx, selector)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", selector, err)
	}
	if len(elements) == 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingDriveAttribute, selector)
	}
	v := strings.TrimSpace(value(elements[0]))
	if v == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingDriveAttribute, selector)
	}
	return v, nil
}
