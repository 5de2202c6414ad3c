// internal/orchestrator/steps.go
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/raidcc/internal/omsa"
)

// Precondition is a named suspension point awaited before a step runs.
type Precondition interface {
	Await(ctx context.Context, nav *omsa.NavigationContext) error
	String() string
}

// ElementPresent waits until Selector matches inside the frame path Scope.
// The navigation context is left at Scope.
type ElementPresent struct {
	Scope    omsa.Scope
	Selector string
}

func (p ElementPresent) Await(ctx context.Context, nav *omsa.NavigationContext) error {
	nav.Reset()
	for _, frame := range p.Scope {
		if err := nav.Enter(ctx, frame); err != nil {
			return err
		}
	}
	return nav.WaitElement(ctx, p.Selector)
}

func (p ElementPresent) String() string {
	return fmt.Sprintf("ElementPresent(%s %s)", p.Scope, p.Selector)
}

// Elapsed waits for a fixed delay. It also paces drive discovery.
type Elapsed time.Duration

func (e Elapsed) Await(ctx context.Context, _ *omsa.NavigationContext) error {
	return e.wait(ctx)
}

// Pacer adapts e to omsa.Pacer.
func (e Elapsed) Pacer() omsa.Pacer { return omsa.PacerFunc(e.wait) }

func (e Elapsed) wait(ctx context.Context) error {
	if e <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(e))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e Elapsed) String() string { return fmt.Sprintf("Elapsed(%s)", time.Duration(e)) }

// step is one entry of the run's explicit step list.
type step struct {
	name string
	// pre is awaited before run; nil means the step can start right away.
	pre Precondition
	run func(ctx context.Context, st *runState) error
}

// StepError reports which step of a run failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }
