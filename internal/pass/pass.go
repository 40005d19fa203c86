// Package pass defines the contract every optimization pass implements and
// the Runner that executes an ordered pass list over one module.
package pass

import (
	"fmt"

	"github.com/mavity/binaryen-fork/internal/ir"
	"github.com/mavity/binaryen-fork/internal/validate"
)

// Pass is a semantics-preserving transformation over a module. Run reports
// whether it changed anything, so the runner and bundle-level fixed-point
// helpers can tell "ran but declined" from "ran and rewrote". A pass that
// cannot legally transform anything returns changed == false, not an error:
// impossibility is a non-transformation, never a failure. Only a genuine
// internal invariant violation (corrupt IR mid-pass) returns an error.
type Pass interface {
	Name() string
	Run(m *ir.Module) (changed bool, err error)
}

// RegressionError is returned by Runner.Run when ValidateAfterEach is set
// and a pass leaves the module in a state the validator rejects, even though
// the module validated before that pass ran. It names the offending pass so
// the caller does not have to bisect the pass list by hand.
type RegressionError struct {
	PassName string
	Err      error
}

func (e *RegressionError) Error() string {
	return fmt.Sprintf("pass: %q introduced a validation regression: %v", e.PassName, e.Err)
}

func (e *RegressionError) Unwrap() error { return e.Err }

// Runner holds an ordered pass list and executes it sequentially. Pass order
// is exactly the order passes were installed; the runner never reorders,
// deduplicates, or parallelizes passes. Scheduling is single-threaded per
// module; different modules may be optimized on different goroutines.
type Runner struct {
	passes            []Pass
	validateAfterEach bool
	running           bool
}

// RunnerOption configures a Runner at construction time.
type RunnerOption func(*Runner)

// WithValidateAfterEach causes the runner to invoke validate.Module between
// every pass, aborting with a *RegressionError that names the offending pass
// the moment a previously-valid module stops validating.
func WithValidateAfterEach(enabled bool) RunnerOption {
	return func(r *Runner) { r.validateAfterEach = enabled }
}

// NewRunner returns a Runner executing passes in the given order.
func NewRunner(passes []Pass, opts ...RunnerOption) *Runner {
	r := &Runner{passes: passes}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Passes returns the runner's ordered pass list.
func (r *Runner) Passes() []Pass { return r.passes }

// Run executes every installed pass, in order, against m. If
// WithValidateAfterEach is set, it validates once before the first pass (to
// establish a baseline: a module that was already invalid is reported as an
// ordinary validation error, not a regression) and again after every pass.
//
// Run must not be re-entered concurrently on the same Runner: a pass must
// never invoke the runner recursively on the module it is itself being run
// against.
func (r *Runner) Run(m *ir.Module) error {
	if r.running {
		panic("pass: Runner.Run re-entered while already running")
	}
	r.running = true
	defer func() { r.running = false }()

	if r.validateAfterEach {
		if err := validate.Module(m); err != nil {
			return fmt.Errorf("pass: module failed to validate before any pass ran: %w", err)
		}
	}

	for _, p := range r.passes {
		if _, err := p.Run(m); err != nil {
			return fmt.Errorf("pass: %q: %w", p.Name(), err)
		}
		if r.validateAfterEach {
			if err := validate.Module(m); err != nil {
				return &RegressionError{PassName: p.Name(), Err: err}
			}
		}
	}
	return nil
}

// RunToFixedPoint repeatedly runs p against m until it reports no further
// change, or until maxIterations is reached, so a non-converging pass still
// terminates. It returns the number of iterations that produced a change.
func RunToFixedPoint(p Pass, m *ir.Module, maxIterations int) (int, error) {
	n := 0
	for i := 0; i < maxIterations; i++ {
		changed, err := p.Run(m)
		if err != nil {
			return n, fmt.Errorf("pass: %q: %w", p.Name(), err)
		}
		if !changed {
			return n, nil
		}
		n++
	}
	return n, nil
}
