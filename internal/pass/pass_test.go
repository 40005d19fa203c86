package pass

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

// recordingPass appends its own name to order each time it runs, and
// optionally returns a fixed result/error, for exercising Runner/RunToFixedPoint
// without depending on any real optimization pass.
type recordingPass struct {
	name    string
	order   *[]string
	changed bool
	err     error
	runs    int
	maxRuns int // 0 means always report changed as configured
}

func (p *recordingPass) Name() string { return p.name }

func (p *recordingPass) Run(m *ir.Module) (bool, error) {
	*p.order = append(*p.order, p.name)
	p.runs++
	if p.err != nil {
		return false, p.err
	}
	if p.maxRuns > 0 {
		return p.runs < p.maxRuns, nil
	}
	return p.changed, nil
}

func TestRunnerRunsPassesInOrder(t *testing.T) {
	var order []string
	m := ir.NewModule(ir.NewTypeStore())
	r := NewRunner([]Pass{
		&recordingPass{name: "a", order: &order},
		&recordingPass{name: "b", order: &order},
		&recordingPass{name: "c", order: &order},
	})
	require.NoError(t, r.Run(m))
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRunnerPropagatesPassError(t *testing.T) {
	var order []string
	m := ir.NewModule(ir.NewTypeStore())
	boom := errors.New("boom")
	r := NewRunner([]Pass{
		&recordingPass{name: "ok", order: &order},
		&recordingPass{name: "bad", order: &order, err: boom},
		&recordingPass{name: "never", order: &order},
	})
	err := r.Run(m)
	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"ok", "bad"}, order, "a pass after the error must never run")
}

func TestRunnerPanicsOnReentrantRun(t *testing.T) {
	m := ir.NewModule(ir.NewTypeStore())
	var self *Runner
	reentrant := &recordingPassFunc{f: func(*ir.Module) (bool, error) {
		return false, self.Run(m)
	}}
	self = NewRunner([]Pass{reentrant})
	require.Panics(t, func() { _ = self.Run(m) })
}

type recordingPassFunc struct {
	f func(*ir.Module) (bool, error)
}

func (p *recordingPassFunc) Name() string { return "reentrant" }
func (p *recordingPassFunc) Run(m *ir.Module) (bool, error) {
	return p.f(m)
}

func TestWithValidateAfterEachCatchesRegression(t *testing.T) {
	m := ir.NewModule(ir.NewTypeStore())
	// A pass that corrupts the module by pointing a function's body at a
	// nonexistent handle should be caught as a regression, not silently
	// accepted.
	corrupt := &corruptingPass{}
	r := NewRunner([]Pass{corrupt}, WithValidateAfterEach(true))
	err := r.Run(m)
	var regressionErr *RegressionError
	require.ErrorAs(t, err, &regressionErr)
	require.Equal(t, "corrupt", regressionErr.PassName)
}

// corruptingPass adds a function declared to return an i32 but whose body is
// an empty block, which validate.Module must reject ("empty body cannot
// produce declared result type").
type corruptingPass struct{}

func (corruptingPass) Name() string { return "corrupt" }
func (corruptingPass) Run(m *ir.Module) (bool, error) {
	sig := m.Types.InternSignature(nil, []ir.ValueType{ir.ValueTypeI32})
	body := m.Arena.Alloc(ir.Expr{Kind: ir.KindBlock, Type: ir.BasicHandle(ir.ValueTypeI32), Label: -1})
	m.Functions = append(m.Functions, &ir.Function{Sig: sig, Body: body, ImportIdx: -1})
	return true, nil
}

func TestRunToFixedPointStopsWhenNoChange(t *testing.T) {
	m := ir.NewModule(ir.NewTypeStore())
	var order []string
	p := &recordingPass{name: "shrinking", order: &order, maxRuns: 3}

	n, err := RunToFixedPoint(p, m, 10)
	require.NoError(t, err)
	require.Equal(t, 2, n, "two iterations reported a change before the third reported none")
	require.Len(t, order, 3)
}

func TestRunToFixedPointRespectsMaxIterations(t *testing.T) {
	m := ir.NewModule(ir.NewTypeStore())
	var order []string
	p := &recordingPass{name: "infinite", order: &order, changed: true}

	n, err := RunToFixedPoint(p, m, 5)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Len(t, order, 5)
}
