package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestLICMHoistsInvariantSet(t *testing.T) {
	m := newTestModule(t)
	invariantVal := localGet(m, 0, ir.ValueTypeI32)
	set := localSet(m, 1, invariantVal)
	useDrop := m.Arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: localGet(m, 1, ir.ValueTypeI32)})
	loop := m.Arena.Alloc(ir.Expr{Kind: ir.KindLoop, Type: ir.NoneHandle, Label: -1, Children: []ir.Handle{set, useDrop}})
	body := block(m, ir.NoneHandle, loop)
	addFunc(m, nil, nil, []ir.ValueType{ir.ValueTypeI32, ir.ValueTypeI32}, body)

	p := NewLICM()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.True(t, changed)

	require.Equal(t, []ir.Handle{set, loop}, m.Arena.Get(body).Children)
	require.Equal(t, []ir.Handle{useDrop}, m.Arena.Get(loop).Children)
}

func TestLICMDoesNotHoistSetAfterConditionalBranch(t *testing.T) {
	// loop { br_if 0 (local.get 2); local.set 1 (local.get 0); drop(local.get 1) }
	// On an iteration where local 2 is true, br_if skips the set entirely
	// (continuing the loop); hoisting the set ahead of the loop would run
	// it unconditionally on every iteration instead.
	m := newTestModule(t)
	brIf := m.Arena.Alloc(ir.Expr{Kind: ir.KindBreak, Type: ir.NoneHandle, Targets: []int32{0}, Cond: localGet(m, 2, ir.ValueTypeI32)})
	invariantVal := localGet(m, 0, ir.ValueTypeI32)
	set := localSet(m, 1, invariantVal)
	useDrop := m.Arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: localGet(m, 1, ir.ValueTypeI32)})
	loop := m.Arena.Alloc(ir.Expr{Kind: ir.KindLoop, Type: ir.NoneHandle, Label: -1, Children: []ir.Handle{brIf, set, useDrop}})
	body := block(m, ir.NoneHandle, loop)
	addFunc(m, nil, nil, []ir.ValueType{ir.ValueTypeI32, ir.ValueTypeI32, ir.ValueTypeI32}, body)

	p := NewLICM()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, []ir.Handle{loop}, m.Arena.Get(body).Children)
	require.Equal(t, []ir.Handle{brIf, set, useDrop}, m.Arena.Get(loop).Children)
}

func TestLICMDoesNotHoistSetWrittenToInLoop(t *testing.T) {
	m := newTestModule(t)
	// local 1's "invariant" value actually reads local 0, which the loop
	// itself also writes, so it must stay put.
	set := localSet(m, 1, localGet(m, 0, ir.ValueTypeI32))
	writeLocal0 := localSet(m, 0, i32Const(m, 1))
	loop := m.Arena.Alloc(ir.Expr{Kind: ir.KindLoop, Type: ir.NoneHandle, Label: -1, Children: []ir.Handle{set, writeLocal0}})
	body := block(m, ir.NoneHandle, loop)
	addFunc(m, nil, nil, []ir.ValueType{ir.ValueTypeI32, ir.ValueTypeI32}, body)

	p := NewLICM()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, []ir.Handle{loop}, m.Arena.Get(body).Children)
	require.Equal(t, []ir.Handle{set, writeLocal0}, m.Arena.Get(loop).Children)
}
