package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func store(m *ir.Module, ptr, value ir.Handle) ir.Handle {
	return m.Arena.Alloc(ir.Expr{Kind: ir.KindStore, Type: ir.NoneHandle, Access: ir.AccessI32, Offset: 0, Align: 2, Ptr: ptr, Store: value})
}

func TestMemoryOptimizationDeadensSupersededStore(t *testing.T) {
	m := newTestModule(t)
	ptrA := i32Const(m, 4)
	ptrB := i32Const(m, 4)
	first := store(m, ptrA, i32Const(m, 1))
	second := store(m, ptrB, i32Const(m, 2))
	body := block(m, ir.NoneHandle, first, second)
	addFunc(m, nil, nil, nil, body)

	p := NewMemoryOptimization()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.True(t, changed)

	firstExpr := m.Arena.Get(first)
	require.NotEqual(t, ir.KindStore, firstExpr.Kind)
	require.Equal(t, ir.KindStore, m.Arena.Get(second).Kind)
}

func TestMemoryOptimizationKeepsStoresToDifferentAddresses(t *testing.T) {
	m := newTestModule(t)
	first := store(m, i32Const(m, 4), i32Const(m, 1))
	second := store(m, i32Const(m, 8), i32Const(m, 2))
	body := block(m, ir.NoneHandle, first, second)
	addFunc(m, nil, nil, nil, body)

	p := NewMemoryOptimization()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, ir.KindStore, m.Arena.Get(first).Kind)
	require.Equal(t, ir.KindStore, m.Arena.Get(second).Kind)
}

func TestMemoryOptimizationDoesNotCollapseLoadDependentStore(t *testing.T) {
	m := newTestModule(t)
	ptr := i32Const(m, 4)
	first := store(m, ptr, i32Const(m, 1))
	load := m.Arena.Alloc(ir.Expr{Kind: ir.KindLoad, Type: ir.BasicHandle(ir.ValueTypeI32), Access: ir.AccessI32, Ptr: i32Const(m, 4)})
	second := store(m, i32Const(m, 4), load)
	body := block(m, ir.NoneHandle, first, second)
	addFunc(m, nil, nil, nil, body)

	p := NewMemoryOptimization()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.False(t, changed, "store(p, load(p)) must never justify deleting the preceding store")
	require.Equal(t, ir.KindStore, m.Arena.Get(first).Kind)
}
