package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestPrecomputeFoldsConstBinary(t *testing.T) {
	m := newTestModule(t)
	a := i32Const(m, 3)
	b := i32Const(m, 4)
	add := m.Arena.Alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeI32), BinaryOp: ir.AddI32, A: a, B: b})
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), add)
	addFunc(m, nil, []ir.ValueType{ir.ValueTypeI32}, nil, body)

	p := NewPrecompute()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.True(t, changed)

	got := m.Arena.Get(m.Arena.Get(body).Children[0])
	require.Equal(t, ir.KindConst, got.Kind)
	require.Equal(t, int32(7), got.Lit.I32)
}

func TestPrecomputeFoldsUnary(t *testing.T) {
	m := newTestModule(t)
	a := i32Const(m, 0)
	eqz := m.Arena.Alloc(ir.Expr{Kind: ir.KindUnary, Type: ir.BasicHandle(ir.ValueTypeI32), UnaryOp: ir.EqzI32, A: a})
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), eqz)
	addFunc(m, nil, []ir.ValueType{ir.ValueTypeI32}, nil, body)

	p := NewPrecompute()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.True(t, changed)

	got := m.Arena.Get(m.Arena.Get(body).Children[0])
	require.Equal(t, ir.KindConst, got.Kind)
	require.Equal(t, int32(1), got.Lit.I32)
}

func TestPrecomputeFoldsDeepConstChain(t *testing.T) {
	m := newTestModule(t)
	sum := i32Const(m, 0)
	for i := 0; i < 10; i++ {
		sum = m.Arena.Alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeI32), BinaryOp: ir.AddI32, A: sum, B: i32Const(m, 0)})
	}
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), sum)
	addFunc(m, nil, []ir.ValueType{ir.ValueTypeI32}, nil, body)

	// One post-order sweep folds the whole chain bottom-up.
	p := NewPrecompute()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.True(t, changed)

	got := m.Arena.Get(m.Arena.Get(body).Children[0])
	require.Equal(t, ir.KindConst, got.Kind)
	require.Equal(t, int32(0), got.Lit.I32)

	// And a second application finds nothing left to do.
	changed, err = p.Run(m)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestPrecomputeDoesNotFoldNonConstOperand(t *testing.T) {
	m := newTestModule(t)
	local0 := localGet(m, 0, ir.ValueTypeI32)
	b := i32Const(m, 4)
	add := m.Arena.Alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeI32), BinaryOp: ir.AddI32, A: local0, B: b})
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), add)
	addFunc(m, []ir.ValueType{ir.ValueTypeI32}, []ir.ValueType{ir.ValueTypeI32}, nil, body)

	p := NewPrecompute()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, add, m.Arena.Get(body).Children[0])
}

func TestPrecomputeDoesNotFoldDivision(t *testing.T) {
	m := newTestModule(t)
	a := i32Const(m, 10)
	b := i32Const(m, 2)
	div := m.Arena.Alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeI32), BinaryOp: ir.DivSI32, A: a, B: b})
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), div)
	addFunc(m, nil, []ir.ValueType{ir.ValueTypeI32}, nil, body)

	p := NewPrecompute()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.False(t, changed, "trapping operators must never be folded")
}
