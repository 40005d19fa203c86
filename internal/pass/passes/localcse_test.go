package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func buildIdenticalAdd(m *ir.Module) ir.Handle {
	a := i32Const(m, 3)
	b := i32Const(m, 4)
	return m.Arena.Alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeI32), BinaryOp: ir.AddI32, A: a, B: b})
}

func TestLocalCSEReusesIdenticalPureSubexpression(t *testing.T) {
	m := newTestModule(t)
	add1 := buildIdenticalAdd(m)
	add2 := buildIdenticalAdd(m)
	drop1 := m.Arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: add1})
	drop2 := m.Arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: add2})
	body := block(m, ir.NoneHandle, drop1, drop2)
	f, _ := addFunc(m, nil, nil, nil, body)

	p := NewLocalCSE()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.True(t, changed)
	require.Len(t, f.Locals, 1, "a fresh local should be introduced to hold the shared value")

	firstOperand := m.Arena.Get(m.Arena.Get(drop1).Operand)
	require.Equal(t, ir.KindLocalTee, firstOperand.Kind)

	secondOperand := m.Arena.Get(m.Arena.Get(drop2).Operand)
	require.Equal(t, ir.KindLocalGet, secondOperand.Kind)
	require.Equal(t, firstOperand.VarIndex, secondOperand.VarIndex)
}

func TestLocalCSEThreeOccurrencesShareOneLocal(t *testing.T) {
	m := newTestModule(t)
	add1 := buildIdenticalAdd(m)
	add2 := buildIdenticalAdd(m)
	add3 := buildIdenticalAdd(m)
	drop1 := m.Arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: add1})
	drop2 := m.Arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: add2})
	drop3 := m.Arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: add3})
	body := block(m, ir.NoneHandle, drop1, drop2, drop3)
	f, _ := addFunc(m, nil, nil, nil, body)

	p := NewLocalCSE()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.True(t, changed)
	require.Len(t, f.Locals, 1, "every later occurrence must reuse the first local, not mint its own")

	firstOperand := m.Arena.Get(m.Arena.Get(drop1).Operand)
	require.Equal(t, ir.KindLocalTee, firstOperand.Kind)

	for _, d := range []ir.Handle{drop2, drop3} {
		got := m.Arena.Get(m.Arena.Get(d).Operand)
		require.Equal(t, ir.KindLocalGet, got.Kind)
		require.Equal(t, firstOperand.VarIndex, got.VarIndex)
	}
}

func TestLocalCSEDoesNotMergeDifferentSubexpressions(t *testing.T) {
	m := newTestModule(t)
	add1 := buildIdenticalAdd(m)
	a := i32Const(m, 100)
	b := i32Const(m, 200)
	add2 := m.Arena.Alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeI32), BinaryOp: ir.AddI32, A: a, B: b})
	drop1 := m.Arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: add1})
	drop2 := m.Arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: add2})
	body := block(m, ir.NoneHandle, drop1, drop2)
	f, _ := addFunc(m, nil, nil, nil, body)

	p := NewLocalCSE()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Empty(t, f.Locals)
	require.Equal(t, ir.KindBinary, m.Arena.Get(m.Arena.Get(drop1).Operand).Kind)
	require.Equal(t, ir.KindBinary, m.Arena.Get(m.Arena.Get(drop2).Operand).Kind)
}
