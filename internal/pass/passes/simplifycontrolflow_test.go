package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestSimplifyControlFlowReplacesEmptyBlockWithNop(t *testing.T) {
	m := newTestModule(t)
	empty := block(m, ir.NoneHandle)
	body := block(m, ir.NoneHandle, empty)
	addFunc(m, nil, nil, nil, body)

	changed, err := (SimplifyControlFlow{}).Run(m)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, ir.KindNop, m.Arena.Get(m.Arena.Get(body).Children[0]).Kind)
}

func TestSimplifyControlFlowReplacesEmptyIfWithDrop(t *testing.T) {
	m := newTestModule(t)
	cond := i32Const(m, 1)
	ifExpr := m.Arena.Alloc(ir.Expr{Kind: ir.KindIf, Type: ir.NoneHandle, Cond: cond})
	body := block(m, ir.NoneHandle, ifExpr)
	addFunc(m, nil, nil, nil, body)

	changed, err := (SimplifyControlFlow{}).Run(m)
	require.NoError(t, err)
	require.True(t, changed)

	got := m.Arena.Get(m.Arena.Get(body).Children[0])
	require.Equal(t, ir.KindDrop, got.Kind)
	require.Equal(t, cond, got.Operand)
}

func TestSimplifyControlFlowFoldsIdenticalArms(t *testing.T) {
	m := newTestModule(t)
	cond := i32Const(m, 1)
	thenArm := i32Const(m, 9)
	elseArm := i32Const(m, 9)
	ifExpr := m.Arena.Alloc(ir.Expr{
		Kind: ir.KindIf, Type: ir.BasicHandle(ir.ValueTypeI32), Cond: cond,
		Children: []ir.Handle{thenArm}, HasElse: true, Else: []ir.Handle{elseArm},
	})
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), ifExpr)
	addFunc(m, nil, []ir.ValueType{ir.ValueTypeI32}, nil, body)

	changed, err := (SimplifyControlFlow{}).Run(m)
	require.NoError(t, err)
	require.True(t, changed)

	got := m.Arena.Get(m.Arena.Get(body).Children[0])
	require.Equal(t, ir.KindBlock, got.Kind)
	require.Len(t, got.Children, 2)
	require.Equal(t, ir.KindDrop, m.Arena.Get(got.Children[0]).Kind)
}

func TestSimplifyControlFlowKeepsDifferentArms(t *testing.T) {
	m := newTestModule(t)
	cond := i32Const(m, 1)
	thenArm := i32Const(m, 9)
	elseArm := i32Const(m, 10)
	ifExpr := m.Arena.Alloc(ir.Expr{
		Kind: ir.KindIf, Type: ir.BasicHandle(ir.ValueTypeI32), Cond: cond,
		Children: []ir.Handle{thenArm}, HasElse: true, Else: []ir.Handle{elseArm},
	})
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), ifExpr)
	addFunc(m, nil, []ir.ValueType{ir.ValueTypeI32}, nil, body)

	changed, err := (SimplifyControlFlow{}).Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, ifExpr, m.Arena.Get(body).Children[0])
}
