package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestIdentityFoldsAddZero(t *testing.T) {
	m := newTestModule(t)
	local0 := localGet(m, 0, ir.ValueTypeI32)
	zero := i32Const(m, 0)
	add := m.Arena.Alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeI32), BinaryOp: ir.AddI32, A: local0, B: zero})
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), add)
	addFunc(m, []ir.ValueType{ir.ValueTypeI32}, []ir.ValueType{ir.ValueTypeI32}, nil, body)

	changed, err := (Identity{}).Run(m)
	require.NoError(t, err)
	require.True(t, changed)

	got := m.Arena.Get(body).Children[0]
	require.Equal(t, local0, got)
}

func TestIdentityDoesNotFoldFloatAdd(t *testing.T) {
	m := newTestModule(t)
	local0 := m.Arena.Alloc(ir.Expr{Kind: ir.KindLocalGet, Type: ir.BasicHandle(ir.ValueTypeF32), VarIndex: 0})
	zero := m.Arena.Alloc(ir.Expr{Kind: ir.KindConst, Type: ir.BasicHandle(ir.ValueTypeF32), Lit: ir.Literal{F32: 0}})
	add := m.Arena.Alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeF32), BinaryOp: ir.AddF32, A: local0, B: zero})
	body := block(m, ir.BasicHandle(ir.ValueTypeF32), add)
	addFunc(m, []ir.ValueType{ir.ValueTypeF32}, []ir.ValueType{ir.ValueTypeF32}, nil, body)

	changed, err := (Identity{}).Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, add, m.Arena.Get(body).Children[0])
}

func TestIdentityFoldsMulOne(t *testing.T) {
	m := newTestModule(t)
	local0 := localGet(m, 0, ir.ValueTypeI32)
	one := i32Const(m, 1)
	mul := m.Arena.Alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeI32), BinaryOp: ir.MulI32, A: one, B: local0})
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), mul)
	addFunc(m, []ir.ValueType{ir.ValueTypeI32}, []ir.ValueType{ir.ValueTypeI32}, nil, body)

	changed, err := (Identity{}).Run(m)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, local0, m.Arena.Get(body).Children[0])
}
