package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestCodePushingSinksSetToItsSoleUse(t *testing.T) {
	m := newTestModule(t)
	set := localSet(m, 0, i32Const(m, 1))
	filler := nop(m)
	get := localGet(m, 0, ir.ValueTypeI32)
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), set, filler, get)
	addFunc(m, nil, []ir.ValueType{ir.ValueTypeI32}, []ir.ValueType{ir.ValueTypeI32}, body)

	p := NewCodePushing()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, []ir.Handle{filler, set, get}, m.Arena.Get(body).Children)
}

func TestCodePushingLeavesMultiUseLocalAlone(t *testing.T) {
	m := newTestModule(t)
	set := localSet(m, 0, i32Const(m, 1))
	get1 := localGet(m, 0, ir.ValueTypeI32)
	get2 := localGet(m, 0, ir.ValueTypeI32)
	add := m.Arena.Alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeI32), BinaryOp: ir.AddI32, A: get1, B: get2})
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), set, add)
	addFunc(m, nil, []ir.ValueType{ir.ValueTypeI32}, []ir.ValueType{ir.ValueTypeI32}, body)

	p := NewCodePushing()
	changed, err := p.Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, []ir.Handle{set, add}, m.Arena.Get(body).Children)
}
