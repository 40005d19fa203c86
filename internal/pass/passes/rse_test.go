package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestRSERemovesNeverReadSet(t *testing.T) {
	m := newTestModule(t)
	set := localSet(m, 0, i32Const(m, 5))
	body := block(m, ir.NoneHandle, set)
	addFunc(m, nil, nil, []ir.ValueType{ir.ValueTypeI32}, body)

	changed, err := (RSE{}).Run(m)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, ir.KindNop, m.Arena.Get(set).Kind)
}

func TestRSEKeepsSetReadOnlyInIfCond(t *testing.T) {
	m := newTestModule(t)
	set := localSet(m, 0, i32Const(m, 5))
	cond := localGet(m, 0, ir.ValueTypeI32)
	iff := ifExpr(m, ir.NoneHandle, cond, []ir.Handle{nop(m)}, []ir.Handle{nop(m)})
	body := block(m, ir.NoneHandle, set, iff)
	addFunc(m, nil, nil, []ir.ValueType{ir.ValueTypeI32}, body)

	changed, err := (RSE{}).Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, ir.KindLocalSet, m.Arena.Get(set).Kind)
}

func TestRSEKeepsSetThatIsLaterRead(t *testing.T) {
	m := newTestModule(t)
	set := localSet(m, 0, i32Const(m, 5))
	get := localGet(m, 0, ir.ValueTypeI32)
	body := block(m, ir.BasicHandle(ir.ValueTypeI32), set, get)
	addFunc(m, nil, []ir.ValueType{ir.ValueTypeI32}, []ir.ValueType{ir.ValueTypeI32}, body)

	changed, err := (RSE{}).Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, ir.KindLocalSet, m.Arena.Get(set).Kind)
}
