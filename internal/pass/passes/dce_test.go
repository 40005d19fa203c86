package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestDCEPrunesAfterReturn(t *testing.T) {
	m := newTestModule(t)
	ret := m.Arena.Alloc(ir.Expr{Kind: ir.KindReturn, Type: ir.NoneHandle})
	dead := nop(m)
	body := block(m, ir.NoneHandle, ret, dead)
	addFunc(m, nil, nil, nil, body)

	changed, err := (DCE{}).Run(m)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, []ir.Handle{ret}, m.Arena.Get(body).Children)
}

func TestDCELeavesReachableCodeAlone(t *testing.T) {
	m := newTestModule(t)
	a := nop(m)
	b := nop(m)
	body := block(m, ir.NoneHandle, a, b)
	addFunc(m, nil, nil, nil, body)

	changed, err := (DCE{}).Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, []ir.Handle{a, b}, m.Arena.Get(body).Children)
}

func TestDCEIsIdempotent(t *testing.T) {
	m := newTestModule(t)
	unreachable := m.Arena.Alloc(ir.Expr{Kind: ir.KindUnreachable, Type: ir.NoneHandle})
	dead := nop(m)
	body := block(m, ir.NoneHandle, unreachable, dead)
	addFunc(m, nil, nil, nil, body)

	_, err := (DCE{}).Run(m)
	require.NoError(t, err)
	changed, err := (DCE{}).Run(m)
	require.NoError(t, err)
	require.False(t, changed)
}
