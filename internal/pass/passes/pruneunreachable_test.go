package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestPruneUnreachableFunctionsStubsUncalledFunction(t *testing.T) {
	m := newTestModule(t)

	exportedBody := block(m, ir.NoneHandle, nop(m))
	addFunc(m, nil, nil, nil, exportedBody)
	m.Exports = append(m.Exports, &ir.Export{Name: "main", Kind: ir.ExternFunc, Index: 0})

	deadBody := block(m, ir.NoneHandle, nop(m))
	addFunc(m, nil, nil, nil, deadBody)

	changed, err := (PruneUnreachableFunctions{}).Run(m)
	require.NoError(t, err)
	require.True(t, changed)

	deadBodyExpr := m.Arena.Get(deadBody)
	require.Len(t, deadBodyExpr.Children, 1)
	require.Equal(t, ir.KindUnreachable, m.Arena.Get(deadBodyExpr.Children[0]).Kind)

	require.Equal(t, exportedBody, m.Functions[0].Body)
}

func TestPruneUnreachableFunctionsKeepsCalledFunction(t *testing.T) {
	m := newTestModule(t)

	calleeBody := block(m, ir.NoneHandle, nop(m))
	addFunc(m, nil, nil, nil, calleeBody)

	call := m.Arena.Alloc(ir.Expr{Kind: ir.KindCall, Type: ir.NoneHandle, FuncIndex: 0})
	callerBody := block(m, ir.NoneHandle, call)
	addFunc(m, nil, nil, nil, callerBody)
	m.Exports = append(m.Exports, &ir.Export{Name: "main", Kind: ir.ExternFunc, Index: 1})

	changed, err := (PruneUnreachableFunctions{}).Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, calleeBody, m.Functions[0].Body)
	require.Len(t, m.Arena.Get(calleeBody).Children, 1)
	require.Equal(t, ir.KindNop, m.Arena.Get(m.Arena.Get(calleeBody).Children[0]).Kind)
}
