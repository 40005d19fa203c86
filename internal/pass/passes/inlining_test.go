package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestInliningReplacesUniqueCallSite(t *testing.T) {
	m := newTestModule(t)

	// callee: (i32) -> i32 { local.get 0 + const 1 }
	calleeAdd := m.Arena.Alloc(ir.Expr{
		Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeI32), BinaryOp: ir.AddI32,
		A: localGet(m, 0, ir.ValueTypeI32), B: i32Const(m, 1),
	})
	calleeBody := block(m, ir.BasicHandle(ir.ValueTypeI32), calleeAdd)
	addFunc(m, []ir.ValueType{ir.ValueTypeI32}, []ir.ValueType{ir.ValueTypeI32}, nil, calleeBody)

	// caller: () -> i32 { call 0(const 5) }
	call := m.Arena.Alloc(ir.Expr{
		Kind: ir.KindCall, Type: ir.BasicHandle(ir.ValueTypeI32), FuncIndex: 0,
		Args: []ir.Handle{i32Const(m, 5)},
	})
	callerBody := block(m, ir.BasicHandle(ir.ValueTypeI32), call)
	caller, _ := addFunc(m, nil, []ir.ValueType{ir.ValueTypeI32}, nil, callerBody)
	m.Exports = append(m.Exports, &ir.Export{Name: "caller", Kind: ir.ExternFunc, Index: 1})

	changed, err := (Inlining{}).Run(m)
	require.NoError(t, err)
	require.True(t, changed)

	replaced := m.Arena.Get(m.Arena.Get(callerBody).Children[0])
	require.Equal(t, ir.KindBlock, replaced.Kind)
	require.Len(t, replaced.Children, 2)

	argBind := m.Arena.Get(replaced.Children[0])
	require.Equal(t, ir.KindLocalSet, argBind.Kind)

	copiedAdd := m.Arena.Get(replaced.Children[1])
	require.Equal(t, ir.KindBinary, copiedAdd.Kind)
	require.NotEqual(t, calleeAdd, replaced.Children[1], "inlined body must be a fresh copy, not the callee's own nodes")

	require.Len(t, caller.Locals, 1, "the inlined argument gets a fresh local slot")
}

func TestInliningSkipsMultiCallSiteFunction(t *testing.T) {
	m := newTestModule(t)

	calleeBody := block(m, ir.NoneHandle, nop(m))
	addFunc(m, nil, nil, nil, calleeBody)

	call1 := m.Arena.Alloc(ir.Expr{Kind: ir.KindCall, Type: ir.NoneHandle, FuncIndex: 0})
	call2 := m.Arena.Alloc(ir.Expr{Kind: ir.KindCall, Type: ir.NoneHandle, FuncIndex: 0})
	callerBody := block(m, ir.NoneHandle, call1, call2)
	addFunc(m, nil, nil, nil, callerBody)
	m.Exports = append(m.Exports, &ir.Export{Name: "caller", Kind: ir.ExternFunc, Index: 1})

	changed, err := (Inlining{}).Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, ir.KindCall, m.Arena.Get(m.Arena.Get(callerBody).Children[0]).Kind)
	require.Equal(t, ir.KindCall, m.Arena.Get(m.Arena.Get(callerBody).Children[1]).Kind)
}
