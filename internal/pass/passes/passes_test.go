package passes

import (
	"testing"

	"github.com/mavity/binaryen-fork/internal/ir"
)

// newTestModule returns an empty module with a fresh arena and type store,
// matching the construction style of internal/binary's codec_test.go.
func newTestModule(t *testing.T) *ir.Module {
	t.Helper()
	return ir.NewModule(ir.NewTypeStore())
}

// addFunc appends a function of signature (params)->(results) with the given
// locals and body to m, returning it and its index.
func addFunc(m *ir.Module, params, results, locals []ir.ValueType, body ir.Handle) (*ir.Function, int) {
	sig := m.Types.InternSignature(params, results)
	f := &ir.Function{Sig: sig, Body: body, ImportIdx: -1, Locals: locals}
	m.Functions = append(m.Functions, f)
	return f, len(m.Functions) - 1
}

func i32Const(m *ir.Module, v int32) ir.Handle {
	return m.Arena.Alloc(ir.Expr{Kind: ir.KindConst, Type: ir.BasicHandle(ir.ValueTypeI32), Lit: ir.Literal{I32: v}})
}

func localGet(m *ir.Module, idx uint32, t ir.ValueType) ir.Handle {
	return m.Arena.Alloc(ir.Expr{Kind: ir.KindLocalGet, Type: ir.BasicHandle(t), VarIndex: idx})
}

func localSet(m *ir.Module, idx uint32, value ir.Handle) ir.Handle {
	return m.Arena.Alloc(ir.Expr{Kind: ir.KindLocalSet, Type: ir.NoneHandle, VarIndex: idx, SetValue: value})
}

func block(m *ir.Module, t ir.TypeHandle, children ...ir.Handle) ir.Handle {
	return m.Arena.Alloc(ir.Expr{Kind: ir.KindBlock, Type: t, Label: -1, Children: children})
}

func nop(m *ir.Module) ir.Handle {
	return m.Arena.Alloc(ir.Expr{Kind: ir.KindNop, Type: ir.NoneHandle})
}

func ifExpr(m *ir.Module, t ir.TypeHandle, cond ir.Handle, then []ir.Handle, els []ir.Handle) ir.Handle {
	return m.Arena.Alloc(ir.Expr{Kind: ir.KindIf, Type: t, Cond: cond, Children: then, Else: els, HasElse: els != nil})
}
