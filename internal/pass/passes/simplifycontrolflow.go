package passes

import "github.com/mavity/binaryen-fork/internal/ir"

// SimplifyControlFlow removes empty block/if/loop constructs and folds
// `if c then X else X` (byte-for-byte identical arms) down to evaluating c
// once for its side effects followed by a single copy of X. Both rewrites
// keep the condition's evaluation (and any side
// effects in it) intact; they only eliminate redundant control structure
// around it.
type SimplifyControlFlow struct{}

func (SimplifyControlFlow) Name() string { return "simplify-control-flow" }

func (SimplifyControlFlow) Run(m *ir.Module) (bool, error) {
	changed := false
	ir.WalkFunctionBodies(m, func(arena *ir.Arena, slot *ir.Handle) {
		e := arena.Get(*slot)
		switch e.Kind {
		case ir.KindBlock, ir.KindLoop:
			if len(e.Children) == 0 && e.Type == ir.NoneHandle {
				*slot = arena.Alloc(ir.Expr{Kind: ir.KindNop, Type: ir.NoneHandle})
				changed = true
			}
		case ir.KindIf:
			if emptyBody(e.Children) && (!e.HasElse || emptyBody(e.Else)) && e.Type == ir.NoneHandle {
				*slot = arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: e.Cond})
				changed = true
				return
			}
			if e.HasElse && exprListEqual(arena, e.Children, e.Else) && len(e.Children) > 0 {
				drop := arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: e.Cond})
				children := append([]ir.Handle{drop}, e.Children...)
				*slot = arena.Alloc(ir.Expr{Kind: ir.KindBlock, Type: e.Type, Label: -1, Children: children})
				changed = true
			}
		}
	})
	return changed, nil
}

func emptyBody(list []ir.Handle) bool { return len(list) == 0 }

func exprListEqual(arena *ir.Arena, a, b []ir.Handle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !exprEqual(arena, a[i], b[i]) {
			return false
		}
	}
	return true
}

// exprEqual reports whether ha and hb denote structurally identical
// subtrees: same Kind, same Type, and the same value in every field that
// Kind makes meaningful, recursing into operand handles. Two distinct
// arena allocations with identical content compare equal.
func exprEqual(arena *ir.Arena, ha, hb ir.Handle) bool {
	if ha.IsNil() || hb.IsNil() {
		return ha.IsNil() == hb.IsNil()
	}
	a, b := arena.Get(ha), arena.Get(hb)
	if a.Kind != b.Kind || a.Type != b.Type {
		return false
	}
	switch a.Kind {
	case ir.KindNop, ir.KindUnreachable:
		return true
	case ir.KindConst:
		return a.Lit == b.Lit
	case ir.KindBlock, ir.KindLoop:
		return exprListEqual(arena, a.Children, b.Children)
	case ir.KindIf:
		return exprEqual(arena, a.Cond, b.Cond) &&
			exprListEqual(arena, a.Children, b.Children) &&
			a.HasElse == b.HasElse &&
			exprListEqual(arena, a.Else, b.Else)
	case ir.KindBreak:
		return int32Equal(a.Targets, b.Targets) && exprEqual(arena, a.Cond, b.Cond) && exprEqual(arena, a.Value, b.Value)
	case ir.KindBrTable:
		return int32Equal(a.Targets, b.Targets) && a.Default == b.Default &&
			exprEqual(arena, a.Cond, b.Cond) && exprEqual(arena, a.Value, b.Value)
	case ir.KindReturn:
		return exprEqual(arena, a.Value, b.Value)
	case ir.KindCall:
		return a.FuncIndex == b.FuncIndex && exprListEqual(arena, a.Args, b.Args)
	case ir.KindCallIndirect:
		return a.TableIndex == b.TableIndex && a.Sig == b.Sig &&
			exprEqual(arena, a.IndexExpr, b.IndexExpr) && exprListEqual(arena, a.Args, b.Args)
	case ir.KindLocalGet:
		return a.VarIndex == b.VarIndex
	case ir.KindLocalSet, ir.KindLocalTee:
		return a.VarIndex == b.VarIndex && exprEqual(arena, a.SetValue, b.SetValue)
	case ir.KindGlobalGet:
		return a.VarIndex == b.VarIndex
	case ir.KindGlobalSet:
		return a.VarIndex == b.VarIndex && exprEqual(arena, a.SetValue, b.SetValue)
	case ir.KindLoad:
		return a.Access == b.Access && a.Align == b.Align && a.Offset == b.Offset && exprEqual(arena, a.Ptr, b.Ptr)
	case ir.KindStore:
		return a.Access == b.Access && a.Align == b.Align && a.Offset == b.Offset &&
			exprEqual(arena, a.Ptr, b.Ptr) && exprEqual(arena, a.Store, b.Store)
	case ir.KindUnary:
		return a.UnaryOp == b.UnaryOp && exprEqual(arena, a.A, b.A)
	case ir.KindBinary:
		return a.BinaryOp == b.BinaryOp && exprEqual(arena, a.A, b.A) && exprEqual(arena, a.B, b.B)
	case ir.KindSelect:
		return exprEqual(arena, a.SelA, b.SelA) && exprEqual(arena, a.SelB, b.SelB) && exprEqual(arena, a.SelCond, b.SelCond)
	case ir.KindDrop:
		return exprEqual(arena, a.Operand, b.Operand)
	case ir.KindMemorySize:
		return true
	case ir.KindMemoryGrow:
		return exprEqual(arena, a.Operand, b.Operand)
	case ir.KindMemoryCopy, ir.KindMemoryFill:
		return exprEqual(arena, a.Dst, b.Dst) && exprEqual(arena, a.Src, b.Src) && exprEqual(arena, a.Len, b.Len)
	}
	return false
}

func int32Equal(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
