package passes

import "github.com/mavity/binaryen-fork/internal/ir"

// Inlining replaces a call with a copy of the callee's body when the
// callee has exactly one call site in the whole module, is never exported,
// is never named by a table element segment, is not the start function,
// and contains no `return` anywhere in its body. It earns its keep once
// local-cse and code-pushing can no longer see through an unnecessary call
// boundary.
//
// Declining any callee with a `return` avoids the one piece of control-flow
// surgery a single-call-site inliner would otherwise need (turning an
// early return into a branch to the call site's continuation): every
// eligible callee's value is simply whatever its body's last expression
// evaluates to, exactly the shape a block already has.
//
// The callee's parameters and locals get fresh slots appended to the
// caller's local section, offset by however many the caller already had;
// the inlined body is a direct, depth-preserving splice (it keeps exactly
// the same single-block nesting the callee's own body had, so every
// relative branch depth inside it is still correct without renumbering).
type Inlining struct{}

func (Inlining) Name() string { return "inlining" }

func (Inlining) Run(m *ir.Module) (bool, error) {
	exported := make(map[int]bool)
	for _, exp := range m.Exports {
		if exp.Kind == ir.ExternFunc {
			exported[int(exp.Index)] = true
		}
	}
	addressTaken := make(map[int]bool)
	for _, t := range m.Tables {
		for _, el := range t.Elements {
			for _, fi := range el.FuncIndices {
				addressTaken[int(fi)] = true
			}
		}
	}

	callCount := make(map[int]int)
	hasReturn := make(map[int]bool)
	for idx, f := range m.Functions {
		if f.IsImported() || f.Body.IsNil() {
			continue
		}
		idx := idx
		ir.Pre(m.Arena, &f.Body, func(arena *ir.Arena, slot *ir.Handle) {
			switch e := arena.Get(*slot); e.Kind {
			case ir.KindCall:
				callCount[int(e.FuncIndex)]++
			case ir.KindReturn:
				hasReturn[idx] = true
			}
		})
	}

	eligible := func(idx int) bool {
		if idx < 0 || idx >= len(m.Functions) {
			return false
		}
		f := m.Functions[idx]
		if f.IsImported() || f.Body.IsNil() {
			return false
		}
		if exported[idx] || addressTaken[idx] || hasReturn[idx] {
			return false
		}
		if m.Start != nil && int(*m.Start) == idx {
			return false
		}
		return callCount[idx] == 1
	}

	changed := false
	for callerIdx, caller := range m.Functions {
		if caller.IsImported() || caller.Body.IsNil() {
			continue
		}
		callerIdx := callerIdx
		caller := caller
		ir.Pre(m.Arena, &caller.Body, func(arena *ir.Arena, slot *ir.Handle) {
			e := arena.Get(*slot)
			if e.Kind != ir.KindCall {
				return
			}
			calleeIdx := int(e.FuncIndex)
			if calleeIdx == callerIdx || !eligible(calleeIdx) {
				return
			}
			callee := m.Functions[calleeIdx]
			sig, _ := m.Types.LookupSignature(callee.Sig)
			*slot = inlineCall(m, caller, arena, e.Args, callee, sig)
			changed = true
		})
	}
	return changed, nil
}

func inlineCall(m *ir.Module, caller *ir.Function, arena *ir.Arena, args []ir.Handle, callee *ir.Function, sig ir.Signature) ir.Handle {
	callerSig, _ := m.Types.LookupSignature(caller.Sig)
	base := uint32(len(callerSig.Params)) + uint32(len(caller.Locals))

	caller.Locals = append(caller.Locals, sig.Params...)
	caller.Locals = append(caller.Locals, callee.Locals...)

	off := func(calleeIdx uint32) uint32 { return base + calleeIdx }

	stmts := make([]ir.Handle, 0, len(args)+4)
	for i, a := range args {
		stmts = append(stmts, arena.Alloc(ir.Expr{Kind: ir.KindLocalSet, VarIndex: off(uint32(i)), SetValue: a}))
	}

	bodyCopy := deepCopyRewrite(arena, callee.Body, off)
	stmts = append(stmts, arena.Get(bodyCopy).Children...)

	resultType := ir.NoneHandle
	if len(sig.Results) > 0 {
		resultType = ir.BasicHandle(sig.Results[0])
	}
	return arena.Alloc(ir.Expr{Kind: ir.KindBlock, Type: resultType, Label: -1, Children: stmts})
}

// deepCopyRewrite clones h and every descendant into fresh arena
// allocations, renumbering every local.get/set/tee index through off. It is
// a generic field-by-field clone rather than a Kind-specific one: every
// Handle-typed field is copied through deepCopyRewrite regardless of
// whether e.Kind actually uses it (an irrelevant field is always the nil
// handle, which deepCopyRewrite maps straight back to nil).
func deepCopyRewrite(arena *ir.Arena, h ir.Handle, off func(uint32) uint32) ir.Handle {
	if h.IsNil() {
		return ir.Handle(0)
	}
	e := *arena.Get(h)

	switch e.Kind {
	case ir.KindLocalGet, ir.KindLocalSet, ir.KindLocalTee:
		e.VarIndex = off(e.VarIndex)
	}

	e.Children = deepCopyList(arena, e.Children, off)
	e.Else = deepCopyList(arena, e.Else, off)
	e.Args = deepCopyList(arena, e.Args, off)
	e.Cond = deepCopyRewrite(arena, e.Cond, off)
	e.Value = deepCopyRewrite(arena, e.Value, off)
	e.SetValue = deepCopyRewrite(arena, e.SetValue, off)
	e.Ptr = deepCopyRewrite(arena, e.Ptr, off)
	e.Store = deepCopyRewrite(arena, e.Store, off)
	e.A = deepCopyRewrite(arena, e.A, off)
	e.B = deepCopyRewrite(arena, e.B, off)
	e.SelA = deepCopyRewrite(arena, e.SelA, off)
	e.SelB = deepCopyRewrite(arena, e.SelB, off)
	e.SelCond = deepCopyRewrite(arena, e.SelCond, off)
	e.Operand = deepCopyRewrite(arena, e.Operand, off)
	e.IndexExpr = deepCopyRewrite(arena, e.IndexExpr, off)
	e.Dst = deepCopyRewrite(arena, e.Dst, off)
	e.Src = deepCopyRewrite(arena, e.Src, off)
	e.Len = deepCopyRewrite(arena, e.Len, off)

	return arena.Alloc(e)
}

func deepCopyList(arena *ir.Arena, hs []ir.Handle, off func(uint32) uint32) []ir.Handle {
	if hs == nil {
		return nil
	}
	out := make([]ir.Handle, len(hs))
	for i, h := range hs {
		out[i] = deepCopyRewrite(arena, h, off)
	}
	return out
}
