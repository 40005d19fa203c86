package passes

import "github.com/mavity/binaryen-fork/internal/ir"

// PruneUnreachableFunctions finds every function that can never be called
// (starting from the module's exports, its start function, and every
// function index named in a table's element segments, then following
// `call` edges to a fixed point) and replaces each unreachable function's
// body with a single `unreachable` instruction.
//
// The function is not removed from the module's function index space:
// doing so would require renumbering every other function's `call` targets
// and every element segment's indices, which is exactly the kind of
// whole-module index surgery this pass's narrower "shrink what cannot run"
// contract does not need. Stubbing the body achieves the same code-size
// win (later passes like dce/merge-blocks never need to look inside a
// function that can never execute) without touching a single index
// anywhere else in the module.
//
// call_indirect targets are never resolved statically: any function
// reachable only through an indirect call the analysis cannot prove targets
// a fixed index is conservatively assumed reachable via its table
// membership, which is exactly what the element-segment roots capture.
type PruneUnreachableFunctions struct{}

func (PruneUnreachableFunctions) Name() string { return "prune-unreachable-functions" }

func (PruneUnreachableFunctions) Run(m *ir.Module) (bool, error) {
	reachable := make(map[int]bool, len(m.Functions))
	var queue []int
	mark := func(idx int) {
		if idx < 0 || idx >= len(m.Functions) || reachable[idx] {
			return
		}
		reachable[idx] = true
		queue = append(queue, idx)
	}

	for _, exp := range m.Exports {
		if exp.Kind == ir.ExternFunc {
			mark(int(exp.Index))
		}
	}
	if m.Start != nil {
		mark(int(*m.Start))
	}
	for _, t := range m.Tables {
		for _, el := range t.Elements {
			for _, fi := range el.FuncIndices {
				mark(int(fi))
			}
		}
	}

	for len(queue) > 0 {
		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		f := m.Functions[idx]
		if f.IsImported() || f.Body.IsNil() {
			continue
		}
		ir.Pre(m.Arena, &f.Body, func(arena *ir.Arena, slot *ir.Handle) {
			if e := arena.Get(*slot); e.Kind == ir.KindCall {
				mark(int(e.FuncIndex))
			}
		})
	}

	changed := false
	for idx, f := range m.Functions {
		if f.IsImported() || f.Body.IsNil() || reachable[idx] {
			continue
		}
		if stubBody(m.Arena, f) {
			changed = true
		}
	}
	return changed, nil
}

// stubBody replaces f's body with `{ unreachable }`, reporting false if it
// was already in exactly that shape (so repeated runs of this pass settle
// to a fixed point without spurious "changed" reports).
func stubBody(arena *ir.Arena, f *ir.Function) bool {
	body := arena.Get(f.Body)
	if len(body.Children) == 1 && len(body.Else) == 0 && !body.HasElse {
		if only := arena.Get(body.Children[0]); only.Kind == ir.KindUnreachable {
			return false
		}
	}
	unreachable := arena.Alloc(ir.Expr{Kind: ir.KindUnreachable, Type: ir.NoneHandle})
	*body = ir.Expr{Kind: ir.KindBlock, Type: ir.NoneHandle, Label: -1, Children: []ir.Handle{unreachable}}
	return true
}
