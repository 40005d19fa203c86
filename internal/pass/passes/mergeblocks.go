package passes

import "github.com/mavity/binaryen-fork/internal/ir"

// MergeBlocks flattens a block whose single child is never itself targeted
// by any branch reachable from inside it, whether that child is an
// unlabeled nested block or any other single
// instruction (its type necessarily already matches the outer block's
// declared type, since the module validated before this pass ran).
// Unwrapping removes one nesting level without disturbing any branch
// numbering, because a depth-relative target is only affected by the
// nesting levels enclosing the branch that uses it, and this pass only
// unwraps a block that no branch inside it resolves to. A function's own
// body block is never unwrapped: the body stays a block.
//
// Loops are deliberately excluded: even though the same depth-safety
// argument would apply to an untargeted loop, narrowing this pass to the
// `block` case keeps its legality condition easy to state and
// leaves loop unwrapping to simplify-control-flow, which already owns
// "remove empty/trivial control constructs".
type MergeBlocks struct{}

func (MergeBlocks) Name() string { return "merge-blocks" }

func (MergeBlocks) Run(m *ir.Module) (bool, error) {
	changed := false
	for _, f := range m.Functions {
		if f.IsImported() || f.Body.IsNil() {
			continue
		}
		root := &f.Body
		ir.Pre(m.Arena, root, func(arena *ir.Arena, slot *ir.Handle) {
			e := arena.Get(*slot)
			if slot == root || e.Kind != ir.KindBlock || len(e.Children) != 1 {
				return
			}
			if scanUnsafe(arena, e.Children, 0) {
				return
			}
			*slot = e.Children[0]
			changed = true
		})
	}
	return changed, nil
}

// scanUnsafe reports whether any break/br_table inside children targets
// depth crossedDepth or greater, relative to however many nested
// block/loop/if frames have been entered since the caller's label. A hit at
// crossedDepth itself means some branch resolves to the very label the
// caller is considering removing or bypassing.
func scanUnsafe(arena *ir.Arena, children []ir.Handle, crossedDepth int32) bool {
	for _, h := range children {
		if unsafeAt(arena, h, crossedDepth) {
			return true
		}
	}
	return false
}

func unsafeAt(arena *ir.Arena, h ir.Handle, crossedDepth int32) bool {
	if h.IsNil() {
		return false
	}
	e := arena.Get(h)
	switch e.Kind {
	case ir.KindBreak:
		if e.Targets[0] >= crossedDepth {
			return true
		}
	case ir.KindBrTable:
		for _, t := range e.Targets {
			if t >= crossedDepth {
				return true
			}
		}
		if e.Default >= crossedDepth {
			return true
		}
	case ir.KindBlock, ir.KindLoop:
		return scanUnsafe(arena, e.Children, crossedDepth+1)
	case ir.KindIf:
		if scanUnsafe(arena, e.Children, crossedDepth+1) {
			return true
		}
		if scanUnsafe(arena, e.Else, crossedDepth+1) {
			return true
		}
		return unsafeAt(arena, e.Cond, crossedDepth)
	}
	for _, slot := range e.ChildSlots() {
		if unsafeAt(arena, *slot, crossedDepth) {
			return true
		}
	}
	if list := e.ChildList(); list != nil {
		for _, c := range *list {
			if unsafeAt(arena, c, crossedDepth) {
				return true
			}
		}
	}
	return false
}
