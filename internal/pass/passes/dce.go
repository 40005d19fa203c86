package passes

import "github.com/mavity/binaryen-fork/internal/ir"

// DCE deletes every sibling instruction following one that unconditionally
// diverges (return, unreachable, br_table, or an unconditional break) within a
// block/loop/if body, adjusting nothing else about the block's own type
// (the divergent instruction's own declared type, if any, already matches
// what the validator expects of a terminator position). The pass is
// idempotent: applying it twice equals applying it once, since a
// second pass over an already-pruned body finds no diverging instruction
// with a non-empty suffix left to cut, so Run naturally reports no further
// change.
type DCE struct{}

func (DCE) Name() string { return "dce" }

func (DCE) Run(m *ir.Module) (bool, error) {
	changed := false
	ir.WalkFunctionBodies(m, func(arena *ir.Arena, slot *ir.Handle) {
		e := arena.Get(*slot)
		switch e.Kind {
		case ir.KindBlock, ir.KindLoop:
			if pruneDeadSuffix(arena, &e.Children) {
				changed = true
			}
		case ir.KindIf:
			if pruneDeadSuffix(arena, &e.Children) {
				changed = true
			}
			if pruneDeadSuffix(arena, &e.Else) {
				changed = true
			}
		}
	})
	return changed, nil
}

// pruneDeadSuffix truncates *list right after the first unconditionally
// diverging instruction it contains, if any instructions follow it.
func pruneDeadSuffix(arena *ir.Arena, list *[]ir.Handle) bool {
	for i, h := range *list {
		if isUnconditionalDiverge(arena, h) && i < len(*list)-1 {
			*list = (*list)[:i+1]
			return true
		}
	}
	return false
}

func isUnconditionalDiverge(arena *ir.Arena, h ir.Handle) bool {
	if h.IsNil() {
		return false
	}
	e := arena.Get(h)
	switch e.Kind {
	case ir.KindReturn, ir.KindUnreachable, ir.KindBrTable:
		return true
	case ir.KindBreak:
		return e.Cond.IsNil()
	}
	return false
}
