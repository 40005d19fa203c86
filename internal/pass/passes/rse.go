package passes

import (
	"github.com/mavity/binaryen-fork/internal/dataflow"
	"github.com/mavity/binaryen-fork/internal/effect"
	"github.com/mavity/binaryen-fork/internal/ir"
)

// RSE (redundant set elimination) removes a local.set whose written value is
// never read before the local is next redefined, on every path leaving the
// statement. Legality is decided by a forward scan within
// the enclosing basic block; once the block falls off its own end without a
// resolving read or write, dataflow.ComputeLiveness's LiveOut set answers
// whether some later block might still read the old value.
type RSE struct{}

func (RSE) Name() string { return "rse" }

func (RSE) Run(m *ir.Module) (bool, error) {
	changed := false
	for _, f := range m.Functions {
		if f.IsImported() || f.Body.IsNil() {
			continue
		}
		if rseFunc(m.Arena, f) {
			changed = true
		}
	}
	return changed, nil
}

func rseFunc(arena *ir.Arena, f *ir.Function) bool {
	cfg := dataflow.BuildCFG(arena, f.Body)
	live := dataflow.ComputeLiveness(arena, cfg)
	changed := false
	for _, b := range cfg.Blocks {
		for i, h := range b.Insts {
			e := arena.Get(h)
			if e.Kind != ir.KindLocalSet {
				continue
			}
			if isDeadAfter(arena, b.Insts[i+1:], b.Term, live, b.ID, e.VarIndex) {
				deadenSet(arena, e)
				changed = true
			}
		}
	}
	return changed
}

// isDeadAfter reports whether idx's just-written value can never be read:
// rest is every remaining in-block instruction after the candidate set,
// term the block's own terminator (nil if the block falls through).
func isDeadAfter(arena *ir.Arena, rest []ir.Handle, term ir.Handle, live *dataflow.Liveness, b dataflow.BlockID, idx uint32) bool {
	for _, h := range rest {
		switch accessOrder(arena, h, idx) {
		case accessRead:
			return false
		case accessWrite:
			return true
		}
	}
	if !term.IsNil() {
		// An if's arms are lowered into their own blocks; only its
		// condition is evaluated in b, and LiveOut covers both arms.
		if te := arena.Get(term); te.Kind == ir.KindIf {
			term = te.Cond
		}
		switch accessOrder(arena, term, idx) {
		case accessRead:
			return false
		case accessWrite:
			return true
		}
	}
	return !live.LiveOut[b][idx]
}

type accessKind int

const (
	accessNone accessKind = iota
	accessRead
	accessWrite
)

// accessOrder reports the first access idx undergoes in a scan of h that
// visits a local.set/tee's value before its own write, a node's ChildSlots
// before its ChildList, and an if's else arm last: a read found first beats
// a later write; a write with no preceding read means the old value never
// surfaces; accessNone means h never touches idx at all. For a block, loop
// or if the answer is the first access in that scan order, not along every
// path through it.
func accessOrder(arena *ir.Arena, h ir.Handle, idx uint32) accessKind {
	if h.IsNil() {
		return accessNone
	}
	e := arena.Get(h)
	switch e.Kind {
	case ir.KindLocalGet:
		if e.VarIndex == idx {
			return accessRead
		}
		return accessNone
	case ir.KindLocalSet, ir.KindLocalTee:
		if a := accessOrder(arena, e.SetValue, idx); a != accessNone {
			return a
		}
		if e.VarIndex == idx {
			return accessWrite
		}
		return accessNone
	}
	for _, slot := range e.ChildSlots() {
		if a := accessOrder(arena, *slot, idx); a != accessNone {
			return a
		}
	}
	if list := e.ChildList(); list != nil {
		for _, c := range *list {
			if a := accessOrder(arena, c, idx); a != accessNone {
				return a
			}
		}
	}
	if e.Kind == ir.KindIf {
		for _, c := range e.Else {
			if a := accessOrder(arena, c, idx); a != accessNone {
				return a
			}
		}
	}
	return accessNone
}

// deadenSet converts a dead local.set into a Nop if its value expression has
// no observable effect, or a Drop that still evaluates the value (for its
// effects) without storing it, otherwise.
func deadenSet(arena *ir.Arena, e *ir.Expr) {
	val := e.SetValue
	if effect.New(true).Analyze(arena, val).Flags.Pure() {
		*e = ir.Expr{Kind: ir.KindNop, Type: ir.NoneHandle}
		return
	}
	*e = ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: val}
}
