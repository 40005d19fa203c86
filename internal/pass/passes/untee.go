package passes

import "github.com/mavity/binaryen-fork/internal/ir"

// Untee replaces every `local.tee idx value` with
// `block { local.set idx value; local.get idx }` of the same type,
// normalizing the IR so later passes (local-cse,
// code-pushing, coalesce-locals) only ever need to reason about
// local.get/local.set. Post-condition: no KindLocalTee remains anywhere in
// the module.
type Untee struct{}

func (Untee) Name() string { return "untee" }

func (Untee) Run(m *ir.Module) (bool, error) {
	changed := false
	ir.WalkFunctionBodies(m, func(arena *ir.Arena, slot *ir.Handle) {
		e := arena.Get(*slot)
		if e.Kind != ir.KindLocalTee {
			return
		}
		set := arena.Alloc(ir.Expr{Kind: ir.KindLocalSet, VarIndex: e.VarIndex, SetValue: e.SetValue})
		get := arena.Alloc(ir.Expr{Kind: ir.KindLocalGet, VarIndex: e.VarIndex, Type: e.Type})
		*slot = arena.Alloc(ir.Expr{
			Kind:     ir.KindBlock,
			Type:     e.Type,
			Label:    -1,
			Children: []ir.Handle{set, get},
		})
		changed = true
	})
	return changed, nil
}
