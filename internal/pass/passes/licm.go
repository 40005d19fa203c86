package passes

import (
	"github.com/mavity/binaryen-fork/internal/dataflow"
	"github.com/mavity/binaryen-fork/internal/effect"
	"github.com/mavity/binaryen-fork/internal/ir"
)

// LICM (loop-invariant code motion) relocates a top-level `local.set idx
// value` out of a loop body to sit directly before the loop, when value has
// no effect besides reading locals and none of those locals are written
// anywhere in the loop; value would otherwise recompute to the
// same result every iteration. idx itself must have exactly one definition
// in the whole function, so there is no ambiguity about which computation
// a later read is for once it moves outside the loop.
//
// Candidates are only considered at a loop's own top level, never inside a
// nested block/if within it: a statement under a conditional does not
// necessarily run every iteration, so "recomputes to the same result every
// time" cannot be established without first proving it always executes. For
// the same reason, a candidate is only hoisted if nothing before it in the
// loop's top-level sequence carries a control_transfer effect: a preceding
// br_if (or anything containing one) may skip past the candidate on some
// iterations, so hoisting it ahead of the loop would make it run even on
// those iterations. Nor is it hoisted if anything before it in that
// sequence reads idx, since that read would see the hoisted value on the
// first iteration instead of the value idx had on entry. Nested loops are
// processed innermost-first, so an
// invariant already hoisted out of an inner loop becomes eligible for the
// outer one too.
type LICM struct {
	analyzer *effect.Analyzer
}

func NewLICM() *LICM {
	return &LICM{analyzer: effect.New(true)}
}

func (*LICM) Name() string { return "licm" }

func (p *LICM) Run(m *ir.Module) (bool, error) {
	if p.analyzer == nil {
		p.analyzer = effect.New(true)
	}
	changed := false
	for _, f := range m.Functions {
		if f.IsImported() || f.Body.IsNil() {
			continue
		}
		graph := dataflow.BuildLocalGraph(m.Arena, f.Body)
		body := m.Arena.Get(f.Body)
		if licmSeq(p.analyzer, m.Arena, graph, &body.Children) {
			changed = true
		}
	}
	return changed, nil
}

func licmSeq(analyzer *effect.Analyzer, arena *ir.Arena, graph *dataflow.LocalGraph, seq *[]ir.Handle) bool {
	changed := false
	for i := 0; i < len(*seq); i++ {
		e := arena.Get((*seq)[i])
		switch e.Kind {
		case ir.KindBlock:
			changed = licmSeq(analyzer, arena, graph, &e.Children) || changed
		case ir.KindIf:
			changed = licmSeq(analyzer, arena, graph, &e.Children) || changed
			changed = licmSeq(analyzer, arena, graph, &e.Else) || changed
		case ir.KindLoop:
			if licmSeq(analyzer, arena, graph, &e.Children) {
				changed = true
			}
			loopEff := analyzer.AnalyzeRange(arena, e.Children)
			j := 0
			blocked := false
			for j < len(e.Children) {
				ch := e.Children[j]
				ce := arena.Get(ch)
				if !blocked && ce.Kind == ir.KindLocalSet && isInvariantSet(analyzer, arena, graph, loopEff, ce, e.Children[:j]) {
					e.Children = append(e.Children[:j], e.Children[j+1:]...)
					*seq = append(*seq, ir.Handle(0))
					copy((*seq)[i+1:], (*seq)[i:])
					(*seq)[i] = ch
					i++
					changed = true
					continue
				}
				if analyzer.Analyze(arena, ch).Flags&effect.ControlTransfer != 0 {
					blocked = true
				}
				j++
			}
		}
	}
	return changed
}

func isInvariantSet(analyzer *effect.Analyzer, arena *ir.Arena, graph *dataflow.LocalGraph, loopEff effect.Effects, ce *ir.Expr, before []ir.Handle) bool {
	if !graph.HasSingleDef(ce.VarIndex) {
		return false
	}
	for _, h := range before {
		if accessOrder(arena, h, ce.VarIndex) != accessNone {
			return false
		}
	}
	valEff := analyzer.Analyze(arena, ce.SetValue)
	if valEff.Flags&^effect.ReadsLocal != 0 {
		return false
	}
	if loopEff.AllLocals {
		return false
	}
	for _, r := range valEff.ReadLocals {
		if containsU32(loopEff.WriteLocals, r) {
			return false
		}
	}
	return true
}

func containsU32(xs []uint32, v uint32) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
