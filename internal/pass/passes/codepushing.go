package passes

import (
	"github.com/mavity/binaryen-fork/internal/dataflow"
	"github.com/mavity/binaryen-fork/internal/effect"
	"github.com/mavity/binaryen-fork/internal/ir"
)

// CodePushing sinks a local.set down to sit immediately before its sole use,
// within the same block/loop/if-arm child sequence, when every instruction
// it would move past is safe to reorder around. This
// shortens the live range of the local enough that coalesce-locals and
// local-cse see it as adjacent to its use, at the cost of no correctness
// risk: the set's value expression's own effects must not interfere with
// anything it crosses, checked with the same effect.Interferes test
// local-cse uses.
//
// Only a local with exactly one definition and one use in the whole
// function (dataflow.LocalGraph.CanSink) is considered, so there is never
// an ambiguity about which later read the moved set is "for".
type CodePushing struct {
	analyzer *effect.Analyzer
}

func NewCodePushing() *CodePushing {
	return &CodePushing{analyzer: effect.New(true)}
}

func (*CodePushing) Name() string { return "code-pushing" }

func (p *CodePushing) Run(m *ir.Module) (bool, error) {
	if p.analyzer == nil {
		p.analyzer = effect.New(true)
	}
	changed := false
	for _, f := range m.Functions {
		if f.IsImported() || f.Body.IsNil() {
			continue
		}
		graph := dataflow.BuildLocalGraph(m.Arena, f.Body)
		if codePushingWalk(p.analyzer, m.Arena, graph, f.Body) {
			changed = true
		}
	}
	return changed, nil
}

func codePushingWalk(analyzer *effect.Analyzer, arena *ir.Arena, graph *dataflow.LocalGraph, h ir.Handle) bool {
	if h.IsNil() {
		return false
	}
	e := arena.Get(h)
	changed := false
	switch e.Kind {
	case ir.KindBlock, ir.KindLoop:
		if sinkInSeq(analyzer, arena, graph, e.Children) {
			changed = true
		}
		for _, c := range e.Children {
			changed = codePushingWalk(analyzer, arena, graph, c) || changed
		}
		return changed
	case ir.KindIf:
		changed = codePushingWalk(analyzer, arena, graph, e.Cond) || changed
		if sinkInSeq(analyzer, arena, graph, e.Children) {
			changed = true
		}
		for _, c := range e.Children {
			changed = codePushingWalk(analyzer, arena, graph, c) || changed
		}
		if sinkInSeq(analyzer, arena, graph, e.Else) {
			changed = true
		}
		for _, c := range e.Else {
			changed = codePushingWalk(analyzer, arena, graph, c) || changed
		}
		return changed
	}
	for _, slot := range e.ChildSlots() {
		changed = codePushingWalk(analyzer, arena, graph, *slot) || changed
	}
	if list := e.ChildList(); list != nil {
		for _, c := range *list {
			changed = codePushingWalk(analyzer, arena, graph, c) || changed
		}
	}
	return changed
}

// sinkInSeq mutates children in place, relocating each eligible local.set to
// sit immediately before the single later instruction that reads it.
func sinkInSeq(analyzer *effect.Analyzer, arena *ir.Arena, graph *dataflow.LocalGraph, children []ir.Handle) bool {
	changed := false
	for i := 0; i < len(children); i++ {
		e := arena.Get(children[i])
		if e.Kind != ir.KindLocalSet || !graph.CanSink(e.VarIndex) {
			continue
		}
		idx := e.VarIndex
		setEff := analyzer.Analyze(arena, children[i])

		target := -1
		blocked := false
		for j := i + 1; j < len(children); j++ {
			switch accessOrder(arena, children[j], idx) {
			case accessRead:
				target = j
			case accessWrite:
				blocked = true
			}
			if target != -1 || blocked {
				break
			}
			if effect.Interferes(setEff, analyzer.Analyze(arena, children[j])) {
				blocked = true
				break
			}
		}
		if target == -1 || blocked || target == i+1 {
			continue
		}

		set := children[i]
		copy(children[i:target-1], children[i+1:target])
		children[target-1] = set
		changed = true
		i-- // the element that slid into position i has not been examined yet
	}
	return changed
}
