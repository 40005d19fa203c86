package passes

import (
	"github.com/mavity/binaryen-fork/internal/dataflow"
	"github.com/mavity/binaryen-fork/internal/effect"
	"github.com/mavity/binaryen-fork/internal/ir"
)

// LocalCSE (local common subexpression elimination) finds, within one basic
// block, a later expression that is syntactically identical to an earlier
// one and rewrites the pair to compute the value once: the earlier
// occurrence becomes `local.tee $fresh (original expr)` and the later one
// becomes `local.get $fresh`. A third or later identical occurrence in the
// same block becomes another `local.get` on that same local rather than
// minting a new one. It never reasons across a block boundary
// (two occurrences separated by a branch may not execute
// the same number of times), so dataflow.BuildCFG's block boundaries are
// the scope limit, the same restriction RSE and code-pushing apply.
//
// A candidate pair is only merged when effect.Analyzer marks both pure
// (Flags.Pure()) and no effectful instruction or interfering pure one
// appears between the two occurrences in the same block: an intervening
// write to memory/globals/locals the candidate reads would invalidate the
// "recomputing it gives the same value" assumption even for an expression
// with no side effects of its own.
type LocalCSE struct {
	analyzer *effect.Analyzer
}

func NewLocalCSE() *LocalCSE {
	return &LocalCSE{analyzer: effect.New(true)}
}

func (*LocalCSE) Name() string { return "local-cse" }

func (p *LocalCSE) Run(m *ir.Module) (bool, error) {
	if p.analyzer == nil {
		p.analyzer = effect.New(true)
	}
	changed := false
	for _, f := range m.Functions {
		if f.IsImported() || f.Body.IsNil() {
			continue
		}
		sig, _ := m.Types.LookupSignature(f.Sig)
		if localCSEFunc(p.analyzer, m.Arena, f, uint32(len(sig.Params))) {
			changed = true
		}
	}
	return changed, nil
}

func localCSEFunc(analyzer *effect.Analyzer, arena *ir.Arena, f *ir.Function, paramCount uint32) bool {
	cfg := dataflow.BuildCFG(arena, f.Body)
	changed := false
	for _, b := range cfg.Blocks {
		if localCSEBlock(analyzer, arena, f, paramCount, b.Insts) {
			changed = true
		}
	}
	return changed
}

type cseCandidate struct {
	slot *ir.Handle
	eff  effect.Effects
	expr ir.Handle // the computation later occurrences compare against

	// Set once a match has materialized the value into a local. expr then
	// stays pointed at the original computation (the tee's value operand),
	// so a third or later occurrence keeps matching and reuses local
	// instead of minting another one.
	merged bool
	local  uint32
}

// localCSEBlock scans every instruction root in insts with one pre-order
// walk each, in order, carrying a single history of live candidates across
// all of them (an expression computed in instruction N can still be reused
// by instruction N+2, not just within N itself).
func localCSEBlock(analyzer *effect.Analyzer, arena *ir.Arena, f *ir.Function, paramCount uint32, insts []ir.Handle) bool {
	var history []cseCandidate
	changed := false

	for i := range insts {
		root := &insts[i]
		ir.Pre(arena, root, func(arena *ir.Arena, slot *ir.Handle) {
			e := arena.Get(*slot)
			if e.Kind == ir.KindConst || e.Kind == ir.KindNop || e.Type == ir.NoneHandle {
				return
			}
			eff := analyzer.Analyze(arena, *slot)
			if !eff.Flags.Pure() {
				invalidate(&history, eff)
				return
			}
			for ci := range history {
				cand := &history[ci]
				if effect.Interferes(cand.eff, eff) {
					continue
				}
				if !exprEqual(arena, cand.expr, *slot) {
					continue
				}
				if !cand.merged {
					idx := paramCount + uint32(len(f.Locals))
					f.Locals = append(f.Locals, e.Type.Basic())
					orig := *cand.slot
					*cand.slot = arena.Alloc(ir.Expr{Kind: ir.KindLocalTee, VarIndex: idx, SetValue: orig, Type: e.Type})
					cand.merged = true
					cand.local = idx
					cand.expr = orig
				}
				*slot = arena.Alloc(ir.Expr{Kind: ir.KindLocalGet, VarIndex: cand.local, Type: e.Type})
				changed = true
				return
			}
			history = append(history, cseCandidate{slot: slot, eff: eff, expr: *slot})
		})
	}
	return changed
}

// invalidate drops every history entry an effectful access could interfere
// with, so a later identical-looking expression is never reused across a
// write that might have changed its value.
func invalidate(history *[]cseCandidate, eff effect.Effects) {
	kept := (*history)[:0]
	for _, cand := range *history {
		if !effect.Interferes(cand.eff, eff) {
			kept = append(kept, cand)
		}
	}
	*history = kept
}
