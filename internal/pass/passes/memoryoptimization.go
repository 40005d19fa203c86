package passes

import (
	"github.com/mavity/binaryen-fork/internal/dataflow"
	"github.com/mavity/binaryen-fork/internal/effect"
	"github.com/mavity/binaryen-fork/internal/ir"
)

// MemoryOptimization eliminates a store immediately superseded by a later
// store to the exact same address, width, and alignment within one basic
// block, with nothing reading or writing memory in between: the memory-side
// analogue of RSE's dead local.set elimination.
// "Exact same address" means the pointer subexpressions are
// syntactically identical (simplifycontrolflow.go's exprEqual); a
// dynamically-equal-but-differently-written address is not detected, the
// same conservative stance local-cse takes for value identity.
//
// A candidate later store is additionally required to have no memory read
// anywhere in its own address or value subexpression: `store(p, load(p))`
// depends on the earlier store's effect being visible, so it can never
// retroactively justify deleting it.
type MemoryOptimization struct {
	analyzer *effect.Analyzer
}

func NewMemoryOptimization() *MemoryOptimization {
	return &MemoryOptimization{analyzer: effect.New(true)}
}

func (*MemoryOptimization) Name() string { return "memory-optimization" }

func (p *MemoryOptimization) Run(m *ir.Module) (bool, error) {
	if p.analyzer == nil {
		p.analyzer = effect.New(true)
	}
	changed := false
	for _, f := range m.Functions {
		if f.IsImported() || f.Body.IsNil() {
			continue
		}
		if memOptFunc(p.analyzer, m.Arena, f) {
			changed = true
		}
	}
	return changed, nil
}

func memOptFunc(analyzer *effect.Analyzer, arena *ir.Arena, f *ir.Function) bool {
	cfg := dataflow.BuildCFG(arena, f.Body)
	changed := false
	for _, b := range cfg.Blocks {
		if memOptBlock(analyzer, arena, b.Insts) {
			changed = true
		}
	}
	return changed
}

func memOptBlock(analyzer *effect.Analyzer, arena *ir.Arena, insts []ir.Handle) bool {
	changed := false
	lastIdx := -1
	for i, h := range insts {
		e := arena.Get(h)
		if e.Kind == ir.KindStore {
			eff := analyzer.Analyze(arena, h)
			if eff.Flags.Any(effect.ReadsMemory) {
				lastIdx = -1
				continue
			}
			if lastIdx != -1 {
				prev := arena.Get(insts[lastIdx])
				if prev.Access == e.Access && prev.Offset == e.Offset && prev.Align == e.Align && exprEqual(arena, prev.Ptr, e.Ptr) {
					deadenStore(arena, prev)
					changed = true
				}
			}
			lastIdx = i
			continue
		}
		eff := analyzer.Analyze(arena, h)
		if eff.Flags.Any(effect.ReadsMemory | effect.WritesMemory | effect.Calls) {
			lastIdx = -1
		}
	}
	return changed
}

// deadenStore converts a superseded store into whatever still evaluates its
// address and value for their own effects, without performing the write.
func deadenStore(arena *ir.Arena, e *ir.Expr) {
	an := effect.New(true)
	ptrPure := an.Analyze(arena, e.Ptr).Flags.Pure()
	valPure := an.Analyze(arena, e.Store).Flags.Pure()
	if ptrPure && valPure {
		*e = ir.Expr{Kind: ir.KindNop, Type: ir.NoneHandle}
		return
	}
	dropPtr := arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: e.Ptr})
	dropVal := arena.Alloc(ir.Expr{Kind: ir.KindDrop, Type: ir.NoneHandle, Operand: e.Store})
	*e = ir.Expr{Kind: ir.KindBlock, Type: ir.NoneHandle, Label: -1, Children: []ir.Handle{dropPtr, dropVal}}
}
