package effect

import "github.com/mavity/binaryen-fork/internal/ir"

// Analyzer computes Effects for expressions in one module's arena. It holds
// no per-module mutable state; the same Analyzer may be reused, or shared
// concurrently, across every function in a module, since Analyze only reads
// the arena it is given.
type Analyzer struct {
	// Rigorous, when true, is the always-safe default: a call is treated as
	// an opaque read/write of every local in the enclosing function, not
	// just memory and globals. When false, the analyzer applies one
	// WASM-semantics-backed relaxation: a callee can never observe or
	// mutate the caller's locals (WASM has no means to reference a local
	// across a call boundary), so local effects are dropped from a call's
	// Effects, leaving memory, globals, and control effects untouched.
	Rigorous bool
}

// New returns an Analyzer in the given mode. Passes that only read Effects
// to decide legality of a transformation should default to rigorous.
func New(rigorous bool) *Analyzer { return &Analyzer{Rigorous: rigorous} }

// Analyze computes h's effects, recursing into its operand subexpressions
// and OR-ing their effects in, per the "compound expressions OR their
// children's flags" contract. The nil handle (an absent optional operand)
// has empty effects.
func (an *Analyzer) Analyze(arena *ir.Arena, h ir.Handle) Effects {
	if h.IsNil() {
		return Effects{}
	}
	e := arena.Get(h)

	switch e.Kind {
	case ir.KindNop, ir.KindConst:
		return Effects{}

	case ir.KindUnreachable:
		return Effects{Flags: ControlTransfer | MayTrap}

	case ir.KindBlock, ir.KindLoop:
		return an.AnalyzeRange(arena, e.Children)

	case ir.KindIf:
		out := an.Analyze(arena, e.Cond)
		out = out.union(an.AnalyzeRange(arena, e.Children))
		out = out.union(an.AnalyzeRange(arena, e.Else))
		return out

	case ir.KindBreak:
		out := an.Analyze(arena, e.Cond)
		out = out.union(an.Analyze(arena, e.Value))
		return out.union(Effects{Flags: ControlTransfer})

	case ir.KindBrTable:
		out := an.Analyze(arena, e.Cond)
		out = out.union(an.Analyze(arena, e.Value))
		return out.union(Effects{Flags: ControlTransfer})

	case ir.KindReturn:
		return an.Analyze(arena, e.Value).union(Effects{Flags: ControlTransfer})

	case ir.KindCall:
		out := an.AnalyzeRange(arena, e.Args)
		return out.union(an.callEffects())

	case ir.KindCallIndirect:
		out := an.AnalyzeRange(arena, e.Args)
		out = out.union(an.Analyze(arena, e.IndexExpr))
		return out.union(an.callEffects())

	case ir.KindLocalGet:
		return localEffects(ReadsLocal, e.VarIndex, false)

	case ir.KindLocalSet:
		return an.Analyze(arena, e.SetValue).union(localEffects(WritesLocal, e.VarIndex, true))

	case ir.KindLocalTee:
		return an.Analyze(arena, e.SetValue).union(localEffects(WritesLocal, e.VarIndex, true))

	case ir.KindGlobalGet:
		return Effects{Flags: ReadsGlobal}

	case ir.KindGlobalSet:
		return an.Analyze(arena, e.SetValue).union(Effects{Flags: WritesGlobal})

	case ir.KindLoad:
		return an.Analyze(arena, e.Ptr).union(Effects{Flags: ReadsMemory | MayTrap})

	case ir.KindStore:
		out := an.Analyze(arena, e.Ptr)
		out = out.union(an.Analyze(arena, e.Store))
		return out.union(Effects{Flags: WritesMemory | MayTrap})

	case ir.KindUnary:
		out := an.Analyze(arena, e.A)
		if unaryTraps[e.UnaryOp] {
			out = out.union(Effects{Flags: MayTrap})
		}
		return out

	case ir.KindBinary:
		out := an.Analyze(arena, e.A)
		out = out.union(an.Analyze(arena, e.B))
		if binaryTraps[e.BinaryOp] {
			out = out.union(Effects{Flags: MayTrap})
		}
		return out

	case ir.KindSelect:
		out := an.Analyze(arena, e.SelA)
		out = out.union(an.Analyze(arena, e.SelB))
		out = out.union(an.Analyze(arena, e.SelCond))
		return out

	case ir.KindDrop:
		return an.Analyze(arena, e.Operand)

	case ir.KindMemorySize:
		return Effects{Flags: ReadsMemory}

	case ir.KindMemoryGrow:
		return an.Analyze(arena, e.Operand).union(Effects{Flags: ReadsMemory | WritesMemory})

	case ir.KindMemoryCopy:
		out := an.Analyze(arena, e.Dst)
		out = out.union(an.Analyze(arena, e.Src))
		out = out.union(an.Analyze(arena, e.Len))
		return out.union(Effects{Flags: ReadsMemory | WritesMemory | MayTrap})

	case ir.KindMemoryFill:
		out := an.Analyze(arena, e.Dst)
		out = out.union(an.Analyze(arena, e.Src))
		out = out.union(an.Analyze(arena, e.Len))
		return out.union(Effects{Flags: WritesMemory | MayTrap})

	default:
		// Every Kind this package knows about is handled above; an
		// unrecognized one (e.g. a future addition this analyzer hasn't
		// been taught yet) gets the maximal conservative effect set rather
		// than silently under-reporting.
		return Effects{
			Flags:     ReadsLocal | WritesLocal | ReadsGlobal | WritesGlobal | ReadsMemory | WritesMemory | Calls | MayTrap | ControlTransfer,
			AllLocals: true,
		}
	}
}

// AnalyzeRange unions the effects of a sequence of sibling expressions, in
// the order a block/loop body or an argument list holds them.
func (an *Analyzer) AnalyzeRange(arena *ir.Arena, hs []ir.Handle) Effects {
	var out Effects
	for _, h := range hs {
		out = out.union(an.Analyze(arena, h))
	}
	return out
}

func (an *Analyzer) callEffects() Effects {
	base := Effects{Flags: Calls | ReadsMemory | WritesMemory | ReadsGlobal | WritesGlobal | MayTrap}
	if an.Rigorous {
		base.Flags |= ReadsLocal | WritesLocal
		base.AllLocals = true
	}
	return base
}

// unaryTraps marks the unary operators that can trap: every non-saturating
// float-to-integer truncation traps on NaN or on a magnitude outside the
// target integer range.
var unaryTraps = map[ir.UnaryOp]bool{
	ir.TruncF32SToI32: true,
	ir.TruncF32UToI32: true,
	ir.TruncF64SToI32: true,
	ir.TruncF64UToI32: true,
	ir.TruncF32SToI64: true,
	ir.TruncF32UToI64: true,
	ir.TruncF64SToI64: true,
	ir.TruncF64UToI64: true,
}

// binaryTraps marks the binary operators that can trap: integer division
// and remainder trap on divide-by-zero, and signed division additionally
// traps on the INT_MIN / -1 overflow case.
var binaryTraps = map[ir.BinaryOp]bool{
	ir.DivSI32: true,
	ir.DivUI32: true,
	ir.RemSI32: true,
	ir.RemUI32: true,
	ir.DivSI64: true,
	ir.DivUI64: true,
	ir.RemSI64: true,
	ir.RemUI64: true,
}
