package passes

import (
	"math"
	"math/bits"

	"github.com/mavity/binaryen-fork/internal/effect"
	"github.com/mavity/binaryen-fork/internal/ir"
	"github.com/mavity/binaryen-fork/internal/wasmmath"
)

// Precompute folds any expression whose effects are empty and whose
// operands are already `const` nodes into a single `const` of the evaluated
// result. Run is one post-order sweep per function body: every operand is
// visited, and folded if foldable, before its parent's fold-eligibility is
// checked, so a nested chain of foldable operations collapses in a single
// invocation and a second invocation reports no change.
//
// Trapping operators (integer division/remainder, the non-saturating
// float-to-int truncations) are never folded: effect.Analyzer always marks
// them MayTrap, so their Effects are never Pure, and this pass's legality
// condition, "effects are empty", excludes them by construction rather
// than by a special case here. Folding a trap deterministically at compile
// time would still be sound, but the legality condition here is
// effects-emptiness and the pass honors it literally.
type Precompute struct {
	analyzer *effect.Analyzer
}

func NewPrecompute() *Precompute {
	return &Precompute{analyzer: effect.New(true)}
}

func (*Precompute) Name() string { return "precompute" }

func (p *Precompute) Run(m *ir.Module) (bool, error) {
	if p.analyzer == nil {
		p.analyzer = effect.New(true)
	}
	changed := false
	visit := func(arena *ir.Arena, slot *ir.Handle) {
		e := arena.Get(*slot)
		if e.Kind != ir.KindUnary && e.Kind != ir.KindBinary {
			return
		}
		if !p.analyzer.Analyze(arena, *slot).Flags.Pure() {
			return
		}
		lit, ok := evalConst(arena, e)
		if !ok {
			return
		}
		*slot = arena.Alloc(ir.Expr{Kind: ir.KindConst, Type: e.Type, Lit: lit})
		changed = true
	}
	for _, f := range m.Functions {
		if f.IsImported() || f.Body.IsNil() {
			continue
		}
		// Post, not Pre: a parent is only foldable once its operands have
		// already been reduced to consts earlier in the same walk.
		ir.Post(m.Arena, &f.Body, visit)
	}
	return changed, nil
}

func evalConst(arena *ir.Arena, e *ir.Expr) (ir.Literal, bool) {
	switch e.Kind {
	case ir.KindUnary:
		a, ok := constLiteral(arena, e.A)
		if !ok {
			return ir.Literal{}, false
		}
		return evalUnary(e.UnaryOp, a)
	case ir.KindBinary:
		a, aOK := constLiteral(arena, e.A)
		b, bOK := constLiteral(arena, e.B)
		if !aOK || !bOK {
			return ir.Literal{}, false
		}
		return evalBinary(e.BinaryOp, a, b)
	}
	return ir.Literal{}, false
}

func boolLit32(b bool) ir.Literal {
	if b {
		return ir.Literal{I32: 1}
	}
	return ir.Literal{I32: 0}
}

func evalUnary(op ir.UnaryOp, a ir.Literal) (ir.Literal, bool) {
	switch op {
	case ir.EqzI32:
		return boolLit32(a.I32 == 0), true
	case ir.EqzI64:
		return boolLit32(a.I64 == 0), true
	case ir.ClzI32:
		return ir.Literal{I32: int32(bits.LeadingZeros32(uint32(a.I32)))}, true
	case ir.CtzI32:
		return ir.Literal{I32: int32(bits.TrailingZeros32(uint32(a.I32)))}, true
	case ir.PopcntI32:
		return ir.Literal{I32: int32(bits.OnesCount32(uint32(a.I32)))}, true
	case ir.ClzI64:
		return ir.Literal{I64: int64(bits.LeadingZeros64(uint64(a.I64)))}, true
	case ir.CtzI64:
		return ir.Literal{I64: int64(bits.TrailingZeros64(uint64(a.I64)))}, true
	case ir.PopcntI64:
		return ir.Literal{I64: int64(bits.OnesCount64(uint64(a.I64)))}, true
	case ir.AbsF32:
		return ir.Literal{F32: float32(math.Abs(float64(a.F32)))}, true
	case ir.NegF32:
		return ir.Literal{F32: -a.F32}, true
	case ir.CeilF32:
		return ir.Literal{F32: float32(math.Ceil(float64(a.F32)))}, true
	case ir.FloorF32:
		return ir.Literal{F32: float32(math.Floor(float64(a.F32)))}, true
	case ir.TruncF32:
		return ir.Literal{F32: float32(math.Trunc(float64(a.F32)))}, true
	case ir.NearestF32:
		return ir.Literal{F32: float32(math.RoundToEven(float64(a.F32)))}, true
	case ir.SqrtF32:
		return ir.Literal{F32: float32(math.Sqrt(float64(a.F32)))}, true
	case ir.AbsF64:
		return ir.Literal{F64: math.Abs(a.F64)}, true
	case ir.NegF64:
		return ir.Literal{F64: -a.F64}, true
	case ir.CeilF64:
		return ir.Literal{F64: math.Ceil(a.F64)}, true
	case ir.FloorF64:
		return ir.Literal{F64: math.Floor(a.F64)}, true
	case ir.TruncF64:
		return ir.Literal{F64: math.Trunc(a.F64)}, true
	case ir.NearestF64:
		return ir.Literal{F64: math.RoundToEven(a.F64)}, true
	case ir.SqrtF64:
		return ir.Literal{F64: math.Sqrt(a.F64)}, true
	case ir.WrapI64ToI32:
		return ir.Literal{I32: int32(a.I64)}, true
	case ir.ExtendI32SToI64:
		return ir.Literal{I64: int64(a.I32)}, true
	case ir.ExtendI32UToI64:
		return ir.Literal{I64: int64(uint32(a.I32))}, true
	case ir.ConvertI32SToF32:
		return ir.Literal{F32: float32(a.I32)}, true
	case ir.ConvertI32UToF32:
		return ir.Literal{F32: float32(uint32(a.I32))}, true
	case ir.ConvertI64SToF32:
		return ir.Literal{F32: float32(a.I64)}, true
	case ir.ConvertI64UToF32:
		return ir.Literal{F32: float32(uint64(a.I64))}, true
	case ir.DemoteF64ToF32:
		return ir.Literal{F32: float32(a.F64)}, true
	case ir.ConvertI32SToF64:
		return ir.Literal{F64: float64(a.I32)}, true
	case ir.ConvertI32UToF64:
		return ir.Literal{F64: float64(uint32(a.I32))}, true
	case ir.ConvertI64SToF64:
		return ir.Literal{F64: float64(a.I64)}, true
	case ir.ConvertI64UToF64:
		return ir.Literal{F64: float64(uint64(a.I64))}, true
	case ir.PromoteF32ToF64:
		return ir.Literal{F64: float64(a.F32)}, true
	case ir.ReinterpretF32ToI32:
		return ir.Literal{I32: int32(math.Float32bits(a.F32))}, true
	case ir.ReinterpretI32ToF32:
		return ir.Literal{F32: math.Float32frombits(uint32(a.I32))}, true
	case ir.ReinterpretF64ToI64:
		return ir.Literal{I64: int64(math.Float64bits(a.F64))}, true
	case ir.ReinterpretI64ToF64:
		return ir.Literal{F64: math.Float64frombits(uint64(a.I64))}, true
	case ir.Extend8SI32:
		return ir.Literal{I32: int32(int8(a.I32))}, true
	case ir.Extend16SI32:
		return ir.Literal{I32: int32(int16(a.I32))}, true
	case ir.Extend8SI64:
		return ir.Literal{I64: int64(int8(a.I64))}, true
	case ir.Extend16SI64:
		return ir.Literal{I64: int64(int16(a.I64))}, true
	case ir.Extend32SI64:
		return ir.Literal{I64: int64(int32(a.I64))}, true
	}
	return ir.Literal{}, false
}

func evalBinary(op ir.BinaryOp, a, b ir.Literal) (ir.Literal, bool) {
	switch op {
	case ir.AddI32:
		return ir.Literal{I32: a.I32 + b.I32}, true
	case ir.SubI32:
		return ir.Literal{I32: a.I32 - b.I32}, true
	case ir.MulI32:
		return ir.Literal{I32: a.I32 * b.I32}, true
	case ir.AndI32:
		return ir.Literal{I32: a.I32 & b.I32}, true
	case ir.OrI32:
		return ir.Literal{I32: a.I32 | b.I32}, true
	case ir.XorI32:
		return ir.Literal{I32: a.I32 ^ b.I32}, true
	case ir.ShlI32:
		return ir.Literal{I32: a.I32 << (uint32(b.I32) & 31)}, true
	case ir.ShrSI32:
		return ir.Literal{I32: a.I32 >> (uint32(b.I32) & 31)}, true
	case ir.ShrUI32:
		return ir.Literal{I32: int32(uint32(a.I32) >> (uint32(b.I32) & 31))}, true
	case ir.RotlI32:
		return ir.Literal{I32: int32(bits.RotateLeft32(uint32(a.I32), int(b.I32)))}, true
	case ir.RotrI32:
		return ir.Literal{I32: int32(bits.RotateLeft32(uint32(a.I32), -int(b.I32)))}, true
	case ir.EqI32:
		return boolLit32(a.I32 == b.I32), true
	case ir.NeI32:
		return boolLit32(a.I32 != b.I32), true
	case ir.LtSI32:
		return boolLit32(a.I32 < b.I32), true
	case ir.LtUI32:
		return boolLit32(uint32(a.I32) < uint32(b.I32)), true
	case ir.GtSI32:
		return boolLit32(a.I32 > b.I32), true
	case ir.GtUI32:
		return boolLit32(uint32(a.I32) > uint32(b.I32)), true
	case ir.LeSI32:
		return boolLit32(a.I32 <= b.I32), true
	case ir.LeUI32:
		return boolLit32(uint32(a.I32) <= uint32(b.I32)), true
	case ir.GeSI32:
		return boolLit32(a.I32 >= b.I32), true
	case ir.GeUI32:
		return boolLit32(uint32(a.I32) >= uint32(b.I32)), true

	case ir.AddI64:
		return ir.Literal{I64: a.I64 + b.I64}, true
	case ir.SubI64:
		return ir.Literal{I64: a.I64 - b.I64}, true
	case ir.MulI64:
		return ir.Literal{I64: a.I64 * b.I64}, true
	case ir.AndI64:
		return ir.Literal{I64: a.I64 & b.I64}, true
	case ir.OrI64:
		return ir.Literal{I64: a.I64 | b.I64}, true
	case ir.XorI64:
		return ir.Literal{I64: a.I64 ^ b.I64}, true
	case ir.ShlI64:
		return ir.Literal{I64: a.I64 << (uint64(b.I64) & 63)}, true
	case ir.ShrSI64:
		return ir.Literal{I64: a.I64 >> (uint64(b.I64) & 63)}, true
	case ir.ShrUI64:
		return ir.Literal{I64: int64(uint64(a.I64) >> (uint64(b.I64) & 63))}, true
	case ir.RotlI64:
		return ir.Literal{I64: int64(bits.RotateLeft64(uint64(a.I64), int(b.I64)))}, true
	case ir.RotrI64:
		return ir.Literal{I64: int64(bits.RotateLeft64(uint64(a.I64), -int(b.I64)))}, true
	case ir.EqI64:
		return boolLit32(a.I64 == b.I64), true
	case ir.NeI64:
		return boolLit32(a.I64 != b.I64), true
	case ir.LtSI64:
		return boolLit32(a.I64 < b.I64), true
	case ir.LtUI64:
		return boolLit32(uint64(a.I64) < uint64(b.I64)), true
	case ir.GtSI64:
		return boolLit32(a.I64 > b.I64), true
	case ir.GtUI64:
		return boolLit32(uint64(a.I64) > uint64(b.I64)), true
	case ir.LeSI64:
		return boolLit32(a.I64 <= b.I64), true
	case ir.LeUI64:
		return boolLit32(uint64(a.I64) <= uint64(b.I64)), true
	case ir.GeSI64:
		return boolLit32(a.I64 >= b.I64), true
	case ir.GeUI64:
		return boolLit32(uint64(a.I64) >= uint64(b.I64)), true

	case ir.AddF32:
		return ir.Literal{F32: a.F32 + b.F32}, true
	case ir.SubF32:
		return ir.Literal{F32: a.F32 - b.F32}, true
	case ir.MulF32:
		return ir.Literal{F32: a.F32 * b.F32}, true
	case ir.DivF32:
		return ir.Literal{F32: a.F32 / b.F32}, true
	case ir.MinF32:
		return ir.Literal{F32: wasmmath.MinF32(a.F32, b.F32)}, true
	case ir.MaxF32:
		return ir.Literal{F32: wasmmath.MaxF32(a.F32, b.F32)}, true
	case ir.CopysignF32:
		return ir.Literal{F32: float32(math.Copysign(float64(a.F32), float64(b.F32)))}, true
	case ir.EqF32:
		return boolLit32(a.F32 == b.F32), true
	case ir.NeF32:
		return boolLit32(a.F32 != b.F32), true
	case ir.LtF32:
		return boolLit32(a.F32 < b.F32), true
	case ir.GtF32:
		return boolLit32(a.F32 > b.F32), true
	case ir.LeF32:
		return boolLit32(a.F32 <= b.F32), true
	case ir.GeF32:
		return boolLit32(a.F32 >= b.F32), true

	case ir.AddF64:
		return ir.Literal{F64: a.F64 + b.F64}, true
	case ir.SubF64:
		return ir.Literal{F64: a.F64 - b.F64}, true
	case ir.MulF64:
		return ir.Literal{F64: a.F64 * b.F64}, true
	case ir.DivF64:
		return ir.Literal{F64: a.F64 / b.F64}, true
	case ir.MinF64:
		return ir.Literal{F64: wasmmath.MinF64(a.F64, b.F64)}, true
	case ir.MaxF64:
		return ir.Literal{F64: wasmmath.MaxF64(a.F64, b.F64)}, true
	case ir.CopysignF64:
		return ir.Literal{F64: math.Copysign(a.F64, b.F64)}, true
	case ir.EqF64:
		return boolLit32(a.F64 == b.F64), true
	case ir.NeF64:
		return boolLit32(a.F64 != b.F64), true
	case ir.LtF64:
		return boolLit32(a.F64 < b.F64), true
	case ir.GtF64:
		return boolLit32(a.F64 > b.F64), true
	case ir.LeF64:
		return boolLit32(a.F64 <= b.F64), true
	case ir.GeF64:
		return boolLit32(a.F64 >= b.F64), true
	}
	return ir.Literal{}, false
}
