package passes

import "github.com/mavity/binaryen-fork/internal/ir"

// Identity replaces arithmetic identities (x+0, x-0, x*1, x|0, x&-1, x^0,
// and their i64 analogues) with x. It is restricted to integer operators:
// a float identity like x+0.0 is not safe in general
// (NaN payloads and signed zero can be observed through it), so this pass
// never touches AddF32/AddF64/etc.
type Identity struct{}

func (Identity) Name() string { return "simplify-identity" }

func (Identity) Run(m *ir.Module) (bool, error) {
	changed := false
	ir.WalkFunctionBodies(m, func(arena *ir.Arena, slot *ir.Handle) {
		e := arena.Get(*slot)
		if e.Kind != ir.KindBinary {
			return
		}
		if repl, ok := identityOperand(arena, e); ok {
			*slot = repl
			changed = true
		}
	})
	return changed, nil
}

// identityOperand reports the operand that e collapses to under an integer
// arithmetic identity, if e.BinaryOp/e.A/e.B match one.
func identityOperand(arena *ir.Arena, e *ir.Expr) (ir.Handle, bool) {
	a, aOK := constLiteral(arena, e.A)
	b, bOK := constLiteral(arena, e.B)

	switch e.BinaryOp {
	case ir.AddI32, ir.AddI64:
		if aOK && isZero(a) {
			return e.B, true
		}
		if bOK && isZero(b) {
			return e.A, true
		}
	case ir.SubI32, ir.SubI64:
		// x-0 only; 0-x is not an identity (it's negation).
		if bOK && isZero(b) {
			return e.A, true
		}
	case ir.MulI32, ir.MulI64:
		if aOK && isOne(a) {
			return e.B, true
		}
		if bOK && isOne(b) {
			return e.A, true
		}
	case ir.OrI32, ir.OrI64:
		if aOK && isZero(a) {
			return e.B, true
		}
		if bOK && isZero(b) {
			return e.A, true
		}
	case ir.XorI32, ir.XorI64:
		if aOK && isZero(a) {
			return e.B, true
		}
		if bOK && isZero(b) {
			return e.A, true
		}
	case ir.AndI32:
		if aOK && a.I32 == -1 {
			return e.B, true
		}
		if bOK && b.I32 == -1 {
			return e.A, true
		}
	case ir.AndI64:
		if aOK && a.I64 == -1 {
			return e.B, true
		}
		if bOK && b.I64 == -1 {
			return e.A, true
		}
	}
	return ir.Handle(0), false
}

func constLiteral(arena *ir.Arena, h ir.Handle) (ir.Literal, bool) {
	if h.IsNil() {
		return ir.Literal{}, false
	}
	e := arena.Get(h)
	if e.Kind != ir.KindConst {
		return ir.Literal{}, false
	}
	return e.Lit, true
}

func isZero(l ir.Literal) bool { return l.I32 == 0 && l.I64 == 0 }
func isOne(l ir.Literal) bool { return l.I32 == 1 || l.I64 == 1 }
