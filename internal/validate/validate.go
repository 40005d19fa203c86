// Package validate rejects ill-formed modules: type mismatches, out-of-range
// indices, unresolved branch targets, and inconsistent block/call arities.
// It never mutates the module it checks.
package validate

import (
	"errors"
	"fmt"

	"github.com/mavity/binaryen-fork/internal/ir"
)

// Error is one structural or type failure, naming the function and the
// expression-kind path leading to it so a caller can locate the offending
// node without re-running the walk.
type Error struct {
	FuncIndex int
	FuncName  string
	Path      string
	Msg       string
}

func (e *Error) Error() string {
	name := e.FuncName
	if name == "" {
		name = fmt.Sprintf("#%d", e.FuncIndex)
	}
	if e.Path == "" {
		return fmt.Sprintf("function %s: %s", name, e.Msg)
	}
	return fmt.Sprintf("function %s at %s: %s", name, e.Path, e.Msg)
}

// Module validates every defined function body in m, returning nil if m is
// well-formed or a combined error (via errors.Join) naming every failure
// found otherwise.
func Module(m *ir.Module) error {
	var errs []error
	for i, f := range m.Functions {
		if f.IsImported() {
			continue
		}
		c := newChecker(m, f, i)
		c.checkFunction()
		errs = append(errs, c.errs...)
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

type label struct {
	resultType ir.TypeHandle
	isLoop     bool
}

type checker struct {
	m       *ir.Module
	f       *ir.Function
	funcIdx int
	locals  []ir.ValueType
	labels  []label
	path    []string
	errs    []error
}

func newChecker(m *ir.Module, f *ir.Function, idx int) *checker {
	locals := append([]ir.ValueType(nil), paramsOf(m, f)...)
	locals = append(locals, f.Locals...)
	return &checker{m: m, f: f, funcIdx: idx, locals: locals}
}

func paramsOf(m *ir.Module, f *ir.Function) []ir.ValueType {
	sig, ok := m.Types.LookupSignature(f.Sig)
	if !ok {
		return nil
	}
	return sig.Params
}

func (c *checker) checkFunction() {
	if c.f.Body.IsNil() {
		return
	}
	c.typeOf(c.f.Body)
}

func (c *checker) failAt(e *ir.Expr, format string, args ...any) {
	path := append(append([]string(nil), c.path...), e.Kind.String())
	c.errs = append(c.errs, &Error{
		FuncIndex: c.funcIdx,
		FuncName:  c.f.Name,
		Path:      joinPath(path),
		Msg:       fmt.Sprintf(format, args...),
	})
}

func (c *checker) fail(format string, args ...any) {
	c.errs = append(c.errs, &Error{
		FuncIndex: c.funcIdx,
		FuncName:  c.f.Name,
		Path:      joinPath(c.path),
		Msg:       fmt.Sprintf(format, args...),
	})
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

func (c *checker) push(kind string) func() {
	c.path = append(c.path, kind)
	return func() { c.path = c.path[:len(c.path)-1] }
}

func (c *checker) pushLabel(resultType ir.TypeHandle, isLoop bool) func() {
	c.labels = append(c.labels, label{resultType: resultType, isLoop: isLoop})
	return func() { c.labels = c.labels[:len(c.labels)-1] }
}

// labelArity returns the value type a branch to the label at depth must
// carry: NoneHandle for a loop label (branching there discards any value)
// or for an out-of-range depth (already reported as an error).
func (c *checker) labelArity(depth int32) ir.TypeHandle {
	if depth < 0 || int(depth) >= len(c.labels) {
		c.fail("branch depth %d exceeds label nest depth %d", depth, len(c.labels))
		return ir.NoneHandle
	}
	li := c.labels[len(c.labels)-1-int(depth)]
	if li.isLoop {
		return ir.NoneHandle
	}
	return li.resultType
}

// isDivergent reports whether h's instruction unconditionally transfers
// control, so any "leftover" static type it produces is never actually
// observed by a following sibling.
func (c *checker) isDivergent(h ir.Handle) bool {
	if h.IsNil() {
		return false
	}
	e := c.m.Arena.Get(h)
	switch e.Kind {
	case ir.KindBrTable, ir.KindReturn, ir.KindUnreachable:
		return true
	case ir.KindBreak:
		return e.Cond.IsNil()
	}
	return false
}

func (c *checker) expectType(h ir.Handle, want ir.TypeHandle) {
	got := c.typeOf(h)
	if h.IsNil() {
		if want != ir.NoneHandle {
			c.fail("expected a value of type %s, got none", want)
		}
		return
	}
	if got != want {
		c.failAt(c.m.Arena.Get(h), "expected type %s, got %s", want, got)
	}
}

// typeOf computes h's static result type, recursing into every operand and
// reporting any mismatch it finds along the way. The nil handle denotes an
// absent optional operand and types as NoneHandle.
func (c *checker) typeOf(h ir.Handle) ir.TypeHandle {
	if h.IsNil() {
		return ir.NoneHandle
	}
	e := c.m.Arena.Get(h)
	pop := c.push(e.Kind.String())
	defer pop()

	switch e.Kind {
	case ir.KindNop:
		return ir.NoneHandle
	case ir.KindUnreachable:
		return e.Type
	case ir.KindConst:
		return e.Type
	case ir.KindBlock, ir.KindLoop:
		return c.checkSeq(e)
	case ir.KindIf:
		return c.checkIf(e)
	case ir.KindBreak:
		return c.checkBreak(e)
	case ir.KindBrTable:
		return c.checkBrTable(e)
	case ir.KindReturn:
		return c.checkReturn(e)
	case ir.KindCall:
		return c.checkCall(e)
	case ir.KindCallIndirect:
		return c.checkCallIndirect(e)
	case ir.KindLocalGet:
		return c.checkLocalGet(e)
	case ir.KindLocalSet:
		return c.checkLocalSet(e)
	case ir.KindLocalTee:
		return c.checkLocalTee(e)
	case ir.KindGlobalGet:
		return c.checkGlobalGet(e)
	case ir.KindGlobalSet:
		return c.checkGlobalSet(e)
	case ir.KindLoad:
		c.expectType(e.Ptr, ir.BasicHandle(ir.ValueTypeI32))
		return e.Type
	case ir.KindStore:
		c.expectType(e.Ptr, ir.BasicHandle(ir.ValueTypeI32))
		c.expectType(e.Store, ir.BasicHandle(accessValueType(e.Access)))
		return ir.NoneHandle
	case ir.KindUnary:
		return c.checkUnary(e)
	case ir.KindBinary:
		return c.checkBinary(e)
	case ir.KindSelect:
		return c.checkSelect(e)
	case ir.KindDrop:
		c.typeOf(e.Operand)
		return ir.NoneHandle
	case ir.KindMemorySize:
		return e.Type
	case ir.KindMemoryGrow:
		c.expectType(e.Operand, ir.BasicHandle(ir.ValueTypeI32))
		return e.Type
	case ir.KindMemoryCopy, ir.KindMemoryFill:
		c.expectType(e.Dst, ir.BasicHandle(ir.ValueTypeI32))
		c.expectType(e.Src, ir.BasicHandle(ir.ValueTypeI32))
		c.expectType(e.Len, ir.BasicHandle(ir.ValueTypeI32))
		return ir.NoneHandle
	default:
		c.failAt(e, "unrecognized expression kind %v", e.Kind)
		return e.Type
	}
}

// checkBody validates a block/then/else child list against its declared
// result type: every non-final child must leave no value behind (unless it
// diverges), and the final child's type must match want.
func (c *checker) checkBody(list []ir.Handle, want ir.TypeHandle) {
	for i, h := range list {
		t := c.typeOf(h)
		isLast := i == len(list)-1
		if !isLast {
			if t != ir.NoneHandle && !c.isDivergent(h) {
				c.failAt(c.m.Arena.Get(h), "leaves a value on the stack without being consumed")
			}
			continue
		}
		if t != want && !c.isDivergent(h) {
			c.failAt(c.m.Arena.Get(h), "result type mismatch: expected %s, got %s", want, t)
		}
	}
	if len(list) == 0 && want != ir.NoneHandle {
		c.fail("empty body cannot produce declared result type %s", want)
	}
}

func (c *checker) checkSeq(e *ir.Expr) ir.TypeHandle {
	pop := c.pushLabel(e.Type, e.Kind == ir.KindLoop)
	defer pop()
	c.checkBody(e.Children, e.Type)
	return e.Type
}

func (c *checker) checkIf(e *ir.Expr) ir.TypeHandle {
	c.expectType(e.Cond, ir.BasicHandle(ir.ValueTypeI32))
	pop := c.pushLabel(e.Type, false)
	defer pop()
	c.checkBody(e.Children, e.Type)
	if e.HasElse {
		c.checkBody(e.Else, e.Type)
	} else if e.Type != ir.NoneHandle {
		c.fail("if without else must have an empty result type, has %s", e.Type)
	}
	return e.Type
}

func (c *checker) checkBreak(e *ir.Expr) ir.TypeHandle {
	if len(e.Targets) != 1 {
		c.fail("break must carry exactly one branch depth, has %d", len(e.Targets))
		return ir.NoneHandle
	}
	if !e.Cond.IsNil() {
		c.expectType(e.Cond, ir.BasicHandle(ir.ValueTypeI32))
	}
	arity := c.labelArity(e.Targets[0])
	if arity == ir.NoneHandle {
		if !e.Value.IsNil() {
			c.typeOf(e.Value)
			c.fail("branch to a label with no result type carries a value")
		}
		return ir.NoneHandle
	}
	c.expectType(e.Value, arity)
	return arity
}

func (c *checker) checkBrTable(e *ir.Expr) ir.TypeHandle {
	c.expectType(e.Cond, ir.BasicHandle(ir.ValueTypeI32))
	arity := c.labelArity(e.Default)
	for _, t := range e.Targets {
		if got := c.labelArity(t); got != arity {
			c.fail("br_table target depth %d has result type %s, inconsistent with default's %s", t, got, arity)
		}
	}
	if arity == ir.NoneHandle {
		if !e.Value.IsNil() {
			c.typeOf(e.Value)
			c.fail("br_table to labels with no result type carries a value")
		}
		return ir.NoneHandle
	}
	c.expectType(e.Value, arity)
	return arity
}

func (c *checker) checkReturn(e *ir.Expr) ir.TypeHandle {
	want := c.funcResultType()
	c.expectType(e.Value, want)
	return ir.NoneHandle
}

func (c *checker) funcResultType() ir.TypeHandle {
	sig, ok := c.m.Types.LookupSignature(c.f.Sig)
	if !ok || len(sig.Results) == 0 {
		return ir.NoneHandle
	}
	if len(sig.Results) > 1 {
		c.fail("function declares %d results, which this validator's single-value model cannot express", len(sig.Results))
	}
	return ir.BasicHandle(sig.Results[0])
}

func (c *checker) checkCall(e *ir.Expr) ir.TypeHandle {
	if int(e.FuncIndex) >= len(c.m.Functions) {
		c.fail("call target function index %d out of range (%d functions)", e.FuncIndex, len(c.m.Functions))
		for _, a := range e.Args {
			c.typeOf(a)
		}
		return e.Type
	}
	callee := c.m.Functions[e.FuncIndex]
	sig, _ := c.m.Types.LookupSignature(callee.Sig)
	c.checkArgs(e.Args, sig.Params)
	return e.Type
}

func (c *checker) checkCallIndirect(e *ir.Expr) ir.TypeHandle {
	c.expectType(e.IndexExpr, ir.BasicHandle(ir.ValueTypeI32))
	if int(e.TableIndex) >= len(c.m.Tables) {
		c.fail("call_indirect table index %d out of range (%d tables)", e.TableIndex, len(c.m.Tables))
	}
	sig, ok := c.m.Types.LookupSignature(e.Sig)
	if !ok {
		c.fail("call_indirect references an unknown signature handle")
		for _, a := range e.Args {
			c.typeOf(a)
		}
		return e.Type
	}
	c.checkArgs(e.Args, sig.Params)
	return e.Type
}

func (c *checker) checkArgs(args []ir.Handle, params []ir.ValueType) {
	if len(args) != len(params) {
		c.fail("argument count mismatch: callee expects %d, call supplies %d", len(params), len(args))
		for _, a := range args {
			c.typeOf(a)
		}
		return
	}
	for i, a := range args {
		c.expectType(a, ir.BasicHandle(params[i]))
	}
}

func (c *checker) checkLocalGet(e *ir.Expr) ir.TypeHandle {
	if int(e.VarIndex) >= len(c.locals) {
		c.fail("local index %d out of range (%d locals)", e.VarIndex, len(c.locals))
		return e.Type
	}
	return ir.BasicHandle(c.locals[e.VarIndex])
}

func (c *checker) checkLocalSet(e *ir.Expr) ir.TypeHandle {
	if int(e.VarIndex) >= len(c.locals) {
		c.fail("local index %d out of range (%d locals)", e.VarIndex, len(c.locals))
		c.typeOf(e.SetValue)
		return ir.NoneHandle
	}
	c.expectType(e.SetValue, ir.BasicHandle(c.locals[e.VarIndex]))
	return ir.NoneHandle
}

func (c *checker) checkLocalTee(e *ir.Expr) ir.TypeHandle {
	if int(e.VarIndex) >= len(c.locals) {
		c.fail("local index %d out of range (%d locals)", e.VarIndex, len(c.locals))
		c.typeOf(e.SetValue)
		return e.Type
	}
	want := ir.BasicHandle(c.locals[e.VarIndex])
	c.expectType(e.SetValue, want)
	return want
}

func (c *checker) checkGlobalGet(e *ir.Expr) ir.TypeHandle {
	if int(e.VarIndex) >= len(c.m.Globals) {
		c.fail("global index %d out of range (%d globals)", e.VarIndex, len(c.m.Globals))
		return e.Type
	}
	return ir.BasicHandle(c.m.Globals[e.VarIndex].Type.ValType)
}

func (c *checker) checkGlobalSet(e *ir.Expr) ir.TypeHandle {
	if int(e.VarIndex) >= len(c.m.Globals) {
		c.fail("global index %d out of range (%d globals)", e.VarIndex, len(c.m.Globals))
		c.typeOf(e.SetValue)
		return ir.NoneHandle
	}
	g := c.m.Globals[e.VarIndex]
	if !g.Type.Mutable {
		c.fail("global.set targets immutable global %d", e.VarIndex)
	}
	c.expectType(e.SetValue, ir.BasicHandle(g.Type.ValType))
	return ir.NoneHandle
}

func (c *checker) checkUnary(e *ir.Expr) ir.TypeHandle {
	ty, ok := unaryTypes[e.UnaryOp]
	if !ok {
		c.fail("unrecognized unary operator %d", e.UnaryOp)
		c.typeOf(e.A)
		return e.Type
	}
	c.expectType(e.A, ir.BasicHandle(ty.operand))
	if e.Type != ir.BasicHandle(ty.result) {
		c.fail("unary operator result type %s does not match declared type %s", ir.BasicHandle(ty.result), e.Type)
	}
	return e.Type
}

func (c *checker) checkBinary(e *ir.Expr) ir.TypeHandle {
	ty, ok := binaryTypes[e.BinaryOp]
	if !ok {
		c.fail("unrecognized binary operator %d", e.BinaryOp)
		c.typeOf(e.A)
		c.typeOf(e.B)
		return e.Type
	}
	c.expectType(e.A, ir.BasicHandle(ty.operand))
	c.expectType(e.B, ir.BasicHandle(ty.operand))
	if e.Type != ir.BasicHandle(ty.result) {
		c.fail("binary operator result type %s does not match declared type %s", ir.BasicHandle(ty.result), e.Type)
	}
	return e.Type
}

func (c *checker) checkSelect(e *ir.Expr) ir.TypeHandle {
	c.expectType(e.SelCond, ir.BasicHandle(ir.ValueTypeI32))
	ta := c.typeOf(e.SelA)
	tb := c.typeOf(e.SelB)
	if ta != tb {
		c.fail("select operands have mismatched types %s and %s", ta, tb)
	}
	if e.Type != ir.NoneHandle && ta != e.Type {
		c.fail("select result type %s does not match declared type %s", ta, e.Type)
	}
	return ta
}

func accessValueType(a ir.MemAccessKind) ir.ValueType {
	switch a {
	case ir.AccessI32, ir.AccessI32_8S, ir.AccessI32_8U, ir.AccessI32_16S, ir.AccessI32_16U:
		return ir.ValueTypeI32
	case ir.AccessI64, ir.AccessI64_8S, ir.AccessI64_8U, ir.AccessI64_16S, ir.AccessI64_16U, ir.AccessI64_32S, ir.AccessI64_32U:
		return ir.ValueTypeI64
	case ir.AccessF32:
		return ir.ValueTypeF32
	case ir.AccessF64:
		return ir.ValueTypeF64
	}
	return ir.ValueTypeNone
}
