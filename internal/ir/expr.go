package ir

import "fmt"

// Kind tags which fields of an Expr are meaningful. Ordinals are declared
// once, in this order, and must never be renumbered: the binary reader and
// writer both depend on Kind (together with Op) mapping 1:1 to a WASM
// opcode, so a reordering silently breaks round-tripping.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNop
	KindUnreachable
	KindConst
	KindBlock
	KindLoop
	KindIf
	KindBreak
	KindBrTable
	KindReturn
	KindCall
	KindCallIndirect
	KindLocalGet
	KindLocalSet
	KindLocalTee
	KindGlobalGet
	KindGlobalSet
	KindLoad
	KindStore
	KindUnary
	KindBinary
	KindSelect
	KindDrop
	KindMemorySize
	KindMemoryGrow
	KindMemoryCopy
	KindMemoryFill
	kindEnd
)

var kindNames = [...]string{
	KindInvalid:      "invalid",
	KindNop:          "nop",
	KindUnreachable:  "unreachable",
	KindConst:        "const",
	KindBlock:        "block",
	KindLoop:         "loop",
	KindIf:           "if",
	KindBreak:        "break",
	KindBrTable:      "br_table",
	KindReturn:       "return",
	KindCall:         "call",
	KindCallIndirect: "call_indirect",
	KindLocalGet:     "local.get",
	KindLocalSet:     "local.set",
	KindLocalTee:     "local.tee",
	KindGlobalGet:    "global.get",
	KindGlobalSet:    "global.set",
	KindLoad:         "load",
	KindStore:        "store",
	KindUnary:        "unary",
	KindBinary:       "binary",
	KindSelect:       "select",
	KindDrop:         "drop",
	KindMemorySize:   "memory.size",
	KindMemoryGrow:   "memory.grow",
	KindMemoryCopy:   "memory.copy",
	KindMemoryFill:   "memory.fill",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// MemAccessKind distinguishes the width/signedness of a memory
// access, independent of the value type carried in Expr.Type.
type MemAccessKind uint8

const (
	AccessI32 MemAccessKind = iota
	AccessI64
	AccessF32
	AccessF64
	AccessI32_8S
	AccessI32_8U
	AccessI32_16S
	AccessI32_16U
	AccessI64_8S
	AccessI64_8U
	AccessI64_16S
	AccessI64_16U
	AccessI64_32S
	AccessI64_32U
)

// UnaryOp enumerates the fixed-arity-one numeric operators. Each variant is
// specific to an operand width, mirroring the real WASM opcode space so the
// reader/writer opcode tables are a direct lookup rather than a type-driven
// dispatch.
type UnaryOp uint16

const (
	UnaryOpInvalid UnaryOp = iota
	EqzI32
	ClzI32
	CtzI32
	PopcntI32
	EqzI64
	ClzI64
	CtzI64
	PopcntI64
	AbsF32
	NegF32
	CeilF32
	FloorF32
	TruncF32
	NearestF32
	SqrtF32
	AbsF64
	NegF64
	CeilF64
	FloorF64
	TruncF64
	NearestF64
	SqrtF64
	WrapI64ToI32
	TruncF32SToI32
	TruncF32UToI32
	TruncF64SToI32
	TruncF64UToI32
	ExtendI32SToI64
	ExtendI32UToI64
	TruncF32SToI64
	TruncF32UToI64
	TruncF64SToI64
	TruncF64UToI64
	ConvertI32SToF32
	ConvertI32UToF32
	ConvertI64SToF32
	ConvertI64UToF32
	DemoteF64ToF32
	ConvertI32SToF64
	ConvertI32UToF64
	ConvertI64SToF64
	ConvertI64UToF64
	PromoteF32ToF64
	ReinterpretF32ToI32
	ReinterpretI32ToF32
	ReinterpretF64ToI64
	ReinterpretI64ToF64
	Extend8SI32
	Extend16SI32
	Extend8SI64
	Extend16SI64
	Extend32SI64
	unaryOpEnd
)

// BinaryOp enumerates the fixed-arity-two numeric operators, one variant
// per operand width, for the same reason as UnaryOp.
type BinaryOp uint16

const (
	BinaryOpInvalid BinaryOp = iota
	AddI32
	SubI32
	MulI32
	DivSI32
	DivUI32
	RemSI32
	RemUI32
	AndI32
	OrI32
	XorI32
	ShlI32
	ShrSI32
	ShrUI32
	RotlI32
	RotrI32
	EqI32
	NeI32
	LtSI32
	LtUI32
	GtSI32
	GtUI32
	LeSI32
	LeUI32
	GeSI32
	GeUI32
	AddI64
	SubI64
	MulI64
	DivSI64
	DivUI64
	RemSI64
	RemUI64
	AndI64
	OrI64
	XorI64
	ShlI64
	ShrSI64
	ShrUI64
	RotlI64
	RotrI64
	EqI64
	NeI64
	LtSI64
	LtUI64
	GtSI64
	GtUI64
	LeSI64
	LeUI64
	GeSI64
	GeUI64
	AddF32
	SubF32
	MulF32
	DivF32
	MinF32
	MaxF32
	CopysignF32
	EqF32
	NeF32
	LtF32
	GtF32
	LeF32
	GeF32
	AddF64
	SubF64
	MulF64
	DivF64
	MinF64
	MaxF64
	CopysignF64
	EqF64
	NeF64
	LtF64
	GtF64
	LeF64
	GeF64
	binaryOpEnd
)

// IsCommutative reports whether swapping op's operands preserves its
// result.
func (op BinaryOp) IsCommutative() bool {
	switch op {
	case AddI32, MulI32, AndI32, OrI32, XorI32, EqI32, NeI32,
		AddI64, MulI64, AndI64, OrI64, XorI64, EqI64, NeI64,
		AddF32, MulF32, EqF32, NeF32,
		AddF64, MulF64, EqF64, NeF64:
		return true
	}
	return false
}

// Literal holds the decoded value of a const expression. Exactly one field
// is meaningful, selected by the owning Expr's Type.
type Literal struct {
	I32 int32
	I64 int64
	F32 float32
	F64 float64
}

// Expr is a tagged variant covering every IR node kind. Only the fields
// relevant to Kind are meaningful; the rest are zero. One struct, one Kind
// tag, reused across every instruction rather than one Go type per node
// kind, so the arena allocates fixed-size nodes.
type Expr struct {
	Kind Kind
	Type TypeHandle // result type, or NoneHandle

	// block/loop/if
	Label    int32 // -1 if unlabeled; depth-relative at point of use
	Children []Handle
	Else     []Handle
	HasElse  bool

	// break / br_table
	Targets []int32 // branch depths; len==1 for `break`
	Default int32
	Value   Handle // optional value operand (break, return)
	Cond    Handle

	// call / call_indirect
	FuncIndex  uint32
	TableIndex uint32
	Sig        TypeHandle
	Args       []Handle
	IndexExpr  Handle // call_indirect's dynamic table index operand

	// local/global get/set/tee
	VarIndex uint32
	SetValue Handle

	// load/store
	Access MemAccessKind
	Align  uint32
	Offset uint32
	Ptr    Handle
	Store  Handle // value operand for store

	// unary/binary
	UnaryOp  UnaryOp
	BinaryOp BinaryOp
	A, B     Handle

	// select
	SelA, SelB, SelCond Handle

	// drop / memory.grow
	Operand Handle

	// const
	Lit Literal

	// memory.copy / memory.fill extra operands
	Dst, Src, Len Handle
}

// ChildSlots returns pointers to every Handle-typed child field meaningful
// for e.Kind, in left-to-right evaluation order. A pass may overwrite the
// pointee to substitute a replacement subtree in place, without needing to
// re-walk or rebuild the parent. This is the "expose the parent's node slot"
// contract the visitor relies on.
//
// Variable-length children (Children, Else, Args) are not addressable as a
// single Handle slot; callers that need to replace one of those use
// ChildList alongside ChildSlots.
func (e *Expr) ChildSlots() []*Handle {
	switch e.Kind {
	case KindIf:
		return []*Handle{&e.Cond}
	case KindBreak:
		var slots []*Handle
		if !e.Value.IsNil() {
			slots = append(slots, &e.Value)
		}
		return append(slots, &e.Cond)
	case KindBrTable:
		if !e.Value.IsNil() {
			return []*Handle{&e.Value, &e.Cond}
		}
		return []*Handle{&e.Cond}
	case KindReturn:
		if !e.Value.IsNil() {
			return []*Handle{&e.Value}
		}
		return nil
	case KindCallIndirect:
		return []*Handle{&e.IndexExpr}
	case KindLocalSet:
		return []*Handle{&e.SetValue}
	case KindLocalTee:
		return []*Handle{&e.SetValue}
	case KindGlobalSet:
		return []*Handle{&e.SetValue}
	case KindLoad:
		return []*Handle{&e.Ptr}
	case KindStore:
		return []*Handle{&e.Ptr, &e.Store}
	case KindUnary:
		return []*Handle{&e.A}
	case KindBinary:
		return []*Handle{&e.A, &e.B}
	case KindSelect:
		return []*Handle{&e.SelA, &e.SelB, &e.SelCond}
	case KindDrop:
		return []*Handle{&e.Operand}
	case KindMemoryGrow:
		return []*Handle{&e.Operand}
	case KindMemoryCopy, KindMemoryFill:
		return []*Handle{&e.Dst, &e.Src, &e.Len}
	}
	return nil
}

// ChildList returns the Kind-appropriate variable-length child list
// (block/loop/if bodies, call arguments), or nil if e.Kind has none.
func (e *Expr) ChildList() *[]Handle {
	switch e.Kind {
	case KindBlock, KindLoop:
		return &e.Children
	case KindIf:
		return &e.Children
	case KindCall:
		return &e.Args
	case KindCallIndirect:
		return &e.Args
	}
	return nil
}
