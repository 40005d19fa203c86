package binary

import (
	"bytes"
	"fmt"

	"github.com/mavity/binaryen-fork/internal/ir"
)

// funcDecoder lifts one function body's flat, stack-machine instruction
// encoding into a tree of ir.Expr nodes. WASM instructions consume operands
// off an implicit value stack and (usually) push one result; the tree IR
// instead wants each instruction to directly reference its operand
// sub-expressions as children. funcDecoder bridges the two by simulating the
// stack during a single linear pass: every decoded instruction is pushed
// onto a Go slice standing in for the wasm value stack, popped by whichever
// later instruction consumes it as an operand. Instructions that produce no
// value (or are never consumed, e.g. the final expression of a block) remain
// on the stack until the enclosing scope ends and are flushed, in order,
// into that scope's child list.
type funcDecoder struct {
	d          *decoder
	r          *bytes.Reader
	localTypes []ir.ValueType
	labels     []labelInfo
}

type labelInfo struct {
	isLoop     bool
	resultType ir.TypeHandle
}

func (fd *funcDecoder) labelArity(depth uint32) (ir.TypeHandle, error) {
	if int(depth) >= len(fd.labels) {
		return 0, fmt.Errorf("%w: branch depth %d exceeds label nest depth %d", ErrTypeMismatchInDecode, depth, len(fd.labels))
	}
	li := fd.labels[len(fd.labels)-1-int(depth)]
	if li.isLoop {
		return ir.NoneHandle, nil
	}
	return li.resultType, nil
}

func (fd *funcDecoder) alloc(e ir.Expr) ir.Handle { return fd.d.m.Arena.Alloc(e) }

// exprs decodes instructions until it hits `end` (or, if stopAtElse, either
// `end` or `else`), returning the scope's flattened child list and which
// terminator it observed.
func (fd *funcDecoder) exprs(resultType ir.TypeHandle, stopAtElse bool) ([]ir.Handle, byte, error) {
	var out []ir.Handle
	var stack []ir.Handle

	pop := func() (ir.Handle, error) {
		if len(stack) == 0 {
			return 0, ErrStackUnderflow
		}
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return h, nil
	}
	push := func(h ir.Handle) { stack = append(stack, h) }
	emit := func(h ir.Handle, hasResult bool) {
		if hasResult {
			push(h)
		} else {
			out = append(out, h)
		}
	}

	for {
		op, err := fd.r.ReadByte()
		if err != nil {
			return nil, 0, fmt.Errorf("%w: reading opcode", ErrTruncated)
		}

		switch op {
		case OpEnd:
			out = append(out, stack...)
			return out, OpEnd, nil
		case OpElse:
			if !stopAtElse {
				return nil, 0, fmt.Errorf("%w: unexpected else", ErrUnknownOpcode)
			}
			out = append(out, stack...)
			return out, OpElse, nil

		case OpUnreachable:
			emit(fd.alloc(ir.Expr{Kind: ir.KindUnreachable}), false)
		case OpNop:
			emit(fd.alloc(ir.Expr{Kind: ir.KindNop}), false)

		case OpBlock, OpLoop:
			bt, err := fd.decodeBlockType()
			if err != nil {
				return nil, 0, err
			}
			fd.labels = append(fd.labels, labelInfo{isLoop: op == OpLoop, resultType: bt})
			children, term, err := fd.exprs(bt, false)
			fd.labels = fd.labels[:len(fd.labels)-1]
			if err != nil {
				return nil, 0, err
			}
			if term != OpEnd {
				return nil, 0, fmt.Errorf("%w: block/loop missing end", ErrTruncated)
			}
			kind := ir.KindBlock
			if op == OpLoop {
				kind = ir.KindLoop
			}
			h := fd.alloc(ir.Expr{Kind: kind, Label: -1, Type: bt, Children: children})
			emit(h, bt != ir.NoneHandle)

		case OpIf:
			bt, err := fd.decodeBlockType()
			if err != nil {
				return nil, 0, err
			}
			cond, err := pop()
			if err != nil {
				return nil, 0, err
			}
			fd.labels = append(fd.labels, labelInfo{resultType: bt})
			thenList, term, err := fd.exprs(bt, true)
			if err != nil {
				fd.labels = fd.labels[:len(fd.labels)-1]
				return nil, 0, err
			}
			var elseList []ir.Handle
			hasElse := false
			if term == OpElse {
				hasElse = true
				elseList, term, err = fd.exprs(bt, false)
				if err != nil {
					fd.labels = fd.labels[:len(fd.labels)-1]
					return nil, 0, err
				}
			}
			fd.labels = fd.labels[:len(fd.labels)-1]
			if term != OpEnd {
				return nil, 0, fmt.Errorf("%w: if missing end", ErrTruncated)
			}
			h := fd.alloc(ir.Expr{Kind: ir.KindIf, Type: bt, Cond: cond, Children: thenList, Else: elseList, HasElse: hasElse})
			emit(h, bt != ir.NoneHandle)

		case OpBr:
			depth, _, err := DecodeUint32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			arity, err := fd.labelArity(depth)
			if err != nil {
				return nil, 0, err
			}
			var value ir.Handle
			if arity != ir.NoneHandle {
				if value, err = pop(); err != nil {
					return nil, 0, err
				}
			}
			out = append(out, fd.alloc(ir.Expr{Kind: ir.KindBreak, Targets: []int32{int32(depth)}, Value: value}))

		case OpBrIf:
			depth, _, err := DecodeUint32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			arity, err := fd.labelArity(depth)
			if err != nil {
				return nil, 0, err
			}
			cond, err := pop()
			if err != nil {
				return nil, 0, err
			}
			hasValue := arity != ir.NoneHandle
			var value ir.Handle
			if hasValue {
				if value, err = pop(); err != nil {
					return nil, 0, err
				}
			}
			// A taken br_if transfers value to the target label; a
			// not-taken one falls through yielding value unchanged. Both
			// are exactly this one node's meaning, so, unlike br, which
			// always diverges, br_if with a value is itself the
			// fallthrough result and is pushed, not emitted as a
			// statement.
			h := fd.alloc(ir.Expr{Kind: ir.KindBreak, Type: arity, Targets: []int32{int32(depth)}, Value: value, Cond: cond})
			emit(h, hasValue)

		case OpBrTable:
			n, _, err := DecodeUint32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			targets := make([]int32, n)
			for i := range targets {
				dep, _, err := DecodeUint32(fd.r)
				if err != nil {
					return nil, 0, err
				}
				targets[i] = int32(dep)
			}
			def, _, err := DecodeUint32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			arity, err := fd.labelArity(def)
			if err != nil {
				return nil, 0, err
			}
			cond, err := pop()
			if err != nil {
				return nil, 0, err
			}
			var value ir.Handle
			if arity != ir.NoneHandle {
				if value, err = pop(); err != nil {
					return nil, 0, err
				}
			}
			out = append(out, fd.alloc(ir.Expr{Kind: ir.KindBrTable, Targets: targets, Default: int32(def), Value: value, Cond: cond}))

		case OpReturn:
			var value ir.Handle
			hasValue := resultType != ir.NoneHandle
			if hasValue {
				if value, err = pop(); err != nil {
					return nil, 0, err
				}
			}
			h := fd.alloc(ir.Expr{Kind: ir.KindReturn, Value: value})
			out = append(out, h)

		case OpCall:
			idx, _, err := DecodeUint32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			if int(idx) >= len(fd.d.funcSigs) {
				return nil, 0, fmt.Errorf("%w: call target %d out of range", ErrTypeMismatchInDecode, idx)
			}
			sig, _ := fd.d.m.Types.LookupSignature(fd.d.funcSigs[idx])
			args := make([]ir.Handle, len(sig.Params))
			for i := len(args) - 1; i >= 0; i-- {
				if args[i], err = pop(); err != nil {
					return nil, 0, err
				}
			}
			resType := ir.NoneHandle
			if len(sig.Results) > 0 {
				resType = ir.BasicHandle(sig.Results[0])
			}
			h := fd.alloc(ir.Expr{Kind: ir.KindCall, Type: resType, FuncIndex: idx, Args: args})
			emit(h, len(sig.Results) > 0)

		case OpCallIndirect:
			sigIdx, _, err := DecodeUint32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			tblIdx, _, err := DecodeUint32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			sigHandle, err := fd.d.sigByIndex(sigIdx)
			if err != nil {
				return nil, 0, err
			}
			sig, _ := fd.d.m.Types.LookupSignature(sigHandle)
			indexExpr, err := pop()
			if err != nil {
				return nil, 0, err
			}
			args := make([]ir.Handle, len(sig.Params))
			for i := len(args) - 1; i >= 0; i-- {
				if args[i], err = pop(); err != nil {
					return nil, 0, err
				}
			}
			resType := ir.NoneHandle
			if len(sig.Results) > 0 {
				resType = ir.BasicHandle(sig.Results[0])
			}
			h := fd.alloc(ir.Expr{Kind: ir.KindCallIndirect, Type: resType, TableIndex: tblIdx, Sig: sigHandle, IndexExpr: indexExpr, Args: args})
			emit(h, len(sig.Results) > 0)

		case OpDrop:
			v, err := pop()
			if err != nil {
				return nil, 0, err
			}
			out = append(out, fd.alloc(ir.Expr{Kind: ir.KindDrop, Operand: v}))

		case OpSelect:
			cond, err := pop()
			if err != nil {
				return nil, 0, err
			}
			b, err := pop()
			if err != nil {
				return nil, 0, err
			}
			a, err := pop()
			if err != nil {
				return nil, 0, err
			}
			push(fd.alloc(ir.Expr{Kind: ir.KindSelect, Type: fd.d.m.Arena.Get(a).Type, SelA: a, SelB: b, SelCond: cond}))

		case OpLocalGet:
			idx, _, err := DecodeUint32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			if int(idx) >= len(fd.localTypes) {
				return nil, 0, fmt.Errorf("%w: local index %d out of range", ErrTypeMismatchInDecode, idx)
			}
			push(fd.alloc(ir.Expr{Kind: ir.KindLocalGet, Type: ir.BasicHandle(fd.localTypes[idx]), VarIndex: idx}))

		case OpLocalSet, OpLocalTee:
			idx, _, err := DecodeUint32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			if int(idx) >= len(fd.localTypes) {
				return nil, 0, fmt.Errorf("%w: local index %d out of range", ErrTypeMismatchInDecode, idx)
			}
			v, err := pop()
			if err != nil {
				return nil, 0, err
			}
			if op == OpLocalSet {
				out = append(out, fd.alloc(ir.Expr{Kind: ir.KindLocalSet, VarIndex: idx, SetValue: v}))
			} else {
				push(fd.alloc(ir.Expr{Kind: ir.KindLocalTee, Type: ir.BasicHandle(fd.localTypes[idx]), VarIndex: idx, SetValue: v}))
			}

		case OpGlobalGet:
			idx, _, err := DecodeUint32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			gt := ir.ValueTypeI32
			if int(idx) < len(fd.d.m.Globals) {
				gt = fd.d.m.Globals[idx].Type.ValType
			}
			push(fd.alloc(ir.Expr{Kind: ir.KindGlobalGet, Type: ir.BasicHandle(gt), VarIndex: idx}))

		case OpGlobalSet:
			idx, _, err := DecodeUint32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			v, err := pop()
			if err != nil {
				return nil, 0, err
			}
			out = append(out, fd.alloc(ir.Expr{Kind: ir.KindGlobalSet, VarIndex: idx, SetValue: v}))

		case OpMemorySize:
			if _, err := fd.r.ReadByte(); err != nil { // reserved memory index byte
				return nil, 0, fmt.Errorf("%w: reading memory.size reserved byte", ErrTruncated)
			}
			push(fd.alloc(ir.Expr{Kind: ir.KindMemorySize, Type: ir.BasicHandle(ir.ValueTypeI32)}))

		case OpMemoryGrow:
			if _, err := fd.r.ReadByte(); err != nil {
				return nil, 0, fmt.Errorf("%w: reading memory.grow reserved byte", ErrTruncated)
			}
			v, err := pop()
			if err != nil {
				return nil, 0, err
			}
			push(fd.alloc(ir.Expr{Kind: ir.KindMemoryGrow, Type: ir.BasicHandle(ir.ValueTypeI32), Operand: v}))

		case OpI32Const:
			v, _, err := DecodeInt32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			push(fd.alloc(ir.Expr{Kind: ir.KindConst, Type: ir.BasicHandle(ir.ValueTypeI32), Lit: ir.Literal{I32: v}}))
		case OpI64Const:
			v, _, err := DecodeInt64(fd.r)
			if err != nil {
				return nil, 0, err
			}
			push(fd.alloc(ir.Expr{Kind: ir.KindConst, Type: ir.BasicHandle(ir.ValueTypeI64), Lit: ir.Literal{I64: v}}))
		case OpF32Const:
			v, err := readF32(fd.r)
			if err != nil {
				return nil, 0, err
			}
			push(fd.alloc(ir.Expr{Kind: ir.KindConst, Type: ir.BasicHandle(ir.ValueTypeF32), Lit: ir.Literal{F32: v}}))
		case OpF64Const:
			v, err := readF64(fd.r)
			if err != nil {
				return nil, 0, err
			}
			push(fd.alloc(ir.Expr{Kind: ir.KindConst, Type: ir.BasicHandle(ir.ValueTypeF64), Lit: ir.Literal{F64: v}}))

		case OpMisc:
			if err := fd.decodeMisc(&stack, &out); err != nil {
				return nil, 0, err
			}

		default:
			if loadInfo, ok := loadOps[op]; ok {
				align, offset, err := fd.readMemarg()
				if err != nil {
					return nil, 0, err
				}
				ptr, err := pop()
				if err != nil {
					return nil, 0, err
				}
				push(fd.alloc(ir.Expr{Kind: ir.KindLoad, Type: ir.BasicHandle(loadInfo.result), Access: loadInfo.access, Align: align, Offset: offset, Ptr: ptr}))
				continue
			}
			if storeInfo, ok := storeOps[op]; ok {
				align, offset, err := fd.readMemarg()
				if err != nil {
					return nil, 0, err
				}
				val, err := pop()
				if err != nil {
					return nil, 0, err
				}
				ptr, err := pop()
				if err != nil {
					return nil, 0, err
				}
				out = append(out, fd.alloc(ir.Expr{Kind: ir.KindStore, Access: storeInfo, Align: align, Offset: offset, Ptr: ptr, Store: val}))
				continue
			}
			if uinfo, ok := unaryOps[op]; ok {
				a, err := pop()
				if err != nil {
					return nil, 0, err
				}
				push(fd.alloc(ir.Expr{Kind: ir.KindUnary, Type: ir.BasicHandle(uinfo.result), UnaryOp: uinfo.op, A: a}))
				continue
			}
			if binfo, ok := binaryOps[op]; ok {
				b, err := pop()
				if err != nil {
					return nil, 0, err
				}
				a, err := pop()
				if err != nil {
					return nil, 0, err
				}
				push(fd.alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(binfo.result), BinaryOp: binfo.op, A: a, B: b}))
				continue
			}
			return nil, 0, fmt.Errorf("%w: opcode %#x", ErrUnknownOpcode, op)
		}
	}
}

func (fd *funcDecoder) decodeMisc(stackPtr *[]ir.Handle, outPtr *[]ir.Handle) error {
	sub, _, err := DecodeUint32(fd.r)
	if err != nil {
		return err
	}
	pop := func() (ir.Handle, error) {
		s := *stackPtr
		if len(s) == 0 {
			return 0, ErrStackUnderflow
		}
		h := s[len(s)-1]
		*stackPtr = s[:len(s)-1]
		return h, nil
	}
	switch sub {
	case MiscMemoryCopy:
		if _, err := fd.r.ReadByte(); err != nil { // dst memory index
			return fmt.Errorf("%w: reading memory.copy reserved byte", ErrTruncated)
		}
		if _, err := fd.r.ReadByte(); err != nil { // src memory index
			return fmt.Errorf("%w: reading memory.copy reserved byte", ErrTruncated)
		}
		length, err := pop()
		if err != nil {
			return err
		}
		src, err := pop()
		if err != nil {
			return err
		}
		dst, err := pop()
		if err != nil {
			return err
		}
		*outPtr = append(*outPtr, fd.alloc(ir.Expr{Kind: ir.KindMemoryCopy, Dst: dst, Src: src, Len: length}))
	case MiscMemoryFill:
		if _, err := fd.r.ReadByte(); err != nil { // memory index
			return fmt.Errorf("%w: reading memory.fill reserved byte", ErrTruncated)
		}
		length, err := pop()
		if err != nil {
			return err
		}
		val, err := pop()
		if err != nil {
			return err
		}
		dst, err := pop()
		if err != nil {
			return err
		}
		// Src carries the fill byte value (an i32), not a pointer.
		*outPtr = append(*outPtr, fd.alloc(ir.Expr{Kind: ir.KindMemoryFill, Dst: dst, Src: val, Len: length}))
	default:
		return fmt.Errorf("%w: misc sub-opcode %d", ErrUnknownOpcode, sub)
	}
	return nil
}

func (fd *funcDecoder) readMemarg() (align, offset uint32, err error) {
	if align, _, err = DecodeUint32(fd.r); err != nil {
		return 0, 0, err
	}
	if offset, _, err = DecodeUint32(fd.r); err != nil {
		return 0, 0, err
	}
	return align, offset, nil
}

// decodeBlockType reads a block/loop/if result-type annotation. This codec
// only supports the MVP single-value-or-empty form: a type-section index is
// accepted only when it names a signature with no parameters and at most one
// result; a multi-value or param-taking signature is rejected.
func (fd *funcDecoder) decodeBlockType() (ir.TypeHandle, error) {
	v, _, err := DecodeInt64(fd.r)
	if err != nil {
		return 0, fmt.Errorf("%w: reading block type", ErrTruncated)
	}
	if v == -0x40 {
		return ir.NoneHandle, nil
	}
	if v < 0 {
		return ir.BasicHandle(ir.ValueType(v & 0x7f)), nil
	}
	sig, err := fd.d.sigByIndex(uint32(v))
	if err != nil {
		return 0, err
	}
	s, _ := fd.d.m.Types.LookupSignature(sig)
	if len(s.Params) != 0 {
		return 0, fmt.Errorf("%w: block types with parameters are not supported", ErrTypeMismatchInDecode)
	}
	if len(s.Results) > 1 {
		return 0, fmt.Errorf("%w: multi-value block results are not supported", ErrTypeMismatchInDecode)
	}
	if len(s.Results) == 0 {
		return ir.NoneHandle, nil
	}
	return ir.BasicHandle(s.Results[0]), nil
}
