package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mavity/binaryen-fork/internal/ir"
)

// encoder mirrors decoder: it walks the tree form and re-emits the flat,
// stack-machine instruction encoding. Every node's operand sub-expressions
// are encoded immediately before the node's own opcode, in left-to-right
// evaluation order, the exact inverse of funcDecoder's pop/push simulation.
type encoder struct {
	m         *ir.Module
	typeIndex map[ir.TypeHandle]uint32
}

func (en *encoder) blockType(w *bytes.Buffer, t ir.TypeHandle) error {
	if t == ir.NoneHandle {
		w.WriteByte(BlockTypeEmpty)
		return nil
	}
	if !t.IsBasic() {
		return fmt.Errorf("%w: multi-value block types are not supported", ErrTypeMismatch)
	}
	w.WriteByte(byte(t.Basic()))
	return nil
}

func (en *encoder) writeMemarg(w *bytes.Buffer, align, offset uint32) {
	w.Write(EncodeUint32(align))
	w.Write(EncodeUint32(offset))
}

// encodeFunctionBody writes body's top-level statement sequence (skipping
// the synthetic wrapping block decoder.decodeFunctionBody introduces)
// followed by the function-terminating end.
func (en *encoder) encodeFunctionBody(w *bytes.Buffer, body *ir.Expr) error {
	for _, h := range body.Children {
		if err := en.encodeInstr(w, h); err != nil {
			return err
		}
	}
	w.WriteByte(OpEnd)
	return nil
}

func (en *encoder) encodeInstr(w *bytes.Buffer, h ir.Handle) error {
	if h.IsNil() {
		return fmt.Errorf("%w: nil expression handle in function body", ErrTypeMismatch)
	}
	e := en.m.Arena.Get(h)
	switch e.Kind {
	case ir.KindNop:
		w.WriteByte(OpNop)
	case ir.KindUnreachable:
		w.WriteByte(OpUnreachable)

	case ir.KindConst:
		switch e.Type.Basic() {
		case ir.ValueTypeI32:
			w.WriteByte(OpI32Const)
			w.Write(EncodeInt32(e.Lit.I32))
		case ir.ValueTypeI64:
			w.WriteByte(OpI64Const)
			w.Write(EncodeInt64(e.Lit.I64))
		case ir.ValueTypeF32:
			w.WriteByte(OpF32Const)
			writeF32(w, e.Lit.F32)
		case ir.ValueTypeF64:
			w.WriteByte(OpF64Const)
			writeF64(w, e.Lit.F64)
		default:
			return fmt.Errorf("%w: const of type %s", ErrTypeMismatch, e.Type)
		}

	case ir.KindBlock, ir.KindLoop:
		if e.Kind == ir.KindBlock {
			w.WriteByte(OpBlock)
		} else {
			w.WriteByte(OpLoop)
		}
		if err := en.blockType(w, e.Type); err != nil {
			return err
		}
		for _, c := range e.Children {
			if err := en.encodeInstr(w, c); err != nil {
				return err
			}
		}
		w.WriteByte(OpEnd)

	case ir.KindIf:
		if err := en.encodeInstr(w, e.Cond); err != nil {
			return err
		}
		w.WriteByte(OpIf)
		if err := en.blockType(w, e.Type); err != nil {
			return err
		}
		for _, c := range e.Children {
			if err := en.encodeInstr(w, c); err != nil {
				return err
			}
		}
		if e.HasElse {
			w.WriteByte(OpElse)
			for _, c := range e.Else {
				if err := en.encodeInstr(w, c); err != nil {
					return err
				}
			}
		}
		w.WriteByte(OpEnd)

	case ir.KindBreak:
		if e.Cond.IsNil() {
			if !e.Value.IsNil() {
				if err := en.encodeInstr(w, e.Value); err != nil {
					return err
				}
			}
			w.WriteByte(OpBr)
			w.Write(EncodeUint32(uint32(e.Targets[0])))
		} else {
			if !e.Value.IsNil() {
				if err := en.encodeInstr(w, e.Value); err != nil {
					return err
				}
			}
			if err := en.encodeInstr(w, e.Cond); err != nil {
				return err
			}
			w.WriteByte(OpBrIf)
			w.Write(EncodeUint32(uint32(e.Targets[0])))
		}

	case ir.KindBrTable:
		if !e.Value.IsNil() {
			if err := en.encodeInstr(w, e.Value); err != nil {
				return err
			}
		}
		if err := en.encodeInstr(w, e.Cond); err != nil {
			return err
		}
		w.WriteByte(OpBrTable)
		w.Write(EncodeUint32(uint32(len(e.Targets))))
		for _, t := range e.Targets {
			w.Write(EncodeUint32(uint32(t)))
		}
		w.Write(EncodeUint32(uint32(e.Default)))

	case ir.KindReturn:
		if !e.Value.IsNil() {
			if err := en.encodeInstr(w, e.Value); err != nil {
				return err
			}
		}
		w.WriteByte(OpReturn)

	case ir.KindCall:
		for _, a := range e.Args {
			if err := en.encodeInstr(w, a); err != nil {
				return err
			}
		}
		w.WriteByte(OpCall)
		w.Write(EncodeUint32(e.FuncIndex))

	case ir.KindCallIndirect:
		for _, a := range e.Args {
			if err := en.encodeInstr(w, a); err != nil {
				return err
			}
		}
		if err := en.encodeInstr(w, e.IndexExpr); err != nil {
			return err
		}
		w.WriteByte(OpCallIndirect)
		idx, ok := en.typeIndex[e.Sig]
		if !ok {
			return fmt.Errorf("%w: call_indirect references unregistered signature", ErrTypeMismatch)
		}
		w.Write(EncodeUint32(idx))
		w.Write(EncodeUint32(e.TableIndex))

	case ir.KindLocalGet:
		w.WriteByte(OpLocalGet)
		w.Write(EncodeUint32(e.VarIndex))
	case ir.KindLocalSet:
		if err := en.encodeInstr(w, e.SetValue); err != nil {
			return err
		}
		w.WriteByte(OpLocalSet)
		w.Write(EncodeUint32(e.VarIndex))
	case ir.KindLocalTee:
		if err := en.encodeInstr(w, e.SetValue); err != nil {
			return err
		}
		w.WriteByte(OpLocalTee)
		w.Write(EncodeUint32(e.VarIndex))
	case ir.KindGlobalGet:
		w.WriteByte(OpGlobalGet)
		w.Write(EncodeUint32(e.VarIndex))
	case ir.KindGlobalSet:
		if err := en.encodeInstr(w, e.SetValue); err != nil {
			return err
		}
		w.WriteByte(OpGlobalSet)
		w.Write(EncodeUint32(e.VarIndex))

	case ir.KindLoad:
		if err := en.encodeInstr(w, e.Ptr); err != nil {
			return err
		}
		op, ok := opcodeForLoad[e.Access]
		if !ok {
			return fmt.Errorf("%w: load access kind %d", ErrTypeMismatch, e.Access)
		}
		w.WriteByte(op)
		en.writeMemarg(w, e.Align, e.Offset)
	case ir.KindStore:
		if err := en.encodeInstr(w, e.Ptr); err != nil {
			return err
		}
		if err := en.encodeInstr(w, e.Store); err != nil {
			return err
		}
		op, ok := opcodeForStore[e.Access]
		if !ok {
			return fmt.Errorf("%w: store access kind %d", ErrTypeMismatch, e.Access)
		}
		w.WriteByte(op)
		en.writeMemarg(w, e.Align, e.Offset)

	case ir.KindUnary:
		if err := en.encodeInstr(w, e.A); err != nil {
			return err
		}
		op, ok := opcodeForUnary[e.UnaryOp]
		if !ok {
			return fmt.Errorf("%w: unary op %d", ErrTypeMismatch, e.UnaryOp)
		}
		w.WriteByte(op)
	case ir.KindBinary:
		if err := en.encodeInstr(w, e.A); err != nil {
			return err
		}
		if err := en.encodeInstr(w, e.B); err != nil {
			return err
		}
		op, ok := opcodeForBinary[e.BinaryOp]
		if !ok {
			return fmt.Errorf("%w: binary op %d", ErrTypeMismatch, e.BinaryOp)
		}
		w.WriteByte(op)

	case ir.KindSelect:
		if err := en.encodeInstr(w, e.SelA); err != nil {
			return err
		}
		if err := en.encodeInstr(w, e.SelB); err != nil {
			return err
		}
		if err := en.encodeInstr(w, e.SelCond); err != nil {
			return err
		}
		w.WriteByte(OpSelect)

	case ir.KindDrop:
		if err := en.encodeInstr(w, e.Operand); err != nil {
			return err
		}
		w.WriteByte(OpDrop)

	case ir.KindMemorySize:
		w.WriteByte(OpMemorySize)
		w.WriteByte(0x00)
	case ir.KindMemoryGrow:
		if err := en.encodeInstr(w, e.Operand); err != nil {
			return err
		}
		w.WriteByte(OpMemoryGrow)
		w.WriteByte(0x00)

	case ir.KindMemoryCopy:
		if err := en.encodeInstr(w, e.Dst); err != nil {
			return err
		}
		if err := en.encodeInstr(w, e.Src); err != nil {
			return err
		}
		if err := en.encodeInstr(w, e.Len); err != nil {
			return err
		}
		w.WriteByte(OpMisc)
		w.Write(EncodeUint32(MiscMemoryCopy))
		w.WriteByte(0x00)
		w.WriteByte(0x00)
	case ir.KindMemoryFill:
		if err := en.encodeInstr(w, e.Dst); err != nil {
			return err
		}
		if err := en.encodeInstr(w, e.Src); err != nil {
			return err
		}
		if err := en.encodeInstr(w, e.Len); err != nil {
			return err
		}
		w.WriteByte(OpMisc)
		w.Write(EncodeUint32(MiscMemoryFill))
		w.WriteByte(0x00)

	default:
		return fmt.Errorf("%w: expression kind %s", ErrTypeMismatch, e.Kind)
	}
	return nil
}

func writeF32(w *bytes.Buffer, v float32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	w.Write(buf[:])
}

func writeF64(w *bytes.Buffer, v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	w.Write(buf[:])
}
