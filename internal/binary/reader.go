// Package binary implements the WASM binary format codec: DecodeModule lifts
// a byte slice into an *ir.Module, EncodeModule serializes one back. Every
// section parser consumes exactly its declared length; custom sections are
// preserved verbatim rather than interpreted, and a section id outside the
// known range is rejected with ErrUnknownSectionTag.
package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/mavity/binaryen-fork/internal/ir"
)

// DecodeModule parses b as a WASM binary module.
func DecodeModule(b []byte) (*ir.Module, error) {
	r := bytes.NewReader(b)

	magic := make([]byte, 4)
	if n, err := r.Read(magic); err != nil || n != 4 || !bytes.Equal(magic, Magic) {
		return nil, fmt.Errorf("%w: invalid magic number", ErrBadMagic)
	}
	ver := make([]byte, 4)
	if n, err := r.Read(ver); err != nil || n != 4 || !bytes.Equal(ver, Version) {
		return nil, fmt.Errorf("%w: invalid version header", ErrBadVersion)
	}

	d := &decoder{m: ir.NewModule(ir.NewTypeStore())}
	sawName := false

	var prevID int = -1
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: reading section id: %v", ErrTruncated, err)
		}
		size, _, err := DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading section size: %v", ErrTruncated, err)
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("%w: section %d: truncated payload", ErrTruncated, id)
		}
		sr := bytes.NewReader(payload)

		if id == SectionIDCustom {
			name, err := readName(sr)
			if err != nil {
				return nil, fmt.Errorf("section custom: %w", err)
			}
			if name == "name" {
				if sawName {
					return nil, fmt.Errorf("section custom: redundant custom section name")
				}
				sawName = true
			}
			rest := make([]byte, sr.Len())
			sr.Read(rest)
			d.m.CustomSections = append(d.m.CustomSections, ir.CustomSection{Name: name, Data: rest})
			continue
		}

		if int(id) <= prevID {
			return nil, fmt.Errorf("section %d: out of order", id)
		}
		prevID = int(id)

		switch id {
		case SectionIDType:
			err = d.decodeTypeSection(sr)
		case SectionIDImport:
			err = d.decodeImportSection(sr)
		case SectionIDFunction:
			err = d.decodeFunctionSection(sr)
		case SectionIDTable:
			err = d.decodeTableSection(sr)
		case SectionIDMemory:
			err = d.decodeMemorySection(sr)
		case SectionIDGlobal:
			err = d.decodeGlobalSection(sr)
		case SectionIDExport:
			err = d.decodeExportSection(sr)
		case SectionIDStart:
			err = d.decodeStartSection(sr)
		case SectionIDElement:
			err = d.decodeElementSection(sr)
		case SectionIDCode:
			err = d.decodeCodeSection(sr)
		case SectionIDData:
			err = d.decodeDataSection(sr)
		default:
			return nil, fmt.Errorf("%w: section id %d", ErrUnknownSectionTag, id)
		}
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}
		if sr.Len() != 0 {
			return nil, fmt.Errorf("section %d: %d unread trailing bytes", id, sr.Len())
		}
	}

	if len(d.bodies) != len(d.definedFuncs) {
		return nil, fmt.Errorf("function and code section counts disagree: %d vs %d", len(d.definedFuncs), len(d.bodies))
	}
	for i, f := range d.definedFuncs {
		f.Body = d.bodies[i]
	}

	return d.m, nil
}

// decoder carries the cross-section state needed to resolve indices (type
// handles, function signatures by index) while a module is being built.
type decoder struct {
	m            *ir.Module
	types        []ir.TypeHandle // Type section signatures, in order
	funcSigs     []ir.TypeHandle // signature per function index, imports first
	definedFuncs []*ir.Function  // defined (non-import) functions, in code order
	bodies       []ir.Handle
}

func readName(r *bytes.Reader) (string, error) {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return "", fmt.Errorf("%w: reading name length: %v", ErrTruncated, err)
	}
	buf := make([]byte, n)
	if got, err := r.Read(buf); err != nil || uint32(got) != n {
		return "", fmt.Errorf("%w: reading name bytes", ErrTruncated)
	}
	return string(buf), nil
}

func readValueType(r *bytes.Reader) (ir.ValueType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: reading value type", ErrTruncated)
	}
	switch b {
	case ir.ValueTypeI32, ir.ValueTypeI64, ir.ValueTypeF32, ir.ValueTypeF64,
		ir.ValueTypeV128, ir.ValueTypeFuncref, ir.ValueTypeExternref:
		return b, nil
	}
	return 0, fmt.Errorf("%w: unknown value type %#x", ErrTypeMismatch, b)
}

func readLimits(r *bytes.Reader) (ir.Limits, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return ir.Limits{}, fmt.Errorf("%w: reading limits flag", ErrTruncated)
	}
	min, _, err := DecodeUint32(r)
	if err != nil {
		return ir.Limits{}, fmt.Errorf("%w: reading limits min: %v", ErrTruncated, err)
	}
	l := ir.Limits{Min: min}
	if flag == 1 {
		max, _, err := DecodeUint32(r)
		if err != nil {
			return ir.Limits{}, fmt.Errorf("%w: reading limits max: %v", ErrTruncated, err)
		}
		l.Max = &max
	}
	return l, nil
}

func (d *decoder) decodeTypeSection(r *bytes.Reader) error {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: reading type form", ErrTruncated)
		}
		if form != 0x60 {
			return fmt.Errorf("%w: unsupported type form %#x", ErrTypeMismatchInDecode, form)
		}
		pn, _, err := DecodeUint32(r)
		if err != nil {
			return err
		}
		params := make([]ir.ValueType, pn)
		for i := range params {
			if params[i], err = readValueType(r); err != nil {
				return err
			}
		}
		rn, _, err := DecodeUint32(r)
		if err != nil {
			return err
		}
		results := make([]ir.ValueType, rn)
		for i := range results {
			if results[i], err = readValueType(r); err != nil {
				return err
			}
		}
		d.types = append(d.types, d.m.Types.InternSignature(params, results))
	}
	return nil
}

func (d *decoder) sigByIndex(idx uint32) (ir.TypeHandle, error) {
	if int(idx) >= len(d.types) {
		return 0, fmt.Errorf("%w: type index %d out of range", ErrTypeMismatchInDecode, idx)
	}
	return d.types[idx], nil
}

func (d *decoder) decodeImportSection(r *bytes.Reader) error {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		mod, err := readName(r)
		if err != nil {
			return err
		}
		name, err := readName(r)
		if err != nil {
			return err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: reading import kind", ErrTruncated)
		}
		imp := &ir.Import{Module: mod, Name: name, Kind: ir.ExternKind(kindByte)}
		switch imp.Kind {
		case ir.ExternFunc:
			idx, _, err := DecodeUint32(r)
			if err != nil {
				return err
			}
			sig, err := d.sigByIndex(idx)
			if err != nil {
				return err
			}
			imp.DescFunc = sig
			d.m.Imports = append(d.m.Imports, imp)
			d.funcSigs = append(d.funcSigs, sig)
			d.m.Functions = append(d.m.Functions, &ir.Function{Sig: sig, ImportIdx: len(d.m.Imports) - 1})
		case ir.ExternTable:
			et, err := readValueType(r)
			if err != nil {
				return err
			}
			lim, err := readLimits(r)
			if err != nil {
				return err
			}
			imp.DescTable = ir.TableType{ElemType: et, Limits: lim}
			d.m.Imports = append(d.m.Imports, imp)
			d.m.Tables = append(d.m.Tables, &ir.Table{Type: imp.DescTable, ImportIdx: len(d.m.Imports) - 1})
		case ir.ExternMemory:
			lim, err := readLimits(r)
			if err != nil {
				return err
			}
			imp.DescMemory = ir.MemoryType{Limits: lim}
			d.m.Imports = append(d.m.Imports, imp)
			d.m.Memories = append(d.m.Memories, &ir.Memory{Type: imp.DescMemory, ImportIdx: len(d.m.Imports) - 1})
		case ir.ExternGlobal:
			vt, err := readValueType(r)
			if err != nil {
				return err
			}
			mutByte, err := r.ReadByte()
			if err != nil {
				return fmt.Errorf("%w: reading global mutability", ErrTruncated)
			}
			imp.DescGlobal = ir.GlobalType{ValType: vt, Mutable: mutByte == 1}
			d.m.Imports = append(d.m.Imports, imp)
			d.m.Globals = append(d.m.Globals, &ir.Global{Type: imp.DescGlobal, ImportIdx: len(d.m.Imports) - 1})
		default:
			return fmt.Errorf("%w: unknown import kind %#x", ErrTypeMismatchInDecode, kindByte)
		}
	}
	return nil
}

func (d *decoder) decodeFunctionSection(r *bytes.Reader) error {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		idx, _, err := DecodeUint32(r)
		if err != nil {
			return err
		}
		sig, err := d.sigByIndex(idx)
		if err != nil {
			return err
		}
		f := &ir.Function{Sig: sig, ImportIdx: -1}
		d.funcSigs = append(d.funcSigs, sig)
		d.m.Functions = append(d.m.Functions, f)
		d.definedFuncs = append(d.definedFuncs, f)
	}
	return nil
}

func (d *decoder) decodeTableSection(r *bytes.Reader) error {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		et, err := readValueType(r)
		if err != nil {
			return err
		}
		lim, err := readLimits(r)
		if err != nil {
			return err
		}
		d.m.Tables = append(d.m.Tables, &ir.Table{Type: ir.TableType{ElemType: et, Limits: lim}, ImportIdx: -1})
	}
	return nil
}

func (d *decoder) decodeMemorySection(r *bytes.Reader) error {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		lim, err := readLimits(r)
		if err != nil {
			return err
		}
		d.m.Memories = append(d.m.Memories, &ir.Memory{Type: ir.MemoryType{Limits: lim}, ImportIdx: -1})
	}
	return nil
}

func (d *decoder) decodeGlobalSection(r *bytes.Reader) error {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		vt, err := readValueType(r)
		if err != nil {
			return err
		}
		mutByte, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: reading global mutability", ErrTruncated)
		}
		init, err := d.decodeConstExpr(r)
		if err != nil {
			return err
		}
		d.m.Globals = append(d.m.Globals, &ir.Global{
			Type:      ir.GlobalType{ValType: vt, Mutable: mutByte == 1},
			Init:      init,
			ImportIdx: -1,
		})
	}
	return nil
}

func (d *decoder) decodeExportSection(r *bytes.Reader) error {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		name, err := readName(r)
		if err != nil {
			return err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: reading export kind", ErrTruncated)
		}
		idx, _, err := DecodeUint32(r)
		if err != nil {
			return err
		}
		d.m.Exports = append(d.m.Exports, &ir.Export{Name: name, Kind: ir.ExternKind(kindByte), Index: idx})
	}
	return nil
}

func (d *decoder) decodeStartSection(r *bytes.Reader) error {
	idx, _, err := DecodeUint32(r)
	if err != nil {
		return err
	}
	d.m.Start = &idx
	return nil
}

func (d *decoder) decodeElementSection(r *bytes.Reader) error {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		flag, _, err := DecodeUint32(r)
		if err != nil {
			return err
		}
		seg := ir.ElementSegment{}
		switch flag {
		case 0:
			seg.Mode = ir.ElementModeActive
			seg.TableIndex = 0
			if seg.Offset, err = d.decodeConstExpr(r); err != nil {
				return err
			}
			if seg.FuncIndices, err = readIndexVec(r); err != nil {
				return err
			}
		case 1:
			seg.Mode = ir.ElementModePassive
			if _, err := r.ReadByte(); err != nil { // elemkind
				return fmt.Errorf("%w: reading elemkind", ErrTruncated)
			}
			if seg.FuncIndices, err = readIndexVec(r); err != nil {
				return err
			}
		case 2:
			seg.Mode = ir.ElementModeActive
			if seg.TableIndex, _, err = DecodeUint32(r); err != nil {
				return err
			}
			if seg.Offset, err = d.decodeConstExpr(r); err != nil {
				return err
			}
			if _, err := r.ReadByte(); err != nil {
				return fmt.Errorf("%w: reading elemkind", ErrTruncated)
			}
			if seg.FuncIndices, err = readIndexVec(r); err != nil {
				return err
			}
		case 3:
			seg.Mode = ir.ElementModeDeclarative
			if _, err := r.ReadByte(); err != nil {
				return fmt.Errorf("%w: reading elemkind", ErrTruncated)
			}
			if seg.FuncIndices, err = readIndexVec(r); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: element segment flag %d not supported", ErrUnknownOpcode, flag)
		}
		tableIdx := int(seg.TableIndex)
		if tableIdx < len(d.m.Tables) {
			d.m.Tables[tableIdx].Elements = append(d.m.Tables[tableIdx].Elements, seg)
		}
	}
	return nil
}

func readIndexVec(r *bytes.Reader) ([]uint32, error) {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		if out[i], _, err = DecodeUint32(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) decodeDataSection(r *bytes.Reader) error {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		flag, _, err := DecodeUint32(r)
		if err != nil {
			return err
		}
		seg := ir.DataSegment{}
		switch flag {
		case 0:
			seg.Mode = ir.DataModeActive
			if seg.Offset, err = d.decodeConstExpr(r); err != nil {
				return err
			}
		case 1:
			seg.Mode = ir.DataModePassive
		case 2:
			seg.Mode = ir.DataModeActive
			if _, _, err = DecodeUint32(r); err != nil { // memory index, always 0 for now
				return err
			}
			if seg.Offset, err = d.decodeConstExpr(r); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: data segment flag %d not supported", ErrUnknownOpcode, flag)
		}
		bn, _, err := DecodeUint32(r)
		if err != nil {
			return err
		}
		buf := make([]byte, bn)
		if got, err := r.Read(buf); err != nil || uint32(got) != bn {
			return fmt.Errorf("%w: reading data segment bytes", ErrTruncated)
		}
		seg.Init = buf
		d.m.DataSegments = append(d.m.DataSegments, seg)
	}
	return nil
}

// decodeConstExpr decodes a constant expression (used for global/element/data
// initializers): a short instruction sequence ending in `end` whose value
// must be foldable without execution.
func (d *decoder) decodeConstExpr(r *bytes.Reader) (ir.Handle, error) {
	op, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: reading const expr opcode", ErrTruncated)
	}
	var e ir.Expr
	switch op {
	case OpI32Const:
		v, _, err := DecodeInt32(r)
		if err != nil {
			return 0, err
		}
		e = ir.Expr{Kind: ir.KindConst, Type: ir.BasicHandle(ir.ValueTypeI32), Lit: ir.Literal{I32: v}}
	case OpI64Const:
		v, _, err := DecodeInt64(r)
		if err != nil {
			return 0, err
		}
		e = ir.Expr{Kind: ir.KindConst, Type: ir.BasicHandle(ir.ValueTypeI64), Lit: ir.Literal{I64: v}}
	case OpF32Const:
		v, err := readF32(r)
		if err != nil {
			return 0, err
		}
		e = ir.Expr{Kind: ir.KindConst, Type: ir.BasicHandle(ir.ValueTypeF32), Lit: ir.Literal{F32: v}}
	case OpF64Const:
		v, err := readF64(r)
		if err != nil {
			return 0, err
		}
		e = ir.Expr{Kind: ir.KindConst, Type: ir.BasicHandle(ir.ValueTypeF64), Lit: ir.Literal{F64: v}}
	case OpGlobalGet:
		idx, _, err := DecodeUint32(r)
		if err != nil {
			return 0, err
		}
		gt := ir.ValueTypeI32
		if int(idx) < len(d.m.Globals) {
			gt = d.m.Globals[idx].Type.ValType
		}
		e = ir.Expr{Kind: ir.KindGlobalGet, Type: ir.BasicHandle(gt), VarIndex: idx}
	default:
		return 0, fmt.Errorf("%w: unsupported const expr opcode %#x", ErrUnknownOpcode, op)
	}
	end, err := r.ReadByte()
	if err != nil || end != OpEnd {
		return 0, fmt.Errorf("%w: const expr missing terminating end", ErrTruncated)
	}
	return d.m.Arena.Alloc(e), nil
}

func readF32(r *bytes.Reader) (float32, error) {
	var buf [4]byte
	if n, err := r.Read(buf[:]); err != nil || n != 4 {
		return 0, fmt.Errorf("%w: reading f32", ErrTruncated)
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
}

func readF64(r *bytes.Reader) (float64, error) {
	var buf [8]byte
	if n, err := r.Read(buf[:]); err != nil || n != 8 {
		return 0, fmt.Errorf("%w: reading f64", ErrTruncated)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

func (d *decoder) decodeCodeSection(r *bytes.Reader) error {
	n, _, err := DecodeUint32(r)
	if err != nil {
		return err
	}
	if int(n) != len(d.definedFuncs) {
		return fmt.Errorf("code section: %d bodies but %d declared functions", n, len(d.definedFuncs))
	}
	for i := uint32(0); i < n; i++ {
		size, _, err := DecodeUint32(r)
		if err != nil {
			return err
		}
		buf := make([]byte, size)
		if got, err := r.Read(buf); err != nil || uint32(got) != size {
			return fmt.Errorf("%w: reading function body", ErrTruncated)
		}
		body, err := d.decodeFunctionBody(buf, d.definedFuncs[i])
		if err != nil {
			return fmt.Errorf("function[%d]: %w", i, err)
		}
		d.bodies = append(d.bodies, body)
	}
	return nil
}

func (d *decoder) decodeFunctionBody(buf []byte, f *ir.Function) (ir.Handle, error) {
	r := bytes.NewReader(buf)
	groupCount, _, err := DecodeUint32(r)
	if err != nil {
		return 0, err
	}
	var locals []ir.ValueType
	for i := uint32(0); i < groupCount; i++ {
		count, _, err := DecodeUint32(r)
		if err != nil {
			return 0, err
		}
		vt, err := readValueType(r)
		if err != nil {
			return 0, err
		}
		for j := uint32(0); j < count; j++ {
			locals = append(locals, vt)
		}
	}
	f.Locals = locals

	sig, _ := d.m.Types.LookupSignature(f.Sig)
	localTypes := append(append([]ir.ValueType(nil), sig.Params...), locals...)
	if len(sig.Results) > 1 {
		return 0, fmt.Errorf("%w: multi-value function results are not supported", ErrTypeMismatchInDecode)
	}
	resultType := ir.NoneHandle
	if len(sig.Results) == 1 {
		resultType = ir.BasicHandle(sig.Results[0])
	}

	fd := &funcDecoder{d: d, r: r, localTypes: localTypes}
	children, term, err := fd.exprs(resultType, false)
	if err != nil {
		return 0, err
	}
	if term != OpEnd {
		return 0, fmt.Errorf("%w: function body missing terminating end", ErrTruncated)
	}
	if r.Len() != 0 {
		return 0, fmt.Errorf("%w: %d trailing bytes after function body end", ErrTruncated, r.Len())
	}
	body := ir.Expr{Kind: ir.KindBlock, Label: -1, Type: resultType, Children: children}
	return d.m.Arena.Alloc(body), nil
}
