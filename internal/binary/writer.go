package binary

import (
	"bytes"

	"github.com/mavity/binaryen-fork/internal/ir"
)

// EncodeModule serializes m into a canonical WASM binary. Determinism means:
// calling it twice on the same module (including one just produced by
// DecodeModule) yields byte-identical output.
func EncodeModule(m *ir.Module) ([]byte, error) {
	en := &encoder{m: m, typeIndex: map[ir.TypeHandle]uint32{}}
	var order []ir.TypeHandle
	register := func(h ir.TypeHandle) {
		if _, ok := en.typeIndex[h]; !ok {
			en.typeIndex[h] = uint32(len(order))
			order = append(order, h)
		}
	}
	for _, f := range m.Functions {
		register(f.Sig)
	}
	for _, f := range m.DefinedFunctions() {
		if f.Body.IsNil() {
			continue
		}
		ir.Pre(m.Arena, &f.Body, func(arena *ir.Arena, slot *ir.Handle) {
			if slot.IsNil() {
				return
			}
			if e := arena.Get(*slot); e.Kind == ir.KindCallIndirect {
				register(e.Sig)
			}
		})
	}

	out := bytes.NewBuffer(nil)
	out.Write(Magic)
	out.Write(Version)

	if len(order) > 0 {
		payload := bytes.NewBuffer(nil)
		payload.Write(EncodeUint32(uint32(len(order))))
		for _, h := range order {
			sig, _ := m.Types.LookupSignature(h)
			payload.WriteByte(0x60)
			payload.Write(EncodeUint32(uint32(len(sig.Params))))
			payload.Write(sig.Params)
			payload.Write(EncodeUint32(uint32(len(sig.Results))))
			payload.Write(sig.Results)
		}
		writeSection(out, SectionIDType, payload.Bytes())
	}

	if len(m.Imports) > 0 {
		payload := bytes.NewBuffer(nil)
		payload.Write(EncodeUint32(uint32(len(m.Imports))))
		for _, imp := range m.Imports {
			writeName(payload, imp.Module)
			writeName(payload, imp.Name)
			payload.WriteByte(byte(imp.Kind))
			switch imp.Kind {
			case ir.ExternFunc:
				payload.Write(EncodeUint32(en.typeIndex[imp.DescFunc]))
			case ir.ExternTable:
				payload.WriteByte(imp.DescTable.ElemType)
				writeLimits(payload, imp.DescTable.Limits)
			case ir.ExternMemory:
				writeLimits(payload, imp.DescMemory.Limits)
			case ir.ExternGlobal:
				payload.WriteByte(imp.DescGlobal.ValType)
				payload.WriteByte(boolByte(imp.DescGlobal.Mutable))
			}
		}
		writeSection(out, SectionIDImport, payload.Bytes())
	}

	defined := m.DefinedFunctions()
	if len(defined) > 0 {
		payload := bytes.NewBuffer(nil)
		payload.Write(EncodeUint32(uint32(len(defined))))
		for _, f := range defined {
			payload.Write(EncodeUint32(en.typeIndex[f.Sig]))
		}
		writeSection(out, SectionIDFunction, payload.Bytes())
	}

	var definedTables []*ir.Table
	for _, t := range m.Tables {
		if !t.IsImported() {
			definedTables = append(definedTables, t)
		}
	}
	if len(definedTables) > 0 {
		payload := bytes.NewBuffer(nil)
		payload.Write(EncodeUint32(uint32(len(definedTables))))
		for _, t := range definedTables {
			payload.WriteByte(t.Type.ElemType)
			writeLimits(payload, t.Type.Limits)
		}
		writeSection(out, SectionIDTable, payload.Bytes())
	}

	var definedMemories []*ir.Memory
	for _, mem := range m.Memories {
		if !mem.IsImported() {
			definedMemories = append(definedMemories, mem)
		}
	}
	if len(definedMemories) > 0 {
		payload := bytes.NewBuffer(nil)
		payload.Write(EncodeUint32(uint32(len(definedMemories))))
		for _, mem := range definedMemories {
			writeLimits(payload, mem.Type.Limits)
		}
		writeSection(out, SectionIDMemory, payload.Bytes())
	}

	var definedGlobals []*ir.Global
	for _, g := range m.Globals {
		if !g.IsImported() {
			definedGlobals = append(definedGlobals, g)
		}
	}
	if len(definedGlobals) > 0 {
		payload := bytes.NewBuffer(nil)
		payload.Write(EncodeUint32(uint32(len(definedGlobals))))
		for _, g := range definedGlobals {
			payload.WriteByte(g.Type.ValType)
			payload.WriteByte(boolByte(g.Type.Mutable))
			if err := en.encodeInstr(payload, g.Init); err != nil {
				return nil, err
			}
			payload.WriteByte(OpEnd)
		}
		writeSection(out, SectionIDGlobal, payload.Bytes())
	}

	if len(m.Exports) > 0 {
		payload := bytes.NewBuffer(nil)
		payload.Write(EncodeUint32(uint32(len(m.Exports))))
		for _, ex := range m.Exports {
			writeName(payload, ex.Name)
			payload.WriteByte(byte(ex.Kind))
			payload.Write(EncodeUint32(ex.Index))
		}
		writeSection(out, SectionIDExport, payload.Bytes())
	}

	if m.Start != nil {
		payload := bytes.NewBuffer(nil)
		payload.Write(EncodeUint32(*m.Start))
		writeSection(out, SectionIDStart, payload.Bytes())
	}

	elemCount := 0
	for _, t := range m.Tables {
		elemCount += len(t.Elements)
	}
	if elemCount > 0 {
		payload := bytes.NewBuffer(nil)
		payload.Write(EncodeUint32(uint32(elemCount)))
		for _, t := range m.Tables {
			for _, seg := range t.Elements {
				switch seg.Mode {
				case ir.ElementModeActive:
					if seg.TableIndex == 0 {
						payload.Write(EncodeUint32(0))
						if err := en.encodeInstr(payload, seg.Offset); err != nil {
							return nil, err
						}
						payload.WriteByte(OpEnd)
					} else {
						payload.Write(EncodeUint32(2))
						payload.Write(EncodeUint32(seg.TableIndex))
						if err := en.encodeInstr(payload, seg.Offset); err != nil {
							return nil, err
						}
						payload.WriteByte(OpEnd)
						payload.WriteByte(0x00) // elemkind: funcref
					}
				case ir.ElementModePassive:
					payload.Write(EncodeUint32(1))
					payload.WriteByte(0x00)
				case ir.ElementModeDeclarative:
					payload.Write(EncodeUint32(3))
					payload.WriteByte(0x00)
				}
				payload.Write(EncodeUint32(uint32(len(seg.FuncIndices))))
				for _, idx := range seg.FuncIndices {
					payload.Write(EncodeUint32(idx))
				}
			}
		}
		writeSection(out, SectionIDElement, payload.Bytes())
	}

	if len(defined) > 0 {
		payload := bytes.NewBuffer(nil)
		payload.Write(EncodeUint32(uint32(len(defined))))
		for _, f := range defined {
			body := m.Arena.Get(f.Body)
			fnBuf := bytes.NewBuffer(nil)
			writeLocalsVec(fnBuf, f.Locals)
			if err := en.encodeFunctionBody(fnBuf, body); err != nil {
				return nil, err
			}
			payload.Write(EncodeUint32(uint32(fnBuf.Len())))
			payload.Write(fnBuf.Bytes())
		}
		writeSection(out, SectionIDCode, payload.Bytes())
	}

	if len(m.DataSegments) > 0 {
		payload := bytes.NewBuffer(nil)
		payload.Write(EncodeUint32(uint32(len(m.DataSegments))))
		for _, seg := range m.DataSegments {
			switch seg.Mode {
			case ir.DataModeActive:
				payload.Write(EncodeUint32(0))
				if err := en.encodeInstr(payload, seg.Offset); err != nil {
					return nil, err
				}
				payload.WriteByte(OpEnd)
			case ir.DataModePassive:
				payload.Write(EncodeUint32(1))
			}
			payload.Write(EncodeUint32(uint32(len(seg.Init))))
			payload.Write(seg.Init)
		}
		writeSection(out, SectionIDData, payload.Bytes())
	}

	for _, cs := range m.CustomSections {
		payload := bytes.NewBuffer(nil)
		writeName(payload, cs.Name)
		payload.Write(cs.Data)
		writeSection(out, SectionIDCustom, payload.Bytes())
	}

	return out.Bytes(), nil
}

func writeSection(out *bytes.Buffer, id byte, payload []byte) {
	out.WriteByte(id)
	out.Write(EncodeUint32(uint32(len(payload))))
	out.Write(payload)
}

func writeName(w *bytes.Buffer, s string) {
	w.Write(EncodeUint32(uint32(len(s))))
	w.WriteString(s)
}

func writeLimits(w *bytes.Buffer, l ir.Limits) {
	if l.Max != nil {
		w.WriteByte(1)
		w.Write(EncodeUint32(l.Min))
		w.Write(EncodeUint32(*l.Max))
	} else {
		w.WriteByte(0)
		w.Write(EncodeUint32(l.Min))
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// writeLocalsVec groups consecutive identical local types into runs, the
// same run-length form the reader expands.
func writeLocalsVec(w *bytes.Buffer, locals []ir.ValueType) {
	type run struct {
		vt    ir.ValueType
		count uint32
	}
	var runs []run
	for _, vt := range locals {
		if len(runs) > 0 && runs[len(runs)-1].vt == vt {
			runs[len(runs)-1].count++
		} else {
			runs = append(runs, run{vt: vt, count: 1})
		}
	}
	w.Write(EncodeUint32(uint32(len(runs))))
	for _, r := range runs {
		w.Write(EncodeUint32(r.count))
		w.WriteByte(r.vt)
	}
}
