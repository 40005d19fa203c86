// Package ir defines the arena-backed intermediate representation shared by
// the binary codec, the dataflow analyses, the validator, and every
// optimization pass.
package ir

import (
	"fmt"
	"strings"
	"sync"
)

// ValueType describes the type of a value on the WebAssembly operand stack,
// a local, a global, or an expression's result. It reuses the real binary
// encodings so the reader and writer never need to translate.
//
// See https://webassembly.github.io/spec/core/binary/types.html#value-types
type ValueType = byte

const (
	// ValueTypeI32 is a 32-bit integer.
	ValueTypeI32 ValueType = 0x7f
	// ValueTypeI64 is a 64-bit integer.
	ValueTypeI64 ValueType = 0x7e
	// ValueTypeF32 is a 32-bit floating point number.
	ValueTypeF32 ValueType = 0x7d
	// ValueTypeF64 is a 64-bit floating point number.
	ValueTypeF64 ValueType = 0x7c
	// ValueTypeV128 is a 128-bit vector.
	ValueTypeV128 ValueType = 0x7b
	// ValueTypeFuncref is an opaque reference to a function.
	ValueTypeFuncref ValueType = 0x70
	// ValueTypeExternref is an opaque reference to a host object.
	ValueTypeExternref ValueType = 0x6f

	// ValueTypeNone is the distinguished "no value" type. It reuses the
	// binary format's empty block-type encoding so it round-trips for free.
	ValueTypeNone ValueType = 0x40
)

// ValueTypeName returns the WebAssembly text format name of t, or "unknown".
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	case ValueTypeNone:
		return "none"
	}
	return "unknown"
}

// IsNumeric reports whether t is i32, i64, f32, or f64.
func IsNumeric(t ValueType) bool {
	switch t {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		return true
	}
	return false
}

// TypeHandle is a compact, copyable reference to either a basic ValueType or
// a structurally-interned type (a signature, a value list, or a heap type).
// Handles below basicHandleBase are basic types reinterpreted directly;
// handles at or above it index into a TypeStore's interned table. The two
// ranges are disjoint by construction, matching the invariant that basic
// types occupy a reserved numeric range.
type TypeHandle uint64

const basicHandleBase TypeHandle = 0x100

// NoneHandle is the TypeHandle for the absence of a value.
var NoneHandle = BasicHandle(ValueTypeNone)

// BasicHandle returns the handle for a basic value type.
func BasicHandle(vt ValueType) TypeHandle { return TypeHandle(vt) }

// IsBasic reports whether h denotes a basic value type rather than an
// interned structural type.
func (h TypeHandle) IsBasic() bool { return h < basicHandleBase }

// Basic returns the ValueType h denotes. Panics if !h.IsBasic().
func (h TypeHandle) Basic() ValueType {
	if !h.IsBasic() {
		panic("ir: TypeHandle.Basic called on an interned handle")
	}
	return ValueType(h)
}

func (h TypeHandle) String() string {
	if h.IsBasic() {
		return ValueTypeName(h.Basic())
	}
	return fmt.Sprintf("type#%d", uint64(h)-uint64(basicHandleBase))
}

// Signature is a function type: an ordered parameter list and an ordered
// result list.
type Signature struct {
	Params  []ValueType
	Results []ValueType
}

func (s Signature) key() string {
	var b strings.Builder
	b.WriteByte('F')
	for _, p := range s.Params {
		b.WriteByte(p)
	}
	b.WriteByte(':')
	for _, r := range s.Results {
		b.WriteByte(r)
	}
	return b.String()
}

func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(ValueTypeName(p))
	}
	b.WriteString(")->(")
	for i, r := range s.Results {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(ValueTypeName(r))
	}
	b.WriteByte(')')
	return b.String()
}

func valueListKey(vs []ValueType) string {
	var b strings.Builder
	b.WriteByte('L')
	for _, v := range vs {
		b.WriteByte(v)
	}
	return b.String()
}

// HeapTypeKind classifies a HeapType.
type HeapTypeKind uint8

const (
	// HeapKindFunc describes a function reference's pointee: its signature.
	HeapKindFunc HeapTypeKind = iota
	// HeapKindStruct describes a GC struct type: an ordered field list.
	HeapKindStruct
	// HeapKindArray describes a GC array type: a single element type.
	HeapKindArray
	// HeapKindAny is the top reference type.
	HeapKindAny
	// HeapKindNone is the bottom reference type.
	HeapKindNone
)

// HeapType is the structural descriptor for a reference type.
type HeapType struct {
	Kind      HeapTypeKind
	Signature TypeHandle   // meaningful when Kind == HeapKindFunc
	Fields    []ValueType  // meaningful when Kind == HeapKindStruct
	Elem      ValueType    // meaningful when Kind == HeapKindArray
}

func (h HeapType) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "H%d:", h.Kind)
	switch h.Kind {
	case HeapKindFunc:
		fmt.Fprintf(&b, "%d", h.Signature)
	case HeapKindStruct:
		for _, f := range h.Fields {
			b.WriteByte(f)
		}
	case HeapKindArray:
		b.WriteByte(h.Elem)
	}
	return b.String()
}

type entryKind uint8

const (
	entrySignature entryKind = iota
	entryValueList
	entryHeap
)

type internedEntry struct {
	kind entryKind
	sig  Signature
	list []ValueType
	heap HeapType
}

// TypeStore interns signatures, value lists, and heap types so that
// structural equality collapses to O(1) handle comparison. It is safe for
// concurrent use: the common case (lookups during validation and every
// pass) takes the read lock; only first-sight interning takes the write
// lock. Handles are monotonically assigned and, once issued, are stable for
// the life of the store.
type TypeStore struct {
	mu      sync.RWMutex
	byKey   map[string]TypeHandle
	entries []internedEntry
}

// NewTypeStore returns an empty, ready-to-use TypeStore.
func NewTypeStore() *TypeStore {
	return &TypeStore{byKey: make(map[string]TypeHandle)}
}

func (s *TypeStore) intern(key string, e internedEntry) TypeHandle {
	s.mu.RLock()
	if h, ok := s.byKey[key]; ok {
		s.mu.RUnlock()
		return h
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.byKey[key]; ok {
		return h
	}
	h := basicHandleBase + TypeHandle(len(s.entries))
	s.entries = append(s.entries, e)
	s.byKey[key] = h
	return h
}

// InternSignature returns the canonical handle for the given parameter and
// result lists. Calling it twice with structurally-equal arguments returns
// the same handle.
func (s *TypeStore) InternSignature(params, results []ValueType) TypeHandle {
	sig := Signature{Params: append([]ValueType(nil), params...), Results: append([]ValueType(nil), results...)}
	return s.intern(sig.key(), internedEntry{kind: entrySignature, sig: sig})
}

// InternValueList returns the canonical handle for an ordered list of value
// types. This backs Params/Results, which must themselves be representable
// as a single TypeHandle.
func (s *TypeStore) InternValueList(vs []ValueType) TypeHandle {
	if len(vs) == 0 {
		return NoneHandle
	}
	cp := append([]ValueType(nil), vs...)
	return s.intern(valueListKey(cp), internedEntry{kind: entryValueList, list: cp})
}

// InternHeapType returns the canonical handle for a structural reference
// type descriptor.
func (s *TypeStore) InternHeapType(h HeapType) TypeHandle {
	return s.intern(h.key(), internedEntry{kind: entryHeap, heap: h})
}

func (s *TypeStore) entry(h TypeHandle) (internedEntry, bool) {
	if h.IsBasic() {
		return internedEntry{}, false
	}
	idx := int(h - basicHandleBase)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx < 0 || idx >= len(s.entries) {
		return internedEntry{}, false
	}
	return s.entries[idx], true
}

// LookupSignature returns the structural form of an interned signature
// handle, or ok==false if h does not denote a signature (including every
// basic type, per contract).
func (s *TypeStore) LookupSignature(h TypeHandle) (Signature, bool) {
	e, ok := s.entry(h)
	if !ok || e.kind != entrySignature {
		return Signature{}, false
	}
	return e.sig, true
}

// LookupHeapType returns the structural form of an interned heap type
// handle, or ok==false if h does not denote one.
func (s *TypeStore) LookupHeapType(h TypeHandle) (HeapType, bool) {
	e, ok := s.entry(h)
	if !ok || e.kind != entryHeap {
		return HeapType{}, false
	}
	return e.heap, true
}

// Params returns a TypeHandle denoting h's parameter list, or NoneHandle if
// h is a basic type or not a signature. This lets callers treat any handle
// uniformly as "potentially a signature" without a type switch.
func (s *TypeStore) Params(h TypeHandle) TypeHandle {
	sig, ok := s.LookupSignature(h)
	if !ok {
		return NoneHandle
	}
	return s.InternValueList(sig.Params)
}

// Results is the Params analog for a signature's result list.
func (s *TypeStore) Results(h TypeHandle) TypeHandle {
	sig, ok := s.LookupSignature(h)
	if !ok {
		return NoneHandle
	}
	return s.InternValueList(sig.Results)
}

// ValueList returns the value types an interned value-list handle denotes.
// NoneHandle yields an empty, ok==true list; the empty list is itself a
// kind of "no values," which Params/Results above rely on.
func (s *TypeStore) ValueList(h TypeHandle) ([]ValueType, bool) {
	if h == NoneHandle {
		return nil, true
	}
	e, ok := s.entry(h)
	if !ok || e.kind != entryValueList {
		return nil, false
	}
	return e.list, true
}
