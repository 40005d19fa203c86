package ir

// ExternKind classifies what an Import/Export binds to.
type ExternKind uint8

const (
	ExternFunc ExternKind = iota
	ExternTable
	ExternMemory
	ExternGlobal
)

func (k ExternKind) String() string {
	switch k {
	case ExternFunc:
		return "func"
	case ExternTable:
		return "table"
	case ExternMemory:
		return "memory"
	case ExternGlobal:
		return "global"
	}
	return "unknown"
}

// Import describes one entry of the import section.
type Import struct {
	Module, Name string
	Kind         ExternKind
	// Exactly one of the following is meaningful, selected by Kind.
	DescFunc   TypeHandle
	DescTable  TableType
	DescMemory MemoryType
	DescGlobal GlobalType
}

// Export describes one entry of the export section.
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32
}

// Limits bounds a table or memory's size, in table-elements or 64KiB pages
// respectively.
type Limits struct {
	Min uint32
	Max *uint32 // nil means unbounded
}

// TableType is a table's element type and size bounds.
type TableType struct {
	ElemType ValueType // ValueTypeFuncref or ValueTypeExternref
	Limits   Limits
}

// MemoryType is a memory's size bounds, in pages.
type MemoryType struct {
	Limits Limits
}

// GlobalType is a global's value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// Function is a module-defined or imported function. Imported functions
// have Body == Handle(0) (nil) and ImportIdx >= 0; others have a non-nil
// Body and ImportIdx == -1.
type Function struct {
	Name       string
	Sig        TypeHandle
	Locals     []ValueType // additional locals, not counting parameters
	Body       Handle      // nil for imports
	ImportIdx  int         // index into Module.Imports, or -1
	ExportName string      // "" if not exported under this name (see Module.Exports for the full mapping)
}

// IsImported reports whether f is bound to an import rather than a body.
func (f *Function) IsImported() bool { return f.ImportIdx >= 0 }

// Global is a module-defined or imported global.
type Global struct {
	Type      GlobalType
	Init      Handle // constant-foldable initializer; nil for imports
	ImportIdx int
}

func (g *Global) IsImported() bool { return g.ImportIdx >= 0 }

// ElementMode distinguishes how an element segment is applied.
type ElementMode uint8

const (
	ElementModeActive ElementMode = iota
	ElementModePassive
	ElementModeDeclarative
)

// ElementSegment initializes a range of a table, or declares a passive set
// of function references.
type ElementSegment struct {
	Mode        ElementMode
	TableIndex  uint32
	Offset      Handle // meaningful when Mode == ElementModeActive
	FuncIndices []uint32
}

// Table is a module-defined or imported table.
type Table struct {
	Type      TableType
	ImportIdx int
	Elements  []ElementSegment
}

func (t *Table) IsImported() bool { return t.ImportIdx >= 0 }

// DataMode distinguishes an active data segment (applied at instantiation)
// from a passive one (applied only via memory.init).
type DataMode uint8

const (
	DataModeActive DataMode = iota
	DataModePassive
)

// DataSegment initializes a range of linear memory.
type DataSegment struct {
	Mode   DataMode
	Offset Handle // meaningful when Mode == DataModeActive
	Init   []byte
}

// Memory is a module-defined or imported memory.
type Memory struct {
	Type      MemoryType
	ImportIdx int
}

func (m *Memory) IsImported() bool { return m.ImportIdx >= 0 }

// Module is the top-level IR container: every expression referenced by a
// Function.Body or initializer lives in Arena, every signature/type in
// Types. Disposing the module (via Arena.Dispose) invalidates every Handle
// derived from it; Types is never disposed since it is process-global.
type Module struct {
	Arena *Arena
	Types *TypeStore

	Imports   []*Import
	Functions []*Function
	Tables    []*Table
	Memories  []*Memory
	Globals   []*Global
	Exports   []*Export

	// Start, if non-nil, is the index (in the function index space,
	// imports first) of the start function.
	Start *uint32

	// DataSegments initialize ranges of linear memory 0 at instantiation
	// (active) or on demand via memory.init (passive).
	DataSegments []DataSegment

	// Custom sections are preserved verbatim unless a specific pass
	// understands them.
	CustomSections []CustomSection
}

// CustomSection is an opaque, name-tagged payload from the binary's custom
// section (id 0). Only a pass that specifically understands Name should
// interpret Data.
type CustomSection struct {
	Name string
	Data []byte
}

// NewModule returns an empty module backed by a fresh Arena and the given
// (possibly shared) TypeStore.
func NewModule(types *TypeStore) *Module {
	if types == nil {
		types = NewTypeStore()
	}
	return &Module{Arena: NewArena(), Types: types}
}

// Dispose releases the module's arena. The TypeStore, being process-global,
// is left untouched.
func (m *Module) Dispose() { m.Arena.Dispose() }

// FuncCount returns the total number of functions, imported and defined.
func (m *Module) FuncCount() int { return len(m.Functions) }

// NumImportedFuncs returns how many functions are imports (they are always
// sorted first in the function index space, per the binary format).
func (m *Module) NumImportedFuncs() int {
	n := 0
	for _, f := range m.Functions {
		if f.IsImported() {
			n++
		}
	}
	return n
}

// DefinedFunctions returns the functions with a body, preserving index
// order.
func (m *Module) DefinedFunctions() []*Function {
	var out []*Function
	for _, f := range m.Functions {
		if !f.IsImported() {
			out = append(out, f)
		}
	}
	return out
}
