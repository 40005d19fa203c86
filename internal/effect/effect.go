// Package effect assigns every expression a conservative description of the
// state it reads, writes, or otherwise disturbs, so that passes can decide
// whether two expressions may be reordered, whether one may be deleted, or
// whether one may be hoisted out of a loop without changing observable
// behavior.
package effect

import "sort"

// Flags is a bitmask of the effect dimensions an expression may exhibit.
// Compound expressions OR their children's flags together with whatever
// their own operator contributes, so Flags is always a monotone
// over-approximation, never an under-approximation.
type Flags uint32

const (
	ReadsLocal Flags = 1 << iota
	WritesLocal
	ReadsGlobal
	WritesGlobal
	ReadsMemory
	WritesMemory
	Calls
	MayTrap
	ControlTransfer
	HasSideEffectOther
)

var flagNames = []struct {
	f Flags
	s string
}{
	{ReadsLocal, "reads_local"},
	{WritesLocal, "writes_local"},
	{ReadsGlobal, "reads_global"},
	{WritesGlobal, "writes_global"},
	{ReadsMemory, "reads_memory"},
	{WritesMemory, "writes_memory"},
	{Calls, "calls"},
	{MayTrap, "may_trap"},
	{ControlTransfer, "control_transfer"},
	{HasSideEffectOther, "has_side_effect_other"},
}

func (f Flags) String() string {
	if f == 0 {
		return "pure"
	}
	s := ""
	for _, fn := range flagNames {
		if f&fn.f != 0 {
			if s != "" {
				s += "|"
			}
			s += fn.s
		}
	}
	return s
}

// Has reports whether every bit set in want is also set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }

// Any reports whether f and want share at least one bit.
func (f Flags) Any(want Flags) bool { return f&want != 0 }

// Union ORs two flag sets together.
func (f Flags) Union(o Flags) Flags { return f | o }

// Pure reports whether f carries no flag at all: an expression this
// analyzer can freely reorder, duplicate, or delete if unused.
func (f Flags) Pure() bool { return f == 0 }

// Effects is the full result of analyzing one expression (or a contiguous
// range of them): a coarse Flags summary plus, for the ReadsLocal/
// WritesLocal dimension, the specific local indices touched. The finer
// local-level detail lets passes such as local-cse and code-pushing avoid
// treating every local.set as interfering with every local.get.
type Effects struct {
	Flags Flags

	// ReadLocals/WriteLocals name the local indices this expression (or any
	// of its descendants) reads/writes, sorted and deduplicated. AllLocals,
	// set only for a call under rigorous analysis, means "every local of the
	// enclosing function" and makes the two slices moot.
	ReadLocals  []uint32
	WriteLocals []uint32
	AllLocals   bool
}

func localEffects(flag Flags, idx uint32, isWrite bool) Effects {
	e := Effects{Flags: flag}
	if isWrite {
		e.WriteLocals = []uint32{idx}
	} else {
		e.ReadLocals = []uint32{idx}
	}
	return e
}

// union merges the receiver with o, the same OR-of-children contract Flags
// documents, extended to the local index bookkeeping.
func (e Effects) union(o Effects) Effects {
	out := Effects{
		Flags:     e.Flags | o.Flags,
		AllLocals: e.AllLocals || o.AllLocals,
	}
	out.ReadLocals = mergeSorted(e.ReadLocals, o.ReadLocals)
	out.WriteLocals = mergeSorted(e.WriteLocals, o.WriteLocals)
	return out
}

func mergeSorted(a, b []uint32) []uint32 {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := append(append([]uint32(nil), a...), b...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	dedup := out[:1]
	for _, v := range out[1:] {
		if v != dedup[len(dedup)-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}

func intersects(a, b []uint32) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Interferes reports whether a and b cannot be freely reordered relative to
// one another: one of them writes state the other reads or writes, one of
// them transfers control, or either carries an effect this analyzer could
// not classify precisely enough to rule out a conflict.
func Interferes(a, b Effects) bool {
	if a.Flags.Any(ControlTransfer) || b.Flags.Any(ControlTransfer) {
		return true
	}
	if a.Flags.Any(HasSideEffectOther) || b.Flags.Any(HasSideEffectOther) {
		return true
	}
	if rwInterferes(a.Flags.Any(WritesMemory), a.Flags.Any(ReadsMemory), b.Flags.Any(WritesMemory), b.Flags.Any(ReadsMemory)) {
		return true
	}
	if rwInterferes(a.Flags.Any(WritesGlobal), a.Flags.Any(ReadsGlobal), b.Flags.Any(WritesGlobal), b.Flags.Any(ReadsGlobal)) {
		return true
	}
	return localInterferes(a, b)
}

func rwInterferes(aWrites, aReads, bWrites, bReads bool) bool {
	return (aWrites && (bReads || bWrites)) || (bWrites && (aReads || aWrites))
}

func localInterferes(a, b Effects) bool {
	aWrites := a.Flags.Any(WritesLocal)
	bWrites := b.Flags.Any(WritesLocal)
	if !aWrites && !bWrites {
		return false
	}
	if a.AllLocals || b.AllLocals {
		return true
	}
	if aWrites && (intersects(a.WriteLocals, b.ReadLocals) || intersects(a.WriteLocals, b.WriteLocals)) {
		return true
	}
	if bWrites && intersects(b.WriteLocals, a.ReadLocals) {
		return true
	}
	return false
}
