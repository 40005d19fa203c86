package effect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlagsString(t *testing.T) {
	require.Equal(t, "pure", Flags(0).String())
	require.Equal(t, "reads_local|may_trap", (ReadsLocal | MayTrap).String())
}

func TestFlagsPure(t *testing.T) {
	require.True(t, Flags(0).Pure())
	require.False(t, Flags(ReadsMemory).Pure())
}

func TestInterferesControlTransfer(t *testing.T) {
	a := Effects{Flags: ControlTransfer}
	b := Effects{}
	require.True(t, Interferes(a, b), "control transfer must interfere with everything")
}

func TestInterferesMemory(t *testing.T) {
	write := Effects{Flags: WritesMemory}
	read := Effects{Flags: ReadsMemory}
	require.True(t, Interferes(write, read), "a memory write must interfere with a memory read")
	require.False(t, Interferes(read, read), "two pure memory reads must not interfere")
}

func TestInterferesLocalByIndex(t *testing.T) {
	setLocal0 := Effects{Flags: WritesLocal, WriteLocals: []uint32{0}}
	getLocal1 := Effects{Flags: ReadsLocal, ReadLocals: []uint32{1}}
	require.False(t, Interferes(setLocal0, getLocal1), "writing local 0 must not interfere with reading local 1")

	getLocal0 := Effects{Flags: ReadsLocal, ReadLocals: []uint32{0}}
	require.True(t, Interferes(setLocal0, getLocal0), "writing local 0 must interfere with reading local 0")
}

func TestInterferesAllLocals(t *testing.T) {
	call := Effects{Flags: WritesLocal, AllLocals: true}
	getLocal5 := Effects{Flags: ReadsLocal, ReadLocals: []uint32{5}}
	require.True(t, Interferes(call, getLocal5), "an all-locals writer must interfere with any local read")
}

func TestUnionMergesLocalsAndDedups(t *testing.T) {
	a := Effects{Flags: WritesLocal, WriteLocals: []uint32{3, 1}}
	b := Effects{Flags: WritesLocal, WriteLocals: []uint32{1, 2}}
	out := a.union(b)
	require.Equal(t, []uint32{1, 2, 3}, out.WriteLocals)
}
