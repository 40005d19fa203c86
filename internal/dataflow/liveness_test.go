package dataflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestLivenessDiamondJoinsBothBranches(t *testing.T) {
	a := ir.NewArena()
	set := a.Alloc(ir.Expr{Kind: ir.KindLocalSet, VarIndex: 0, SetValue: a.Alloc(ir.Expr{Kind: ir.KindConst})})
	cond := a.Alloc(ir.Expr{Kind: ir.KindLocalGet, VarIndex: 1})
	thenUse := a.Alloc(ir.Expr{Kind: ir.KindDrop, Operand: a.Alloc(ir.Expr{Kind: ir.KindLocalGet, VarIndex: 0})})
	elseUse := a.Alloc(ir.Expr{Kind: ir.KindDrop, Operand: a.Alloc(ir.Expr{Kind: ir.KindLocalGet, VarIndex: 0})})
	ifExpr := a.Alloc(ir.Expr{
		Kind: ir.KindIf, Cond: cond,
		Children: []ir.Handle{thenUse},
		Else:     []ir.Handle{elseUse},
		HasElse:  true,
	})
	body := a.Alloc(ir.Expr{Kind: ir.KindBlock, Label: -1, Children: []ir.Handle{set, ifExpr}})

	g := BuildCFG(a, body)
	lv := ComputeLiveness(a, g)

	require.True(t, lv.LiveOut[g.Entry][0], "local 0 must be live out of entry: both branches read it")
	require.False(t, lv.LiveIn[g.Entry][0], "local 0 is defined in entry before either branch runs, so it is not live-in")
	require.True(t, lv.LiveAt(g.Entry, 1), "the if's own condition is read in entry and never redefined there")
}

func TestLivenessUpwardExposedUse(t *testing.T) {
	a := ir.NewArena()
	use := a.Alloc(ir.Expr{Kind: ir.KindDrop, Operand: a.Alloc(ir.Expr{Kind: ir.KindLocalGet, VarIndex: 0})})
	body := a.Alloc(ir.Expr{Kind: ir.KindBlock, Label: -1, Children: []ir.Handle{use}})

	g := BuildCFG(a, body)
	lv := ComputeLiveness(a, g)
	require.True(t, lv.LiveIn[g.Entry][0], "a read with no preceding def in the block is upward-exposed")
}

func TestLivenessKillThenUseIsNotUpwardExposed(t *testing.T) {
	a := ir.NewArena()
	set := a.Alloc(ir.Expr{Kind: ir.KindLocalSet, VarIndex: 0, SetValue: a.Alloc(ir.Expr{Kind: ir.KindConst})})
	use := a.Alloc(ir.Expr{Kind: ir.KindDrop, Operand: a.Alloc(ir.Expr{Kind: ir.KindLocalGet, VarIndex: 0})})
	body := a.Alloc(ir.Expr{Kind: ir.KindBlock, Label: -1, Children: []ir.Handle{set, use}})

	g := BuildCFG(a, body)
	lv := ComputeLiveness(a, g)
	require.False(t, lv.LiveIn[g.Entry][0], "the def precedes the use within the same block, so nothing flows in from outside")
}
