package dataflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

// diamond builds entry -> {then, else} -> exit and returns their IDs.
func diamond(t *testing.T) (*CFG, BlockID, BlockID, BlockID, BlockID) {
	t.Helper()
	a := ir.NewArena()
	cond := a.Alloc(ir.Expr{Kind: ir.KindLocalGet, VarIndex: 0})
	ifExpr := a.Alloc(ir.Expr{
		Kind: ir.KindIf, Cond: cond,
		Children: []ir.Handle{},
		Else:     []ir.Handle{},
		HasElse:  true,
	})
	body := a.Alloc(ir.Expr{Kind: ir.KindBlock, Label: -1, Children: []ir.Handle{ifExpr}})
	g := BuildCFG(a, body)
	require.Len(t, g.Blocks, 4)
	entry := g.Entry
	thenID, elseID := g.Blocks[entry].Succs[0], g.Blocks[entry].Succs[1]
	exitID := g.Blocks[thenID].Succs[0]
	return g, entry, thenID, elseID, exitID
}

func TestDominatorsDiamond(t *testing.T) {
	g, entry, thenID, elseID, exitID := diamond(t)
	d := ComputeDominators(g)

	require.True(t, d.Dominates(entry, thenID))
	require.True(t, d.Dominates(entry, elseID))
	require.True(t, d.Dominates(entry, exitID))
	require.False(t, d.Dominates(thenID, exitID), "then does not dominate exit since else also reaches it")
	require.False(t, d.Dominates(elseID, exitID))

	idom, ok := d.IDom(exitID)
	require.True(t, ok)
	require.Equal(t, entry, idom, "exit's immediate dominator is entry, the join point's nearest common ancestor")
}

func TestDominatorsLCA(t *testing.T) {
	g, entry, thenID, elseID, exitID := diamond(t)
	d := ComputeDominators(g)

	lca, ok := d.LCA(thenID, elseID)
	require.True(t, ok)
	require.Equal(t, entry, lca, "sibling arms meet at the branch")

	lca, ok = d.LCA(thenID, exitID)
	require.True(t, ok)
	require.Equal(t, entry, lca, "exit is not dominated by then, so their meet is entry")

	lca, ok = d.LCA(exitID, exitID)
	require.True(t, ok)
	require.Equal(t, exitID, lca)
}

func TestDominatorsSet(t *testing.T) {
	g, entry, thenID, _, exitID := diamond(t)
	d := ComputeDominators(g)

	require.Equal(t, []BlockID{thenID, entry}, d.Dominators(thenID))
	require.Equal(t, []BlockID{exitID, entry}, d.Dominators(exitID))
	require.Equal(t, []BlockID{entry}, d.Dominators(entry))
}

func TestDominatorsLoopHeaderDominatesItsBody(t *testing.T) {
	a := ir.NewArena()
	cond := a.Alloc(ir.Expr{Kind: ir.KindLocalGet, VarIndex: 0})
	brIf := a.Alloc(ir.Expr{Kind: ir.KindBreak, Targets: []int32{0}, Cond: cond})
	loop := a.Alloc(ir.Expr{Kind: ir.KindLoop, Label: -1, Children: []ir.Handle{brIf}})
	body := a.Alloc(ir.Expr{Kind: ir.KindBlock, Label: -1, Children: []ir.Handle{loop}})
	g := BuildCFG(a, body)
	d := ComputeDominators(g)

	var header BlockID = -1
	for _, b := range g.Blocks {
		if b.IsLoopHeader {
			header = b.ID
		}
	}
	require.NotEqual(t, BlockID(-1), header)
	headers := d.LoopHeaders()
	require.True(t, headers[header])
}

func TestReversePostOrderSkipsUnreachableBlocks(t *testing.T) {
	a := ir.NewArena()
	br := a.Alloc(ir.Expr{Kind: ir.KindBreak, Targets: []int32{1}})
	inner := a.Alloc(ir.Expr{Kind: ir.KindBlock, Label: -1, Children: []ir.Handle{br}})
	outer := a.Alloc(ir.Expr{Kind: ir.KindBlock, Label: -1, Children: []ir.Handle{inner}})
	body := a.Alloc(ir.Expr{Kind: ir.KindBlock, Label: -1, Children: []ir.Handle{outer}})
	g := BuildCFG(a, body)

	// inner's own exit block has nothing linking into it: the br always
	// fires and targets the enclosing outer block, so nothing breaks to
	// inner's label.
	var unreached BlockID = -1
	for _, b := range g.Blocks {
		if len(b.Preds) == 0 && b.ID != g.Entry {
			unreached = b.ID
		}
	}
	require.NotEqual(t, BlockID(-1), unreached)

	d := ComputeDominators(g)
	require.False(t, d.Dominates(g.Entry, unreached), "a block with no path from Entry is not in the dominance relation at all")
}
