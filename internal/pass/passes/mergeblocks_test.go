package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestMergeBlocksUnwrapsUntargetedSingleChild(t *testing.T) {
	m := newTestModule(t)
	inner := nop(m)
	outer := block(m, ir.NoneHandle, inner)
	body := block(m, ir.NoneHandle, outer)
	addFunc(m, nil, nil, nil, body)

	changed, err := (MergeBlocks{}).Run(m)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, inner, m.Arena.Get(body).Children[0])
}

func TestMergeBlocksKeepsBlockTargetedByBreak(t *testing.T) {
	m := newTestModule(t)
	br := m.Arena.Alloc(ir.Expr{Kind: ir.KindBreak, Type: ir.NoneHandle, Targets: []int32{0}})
	outer := block(m, ir.NoneHandle, br)
	body := block(m, ir.NoneHandle, outer)
	addFunc(m, nil, nil, nil, body)

	changed, err := (MergeBlocks{}).Run(m)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, outer, m.Arena.Get(body).Children[0])
}
