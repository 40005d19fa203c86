package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/ir"
)

func TestTier2PlaceholdersAreNamedNoOps(t *testing.T) {
	m := newTestModule(t)
	body := block(m, ir.NoneHandle, nop(m))
	addFunc(m, nil, nil, nil, body)

	cases := []struct {
		name string
		run  func(*ir.Module) (bool, error)
	}{
		{"poppify", (Poppify{}).Run},
		{"rereloop", (Rereloop{}).Run},
		{"ssa", (SSA{}).Run},
		{"ssa-nomerge", (SSANoMerge{}).Run},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			changed, err := tc.run(m)
			require.NoError(t, err)
			require.False(t, changed)
		})
	}

	require.Equal(t, "poppify", (Poppify{}).Name())
	require.Equal(t, "rereloop", (Rereloop{}).Name())
	require.Equal(t, "ssa", (SSA{}).Name())
	require.Equal(t, "ssa-nomerge", (SSANoMerge{}).Name())
}
