package passes

import "github.com/mavity/binaryen-fork/internal/ir"

// Poppify, Rereloop, SSA, and SSANoMerge reshape the whole function body
// representation (stack-IR flattening, relooping a CFG back from flattened
// control flow, and SSA conversion with and without a subsequent
// phi-coalescing merge) rather than rewrite individual expressions in
// place. The arena-backed tree IR here already keeps every function body
// in structured form, so none of the four has a transformation to perform
// against it yet; each is registered as a named, always-available no-op so
// a pass list naming it resolves to a real Pass instead of an unknown-pass
// error.
type Poppify struct{}

func (Poppify) Name() string { return "poppify" }
func (Poppify) Run(*ir.Module) (bool, error) { return false, nil }

type Rereloop struct{}

func (Rereloop) Name() string { return "rereloop" }
func (Rereloop) Run(*ir.Module) (bool, error) { return false, nil }

type SSA struct{}

func (SSA) Name() string { return "ssa" }
func (SSA) Run(*ir.Module) (bool, error) { return false, nil }

type SSANoMerge struct{}

func (SSANoMerge) Name() string { return "ssa-nomerge" }
func (SSANoMerge) Run(*ir.Module) (bool, error) { return false, nil }
