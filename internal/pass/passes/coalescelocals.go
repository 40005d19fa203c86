package passes

import (
	"github.com/mavity/binaryen-fork/internal/dataflow"
	"github.com/mavity/binaryen-fork/internal/ir"
)

// CoalesceLocals renumbers a function's non-parameter locals to reuse the
// same slot for two locals whose live ranges never overlap, shrinking the
// local section the same way a register allocator reuses a register.
// Parameters are never recolored, only the part of the index space past
// them (f.Locals), so the function's signature and call sites never need
// to change.
//
// Interference is approximated at block granularity via
// dataflow.ComputeLiveness: two locals interfere if both are live-in, or
// both live-out, of the same basic block. This is a safe under-approximation
// of "live at the same program point" (it never misses a real conflict, it
// can only fail to notice that two locals happen not to overlap strictly
// inside one block), so coloring against it is always sound, if sometimes
// less thorough than a per-instruction liveness model would be. Coloring
// within each value type is greedy first-fit over each local in ascending
// original-index order, which is deterministic and simple rather than
// chromatic-optimal, matching the rest of this pass suite's preference for
// conservative, easily-audited legality over maximal compression.
type CoalesceLocals struct{}

func (CoalesceLocals) Name() string { return "coalesce-locals" }

func (CoalesceLocals) Run(m *ir.Module) (bool, error) {
	changed := false
	for _, f := range m.Functions {
		if f.IsImported() || f.Body.IsNil() {
			continue
		}
		sig, _ := m.Types.LookupSignature(f.Sig)
		if coalesceFunc(m.Arena, f, uint32(len(sig.Params))) {
			changed = true
		}
	}
	return changed, nil
}

func coalesceFunc(arena *ir.Arena, f *ir.Function, paramCount uint32) bool {
	if len(f.Locals) == 0 {
		return false
	}
	n := paramCount + uint32(len(f.Locals))
	cfg := dataflow.BuildCFG(arena, f.Body)
	live := dataflow.ComputeLiveness(arena, cfg)

	interferes := make(map[uint32]map[uint32]bool)
	mark := func(a, b uint32) {
		if a == b || a < paramCount || b < paramCount {
			return
		}
		if interferes[a] == nil {
			interferes[a] = map[uint32]bool{}
		}
		if interferes[b] == nil {
			interferes[b] = map[uint32]bool{}
		}
		interferes[a][b] = true
		interferes[b][a] = true
	}
	for _, b := range cfg.Blocks {
		markPairwise(live.LiveIn[b.ID], mark)
		markPairwise(live.LiveOut[b.ID], mark)
	}

	typeOf := func(idx uint32) ir.ValueType { return f.Locals[idx-paramCount] }

	var typeOrder []ir.ValueType
	seen := map[ir.ValueType]bool{}
	byType := map[ir.ValueType][]uint32{}
	for idx := paramCount; idx < n; idx++ {
		t := typeOf(idx)
		if !seen[t] {
			seen[t] = true
			typeOrder = append(typeOrder, t)
		}
		byType[t] = append(byType[t], idx)
	}

	color := make(map[uint32]uint32, n-paramCount)
	colorCount := make(map[ir.ValueType]uint32, len(typeOrder))
	for _, t := range typeOrder {
		for _, idx := range byType[t] {
			used := map[uint32]bool{}
			for other := range interferes[idx] {
				if typeOf(other) != t {
					continue
				}
				if c, ok := color[other]; ok {
					used[c] = true
				}
			}
			c := uint32(0)
			for used[c] {
				c++
			}
			color[idx] = c
			if c+1 > colorCount[t] {
				colorCount[t] = c + 1
			}
		}
	}

	remap := make(map[uint32]uint32, n-paramCount)
	offset := uint32(0)
	newLocals := make([]ir.ValueType, 0, n-paramCount)
	identity := true
	for _, t := range typeOrder {
		for _, idx := range byType[t] {
			newIdx := paramCount + offset + color[idx]
			remap[idx] = newIdx
			if newIdx != idx {
				identity = false
			}
		}
		for c := uint32(0); c < colorCount[t]; c++ {
			newLocals = append(newLocals, t)
		}
		offset += colorCount[t]
	}
	if identity {
		return false
	}

	ir.Pre(arena, &f.Body, func(arena *ir.Arena, slot *ir.Handle) {
		e := arena.Get(*slot)
		switch e.Kind {
		case ir.KindLocalGet, ir.KindLocalSet, ir.KindLocalTee:
			if e.VarIndex >= paramCount {
				e.VarIndex = remap[e.VarIndex]
			}
		}
	})
	f.Locals = newLocals
	return true
}

func markPairwise(set map[uint32]bool, mark func(a, b uint32)) {
	idxs := make([]uint32, 0, len(set))
	for idx := range set {
		idxs = append(idxs, idx)
	}
	for i := 0; i < len(idxs); i++ {
		for j := i + 1; j < len(idxs); j++ {
			mark(idxs[i], idxs[j])
		}
	}
}
