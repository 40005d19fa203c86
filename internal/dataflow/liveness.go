package dataflow

import "github.com/mavity/binaryen-fork/internal/ir"

// Liveness holds, per block, the set of local indices live on entry and on
// exit: an index is live at a point if some path from that point reads it
// before any path redefines it.
type Liveness struct {
	LiveIn  map[BlockID]map[uint32]bool
	LiveOut map[BlockID]map[uint32]bool
}

type access struct {
	idx uint32
	def bool
}

// orderedAccesses lists every local.get/local.set/local.tee access reachable
// from h, in evaluation order: children evaluate before the node that holds
// them takes its own effect, so a local.set's value expression is scanned
// before the set itself is recorded as a def. local.tee records its def
// immediately followed by its own use, matching "write, then evaluate to the
// written value".
func orderedAccesses(arena *ir.Arena, h ir.Handle) []access {
	if h.IsNil() {
		return nil
	}
	var accs []access
	ir.Post(arena, &h, func(arena *ir.Arena, slot *ir.Handle) {
		e := arena.Get(*slot)
		switch e.Kind {
		case ir.KindLocalGet:
			accs = append(accs, access{idx: e.VarIndex, def: false})
		case ir.KindLocalSet:
			accs = append(accs, access{idx: e.VarIndex, def: true})
		case ir.KindLocalTee:
			accs = append(accs, access{idx: e.VarIndex, def: true})
			accs = append(accs, access{idx: e.VarIndex, def: false})
		}
	})
	return accs
}

// blockGenKill computes b's gen (indices read before any write to them,
// within b) and kill (indices written somewhere in b) sets.
func blockGenKill(arena *ir.Arena, b *Block) (gen, kill map[uint32]bool) {
	gen = map[uint32]bool{}
	kill = map[uint32]bool{}
	handles := b.Insts
	if !b.Term.IsNil() {
		term := b.Term
		// An if's arms are lowered into their own blocks; only its
		// condition is evaluated in b.
		if e := arena.Get(term); e.Kind == ir.KindIf {
			term = e.Cond
		}
		handles = append(append([]ir.Handle{}, handles...), term)
	}
	for _, h := range handles {
		for _, a := range orderedAccesses(arena, h) {
			if a.def {
				kill[a.idx] = true
				continue
			}
			if !kill[a.idx] {
				gen[a.idx] = true
			}
		}
	}
	return gen, kill
}

// ComputeLiveness runs the standard backward dataflow fixed point:
//
//	out[b] = union of in[s] for every successor s
//	in[b]  = gen[b] U (out[b] - kill[b])
//
// over every block in g, to a fixed point.
func ComputeLiveness(arena *ir.Arena, g *CFG) *Liveness {
	gens := make(map[BlockID]map[uint32]bool, len(g.Blocks))
	kills := make(map[BlockID]map[uint32]bool, len(g.Blocks))
	liveIn := make(map[BlockID]map[uint32]bool, len(g.Blocks))
	liveOut := make(map[BlockID]map[uint32]bool, len(g.Blocks))
	for _, b := range g.Blocks {
		gen, kill := blockGenKill(arena, b)
		gens[b.ID] = gen
		kills[b.ID] = kill
		liveIn[b.ID] = map[uint32]bool{}
		liveOut[b.ID] = map[uint32]bool{}
	}

	changed := true
	for changed {
		changed = false
		for i := len(g.Blocks) - 1; i >= 0; i-- {
			b := g.Blocks[i]
			out := map[uint32]bool{}
			for _, s := range b.Succs {
				for idx := range liveIn[s] {
					out[idx] = true
				}
			}
			in := map[uint32]bool{}
			for idx := range gens[b.ID] {
				in[idx] = true
			}
			for idx := range out {
				if !kills[b.ID][idx] {
					in[idx] = true
				}
			}
			if !setEqual(in, liveIn[b.ID]) {
				liveIn[b.ID] = in
				changed = true
			}
			if !setEqual(out, liveOut[b.ID]) {
				liveOut[b.ID] = out
				changed = true
			}
		}
	}
	return &Liveness{LiveIn: liveIn, LiveOut: liveOut}
}

func setEqual(a, b map[uint32]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// LiveAt reports whether local idx is live on entry to block b.
func (lv *Liveness) LiveAt(b BlockID, idx uint32) bool {
	return lv.LiveIn[b][idx]
}
