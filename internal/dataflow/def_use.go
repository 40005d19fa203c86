package dataflow

import "github.com/mavity/binaryen-fork/internal/ir"

// LocalInfo summarizes every syntactic def (local.set/local.tee) and use
// (local.get, plus local.tee's implicit read-after-write at its own site) of
// one local index across a function body.
type LocalInfo struct {
	Defs []ir.Handle // local.set/local.tee nodes that write this index
	Uses []ir.Handle // local.get/local.tee nodes that read this index
}

// LocalGraph is the per-function local def-use graph: Locals[i] is nil (zero
// Defs and Uses) for an index the body never mentions.
type LocalGraph struct {
	Locals map[uint32]*LocalInfo
}

func (g *LocalGraph) entry(idx uint32) *LocalInfo {
	info, ok := g.Locals[idx]
	if !ok {
		info = &LocalInfo{}
		g.Locals[idx] = info
	}
	return info
}

// BuildLocalGraph walks root (a function body) and records every local
// access it finds. local.tee counts as both a def and a use of its own
// index, since it writes the local and then evaluates to the written value.
func BuildLocalGraph(arena *ir.Arena, root ir.Handle) *LocalGraph {
	g := &LocalGraph{Locals: make(map[uint32]*LocalInfo)}
	ir.Pre(arena, &root, func(arena *ir.Arena, slot *ir.Handle) {
		e := arena.Get(*slot)
		switch e.Kind {
		case ir.KindLocalGet:
			info := g.entry(e.VarIndex)
			info.Uses = append(info.Uses, *slot)
		case ir.KindLocalSet:
			info := g.entry(e.VarIndex)
			info.Defs = append(info.Defs, *slot)
		case ir.KindLocalTee:
			info := g.entry(e.VarIndex)
			info.Defs = append(info.Defs, *slot)
			info.Uses = append(info.Uses, *slot)
		}
	})
	return g
}

// IsUnused reports whether idx has no local.get/local.tee use anywhere in
// the body analyzed.
func (g *LocalGraph) IsUnused(idx uint32) bool {
	info, ok := g.Locals[idx]
	return !ok || len(info.Uses) == 0
}

// HasSingleDef reports whether idx is written exactly once in the body
// (licm requires it of a local.set it hoists out of a loop).
func (g *LocalGraph) HasSingleDef(idx uint32) bool {
	info, ok := g.Locals[idx]
	return ok && len(info.Defs) == 1
}

// HasSingleUse reports whether idx is read exactly once in the body
// (checked, through CanSink, by code-pushing).
func (g *LocalGraph) HasSingleUse(idx uint32) bool {
	info, ok := g.Locals[idx]
	return ok && len(info.Uses) == 1
}

// CanSink reports whether idx has exactly one def and exactly one use, the
// shape code-pushing requires before moving a local.set down to sit
// immediately before its sole use.
func (g *LocalGraph) CanSink(idx uint32) bool {
	return g.HasSingleDef(idx) && g.HasSingleUse(idx)
}
