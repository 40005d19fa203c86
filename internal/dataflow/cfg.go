// Package dataflow derives control-flow, dominance, def-use, and liveness
// facts from a function body. Every analysis here is a pure function of the
// IR at the time it is built: nothing is cached across a mutation, so a
// pass that changes the tree must rebuild whatever it depends on afterward.
package dataflow

import "github.com/mavity/binaryen-fork/internal/ir"

// BlockID identifies one basic block within a CFG. Block 0 is always the
// function's entry block.
type BlockID int

// Block is a maximal straight-line run of instructions: control only enters
// at its first instruction and only leaves at its last.
type Block struct {
	ID BlockID

	// Insts holds every non-terminating instruction in the block, in
	// execution order. It never itself contains a control-transfer
	// instruction; those close out the block via Term instead.
	Insts []ir.Handle

	// Term is the instruction (KindBreak, KindBrTable, KindReturn,
	// KindUnreachable, or a KindIf whose arms start new blocks) that ends
	// this block, or the nil handle if the block simply falls through to its
	// sole successor.
	Term ir.Handle

	Succs []BlockID
	Preds []BlockID

	// IsLoopHeader marks a block that is the target of a loop's implicit
	// back edge (the loop's own label target).
	IsLoopHeader bool
}

// CFG is the control-flow graph of one function body.
type CFG struct {
	Blocks []*Block
	Entry  BlockID
}

func (g *CFG) Block(id BlockID) *Block { return g.Blocks[id] }

func (g *CFG) newBlock() BlockID {
	id := BlockID(len(g.Blocks))
	g.Blocks = append(g.Blocks, &Block{ID: id})
	return id
}

func (g *CFG) link(from, to BlockID) {
	g.Blocks[from].Succs = append(g.Blocks[from].Succs, to)
	g.Blocks[to].Preds = append(g.Blocks[to].Preds, from)
}

// cfgBuilder lowers the tree of nested block/loop/if expressions into basic
// blocks, mirroring funcDecoder's label-depth bookkeeping in the binary
// package: every Block/Loop/If pushes one entry onto labelTargets naming the
// CFG block a branch to that depth resolves to (a loop's own label resolves
// to its header, matching WASM's "br to a loop re-enters it" semantics; a
// block or if's label resolves to the block it exits to).
type cfgBuilder struct {
	arena        *ir.Arena
	g            *CFG
	labelTargets []BlockID
}

// BuildCFG constructs the control-flow graph of the function body rooted at
// root (a KindBlock node, per how the binary reader wraps every function
// body). The returned CFG always has at least one block, even for an empty
// body.
func BuildCFG(arena *ir.Arena, root ir.Handle) *CFG {
	g := &CFG{}
	entry := g.newBlock()
	g.Entry = entry
	b := &cfgBuilder{arena: arena, g: g}

	e := arena.Get(root)
	// Falling off the end of the function body is an implicit return: cur's
	// Term stays the nil handle and it gets no successor, exactly like an
	// explicit KindReturn block, so dominance/liveness need no special case.
	b.lowerSeq(e.Children, entry)
	return g
}

func (b *cfgBuilder) resolveTarget(depth int32) BlockID {
	return b.labelTargets[len(b.labelTargets)-1-int(depth)]
}

// lowerSeq appends children's instructions into cur (creating fresh blocks
// at each nested region), returning the block that falls through (execution
// continues there once every listed instruction has run) and whether
// control instead diverges before reaching the end of the sequence
// (a terminator fired, so no fallthrough block should be linked to
// whatever the caller does next).
func (b *cfgBuilder) lowerSeq(children []ir.Handle, cur BlockID) (BlockID, bool) {
	for _, h := range children {
		e := b.arena.Get(h)
		switch e.Kind {
		case ir.KindBlock:
			exit := b.g.newBlock()
			b.labelTargets = append(b.labelTargets, exit)
			inner, diverged := b.lowerSeq(e.Children, cur)
			b.labelTargets = b.labelTargets[:len(b.labelTargets)-1]
			if !diverged {
				b.g.link(inner, exit)
			}
			// If nothing ever broke to this label and the body always
			// diverges, exit keeps zero predecessors; it stays
			// unreachable from Entry, which is exactly what dominance and
			// liveness should see.
			cur = exit

		case ir.KindLoop:
			header := b.g.newBlock()
			b.g.link(cur, header)
			b.g.Blocks[header].IsLoopHeader = true
			exit := b.g.newBlock()
			b.labelTargets = append(b.labelTargets, header)
			inner, diverged := b.lowerSeq(e.Children, header)
			b.labelTargets = b.labelTargets[:len(b.labelTargets)-1]
			if !diverged {
				b.g.link(inner, exit)
			}
			cur = exit

		case ir.KindIf:
			b.g.Blocks[cur].Term = h
			thenBlk := b.g.newBlock()
			b.g.link(cur, thenBlk)
			exit := b.g.newBlock()
			b.labelTargets = append(b.labelTargets, exit)
			thenEnd, thenDiverged := b.lowerSeq(e.Children, thenBlk)
			if !thenDiverged {
				b.g.link(thenEnd, exit)
			}
			if e.HasElse {
				elseBlk := b.g.newBlock()
				b.g.link(cur, elseBlk)
				elseEnd, elseDiverged := b.lowerSeq(e.Else, elseBlk)
				if !elseDiverged {
					b.g.link(elseEnd, exit)
				}
			} else {
				// No else: the not-taken path falls straight to exit.
				b.g.link(cur, exit)
			}
			b.labelTargets = b.labelTargets[:len(b.labelTargets)-1]
			cur = exit

		case ir.KindBreak:
			b.g.Blocks[cur].Term = h
			target := b.resolveTarget(e.Targets[0])
			b.g.link(cur, target)
			if e.Cond.IsNil() {
				// Unconditional br always diverges; anything lexically
				// after it in this sequence is unreachable.
				return cur, true
			}
			// br_if may fall through; continue lowering into a fresh block
			// linked as the not-taken path.
			fallthroughBlk := b.g.newBlock()
			b.g.link(cur, fallthroughBlk)
			cur = fallthroughBlk

		case ir.KindBrTable:
			b.g.Blocks[cur].Term = h
			for _, t := range e.Targets {
				b.g.link(cur, b.resolveTarget(t))
			}
			b.g.link(cur, b.resolveTarget(e.Default))
			return cur, true

		case ir.KindReturn, ir.KindUnreachable:
			b.g.Blocks[cur].Term = h
			return cur, true

		default:
			b.g.Blocks[cur].Insts = append(b.g.Blocks[cur].Insts, h)
		}
	}
	return cur, false
}
