package passes

import "github.com/mavity/binaryen-fork/internal/pass"

// init populates pass.Bundles for every optimization level, O0 through O4
// plus Os and Oz. Importing this package for its side effect (the CLI and any
// library caller that wants named bundles does exactly that) is enough to
// make every bundle resolvable; nobody else needs to list passes by hand.
//
// O0 is deliberately empty. Each subsequent level is the previous level's
// sequence plus whatever earns its keep at that level: O1 is the cheap,
// always-safe cleanups; O2 adds the analyses that need liveness/dominance;
// O3 adds code motion across larger regions; O4 adds the supplemented
// whole-module passes (inlining, prune-unreachable-functions) that can
// change what else becomes profitable, so they run last and the cheaper
// passes repeat after them. Os/Oz run O2's cheap and liveness passes plus
// the whole-module passes (never licm/code-pushing, which exist to speed up hot code at some
// instruction-count cost) with Oz additionally never running untee, so
// normal-shaped tee expressions don't get expanded and then immediately
// can't be optimized back down since they exist for size.
func init() {
	cheap := func() []pass.Factory {
		return []pass.Factory{
			func() pass.Pass { return Identity{} },
			func() pass.Pass { return Untee{} },
			func() pass.Pass { return DCE{} },
			func() pass.Pass { return SimplifyControlFlow{} },
			func() pass.Pass { return NewPrecompute() },
		}
	}
	liveness := func() []pass.Factory {
		return []pass.Factory{
			func() pass.Pass { return RSE{} },
			func() pass.Pass { return NewLocalCSE() },
			func() pass.Pass { return MergeBlocks{} },
			func() pass.Pass { return CoalesceLocals{} },
		}
	}
	motion := func() []pass.Factory {
		return []pass.Factory{
			func() pass.Pass { return NewLICM() },
			func() pass.Pass { return NewCodePushing() },
			func() pass.Pass { return NewMemoryOptimization() },
		}
	}
	wholeModule := func() []pass.Factory {
		return []pass.Factory{
			func() pass.Pass { return Inlining{} },
			func() pass.Pass { return PruneUnreachableFunctions{} },
		}
	}

	var o1, o2, o3, o4 []pass.Factory
	o1 = append(o1, cheap()...)
	pass.Register("O1", o1...)

	o2 = append(o2, cheap()...)
	o2 = append(o2, liveness()...)
	o2 = append(o2, cheap()...)
	pass.Register("O2", o2...)

	o3 = append(o3, cheap()...)
	o3 = append(o3, liveness()...)
	o3 = append(o3, motion()...)
	o3 = append(o3, cheap()...)
	o3 = append(o3, liveness()...)
	pass.Register("O3", o3...)

	o4 = append(o4, o3...)
	o4 = append(o4, wholeModule()...)
	o4 = append(o4, cheap()...)
	o4 = append(o4, liveness()...)
	pass.Register("O4", o4...)

	var os, oz []pass.Factory
	os = append(os, cheap()...)
	os = append(os, liveness()...)
	os = append(os, wholeModule()...)
	os = append(os, cheap()...)
	os = append(os, liveness()...)
	pass.Register("Os", os...)

	oz = append(oz,
		func() pass.Pass { return Identity{} },
		func() pass.Pass { return DCE{} },
		func() pass.Pass { return SimplifyControlFlow{} },
		func() pass.Pass { return NewPrecompute() },
	)
	oz = append(oz, liveness()...)
	oz = append(oz, wholeModule()...)
	oz = append(oz,
		func() pass.Pass { return Identity{} },
		func() pass.Pass { return DCE{} },
		func() pass.Pass { return SimplifyControlFlow{} },
	)
	oz = append(oz, liveness()...)
	pass.Register("Oz", oz...)

	pass.Register("O0")
	pass.Register("ssa-tier2", // registered so the name resolves; see tier2.go
		func() pass.Pass { return Poppify{} },
		func() pass.Pass { return Rereloop{} },
		func() pass.Pass { return SSA{} },
		func() pass.Pass { return SSANoMerge{} },
	)

	for _, f := range []pass.Factory{
		func() pass.Pass { return Identity{} },
		func() pass.Pass { return Untee{} },
		func() pass.Pass { return DCE{} },
		func() pass.Pass { return SimplifyControlFlow{} },
		func() pass.Pass { return NewPrecompute() },
		func() pass.Pass { return RSE{} },
		func() pass.Pass { return NewLocalCSE() },
		func() pass.Pass { return MergeBlocks{} },
		func() pass.Pass { return CoalesceLocals{} },
		func() pass.Pass { return NewLICM() },
		func() pass.Pass { return NewCodePushing() },
		func() pass.Pass { return NewMemoryOptimization() },
		func() pass.Pass { return Inlining{} },
		func() pass.Pass { return PruneUnreachableFunctions{} },
		func() pass.Pass { return Poppify{} },
		func() pass.Pass { return Rereloop{} },
		func() pass.Pass { return SSA{} },
		func() pass.Pass { return SSANoMerge{} },
	} {
		byName[f().Name()] = f
	}
}

// byName indexes every individual pass by its Name(), so a caller that wants
// one named pass rather than a whole bundle (the CLI's repeatable
// -pass flag) does not need its own copy of this list.
var byName = map[string]pass.Factory{}

// ByName returns the factory for a single pass by its Name(), and whether
// one was found.
func ByName(name string) (pass.Factory, bool) {
	f, ok := byName[name]
	return f, ok
}
