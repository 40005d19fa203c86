package ir

// Handle is a copyable, arena-relative reference to an Expr node. The zero
// Handle is never allocated by Arena.Alloc and is used as the "nil" sentinel
// for optional children (e.g. an if without an else).
type Handle uint32

// IsNil reports whether h is the nil handle.
func (h Handle) IsNil() bool { return h == 0 }

// Arena bump-allocates Expr nodes for a single Module. Every handle derived
// from an Arena is valid only while that Arena is live; Dispose invalidates
// all of them at once. There is no per-node free: the arena is released as
// a whole.
//
// Nodes are stored as *Expr, not Expr, specifically so that a pointer handed
// out by Get remains valid even after further allocations grow the backing
// nodes slice and Go's append reallocates it: only the slice of pointers
// moves, never the pointees.
type Arena struct {
	nodes    []*Expr
	disposed bool
}

// NewArena returns an empty, ready-to-use Arena.
func NewArena() *Arena {
	// Index 0 is reserved for Handle's nil sentinel.
	return &Arena{nodes: make([]*Expr, 1)}
}

func (a *Arena) requireLive() {
	if a.disposed {
		panic("ir: use of Arena after Dispose")
	}
}

// Alloc copies e into the arena and returns a handle to it.
func (a *Arena) Alloc(e Expr) Handle {
	a.requireLive()
	node := new(Expr)
	*node = e
	a.nodes = append(a.nodes, node)
	return Handle(len(a.nodes) - 1)
}

// AllocVec allocates each item in items and returns their handles in order.
func (a *Arena) AllocVec(items []Expr) []Handle {
	hs := make([]Handle, len(items))
	for i, it := range items {
		hs[i] = a.Alloc(it)
	}
	return hs
}

// Get dereferences h. It panics on the nil handle, an out-of-range handle,
// or use after Dispose; all of these are programming errors, not expected
// runtime conditions.
func (a *Arena) Get(h Handle) *Expr {
	a.requireLive()
	if h == 0 || int(h) >= len(a.nodes) {
		panic("ir: invalid Handle dereferenced")
	}
	return a.nodes[h]
}

// Len returns the number of live nodes in the arena.
func (a *Arena) Len() int { return len(a.nodes) - 1 }

// Reset discards every node, retaining the arena's backing storage. It is
// not required during normal pass execution; it exists for callers that
// want to reuse one Arena across many short-lived modules (e.g. tests).
func (a *Arena) Reset() {
	a.requireLive()
	a.nodes = a.nodes[:1]
}

// Dispose releases the arena's storage and invalidates every handle derived
// from it. Subsequent Get/Alloc calls panic.
func (a *Arena) Dispose() {
	a.nodes = nil
	a.disposed = true
}

// IsDisposed reports whether Dispose has been called.
func (a *Arena) IsDisposed() bool { return a.disposed }
