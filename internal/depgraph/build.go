package depgraph

import (
	"sort"

	"github.com/rc-lang/rc/internal/ir"
	"github.com/rc-lang/rc/internal/rcerrors"
)

func panicMissingFunction(name string) {
	panic(rcerrors.MissingFunction(name))
}

// opaqueReturnStub is the same upper-bound approximation FixedPoint's
// divergence fallback installs: an opaque root, no further structure.
// Used to break a mutual-recursion cycle the driver hasn't finished
// installing an approximation for yet.
func opaqueReturnStub(argCount int) *Graph {
	g := emptyGraph(argCount + 1)
	g.Nodes[0] = Node{Weight: Opaque, Deps: &DepSet{Kind: Xor}}
	for p := 1; p <= argCount; p++ {
		g.AllocedArgs[p] = true
		g.Nodes[p].Weight = Opaque
	}
	return g
}

// BuildGraph runs the non-recursive construction of spec.md §4.2 over
// f. retAllocated seeds node 0 as Opaque before propagation, used by
// FixedPoint's divergence fallback (§4.3) to collect alloced_args
// under the assumption that the return is boxed.
func BuildGraph(ctx *Context, f *ir.Func, retAllocated bool) *Graph {
	g := emptyGraph(f.PlaceCount())
	if retAllocated {
		g.Nodes[0].Weight = Opaque
	}

	// Step 1 (phis): a phi's target is a pure choice among its
	// options, independent of statement order since phi targets are
	// never reassigned by statements.
	for _, b := range f.Blocks {
		for _, phi := range b.Phis {
			preds := make([]int, 0, len(phi.Opts))
			for pred := range phi.Opts {
				preds = append(preds, pred)
			}
			sort.Ints(preds)

			refs := make([]int, len(preds))
			for i, pred := range preds {
				refs[i] = phi.Opts[pred]
			}
			g.Nodes[phi.Place] = Node{Weight: Plain, Deps: &DepSet{Kind: Xor, Refs: refs}}
		}
	}

	// Step 2: statement sweep, in program order.
	for _, b := range f.Blocks {
		for _, s := range b.Stmts {
			a, ok := s.(*ir.Assign)
			if !ok {
				continue
			}
			buildAssign(ctx, g, a)
		}
	}

	// Step 3: block terminators feed Return places into the root's
	// Xor deps. By convention every exit block assigns its result into
	// place 0 before returning it (so node 0 already mirrors that
	// shape from step 2); this only adds information for the unusual
	// case of a Return naming some other place directly, without an
	// intervening copy into 0.
	for _, b := range f.Blocks {
		if ret, ok := b.Term.(ir.Return); ok && ret.P != 0 {
			g.Nodes[0].Deps.Refs = append(g.Nodes[0].Deps.Refs, ret.P)
		}
	}

	// Step 4: allocation propagation, downward-closed. The retAllocated
	// seed is applied again here, since step 2 rebuilds node 0 from the
	// statement that assigns the return place and drops the first one.
	if retAllocated {
		g.Nodes[0].Weight = Opaque
	}
	propagateOpacity(g)

	// Step 5 + 6: reachability from the root, then populate NewLives
	// and AllocedArgs.
	reachable := map[int]bool{}
	for _, n := range g.Preorder() {
		reachable[n] = true
	}

	for n := range reachable {
		isParam := n >= 1 && n <= f.ArgCount
		pureXorSelector := g.Nodes[n].Deps != nil && g.Nodes[n].Deps.Kind == Xor
		if !isParam && !pureXorSelector {
			g.NewLives[n] = true
		}
	}
	for p := 1; p <= f.ArgCount; p++ {
		if g.Nodes[p].Allocated() {
			g.AllocedArgs[p] = true
		}
	}

	return g
}

func buildAssign(ctx *Context, g *Graph, a *ir.Assign) {
	switch v := a.Value.(type) {
	case ir.PlaceValue:
		g.Nodes[a.Place] = Node{Weight: Plain, Deps: &DepSet{Kind: Xor, Refs: []int{v.Place}}}

	case ir.CallValue:
		switch v.Func {
		case ir.IntrinsicTuple:
			g.Nodes[a.Place] = Node{Weight: Opaque, Deps: &DepSet{Kind: All, Refs: append([]int(nil), v.Args...)}}
		case ir.IntrinsicInvent:
			g.Nodes[a.Place] = Node{Weight: Plain, Deps: &DepSet{Kind: All}}
		case ir.IntrinsicPrint:
			// sink: no dependency on the (unit) result.
		default:
			if ctx.Constructors[v.Func] {
				g.Nodes[a.Place] = Node{Weight: Opaque, Deps: &DepSet{Kind: All, Refs: append([]int(nil), v.Args...)}}
				return
			}
			callee := ctx.GraphFor(v.Func)
			mergeIn(g, a.Place, callee, v.Args)
		}
	}
}

// propagateOpacity enforces opacity closure both ways (spec.md §4.2
// step 4, "allocation propagation"):
//
//   - Downward, for every Kind: a node that is Opaque demands each of
//     its dependencies be separately boxed too — an All/product parent
//     needs its fields individually addressable; a Xor/choice parent
//     needs whichever option was taken to already be in the one
//     representation the parent promises its own users.
//   - Upward, for Xor only: a phi or copy unifies several options into
//     one physical place, so if any option is Opaque the place itself
//     must be Opaque to hold it — there is no way to store a boxed
//     value somewhere that only ever holds inline ones. All/product
//     nodes do not get this treatment: one opaque field does not make
//     the aggregate's *other*, unrelated fields need boxing on its
//     behalf, only the aggregate node itself (which is always
//     constructed Opaque already, spec.md §3 "Intrinsics").
//
// Both directions are folded into one worklist: marking a node Opaque
// enqueues its dependencies (downward) and every node that reaches it
// through a Xor dep set (upward), so the two closures reach a single
// joint fixed point.
func propagateOpacity(g *Graph) {
	xorParents := make(map[int][]int)
	for i, n := range g.Nodes {
		if n.Deps == nil || n.Deps.Kind != Xor {
			continue
		}
		for _, r := range n.Deps.Refs {
			xorParents[r] = append(xorParents[r], i)
		}
	}

	queue := make([]int, 0, len(g.Nodes))
	inQueue := make([]bool, len(g.Nodes))
	mark := func(i int) {
		if i >= len(g.Nodes) || g.Nodes[i].Weight == Opaque {
			return
		}
		g.Nodes[i].Weight = Opaque
		if !inQueue[i] {
			queue = append(queue, i)
			inQueue[i] = true
		}
	}

	for i, n := range g.Nodes {
		if n.Weight == Opaque {
			queue = append(queue, i)
			inQueue[i] = true
		}
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		inQueue[i] = false

		if deps := g.Nodes[i].Deps; deps != nil {
			for _, r := range deps.Refs {
				mark(r)
			}
		}
		for _, p := range xorParents[i] {
			mark(p)
		}
	}
}
