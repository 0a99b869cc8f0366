package depgraph

// Simplify rewrites g to a smaller, equivalent graph by repeatedly
// applying four rules to a fixed point, then prunes every node that
// is no longer reachable from the root or from a parameter place
// (spec.md §4.2 step 6's companion cleanup). argCount is f.ArgCount;
// nodes 1..argCount are never pruned or merged away even when they
// happen to be structurally identical to another leaf, since each
// parameter is a distinct binding site that management insertion
// must be able to address on its own. placeCount is f.PlaceCount():
// every place a function declares for itself (not just its parameters
// and return) is also addressed directly by that function's own IR —
// management insertion looks places up by index in this same graph —
// so none of them may be renumbered either, even though a node past
// argCount is otherwise a legitimate target for pruning when nothing
// outside the function ever names it.
func Simplify(g *Graph, argCount, placeCount int) {
	for {
		changed := false
		changed = flattenNestedXor(g) || changed
		changed = shortCircuitSingleXor(g) || changed
		changed = dedupPlainLeaves(g, argCount) || changed
		changed = collapseRoot(g, argCount) || changed
		if !changed {
			break
		}
	}
	prune(g, argCount, placeCount)
}

func isParam(n, argCount int) bool { return n >= 1 && n <= argCount }

// flattenNestedXor splices a chained Xor dependency's own Xor refs
// directly into the parent's ref list, so a phi-of-a-phi reads as one
// flat choice instead of a chain of indirections.
func flattenNestedXor(g *Graph) bool {
	changed := false
	for i, n := range g.Nodes {
		if n.Deps == nil || n.Deps.Kind != Xor {
			continue
		}
		var flat []int
		for _, r := range n.Deps.Refs {
			if r == i || r >= len(g.Nodes) {
				flat = append(flat, r)
				continue
			}
			child := g.Nodes[r]
			if child.Deps != nil && child.Deps.Kind == Xor {
				flat = append(flat, child.Deps.Refs...)
				changed = true
			} else {
				flat = append(flat, r)
			}
		}
		g.Nodes[i].Deps.Refs = flat
	}
	return changed
}

// shortCircuitSingleXor replaces a node whose only option is a single
// ref with a direct alias of that ref's own weight and deps: picking
// among one option is not really a choice.
func shortCircuitSingleXor(g *Graph) bool {
	changed := false
	for i := range g.Nodes {
		n := g.Nodes[i]
		if n.Deps == nil || n.Deps.Kind != Xor || len(n.Deps.Refs) != 1 {
			continue
		}
		r := n.Deps.Refs[0]
		if r == i || r >= len(g.Nodes) {
			continue
		}
		src := g.Nodes[r]
		if n.Weight == src.Weight && depsEqual(n.Deps, src.Deps) {
			continue
		}
		var newDeps *DepSet
		if src.Deps != nil {
			refs := append([]int(nil), src.Deps.Refs...)
			newDeps = &DepSet{Kind: src.Deps.Kind, Refs: refs}
		}
		g.Nodes[i] = Node{Weight: src.Weight, Deps: newDeps}
		changed = true
	}
	return changed
}

// dedupPlainLeaves collapses every plain, non-parameter leaf among a
// node's Xor options down to a single representative. Any two plain
// leaves are interchangeable as a choice — "return this nondescript
// plain value or that nondescript plain value" is the same as "return
// a nondescript plain value" — so distinguishing them by node index is
// not meaningful, even when the indices differ (as they always do
// across repeated inlining rounds, which mint a fresh node per
// callee-internal leaf every time). Without this, a self-recursive
// function's Xor set of plain leaves grows by one on every fixed-point
// iteration and the computation never converges. All (product) dep
// sets are left untouched: two plain leaves held as separate fields of
// a tuple are still two distinct fields, not one, however
// indistinguishable their own content is.
func dedupPlainLeaves(g *Graph, argCount int) bool {
	changed := false
	isPlainLeaf := func(n int) bool {
		if n >= len(g.Nodes) || isParam(n, argCount) {
			return false
		}
		node := g.Nodes[n]
		return node.Weight == Plain && node.Deps != nil && len(node.Deps.Refs) == 0
	}
	for i, n := range g.Nodes {
		if n.Deps == nil || n.Deps.Kind != Xor || len(n.Deps.Refs) < 2 {
			continue
		}
		keptLeaf := false
		var out []int
		for _, r := range n.Deps.Refs {
			if isPlainLeaf(r) {
				if keptLeaf {
					changed = true
					continue
				}
				keptLeaf = true
			}
			out = append(out, r)
		}
		g.Nodes[i].Deps.Refs = out
	}
	return changed
}

// collapseRoot promotes the root's Xor onto its option when that Xor
// has exactly one option and it is not a parameter — e.g. `fn f(a) {
// if c { a } else { invent() } }` keeps two root options and is left
// alone, but a root whose only option is a local expression is
// grafted directly onto that expression's shape so later passes see
// one node instead of an indirection.
func collapseRoot(g *Graph, argCount int) bool {
	root := g.Nodes[0]
	if root.Deps == nil || root.Deps.Kind != Xor {
		return false
	}
	var nonParam []int
	for _, r := range root.Deps.Refs {
		if !isParam(r, argCount) {
			nonParam = append(nonParam, r)
		}
	}
	if len(nonParam) != 1 || len(root.Deps.Refs) != 1 {
		return false
	}
	r := nonParam[0]
	if r == 0 || r >= len(g.Nodes) {
		return false
	}
	src := g.Nodes[r]
	if root.Weight == src.Weight && depsEqual(root.Deps, src.Deps) {
		return false
	}
	var newDeps *DepSet
	if src.Deps != nil {
		refs := append([]int(nil), src.Deps.Refs...)
		newDeps = &DepSet{Kind: src.Deps.Kind, Refs: refs}
	}
	g.Nodes[0] = Node{Weight: src.Weight, Deps: newDeps}
	if src.Deps != nil && src.Deps.Kind == All {
		g.NewLives[0] = true
	}
	return true
}

func depsEqual(a, b *DepSet) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || len(a.Refs) != len(b.Refs) {
		return false
	}
	for i := range a.Refs {
		if a.Refs[i] != b.Refs[i] {
			return false
		}
	}
	return true
}

// prune drops every node unreachable from the root or from a
// parameter place, and renumbers NewLives/AllocedArgs accordingly.
// Place indices 0..placeCount-1 are never renumbered, since they are
// addressed by the function's own IR outside this package; only nodes
// added past PlaceCount() by inlining can move.
func prune(g *Graph, argCount, placeCount int) {
	keep := make(map[int]bool, len(g.Nodes))
	for _, n := range g.Preorder() {
		keep[n] = true
	}
	for p := 0; p <= argCount && p < len(g.Nodes); p++ {
		keep[p] = true
	}

	fixed := placeCount
	if fixed > len(g.Nodes) {
		fixed = len(g.Nodes)
	}
	remap := make([]int, len(g.Nodes))
	for i := range remap {
		remap[i] = -1
	}
	next := fixed
	for i := 0; i < fixed; i++ {
		remap[i] = i
	}
	for i := fixed; i < len(g.Nodes); i++ {
		if keep[i] {
			remap[i] = next
			next++
		}
	}

	nodes := make([]Node, next)
	for i, n := range g.Nodes {
		ni := remap[i]
		if ni < 0 {
			continue
		}
		var newDeps *DepSet
		if n.Deps != nil {
			refs := make([]int, 0, len(n.Deps.Refs))
			for _, r := range n.Deps.Refs {
				if r < len(remap) && remap[r] >= 0 {
					refs = append(refs, remap[r])
				}
			}
			newDeps = &DepSet{Kind: n.Deps.Kind, Refs: refs}
		}
		nodes[ni] = Node{Weight: n.Weight, Deps: newDeps}
	}
	g.Nodes = nodes

	newLives := map[int]bool{}
	for n := range g.NewLives {
		if n < len(remap) && remap[n] >= 0 {
			newLives[remap[n]] = true
		}
	}
	g.NewLives = newLives
}
