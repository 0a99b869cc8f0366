package depgraph

// mergeIn inlines callee's graph into g at the call whose result is
// stored at parent, binding callee arg i to args[i-1] (spec.md §4.4).
//
// Callee node 0 (its return) is bound to parent and its deps are
// copied in wholesale — parent is always a freshly introduced place
// (the call's own assign target), so nothing is lost.
//
// Callee nodes 1..ArgCount (its parameters) are bound to the caller's
// existing argument places. A function parameter's node is always a
// leaf in its own graph (parameters are never assignment or phi
// targets, so no statement ever gives one non-trivial Deps) — so only
// its Weight can carry information worth merging in; we OR that
// Opacity requirement onto the caller place rather than overwriting
// its Deps, so a caller place built from a richer expression (e.g. a
// prior tuple(...)) and later also passed as an argument keeps its own
// composition. Step 3's alloced_args forcing below is the general
// mechanism for requiring a passed place to be boxed; this is just
// the specific case of it for the param binding itself.
//
// Every other callee node is callee-internal and gets a fresh caller
// node, with its deps remapped through the table — this is where the
// callee's own structure (its own tuple/constructor calls, its own
// phis) is preserved, per spec.md §4.4's "preserves the callee's
// internal structure".
func mergeIn(g *Graph, parent int, callee *Graph, args []int) {
	rename := make([]int, len(callee.Nodes))
	bound := make([]bool, len(callee.Nodes))

	rename[0] = parent
	bound[0] = true
	for i, a := range args {
		idx := i + 1
		if idx < len(rename) {
			rename[idx] = a
			bound[idx] = true
		}
	}
	for i := range rename {
		if !bound[i] {
			rename[i] = g.addNode()
			bound[i] = true
		}
	}

	remap := func(refs []int) []int {
		if refs == nil {
			return nil
		}
		out := make([]int, len(refs))
		for i, r := range refs {
			if r < len(rename) {
				out[i] = rename[r]
			} else {
				out[i] = r
			}
		}
		return out
	}

	argCount := len(args)
	for i, cn := range callee.Nodes {
		callerIdx := rename[i]

		isParamBinding := i >= 1 && i <= argCount
		if isParamBinding {
			if cn.Weight == Opaque {
				g.Nodes[callerIdx] = Node{Weight: Opaque, Deps: g.Nodes[callerIdx].Deps}
			}
			continue
		}

		var newDeps *DepSet
		if cn.Deps != nil {
			newDeps = &DepSet{Kind: cn.Deps.Kind, Refs: remap(cn.Deps.Refs)}
		}
		g.Nodes[callerIdx] = Node{Weight: cn.Weight, Deps: newDeps}
	}

	// Step 3: force every callee parameter recorded in alloced_args to
	// Opaque in the caller, regardless of whether this call's result
	// is itself allocated.
	for argIdx := range callee.AllocedArgs {
		if argIdx < 1 || argIdx > argCount {
			continue
		}
		callerIdx := rename[argIdx]
		g.Nodes[callerIdx] = Node{Weight: Opaque, Deps: g.Nodes[callerIdx].Deps}
	}
}
