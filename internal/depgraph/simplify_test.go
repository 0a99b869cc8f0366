package depgraph

import "testing"

// TestDedupPlainLeavesSkipsParameters is the direct test for spec.md
// §9's Xor-dedup-vs-parameters open question: a phi choosing between
// two distinct parameter bindings is not redundant just because both
// parameters happen to carry no further structure of their own.
func TestDedupPlainLeavesSkipsParameters(t *testing.T) {
	g := emptyGraph(3) // return, param 1, param 2
	g.Nodes[0] = Node{Weight: Plain, Deps: &DepSet{Kind: Xor, Refs: []int{1, 2}}}

	Simplify(g, 2, 3)

	if g.Nodes[0].Deps == nil || len(g.Nodes[0].Deps.Refs) != 2 {
		t.Fatalf("Deps = %+v, want both parameter options kept distinct", g.Nodes[0].Deps)
	}
}

// TestDedupPlainLeavesCollapsesNonParameters checks the companion
// case: two freshly introduced, non-parameter plain leaves offered as
// alternatives carry no more information than one, and the pair
// should settle into a single plain leaf.
func TestDedupPlainLeavesCollapsesNonParameters(t *testing.T) {
	g := emptyGraph(1) // return place only, no parameters
	l1 := g.addNode()
	l2 := g.addNode()
	g.Nodes[0] = Node{Weight: Plain, Deps: &DepSet{Kind: Xor, Refs: []int{l1, l2}}}

	Simplify(g, 0, 1)

	if g.Nodes[0].Weight != Plain {
		t.Fatalf("Weight = %v, want Plain", g.Nodes[0].Weight)
	}
	if g.Nodes[0].Deps == nil || len(g.Nodes[0].Deps.Refs) != 0 {
		t.Fatalf("Deps = %+v, want the root to settle into a bare plain leaf", g.Nodes[0].Deps)
	}
}

// TestDedupPreservesProductArity checks that an All (product) dep set
// is never touched by the leaf-collapsing rule: two fields of a tuple
// are two fields even when both happen to be featureless plain leaves.
func TestDedupPreservesProductArity(t *testing.T) {
	g := emptyGraph(1)
	l1 := g.addNode()
	l2 := g.addNode()
	g.Nodes[0] = Node{Weight: Opaque, Deps: &DepSet{Kind: All, Refs: []int{l1, l2}}}

	Simplify(g, 0, 1)

	if len(g.Nodes[0].Deps.Refs) != 2 {
		t.Fatalf("Deps.Refs = %v, want both product fields kept", g.Nodes[0].Deps.Refs)
	}
}

func TestCollapseRootPromotesSoleOption(t *testing.T) {
	g := emptyGraph(1)
	inner := g.addNode()
	g.Nodes[inner] = Node{Weight: Opaque, Deps: &DepSet{Kind: All, Refs: []int{}}}
	g.Nodes[0] = Node{Weight: Plain, Deps: &DepSet{Kind: Xor, Refs: []int{inner}}}

	Simplify(g, 0, 1)

	if g.Nodes[0].Weight != Opaque {
		t.Fatalf("Weight = %v, want the root to inherit its sole option's Opaque weight", g.Nodes[0].Weight)
	}
}
