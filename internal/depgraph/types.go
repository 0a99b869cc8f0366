// Package depgraph computes, per function, the dependency graph that
// spec.md §3–§4 describes: a directed graph over (a superset of) the
// function's places that classifies each as Plain or Opaque and
// records how its value is composed (All/product or Xor/choice) out
// of other values, using a recursion-aware fixed point for
// self-recursive functions.
//
// The graph is realized as an arena of Node indexed by integer place
// id (spec.md §9's recommendation), not as cloned subtrees: inlining a
// callee (mergeIn) appends fresh nodes to the arena rather than
// copying a tree.
package depgraph

// Weight classifies a node: Opaque means the value must live behind a
// heap pointer and participates in reference counting; Plain means it
// can live inline with no refcount.
type Weight int

const (
	Plain Weight = iota
	Opaque
)

func (w Weight) String() string {
	if w == Opaque {
		return "Opaque"
	}
	return "Plain"
}

// DepKind distinguishes product composition (All: the node's value is
// built from every listed dependency) from choice composition (Xor:
// the node's value is exactly one of the listed dependencies, induced
// by phi nodes and by IfElse-joined returns).
type DepKind int

const (
	All DepKind = iota
	Xor
)

// DepSet is a node's dependency list, tagged All or Xor.
type DepSet struct {
	Kind DepKind
	Refs []int
}

// Node is one entry of a function's dependency graph.
type Node struct {
	Weight Weight
	Deps   *DepSet
}

// Allocated reports whether the node requires heap allocation.
func (n Node) Allocated() bool { return n.Weight == Opaque }

// Graph is a function's dependency graph: one node per place (plus any
// extra nodes introduced by inlining, spec.md §4.3), the set of
// freshly materialised places that contribute to the return
// (new_lives), and the subset of parameters that must be passed in
// allocated form (alloced_args).
type Graph struct {
	Nodes       []Node
	NewLives    map[int]bool
	AllocedArgs map[int]bool
}

func newLeaf() Node {
	return Node{Weight: Plain, Deps: &DepSet{Kind: All}}
}

func emptyGraph(nodeCount int) *Graph {
	nodes := make([]Node, nodeCount)
	for i := range nodes {
		nodes[i] = newLeaf()
	}
	nodes[0] = Node{Weight: Plain, Deps: &DepSet{Kind: Xor}}
	return &Graph{
		Nodes:       nodes,
		NewLives:    map[int]bool{},
		AllocedArgs: map[int]bool{},
	}
}

// addNode appends a fresh leaf node and returns its index.
func (g *Graph) addNode() int {
	g.Nodes = append(g.Nodes, newLeaf())
	return len(g.Nodes) - 1
}

// Preorder returns every node index reachable from node 0, in
// preorder, visiting each node once regardless of which Deps tag
// brought it in. Used by management insertion to test "does the
// callee's return transitively depend on argument j" (spec.md §4.5).
func (g *Graph) Preorder() []int {
	seen := make(map[int]bool, len(g.Nodes))
	var order []int
	var visit func(int)
	visit = func(n int) {
		if seen[n] || n >= len(g.Nodes) {
			return
		}
		seen[n] = true
		order = append(order, n)
		if d := g.Nodes[n].Deps; d != nil {
			for _, r := range d.Refs {
				visit(r)
			}
		}
	}
	visit(0)
	return order
}
