// Package mmgmt inserts the Dup/Drop statements that make every
// Opaque place carry exactly as many live references as it has
// remaining uses, and sets each Assign's Allocate flag for places that
// must be heap-boxed (spec.md §4.5 "management insertion"), ported
// directly from original_source/src/cfg/mem_manage.rs's
// insert_management/live_refs.
package mmgmt

import (
	"sort"

	"github.com/rc-lang/rc/internal/depgraph"
	"github.com/rc-lang/rc/internal/ir"
	"github.com/rc-lang/rc/internal/lva"
)

func isOpaque(g *depgraph.Graph, place int) bool {
	return place >= 0 && place < len(g.Nodes) && g.Nodes[place].Allocated()
}

// LiveCounters is the per-point reference-count vector: for every
// place reachable from a live set's dependency subgraphs, how many
// independent references to it that live set implies. This is exactly
// the folding original_source/src/cfg/analysis/lra.rs calls
// flatten_to_ctrs and uses to tell an Exclusive (count == 1) reference
// apart from a Shared (count > 1) one; management insertion only ever
// needs the zero/nonzero distinction, but the full vector is kept
// addressable here under its own name so a future caller — a
// borrow-checked emitter, a diagnostic report — can read exclusivity
// directly instead of recomputing it.
type LiveCounters map[int]int

// ComputeLiveCounters folds the dependency subgraph of every place in
// live into one counter vector: an All node sums its dependencies'
// vectors, a Xor node takes their elementwise max (only one option is
// ever actually present at once), and recursion stops one level past
// any Opaque node — an Opaque place is its own refcount boundary, so
// whatever is packed inside it does not contribute further references
// to places outside it. The live set's own roots are exempt from that
// stop rule even when a root itself happens to be Opaque, since the
// root is the place actually being asked about, not something nested
// inside another reference.
func ComputeLiveCounters(g *depgraph.Graph, live map[int]bool) LiveCounters {
	total := LiveCounters{}
	for l := range live {
		addInto(total, subtreeCounters(g, l, true))
	}
	return total
}

func subtreeCounters(g *depgraph.Graph, n int, isRoot bool) map[int]int {
	if n < 0 || n >= len(g.Nodes) {
		return map[int]int{}
	}
	node := g.Nodes[n]
	if !isRoot && node.Weight == depgraph.Opaque {
		return map[int]int{n: 1}
	}

	out := map[int]int{}
	if node.Deps != nil {
		switch node.Deps.Kind {
		case depgraph.All:
			for _, d := range node.Deps.Refs {
				addInto(out, subtreeCounters(g, d, false))
			}
		case depgraph.Xor:
			for _, d := range node.Deps.Refs {
				maxInto(out, subtreeCounters(g, d, false))
			}
		}
	}
	out[n]++
	return out
}

func addInto(dst, src map[int]int) {
	for k, v := range src {
		dst[k] += v
	}
}

func maxInto(dst, src map[int]int) {
	for k, v := range src {
		if v > dst[k] {
			dst[k] = v
		}
	}
}

// liveRefs is live_refs from mem_manage.rs: every node of g that is
// both Opaque and still referenced given set's own counter vector —
// either because something live reaches it transitively, or because
// it is itself a member of set.
func liveRefs(g *depgraph.Graph, set map[int]bool) map[int]bool {
	counters := ComputeLiveCounters(g, set)
	out := map[int]bool{}
	for n := range g.Nodes {
		if !isOpaque(g, n) {
			continue
		}
		if counters[n] != 0 || set[n] {
			out[n] = true
		}
	}
	return out
}

// InsertManagement rewrites every block of f in place, fetching f's
// own dependency graph from ctx (which also resolves any callee graph
// a statement's call needs for its passed_ownership computation).
func InsertManagement(ctx *depgraph.Context, f *ir.Func) error {
	g := ctx.GraphFor(f.Name)
	sets := lva.Analyze(f)
	preds := f.Predecessors()

	for bi, b := range f.Blocks {
		// reverseWalk's positions are indices into b.Stmts as it stands
		// before any insertion, so it must be applied on its own first;
		// rule 1's entry drops always belong at the very front of
		// whatever that produces, which position 0 reaches correctly
		// regardless of what reverseWalk already inserted there.
		added := reverseWalk(ctx, g, b, sets[bi])
		b.Stmts = applyInsertions(b.Stmts, added)

		// Rule 1: a block with no predecessors is the entry block; any
		// parameter not live on entry is dead for the whole function
		// and, if Opaque, carries a reference nobody will ever use.
		if len(preds[bi]) == 0 {
			for arg := f.ArgCount; arg >= 1; arg-- {
				if sets[bi].LiveIn[arg] {
					continue
				}
				if isOpaque(g, arg) {
					b.Stmts = insertAt(b.Stmts, 0, &ir.Drop{Place: arg, Count: 1})
				}
			}
		}

		crossEdgeDrops(f, g, bi, sets)
		conditionDrop(f, g, bi, sets)
	}

	return nil
}

type insertion struct {
	pos  int
	stmt ir.Stmt
}

// applyInsertions inserts each recorded statement at its recorded
// position. Positions are produced by reverseWalk in non-increasing
// order (later statements are visited, and so scheduled, before
// earlier ones), so inserting them in that same order against the
// original index numbering is correct: every insertion so far has
// landed at or after the next position to insert, and a slice insert
// never disturbs indices below the point it lands at.
func applyInsertions(stmts []ir.Stmt, added []insertion) []ir.Stmt {
	for _, a := range added {
		stmts = insertAt(stmts, a.pos, a.stmt)
	}
	return stmts
}

func insertAt(stmts []ir.Stmt, pos int, s ir.Stmt) []ir.Stmt {
	if pos >= len(stmts) {
		return append(stmts, s)
	}
	stmts = append(stmts, nil)
	copy(stmts[pos+1:], stmts[pos:])
	stmts[pos] = s
	return stmts
}

// reverseWalk is rule 2: walking a block's statements from last to
// first, decide for each opaque use whether it needs an extra
// reference dup'd in before the statement that makes it (the statement
// takes ownership of it and it is still needed afterward, or it is
// repeated within the statement's own arguments) or needs its one
// reference dropped right after (nothing needs it
// again, and it was not handed off either). live accumulates every
// place known to be needed from this point to the end of the block —
// seeded from the block's own live-out set and grown by each
// statement's uses as the walk proceeds backward — deliberately never
// shrunk by a def, since every place in this language is effectively
// assigned exactly once: a later (lower-index) occurrence of the same
// place number always refers to the same value.
func reverseWalk(ctx *depgraph.Context, g *depgraph.Graph, b *ir.BasicBlock, bs *lva.BlockSets) []insertion {
	var added []insertion

	live := map[int]bool{}
	for p := range bs.LiveOut {
		live[p] = true
	}

	for i := len(b.Stmts) - 1; i >= 0; i-- {
		a, ok := b.Stmts[i].(*ir.Assign)
		if !ok {
			// Dup/Drop/Deallocate/Nop: already settled, and contribute
			// no new use to walk past.
			continue
		}

		placeAlloced := isOpaque(g, a.Place)

		// The statement's own target is frequently part of live (a
		// function's last statement produces exactly the place its
		// Return reads), and that place's own dependency structure
		// necessarily embeds this very statement's args — counting it
		// in would make every argument look externally needed even
		// when the one reference this statement consumes is the only
		// reference anything asks for. Excluding it leaves counters
		// measuring demand from elsewhere only.
		liveExclSelf := live
		if live[a.Place] {
			liveExclSelf = map[int]bool{}
			for p := range live {
				if p != a.Place {
					liveExclSelf[p] = true
				}
			}
		}
		counters := ComputeLiveCounters(g, liveExclSelf)

		var rawUses []int
		passedOwnership := map[int]bool{}

		switch v := a.Value.(type) {
		case ir.PlaceValue:
			if placeAlloced && !isOpaque(g, v.Place) {
				a.Allocate = true
			}
			// A plain copy hands the source's reference to the new
			// place outright — it is not a borrow, and treating it as
			// one would drop a value still needed as this function's
			// own return.
			passedOwnership[v.Place] = true
			rawUses = []int{v.Place}

		case ir.CallValue:
			allocate, owned := classifyCall(ctx, placeAlloced, v.Func, v.Args)
			if placeAlloced {
				a.Allocate = allocate
			}
			passedOwnership = owned
			rawUses = v.Args
		}

		counts := map[int]int{}
		for _, u := range rawUses {
			counts[u]++
		}

		// Dups land at i (before the statement) and drops at i+1 (after
		// it); applyInsertions needs every position across the whole
		// walk in non-increasing order, so within this one statement
		// the i+1 drops must all be appended before the i dups — map
		// iteration over counts has no guaranteed order on its own.
		var dups, drops []insertion
		for u, occurrences := range counts {
			if !isOpaque(g, u) {
				continue
			}
			liveRef := counters[u] != 0 || live[u]

			if passedOwnership[u] {
				// One reference is naturally consumed by the transfer
				// itself; every further occurrence in this same call
				// (tuple(a,a)) needs its own copy, and so does the
				// transfer itself when u is still needed afterward.
				extra := occurrences - 1
				if liveRef {
					extra++
				}
				if extra > 0 {
					dups = append(dups, insertion{i, &ir.Dup{Place: u, Count: extra}})
				}
				continue
			}

			if !liveRef {
				drops = append(drops, insertion{i + 1, &ir.Drop{Place: u, Count: 1}})
			}
		}
		added = append(added, drops...)
		added = append(added, dups...)

		for u := range counts {
			live[u] = true
		}
	}

	return added
}

// classifyCall decides, for a call assigning into a place that may
// need boxing, whether this call site must allocate (box) its own
// result and which of its arguments the call takes ownership of
// (passed_ownership, spec.md §4.5 rule 2). tuple and named constructors
// share buildAssign's own construction rule (an All-composed Opaque
// node built fresh from args) so they are classified identically: a
// freshly allocated product always takes ownership of everything that
// goes into it. invent and print have no callee graph and never hand
// off ownership of what is passed to them — a borrowed read, like any
// other last use that turns out to still be needed elsewhere.
func classifyCall(ctx *depgraph.Context, placeAlloced bool, funcName string, args []int) (allocate bool, passedOwnership map[int]bool) {
	passedOwnership = map[int]bool{}

	switch {
	case funcName == ir.IntrinsicTuple || ctx.Constructors[funcName]:
		allocate = placeAlloced
		if allocate {
			for _, a := range args {
				passedOwnership[a] = true
			}
		}

	case funcName == ir.IntrinsicInvent || funcName == ir.IntrinsicPrint:
		allocate = placeAlloced

	default:
		callee := ctx.GraphFor(funcName)
		if placeAlloced {
			allocate = !callee.Nodes[0].Allocated()
		}
		preorder := map[int]bool{}
		for _, n := range callee.Preorder() {
			preorder[n] = true
		}
		for i, a := range args {
			childArg := i + 1
			if (allocate && preorder[childArg]) || callee.AllocedArgs[childArg] {
				passedOwnership[a] = true
			}
		}
	}

	return allocate, passedOwnership
}

// crossEdgeDrops is rule 4: any opaque reference this block's own
// live-out and counter vector still account for, but that neither of
// a successor's live-in set nor its phis' sources ever reach, is dead
// on arrival at that successor and is dropped at its very first
// instruction. This is what actually retires a reference whose last
// real use was the terminator itself (a branch condition, most
// commonly) rather than any statement reverseWalk ever sees.
func crossEdgeDrops(f *ir.Func, g *depgraph.Graph, bi int, sets []*lva.BlockSets) {
	liveRefOut := liveRefs(g, sets[bi].LiveOut)
	if len(liveRefOut) == 0 {
		return
	}

	for _, succ := range f.Successors(bi) {
		liveIn := map[int]bool{}
		for p := range sets[succ].LiveIn {
			liveIn[p] = true
		}
		for _, phi := range f.Blocks[succ].Phis {
			for _, src := range phi.Opts {
				liveIn[src] = true
			}
		}

		liveRefIn := liveRefs(g, liveIn)

		var dead []int
		for n := range liveRefOut {
			if !liveRefIn[n] {
				dead = append(dead, n)
			}
		}
		sort.Ints(dead)
		for _, n := range dead {
			f.Blocks[succ].Stmts = insertAt(f.Blocks[succ].Stmts, 0, &ir.Drop{Place: n, Count: 1})
		}
	}
}

// conditionDrop is rule 5: a branch condition that is Opaque and not
// otherwise live-out of its block is read exactly once, by the
// terminator, and by nothing reverseWalk ever visits — so without this
// explicit safety net nothing would ever retire its reference. Rule 4
// subsumes this in the common case where the condition also happens
// to be live-out for some other reason, but when it is not, this is
// the only mechanism that drops it; one Drop is inserted at the start
// of each successor, and only one of the two ever actually executes.
func conditionDrop(f *ir.Func, g *depgraph.Graph, bi int, sets []*lva.BlockSets) {
	ifElse, ok := f.Blocks[bi].Term.(ir.IfElse)
	if !ok {
		return
	}
	if sets[bi].LiveOut[ifElse.Cond] || !isOpaque(g, ifElse.Cond) {
		return
	}
	for _, succ := range []int{ifElse.Iff, ifElse.Elsee} {
		f.Blocks[succ].Stmts = insertAt(f.Blocks[succ].Stmts, 0, &ir.Drop{Place: ifElse.Cond, Count: 1})
	}
}
