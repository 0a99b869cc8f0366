// Package lva computes classical backward live-variable analysis over
// a function's control-flow graph, then refines the per-block result
// into exact per-statement-index live sets that internal/mmgmt walks
// to decide where Dup/Drop belong.
package lva

import "github.com/rc-lang/rc/internal/ir"

// BlockSets holds one block's liveness facts. Def, UeVar, PhiIn and
// PhiOut are computed once, from the block's own statements and phis
// and its successors' phis; LiveIn/LiveOut are solved to a fixed point
// over the whole CFG.
//
//   - Def: places the block assigns (locally killed).
//   - UeVar: places the block reads before any local def ("upward
//     exposed" uses) — these are live-in regardless of what any
//     predecessor does.
//   - PhiIn: places this block's own phis read, keyed by which
//     predecessor block supplies them — a phi option is only live-out
//     of the predecessor it names, not of every predecessor.
//   - PhiOut: for a block B, the phi options that B's successors read
//     specifically from B (the per-predecessor slice of each
//     successor's PhiIn that names B).
//   - LiveIn/LiveOut: the solved sets.
type BlockSets struct {
	Def    map[int]bool
	UeVar  map[int]bool
	PhiIn  map[int]map[int]bool // predecessor block -> places read from it by a phi
	PhiOut map[int]bool
	LiveIn map[int]bool
	LiveOut map[int]bool
}

func newBlockSets() *BlockSets {
	return &BlockSets{
		Def:     map[int]bool{},
		UeVar:   map[int]bool{},
		PhiIn:   map[int]map[int]bool{},
		PhiOut:  map[int]bool{},
		LiveIn:  map[int]bool{},
		LiveOut: map[int]bool{},
	}
}

// access records a use of place at the current point, before any
// subsequent def shadows it with a local assignment.
func access(b *BlockSets, place int) {
	if !b.Def[place] {
		b.UeVar[place] = true
	}
}

// Analyze computes Def/UeVar/PhiIn locally, then solves LiveIn/LiveOut
// to a fixed point via the standard backward dataflow equations:
//
//	live_out(B) = phi_out(B) ∪ {p | B's terminator is Return(p)} ∪ ⋃_{S in succ(B)} live_in(S)
//	live_in(B)  = uevar(B) ∪ (live_out(B) \ def(B))
//
// The Return clause is what lets management insertion see the
// returned place as still needing its reference at the very end of
// the block that produces it, even though nothing in the block's own
// statement list reads it again — the terminator is its only reader.
// uevar(B) similarly counts an IfElse terminator's own condition as a
// read, for the same reason: a branch condition is often never named
// by any statement, only by the terminator that switches on it.
//
// where phi_out(B) is, for each successor S, the subset of S's phi
// options that name B as the source block.
func Analyze(f *ir.Func) []*BlockSets {
	sets := make([]*BlockSets, len(f.Blocks))
	for i := range f.Blocks {
		sets[i] = newBlockSets()
	}

	for bi, b := range f.Blocks {
		bs := sets[bi]
		// Phis conceptually run before the block's statements, so
		// their targets must already shadow the block's own reads —
		// record phi facts first.
		for _, phi := range b.Phis {
			for pred, place := range phi.Opts {
				if bs.PhiIn[pred] == nil {
					bs.PhiIn[pred] = map[int]bool{}
				}
				bs.PhiIn[pred][place] = true
			}
			bs.Def[phi.Place] = true
		}
		for _, s := range b.Stmts {
			recordUses(bs, s)
			if a, ok := s.(*ir.Assign); ok {
				bs.Def[a.Place] = true
			}
		}
		if ie, ok := b.Term.(ir.IfElse); ok {
			access(bs, ie.Cond)
		}
	}
	for bi := range f.Blocks {
		for _, succ := range f.Successors(bi) {
			for p := range sets[succ].PhiIn[bi] {
				sets[bi].PhiOut[p] = true
			}
		}
	}

	changed := true
	for changed {
		changed = false
		for bi, b := range f.Blocks {
			bs := sets[bi]

			liveOut := map[int]bool{}
			if ret, ok := b.Term.(ir.Return); ok {
				liveOut[ret.P] = true
			}
			for _, succ := range f.Successors(bi) {
				for p := range sets[succ].LiveIn {
					liveOut[p] = true
				}
				if phiIn, ok := sets[succ].PhiIn[bi]; ok {
					for p := range phiIn {
						liveOut[p] = true
					}
				}
			}

			// bs.PhiIn is intentionally not folded in here: a phi
			// option is predecessor-specific and already surfaces
			// through that predecessor's own live_out computation
			// above (the sets[succ].PhiIn[bi] lookup) — adding it to
			// this block's own live_in as well would leak every
			// option into every predecessor's live_out indiscriminately.
			liveIn := map[int]bool{}
			for p := range bs.UeVar {
				liveIn[p] = true
			}
			for p := range liveOut {
				if !bs.Def[p] {
					liveIn[p] = true
				}
			}

			if !setsEqual(liveIn, bs.LiveIn) || !setsEqual(liveOut, bs.LiveOut) {
				bs.LiveIn = liveIn
				bs.LiveOut = liveOut
				changed = true
			}
		}
	}

	return sets
}

func recordUses(bs *BlockSets, s ir.Stmt) {
	switch v := s.(type) {
	case *ir.Assign:
		switch val := v.Value.(type) {
		case ir.PlaceValue:
			access(bs, val.Place)
		case ir.CallValue:
			for _, a := range val.Args {
				access(bs, a)
			}
		}
	case *ir.Dup:
		access(bs, v.Place)
	case *ir.Drop:
		access(bs, v.Place)
	case *ir.Deallocate:
		access(bs, v.Place)
	}
}

func setsEqual(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for p := range a {
		if !b[p] {
			return false
		}
	}
	return true
}
