package lva

import "github.com/rc-lang/rc/internal/ir"

// PointSets is one block's exact live-set at every point a statement
// could be inserted: index -1 is "before the block's phis run" (the
// point where live_in applies before phi effects), indices 0..len(Stmts)-1
// sit between statement i-1 and statement i, and index len(Stmts) is
// "after the terminator" (live_out). internal/mmgmt indexes this with
// the same convention when deciding where a Dup or Drop belongs.
type PointSets struct {
	// Live maps a point (-1..len(Stmts)) to the set of places live at
	// that point.
	Live map[int]map[int]bool
}

// PointWise refines Analyze's per-block LiveIn/LiveOut into an exact
// live set at every statement boundary, by walking each block's
// statements in reverse from LiveOut and undoing each statement's
// effect (a def stops being live before the statement that produced
// it; each use starts being live before the statement that needs it).
func PointWise(f *ir.Func, sets []*BlockSets) []*PointSets {
	out := make([]*PointSets, len(f.Blocks))
	for bi, b := range f.Blocks {
		bs := sets[bi]
		n := len(b.Stmts)

		live := map[int]bool{}
		for p := range bs.LiveOut {
			live[p] = true
		}

		points := make(map[int]map[int]bool, n+2)
		points[n] = cloneSet(live)

		for i := n - 1; i >= 0; i-- {
			switch s := b.Stmts[i].(type) {
			case *ir.Assign:
				delete(live, s.Place)
				switch val := s.Value.(type) {
				case ir.PlaceValue:
					live[val.Place] = true
				case ir.CallValue:
					for _, a := range val.Args {
						live[a] = true
					}
				}
			case *ir.Dup:
				live[s.Place] = true
			case *ir.Drop:
				live[s.Place] = true
			case *ir.Deallocate:
				live[s.Place] = true
			}
			points[i] = cloneSet(live)
		}

		// Point -1: before this block's own phis run, a phi's target
		// is not yet live (it doesn't exist before the phi assigns it),
		// so -1 is bs.LiveIn plus, for every phi whose target is live
		// before statement 0, all the source places that phi may select.
		before := cloneSet(bs.LiveIn)
		for _, phi := range b.Phis {
			if live[phi.Place] {
				delete(before, phi.Place)
				for _, src := range phi.Opts {
					before[src] = true
				}
			}
		}
		points[-1] = before

		out[bi] = &PointSets{Live: points}
	}
	return out
}

func cloneSet(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for p := range m {
		out[p] = true
	}
	return out
}
