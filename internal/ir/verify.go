package ir

import (
	"fmt"

	"github.com/rc-lang/rc/internal/rcerrors"
)

// Verify checks the well-formedness invariants the lowering
// collaborator is supposed to guarantee (spec.md §7): every block,
// reachable or not, has a terminator, every phi's option set exactly matches its
// block's predecessors, and every phi/assign target is a declared
// place. It panics on violation, mirroring the sanity-checker idiom of
// golang.org/x/tools/go/ssa/sanity.go and spec.md §7's "the core
// asserts and aborts" — this is a compiler-internal invariant, not a
// user diagnostic, and is recovered only at the cmd/rc boundary.
func (f *Func) Verify() {
	preds := f.Predecessors()

	for i, b := range f.Blocks {
		if b.Term == nil {
			panic(rcerrors.Malformed(fmt.Sprintf("block %d of %s has no terminator", i, f.Name)))
		}

		predSet := make(map[int]bool, len(preds[i]))
		for _, p := range preds[i] {
			predSet[p] = true
		}

		for _, phi := range b.Phis {
			if phi.Place >= f.PlaceCount() {
				panic(rcerrors.Malformed(fmt.Sprintf("phi target _%d in block %d of %s is not a declared place", phi.Place, i, f.Name)))
			}
			if len(phi.Opts) != len(predSet) {
				panic(rcerrors.Malformed(fmt.Sprintf("phi for _%d in block %d of %s has %d options but block has %d predecessors", phi.Place, i, f.Name, len(phi.Opts), len(predSet))))
			}
			for pred, src := range phi.Opts {
				if !predSet[pred] {
					panic(rcerrors.Malformed(fmt.Sprintf("phi for _%d in block %d of %s references non-predecessor block %d", phi.Place, i, f.Name, pred)))
				}
				if src >= f.PlaceCount() {
					panic(rcerrors.Malformed(fmt.Sprintf("phi for _%d in block %d of %s selects undeclared place _%d", phi.Place, i, f.Name, src)))
				}
			}
		}

		for _, s := range b.Stmts {
			a, ok := s.(*Assign)
			if !ok {
				continue
			}
			if a.Place >= f.PlaceCount() {
				panic(rcerrors.Malformed(fmt.Sprintf("assign target _%d in block %d of %s is not a declared place", a.Place, i, f.Name)))
			}
		}

		if ie, ok := b.Term.(IfElse); ok {
			if ie.Iff >= len(f.Blocks) || ie.Elsee >= len(f.Blocks) {
				panic(rcerrors.Malformed(fmt.Sprintf("block %d of %s branches to an undeclared block", i, f.Name)))
			}
		}
		if g, ok := b.Term.(Goto); ok {
			if g.B >= len(f.Blocks) {
				panic(rcerrors.Malformed(fmt.Sprintf("block %d of %s jumps to an undeclared block", i, f.Name)))
			}
		}
	}
}
