package depgraph

import (
	"log"

	"github.com/rc-lang/rc/internal/ir"
)

// maxFixedPointIterations bounds the recomputation loop FixedPoint
// runs once a self-recursive approximation is installed. 50 is a
// generous multiple of any block count this language's CFGs produce;
// hitting it means the analysis has failed to converge, not that a
// legitimate program needs more rounds.
const maxFixedPointIterations = 50

// FixedPoint computes f's dependency graph, handling self-recursion
// per spec.md §4.3: a direct BuildGraph over a self-recursive f would
// recurse into GraphFor(f.Name) before f's own graph exists. Instead:
//
//  1. Bootstrap: clone f's CFG, sever every self-recursive call by
//     killLinearPath, and BuildGraph the severed clone to get a
//     non-recursive first approximation.
//  2. Install that approximation in the context so a recursive call
//     within the *real* f resolves to it.
//  3. Recompute BuildGraph over the real, unsevered f repeatedly,
//     re-installing the result each time, until two consecutive
//     results agree (a fixed point) or maxFixedPointIterations is hit.
//  4. If it never stabilizes, fall back to forcing the return Opaque
//     (the safe upper bound) and run one further pass whose only job
//     is to collect AllocedArgs under that assumption.
//
// Functions with no self-recursive call need no real iteration: the
// bootstrap clone is identical to f (killLinearPath is a no-op), so
// the "first approximation" already equals the real answer, and the
// loop stops at its second round, the first one that has a previous
// result to compare against.
func FixedPoint(ctx *Context, f *ir.Func) *Graph {
	clone := killLinearPath(f)
	approx := BuildGraph(ctx, clone, false)
	Simplify(approx, f.ArgCount, f.PlaceCount())
	ctx.install(f.Name, approx)

	var prev *Graph
	for i := 0; i < maxFixedPointIterations; i++ {
		cur := BuildGraph(ctx, f, false)
		Simplify(cur, f.ArgCount, f.PlaceCount())
		ctx.install(f.Name, cur)
		if Verbose {
			log.Printf("depgraph: %s: iteration %d, %d nodes", f.Name, i, len(cur.Nodes))
		}
		if prev != nil && graphsEqual(prev, cur) {
			if Verbose {
				log.Printf("depgraph: %s: converged after %d iterations", f.Name, i+1)
			}
			return cur
		}
		prev = cur
	}

	if Verbose {
		log.Printf("depgraph: %s: did not converge within %d iterations, falling back to opaque return", f.Name, maxFixedPointIterations)
	}

	// Divergence fallback: assume the return is allocated, recompute
	// once more purely to harvest AllocedArgs under that assumption,
	// and install the safe opaque-root upper bound.
	forced := BuildGraph(ctx, f, true)
	Simplify(forced, f.ArgCount, f.PlaceCount())
	result := opaqueReturnStub(f.ArgCount)
	for p := range forced.AllocedArgs {
		result.AllocedArgs[p] = true
	}
	ctx.install(f.Name, result)
	return result
}

// Verbose gates the iteration/convergence tracing FixedPoint logs via
// the standard log package. cmd/rc sets this from its -v flag; it
// defaults to off so running the analysis as a library (e.g. from a
// test) stays quiet.
var Verbose bool

func graphsEqual(a, b *Graph) bool {
	if len(a.Nodes) != len(b.Nodes) {
		return false
	}
	for i := range a.Nodes {
		if a.Nodes[i].Weight != b.Nodes[i].Weight {
			return false
		}
		if !depsEqual(a.Nodes[i].Deps, b.Nodes[i].Deps) {
			return false
		}
	}
	if len(a.AllocedArgs) != len(b.AllocedArgs) {
		return false
	}
	for p := range a.AllocedArgs {
		if !b.AllocedArgs[p] {
			return false
		}
	}
	return true
}

// killLinearPath returns a shallow clone of f with every
// self-recursive call (a call to f.Name) and its exclusively-owned
// successor statements blanked out, so BuildGraph can run over it
// without re-entering GraphFor(f.Name). "Exclusively owned" here means
// the rest of the statement list in the same block following the
// recursive call: once the recursive call's result is unknown, nothing
// computed from it downstream in that block can be trusted either, so
// those statements are replaced with invent() to keep their target
// places defined without smuggling in bogus dependency structure.
func killLinearPath(f *ir.Func) *ir.Func {
	hasSelfCall := false
	for _, b := range f.Blocks {
		for _, s := range b.Stmts {
			if a, ok := s.(*ir.Assign); ok {
				if c, ok := a.Value.(ir.CallValue); ok && c.Func == f.Name {
					hasSelfCall = true
				}
			}
		}
	}
	if !hasSelfCall {
		return f
	}

	clone := &ir.Func{
		Name:       f.Name,
		ArgCount:   f.ArgCount,
		PlaceTypes: f.PlaceTypes,
		Blocks:     make([]*ir.BasicBlock, len(f.Blocks)),
	}
	for bi, b := range f.Blocks {
		nb := &ir.BasicBlock{Phis: b.Phis, Term: b.Term}
		killing := false
		for _, s := range b.Stmts {
			if killing {
				if a, ok := s.(*ir.Assign); ok {
					nb.Stmts = append(nb.Stmts, &ir.Assign{
						Place: a.Place,
						Value: ir.CallValue{Func: ir.IntrinsicInvent},
					})
					continue
				}
				nb.Stmts = append(nb.Stmts, s)
				continue
			}
			if a, ok := s.(*ir.Assign); ok {
				if c, ok := a.Value.(ir.CallValue); ok && c.Func == f.Name {
					nb.Stmts = append(nb.Stmts, &ir.Assign{
						Place: a.Place,
						Value: ir.CallValue{Func: ir.IntrinsicInvent},
					})
					killing = true
					continue
				}
			}
			nb.Stmts = append(nb.Stmts, s)
		}
		clone.Blocks[bi] = nb
	}
	return clone
}
