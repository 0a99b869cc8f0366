// Package report renders a function's CFG, dependency graph and live
// sets as Markdown, and turns that Markdown into HTML (spec.md §6
// "diagnostics"/SPEC_FULL.md's report supplement) the way a reader
// would want to page through them rather than read raw IR dumps.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/rc-lang/rc/internal/depgraph"
	"github.com/rc-lang/rc/internal/ir"
	"github.com/rc-lang/rc/internal/lva"
	"github.com/rc-lang/rc/internal/mmgmt"
)

// Function renders one function's CFG text dump, dependency graph and
// live sets as a Markdown section. g and sets may be nil — a function
// whose graph or liveness hasn't been computed yet (or, for sets,
// whose management pass hasn't run) still gets a CFG dump.
func Function(f *ir.Func, g *depgraph.Graph, sets []*lva.BlockSets) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## `%s`\n\n", f.Name)
	b.WriteString("### Control-flow graph\n\n```\n")
	b.WriteString(f.String())
	b.WriteString("```\n\n")

	if g != nil {
		writeGraph(&b, g)
	}
	if sets != nil {
		writeLiveSets(&b, g, sets)
	}

	return b.String()
}

func writeGraph(b *strings.Builder, g *depgraph.Graph) {
	b.WriteString("### Dependency graph\n\n")
	b.WriteString("| node | weight | kind | refs |\n")
	b.WriteString("|---|---|---|---|\n")
	for i, n := range g.Nodes {
		kind := "All"
		var refs []string
		if n.Deps != nil {
			if n.Deps.Kind == depgraph.Xor {
				kind = "Xor"
			}
			for _, r := range n.Deps.Refs {
				refs = append(refs, fmt.Sprintf("_%d", r))
			}
		}
		fmt.Fprintf(b, "| _%d | %s | %s | %s |\n", i, n.Weight, kind, strings.Join(refs, ", "))
	}
	b.WriteString("\n")

	if len(g.AllocedArgs) > 0 {
		fmt.Fprintf(b, "Allocated arguments: %s\n\n", placeList(g.AllocedArgs))
	}
	if len(g.NewLives) > 0 {
		fmt.Fprintf(b, "New lives: %s\n\n", placeList(g.NewLives))
	}
}

// writeLiveSets renders each block's live-in/live-out place sets, plus
// (when g is available) the live-out reference-count vector a
// borrow-checked emitter would need to tell an exclusive reference
// apart from a shared one (internal/mmgmt's LiveCounters).
func writeLiveSets(b *strings.Builder, g *depgraph.Graph, sets []*lva.BlockSets) {
	b.WriteString("### Live sets\n\n")
	b.WriteString("| block | live-in | live-out | live-out refcounts |\n")
	b.WriteString("|---|---|---|---|\n")
	for i, bs := range sets {
		refs := "—"
		if g != nil {
			refs = counterList(mmgmt.ComputeLiveCounters(g, bs.LiveOut))
		}
		fmt.Fprintf(b, "| %d | %s | %s | %s |\n", i, placeSetList(bs.LiveIn), placeSetList(bs.LiveOut), refs)
	}
	b.WriteString("\n")
}

func counterList(c mmgmt.LiveCounters) string {
	if len(c) == 0 {
		return "∅"
	}
	places := make([]int, 0, len(c))
	for p := range c {
		places = append(places, p)
	}
	sort.Ints(places)
	var parts []string
	for _, p := range places {
		parts = append(parts, fmt.Sprintf("_%d:%d", p, c[p]))
	}
	return strings.Join(parts, ", ")
}

func placeList(m map[int]bool) string {
	places := make([]int, 0, len(m))
	for p := range m {
		places = append(places, p)
	}
	sort.Ints(places)
	var parts []string
	for _, p := range places {
		parts = append(parts, fmt.Sprintf("_%d", p))
	}
	return strings.Join(parts, ", ")
}

func placeSetList(m map[int]bool) string {
	if len(m) == 0 {
		return "∅"
	}
	return placeList(m)
}

// HTML converts a Markdown report (as produced by Function, optionally
// concatenated across several functions) to HTML via goldmark.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
