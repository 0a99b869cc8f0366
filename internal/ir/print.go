package ir

import (
	"fmt"
	"sort"
	"strings"
)

// String renders a function's CFG in the same terse notation the
// analysis passes reason about: "_N" for places, one block per
// paragraph, phi nodes first.
func (f *Func) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s%s:\n", f.Name, argList(argRange(f.ArgCount)))
	for i, bb := range f.Blocks {
		fmt.Fprintf(&b, "%d: %s", i, bb.String())
	}
	return b.String()
}

func (bb *BasicBlock) String() string {
	var b strings.Builder
	b.WriteString("{\n")
	for _, phi := range bb.Phis {
		fmt.Fprintf(&b, "\tlet _%d = phi%s;\n", phi.Place, namedArgList(phi.Opts))
	}
	for _, s := range bb.Stmts {
		fmt.Fprintf(&b, "\t%s;\n", stmtString(s))
	}
	if bb.Term != nil {
		fmt.Fprintf(&b, "\t%s\n", bb.Term)
	} else {
		b.WriteString("\tdeadend\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func stmtString(s Stmt) string {
	switch s := s.(type) {
	case *Assign:
		prefix := ""
		if s.Allocate {
			prefix = "alloc "
		}
		return fmt.Sprintf("let _%d = %s%v", s.Place, prefix, s.Value)
	case *Dup:
		return fmt.Sprintf("dup(_%d, %d)", s.Place, s.Count)
	case *Drop:
		return fmt.Sprintf("drop(_%d, %d)", s.Place, s.Count)
	case *Deallocate:
		return fmt.Sprintf("deallocate(_%d)", s.Place)
	case *Nop:
		return "nop"
	default:
		return fmt.Sprintf("<unknown stmt %T>", s)
	}
}

func (v PlaceValue) String() string { return fmt.Sprintf("_%d", v.Place) }

func (v CallValue) String() string {
	return fmt.Sprintf("%s%s", v.Func, argList(v.Args))
}

func (t Goto) String() string   { return fmt.Sprintf("goto -> %d", t.B) }
func (t Return) String() string { return fmt.Sprintf("return _%d", t.P) }
func (t IfElse) String() string {
	return fmt.Sprintf("goto -> if _%d { %d } else { %d }", t.Cond, t.Iff, t.Elsee)
}

func argRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func argList(args []int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "_%d", a)
	}
	b.WriteByte(')')
	return b.String()
}

func namedArgList(opts map[int]int) string {
	preds := make([]int, 0, len(opts))
	for p := range opts {
		preds = append(preds, p)
	}
	sort.Ints(preds)

	var b strings.Builder
	b.WriteByte('(')
	for i, p := range preds {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d: _%d", p, opts[p])
	}
	b.WriteByte(')')
	return b.String()
}
