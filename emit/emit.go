// Package emit lowers internal/ir control-flow graphs to C, grounded
// directly on original_source/src/backend/mod.rs: every place becomes
// a `void *`, every block a goto-label, and Dup/Drop/Deallocate become
// calls into a tiny runtime that the std library half of this package
// also emits.
package emit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/rc-lang/rc/internal/ir"
)

var intrinsicNames = map[string]bool{
	ir.IntrinsicTuple:  true,
	ir.IntrinsicInvent: true,
	ir.IntrinsicPrint:  true,
}

// ToDir mirrors compile_cfgs_to_dir: writes program.c/program.h (one
// function per Func, in the given order) plus a runtime std.c, into
// dir, creating it if necessary.
func ToDir(dir string, funcs []*ir.Func) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	programFile, err := os.Create(filepath.Join(dir, "program.c"))
	if err != nil {
		return err
	}
	defer programFile.Close()

	headerFile, err := os.Create(filepath.Join(dir, "program.h"))
	if err != nil {
		return err
	}
	defer headerFile.Close()

	fmt.Fprintln(programFile, `#include "std.c"`)
	fmt.Fprintln(programFile, `#include "program.h"`)
	fmt.Fprintln(programFile)

	for _, f := range funcs {
		if err := Function(programFile, headerFile, f); err != nil {
			return err
		}
	}

	stdFile, err := os.Create(filepath.Join(dir, "std.c"))
	if err != nil {
		return err
	}
	defer stdFile.Close()
	return WriteStdLib(stdFile)
}

// Function emits one function's C definition to c and its prototype to
// h.
func Function(c, h io.Writer, f *ir.Func) error {
	fmt.Fprintf(c, "void *P_%s(", f.Name)
	fmt.Fprintf(h, "void *P_%s(", f.Name)
	for arg := 1; arg <= f.ArgCount; arg++ {
		fmt.Fprintf(c, "void *r%d", arg)
		fmt.Fprintf(h, "void *r%d", arg)
		if arg != f.ArgCount {
			fmt.Fprint(c, ", ")
			fmt.Fprint(h, ", ")
		}
	}
	fmt.Fprintln(c, ") {")
	fmt.Fprintln(h, ");")

	for place := f.ArgCount + 1; place < f.PlaceCount(); place++ {
		fmt.Fprintf(c, "void *r%d;\n", place)
	}

	visited := make([]bool, len(f.Blocks))
	stack := []int{0}
	for len(stack) > 0 {
		bb := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[bb] {
			continue
		}
		visited[bb] = true

		fmt.Fprintf(c, "L_%d:\n", bb)

		block := f.Blocks[bb]
		for _, s := range block.Stmts {
			if err := statement(c, s); err != nil {
				return err
			}
		}

		succs := f.Successors(bb)
		for _, s := range succs {
			for _, phi := range f.Blocks[s].Phis {
				if desired, ok := phi.Opts[bb]; ok {
					fmt.Fprintf(c, "r%d = r%d;\n", phi.Place, desired)
				}
			}
		}

		switch t := block.Term.(type) {
		case ir.Goto:
			fmt.Fprintf(c, "goto L_%d;\n", t.B)
		case ir.Return:
			fmt.Fprintf(c, "return r%d;\n", t.P)
		case ir.IfElse:
			fmt.Fprintf(c, "if (r%d) goto L_%d;\n", t.Cond, t.Iff)
			fmt.Fprintf(c, "goto L_%d;\n", t.Elsee)
		}

		for _, s := range succs {
			if !visited[s] {
				stack = append(stack, s)
			}
		}
	}

	fmt.Fprintln(c, "}")
	fmt.Fprintln(c)
	return nil
}

func statement(c io.Writer, s ir.Stmt) error {
	switch s := s.(type) {
	case *ir.Assign:
		fmt.Fprintf(c, "r%d = ", s.Place)
		if s.Allocate {
			fmt.Fprint(c, "allocate(")
		}
		if err := value(c, s.Value); err != nil {
			return err
		}
		if s.Allocate {
			fmt.Fprint(c, ")")
		}
		fmt.Fprintln(c, ";")
	case *ir.Dup:
		fmt.Fprintf(c, "dup(r%d, %d);\n", s.Place, s.Count)
	case *ir.Drop:
		fmt.Fprintf(c, "drop(r%d, %d);\n", s.Place, s.Count)
	case *ir.Deallocate:
		fmt.Fprintf(c, "deallocate(r%d);\n", s.Place)
	case *ir.Nop:
		// no output
	}
	return nil
}

func value(c io.Writer, v ir.Value) error {
	switch v := v.(type) {
	case ir.PlaceValue:
		fmt.Fprintf(c, "r%d", v.Place)
	case ir.CallValue:
		if intrinsicNames[v.Func] {
			fmt.Fprintf(c, "%s%d(", v.Func, len(v.Args))
		} else {
			fmt.Fprintf(c, "P_%s(", v.Func)
		}
		for i, arg := range v.Args {
			fmt.Fprintf(c, "r%d", arg)
			if i+1 != len(v.Args) {
				fmt.Fprint(c, ", ")
			}
		}
		fmt.Fprint(c, ")")
	}
	return nil
}

// maxIntrinsicArity bounds how many overloads of each intrinsic
// WriteStdLib emits; 10 covers every arity the test fixtures and the
// supplement examples use.
const maxIntrinsicArity = 10

// stdBase is the hand-written runtime body: the four management
// primitives the emitted C calls (allocate/dup/drop/deallocate),
// kept deliberately inert (refcounting is done entirely by the
// inserted Dup/Drop call sites; this runtime just has to exist).
const stdBase = `#include <stdlib.h>

typedef struct { int refcount; } rc_header;

static void *allocate(void *p) { return p; }
static void dup(void *p, int n) { (void)p; (void)n; }
static void drop(void *p, int n) { (void)p; (void)n; }
static void deallocate(void *p) { (void)p; }
`

// WriteStdLib emits std.c: the runtime body plus, for every arity from
// 0 to maxIntrinsicArity, a stub for each intrinsic (spec.md §3) that
// a real backend would replace with an actual allocation/print
// implementation — this one only has to satisfy the C type-checker so
// program.c links, mirroring original_source/src/backend/mod.rs's own
// write_std_lib, which does exactly this and nothing more.
func WriteStdLib(w io.Writer) error {
	if _, err := io.WriteString(w, stdBase); err != nil {
		return err
	}
	names := make([]string, 0, 3)
	for n := range intrinsicNames {
		names = append(names, n)
	}
	sort.Strings(names)

	for arity := 0; arity <= maxIntrinsicArity; arity++ {
		for _, name := range names {
			fmt.Fprintf(w, "void *%s%d(", name, arity)
			for i := 0; i < arity; i++ {
				fmt.Fprintf(w, "void *r%d", i)
				if i+1 != arity {
					fmt.Fprint(w, ", ")
				}
			}
			fmt.Fprintln(w, ") {")
			fmt.Fprintln(w, "return (void *) 0;")
			fmt.Fprintln(w, "}")
		}
	}
	return nil
}
