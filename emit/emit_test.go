package emit

import (
	"strings"
	"testing"

	"github.com/rc-lang/rc/internal/ir"
)

// identityFunc builds fn id(r1) { r1 }: place 0 := place 1; return 0.
func identityFunc() *ir.Func {
	f := ir.New("id", 1)
	f.Blocks[0].Stmts = []ir.Stmt{
		&ir.Assign{Place: 0, Value: ir.PlaceValue{Place: 1}},
	}
	f.Blocks[0].Term = ir.Return{P: 0}
	return f
}

func TestFunctionRendersSignatureAndBody(t *testing.T) {
	var c, h strings.Builder
	if err := Function(&c, &h, identityFunc()); err != nil {
		t.Fatalf("Function: %v", err)
	}

	if got := h.String(); got != "void *P_id(void *r1);\n" {
		t.Fatalf("header = %q", got)
	}

	body := c.String()
	for _, want := range []string{"void *P_id(void *r1) {", "L_0:", "r0 = r1;", "return r0;"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestFunctionWrapsAllocatedAssignAndManagement(t *testing.T) {
	f := ir.New("dupit", 1)
	f.Blocks[0].Stmts = []ir.Stmt{
		&ir.Dup{Place: 1, Count: 1},
		&ir.Assign{Place: 0, Value: ir.CallValue{Func: ir.IntrinsicTuple, Args: []int{1, 1}}, Allocate: true},
	}
	f.Blocks[0].Term = ir.Return{P: 0}

	var c, h strings.Builder
	if err := Function(&c, &h, f); err != nil {
		t.Fatalf("Function: %v", err)
	}

	body := c.String()
	for _, want := range []string{"dup(r1, 1);", "r0 = allocate(tuple2(r1, r1));"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestFunctionEmitsPhiAssignmentAtEndOfPredecessor(t *testing.T) {
	f := ir.New("pick", 2)
	f.AddBlock() // 1: iff
	f.AddBlock() // 2: else
	f.AddBlock() // 3: end
	place := f.AddPlace(nil)

	f.Blocks[0].Term = ir.IfElse{Cond: 1, Iff: 1, Elsee: 2}
	f.Blocks[1].Term = ir.Goto{B: 3}
	f.Blocks[2].Term = ir.Goto{B: 3}
	f.Blocks[3].Phis = []*ir.Phi{{Place: place, Opts: map[int]int{1: 1, 2: 2}}}
	f.Blocks[3].Stmts = []ir.Stmt{
		&ir.Assign{Place: 0, Value: ir.PlaceValue{Place: place}},
	}
	f.Blocks[3].Term = ir.Return{P: 0}

	var c, h strings.Builder
	if err := Function(&c, &h, f); err != nil {
		t.Fatalf("Function: %v", err)
	}

	body := c.String()
	idx1 := strings.Index(body, "L_1:")
	idx2 := strings.Index(body, "L_2:")
	if idx1 < 0 || idx2 < 0 {
		t.Fatalf("missing block labels:\n%s", body)
	}
	wantPhi := "r3 = r1;"
	if got := strings.Index(body, wantPhi); got < 0 || got < idx1 {
		t.Errorf("expected %q after L_1: label in\n%s", wantPhi, body)
	}
}

func TestWriteStdLibCoversIntrinsicArities(t *testing.T) {
	var buf strings.Builder
	if err := WriteStdLib(&buf); err != nil {
		t.Fatalf("WriteStdLib: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"static void *allocate(void *p)",
		"void *tuple0() {",
		"void *invent3(void *r0, void *r1, void *r2) {",
		"void *print0() {",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("std.c missing %q", want)
		}
	}
}
