package lva

import (
	"testing"

	"github.com/rc-lang/rc/internal/ir"
)

// straightLine builds `fn f(a) { b := a; c := b; return c }` — no
// branches, so liveness is exactly determined by the single block's
// own statement order.
func straightLine() *ir.Func {
	f := ir.New("f", 1)
	b := f.AddPlace(nil)
	c := f.AddPlace(nil)
	f.Blocks[0].Stmts = []ir.Stmt{
		&ir.Assign{Place: b, Value: ir.PlaceValue{Place: 1}},
		&ir.Assign{Place: c, Value: ir.PlaceValue{Place: b}},
		&ir.Assign{Place: 0, Value: ir.PlaceValue{Place: c}},
	}
	f.Blocks[0].Term = ir.Return{P: 0}
	return f
}

func TestAnalyzeStraightLine(t *testing.T) {
	f := straightLine()
	sets := Analyze(f)

	if !sets[0].UeVar[1] {
		t.Fatalf("parameter 1 is read before any def in this block, want it upward-exposed; UeVar=%v", sets[0].UeVar)
	}
	if !sets[0].Def[2] || !sets[0].Def[3] {
		t.Fatalf("b and c should be locally defined; Def=%v", sets[0].Def)
	}
}

func TestPointWiseStraightLine(t *testing.T) {
	f := straightLine()
	sets := Analyze(f)
	points := PointWise(f, sets)

	b, c := 2, 3

	// Before stmt 0 (`b := a`): only the parameter is live.
	p0 := points[0].Live[0]
	if !p0[1] {
		t.Fatalf("point 0: want parameter 1 live, got %v", p0)
	}
	if p0[b] || p0[c] {
		t.Fatalf("point 0: b and c should not exist yet, got %v", p0)
	}

	// Before stmt 1 (`c := b`): b is live, a no longer is.
	p1 := points[0].Live[1]
	if !p1[b] {
		t.Fatalf("point 1: want b live, got %v", p1)
	}
	if p1[1] {
		t.Fatalf("point 1: parameter 1's last use already passed, got %v", p1)
	}

	// Before stmt 2 (`_0 := c`): c is live, b is dead.
	p2 := points[0].Live[2]
	if !p2[c] || p2[b] {
		t.Fatalf("point 2: want only c live, got %v", p2)
	}
}

// branching builds `fn pick(cnd,a,b) { if cnd { x := a } else { x := b }; return x }`.
func branching() *ir.Func {
	f := ir.New("pick", 3)
	f.Blocks[0].Term = ir.IfElse{Cond: 1, Iff: 1, Elsee: 2}
	f.Blocks = append(f.Blocks, &ir.BasicBlock{}, &ir.BasicBlock{}, &ir.BasicBlock{})
	xa := f.AddPlace(nil)
	xb := f.AddPlace(nil)
	join := f.AddPlace(nil)
	f.Blocks[1].Stmts = []ir.Stmt{&ir.Assign{Place: xa, Value: ir.PlaceValue{Place: 2}}}
	f.Blocks[1].Term = ir.Goto{B: 3}
	f.Blocks[2].Stmts = []ir.Stmt{&ir.Assign{Place: xb, Value: ir.PlaceValue{Place: 3}}}
	f.Blocks[2].Term = ir.Goto{B: 3}
	f.Blocks[3].Phis = []*ir.Phi{{Place: join, Opts: map[int]int{1: xa, 2: xb}}}
	f.Blocks[3].Stmts = []ir.Stmt{&ir.Assign{Place: 0, Value: ir.PlaceValue{Place: join}}}
	f.Blocks[3].Term = ir.Return{P: 0}
	return f
}

func TestAnalyzeBranchingPhi(t *testing.T) {
	f := branching()
	sets := Analyze(f)

	// Places: 0 return, 1 cnd, 2 a, 3 b, 4 xa, 5 xb, 6 join.
	if !sets[1].LiveOut[4] {
		t.Fatalf("block 1: want its phi-fed place live-out, got %v", sets[1].LiveOut)
	}
	if !sets[2].LiveOut[5] {
		t.Fatalf("block 2: want its phi-fed place live-out, got %v", sets[2].LiveOut)
	}
	// Neither arm should think the other's private place is live.
	if sets[1].LiveOut[5] || sets[2].LiveOut[4] {
		t.Fatalf("an arm should not see the other arm's place live: block1=%v block2=%v", sets[1].LiveOut, sets[2].LiveOut)
	}
}
