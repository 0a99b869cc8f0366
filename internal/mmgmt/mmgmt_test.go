package mmgmt

import (
	"testing"

	"github.com/rc-lang/rc/internal/depgraph"
	"github.com/rc-lang/rc/internal/ir"
)

func pairFunc() *ir.Func {
	f := ir.New("pair", 2)
	f.Blocks[0].Stmts = []ir.Stmt{
		&ir.Assign{Place: 0, Value: ir.CallValue{Func: ir.IntrinsicTuple, Args: []int{1, 2}}},
	}
	f.Blocks[0].Term = ir.Return{P: 0}
	return f
}

func TestInsertManagementSetsAllocateOnOpaqueAssign(t *testing.T) {
	f := pairFunc()
	ctx := depgraph.NewContext()
	ctx.AddFunc(f)
	ctx.GraphFor("pair")

	if err := InsertManagement(ctx, f); err != nil {
		t.Fatalf("InsertManagement: %v", err)
	}

	var found bool
	for _, s := range f.Blocks[0].Stmts {
		if a, ok := s.(*ir.Assign); ok && a.Place == 0 {
			found = true
			if !a.Allocate {
				t.Fatalf("tuple's assign should have Allocate set, got %+v", a)
			}
		}
	}
	if !found {
		t.Fatal("expected the tuple assign to survive management insertion")
	}
}

func reusedArgFunc() *ir.Func {
	f := ir.New("dup", 1)
	f.Blocks[0].Stmts = []ir.Stmt{
		&ir.Assign{Place: 0, Value: ir.CallValue{Func: ir.IntrinsicTuple, Args: []int{1, 1}}},
	}
	f.Blocks[0].Term = ir.Return{P: 0}
	return f
}

func TestInsertManagementDupsReusedArgument(t *testing.T) {
	f := reusedArgFunc()
	ctx := depgraph.NewContext()
	ctx.AddFunc(f)
	ctx.GraphFor("dup")

	if err := InsertManagement(ctx, f); err != nil {
		t.Fatalf("InsertManagement: %v", err)
	}

	var gotDup bool
	for _, s := range f.Blocks[0].Stmts {
		if d, ok := s.(*ir.Dup); ok && d.Place == 1 {
			gotDup = true
			if d.Count != 1 {
				t.Fatalf("want one extra reference for the doubly-used argument, got Count=%d", d.Count)
			}
		}
	}
	if !gotDup {
		t.Fatalf("expected a Dup(place=1) before the tuple call that uses place 1 twice, got %v", f.Blocks[0].Stmts)
	}
}

// TestInsertManagementDropsDeadOpaqueParameter exercises the
// entry-dead-argument case directly
// against a hand-built graph, since a parameter that is never touched
// anywhere can never be discovered Opaque by BuildGraph itself — the
// case only arises from a caller forcing an otherwise-unread parameter
// allocated (e.g. a callee elsewhere in the same program requires it).
func TestInsertManagementDropsDeadOpaqueParameter(t *testing.T) {
	f := ir.New("ignoresArg", 1)
	f.Blocks[0].Term = ir.Return{P: 0}
	f.Blocks[0].Stmts = []ir.Stmt{
		&ir.Assign{Place: 0, Value: ir.CallValue{Func: ir.IntrinsicInvent}},
	}

	ctx := depgraph.NewContext()
	ctx.AddFunc(f)
	ctx.Install("ignoresArg", &depgraph.Graph{
		Nodes: []depgraph.Node{
			{Weight: depgraph.Plain, Deps: &depgraph.DepSet{Kind: depgraph.All}},
			{Weight: depgraph.Opaque, Deps: &depgraph.DepSet{Kind: depgraph.All}},
		},
		NewLives:    map[int]bool{},
		AllocedArgs: map[int]bool{1: true},
	})

	if err := InsertManagement(ctx, f); err != nil {
		t.Fatalf("InsertManagement: %v", err)
	}

	var gotDrop bool
	for _, s := range f.Blocks[0].Stmts {
		if d, ok := s.(*ir.Drop); ok && d.Place == 1 {
			gotDrop = true
		}
	}
	if !gotDrop {
		t.Fatalf("an allocated parameter that is never read should be dropped at entry, got %v", f.Blocks[0].Stmts)
	}
}

// pickFunc mirrors pick(c,a,b){ if c { a } else { b } }, spec.md §8
// Scenario 3: c is an opaque condition that no statement in either
// branch ever reads again, so only the terminator consumes it.
func pickFunc() *ir.Func {
	f := ir.New("pick", 3)
	// place 1=c, 2=a, 3=b, 0=return.
	f.Blocks[0].Term = ir.IfElse{Cond: 1, Iff: 1, Elsee: 2}

	f.AddBlock() // block 1: the Iff branch
	f.Blocks[1].Stmts = []ir.Stmt{
		&ir.Assign{Place: 0, Value: ir.PlaceValue{Place: 2}},
	}
	f.Blocks[1].Term = ir.Return{P: 0}

	f.AddBlock() // block 2: the Elsee branch
	f.Blocks[2].Stmts = []ir.Stmt{
		&ir.Assign{Place: 0, Value: ir.PlaceValue{Place: 3}},
	}
	f.Blocks[2].Term = ir.Return{P: 0}

	return f
}

// TestInsertManagementDropsOpaqueConditionOnBothBranches is the direct
// regression for rule 5: an opaque branch condition that is read only
// by the terminator must still be dropped exactly once along whichever
// path control actually takes, so a Drop belongs at the head of both
// successors.
func TestInsertManagementDropsOpaqueConditionOnBothBranches(t *testing.T) {
	f := pickFunc()
	ctx := depgraph.NewContext()
	ctx.AddFunc(f)
	ctx.Install("pick", &depgraph.Graph{
		Nodes: []depgraph.Node{
			{Weight: depgraph.Plain, Deps: &depgraph.DepSet{Kind: depgraph.Xor, Refs: []int{2, 3}}},
			{Weight: depgraph.Opaque, Deps: &depgraph.DepSet{Kind: depgraph.All}}, // c
			{Weight: depgraph.Plain, Deps: &depgraph.DepSet{Kind: depgraph.All}},  // a
			{Weight: depgraph.Plain, Deps: &depgraph.DepSet{Kind: depgraph.All}},  // b
		},
		NewLives:    map[int]bool{},
		AllocedArgs: map[int]bool{1: true},
	})

	if err := InsertManagement(ctx, f); err != nil {
		t.Fatalf("InsertManagement: %v", err)
	}

	for _, bi := range []int{1, 2} {
		stmts := f.Blocks[bi].Stmts
		if len(stmts) == 0 {
			t.Fatalf("block %d: expected a leading Drop(place=1), got no statements", bi)
		}
		d, ok := stmts[0].(*ir.Drop)
		if !ok || d.Place != 1 {
			t.Fatalf("block %d: expected a leading Drop(place=1), got %+v", bi, stmts[0])
		}
	}
}

// borrowFunc mirrors show(x){ print(x); invent() } where x is an
// opaque parameter not live out of the function: the print call only
// borrows x (print never takes ownership), so x's one remaining
// reference must be dropped right after the print, not carried
// forward as if it had been handed off.
func borrowFunc() *ir.Func {
	f := ir.New("show", 1)
	f.Blocks[0].Stmts = []ir.Stmt{
		&ir.Assign{Place: 2, Value: ir.CallValue{Func: ir.IntrinsicPrint, Args: []int{1}}},
		&ir.Assign{Place: 0, Value: ir.CallValue{Func: ir.IntrinsicInvent}},
	}
	f.Blocks[0].Term = ir.Return{P: 0}
	f.PlaceTypes = append(f.PlaceTypes, nil)
	return f
}

func TestInsertManagementDropsBorrowedLastUse(t *testing.T) {
	f := borrowFunc()
	ctx := depgraph.NewContext()
	ctx.AddFunc(f)
	ctx.Install("show", &depgraph.Graph{
		Nodes: []depgraph.Node{
			{Weight: depgraph.Plain, Deps: &depgraph.DepSet{Kind: depgraph.All}},
			{Weight: depgraph.Opaque, Deps: &depgraph.DepSet{Kind: depgraph.All}}, // x
			{Weight: depgraph.Plain, Deps: &depgraph.DepSet{Kind: depgraph.All}},  // print's unit result
		},
		NewLives:    map[int]bool{},
		AllocedArgs: map[int]bool{1: true},
	})

	if err := InsertManagement(ctx, f); err != nil {
		t.Fatalf("InsertManagement: %v", err)
	}

	var gotDrop bool
	var dropIdx, printIdx int = -1, -1
	for i, s := range f.Blocks[0].Stmts {
		if d, ok := s.(*ir.Drop); ok && d.Place == 1 {
			gotDrop = true
			dropIdx = i
		}
		if a, ok := s.(*ir.Assign); ok {
			if c, ok := a.Value.(ir.CallValue); ok && c.Func == ir.IntrinsicPrint {
				printIdx = i
			}
		}
	}
	if !gotDrop {
		t.Fatalf("print only borrows x, so its last reference should be dropped, got %v", f.Blocks[0].Stmts)
	}
	if dropIdx <= printIdx {
		t.Fatalf("expected the Drop(place=1) to come after the print that borrows it, drop at %d, print at %d", dropIdx, printIdx)
	}
}

// crossEdgeFunc mirrors a block that produces an opaque value only
// needed along one of two successors: block 0 assigns place 3 (opaque)
// and then branches on a separate, plain condition (place 2); block 1
// (Iff) still reads place 3 via its own print, but block 2 (Elsee)
// never does, so place 3's reference must be dropped at the head of
// block 2 only.
func crossEdgeFunc() *ir.Func {
	f := ir.New("branch", 2) // 1=unused, 2=cond
	f.Blocks[0].Stmts = []ir.Stmt{
		&ir.Assign{Place: 3, Value: ir.CallValue{Func: ir.IntrinsicInvent}},
	}
	f.Blocks[0].Term = ir.IfElse{Cond: 2, Iff: 1, Elsee: 2}
	f.PlaceTypes = append(f.PlaceTypes, nil) // place 3

	f.AddBlock() // block 1: reads place 3
	f.Blocks[1].Stmts = []ir.Stmt{
		&ir.Assign{Place: 4, Value: ir.CallValue{Func: ir.IntrinsicPrint, Args: []int{3}}},
		&ir.Assign{Place: 0, Value: ir.CallValue{Func: ir.IntrinsicInvent}},
	}
	f.Blocks[1].Term = ir.Return{P: 0}
	f.PlaceTypes = append(f.PlaceTypes, nil) // place 4

	f.AddBlock() // block 2: never reads place 3
	f.Blocks[2].Stmts = []ir.Stmt{
		&ir.Assign{Place: 0, Value: ir.CallValue{Func: ir.IntrinsicInvent}},
	}
	f.Blocks[2].Term = ir.Return{P: 0}

	return f
}

func TestInsertManagementDropsOnDeadCrossEdgeOnly(t *testing.T) {
	f := crossEdgeFunc()
	ctx := depgraph.NewContext()
	ctx.AddFunc(f)
	nodes := make([]depgraph.Node, f.PlaceCount())
	for i := range nodes {
		nodes[i] = depgraph.Node{Weight: depgraph.Plain, Deps: &depgraph.DepSet{Kind: depgraph.All}}
	}
	nodes[0] = depgraph.Node{Weight: depgraph.Plain, Deps: &depgraph.DepSet{Kind: depgraph.Xor}}
	nodes[3] = depgraph.Node{Weight: depgraph.Opaque, Deps: &depgraph.DepSet{Kind: depgraph.All}}
	ctx.Install("branch", &depgraph.Graph{
		Nodes:       nodes,
		NewLives:    map[int]bool{},
		AllocedArgs: map[int]bool{},
	})

	if err := InsertManagement(ctx, f); err != nil {
		t.Fatalf("InsertManagement: %v", err)
	}

	// Block 1 still reads place 3 via its own print, so rule 4 must not
	// plant a cross-edge drop at the very front of the block — any drop
	// of place 3 here should instead be rule 2's own natural drop right
	// after that last use, never before it.
	if len(f.Blocks[1].Stmts) > 0 {
		if d, ok := f.Blocks[1].Stmts[0].(*ir.Drop); ok && d.Place == 3 {
			t.Fatalf("block 1 still reads place 3 via print, should not have a cross-edge drop up front, got %+v", d)
		}
	}

	var gotDrop bool
	for _, s := range f.Blocks[2].Stmts {
		if d, ok := s.(*ir.Drop); ok && d.Place == 3 {
			gotDrop = true
		}
	}
	if !gotDrop {
		t.Fatalf("block 2 never reads place 3, expected a leading Drop(place=3), got %v", f.Blocks[2].Stmts)
	}
}
