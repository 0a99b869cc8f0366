// Package lower turns a parsed frontend.Program into internal/ir
// control-flow graphs, one per function, grounded directly on
// original_source/src/cfg/from_ast.rs's ConversionState: a scoped
// name→place environment walked once per function body.
package lower

import (
	"github.com/rc-lang/rc/frontend"
	"github.com/rc-lang/rc/internal/ir"
	"github.com/rc-lang/rc/internal/rcerrors"
)

// Program lowers every function in prog, in declaration order.
func Program(prog *frontend.Program) []*ir.Func {
	out := make([]*ir.Func, len(prog.Funcs))
	for i, fn := range prog.Funcs {
		out[i] = Function(fn)
	}
	return out
}

// Function lowers a single function declaration to its CFG. Binding a
// name to another name's value (`x := a;`) does not emit a copy — it
// just aliases the existing place in the current scope, exactly as
// ConversionState::set_place_scoped does; the only place an actual
// PlaceValue copy is emitted is the final copy into place 0 before
// Return.
func Function(fn frontend.Function) *ir.Func {
	f := ir.New(fn.Name, len(fn.Args))
	st := &state{f: f}

	st.pushScope()
	for i, a := range fn.Args {
		st.setPlace(a.Name, i+1)
	}

	ret := st.addBlock(fn.Body)
	st.addAssign(0, ir.PlaceValue{Place: ret})
	st.setTerminator(ir.Return{P: 0})
	st.popScope()

	f.Verify()
	return f
}

type state struct {
	f         *ir.Func
	scopes    []map[string]int
	lastBlock int
}

func (st *state) addExpr(e frontend.Expr) int {
	switch v := e.(type) {
	case frontend.Ident:
		place, ok := st.getPlace(v.Name)
		if !ok {
			panic(rcerrors.UnknownIdent(v.Name))
		}
		return place
	case frontend.Call:
		return st.addCall(v)
	case frontend.NestedBlock:
		return st.addBlock(v.Block)
	case frontend.IfElse:
		return st.addIfElse(v)
	default:
		panic(rcerrors.Malformed("unknown expression node in lowering"))
	}
}

func (st *state) addCall(c frontend.Call) int {
	place := st.f.AddPlace(nil)
	args := make([]int, len(c.Args))
	for i, a := range c.Args {
		args[i] = st.addExpr(a)
	}
	st.addAssign(place, ir.CallValue{Func: c.Func, Args: args})
	return place
}

func (st *state) addAssign(place int, value ir.Value) int {
	b := st.f.Blocks[st.lastBlock]
	b.Stmts = append(b.Stmts, &ir.Assign{Place: place, Value: value})
	return place
}

func (st *state) setTerminator(t ir.Terminator) {
	st.f.Blocks[st.lastBlock].Term = t
}

func (st *state) addIfElse(ie frontend.IfElse) int {
	cond := st.addExpr(ie.Cond)

	ifBlock := st.f.AddBlock()
	elseBlock := st.f.AddBlock()
	st.setTerminator(ir.IfElse{Cond: cond, Iff: ifBlock, Elsee: elseBlock})

	endBlock := st.f.AddBlock()

	st.focus(ifBlock)
	ifOut := st.addBlock(ie.Iff)
	st.setTerminator(ir.Goto{B: endBlock})

	st.focus(elseBlock)
	elseOut := st.addBlock(ie.Else)
	st.setTerminator(ir.Goto{B: endBlock})

	st.focus(endBlock)
	return st.addPhi(map[int]int{ifBlock: ifOut, elseBlock: elseOut})
}

func (st *state) addBlock(b frontend.Block) int {
	st.pushScope()
	for _, s := range b.Stmts {
		v := st.addExpr(s.Value)
		st.setPlace(s.Name, v)
	}
	ret := st.addExpr(b.Ret)
	st.popScope()
	return ret
}

func (st *state) addPhi(opts map[int]int) int {
	place := st.f.AddPlace(nil)
	bb := st.f.Blocks[st.lastBlock]
	bb.Phis = append(bb.Phis, &ir.Phi{Place: place, Opts: opts})
	return place
}

func (st *state) focus(block int) { st.lastBlock = block }

func (st *state) getPlace(name string) (int, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if p, ok := st.scopes[i][name]; ok {
			return p, true
		}
	}
	return 0, false
}

func (st *state) setPlace(name string, place int) {
	st.scopes[len(st.scopes)-1][name] = place
}

func (st *state) pushScope() { st.scopes = append(st.scopes, map[string]int{}) }
func (st *state) popScope()  { st.scopes = st.scopes[:len(st.scopes)-1] }
