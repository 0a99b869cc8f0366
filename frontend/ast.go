// Package frontend lexes and parses the surface syntax that lower.go
// turns into internal/ir control-flow graphs: a small expression
// language of function declarations, calls, if/else, and block-scoped
// bindings, plus type-alias declarations for named (possibly
// recursive) types (spec.md §1's "external collaborator" boundary,
// grounded directly on original_source/src/ast.rs).
package frontend

import "github.com/rc-lang/rc/internal/ir"

// Program is a parsed source file: an ordered list of type aliases and
// function declarations, in the order they were declared.
type Program struct {
	Types []TypeDecl
	Funcs []Function
}

// TypeDecl is `type Name = Type;`.
type TypeDecl struct {
	Name string
	Type ir.Type
}

// Function is `fn name(arg[: Type], ...) [-> Type] Block`.
type Function struct {
	Name string
	Args []Param
	Ret  ir.Type // nil if unannotated
	Body Block
}

// Param is one function parameter, with an optional type annotation.
type Param struct {
	Name string
	Type ir.Type // nil if unannotated
}

// Block is `{ stmt... expr }`: zero or more bindings followed by the
// block's trailing value expression.
type Block struct {
	Stmts []Statement
	Ret   Expr
}

// Statement is `ident := expr;`.
type Statement struct {
	Name  string
	Value Expr
}

// Expr is the sum type of expressions: Ident, Call, NestedBlock,
// IfElse. Implemented by concrete structs rather than a visitor, per
// the same convention internal/ir uses for Value and Terminator.
type Expr interface {
	isExpr()
}

// Ident references a binding introduced by a Statement or a function
// parameter.
type Ident struct {
	Name string
}

// Call is `ident(expr, ...)`: a call to a user function, an intrinsic
// (tuple/invent/print), or a named type's constructor.
type Call struct {
	Func string
	Args []Expr
}

// NestedBlock is a block used directly as an expression.
type NestedBlock struct {
	Block Block
}

// IfElse is `if cond { ... } else { ... }`, both arms required.
type IfElse struct {
	Cond Expr
	Iff  Block
	Else Block
}

func (Ident) isExpr()       {}
func (Call) isExpr()        {}
func (NestedBlock) isExpr() {}
func (IfElse) isExpr()      {}
