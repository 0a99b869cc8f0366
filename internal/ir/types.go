// Package ir defines the control-flow-graph intermediate representation
// that the inference core (internal/depgraph, internal/lva,
// internal/mmgmt) operates on: places, basic blocks, phi nodes,
// statements and terminators in SSA form, plus the small recursive type
// system the surface language exposes.
package ir

import "strings"

// Type is the sum type of the source language's type system: tuples,
// tagged unions ("enums" of variant payload types), and named aliases
// that close recursive definitions. It is implemented by TupleType,
// EnumType and NamedType; callers switch on the concrete type rather
// than through a visitor (see DESIGN.md).
type Type interface {
	isType()
	String() string
}

// TupleType is a fixed-arity product type. Unit is TupleType{}.
type TupleType struct {
	Elems []Type
}

// EnumType is a tagged union of variant payload types.
type EnumType struct {
	Variants []Type
}

// NamedType is a reference to a type declared elsewhere in the module;
// it is how recursive types (e.g. a cons-list) are expressed without an
// infinite unfolding.
type NamedType struct {
	Name string
}

func (TupleType) isType() {}
func (EnumType) isType()  {}
func (NamedType) isType() {}

// Unit is the canonical zero-element tuple.
func Unit() Type { return TupleType{} }

func (t TupleType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, e := range t.Elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (t EnumType) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range t.Variants {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (t NamedType) String() string { return t.Name }
