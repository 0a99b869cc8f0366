package frontend

import (
	"github.com/rc-lang/rc/internal/ir"
	"github.com/rc-lang/rc/internal/rcerrors"
	"golang.org/x/xerrors"
)

// Parse lexes and parses one source file into a Program. filename is
// used only for error messages.
func Parse(filename, src string) (*Program, error) {
	p := &parser{l: newLexer(filename, src)}
	prog, err := p.parseProgram()
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", filename, err)
	}
	return prog, nil
}

type parser struct {
	l *lexer
}

func (p *parser) errorf(format string, args ...any) error {
	return rcerrors.Parse(p.l.position().String(), format, args...)
}

// at reports whether the current token's text matches, regardless of
// whether it is a keyword (lexed as an identifier) or punctuation.
func (p *parser) at(text string) bool {
	t := p.l.peek()
	return t.kind != tokEOF && t.text == text
}

func (p *parser) atIdent() (string, bool) {
	t := p.l.peek()
	if t.kind == tokIdent {
		return t.text, true
	}
	return "", false
}

func (p *parser) expect(text string) error {
	if !p.at(text) {
		return p.errorf("expected %q, got %q", text, p.l.peek().text)
	}
	p.l.next()
	return nil
}

func (p *parser) expectIdent() (string, error) {
	name, ok := p.atIdent()
	if !ok {
		return "", p.errorf("expected an identifier, got %q", p.l.peek().text)
	}
	p.l.next()
	return name, nil
}

func (p *parser) parseProgram() (*Program, error) {
	prog := &Program{}
	for {
		t := p.l.peek()
		if t.kind == tokEOF {
			return prog, nil
		}
		switch {
		case t.kind == tokIdent && t.text == "type":
			td, err := p.parseTypeDecl()
			if err != nil {
				return nil, err
			}
			prog.Types = append(prog.Types, *td)
		case t.kind == tokIdent && t.text == "fn":
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			prog.Funcs = append(prog.Funcs, *fn)
		default:
			return nil, p.errorf("expected 'type' or 'fn' declaration, got %q", t.text)
		}
	}
}

func (p *parser) parseTypeDecl() (*TypeDecl, error) {
	if err := p.expect("type"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect("="); err != nil {
		return nil, err
	}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	return &TypeDecl{Name: name, Type: ty}, nil
}

// parseType parses "()" / "(T, ...)" as a tuple, "[T | ...]" as an
// enum, and a bare identifier as a named reference.
func (p *parser) parseType() (ir.Type, error) {
	switch {
	case p.at("("):
		p.l.next()
		var elems []ir.Type
		for !p.at(")") {
			if len(elems) > 0 {
				if err := p.expect(","); err != nil {
					return nil, err
				}
			}
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			elems = append(elems, t)
		}
		p.l.next()
		return ir.TupleType{Elems: elems}, nil
	case p.at("["):
		p.l.next()
		var variants []ir.Type
		for {
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			variants = append(variants, t)
			if p.at("|") {
				p.l.next()
				continue
			}
			break
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		return ir.EnumType{Variants: variants}, nil
	default:
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return ir.NamedType{Name: name}, nil
	}
}

func (p *parser) parseFunction() (*Function, error) {
	if err := p.expect("fn"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var args []Param
	for !p.at(")") {
		if len(args) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		pname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		param := Param{Name: pname}
		if p.at(":") {
			p.l.next()
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			param.Type = ty
		}
		args = append(args, param)
	}
	p.l.next()

	var ret ir.Type
	if p.at("->") {
		p.l.next()
		ret, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &Function{Name: name, Args: args, Ret: ret, Body: *body}, nil
}

func (p *parser) parseBlock() (*Block, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	b := &Block{}
	for {
		if name, ok := p.atIdent(); ok && p.l.peekAt(1).kind == tokPunct && p.l.peekAt(1).text == ":=" {
			p.l.next()
			p.l.next()
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(";"); err != nil {
				return nil, err
			}
			b.Stmts = append(b.Stmts, Statement{Name: name, Value: value})
			continue
		}
		break
	}
	ret, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	b.Ret = ret
	if err := p.expect("}"); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *parser) parseExpr() (Expr, error) {
	switch {
	case p.at("if"):
		return p.parseIfElse()
	case p.at("{"):
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return NestedBlock{Block: *b}, nil
	default:
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if !p.at("(") {
			return Ident{Name: name}, nil
		}
		p.l.next()
		var args []Expr
		for !p.at(")") {
			if len(args) > 0 {
				if err := p.expect(","); err != nil {
					return nil, err
				}
			}
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		p.l.next()
		return Call{Func: name, Args: args}, nil
	}
}

func (p *parser) parseIfElse() (Expr, error) {
	if err := p.expect("if"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	iff, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if err := p.expect("else"); err != nil {
		return nil, err
	}
	elsee, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return IfElse{Cond: cond, Iff: *iff, Else: *elsee}, nil
}
