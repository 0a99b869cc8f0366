package frontend

import (
	"strings"
	"text/scanner"
)

// tokenKind distinguishes the few token shapes the grammar needs;
// everything that isn't an identifier or a multi-rune operator is
// carried through verbatim as its own single-rune text.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

// lexer wraps text/scanner.Scanner, folding the two-rune operators the
// grammar needs (":=", "->") into single tokens; every other
// punctuation rune (including "|") is returned on its own.
type lexer struct {
	s    scanner.Scanner
	toks []token
	pos  int
}

func newLexer(filename, src string) *lexer {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Filename = filename
	s.Mode = scanner.ScanIdents | scanner.ScanComments | scanner.SkipComments
	l := &lexer{s: s}
	l.tokenize()
	return l
}

func (l *lexer) tokenize() {
	for {
		r := l.s.Scan()
		if r == scanner.EOF {
			l.toks = append(l.toks, token{kind: tokEOF})
			return
		}
		if r == scanner.Ident {
			l.toks = append(l.toks, token{kind: tokIdent, text: l.s.TokenText()})
			continue
		}
		switch r {
		case ':':
			if l.s.Peek() == '=' {
				l.s.Scan()
				l.toks = append(l.toks, token{kind: tokPunct, text: ":="})
				continue
			}
		case '-':
			if l.s.Peek() == '>' {
				l.s.Scan()
				l.toks = append(l.toks, token{kind: tokPunct, text: "->"})
				continue
			}
		}
		l.toks = append(l.toks, token{kind: tokPunct, text: string(r)})
	}
}

func (l *lexer) peek() token {
	return l.toks[l.pos]
}

// peekAt looks ahead n tokens past the current one (0 == peek()).
func (l *lexer) peekAt(n int) token {
	i := l.pos + n
	if i >= len(l.toks) {
		return l.toks[len(l.toks)-1]
	}
	return l.toks[i]
}

func (l *lexer) next() token {
	t := l.toks[l.pos]
	if l.pos < len(l.toks)-1 {
		l.pos++
	}
	return t
}

func (l *lexer) position() scanner.Position { return l.s.Pos() }
