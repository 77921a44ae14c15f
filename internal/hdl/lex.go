// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hdl implements the lexer and parser for gate connection strings.
//
// A connection string is a comma separated list of port assignments:
//
//	in1=I1, in2=!M1, q=Q1, t=2.5, !in3
//
// The left hand side names a gate port, the right hand side a variable or, for
// the T port of timers, a time constant in seconds. A '!' on either side
// negates the port.
//
package hdl

import (
	"unicode"
	"unicode/utf8"
)

// Type is the type of a lexical item.
//
type Type int

// Item types.
//
const (
	EOF Type = iota
	Raw
	Ident
	Number
	Comma
	Equal
	Not
)

var typeNames = [...]string{"end of input", "character", "identifier", "number", "','", "'='", "'!'"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// Item is a lexical item.
//
type Item struct {
	Type  Type
	Pos   int
	Value string
}

func (i Item) String() string {
	switch i.Type {
	case Ident, Number, Raw:
		return i.Type.String() + " " + i.Value
	}
	return i.Type.String()
}

// A StateFn is a lexer state.
//
type StateFn func(l *Lexer) StateFn

// Lexer splits a connection string into items.
//
type Lexer struct {
	input string
	start int
	pos   int
	width int
	items []Item
	state StateFn
}

// NewLexer returns a new lexer for the given input.
//
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, state: lexInit}
}

// Lex returns the next item.
//
func (l *Lexer) Lex() Item {
	for len(l.items) == 0 {
		l.state = l.state(l)
		if l.state == nil {
			l.state = lexInit
		}
	}
	i := l.items[0]
	l.items = l.items[1:]
	return i
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return -1
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += w
	l.width = w
	return r
}

func (l *Lexer) backup() { l.pos -= l.width }

func (l *Lexer) emit(t Type) {
	l.items = append(l.items, Item{t, l.start, l.input[l.start:l.pos]})
	l.start = l.pos
}

func (l *Lexer) ignore() { l.start = l.pos }

func (l *Lexer) acceptWhile(f func(rune) bool) {
	for r := l.next(); r >= 0 && f(r); r = l.next() {
	}
	l.backup()
}

func lexInit(l *Lexer) StateFn {
	r := l.next()
	switch {
	case r < 0:
		return lexEOF
	case unicode.IsSpace(r):
		l.acceptWhile(unicode.IsSpace)
		l.ignore()
	case unicode.IsLetter(r) || r == '_':
		l.acceptWhile(isIdent)
		l.emit(Ident)
	case '0' <= r && r <= '9', r == '.':
		return lexNumber
	case r == ',':
		l.emit(Comma)
	case r == '=':
		l.emit(Equal)
	case r == '!':
		l.emit(Not)
	default:
		l.emit(Raw)
		return lexEOF
	}
	return nil
}

func lexNumber(l *Lexer) StateFn {
	l.acceptWhile(isDigit)
	if r := l.next(); r != '.' {
		l.backup()
	}
	l.acceptWhile(isDigit)
	l.emit(Number)
	return nil
}

// lexEOF places the lexer in End-Of-File state.
// Once in this state, the lexer will only emit EOF.
//
func lexEOF(l *Lexer) StateFn {
	l.ignore()
	l.emit(EOF)
	return lexEOF
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func isIdent(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}
