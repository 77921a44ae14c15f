// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"strconv"

	"github.com/pkg/errors"
)

// Assignment is a single port assignment in a connection string.
//
type Assignment struct {
	Port     string  // port label
	Pos      int     // position of the port label in the input
	Negated  bool    // port negation
	Variable string  // variable name, "" if none
	Const    float64 // time constant, valid if IsConst
	IsConst  bool
}

// Parse parses a connection string.
//
func Parse(input string) ([]Assignment, error) {
	var (
		out []Assignment
		l   = NewLexer(input)
		i   = l.Lex()
	)
	if i.Type == EOF {
		return nil, nil
	}
	for {
		var a Assignment
		if i.Type == Not {
			a.Negated = true
			i = l.Lex()
		}
		if i.Type != Ident {
			return nil, parseError(input, i, "expected port name")
		}
		a.Port, a.Pos = i.Value, i.Pos
		i = l.Lex()
		if i.Type == Equal {
			i = l.Lex()
			if i.Type == Not {
				a.Negated = true
				i = l.Lex()
			}
			switch i.Type {
			case Ident:
				a.Variable = i.Value
			case Number:
				v, err := strconv.ParseFloat(i.Value, 64)
				if err != nil {
					return nil, parseError(input, i, "malformed number")
				}
				a.Const, a.IsConst = v, true
			default:
				return nil, parseError(input, i, "expected variable name or number")
			}
			i = l.Lex()
		}
		out = append(out, a)
		switch i.Type {
		case EOF:
			return out, nil
		case Comma:
			i = l.Lex()
		default:
			return nil, parseError(input, i, "expected ',' or end of input")
		}
	}
}

func parseError(in string, i Item, msg string) error {
	return errors.Errorf("in %q at pos %d: %s, got %s", in, i.Pos+1, msg, i)
}
