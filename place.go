// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package fupsim

import (
	"github.com/db47h/fupsim/internal/hdl"
	"github.com/pkg/errors"
)

// Place creates a gate like CreateGate and configures its ports according to
// the connection string conns. For example:
//
//	sim.Place(net, fupsim.SR, fupsim.Point{}, "s=I1, r=!I2, q=Q1")
//	sim.Place(net, fupsim.TON, fupsim.Point{}, "in=I1, t=2.5, q=Q2")
//
// Port names are the port labels (case insensitive): IN1..INn, OUT for AND,
// OR and XOR, IN and OUT for =, S, R and Q for latches, IN, T and Q for
// timers, IN and Q for edge detectors. "out" and "q" are synonyms. Input
// ports of AND, OR and XOR gates are added as needed.
//
// A '!' before the port name or the variable name negates the port. A number
// on the right hand side sets the time constant of a timer's T port.
//
// If conns cannot be applied entirely, the gate is deleted and an error
// returned.
//
func (s *Sim) Place(n *Network, kind Kind, pos Point, conns string) (*Gate, error) {
	as, err := hdl.Parse(conns)
	if err != nil {
		return nil, err
	}
	g, err := s.CreateGate(n, kind, pos)
	if err != nil {
		return nil, err
	}
	if err = g.configure(as); err != nil {
		n.removeGate(g)
		return nil, errors.Wrapf(err, "%s %q", kind, conns)
	}
	return g, nil
}

func (g *Gate) configure(as []hdl.Assignment) error {
	for _, a := range as {
		p, ok := g.Port(a.Port)
		for !ok && g.kind.Variadic() && isInputLabel(a.Port) {
			if _, err := g.AddInput(); err != nil {
				return err
			}
			p, ok = g.Port(a.Port)
			if len(g.ins) > 64 {
				break
			}
		}
		if !ok {
			return errors.Errorf("no port %q", a.Port)
		}
		p.SetNegated(a.Negated)
		switch {
		case a.IsConst:
			if g.timePort() != p {
				return errors.Wrap(ErrNotTimePort, p.String())
			}
			if err := g.SetTimeConstant(a.Const); err != nil {
				return err
			}
		case a.Variable != "":
			if err := p.Bind(a.Variable); err != nil {
				return err
			}
		}
	}
	return nil
}

// isInputLabel returns true for labels of the form INn.
//
func isInputLabel(l string) bool {
	if len(l) < 3 || (l[0] != 'i' && l[0] != 'I') || (l[1] != 'n' && l[1] != 'N') {
		return false
	}
	for _, c := range l[2:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return l[2] != '0'
}
