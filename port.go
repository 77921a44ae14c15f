// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package fupsim

import (
	"strings"

	"github.com/pkg/errors"
)

// Direction is the direction of a port.
//
type Direction int

// Port directions.
//
const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "output"
	}
	return "input"
}

// A Port is a connection point on a gate.
//
// The value read from a port (see Value) comes from its incoming wire if any,
// else from the variable it is bound to, else from its latched value. The
// result is inverted if the port is negated.
//
type Port struct {
	gate     *Gate
	dir      Direction
	index    int
	label    string
	negated  bool
	variable string // bound variable name, "" if unbound
	latched  bool
	in       *Wire   // incoming wire, input ports only
	outs     []*Wire // outgoing wires, output ports only
	shown    bool    // value as of the end of the last tick
}

func newPort(g *Gate, dir Direction, index int, label string) *Port {
	return &Port{gate: g, dir: dir, index: index, label: label}
}

// Gate returns the gate that owns p.
//
func (p *Port) Gate() *Gate { return p.gate }

// Direction returns the port direction.
//
func (p *Port) Direction() Direction { return p.dir }

// Index returns the index of p in its gate's input or output list.
//
func (p *Port) Index() int { return p.index }

// Label returns the port label (S, R, T, IN1, ...).
//
func (p *Port) Label() string { return p.label }

// Ref returns a reference to p suitable for serialization.
//
func (p *Port) Ref() PortRef { return PortRef{p.gate.id, p.dir, p.index} }

// Negated returns true if p is negated.
//
func (p *Port) Negated() bool { return p.negated }

// SetNegated sets the negation flag of p.
//
func (p *Port) SetNegated(neg bool) { p.negated = neg }

// Variable returns the name of the variable p is bound to, or "" if unbound.
//
func (p *Port) Variable() string { return p.variable }

// Bind binds p to the named variable, replacing any existing binding.
// Input ports accept any variable kind. Output ports only accept output and
// memory variables.
//
func (p *Port) Bind(name string) error {
	return errors.Wrapf(p.gate.store.bind(p, name), "bind %s", p)
}

// Unbind removes the variable binding of p, if any.
//
func (p *Port) Unbind() { p.gate.store.unbind(p) }

// Wire returns the incoming wire of an input port, nil if none.
//
func (p *Port) Wire() *Wire { return p.in }

// Wires returns the outgoing wires of an output port.
//
func (p *Port) Wires() []*Wire { return append([]*Wire(nil), p.outs...) }

// Latched returns the latched value of p.
//
func (p *Port) Latched() bool { return p.latched }

// raw returns the value of p before negation.
//
func (p *Port) raw() bool {
	if p.in != nil {
		return p.in.src.Value()
	}
	if v := p.gate.store.lookup(p.variable); v != nil {
		return v.Value
	}
	return p.latched
}

// Value returns the resolved value of p.
//
func (p *Port) Value() bool {
	return p.raw() != p.negated
}

// Shown returns the resolved value of p as of the end of the last tick.
//
func (p *Port) Shown() bool { return p.shown }

// Write sets the latched value of an output port and, if bound, the value of
// its variable. The variable update is immediately visible to every other
// port bound to the same variable.
//
// Write panics if p is an input port.
//
func (p *Port) Write(v bool) {
	if p.dir != Out {
		panic(errors.Wrap(ErrUnboundWrite, p.String()))
	}
	p.latched = v
	if vr := p.gate.store.lookup(p.variable); vr != nil {
		vr.Value = v
	}
}

// Set sets the latched value of an input port. This is the value read from
// the port when it has neither an incoming wire nor a variable binding.
// Set panics if p is an output port: use Write instead.
//
func (p *Port) Set(v bool) {
	if p.dir != In {
		panic("Set called on output port " + p.String())
	}
	p.latched = v
}

func (p *Port) refresh() {
	p.shown = p.Value()
}

func (p *Port) String() string {
	var b strings.Builder
	b.WriteString(p.gate.String())
	b.WriteByte('.')
	b.WriteString(p.label)
	return b.String()
}

// PortRef identifies a port within a Sim.
//
type PortRef struct {
	Gate  ID        `json:"gate" yaml:"gate"`
	Dir   Direction `json:"dir" yaml:"dir"`
	Index int       `json:"index" yaml:"index"`
}

// MarshalText implements encoding.TextMarshaler.
//
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (d *Direction) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "input", "in":
		*d = In
	case "output", "out":
		*d = Out
	default:
		return errors.Errorf("invalid port direction %q", b)
	}
	return nil
}
