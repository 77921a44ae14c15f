// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package fupsim

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ID identifies a network, gate or wire.
//
type ID string

func newID() ID { return ID(uuid.NewString()) }

// A Wire is a directed connection from an output port to an input port of
// another gate in the same network.
//
type Wire struct {
	id  ID
	src *Port
	dst *Port
}

// ID returns the wire ID.
//
func (w *Wire) ID() ID { return w.id }

// Source returns the output port feeding w.
//
func (w *Wire) Source() *Port { return w.src }

// Dest returns the input port fed by w.
//
func (w *Wire) Dest() *Port { return w.dst }

func (w *Wire) String() string { return w.src.String() + "->" + w.dst.String() }

// checkWire checks that a and b can be connected and returns them ordered as
// source (output) and destination (input).
//
func checkWire(a, b *Port) (src, dst *Port, err error) {
	switch {
	case a.dir == Out && b.dir == In:
		src, dst = a, b
	case a.dir == In && b.dir == Out:
		src, dst = b, a
	default:
		return nil, nil, errors.Wrapf(ErrDirectionMismatch, "%s, %s", a, b)
	}
	if src.gate == dst.gate {
		return nil, nil, errors.Wrap(ErrSameGate, src.gate.String())
	}
	if src.gate.net != dst.gate.net {
		return nil, nil, errors.Wrapf(ErrCrossNetwork, "%s, %s", src, dst)
	}
	if dst.in != nil {
		if dst.in.src == src {
			return nil, nil, errors.Wrap(ErrDuplicateWire, dst.in.String())
		}
		return nil, nil, errors.Wrap(ErrPortDriven, dst.String())
	}
	if loops(src.gate, dst.gate) {
		return nil, nil, errors.Wrapf(ErrCombinationalLoop, "%s->%s", src, dst)
	}
	return src, dst, nil
}

// loops reports whether adding a wire from gate src to gate dst would close a
// loop made only of combinational gates. Latches hold their own state and
// break loops.
//
func loops(src, dst *Gate) bool {
	if src.isLatch() || dst.isLatch() {
		return false
	}
	seen := make(map[*Gate]bool)
	stack := []*Gate{dst}
	for len(stack) > 0 {
		g := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if g == src {
			return true
		}
		if seen[g] || g.isLatch() {
			continue
		}
		seen[g] = true
		for _, o := range g.outs {
			for _, w := range o.outs {
				stack = append(stack, w.dst.gate)
			}
		}
	}
	return false
}

func attach(w *Wire) {
	w.src.outs = append(w.src.outs, w)
	w.dst.in = w
}

// detach removes w from its ports. Port latched values are left untouched.
//
func detach(w *Wire) {
	w.dst.in = nil
	outs := w.src.outs
	for i, o := range outs {
		if o == w {
			copy(outs[i:], outs[i+1:])
			outs[len(outs)-1] = nil
			w.src.outs = outs[:len(outs)-1]
			break
		}
	}
}
