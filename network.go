// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package fupsim

// A Network is one diagram: a set of gates and the wires connecting them.
// Networks only interact with each other through variables.
//
type Network struct {
	id    ID
	name  string
	gates []*Gate
	wires []*Wire
	idx   *index
}

// index maps IDs to gates and wires across all networks of a Sim.
//
type index struct {
	gates map[ID]*Gate
	wires map[ID]*Wire
}

// ID returns the network ID.
//
func (n *Network) ID() ID { return n.id }

// Name returns the network name.
//
func (n *Network) Name() string { return n.name }

// Gates returns the gates of n in evaluation order.
//
func (n *Network) Gates() []*Gate { return append([]*Gate(nil), n.gates...) }

// Wires returns the wires of n.
//
func (n *Network) Wires() []*Wire { return append([]*Wire(nil), n.wires...) }

// free returns a position for a new gate near p that does not overlap an
// existing gate.
//
func (n *Network) free(p Point) Point {
	const offset = 20
	for n.collides(p) {
		p.X += offset
		p.Y += offset
	}
	return p
}

func (n *Network) collides(p Point) bool {
	for _, g := range n.gates {
		if p.X < g.pos.X+GateWidth && g.pos.X < p.X+GateWidth &&
			p.Y < g.pos.Y+GateHeight && g.pos.Y < p.Y+GateHeight {
			return true
		}
	}
	return false
}

func (n *Network) addWire(w *Wire) {
	attach(w)
	n.wires = append(n.wires, w)
	n.idx.wires[w.id] = w
}

func (n *Network) addGate(g *Gate) {
	n.gates = append(n.gates, g)
	n.idx.gates[g.id] = g
}

func (n *Network) removeWire(w *Wire) bool {
	for i, o := range n.wires {
		if o == w {
			detach(w)
			delete(n.idx.wires, w.id)
			copy(n.wires[i:], n.wires[i+1:])
			n.wires[len(n.wires)-1] = nil
			n.wires = n.wires[:len(n.wires)-1]
			return true
		}
	}
	return false
}

// removeGate removes g from n together with every wire connected to one of
// its ports. It returns the removed wires.
//
func (n *Network) removeGate(g *Gate) []*Wire {
	var ws []*Wire
	for _, p := range g.ins {
		if p.in != nil {
			ws = append(ws, p.in)
		}
	}
	for _, p := range g.outs {
		ws = append(ws, p.outs...)
	}
	for _, w := range ws {
		n.removeWire(w)
	}
	for _, p := range g.ins {
		p.Unbind()
	}
	for _, p := range g.outs {
		p.Unbind()
	}
	for i, o := range n.gates {
		if o == g {
			copy(n.gates[i:], n.gates[i+1:])
			n.gates[len(n.gates)-1] = nil
			n.gates = n.gates[:len(n.gates)-1]
			delete(n.idx.gates, g.id)
			break
		}
	}
	return ws
}
