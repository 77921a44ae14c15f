// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package fupsim

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind is the kind of a gate.
//
type Kind int

// Gate kinds.
//
const (
	And    Kind = iota // conjunction of all inputs
	Or                 // disjunction of all inputs
	Xor                // parity of all inputs
	Assign             // "=", output = input
	SR                 // set dominant latch. Inputs S, R
	RS                 // reset dominant latch. Inputs R, S
	TON                // on delay timer. Inputs IN, T
	TOF                // off delay timer. Inputs IN, T
	FP                 // rising edge detector
	FN                 // falling edge detector
	kindCount
)

var kindNames = [...]string{"AND", "OR", "XOR", "=", "SR", "RS", "TON", "TOF", "FP", "FN"}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// ParseKind returns the gate Kind with the given name.
//
func ParseKind(s string) (Kind, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "ASSIGN" {
		return Assign, nil
	}
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, errors.Wrap(ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
//
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || k >= kindCount {
		return nil, errors.Wrap(ErrUnknownKind, k.String())
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Variadic returns true for gate kinds that accept a variable number of
// inputs (AND, OR, XOR).
//
func (k Kind) Variadic() bool { return k == And || k == Or || k == Xor }

// MinInputs is the minimum input count of variadic gates.
//
const MinInputs = 2

// DefaultDelay is the initial delay of timers, in seconds.
//
const DefaultDelay = 1.0

// Gate geometry, used for placement only.
//
const (
	GateWidth  = 120
	GateHeight = 90
)

// Point is a position on a network canvas.
//
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// A Clock tells the current time. Timers use it to measure delays.
//
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
//
type ClockFunc func() time.Time

// Now implements Clock.
//
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
//
var SystemClock Clock = ClockFunc(time.Now)

// logic is the kind specific state of a gate. Concrete types are
// combinational, *latch, *timer and *edge.
//
type logic interface {
	kindState()
}

type combinational struct{}

type latch struct {
	memory bool
}

type timer struct {
	armed   bool
	armedAt time.Time
	delay   float64 // seconds
}

type edge struct {
	prev bool
}

func (combinational) kindState() {}
func (*latch) kindState()        {}
func (*timer) kindState()        {}
func (*edge) kindState()         {}

// A Gate is a node in a network. It has one or more input ports and exactly
// one output port.
//
type Gate struct {
	id     ID
	kind   Kind
	net    *Network
	store  *Store
	clock  Clock
	pos    Point
	ins    []*Port
	outs   []*Port
	state  logic
	result bool
}

func newGate(kind Kind, net *Network, store *Store, clock Clock) (*Gate, error) {
	g := &Gate{id: newID(), kind: kind, net: net, store: store, clock: clock}
	switch kind {
	case And, Or, Xor:
		g.state = combinational{}
		for i := 0; i < MinInputs; i++ {
			g.addInput("IN" + strconv.Itoa(i+1))
		}
	case Assign:
		g.state = combinational{}
		g.addInput("IN")
	case SR:
		g.state = &latch{}
		g.addInput("S")
		g.addInput("R")
	case RS:
		g.state = &latch{}
		g.addInput("R")
		g.addInput("S")
	case TON, TOF:
		g.state = &timer{delay: DefaultDelay}
		g.addInput("IN")
		g.addInput("T")
	case FP:
		g.state = &edge{prev: false}
		g.addInput("IN")
	case FN:
		g.state = &edge{prev: true}
		g.addInput("IN")
	default:
		return nil, errors.Wrap(ErrUnknownKind, kind.String())
	}
	label := "Q"
	if _, ok := g.state.(combinational); ok {
		label = "OUT"
	}
	g.outs = []*Port{newPort(g, Out, 0, label)}
	return g, nil
}

func (g *Gate) addInput(label string) *Port {
	p := newPort(g, In, len(g.ins), label)
	g.ins = append(g.ins, p)
	return p
}

// ID returns the gate ID.
//
func (g *Gate) ID() ID { return g.id }

// Kind returns the gate kind.
//
func (g *Gate) Kind() Kind { return g.kind }

// Network returns the network g belongs to.
//
func (g *Gate) Network() *Network { return g.net }

// Position returns the position of g on its network canvas.
//
func (g *Gate) Position() Point { return g.pos }

// Inputs returns the input ports of g in order.
//
func (g *Gate) Inputs() []*Port { return append([]*Port(nil), g.ins...) }

// Input returns the i-th input port of g.
//
func (g *Gate) Input(i int) *Port { return g.ins[i] }

// Output returns the output port of g.
//
func (g *Gate) Output() *Port { return g.outs[0] }

// Port returns the port with the given label. Labels are case insensitive;
// "out" and "q" both name the output port.
//
func (g *Gate) Port(label string) (*Port, bool) {
	l := strings.ToUpper(label)
	if l == "OUT" || l == "Q" {
		return g.outs[0], true
	}
	for _, p := range g.ins {
		if p.label == l {
			return p, true
		}
	}
	// IN1 on single input gates
	if l == "IN1" && len(g.ins) > 0 && g.ins[0].label == "IN" {
		return g.ins[0], true
	}
	return nil, false
}

// Indicator returns the last computed output of g. It is meant for display
// purposes.
//
func (g *Gate) Indicator() bool { return g.result }

// isLatch returns true for gates that hold their own state and can safely be
// part of a wire loop.
//
func (g *Gate) isLatch() bool {
	_, ok := g.state.(*latch)
	return ok
}

// AddInput appends a new input port to an AND, OR or XOR gate.
//
func (g *Gate) AddInput() (*Port, error) {
	if !g.kind.Variadic() {
		return nil, errors.Wrapf(ErrArity, "%s has a fixed input count", g)
	}
	return g.addInput("IN" + strconv.Itoa(len(g.ins)+1)), nil
}

// RemoveInput removes the last input port of an AND, OR or XOR gate. Its
// incoming wire, if any, is deleted and its variable binding removed.
//
func (g *Gate) RemoveInput() error {
	if !g.kind.Variadic() {
		return errors.Wrapf(ErrArity, "%s has a fixed input count", g)
	}
	if len(g.ins) <= MinInputs {
		return errors.Wrapf(ErrArity, "%s needs at least %d inputs", g, MinInputs)
	}
	p := g.ins[len(g.ins)-1]
	if p.in != nil {
		g.net.removeWire(p.in)
	}
	p.Unbind()
	g.ins[len(g.ins)-1] = nil
	g.ins = g.ins[:len(g.ins)-1]
	return nil
}

// timePort returns the T port of timers.
//
func (g *Gate) timePort() *Port {
	if _, ok := g.state.(*timer); ok {
		return g.ins[1]
	}
	return nil
}

// TimeConstant returns the current delay of a timer gate, in seconds.
//
func (g *Gate) TimeConstant() (float64, bool) {
	if t, ok := g.state.(*timer); ok {
		return t.delay, true
	}
	return 0, false
}

// SetTimeConstant sets the delay of a timer gate, in seconds.
//
func (g *Gate) SetTimeConstant(seconds float64) error {
	t, ok := g.state.(*timer)
	if !ok {
		return errors.Wrap(ErrNotTimePort, g.String())
	}
	if !validDelay(seconds) {
		return errors.Wrapf(ErrBadTimeConstant, "%v", seconds)
	}
	t.delay = seconds
	return nil
}

// SetTimeConstantText parses s as a number of seconds and sets the delay of a
// timer gate. A malformed value leaves the current delay unchanged.
//
func (g *Gate) SetTimeConstantText(s string) error {
	v, ok := parseDelay(s)
	if !ok {
		return errors.Wrapf(ErrBadTimeConstant, "%q", s)
	}
	return g.SetTimeConstant(v)
}

func validDelay(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func parseDelay(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !validDelay(v) {
		return 0, false
	}
	return v, true
}

// Evaluate computes the output of g from its inputs, writes it to the output
// port and updates the gate state. It is called once per tick by the
// simulation loop.
//
func (g *Gate) Evaluate() {
	var r bool
	switch st := g.state.(type) {
	case combinational:
		r = g.combine()
	case *latch:
		s, rs := g.ins[0].Value(), g.ins[1].Value()
		if g.kind == RS {
			s, rs = rs, s
		}
		switch {
		case s && rs:
			r = g.kind == SR
		case s:
			r = true
		case rs:
			r = false
		default:
			r = st.memory
		}
		st.memory = r
	case *timer:
		// a T port bound to a variable named like a number sets the delay.
		if v, ok := parseDelay(g.ins[1].variable); ok {
			st.delay = v
		}
		now := g.clock.Now()
		in := g.ins[0].Value()
		if g.kind == TON {
			if !in {
				st.armed = false
				r = false
				break
			}
			if !st.armed {
				st.armed, st.armedAt = true, now
			}
			r = now.Sub(st.armedAt).Seconds() >= st.delay
		} else {
			if in {
				st.armed = false
				r = true
				break
			}
			if !st.armed {
				st.armed, st.armedAt = true, now
			}
			r = now.Sub(st.armedAt).Seconds() < st.delay
		}
	case *edge:
		in := g.ins[0].Value()
		if g.kind == FP {
			r = in && !st.prev
		} else {
			r = !in && st.prev
		}
		st.prev = in
	default:
		panic("unknown logic state for gate " + g.String())
	}
	g.result = r
	for _, o := range g.outs {
		o.Write(r)
	}
}

func (g *Gate) combine() bool {
	switch g.kind {
	case And:
		for _, p := range g.ins {
			if !p.Value() {
				return false
			}
		}
		return true
	case Or:
		for _, p := range g.ins {
			if p.Value() {
				return true
			}
		}
		return false
	case Xor:
		r := false
		for _, p := range g.ins {
			r = r != p.Value()
		}
		return r
	case Assign:
		return g.ins[0].Value()
	}
	panic("not a combinational gate: " + g.String())
}

func (g *Gate) String() string {
	id := string(g.id)
	if len(id) > 8 {
		id = id[:8]
	}
	return g.kind.String() + "#" + id
}
