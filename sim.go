// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package fupsim

import (
	"context"
	"io"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultPeriod is the default tick period.
//
const DefaultPeriod = 200 * time.Millisecond

// An Option configures a Sim.
//
type Option func(*Sim)

// WithClock sets the clock used by timers. The default is SystemClock.
//
func WithClock(c Clock) Option { return func(s *Sim) { s.clock = c } }

// WithLogger sets the logger used to report editor and loop events. Logging
// is disabled by default.
//
func WithLogger(l *log.Logger) Option { return func(s *Sim) { s.log = l } }

// WithPresets sets the variables created with a new Sim. The default is
// DefaultPresets.
//
func WithPresets(vs []Variable) Option { return func(s *Sim) { s.presets = vs } }

// WithObserver registers a function called with the new status frame at the
// end of every tick. Observers are called from the simulation loop and must
// not block.
//
func WithObserver(fn func(*Frame)) Option {
	return func(s *Sim) { s.observers = append(s.observers, fn) }
}

// Sim is a runnable logic simulation: a variable store and a set of networks.
//
// A Sim is not safe for concurrent use. The simple way to use it is from a
// single goroutine, calling Tick periodically. Alternatively, Run drives the
// simulation at a fixed period and other goroutines send their changes to
// the loop through Do or Submit. Frame is safe to call from any goroutine.
//
type Sim struct {
	store     *Store
	nets      []*Network
	idx       index
	clock     Clock
	period    time.Duration
	log       *log.Logger
	presets   []Variable
	observers []func(*Frame)
	ticks     uint64
	cmds      chan func(*Sim)

	mu    sync.RWMutex
	frame *Frame
}

// NewSim returns a new simulation with the given tick period. If period is
// less or equal to 0, DefaultPeriod is used.
//
func NewSim(period time.Duration, opts ...Option) *Sim {
	if period <= 0 {
		period = DefaultPeriod
	}
	s := &Sim{
		store:   NewStore(),
		idx:     index{make(map[ID]*Gate), make(map[ID]*Wire)},
		clock:   SystemClock,
		period:  period,
		presets: DefaultPresets,
		cmds:    make(chan func(*Sim), 64),
		frame:   &Frame{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = log.New(io.Discard, "", 0)
	}
	for _, v := range s.presets {
		if _, ok := s.store.Get(v.Name); ok {
			continue
		}
		if err := s.store.Create(v.Name, v.Kind, v.Value); err != nil {
			s.log.Printf("preset %s: %v", v.Name, err)
		}
	}
	return s
}

// Store returns the variable store of s.
//
func (s *Sim) Store() *Store { return s.store }

// Period returns the tick period.
//
func (s *Sim) Period() time.Duration { return s.period }

// Ticks returns the number of ticks run so far.
//
func (s *Sim) Ticks() uint64 { return s.ticks }

// Networks returns all networks in evaluation order.
//
func (s *Sim) Networks() []*Network { return append([]*Network(nil), s.nets...) }

// Network returns the network with the given id.
//
func (s *Sim) Network(id ID) (*Network, bool) {
	for _, n := range s.nets {
		if n.id == id {
			return n, true
		}
	}
	return nil, false
}

// Gate returns the gate with the given id.
//
func (s *Sim) Gate(id ID) (*Gate, bool) {
	g, ok := s.idx.gates[id]
	return g, ok
}

// Wire returns the wire with the given id.
//
func (s *Sim) Wire(id ID) (*Wire, bool) {
	w, ok := s.idx.wires[id]
	return w, ok
}

// Port returns the port designated by r.
//
func (s *Sim) Port(r PortRef) (*Port, error) {
	g, ok := s.idx.gates[r.Gate]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEntity, "gate %s", r.Gate)
	}
	ps := g.ins
	if r.Dir == Out {
		ps = g.outs
	}
	if r.Index < 0 || r.Index >= len(ps) {
		return nil, errors.Wrapf(ErrUnknownEntity, "%s port %d of %s", r.Dir, r.Index, g)
	}
	return ps[r.Index], nil
}

// CreateNetwork adds a new empty network. If name is empty, a name is
// generated.
//
func (s *Sim) CreateNetwork(name string) *Network {
	if name == "" {
		name = "Network " + strconv.Itoa(len(s.nets)+1)
	}
	n := &Network{id: newID(), name: name, idx: &s.idx}
	s.nets = append(s.nets, n)
	s.log.Printf("network %q created", name)
	return n
}

// CreateGate adds a new gate of the given kind to network n. If pos overlaps
// another gate, the gate is moved down and right until it fits.
//
func (s *Sim) CreateGate(n *Network, kind Kind, pos Point) (*Gate, error) {
	if err := s.owns(n); err != nil {
		return nil, err
	}
	g, err := newGate(kind, n, s.store, s.clock)
	if err != nil {
		return nil, err
	}
	g.pos = n.free(pos)
	n.addGate(g)
	s.log.Printf("%s: gate %s created", n.name, g)
	return g, nil
}

// CreateWire connects ports a and b. One of them must be an output port and
// the other an input port of another gate in the same network. The order of
// a and b does not matter.
//
func (s *Sim) CreateWire(a, b *Port) (*Wire, error) {
	if err := s.owns(a.gate.net); err != nil {
		return nil, err
	}
	src, dst, err := checkWire(a, b)
	if err != nil {
		return nil, err
	}
	w := &Wire{id: newID(), src: src, dst: dst}
	src.gate.net.addWire(w)
	return w, nil
}

// Delete deletes the network, gate or wire with the given id. Deleting a
// gate deletes all wires connected to it. Deleting a network deletes all its
// gates and wires.
//
func (s *Sim) Delete(id ID) error {
	if w, ok := s.idx.wires[id]; ok {
		w.src.gate.net.removeWire(w)
		return nil
	}
	if g, ok := s.idx.gates[id]; ok {
		g.net.removeGate(g)
		s.log.Printf("%s: gate %s deleted", g.net.name, g)
		return nil
	}
	for i, n := range s.nets {
		if n.id != id {
			continue
		}
		for len(n.gates) > 0 {
			n.removeGate(n.gates[len(n.gates)-1])
		}
		copy(s.nets[i:], s.nets[i+1:])
		s.nets[len(s.nets)-1] = nil
		s.nets = s.nets[:len(s.nets)-1]
		s.log.Printf("network %q deleted", n.name)
		return nil
	}
	return errors.Wrap(ErrUnknownEntity, string(id))
}

// BindVariable binds port p to the named variable.
//
func (s *Sim) BindVariable(p *Port, name string) error {
	if err := s.owns(p.gate.net); err != nil {
		return err
	}
	return p.Bind(name)
}

// Bindable returns the variables that can be bound to p.
//
func (s *Sim) Bindable(p *Port) []Variable {
	if p.dir == In {
		return s.store.List()
	}
	return s.store.List(OutputVar, MemoryVar)
}

// SetNegated sets the negation flag of port p.
//
func (s *Sim) SetNegated(p *Port, neg bool) { p.SetNegated(neg) }

// SetTimeConstant sets the delay of the timer owning p. p must be the T port
// of a TON or TOF gate.
//
func (s *Sim) SetTimeConstant(p *Port, seconds float64) error {
	if p.gate.timePort() != p {
		return errors.Wrap(ErrNotTimePort, p.String())
	}
	return p.gate.SetTimeConstant(seconds)
}

// CreateVariable adds a new variable.
//
func (s *Sim) CreateVariable(name string, kind VarKind, value bool) error {
	return s.store.Create(name, kind, value)
}

// EditVariable renames, retypes and sets the value of a variable in a single
// step. Nothing is changed if the new name is already taken.
//
func (s *Sim) EditVariable(name string, v Variable) error {
	if _, ok := s.store.Get(name); !ok {
		return errors.Wrap(ErrUnknownVariable, name)
	}
	if _, err := v.Kind.MarshalText(); err != nil {
		return err
	}
	if err := s.store.Rename(name, v.Name); err != nil {
		return err
	}
	// cannot fail past this point
	_ = s.store.Retype(v.Name, v.Kind)
	_ = s.store.SetValue(v.Name, v.Value)
	return nil
}

// DeleteVariable deletes a variable. Ports bound to it are unbound and fall
// back to their latched value.
//
func (s *Sim) DeleteVariable(name string) error {
	return s.store.Delete(name)
}

// SetInputVariableValue sets the value of an input variable.
//
func (s *Sim) SetInputVariableValue(name string, value bool) error {
	v, ok := s.store.Get(name)
	if !ok {
		return errors.Wrap(ErrUnknownVariable, name)
	}
	if v.Kind != InputVar {
		return errors.Wrapf(ErrKindMismatch, "%s is an %s variable", name, v.Kind)
	}
	return s.store.SetValue(name, value)
}

// VariableValue returns the value of the named variable.
//
func (s *Sim) VariableValue(name string) bool { return s.store.Value(name) }

// Variables returns the variables of the given kinds, or all variables if
// no kind is specified.
//
func (s *Sim) Variables(kinds ...VarKind) []Variable { return s.store.List(kinds...) }

// GateIndicator returns the last computed output of the gate with the given
// id.
//
func (s *Sim) GateIndicator(id ID) (bool, error) {
	g, ok := s.idx.gates[id]
	if !ok {
		return false, errors.Wrapf(ErrUnknownEntity, "gate %s", id)
	}
	return g.Indicator(), nil
}

// ResolvedValue returns the resolved value of the port designated by r.
//
func (s *Sim) ResolvedValue(r PortRef) (bool, error) {
	p, err := s.Port(r)
	if err != nil {
		return false, err
	}
	return p.Value(), nil
}

func (s *Sim) owns(n *Network) error {
	for _, o := range s.nets {
		if o == n {
			return nil
		}
	}
	return errors.Wrap(ErrUnknownEntity, "network not in this simulation")
}

// Tick runs one simulation step: every gate of every network is evaluated
// once, in insertion order, then port display values are refreshed and a new
// status frame is published.
//
func (s *Sim) Tick() {
	for _, n := range s.nets {
		for _, g := range n.gates {
			g.Evaluate()
		}
	}
	s.ticks++

	f := &Frame{
		Tick:      s.ticks,
		Time:      s.clock.Now(),
		Variables: s.store.List(),
	}
	for _, n := range s.nets {
		for _, g := range n.gates {
			gs := GateState{ID: g.id, Network: n.id, Kind: g.kind, Indicator: g.result}
			for _, p := range g.ins {
				p.refresh()
				gs.Inputs = append(gs.Inputs, p.shown)
			}
			for _, p := range g.outs {
				p.refresh()
			}
			gs.Output = g.outs[0].shown
			f.Gates = append(f.Gates, gs)
		}
	}
	s.mu.Lock()
	s.frame = f
	s.mu.Unlock()
	for _, o := range s.observers {
		o(f)
	}
}

// Frame returns the status frame published at the end of the last tick. It
// is safe to call from any goroutine. The returned frame must not be
// modified.
//
func (s *Sim) Frame() *Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// Run runs the simulation loop until ctx is done. Functions queued with Do or
// Submit are run before each tick. Run returns ctx.Err().
//
func (s *Sim) Run(ctx context.Context) error {
	t := time.NewTicker(s.period)
	defer t.Stop()
	tracer := otel.Tracer("github.com/db47h/fupsim")
	s.log.Printf("simulation started, period %v", s.period)
	for {
		select {
		case <-ctx.Done():
			s.drain()
			s.log.Printf("simulation stopped after %d ticks", s.ticks)
			return ctx.Err()
		case <-t.C:
			s.drain()
			_, span := tracer.Start(ctx, "fupsim.Tick")
			s.Tick()
			span.SetAttributes(
				attribute.Int64("tick", int64(s.ticks)),
				attribute.Int("networks", len(s.nets)),
				attribute.Int("gates", len(s.idx.gates)),
			)
			span.End()
		}
	}
}

func (s *Sim) drain() {
	for {
		select {
		case fn := <-s.cmds:
			fn(s)
		default:
			return
		}
	}
}

// Submit queues fn to be run by the simulation loop before the next tick. It
// returns false if the queue is full.
//
func (s *Sim) Submit(fn func(*Sim)) bool {
	select {
	case s.cmds <- fn:
		return true
	default:
		return false
	}
}

// Do runs fn from the simulation loop before the next tick and returns its
// result. Do must only be used while Run is running.
//
func (s *Sim) Do(ctx context.Context, fn func(*Sim) error) error {
	errc := make(chan error, 1)
	select {
	case s.cmds <- func(s *Sim) { errc <- fn(s) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frame is a snapshot of the simulation state taken at the end of a tick.
//
type Frame struct {
	Tick      uint64      `json:"tick"`
	Time      time.Time   `json:"time"`
	Variables []Variable  `json:"variables"`
	Gates     []GateState `json:"gates"`
}

// GateState is the state of a gate in a Frame.
//
type GateState struct {
	ID        ID     `json:"id"`
	Network   ID     `json:"network"`
	Kind      Kind   `json:"kind"`
	Indicator bool   `json:"indicator"`
	Inputs    []bool `json:"inputs"`
	Output    bool   `json:"output"`
}
