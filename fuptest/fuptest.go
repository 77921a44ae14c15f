// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package fuptest provides utility functions for testing gates and networks.
//
package fuptest

import (
	"strings"
	"sync"
	"testing"
	"testing/quick"
	"time"

	"github.com/db47h/fupsim"
)

// Clock is a manually advanced clock for testing timers.
//
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock returns a new Clock set to an arbitrary fixed date.
//
func NewClock() *Clock {
	return &Clock{t: time.Date(2018, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// Now implements fupsim.Clock.
//
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
//
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Gate returns a new simulation with a single network holding a single gate
// of the given kind with n inputs. n is ignored for gates with a fixed
// input count.
//
func Gate(t testing.TB, kind fupsim.Kind, n int, opts ...fupsim.Option) (*fupsim.Sim, *fupsim.Gate) {
	t.Helper()
	s := fupsim.NewSim(0, append([]fupsim.Option{fupsim.WithPresets(nil)}, opts...)...)
	g, err := s.CreateGate(s.CreateNetwork(""), kind, fupsim.Point{})
	if err != nil {
		t.Fatal(err)
	}
	for kind.Variadic() && len(g.Inputs()) < n {
		if _, err = g.AddInput(); err != nil {
			t.Fatal(err)
		}
	}
	return s, g
}

// Apply sets the latched values of the inputs of g, runs one tick of s and
// returns the gate output.
//
func Apply(s *fupsim.Sim, g *fupsim.Gate, in ...bool) bool {
	for i, v := range in {
		g.Input(i).Set(v)
	}
	s.Tick()
	return g.Output().Value()
}

func fmtInputs(in []bool) string {
	var b strings.Builder
	for i, v := range in {
		if i > 0 {
			b.WriteString(", ")
		}
		if v {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// TruthTable checks a combinational gate of the given kind with n inputs
// against f for every input combination.
//
func TruthTable(t *testing.T, kind fupsim.Kind, n int, f func(in []bool) bool) {
	t.Helper()
	s, g := Gate(t, kind, n)
	in := make([]bool, len(g.Inputs()))
	for i := 0; i < 1<<uint(len(in)); i++ {
		for bit := range in {
			in[len(in)-bit-1] = i&(1<<uint(bit)) != 0
		}
		exp := f(in)
		if got := Apply(s, g, in...); got != exp {
			t.Errorf("%s(%s) = %v, got %v", kind, fmtInputs(in), exp, got)
		}
		if g.Indicator() != exp {
			t.Errorf("%s(%s) indicator = %v, got %v", kind, fmtInputs(in), exp, g.Indicator())
		}
	}
}

// Random checks a combinational gate of the given kind with n inputs against
// f with random inputs.
//
func Random(t *testing.T, kind fupsim.Kind, n int, f func(in []bool) bool) {
	t.Helper()
	s, g := Gate(t, kind, n)
	in := make([]bool, len(g.Inputs()))
	check := func(seed uint64) bool {
		for i := range in {
			in[i] = seed&(1<<uint(i%64)) != 0
		}
		return Apply(s, g, in...) == f(in)
	}
	if err := quick.Check(check, nil); err != nil {
		t.Fatalf("%s: %v", kind, err)
	}
}

// Step is one step of a gate sequence: input values, time to advance the
// clock before the tick, and the expected output.
//
type Step struct {
	In    []bool
	After time.Duration
	Out   bool
}

// Sequence runs steps against a new gate of the given kind and checks its
// output after each tick.
//
func Sequence(t *testing.T, kind fupsim.Kind, steps []Step) {
	t.Helper()
	c := NewClock()
	s, g := Gate(t, kind, 0, fupsim.WithClock(c))
	for i, st := range steps {
		c.Advance(st.After)
		if got := Apply(s, g, st.In...); got != st.Out {
			t.Fatalf("%s step %d: in (%s) +%v: expected %v, got %v", kind, i, fmtInputs(st.In), st.After, st.Out, got)
		}
	}
}
