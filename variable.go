// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package fupsim

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// VarKind is the kind of a variable.
//
type VarKind int

// Variable kinds.
//
const (
	InputVar VarKind = iota
	OutputVar
	MemoryVar
)

var varKindNames = [...]string{"input", "output", "memory"}

func (k VarKind) String() string {
	if k < 0 || int(k) >= len(varKindNames) {
		return "VarKind(" + strconv.Itoa(int(k)) + ")"
	}
	return varKindNames[k]
}

// ParseVarKind returns the VarKind for the given name. Names are case
// insensitive. The german names used by TIA-style editors (eingang, ausgang,
// merker) are accepted as well.
//
func ParseVarKind(s string) (VarKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "input", "in", "i", "eingang":
		return InputVar, nil
	case "output", "out", "q", "ausgang":
		return OutputVar, nil
	case "memory", "mem", "m", "merker":
		return MemoryVar, nil
	}
	return 0, errors.Errorf("unknown variable kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
//
func (k VarKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(varKindNames) {
		return nil, errors.Errorf("invalid variable kind %d", int(k))
	}
	return []byte(varKindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (k *VarKind) UnmarshalText(b []byte) error {
	v, err := ParseVarKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Variable is a named boolean.
//
type Variable struct {
	Name  string  `json:"name" yaml:"name"`
	Kind  VarKind `json:"kind" yaml:"kind"`
	Value bool    `json:"value" yaml:"value"`
}

// DefaultPresets is the set of variables available in a new simulation.
//
var DefaultPresets = []Variable{
	{"I1", InputVar, false},
	{"I2", InputVar, false},
	{"Q1", OutputVar, false},
	{"Q2", OutputVar, false},
	{"M1", MemoryVar, false},
}

// Store is a registry of named variables shared by all networks of a
// simulation.
//
// Ports reference variables by name only. The Store keeps track of which ports
// are bound to which variable so that deleting or renaming a variable updates
// every port that uses it.
//
// A Store is not safe for concurrent use. Within a Sim, it must only be
// accessed from the simulation loop (see Sim.Do).
//
type Store struct {
	vars  map[string]*Variable
	order []string
	bound map[string]map[*Port]struct{}
}

// NewStore returns a new empty variable store.
//
func NewStore() *Store {
	return &Store{
		vars:  make(map[string]*Variable),
		bound: make(map[string]map[*Port]struct{}),
	}
}

// Create adds a new variable.
//
func (s *Store) Create(name string, kind VarKind, value bool) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := s.vars[name]; ok {
		return errors.Wrap(ErrDuplicateName, name)
	}
	if _, err := kind.MarshalText(); err != nil {
		return err
	}
	s.vars[name] = &Variable{name, kind, value}
	s.order = append(s.order, name)
	return nil
}

// Get returns a copy of the named variable.
//
func (s *Store) Get(name string) (Variable, bool) {
	v, ok := s.vars[name]
	if !ok {
		return Variable{}, false
	}
	return *v, true
}

// Value returns the value of the named variable, false if it does not exist.
//
func (s *Store) Value(name string) bool {
	if v, ok := s.vars[name]; ok {
		return v.Value
	}
	return false
}

// SetValue sets the value of a variable, regardless of its kind.
//
func (s *Store) SetValue(name string, value bool) error {
	v, ok := s.vars[name]
	if !ok {
		return errors.Wrap(ErrUnknownVariable, name)
	}
	v.Value = value
	return nil
}

// Retype changes the kind of a variable. Existing bindings are kept:
// compatibility with the port direction is only checked when binding.
//
func (s *Store) Retype(name string, kind VarKind) error {
	v, ok := s.vars[name]
	if !ok {
		return errors.Wrap(ErrUnknownVariable, name)
	}
	if _, err := kind.MarshalText(); err != nil {
		return err
	}
	v.Kind = kind
	return nil
}

// Rename renames a variable. Ports bound to the old name follow.
//
func (s *Store) Rename(old, name string) error {
	v, ok := s.vars[old]
	if !ok {
		return errors.Wrap(ErrUnknownVariable, old)
	}
	if old == name {
		return nil
	}
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := s.vars[name]; ok {
		return errors.Wrap(ErrDuplicateName, name)
	}
	delete(s.vars, old)
	v.Name = name
	s.vars[name] = v
	for i, n := range s.order {
		if n == old {
			s.order[i] = name
			break
		}
	}
	if ps, ok := s.bound[old]; ok {
		delete(s.bound, old)
		s.bound[name] = ps
		for p := range ps {
			p.variable = name
		}
	}
	return nil
}

// Delete removes a variable and unbinds every port bound to it.
//
func (s *Store) Delete(name string) error {
	if _, ok := s.vars[name]; !ok {
		return errors.Wrap(ErrUnknownVariable, name)
	}
	delete(s.vars, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for p := range s.bound[name] {
		p.variable = ""
	}
	delete(s.bound, name)
	return nil
}

// List returns a copy of all variables of the given kinds in creation order.
// If no kind is given, all variables are returned.
//
func (s *Store) List(kinds ...VarKind) []Variable {
	out := make([]Variable, 0, len(s.order))
	for _, n := range s.order {
		v := s.vars[n]
		if len(kinds) == 0 || hasKind(kinds, v.Kind) {
			out = append(out, *v)
		}
	}
	return out
}

// Len returns the number of variables in the store.
//
func (s *Store) Len() int { return len(s.vars) }

// Bound returns the number of ports bound to the named variable.
//
func (s *Store) Bound(name string) int { return len(s.bound[name]) }

func hasKind(ks []VarKind, k VarKind) bool {
	for _, kk := range ks {
		if kk == k {
			return true
		}
	}
	return false
}

// compatible reports whether a variable of kind k can be bound to a port with
// direction d. Input ports can read any variable, output ports can only drive
// outputs and memory.
//
func compatible(k VarKind, d Direction) bool {
	return d == In || k != InputVar
}

func (s *Store) bind(p *Port, name string) error {
	v, ok := s.vars[name]
	if !ok {
		return errors.Wrap(ErrUnknownVariable, name)
	}
	if !compatible(v.Kind, p.dir) {
		return errors.Wrapf(ErrKindMismatch, "%s variable %s on %s port", v.Kind, name, p.dir)
	}
	s.unbind(p)
	ps := s.bound[name]
	if ps == nil {
		ps = make(map[*Port]struct{})
		s.bound[name] = ps
	}
	ps[p] = struct{}{}
	p.variable = name
	return nil
}

func (s *Store) unbind(p *Port) {
	if p.variable == "" {
		return
	}
	if ps := s.bound[p.variable]; ps != nil {
		delete(ps, p)
		if len(ps) == 0 {
			delete(s.bound, p.variable)
		}
	}
	p.variable = ""
}

func (s *Store) lookup(name string) *Variable {
	if name == "" {
		return nil
	}
	return s.vars[name]
}
