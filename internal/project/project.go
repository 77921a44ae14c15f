// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package project reads and writes fupsim projects as YAML.
//
// A project file lists variables and networks. Gates are identified by a
// file local id and wires by their end points, written as "gate.PORT":
//
//	variables:
//	  - {name: Start, kind: input}
//	  - {name: Lamp, kind: output}
//	networks:
//	  - name: Latch
//	    gates:
//	      - {id: g1, kind: SR, conns: "s=Start, r=!Stop"}
//	      - {id: g2, kind: "=", ports: [{port: OUT, variable: Lamp}]}
//	    wires:
//	      - {from: g1.Q, to: g2.IN}
//
// Gate ports are configured either with a connection string (conns) or with
// a list of ports. Both may be used on the same gate; conns is applied
// first.
//
package project

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/db47h/fupsim"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// File is the content of a project file.
//
type File struct {
	Variables []fupsim.Variable `yaml:"variables,omitempty"`
	Networks  []Network         `yaml:"networks,omitempty"`
}

// Network is a network in a project file.
//
type Network struct {
	Name  string `yaml:"name"`
	Gates []Gate `yaml:"gates,omitempty"`
	Wires []Wire `yaml:"wires,omitempty"`
}

// Gate is a gate in a project file.
//
type Gate struct {
	ID     string       `yaml:"id"`
	Kind   fupsim.Kind  `yaml:"kind"`
	Pos    fupsim.Point `yaml:"pos,omitempty"`
	Inputs int          `yaml:"inputs,omitempty"` // AND, OR, XOR only
	Delay  *float64     `yaml:"delay,omitempty"`  // TON, TOF only
	Conns  string       `yaml:"conns,omitempty"`
	Ports  []Port       `yaml:"ports,omitempty"`
}

// Port is the configuration of a gate port.
//
type Port struct {
	Port     string `yaml:"port"`
	Negated  bool   `yaml:"negated,omitempty"`
	Variable string `yaml:"variable,omitempty"`
}

// Wire connects two ports, written "gate.PORT".
//
type Wire struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Decode reads a project file from r. An empty input yields an empty File.
//
func Decode(r io.Reader) (*File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode project")
	}
	return &f, nil
}

// Load reads the project file at path.
//
func Load(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	f, err := Decode(r)
	return f, errors.Wrap(err, path)
}

// Encode writes all variables and networks of s to w.
//
func Encode(w io.Writer, s *fupsim.Sim) error {
	e := yaml.NewEncoder(w)
	e.SetIndent(2)
	if err := e.Encode(FromSim(s)); err != nil {
		return errors.Wrap(err, "encode project")
	}
	return e.Close()
}

// Save writes s to the project file at path.
//
func Save(path string, s *fupsim.Sim) error {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = Encode(w, s); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// FromSim returns the project File describing s.
//
func FromSim(s *fupsim.Sim) *File {
	f := &File{Variables: s.Variables()}
	ids := make(map[*fupsim.Gate]string)
	for _, n := range s.Networks() {
		fn := Network{Name: n.Name()}
		for _, g := range n.Gates() {
			id := "g" + strconv.Itoa(len(ids)+1)
			ids[g] = id
			fg := Gate{ID: id, Kind: g.Kind(), Pos: g.Position()}
			if g.Kind().Variadic() && len(g.Inputs()) > fupsim.MinInputs {
				fg.Inputs = len(g.Inputs())
			}
			if d, ok := g.TimeConstant(); ok {
				fg.Delay = &d
			}
			for _, p := range append(g.Inputs(), g.Output()) {
				if p.Negated() || p.Variable() != "" {
					fg.Ports = append(fg.Ports, Port{Port: p.Label(), Negated: p.Negated(), Variable: p.Variable()})
				}
			}
			fn.Gates = append(fn.Gates, fg)
		}
		for _, w := range n.Wires() {
			fn.Wires = append(fn.Wires, Wire{
				From: ids[w.Source().Gate()] + "." + w.Source().Label(),
				To:   ids[w.Dest().Gate()] + "." + w.Dest().Label(),
			})
		}
		f.Networks = append(f.Networks, fn)
	}
	return f
}

// Apply replaces the networks of s with the networks of f. Variables of f
// are created, or updated if they already exist. Variables of s not in f are
// left untouched.
//
// f is first checked against a scratch simulation so that s is not modified
// if f cannot be applied entirely.
//
func (f *File) Apply(s *fupsim.Sim) error {
	if err := f.build(fupsim.NewSim(0, fupsim.WithPresets(s.Variables()))); err != nil {
		return err
	}
	for _, n := range s.Networks() {
		if err := s.Delete(n.ID()); err != nil {
			return err
		}
	}
	return f.build(s)
}

func (f *File) build(s *fupsim.Sim) error {
	for _, v := range f.Variables {
		var err error
		if _, ok := s.Store().Get(v.Name); ok {
			err = s.EditVariable(v.Name, v)
		} else {
			err = s.CreateVariable(v.Name, v.Kind, v.Value)
		}
		if err != nil {
			return errors.Wrapf(err, "variable %q", v.Name)
		}
	}
	gates := make(map[string]*fupsim.Gate)
	for _, fn := range f.Networks {
		n := s.CreateNetwork(fn.Name)
		for _, fg := range fn.Gates {
			if _, ok := gates[fg.ID]; ok || fg.ID == "" || strings.Contains(fg.ID, ".") {
				return errors.Errorf("network %q: invalid or duplicate gate id %q", fn.Name, fg.ID)
			}
			g, err := fg.create(s, n)
			if err != nil {
				return errors.Wrapf(err, "network %q, gate %s", fn.Name, fg.ID)
			}
			gates[fg.ID] = g
		}
		for _, fw := range fn.Wires {
			src, err := port(gates, fw.From)
			if err != nil {
				return errors.Wrapf(err, "network %q", fn.Name)
			}
			dst, err := port(gates, fw.To)
			if err != nil {
				return errors.Wrapf(err, "network %q", fn.Name)
			}
			if _, err = s.CreateWire(src, dst); err != nil {
				return errors.Wrapf(err, "network %q, wire %s -> %s", fn.Name, fw.From, fw.To)
			}
		}
	}
	return nil
}

func (fg *Gate) create(s *fupsim.Sim, n *fupsim.Network) (*fupsim.Gate, error) {
	g, err := s.Place(n, fg.Kind, fg.Pos, fg.Conns)
	if err != nil {
		return nil, err
	}
	for len(g.Inputs()) < fg.Inputs {
		if _, err = g.AddInput(); err != nil {
			return nil, err
		}
	}
	if fg.Delay != nil {
		if err = g.SetTimeConstant(*fg.Delay); err != nil {
			return nil, err
		}
	}
	for _, fp := range fg.Ports {
		p, ok := g.Port(fp.Port)
		if !ok {
			return nil, errors.Errorf("no port %q", fp.Port)
		}
		p.SetNegated(fp.Negated)
		if fp.Variable != "" {
			if err = s.BindVariable(p, fp.Variable); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func port(gates map[string]*fupsim.Gate, ref string) (*fupsim.Port, error) {
	i := strings.LastIndexByte(ref, '.')
	if i < 0 {
		return nil, errors.Errorf("malformed port reference %q", ref)
	}
	g, ok := gates[ref[:i]]
	if !ok {
		return nil, errors.Wrapf(fupsim.ErrUnknownEntity, "gate %q", ref[:i])
	}
	p, ok := g.Port(ref[i+1:])
	if !ok {
		return nil, errors.Wrapf(fupsim.ErrUnknownEntity, "port %q", ref)
	}
	return p, nil
}
