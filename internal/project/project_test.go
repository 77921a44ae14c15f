package project_test

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/db47h/fupsim"
	"github.com/db47h/fupsim/internal/project"
)

const latch = `
variables:
  - {name: Start, kind: input}
  - {name: Stop, kind: eingang}
  - {name: Lamp, kind: output}
networks:
  - name: Latch
    gates:
      - {id: g1, kind: SR, conns: "s=Start, r=!Stop"}
      - id: g2
        kind: "="
        pos: {x: 200, y: 0}
        ports:
          - {port: OUT, variable: Lamp}
    wires:
      - {from: g1.Q, to: g2.IN}
`

func TestApply(t *testing.T) {
	f, err := project.Decode(strings.NewReader(latch))
	if err != nil {
		t.Fatal(err)
	}
	s := fupsim.NewSim(0, fupsim.WithPresets(nil))
	if err = f.Apply(s); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Networks()); n != 1 {
		t.Fatalf("expected 1 network, got %d", n)
	}
	// Stop is negated: the latch resets while Stop is false.
	if err = s.SetInputVariableValue("Stop", true); err != nil {
		t.Fatal(err)
	}
	s.Tick()
	if s.VariableValue("Lamp") {
		t.Fatal("Lamp on before Start")
	}
	if err = s.SetInputVariableValue("Start", true); err != nil {
		t.Fatal(err)
	}
	s.Tick()
	if !s.VariableValue("Lamp") {
		t.Fatal("Lamp off after Start")
	}
	if err = s.SetInputVariableValue("Start", false); err != nil {
		t.Fatal(err)
	}
	s.Tick()
	if !s.VariableValue("Lamp") {
		t.Fatal("latch did not hold")
	}
	if err = s.SetInputVariableValue("Stop", false); err != nil {
		t.Fatal(err)
	}
	s.Tick()
	if s.VariableValue("Lamp") {
		t.Fatal("Lamp on after Stop")
	}

	// applying again replaces networks
	if err = f.Apply(s); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Networks()); n != 1 {
		t.Fatalf("expected 1 network after reload, got %d", n)
	}
}

func TestApply_errors(t *testing.T) {
	td := []struct {
		name string
		in   string
	}{
		{"unknown variable", "networks:\n  - gates:\n      - {id: a, kind: AND, conns: \"in1=nope\"}\n"},
		{"bad kind", "networks:\n  - gates:\n      - {id: a, kind: NAND}\n"},
		{"duplicate id", "networks:\n  - gates:\n      - {id: a, kind: AND}\n      - {id: a, kind: OR}\n"},
		{"bad port", "networks:\n  - gates:\n      - {id: a, kind: FP, ports: [{port: T}]}\n"},
		{"bad wire", "networks:\n  - gates:\n      - {id: a, kind: AND}\n    wires:\n      - {from: a.OUT, to: b.IN1}\n"},
		{"loop", "networks:\n  - gates:\n      - {id: a, kind: AND}\n      - {id: b, kind: OR}\n    wires:\n      - {from: a.OUT, to: b.IN1}\n      - {from: b.OUT, to: a.IN1}\n"},
		{"arity", "networks:\n  - gates:\n      - {id: a, kind: SR, inputs: 3}\n"},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			s := fupsim.NewSim(0)
			s.CreateNetwork("keep")
			f, err := project.Decode(strings.NewReader(d.in))
			if err == nil {
				err = f.Apply(s)
			}
			if err == nil {
				t.Fatal("expected error")
			}
			t.Log(err)
			if ns := s.Networks(); len(ns) != 1 || ns[0].Name() != "keep" {
				t.Fatal("failed Apply modified the simulation")
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	s := fupsim.NewSim(0)
	n := s.CreateNetwork("main")
	sr, err := s.Place(n, fupsim.SR, fupsim.Point{}, "s=I1, r=!I2")
	if err != nil {
		t.Fatal(err)
	}
	ton, err := s.Place(n, fupsim.TON, fupsim.Point{X: 300}, "t=2.5, q=Q1")
	if err != nil {
		t.Fatal(err)
	}
	and, err := s.Place(n, fupsim.And, fupsim.Point{}, "in3=M1, !out=Q2")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = s.CreateWire(sr.Output(), ton.Input(0)); err != nil {
		t.Fatal(err)
	}
	if _, err = s.CreateWire(ton.Output(), and.Input(0)); err != nil {
		t.Fatal(err)
	}
	if err = s.CreateVariable("Motor.Run", fupsim.MemoryVar, true); err != nil {
		t.Fatal(err)
	}
	other := s.CreateNetwork("")
	if _, err = s.Place(other, fupsim.FN, fupsim.Point{}, "in=Motor.Run"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "project.yaml")
	if err = project.Save(path, s); err != nil {
		t.Fatal(err)
	}
	f, err := project.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	r := fupsim.NewSim(0, fupsim.WithPresets(nil))
	if err = f.Apply(r); err != nil {
		t.Fatal(err)
	}
	exp, got := project.FromSim(s), project.FromSim(r)
	if !reflect.DeepEqual(exp, got) {
		var b bytes.Buffer
		_ = project.Encode(&b, r)
		t.Fatalf("round trip mismatch:\n%s", b.String())
	}
	if len(got.Networks[0].Gates[2].Ports) != 2 || got.Networks[0].Gates[2].Inputs != 3 {
		t.Fatalf("AND gate config lost: %+v", got.Networks[0].Gates[2])
	}
}

func TestDecode_empty(t *testing.T) {
	f, err := project.Decode(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Variables) != 0 || len(f.Networks) != 0 {
		t.Fatalf("expected empty file, got %+v", f)
	}
}
