package fupsim_test

import (
	"testing"
	"time"

	fup "github.com/db47h/fupsim"
	"github.com/db47h/fupsim/fuptest"
	"github.com/pkg/errors"
)

func and(in []bool) bool {
	for _, v := range in {
		if !v {
			return false
		}
	}
	return true
}

func or(in []bool) bool {
	for _, v := range in {
		if v {
			return true
		}
	}
	return false
}

func parity(in []bool) bool {
	n := 0
	for _, v := range in {
		if v {
			n++
		}
	}
	return n&1 != 0
}

func Test_combinational(t *testing.T) {
	td := []struct {
		kind fup.Kind
		fn   func([]bool) bool
	}{
		{fup.And, and},
		{fup.Or, or},
		{fup.Xor, parity},
	}
	for _, d := range td {
		for n := 2; n <= 5; n++ {
			t.Run(d.kind.String(), func(t *testing.T) {
				fuptest.TruthTable(t, d.kind, n, d.fn)
			})
		}
	}
	t.Run("=", func(t *testing.T) {
		fuptest.TruthTable(t, fup.Assign, 1, func(in []bool) bool { return in[0] })
	})
}

func Test_xor_parity(t *testing.T) {
	fuptest.Random(t, fup.Xor, 24, parity)
}

func TestSR(t *testing.T) {
	fuptest.Sequence(t, fup.SR, []fuptest.Step{
		{In: []bool{false, false}, Out: false},
		{In: []bool{true, false}, Out: true},
		{In: []bool{false, true}, Out: false},
		{In: []bool{true, true}, Out: true}, // set wins
		{In: []bool{false, false}, Out: true},
	})
}

func TestRS(t *testing.T) {
	// input order is R, S
	fuptest.Sequence(t, fup.RS, []fuptest.Step{
		{In: []bool{false, true}, Out: true},
		{In: []bool{true, false}, Out: false},
		{In: []bool{true, true}, Out: false}, // reset wins
		{In: []bool{false, false}, Out: false},
		{In: []bool{false, true}, Out: true},
		{In: []bool{false, false}, Out: true},
	})
}

func TestTON(t *testing.T) {
	ms := time.Millisecond
	fuptest.Sequence(t, fup.TON, []fuptest.Step{
		{In: []bool{false}, Out: false},
		{In: []bool{true}, Out: false},
		{In: []bool{true}, After: 500 * ms, Out: false},
		{In: []bool{true}, After: 499 * ms, Out: false},
		{In: []bool{true}, After: 1 * ms, Out: true},
		{In: []bool{true}, After: 5 * time.Second, Out: true},
		{In: []bool{false}, Out: false},
		// re-armed from scratch
		{In: []bool{true}, After: time.Second, Out: false},
		{In: []bool{true}, After: 600 * ms, Out: false},
		{In: []bool{false}, After: 100 * ms, Out: false},
		{In: []bool{true}, After: 100 * ms, Out: false},
		{In: []bool{true}, After: 999 * ms, Out: false},
		{In: []bool{true}, After: 1 * ms, Out: true},
	})
}

func TestTOF(t *testing.T) {
	ms := time.Millisecond
	fuptest.Sequence(t, fup.TOF, []fuptest.Step{
		{In: []bool{true}, Out: true},
		{In: []bool{true}, After: 2 * time.Second, Out: true},
		{In: []bool{false}, Out: true},
		{In: []bool{false}, After: 500 * ms, Out: true},
		{In: []bool{false}, After: 499 * ms, Out: true},
		{In: []bool{false}, After: 1 * ms, Out: false},
		{In: []bool{false}, After: time.Second, Out: false},
		{In: []bool{true}, Out: true},
		{In: []bool{false}, After: 100 * ms, Out: true},
		// control back high during the delay disarms the timer
		{In: []bool{true}, After: 500 * ms, Out: true},
		{In: []bool{false}, After: 100 * ms, Out: true},
		{In: []bool{false}, After: 900 * ms, Out: true},
		{In: []bool{false}, After: 100 * ms, Out: false},
	})
}

func TestFP(t *testing.T) {
	fuptest.Sequence(t, fup.FP, []fuptest.Step{
		{In: []bool{false}, Out: false},
		{In: []bool{false}, Out: false},
		{In: []bool{true}, Out: true},
		{In: []bool{true}, Out: false},
		{In: []bool{false}, Out: false},
		{In: []bool{true}, Out: true},
	})
}

func TestFN(t *testing.T) {
	fuptest.Sequence(t, fup.FN, []fuptest.Step{
		{In: []bool{true}, Out: false},
		{In: []bool{true}, Out: false},
		{In: []bool{false}, Out: true},
		{In: []bool{false}, Out: false},
		{In: []bool{true}, Out: false},
		{In: []bool{false}, Out: true},
	})
}

func TestTimeConstant(t *testing.T) {
	c := fuptest.NewClock()
	s, g := fuptest.Gate(t, fup.TON, 0, fup.WithClock(c))
	if d, ok := g.TimeConstant(); !ok || d != fup.DefaultDelay {
		t.Fatalf("expected default delay %v, got %v, %v", fup.DefaultDelay, d, ok)
	}
	if err := s.SetTimeConstant(g.Input(1), 0.25); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTimeConstant(g.Input(0), 2); !errors.Is(err, fup.ErrNotTimePort) {
		t.Fatalf("expected ErrNotTimePort, got %v", err)
	}
	if err := g.SetTimeConstantText("soon"); !errors.Is(err, fup.ErrBadTimeConstant) {
		t.Fatalf("expected ErrBadTimeConstant, got %v", err)
	}
	if err := g.SetTimeConstant(-1); !errors.Is(err, fup.ErrBadTimeConstant) {
		t.Fatalf("expected ErrBadTimeConstant, got %v", err)
	}
	if d, _ := g.TimeConstant(); d != 0.25 {
		t.Fatalf("expected delay 0.25, got %v", d)
	}

	// a variable named like a number overrides the delay on every tick
	if err := s.CreateVariable("1.5", fup.MemoryVar, false); err != nil {
		t.Fatal(err)
	}
	if err := s.BindVariable(g.Input(1), "1.5"); err != nil {
		t.Fatal(err)
	}
	s.Tick()
	if d, _ := g.TimeConstant(); d != 1.5 {
		t.Fatalf("expected delay 1.5, got %v", d)
	}
	// other names leave it alone
	if err := s.CreateVariable("T1", fup.MemoryVar, false); err != nil {
		t.Fatal(err)
	}
	if err := s.BindVariable(g.Input(1), "T1"); err != nil {
		t.Fatal(err)
	}
	s.Tick()
	if d, _ := g.TimeConstant(); d != 1.5 {
		t.Fatalf("expected delay 1.5, got %v", d)
	}

	_, and := fuptest.Gate(t, fup.And, 2)
	if err := and.SetTimeConstant(1); !errors.Is(err, fup.ErrNotTimePort) {
		t.Fatalf("expected ErrNotTimePort, got %v", err)
	}
}

func TestNegation(t *testing.T) {
	s, g := fuptest.Gate(t, fup.And, 2)
	g.Input(1).SetNegated(true)
	if !fuptest.Apply(s, g, true, false) {
		t.Fatal("expected a && !b = true")
	}
	if fuptest.Apply(s, g, true, true) {
		t.Fatal("expected a && !b = false")
	}
	// output negation applies on read, the latched value is the gate result
	g.Output().SetNegated(true)
	fuptest.Apply(s, g, true, false)
	if g.Output().Value() || !g.Output().Latched() || !g.Indicator() {
		t.Fatalf("negated output: value %v, latched %v, indicator %v", g.Output().Value(), g.Output().Latched(), g.Indicator())
	}
}

func TestArity(t *testing.T) {
	s, g := fuptest.Gate(t, fup.Or, 2)
	if err := g.RemoveInput(); !errors.Is(err, fup.ErrArity) {
		t.Fatalf("expected ErrArity, got %v", err)
	}
	p, err := g.AddInput()
	if err != nil {
		t.Fatal(err)
	}
	if p.Label() != "IN3" || p.Index() != 2 {
		t.Fatalf("bad new port %s, %d", p.Label(), p.Index())
	}
	src, err := s.CreateGate(g.Network(), fup.Assign, fup.Point{})
	if err != nil {
		t.Fatal(err)
	}
	w, err := s.CreateWire(src.Output(), p)
	if err != nil {
		t.Fatal(err)
	}
	if err = g.RemoveInput(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Wire(w.ID()); ok {
		t.Fatal("wire to removed input still exists")
	}
	if len(src.Output().Wires()) != 0 {
		t.Fatal("source port still references removed wire")
	}
	_, sr := fuptest.Gate(t, fup.SR, 0)
	if _, err = sr.AddInput(); !errors.Is(err, fup.ErrArity) {
		t.Fatalf("expected ErrArity, got %v", err)
	}
}

func TestWrite_input(t *testing.T) {
	_, g := fuptest.Gate(t, fup.And, 2)
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, fup.ErrUnboundWrite) {
			t.Fatalf("expected ErrUnboundWrite panic, got %v", r)
		}
	}()
	g.Input(0).Write(true)
}

func TestParseKind(t *testing.T) {
	for k := fup.And; k <= fup.FN; k++ {
		p, err := fup.ParseKind(k.String())
		if err != nil {
			t.Fatal(err)
		}
		if p != k {
			t.Fatalf("expected %v, got %v", k, p)
		}
	}
	if k, err := fup.ParseKind("assign"); err != nil || k != fup.Assign {
		t.Fatalf("expected Assign, got %v, %v", k, err)
	}
	if _, err := fup.ParseKind("NAND"); !errors.Is(err, fup.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
