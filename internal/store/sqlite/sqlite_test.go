package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/db47h/fupsim"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveLoadVariables(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	vs, err := repo.LoadVariables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 0 {
		t.Fatalf("expected empty snapshot, got %v", vs)
	}

	want := []fupsim.Variable{
		{Name: "Start", Kind: fupsim.InputVar, Value: true},
		{Name: "Lamp", Kind: fupsim.OutputVar},
		{Name: "Aux", Kind: fupsim.MemoryVar, Value: true},
	}
	if err = repo.SaveVariables(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := repo.LoadVariables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// a new snapshot replaces the previous one
	want = want[1:2]
	if err = repo.SaveVariables(ctx, want); err != nil {
		t.Fatal(err)
	}
	if got, err = repo.LoadVariables(ctx); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSaveVariables_rollback(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	orig := []fupsim.Variable{{Name: "I1", Kind: fupsim.InputVar}}
	if err := repo.SaveVariables(ctx, orig); err != nil {
		t.Fatal(err)
	}
	bad := []fupsim.Variable{{Name: "A"}, {Name: "A"}}
	if err := repo.SaveVariables(ctx, bad); err == nil {
		t.Fatal("expected duplicate name error")
	}
	got, err := repo.LoadVariables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, orig) {
		t.Fatalf("failed save modified snapshot: %v", got)
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fupsim.db")
	ctx := context.Background()
	repo, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s := fupsim.NewSim(0)
	if err = s.SetInputVariableValue("I2", true); err != nil {
		t.Fatal(err)
	}
	if err = repo.SaveVariables(ctx, s.Variables()); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	if repo, err = New(path); err != nil {
		t.Fatal(err)
	}
	defer repo.Close()
	vs, err := repo.LoadVariables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	r := fupsim.NewSim(0, fupsim.WithPresets([]fupsim.Variable{{Name: "I1", Kind: fupsim.InputVar}}))
	if err = Restore(r, vs); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.Variables(), s.Variables()) {
		t.Fatalf("expected %v, got %v", s.Variables(), r.Variables())
	}
}
