package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/db47h/fupsim"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.Tick != Duration(200*time.Millisecond) {
		t.Errorf("Tick = %v, want 200ms", time.Duration(c.Tick))
	}
	if c.Addr != ":3100" {
		t.Errorf("Addr = %q, want :3100", c.Addr)
	}
	if len(c.Presets) != len(fupsim.DefaultPresets) {
		t.Errorf("got %d presets, want %d", len(c.Presets), len(fupsim.DefaultPresets))
	}
}

func TestLoadFromPath(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		tick    time.Duration
		addr    string
		presets int
		wantErr bool
	}{
		{"empty", "", 200 * time.Millisecond, ":3100", 5, false},
		{"tick", "tick: 50ms\naddr: localhost:8080\n", 50 * time.Millisecond, "localhost:8080", 5, false},
		{"presets", "presets:\n  - {name: Start, kind: eingang}\n  - {name: Lamp, kind: output, value: true}\n", 200 * time.Millisecond, ":3100", 2, false},
		{"no presets", "presets: []\n", 200 * time.Millisecond, ":3100", 0, false},
		{"bad tick", "tick: soon\n", 0, "", 0, true},
		{"negative tick", "tick: -1s\n", 0, "", 0, true},
		{"bad kind", "presets:\n  - {name: X, kind: analog}\n", 0, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "fupsim.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			c, p, err := LoadFromPath(path)
			if p != path {
				t.Errorf("path = %q, want %q", p, path)
			}
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if time.Duration(c.Tick) != tt.tick {
				t.Errorf("Tick = %v, want %v", time.Duration(c.Tick), tt.tick)
			}
			if c.Addr != tt.addr {
				t.Errorf("Addr = %q, want %q", c.Addr, tt.addr)
			}
			if len(c.Presets) != tt.presets {
				t.Errorf("got %d presets, want %d", len(c.Presets), tt.presets)
			}
		})
	}
}

func TestLoadFromPath_presetKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fupsim.yaml")
	data := "presets:\n  - {name: Start, kind: eingang}\n  - {name: Lamp, kind: output, value: true}\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	c, _, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []fupsim.Variable{{Name: "Start", Kind: fupsim.InputVar}, {Name: "Lamp", Kind: fupsim.OutputVar, Value: true}}
	for i, v := range want {
		if c.Presets[i] != v {
			t.Errorf("preset %d = %+v, want %+v", i, c.Presets[i], v)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	c := DefaultConfig()
	c.Tick = Duration(time.Second)
	c.Project = "plant.yaml"
	c.Watch = true
	if err := c.Save(path); err != nil {
		t.Fatal(err)
	}
	got, _, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tick != c.Tick || got.Project != c.Project || !got.Watch || len(got.Presets) != len(c.Presets) {
		t.Errorf("got %+v, want %+v", got, c)
	}
}

func TestFindPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("addr: :9000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)
	if got := FindPath(); got != path {
		t.Errorf("FindPath() = %q, want %q", got, path)
	}
	c, p, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if p != path || c.Addr != ":9000" {
		t.Errorf("Load() = %q, %q", p, c.Addr)
	}
}
