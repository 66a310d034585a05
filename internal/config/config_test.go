package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deixis/benchsweep/internal/sweep"
	"github.com/google/go-cmp/cmp"
)

const sample = `version: 1
command: [cargo, run, --release, "--features=benchmark,use-{{.svo_type}}", --, "--render-distance={{.render_distance}}"]
dwell: 5s
matrix:
  render_distance: [10, 20]
  render_shadows: [true, false]
  svo_type: [esvo, csvo]
`

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_FromRoot(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, sample)

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != dir {
		t.Errorf("Root = %q, want %q", res.Root, dir)
	}
	cfg := res.Config
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Dwell() != 5*time.Second {
		t.Errorf("Dwell() = %v, want 5s", cfg.Dwell())
	}
	if diff := cmp.Diff([]string{"render_distance", "render_shadows", "svo_type"}, cfg.Matrix.Names()); diff != "" {
		t.Errorf("axis order mismatch (-want +got):\n%s", diff)
	}
	if got := sweep.Count(cfg.Matrix); got != 8 {
		t.Errorf("Count = %d, want 8", got)
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, sample)

	sub := filepath.Join(root, "assets", "worlds")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != root {
		t.Errorf("Root = %q, want %q", res.Root, root)
	}
	if got := res.Resolve("results.csv"); got != filepath.Join(root, "results.csv") {
		t.Errorf("Resolve = %q", got)
	}
	if got := res.Resolve("/abs/x.csv"); got != "/abs/x.csv" {
		t.Errorf("Resolve(abs) = %q", got)
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"no command":     "matrix: {x: [1]}\n",
		"no matrix":      "command: [bin]\n",
		"bad dwell":      "command: [bin]\nmatrix: {x: [1]}\ndwell: soon\n",
		"bad store":      "command: [bin]\nmatrix: {x: [1]}\nstore: {driver: redis}\n",
		"nested value":   "command: [bin]\nmatrix: {x: [[1]]}\n",
		"malformed yaml": "command: [bin\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, body)
			if _, err := Load(dir); err == nil {
				t.Error("Load returned nil error")
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	if cfg.ReadyMarker() != DefaultReadyMarker {
		t.Errorf("ReadyMarker() = %q", cfg.ReadyMarker())
	}
	if cfg.ResultPrefix() != DefaultResultPrefix {
		t.Errorf("ResultPrefix() = %q", cfg.ResultPrefix())
	}
	if cfg.Dwell() != DefaultDwell {
		t.Errorf("Dwell() = %v", cfg.Dwell())
	}
	if cfg.DrainTimeout() != DefaultDrainTimeout {
		t.Errorf("DrainTimeout() = %v", cfg.DrainTimeout())
	}
	if cfg.MaxOutputBytes() != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes() = %d", cfg.MaxOutputBytes())
	}
	if cfg.OutputPath() != DefaultOutput {
		t.Errorf("OutputPath() = %q", cfg.OutputPath())
	}
	if cfg.StoreDriver() != "disk" || cfg.StorePath() != DefaultStorePath {
		t.Errorf("store = %s %s", cfg.StoreDriver(), cfg.StorePath())
	}

	cfg.RawDwell = "0s"
	if cfg.Dwell() != 0 {
		t.Errorf("Dwell() = %v, want 0", cfg.Dwell())
	}
	cfg.Store.Driver = "sqlite"
	if cfg.StorePath() != ".benchsweep/runs.db" {
		t.Errorf("StorePath() = %q", cfg.StorePath())
	}
}

func TestLoadFile_Example(t *testing.T) {
	loaded, err := LoadFile(filepath.Join("..", "..", "example.benchsweep.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg := loaded.Config

	if diff := cmp.Diff([]string{"render_distance", "render_shadows", "passes", "svo_type"}, cfg.Matrix.Names()); diff != "" {
		t.Errorf("axes mismatch (-want +got):\n%s", diff)
	}
	if n := sweep.Count(cfg.Matrix); n != 64 {
		t.Errorf("Count = %d, want 64", n)
	}
	if got := cfg.StoreDriver(); got != "sqlite" {
		t.Errorf("StoreDriver = %q, want sqlite", got)
	}
	if got := loaded.Resolve(cfg.StorePath()); got != filepath.Join(loaded.Root, ".benchsweep", "runs.db") {
		t.Errorf("StorePath = %q", got)
	}
}
