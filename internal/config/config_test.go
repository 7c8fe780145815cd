package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sizewatch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
browser:
  headful: false
pages:
  - id: dash
    url: https://example.com/dashboard
    selectors: ["#chart", ".sidebar"]
    viewport: true
    throttle_ms: 200
  - url: https://example.com/plain
sinks:
  - type: sqlite
    path: events.db
debug_addr: 127.0.0.1:9090
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.Pages) != 2 {
		t.Fatalf("pages: got %d, want 2", len(cfg.Pages))
	}
	if cfg.Pages[0].Throttle() != 200*time.Millisecond {
		t.Errorf("throttle: got %v, want 200ms", cfg.Pages[0].Throttle())
	}
	// Defaults: 90ms throttle, ID falls back to the URL.
	if cfg.Pages[1].Throttle() != 90*time.Millisecond {
		t.Errorf("default throttle: got %v, want 90ms", cfg.Pages[1].Throttle())
	}
	if cfg.Pages[1].ID != "https://example.com/plain" {
		t.Errorf("default id: got %q", cfg.Pages[1].ID)
	}
	if cfg.DebugAddr != "127.0.0.1:9090" {
		t.Errorf("debug_addr: got %q", cfg.DebugAddr)
	}
}

func TestLoadFile_DefaultSinkIsStdout(t *testing.T) {
	path := writeConfig(t, `
pages:
  - url: https://example.com
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Sinks) != 1 || cfg.Sinks[0].Type != "stdout" {
		t.Errorf("sinks: got %+v, want one stdout sink", cfg.Sinks)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"page without url", "pages:\n  - id: x\n"},
		{"sqlite sink without path", "pages:\n  - url: https://e.com\nsinks:\n  - type: sqlite\n"},
		{"unknown sink type", "pages:\n  - url: https://e.com\nsinks:\n  - type: nats\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFile(writeConfig(t, tc.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
