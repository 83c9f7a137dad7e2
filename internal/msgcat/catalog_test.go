package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderDefaults(t *testing.T) {
	c := MustDefault()
	out, err := c.Render("search.player", map[string]any{
		"Name":       "AlabeSons",
		"RaceName":   "Bal T'aks",
		"FinalScore": 161,
		"Labels":     []string{"R1: Mine", "R3: Research Lab"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "AlabeSons") || !strings.HasSuffix(out, "[R1: Mine, R3: Research Lab]") {
		t.Fatalf("unexpected output: %q", out)
	}

	if _, err := c.Render("search.player", map[string]any{"Name": "x"}); err == nil {
		t.Fatalf("missing keys should fail")
	}
	if _, err := c.Render("nope", nil); err == nil {
		t.Fatalf("unknown template should fail")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("ingest:\n  total: \"done {{.Created}}\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Render("ingest.total", map[string]any{"Created": 3})
	if err != nil || out != "done 3" {
		t.Fatalf("override not applied: %q %v", out, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("ingest:\n  total: again\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("duplicate override keys should fail")
	}
}
