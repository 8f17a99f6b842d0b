package msgcat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedLanguages(t *testing.T) {
	langs := Languages()
	if strings.Join(langs, ",") != "en,ja" {
		t.Fatalf("languages = %v", langs)
	}

	en, err := New("en", "")
	if err != nil {
		t.Fatalf("New(en): %v", err)
	}
	if got, _ := en.Render("result.checkmate", nil); got != "Checkmate! Game over" {
		t.Fatalf("result.checkmate = %q", got)
	}

	ja, err := New("ja", "")
	if err != nil {
		t.Fatalf("New(ja): %v", err)
	}
	if got, _ := ja.Render("banner.check", nil); got != "チェック！" {
		t.Fatalf("banner.check = %q", got)
	}
	// keys missing in ja fall through to the English layer
	if got, err := ja.Render("cli.help", map[string]any{"Default": 10}); err != nil || !strings.Contains(got, "default 10") {
		t.Fatalf("cli.help = %q, %v", got, err)
	}
}

func TestUnknownLanguage(t *testing.T) {
	if _, err := New("xx", ""); err == nil {
		t.Fatalf("expected error for unknown language")
	}
}

func TestRenderMissingKeyData(t *testing.T) {
	c, err := New("en", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("level.label", map[string]any{}); err == nil {
		t.Fatalf("expected missingkey error")
	}
	if got := c.RenderOr("level.label", map[string]any{"Level": 7}, "?"); got != "Level 7" {
		t.Fatalf("level.label = %q", got)
	}
	if _, err := c.Render("nope", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Render(nope) err = %v", err)
	}
	if got := c.RenderOr("nope", nil, "fallback"); got != "fallback" {
		t.Fatalf("RenderOr fallback = %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.RenderOr("banner.check", nil, "fb"); got != "fb" {
		t.Fatalf("nil catalog = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("banner:\n  check: \"CHECK\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New("en", dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, _ := c.Render("banner.check", nil); got != "CHECK" {
		t.Fatalf("override not applied: %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("banner:\n  check: \"again\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New("en", dir); err == nil {
		t.Fatalf("expected duplicate override key error")
	}
}

func TestOverrideTemplateErrorAtLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("banner:\n  check: \"{{ .Side \"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New("en", dir); err == nil || !strings.Contains(err.Error(), "banner.check") {
		t.Fatalf("expected parse error naming banner.check, got %v", err)
	}
}
