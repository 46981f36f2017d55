package instructions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedTemplatesLoad(t *testing.T) {
	for _, name := range []string{Interview, DietWriter, GroceryPromos, GroceryShopper, PersonalizedDiet} {
		text, err := Default.Load(name)
		if err != nil {
			t.Fatalf("Load(%s) returned error: %v", name, err)
		}
		if strings.TrimSpace(text) == "" {
			t.Fatalf("template %s is empty", name)
		}
	}
	if got := len(Names()); got != 5 {
		t.Fatalf("expected 5 embedded templates, got %d", got)
	}
}

func TestOverrideDirShadowsEmbedded(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, Interview), []byte("custom questions"), 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}
	l := Loader{Dir: dir}

	got, err := l.Load(Interview)
	if err != nil || got != "custom questions" {
		t.Fatalf("expected override, got %q %v", got, err)
	}
	if _, err := l.Load(DietWriter); err != nil {
		t.Fatalf("expected fallback to embedded template: %v", err)
	}
}

func TestLoadRejectsUnknownAndTraversal(t *testing.T) {
	for _, name := range []string{"missing.txt", "../secrets.txt", "", "templates/grocery_shopper.txt"} {
		if _, err := Default.Load(name); err == nil {
			t.Fatalf("expected error for %q", name)
		}
	}
}
