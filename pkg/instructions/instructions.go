// Package instructions holds the prompt templates the diet agents are
// configured with.
package instructions

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const (
	Interview        = "diet_interview_instruction.txt"
	DietWriter       = "dietwriter_instruction.txt"
	GroceryPromos    = "grocery_specials.txt"
	GroceryShopper   = "grocery_shopper.txt"
	PersonalizedDiet = "personalized_diet_agent_instruction.txt"
)

//go:embed templates/*.txt
var embedded embed.FS

// Source loads instruction templates by file name.
type Source interface {
	Load(name string) (string, error)
}

// Loader reads templates from Dir when set, falling back to the embedded
// copies. Files in Dir shadow embedded files of the same name.
type Loader struct {
	Dir string
}

// Default loads only embedded templates.
var Default = Loader{}

func (l Loader) Load(name string) (string, error) {
	clean := path.Clean(strings.TrimSpace(name))
	if clean == "." || clean == "" || strings.Contains(clean, "/") || strings.Contains(clean, `\`) {
		return "", fmt.Errorf("instructions: invalid template name %q", name)
	}

	if l.Dir != "" {
		data, err := os.ReadFile(filepath.Join(l.Dir, clean))
		switch {
		case err == nil:
			return string(data), nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("instructions: read %s: %w", clean, err)
		}
	}

	data, err := embedded.ReadFile("templates/" + clean)
	if err != nil {
		return "", fmt.Errorf("instructions: template %s not found: %w", clean, err)
	}
	return string(data), nil
}

// Names lists the embedded template names in lexical order.
func Names() []string {
	entries, err := embedded.ReadDir("templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
