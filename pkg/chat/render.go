package chat

import (
	"io"
	"strings"
	"sync"
)

const (
	clearLineControl = "\r\033[2K"
	defaultPrompt    = "you> "
)

var markdownMarkers = []string{"#", "```", "*", "_", ">", "-", "["}

// LooksLikeMarkdown reports whether s contains any common markdown marker.
func LooksLikeMarkdown(s string) bool {
	for _, m := range markdownMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

type Renderer struct {
	out         io.Writer
	prompt      string
	mu          sync.Mutex
	promptShown bool
}

func NewRenderer(out io.Writer, prompt string) *Renderer {
	if out == nil {
		out = io.Discard
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultPrompt
	}
	return &Renderer{
		out:    out,
		prompt: prompt,
	}
}

func (r *Renderer) ShowPrompt() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := io.WriteString(r.out, r.prompt); err != nil {
		return err
	}
	r.promptShown = true
	return nil
}

func (r *Renderer) HidePrompt() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.promptShown = false
}

func (r *Renderer) PrintLine(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trimmed := strings.TrimRight(line, "\n")

	if r.promptShown {
		if _, err := io.WriteString(r.out, clearLineControl); err != nil {
			return err
		}
	}
	if trimmed != "" {
		if _, err := io.WriteString(r.out, trimmed); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(r.out, "\n"); err != nil {
		return err
	}
	if r.promptShown {
		_, err := io.WriteString(r.out, r.prompt)
		return err
	}
	return nil
}

// PrintMessage writes one chat turn. Markdown replies are written
// verbatim on their own lines so fences and headings survive; plain
// replies share a line with the speaker label.
func (r *Renderer) PrintMessage(m Message) error {
	label := "assistant:"
	if m.Role == RoleUser {
		label = "you:"
	}
	if m.Role == RoleAssistant && !IsWarning(m.Content) && LooksLikeMarkdown(m.Content) {
		if err := r.PrintLine(label); err != nil {
			return err
		}
		return r.PrintLine(m.Content)
	}
	return r.PrintLine(label + " " + m.Content)
}
