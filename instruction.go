package agent

import (
	"fmt"
	"regexp"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(\?)?\}`)

// RenderInstruction substitutes {key} placeholders with session state
// values. {key?} renders as empty when the key is absent; a missing {key}
// is an error. Braces that do not wrap an identifier are left untouched.
func RenderInstruction(instruction string, state *State) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(instruction, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		key, optional := groups[1], groups[2] == "?"
		if state != nil {
			if v, ok := state.Get(key); ok {
				return fmt.Sprint(v)
			}
		}
		if !optional && missing == "" {
			missing = key
		}
		return ""
	})
	if missing != "" {
		return "", fmt.Errorf("instruction references missing state key %q", missing)
	}
	return out, nil
}
