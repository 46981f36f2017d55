package agent

import "testing"

func TestRenderInstruction(t *testing.T) {
	state := NewState(map[string]any{"generated_diet": "oats", "days": 3})
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"no placeholders", "plain text", "plain text", false},
		{"substitutes", "Diet: {generated_diet} for {days} days", "Diet: oats for 3 days", false},
		{"optional missing", "Promos: {generated_promos?}.", "Promos: .", false},
		{"required missing", "Profile: {user_profile}", "", true},
		{"non identifier braces", `Return {"status": "ok"}`, `Return {"status": "ok"}`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RenderInstruction(tc.in, state)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("RenderInstruction returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}
