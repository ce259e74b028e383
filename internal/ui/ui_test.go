package ui

import "testing"

// Test binaries run without a TTY, so styling must pass text through
// unchanged rather than emitting escape sequences.
func TestRenderersPassThroughWithoutTTY(t *testing.T) {
	tests := []struct {
		name   string
		render func(string) string
	}{
		{"pass", RenderPass},
		{"warn", RenderWarn},
		{"fail", RenderFail},
		{"accent", RenderAccent},
		{"faint", RenderFaint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.render("hello"); got != "hello" {
				t.Errorf("expected plain pass-through, got %q", got)
			}
		})
	}
}

func TestNoColorDisablesStyling(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if Colorized() {
		t.Error("NO_COLOR should disable colorized output")
	}
}
