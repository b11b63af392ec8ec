package directory

import "testing"

func TestFoldName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jan Novák", "jan novak"},
		{"jan-novak", "jan novak"},
		{"JOHN DOE", "john doe"},
		{"jan-novák", "jan novak"},
		{"café", "cafe"},
		{"naïve", "naive"},
		{"Žluťoučký kůň", "zlutoucky kun"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := FoldName(tt.input)
			if result != tt.expected {
				t.Errorf("FoldName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
