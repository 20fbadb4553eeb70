package ufs

import (
	"strings"
	"testing"
)

func TestValidName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"single char", "a", true},
		{"max length", strings.Repeat("x", 27), true},
		{"too long", strings.Repeat("x", 28), false},
		{"empty", "", false},
		{"contains slash", "a/b", false},
		{"non-ascii", "caf\xc3\xa9", false},
		{"control char", "a\tb", false},
		{"dot names", "..", true},
		{"spaces allowed", "hello world", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidName(tt.input); got != tt.valid {
				t.Errorf("ValidName(%q) = %v, expected %v", tt.input, got, tt.valid)
			}
		})
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path     string
		expected []string
	}{
		{"/", nil},
		{"/a", []string{"a"}},
		{"/a/b/c", []string{"a", "b", "c"}},
		{"/a//b/", []string{"a", "b"}},
		{"///", nil},
		{"/trailing/", []string{"trailing"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := SplitPath(tt.path)
			if len(got) != len(tt.expected) {
				t.Fatalf("SplitPath(%q) = %v, expected %v", tt.path, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("SplitPath(%q)[%d] = %q, expected %q", tt.path, i, got[i], tt.expected[i])
				}
			}
		})
	}
}
