package id

import (
	"regexp"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		prefix string
	}{
		{"bak"},
		{"lt"},
		{"evt"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			id1 := Generate(tt.prefix)
			id2 := Generate(tt.prefix)

			expectedPrefix := tt.prefix + "_"
			if !strings.HasPrefix(id1, expectedPrefix) {
				t.Errorf("expected prefix %q, got %s", expectedPrefix, id1)
			}

			if id1 == id2 {
				t.Errorf("expected unique IDs, got %s and %s", id1, id2)
			}

			expectedLen := len(tt.prefix) + 1 + 12
			if len(id1) != expectedLen {
				t.Errorf("expected length %d, got %d (%s)", expectedLen, len(id1), id1)
			}
		})
	}
}

func TestGenerateFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^bak_[0-9a-f]{12}$`)
	for i := 0; i < 10; i++ {
		id := Generate("bak")
		if !pattern.MatchString(id) {
			t.Errorf("ID %q doesn't match expected format %s", id, pattern)
		}
	}
}

func TestGenerateUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate("test")
		if seen[id] {
			t.Errorf("collision detected: %s", id)
		}
		seen[id] = true
	}
}
