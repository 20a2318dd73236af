package util

import "testing"

func TestParseIntDefault(t *testing.T) {
	if v := ParseIntDefault("4", 1); v != 4 {
		t.Fatalf("expected 4, got %d", v)
	}
	if v := ParseIntDefault("", 7); v != 7 {
		t.Fatalf("expected default for empty, got %d", v)
	}
	if v := ParseIntDefault("not-a-number", 7); v != 7 {
		t.Fatalf("expected default for junk, got %d", v)
	}
}
