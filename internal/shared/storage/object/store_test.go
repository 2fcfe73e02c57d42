package object

import (
	"errors"
	"testing"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
		bad  bool
	}{
		{key: "rejected/compatibility-report/2026-10-18/abc.json", want: "rejected/compatibility-report/2026-10-18/abc.json"},
		{key: "a//b/./c", want: "a/b/c"},
		{key: "", bad: true},
		{key: "/etc/passwd", bad: true},
		{key: "../secret", bad: true},
		{key: "a/../../b", bad: true},
		{key: `a\b`, bad: true},
	}
	for _, tt := range tests {
		got, err := CleanKey(tt.key)
		if tt.bad {
			if !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("CleanKey(%q) err = %v, want ErrInvalidKey", tt.key, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("CleanKey(%q) = %q, %v; want %q", tt.key, got, err, tt.want)
		}
	}
}
