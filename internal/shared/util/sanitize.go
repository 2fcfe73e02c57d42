package util

import (
	"errors"
	"strings"
)

const maxSegmentLen = 128

// ErrInvalidSegment is returned for names that cannot form a key segment.
var ErrInvalidSegment = errors.New("invalid key segment")

// SanitizeKeySegment maps a caller-supplied identifier onto a single object
// key segment. Anything outside [A-Za-z0-9._-] becomes '_'.
func SanitizeKeySegment(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" || strings.Contains(s, "..") {
		return "", ErrInvalidSegment
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxSegmentLen {
			break
		}
	}
	out := b.String()
	if strings.Trim(out, "._") == "" {
		return "", ErrInvalidSegment
	}
	return out, nil
}
