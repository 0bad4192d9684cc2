package http

import (
	"strings"
)

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sanitizePtr sanitizes an optional string and maps blank values to nil.
func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	clean := sanitizeInput(*s)
	if clean == "" {
		return nil
	}
	return &clean
}
