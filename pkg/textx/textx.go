// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
)

// StripControl removes the ASCII control characters that must never reach an
// engine payload: 0x00-0x08, 0x0B, 0x0C, 0x0E-0x1F and DEL (0x7F). Tab,
// newline and carriage return are preserved.
func StripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
