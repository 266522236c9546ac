// Package sanitizer normalizes inbound chat text and screens it for
// markup/script injection attempts before it reaches any engine.
package sanitizer

import (
	"fmt"
	"strings"

	"github.com/kizilabs/chat-gateway/internal/domain"
	"github.com/kizilabs/chat-gateway/pkg/textx"
)

// DefaultMaxLength bounds a single chat message when the caller does not
// supply a limit.
const DefaultMaxLength = 4000

// Validate trims, bounds-checks, and strips control characters from a raw
// message. It returns the cleaned string or an error wrapping
// domain.ErrInvalidArgument with reason "empty" or "too_long".
func Validate(raw string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	msg := strings.TrimSpace(raw)
	if len(msg) == 0 {
		return "", fmt.Errorf("%w: empty", domain.ErrInvalidArgument)
	}
	if len(msg) > maxLength {
		return "", fmt.Errorf("%w: too_long (max %d characters)", domain.ErrInvalidArgument, maxLength)
	}
	return textx.StripControl(msg), nil
}
