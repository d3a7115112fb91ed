package app

import (
	"fmt"
	"strings"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
)

// NormalizeE164 canonicalizes a phone number to E.164 so every lookup in
// the number directory and thread store uses the same key.
//
// Accepted inputs:
//   - already-formatted E.164 ("+15551234567", up to 15 digits)
//   - bare 10-digit NANP numbers, with or without separators/parens
//   - 11-digit NANP numbers with a leading 1
func NormalizeE164(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty phone number", domain.ErrValidation)
	}

	hasPlus := strings.HasPrefix(trimmed, "+")

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		switch r {
		case '+', '-', '.', ' ', '(', ')':
			// separators are stripped
		default:
			return "", fmt.Errorf("%w: unexpected character %q in phone number", domain.ErrValidation, r)
		}
	}
	d := digits.String()

	switch {
	case hasPlus:
		if len(d) < 11 || len(d) > 15 {
			return "", fmt.Errorf("%w: international number must have 11-15 digits, got %d", domain.ErrValidation, len(d))
		}
		if d[0] == '0' {
			return "", fmt.Errorf("%w: country code cannot start with 0", domain.ErrValidation)
		}
		return "+" + d, nil
	case len(d) == 10:
		return "+1" + d, nil
	case len(d) == 11 && d[0] == '1':
		return "+" + d, nil
	default:
		return "", fmt.Errorf("%w: cannot normalize %q to E.164", domain.ErrValidation, raw)
	}
}
