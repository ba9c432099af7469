package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeAlert canonicalizes a raw alert code to the zero-padded lowercase
// hex form the movement lookup table is keyed by ("0x00020000"). Accepted
// inputs are hex strings with or without the 0x prefix, in any case, with
// surrounding whitespace. Decimal-looking inputs are treated as hex, since
// the device firmware always emits hex codes.
func NormalizeAlert(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty alert code")
	}

	lower := strings.ToLower(s)
	lower = strings.TrimPrefix(lower, "0x")
	if lower == "" {
		return "", fmt.Errorf("unable to parse alert code: %q", raw)
	}

	v, err := strconv.ParseUint(lower, 16, 32)
	if err != nil {
		return "", fmt.Errorf("unable to parse alert code %q: %w", raw, err)
	}

	return fmt.Sprintf("0x%08x", v), nil
}
