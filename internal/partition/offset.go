package partition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// hexPrefix marks hexadecimal offsets.
const hexPrefix = "0x"

// ErrMalformedOffset is returned when an offset is neither decimal nor hexadecimal.
var ErrMalformedOffset = errors.New("malformed offset")

// Offset is a flash-relative address taken from the partition table.
type Offset struct {
	// Hex is the canonical lower-case 0x-prefixed representation.
	Hex string
	// Value is the numeric address, valid only when Numeric is true.
	Value uint64
	// Numeric is false when a hex-prefixed value was accepted verbatim
	// without being parsed.
	Numeric bool
}

// String returns the canonical hexadecimal representation.
func (o Offset) String() string {
	return o.Hex
}

// ParseOffset parses a decimal or 0x-prefixed hexadecimal offset.
// It reports false for a blank field. A value starting with the hex prefix
// that cannot be parsed is kept verbatim.
func ParseOffset(s string) (Offset, bool, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Offset{}, false, nil
	}

	if value, err := parseNumber(s); err == nil {
		return Offset{
			Hex:     fmt.Sprintf("%#x", value),
			Value:   value,
			Numeric: true,
		}, true, nil
	}

	if strings.HasPrefix(s, hexPrefix) {
		return Offset{Hex: s}, true, nil
	}

	return Offset{}, false, fmt.Errorf("%w: %q", ErrMalformedOffset, s)
}

// parseNumber accepts plain decimal or 0x-prefixed hexadecimal input.
func parseNumber(s string) (uint64, error) {
	if digits, ok := strings.CutPrefix(s, hexPrefix); ok {
		return strconv.ParseUint(digits, 16, 64)
	}

	return strconv.ParseUint(s, 10, 64)
}
