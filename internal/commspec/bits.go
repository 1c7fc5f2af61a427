package commspec

import (
	"math/big"
	"strings"
)

// decimalToBits converts a decimal numeral string to its binary digit
// string, left-padded with zeros to width. A value whose natural binary
// representation is longer than width is returned untruncated: high-order
// bits are never dropped, even though the longer string shifts later
// field boundaries during slicing.
func decimalToBits(value string, width int) (string, error) {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 {
		return "", &FormatError{Value: value}
	}

	bits := n.Text(2)
	if len(bits) < width {
		bits = strings.Repeat("0", width-len(bits)) + bits
	}
	return bits, nil
}
