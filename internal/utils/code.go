package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// MaxCodeDigits is the longest code that fits an int64.
const MaxCodeDigits = 18

// GenerateNumericCode returns a zero-padded random code of the given number of digits.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > MaxCodeDigits {
		return "", fmt.Errorf("invalid code length: %d", digits)
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to read random code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
