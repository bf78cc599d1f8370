package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateAPIKey creates a high-entropy opaque bearer secret.
func GenerateAPIKey() (string, error) {
	return GenerateRandomString(32)
}

// GenerateRandomString returns a hex string backed by n random bytes.
func GenerateRandomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("random string: invalid length %d", n)
	}
	buf := make([]byte, n)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("random string: %w", errRead)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateNumericCode returns a string of length random decimal digits.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("numeric code: invalid length %d", length)
	}
	digits := make([]byte, length)
	for i := range digits {
		v, errInt := rand.Int(rand.Reader, big.NewInt(10))
		if errInt != nil {
			return "", fmt.Errorf("numeric code: %w", errInt)
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}
