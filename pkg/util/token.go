// Package util contains any functions used across the application that don't match
// any other package
package util

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

// GenerateToken returns n random bytes encoded as hex
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)

	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// GenerateCode returns a numeric code with exactly digits characters.
// Leading zeroes are kept.
func GenerateCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", errors.New("invalid code length")
	}

	var sb strings.Builder
	sb.Grow(digits)

	ten := big.NewInt(10)
	for range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}

		sb.WriteByte(byte('0' + n.Int64()))
	}

	return sb.String(), nil
}
