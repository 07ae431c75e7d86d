// Package base62 provides short-key generation over the URL-safe
// alphanumeric alphabet [0-9A-Za-z].
package base62

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Random returns a cryptographically random base62 string of the given
// length. With 7 characters there are 62^7 (~3.5 trillion) possible
// keys, so collisions are rare but still must be checked by the caller.
func Random(length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))

	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}

	return string(b), nil
}

// Valid reports whether s consists solely of base62 characters
func Valid(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return len(s) > 0
}
