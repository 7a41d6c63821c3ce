// Package shortcode generates short codes and resolves them to codes that are
// not yet present in the link store.
package shortcode

import (
	"math/rand"
	"regexp"
)

// Alphabet defines the character set used for generating short codes.
// 62 symbols give 62^6 (~56 billion) combinations for 6-character codes.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	MinLength = 6
	MaxLength = 8
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// Generate returns a code of the given length, each character drawn uniformly
// from Alphabet. Codes are not security tokens, so the package-level PRNG is
// enough.
func Generate(length int) string {
	code := make([]byte, length)
	for i := range code {
		code[i] = Alphabet[rand.Intn(len(Alphabet))]
	}
	return string(code)
}

// Valid reports whether code is 6 to 8 alphanumeric characters.
func Valid(code string) bool {
	return codePattern.MatchString(code)
}
