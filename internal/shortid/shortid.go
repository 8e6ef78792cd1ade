// Package shortid mints the short, URL-safe identifiers used in share links.
package shortid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Alphanumeric is the default alphabet: no separators, safe in a URL path segment.
const Alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength matches the length of the share ids issued so far.
const DefaultLength = 10

// ErrInvalidLength is returned when a generator is configured with a non-positive length.
var ErrInvalidLength = errors.New("id length must be positive")

// Generator produces random ids of a fixed length. It never consults storage;
// a collision is detected later by the store that refuses the duplicate key.
type Generator struct {
	Length   int
	Alphabet string
}

// New creates a Generator over the alphanumeric alphabet.
func New(length int) *Generator {
	return &Generator{Length: length, Alphabet: Alphanumeric}
}

// Generate returns a new random id.
func (g *Generator) Generate() (string, error) {
	if g.Length <= 0 {
		return "", ErrInvalidLength
	}
	alphabet := g.Alphabet
	if alphabet == "" {
		alphabet = Alphanumeric
	}
	return random(alphabet, g.Length)
}

// Token returns a random secret of n characters from the generator's alphabet.
// Used for the delete token handed to anonymous uploaders.
func (g *Generator) Token(n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidLength
	}
	alphabet := g.Alphabet
	if alphabet == "" {
		alphabet = Alphanumeric
	}
	return random(alphabet, n)
}

func random(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// Valid reports whether s could have been produced by a generator with the
// given length range over the alphanumeric alphabet.
func Valid(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
