// Package codegen generates and validates short link codes.
// Generators should be safe for concurrent use.
package codegen

import (
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// MaxCodeLength bounds both generated and caller-supplied codes.
	MaxCodeLength = 64

	// bytes at or above this value are rejected so every character is equally likely.
	maxUnbiasedByte = 256 - (256 % len(base62Chars))
)

var (
	ErrEmptyCode       = errors.New("code cannot be empty")
	ErrCodeTooLong     = fmt.Errorf("code too long (maximum %d characters)", MaxCodeLength)
	ErrInvalidCodeChar = errors.New("code may only contain letters and digits")
)

// Generator generates short link codes.
// Implementations should be safe for concurrent use.
// A generated code is not guaranteed to be unique; the store decides that.
type Generator interface {
	Generate(length int) (string, error)
}

// base62Generator implements Generator over the alphanumeric alphabet.
type base62Generator struct{}

// NewBase62 returns a new base62 code generator.
func NewBase62() Generator {
	return &base62Generator{}
}

// Generate returns a random code of the given length drawn from crypto/rand.
func (g *base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}
	if length > MaxCodeLength {
		return "", ErrCodeTooLong
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiasedByte {
				continue
			}
			out = append(out, base62Chars[int(b)%len(base62Chars)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// ValidateCustom checks a caller-supplied code against the code alphabet.
func ValidateCustom(code string) error {
	if code == "" {
		return ErrEmptyCode
	}
	if len(code) > MaxCodeLength {
		return ErrCodeTooLong
	}
	for i := 0; i < len(code); i++ {
		if !isCodeChar(code[i]) {
			return ErrInvalidCodeChar
		}
	}
	return nil
}

// IsValid reports whether code could have been issued by this system.
func IsValid(code string) bool {
	return ValidateCustom(code) == nil
}

func isCodeChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	default:
		return false
	}
}
