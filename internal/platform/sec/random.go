// Copyright (c) 2026 Roomkeeper. All rights reserved.

package sec

import (
	"crypto/rand"
	"fmt"
)

// Character sets for randomly generated security artifacts.
const (
	// AlphabetDigits produces numeric one-time codes.
	AlphabetDigits = "0123456789"

	// AlphabetToken produces URL-safe opaque tokens and session identifiers.
	AlphabetToken = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
)

// RandomString returns a uniformly random string of the given length drawn
// from the alphabet.
//
// # Uniformity
//
// Random bytes are masked down to the nearest power of two and rejected when
// they fall outside the alphabet, so no character is more likely than another.
// A plain modulo would bias toward the low end of the alphabet.
func RandomString(alphabet string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("sec: random string length must be positive, got %d", length)
	}
	if len(alphabet) < 2 || len(alphabet) > 256 {
		return "", fmt.Errorf("sec: alphabet size %d out of range", len(alphabet))
	}

	mask := byte(maskFor(len(alphabet)))
	out := make([]byte, length)
	buffer := make([]byte, length*2)

	for position := 0; position < length; {
		if _, err := rand.Read(buffer); err != nil {
			return "", fmt.Errorf("sec: entropy read failed: %w", err)
		}

		for _, b := range buffer {
			index := b & mask
			if int(index) < len(alphabet) {
				out[position] = alphabet[index]
				position++
				if position == length {
					break
				}
			}
		}
	}

	return string(out), nil
}

// maskFor returns the smallest all-ones bitmask covering alphabetLen-1.
func maskFor(alphabetLen int) int {
	mask := 1
	for mask < alphabetLen-1 {
		mask = mask<<1 | 1
	}
	return mask
}
