// Copyright (c) 2026 Roomkeeper. All rights reserved.

package sec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslab/roomkeeper/internal/platform/sec"
)

/*
TestRandomString checks length, alphabet membership, and that consecutive
draws differ.
*/
func TestRandomString(t *testing.T) {
	tests := []struct {
		name     string
		alphabet string
		length   int
	}{
		{"six_digit_code", sec.AlphabetDigits, 6},
		{"opaque_token", sec.AlphabetToken, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := sec.RandomString(tt.alphabet, tt.length)
			require.NoError(t, err)
			require.Len(t, value, tt.length)

			for _, r := range value {
				assert.True(t, strings.ContainsRune(tt.alphabet, r), "character %q outside alphabet", r)
			}

			other, err := sec.RandomString(tt.alphabet, tt.length)
			require.NoError(t, err)
			assert.NotEqual(t, value, other)
		})
	}
}

/*
TestRandomString_InvalidInput rejects unusable alphabets and lengths.
*/
func TestRandomString_InvalidInput(t *testing.T) {
	_, err := sec.RandomString("", 6)
	assert.Error(t, err)

	_, err = sec.RandomString(sec.AlphabetDigits, 0)
	assert.Error(t, err)
}
