package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateShortCode(t *testing.T) {
	code := GenerateShortCode(6)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, strings.ContainsRune(shortCodeAlphabet, r), "unexpected rune %q", r)
	}

	// Non-positive lengths fall back to the default.
	assert.Len(t, GenerateShortCode(0), 6)
}
