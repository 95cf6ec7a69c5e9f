package random

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_LengthAndAlphabet(t *testing.T) {
	for _, n := range []int{1, 16, DefaultTokenLength, 64} {
		tok, err := Token(n)
		require.NoError(t, err)
		assert.Len(t, tok, n)
		assert.Equal(t, tok, url.QueryEscape(tok), "token must be url-safe")
	}
}

func TestToken_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		tok, err := Token(DefaultTokenLength)
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestToken_InvalidLength(t *testing.T) {
	_, err := Token(0)
	assert.Error(t, err)
}
