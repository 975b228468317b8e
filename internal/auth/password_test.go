package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =========================================================================
// HELPER
// =========================================================================

// zeroReader is a random source that only ever yields zero bytes, so every
// candidate password comes out identical.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// =========================================================================
// Generate TESTS
// =========================================================================

func TestGenerate_SatisfiesPolicy(t *testing.T) {
	g := NewPasswordGenerator()

	for range 200 {
		pw, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, pw, DefaultPasswordLength)
		assert.NoError(t, CheckPolicy(pw), pw)
	}
}

func TestGenerate_NeverRepeatsWithinARun(t *testing.T) {
	g := NewPasswordGenerator()

	seen := make(map[string]bool)
	for range 500 {
		pw, err := g.Generate()
		require.NoError(t, err)
		require.False(t, seen[pw], "duplicate password %q", pw)
		seen[pw] = true
	}
}

func TestGenerate_DegenerateSourceIsRejected(t *testing.T) {
	g := newPasswordGenerator(DefaultPasswordLength, zeroReader{})

	first, err := g.Generate()
	require.NoError(t, err)
	assert.NoError(t, CheckPolicy(first), "even a constant source yields every class")

	_, err = g.Generate()
	assert.Error(t, err, "the same candidate must not be issued twice")
}

func TestNewPasswordGenerator_ClampsShortLength(t *testing.T) {
	g := newPasswordGenerator(4, zeroReader{})

	pw, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, pw, MinPasswordLength)
}

// =========================================================================
// CheckPolicy TESTS
// =========================================================================

func TestCheckPolicy(t *testing.T) {
	tests := []struct {
		name    string
		pw      string
		wantErr string
	}{
		{"strong", "Abcdefghijk1234!", ""},
		{"too short", "Ab1!", "at least"},
		{"no upper", strings.Repeat("a", 14) + "1!", "upper-case"},
		{"no lower", strings.Repeat("A", 14) + "1!", "lower-case"},
		{"no digit", "Abcdefghijklmno!", "digit"},
		{"no symbol", "Abcdefghijklmno1", "symbol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPolicy(tt.pw)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
