// Package auth — password generation for accounts created without one.
//
// Rows that leave the password cell empty get a random password. The
// generated value is written back into the sheet so the administrator can
// hand it to the user; the remote forum stores its own hash of it.
//
// Every password is drawn from crypto/rand and satisfies the policy below:
//
//	length ≥ MinPasswordLength, and at least one upper, lower, digit and symbol
package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"unicode"
)

const (
	// DefaultPasswordLength is the length of generated passwords.
	DefaultPasswordLength = 20

	// MinPasswordLength is the shortest password the policy accepts.
	MinPasswordLength = 16

	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*"
)

// maxAttempts bounds the retry loop when a candidate collides with one
// already issued. A collision of two 20-char passwords is astronomically
// unlikely; the bound only guards against a broken random source.
const maxAttempts = 8

// PasswordGenerator produces strong random passwords and never returns the
// same password twice over its lifetime. Create one per run.
//
// It's a struct (not a free function) so that the random source and length
// can be injected in tests.
type PasswordGenerator struct {
	length int
	random io.Reader

	mu     sync.Mutex
	issued map[string]struct{}
}

// NewPasswordGenerator creates a generator using crypto/rand and the
// default length.
func NewPasswordGenerator() *PasswordGenerator {
	return newPasswordGenerator(DefaultPasswordLength, rand.Reader)
}

// newPasswordGenerator is used by tests in this package to inject a
// deterministic source.
func newPasswordGenerator(length int, random io.Reader) *PasswordGenerator {
	if length < MinPasswordLength {
		length = MinPasswordLength
	}
	return &PasswordGenerator{
		length: length,
		random: random,
		issued: make(map[string]struct{}),
	}
}

// Generate returns a new password that satisfies CheckPolicy and has not
// been issued by this generator before.
func (g *PasswordGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for range maxAttempts {
		pw, err := g.candidate()
		if err != nil {
			return "", err
		}
		if _, seen := g.issued[pw]; seen {
			continue
		}
		g.issued[pw] = struct{}{}
		return pw, nil
	}
	return "", fmt.Errorf("auth: could not generate a unique password after %d attempts", maxAttempts)
}

// candidate draws one character from every class, fills the rest from the
// full alphabet and shuffles, so class membership is not positional.
func (g *PasswordGenerator) candidate() (string, error) {
	classes := []string{upperChars, lowerChars, digitChars, symbolChars}
	all := strings.Join(classes, "")

	buf := make([]byte, 0, g.length)
	for _, class := range classes {
		c, err := g.pick(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < g.length {
		c, err := g.pick(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Fisher-Yates
	for i := len(buf) - 1; i > 0; i-- {
		j, err := g.intn(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

func (g *PasswordGenerator) pick(alphabet string) (byte, error) {
	i, err := g.intn(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func (g *PasswordGenerator) intn(n int) (int, error) {
	v, err := rand.Int(g.random, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("auth: reading random source: %w", err)
	}
	return int(v.Int64()), nil
}

// CheckPolicy reports whether pw meets the minimum strength policy. The
// returned error names the first rule that failed.
func CheckPolicy(pw string) error {
	if len(pw) < MinPasswordLength {
		return fmt.Errorf("auth: password must be at least %d characters", MinPasswordLength)
	}

	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(symbolChars, r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	switch {
	case !upper:
		return fmt.Errorf("auth: password needs an upper-case letter")
	case !lower:
		return fmt.Errorf("auth: password needs a lower-case letter")
	case !digit:
		return fmt.Errorf("auth: password needs a digit")
	case !symbol:
		return fmt.Errorf("auth: password needs a symbol")
	}
	return nil
}
