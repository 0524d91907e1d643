package sessions

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	DefaultCodeLength   = 4
	DefaultCodeAttempts = 20
	maxCodeLength       = 9
)

// TakenFunc reports whether a candidate code collides within the caller's scope.
type TakenFunc func(ctx context.Context, code string) (bool, error)

// CodeGenerator issues short numeric codes that people can type on a keypad.
type CodeGenerator struct {
	length   int
	attempts int
	random   io.Reader
}

func NewCodeGenerator(length, attempts int) (*CodeGenerator, error) {
	if length < 1 || length > maxCodeLength {
		return nil, fmt.Errorf("code length must be between 1 and %d, got %d", maxCodeLength, length)
	}
	if attempts < 1 {
		return nil, fmt.Errorf("code attempts must be positive, got %d", attempts)
	}
	return &CodeGenerator{length: length, attempts: attempts, random: rand.Reader}, nil
}

// WithRandom swaps the entropy source. Tests use it to force collisions.
func (g *CodeGenerator) WithRandom(r io.Reader) *CodeGenerator {
	clone := *g
	clone.random = r
	return &clone
}

func (g *CodeGenerator) Length() int {
	return g.length
}

func (g *CodeGenerator) Attempts() int {
	return g.attempts
}

// Generate returns a code not reported as taken, or ErrExhaustedRetries after
// the configured number of attempts.
func (g *CodeGenerator) Generate(ctx context.Context, taken TakenFunc) (string, error) {
	for i := 0; i < g.attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := g.next()
		if err != nil {
			return "", err
		}
		if taken == nil {
			return code, nil
		}
		collides, err := taken(ctx, code)
		if err != nil {
			return "", err
		}
		if !collides {
			return code, nil
		}
	}
	return "", ErrExhaustedRetries
}

// Valid reports whether code has the generator's shape.
func (g *CodeGenerator) Valid(code string) bool {
	return IsDigits(code, g.length)
}

func (g *CodeGenerator) next() (string, error) {
	ten := big.NewInt(10)

	var builder strings.Builder
	builder.Grow(g.length)

	for i := 0; i < g.length; i++ {
		n, err := rand.Int(g.random, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		builder.WriteByte(byte('0' + n.Int64()))
	}

	return builder.String(), nil
}

func IsDigits(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
