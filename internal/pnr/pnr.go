// Package pnr generates booking confirmation codes. Codes are drawn
// from crypto/rand; a per-call freshly seeded generator would risk
// collisions under load, so there is deliberately no math/rand here.
package pnr

import (
	"context"
	"crypto/rand"
	"fmt"
)

const (
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength = 6
	maxRetries = 5
)

// ExistsFunc reports whether a code is already assigned to a booking.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator produces unique 6-character [A-Z0-9] codes. It does not
// persist anything; the saga coordinator stores the result.
type Generator struct {
	exists ExistsFunc
}

func NewGenerator(exists ExistsFunc) *Generator {
	return &Generator{exists: exists}
}

// Generate returns a code not currently assigned to any booking,
// retrying on collision up to a bounded count.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("generate pnr: %w", err)
		}

		if g.exists == nil {
			return code, nil
		}

		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check pnr uniqueness: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate pnr: exhausted %d attempts without a unique code", maxRetries)
}

// maxUnbiased is the largest multiple of len(alphabet) below 256.
// Bytes at or above it are rejected so every alphabet character is
// equally likely.
const maxUnbiased = 256 - 256%len(alphabet)

func randomCode() (string, error) {
	code := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength)
	for len(code) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			code = append(code, alphabet[int(b)%len(alphabet)])
			if len(code) == codeLength {
				break
			}
		}
	}
	return string(code), nil
}
