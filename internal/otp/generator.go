// Package otp produces the numeric one-time codes used to prove control
// of an email address during verification.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// Codes are drawn from [100000, 999999] so a code never carries a
	// leading zero.
	codeMin   = 100000
	codeRange = 900000

	// DefaultValidity is how long a code can be redeemed after issuance.
	DefaultValidity = 10 * time.Minute
)

// Generator produces 6-digit challenge codes with an expiry instant.
// The zero value is not usable; construct with NewGenerator.
type Generator struct {
	validity time.Duration
	now      func() time.Time
}

// NewGenerator creates a Generator with the default 10-minute validity.
func NewGenerator() *Generator {
	return &Generator{
		validity: DefaultValidity,
		now:      time.Now,
	}
}

// NewGeneratorWithClock creates a Generator with a custom validity and
// clock.
func NewGeneratorWithClock(validity time.Duration, now func() time.Time) *Generator {
	return &Generator{
		validity: validity,
		now:      now,
	}
}

// Generate returns a uniformly random 6-digit code and its expiry.
// The entropy source is crypto/rand so codes cannot be predicted within
// the validity window.
func (g *Generator) Generate() (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate code: %w", err)
	}

	code := fmt.Sprintf("%06d", n.Int64()+codeMin)
	return code, g.now().Add(g.validity), nil
}
